package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
)

func TestMakeCode(t *testing.T) {
	tests := []struct {
		service, category, seq int
		want                   int
	}{
		{ServiceCommon, CategoryRequest, 1, 1001},
		{ServiceAPI, CategoryConfig, 1, 412001},
		{ServiceMonitor, CategoryUnavailable, 2, 510002},
	}
	for _, tt := range tests {
		if got := MakeCode(tt.service, tt.category, tt.seq); got != tt.want {
			t.Errorf("MakeCode(%d, %d, %d) = %d, want %d", tt.service, tt.category, tt.seq, got, tt.want)
		}
		s, c, q := ParseCode(tt.want)
		if s != tt.service || c != tt.category || q != tt.seq {
			t.Errorf("ParseCode(%d) = %d, %d, %d", tt.want, s, c, q)
		}
	}
}

func TestErrno_CopiesDoNotMutate(t *testing.T) {
	e := ErrBadRequest.WithMessage("port must be numeric")
	if ErrBadRequest.MessageEN != "Bad Request" {
		t.Fatalf("base errno mutated: %q", ErrBadRequest.MessageEN)
	}
	if e.MessageEN != "port must be numeric" {
		t.Errorf("MessageEN = %q", e.MessageEN)
	}
	if !stderrors.Is(e, ErrBadRequest) {
		t.Error("derived errno should match base code")
	}
}

func TestErrno_StatusDefaults(t *testing.T) {
	e := &Errno{Code: 99}
	if e.HTTPStatus() != http.StatusInternalServerError {
		t.Errorf("HTTPStatus() = %d", e.HTTPStatus())
	}
	if e.GRPCStatus() != codes.Internal {
		t.Errorf("GRPCStatus() = %v", e.GRPCStatus())
	}
	if ErrTooManyRequests.GRPCStatus() != codes.ResourceExhausted {
		t.Errorf("GRPCStatus() = %v", ErrTooManyRequests.GRPCStatus())
	}
}

func TestFromError(t *testing.T) {
	cause := stderrors.New("boom")
	got := FromError(cause)
	if got.Code != ErrInternal.Code {
		t.Errorf("Code = %d, want %d", got.Code, ErrInternal.Code)
	}
	if !stderrors.Is(got, cause) {
		t.Error("cause should be reachable through Unwrap")
	}

	wrapped := fmt.Errorf("handler: %w", ErrNotFound)
	if FromError(wrapped) != ErrNotFound {
		t.Error("FromError should find an Errno inside a wrapped chain")
	}
	if FromError(nil) != nil {
		t.Error("FromError(nil) should be nil")
	}
	if GetCode(cause) != -1 {
		t.Error("GetCode on a plain error should be -1")
	}
	if !IsCode(wrapped, ErrNotFound.Code) {
		t.Error("IsCode should see through wrapping")
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate code")
		}
	}()
	Register(&Errno{Code: ErrNotFound.Code})
}

func TestIsRegistered(t *testing.T) {
	if !IsRegistered(ErrTooManyRequests.WithMessage("slow down")) {
		t.Error("derived errno should stay registered")
	}
	if IsRegistered(&Errno{Code: 9999999}) {
		t.Error("unknown code reported as registered")
	}
	if IsRegistered(stderrors.New("x")) {
		t.Error("plain error reported as registered")
	}
}

func TestClassification(t *testing.T) {
	if !IsClientError(ErrTooManyRequests.Code) {
		t.Error("429 should be a client error")
	}
	if !IsServerError(ErrShutdownTimeout.Code) {
		t.Error("shutdown timeout should be a server error")
	}
}
