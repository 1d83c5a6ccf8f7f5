package json

import (
	"bytes"
	"strings"
	"testing"
)

type report struct {
	BaseURL   string   `json:"base_url"`
	LatencyMS *float64 `json:"latency_ms"`
	OK        bool     `json:"ok"`
}

func TestMarshalIndent(t *testing.T) {
	out, err := MarshalIndent(map[string]report{"p1": {BaseURL: "https://x"}}, "", "  ")
	if err != nil {
		t.Fatalf("MarshalIndent() error = %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "\n  \"p1\": {") {
		t.Errorf("expected two-space indentation, got:\n%s", s)
	}
	if !strings.Contains(s, `"latency_ms": null`) {
		t.Errorf("nil pointer should encode as null, got:\n%s", s)
	}
}

func TestDecoder(t *testing.T) {
	var r report
	if err := NewDecoder(bytes.NewBufferString(`{"base_url":"u","latency_ms":12.5,"ok":true}`)).Decode(&r); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if r.BaseURL != "u" || r.LatencyMS == nil || *r.LatencyMS != 12.5 || !r.OK {
		t.Errorf("unexpected decode result: %+v", r)
	}
}

func TestUnmarshal_Invalid(t *testing.T) {
	var v map[string]interface{}
	if err := Unmarshal([]byte(`{"a":`), &v); err == nil {
		t.Error("expected error on truncated input")
	}
}
