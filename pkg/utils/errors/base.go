package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// 通用错误
var (
	ErrBadRequest = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRequest, 1),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Bad Request",
		MessageZH: "请求参数错误",
	})

	ErrRequestEntityTooLarge = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRequest, 2),
		HTTP:      http.StatusRequestEntityTooLarge,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "request entity too large",
		MessageZH: "请求体过大",
	})

	ErrNotFound = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryResource, 1),
		HTTP:      http.StatusNotFound,
		GRPCCode:  codes.NotFound,
		MessageEN: "Not Found",
		MessageZH: "资源不存在",
	})

	ErrTooManyRequests = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRateLimit, 1),
		HTTP:      http.StatusTooManyRequests,
		GRPCCode:  codes.ResourceExhausted,
		MessageEN: "Too many requests from this IP, please try again later.",
		MessageZH: "请求过于频繁，请稍后再试",
	})

	ErrInternal = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryInternal, 1),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Internal Server Error",
		MessageZH: "服务器内部错误",
	})

	ErrPanic = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryInternal, 2),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Internal Server Error",
		MessageZH: "服务异常",
	})

	ErrServiceUnavailable = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryUnavailable, 1),
		HTTP:      http.StatusServiceUnavailable,
		GRPCCode:  codes.Unavailable,
		MessageEN: "Service Unavailable",
		MessageZH: "服务不可用",
	})
)

// API server errors
var (
	ErrBindFailed = Register(&Errno{
		Code:      MakeCode(ServiceAPI, CategoryConfig, 1),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Unavailable,
		MessageEN: "failed to bind listener",
		MessageZH: "监听端口失败",
	})

	ErrShutdownTimeout = Register(&Errno{
		Code:      MakeCode(ServiceAPI, CategoryTimeout, 1),
		HTTP:      http.StatusServiceUnavailable,
		GRPCCode:  codes.DeadlineExceeded,
		MessageEN: "Forced shutdown after timeout",
		MessageZH: "优雅关闭超时，强制退出",
	})
)

// Monitor errors
var (
	ErrProbeFailed = Register(&Errno{
		Code:      MakeCode(ServiceMonitor, CategoryUnavailable, 1),
		HTTP:      http.StatusBadGateway,
		GRPCCode:  codes.Unavailable,
		MessageEN: "probe failed",
		MessageZH: "探测失败",
	})

	ErrScrapeFailed = Register(&Errno{
		Code:      MakeCode(ServiceMonitor, CategoryUnavailable, 2),
		HTTP:      http.StatusBadGateway,
		GRPCCode:  codes.Unavailable,
		MessageEN: "metrics scrape failed",
		MessageZH: "指标采集失败",
	})

	ErrUnhealthy = Register(&Errno{
		Code:      MakeCode(ServiceMonitor, CategoryUnavailable, 3),
		HTTP:      http.StatusServiceUnavailable,
		GRPCCode:  codes.Unavailable,
		MessageEN: "unhealthy services detected",
		MessageZH: "存在不健康的服务",
	})
)
