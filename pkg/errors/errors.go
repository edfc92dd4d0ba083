// Package errors 定义生成链路上的错误分类
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind 错误类别
type Kind string

const (
	KindUnknown       Kind = "Unknown"
	KindConfiguration Kind = "ConfigurationError"
	KindBadRequest    Kind = "BadRequest"
	KindRequestFailed Kind = "RequestFailed"
	KindUpstream      Kind = "UpstreamError"
)

// AppError 应用错误
type AppError struct {
	Kind       Kind
	Message    string
	HTTPStatus int
	// Status 上游或中继返回的状态文本，仅 RequestFailed 使用
	Status string
	Err    error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按 Kind 比较，便于 errors.Is(err, ErrBadRequest)
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New 创建新的应用错误
func New(kind Kind, message string) *AppError {
	return &AppError{
		Kind:       kind,
		Message:    message,
		HTTPStatus: kindToHTTPStatus(kind),
	}
}

// Wrap 包装错误
func Wrap(err error, kind Kind, message string) *AppError {
	return &AppError{
		Kind:       kind,
		Message:    message,
		HTTPStatus: kindToHTTPStatus(kind),
		Err:        err,
	}
}

// Configuration 缺少必需配置
func Configuration(message string) *AppError {
	return New(KindConfiguration, message)
}

// BadRequest 请求参数或 prompt 非法
func BadRequest(message string) *AppError {
	return New(KindBadRequest, message)
}

// RequestFailed 中继或上游返回非成功状态
func RequestFailed(statusCode int, status string) *AppError {
	return &AppError{
		Kind:       KindRequestFailed,
		Message:    "request failed",
		HTTPStatus: statusCode,
		Status:     status,
	}
}

// Upstream 上游调用失败，statusCode 为 0 时按 502 处理
func Upstream(err error, statusCode int) *AppError {
	if statusCode == 0 {
		statusCode = http.StatusBadGateway
	}
	return &AppError{
		Kind:       KindUpstream,
		Message:    "upstream generation failed",
		HTTPStatus: statusCode,
		Err:        err,
	}
}

func kindToHTTPStatus(kind Kind) int {
	switch kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误，仅用于 errors.Is 比较
var (
	ErrConfiguration = New(KindConfiguration, "configuration error")
	ErrBadRequest    = New(KindBadRequest, "bad request")
	ErrRequestFailed = New(KindRequestFailed, "request failed")
	ErrUpstream      = New(KindUpstream, "upstream error")
)

// KindOf 返回错误链上第一个 AppError 的类别
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, KindUnknown, "unknown error")
}
