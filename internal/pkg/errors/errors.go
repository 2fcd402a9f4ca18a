// Package errors 定义客户端统一使用的应用错误类型。
//
// 形状与服务端 Status 对齐：{ code, reason, message, metadata }，
// 调用方可按 Reason 分支，也可通过 errors.Unwrap 拿到底层原因。
package errors

import (
	stderrors "errors"
	"fmt"
)

const (
	// UnknownCode 未知错误的默认状态码。
	UnknownCode = 500
	// UnknownReason 未知错误的默认原因。
	UnknownReason = ""
)

// Status is the JSON-serializable view of an ApplicationError.
type Status struct {
	Code     int32             `json:"code"`
	Reason   string            `json:"reason,omitempty"`
	Message  string            `json:"message,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ApplicationError 携带状态码、原因与可选的底层错误。
type ApplicationError struct {
	Status
	cause error
}

func (e *ApplicationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.cause != nil {
		return fmt.Sprintf("error: code = %d reason = %s message = %s cause = %v", e.Code, e.Reason, e.Message, e.cause)
	}
	return fmt.Sprintf("error: code = %d reason = %s message = %s", e.Code, e.Reason, e.Message)
}

func (e *ApplicationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches another ApplicationError with the same code and reason.
func (e *ApplicationError) Is(target error) bool {
	var t *ApplicationError
	if !stderrors.As(target, &t) || t == nil || e == nil {
		return false
	}
	return e.Code == t.Code && e.Reason == t.Reason
}

// WithCause 返回附带底层错误的副本。
func (e *ApplicationError) WithCause(cause error) *ApplicationError {
	out := e.clone()
	out.cause = cause
	return out
}

// WithMetadata 返回合并了 metadata 的副本。
func (e *ApplicationError) WithMetadata(md map[string]string) *ApplicationError {
	out := e.clone()
	if len(md) == 0 {
		return out
	}
	merged := make(map[string]string, len(out.Metadata)+len(md))
	for k, v := range out.Metadata {
		merged[k] = v
	}
	for k, v := range md {
		merged[k] = v
	}
	out.Metadata = merged
	return out
}

func (e *ApplicationError) clone() *ApplicationError {
	if e == nil {
		return nil
	}
	out := &ApplicationError{
		Status: Status{
			Code:    e.Code,
			Reason:  e.Reason,
			Message: e.Message,
		},
		cause: e.cause,
	}
	if e.Metadata != nil {
		out.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// New 创建一个应用错误。
func New(code int, reason, message string) *ApplicationError {
	return &ApplicationError{
		Status: Status{
			Code:    int32(code),
			Reason:  reason,
			Message: message,
		},
	}
}

// Newf 创建一个带格式化消息的应用错误。
func Newf(code int, reason, format string, a ...any) *ApplicationError {
	return New(code, reason, fmt.Sprintf(format, a...))
}

// FromError 将任意 error 转换为 ApplicationError；nil 返回 nil。
func FromError(err error) *ApplicationError {
	if err == nil {
		return nil
	}
	var appErr *ApplicationError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return New(UnknownCode, UnknownReason, err.Error()).WithCause(err)
}

// Code returns the status code carried by err, 200 for nil.
func Code(err error) int {
	if err == nil {
		return 200
	}
	return int(FromError(err).Code)
}

// Reason returns the reason carried by err.
func Reason(err error) string {
	if err == nil {
		return UnknownReason
	}
	return FromError(err).Reason
}

// Message returns the human readable message carried by err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return FromError(err).Message
}
