package service

import (
	"context"
	"errors"

	infraerrors "github.com/WPeytz/MinuteMind/internal/pkg/errors"
)

// studio 调用失败的三类原因，外加本地输入校验。
const (
	// ReasonStudioTransport 未收到响应（网络不可达、超时、重定向超限、取消）。
	ReasonStudioTransport = "STUDIO_TRANSPORT_FAILED"
	// ReasonStudioService 收到非 2xx 响应，Code 为上游状态码。
	ReasonStudioService = "STUDIO_SERVICE_ERROR"
	// ReasonStudioContract 2xx 但响应体不符合约定结构。
	ReasonStudioContract = "STUDIO_CONTRACT_VIOLATION"

	ReasonInvalidScriptRequest = "INVALID_SCRIPT_REQUEST"
	ReasonInvalidArgument      = "INVALID_ARGUMENT"
)

// Metadata keys attached to studio errors.
const (
	ErrMetaMethod     = "method"
	ErrMetaURL        = "url"
	ErrMetaStatus     = "status"
	ErrMetaBody       = "body"
	ErrMetaRequestID  = "request_id"
	ErrMetaDetail     = "detail"
	ErrMetaViolations = "violations"
)

var (
	// ErrVideoNotFound 目录中不存在指定视频。
	ErrVideoNotFound = errors.New("video not found in catalog")
	// ErrVideoNotTerminal 等待超时，视频仍未到达终态。
	ErrVideoNotTerminal = errors.New("video did not reach a terminal status")
	// ErrScriptNotFound 本地历史中没有该脚本。
	ErrScriptNotFound = errors.New("script not found in history")
	// ErrArchiveDisabled 未配置媒体归档。
	ErrArchiveDisabled = errors.New("media archive is not configured")
)

func IsTransportFailure(err error) bool {
	return err != nil && infraerrors.Reason(err) == ReasonStudioTransport
}

func IsServiceError(err error) bool {
	return err != nil && infraerrors.Reason(err) == ReasonStudioService
}

func IsContractViolation(err error) bool {
	return err != nil && infraerrors.Reason(err) == ReasonStudioContract
}

// StatusCode 返回 studio 响应的 HTTP 状态码；只有服务端错误才有意义，其余返回 0。
func StatusCode(err error) int {
	if !IsServiceError(err) {
		return 0
	}
	return infraerrors.Code(err)
}

// IsCanceled reports whether err stems from the caller's context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
