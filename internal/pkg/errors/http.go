package errors

import "net/http"

// ToHTTP 把 error 映射为 HTTP 状态码与可序列化的 Status。
// nil 视为 200；不在 100..599 范围内的 code 按 500 处理。
func ToHTTP(err error) (int, Status) {
	if err == nil {
		return http.StatusOK, Status{Code: int32(http.StatusOK)}
	}

	appErr := FromError(err)
	out := Status{Code: appErr.Code, Reason: appErr.Reason, Message: appErr.Message}
	if len(appErr.Metadata) > 0 {
		out.Metadata = make(map[string]string, len(appErr.Metadata))
		for k, v := range appErr.Metadata {
			out.Metadata[k] = v
		}
	}

	status := int(appErr.Code)
	if status < http.StatusContinue || status > 599 {
		status = http.StatusInternalServerError
	}
	return status, out
}
