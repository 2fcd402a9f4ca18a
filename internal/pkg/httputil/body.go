package httputil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const (
	requestBodyReadInitCap    = 512
	requestBodyReadMaxInitCap = 1 << 20
)

// ErrBodyTooLarge 请求体超过调用方给定的上限。
var ErrBodyTooLarge = errors.New("request body too large")

// ReadRequestBody 按 Content-Length 预分配缓冲读取请求体，超过 limit 字节返回 ErrBodyTooLarge。
// limit <= 0 表示不限制。
func ReadRequestBody(req *http.Request, limit int64) ([]byte, error) {
	if req == nil || req.Body == nil {
		return nil, nil
	}
	if limit > 0 && req.ContentLength > limit {
		return nil, fmt.Errorf("%w: %d > %d", ErrBodyTooLarge, req.ContentLength, limit)
	}

	capHint := requestBodyReadInitCap
	if req.ContentLength > 0 {
		switch {
		case req.ContentLength < int64(requestBodyReadInitCap):
			capHint = requestBodyReadInitCap
		case req.ContentLength > int64(requestBodyReadMaxInitCap):
			capHint = requestBodyReadMaxInitCap
		default:
			capHint = int(req.ContentLength)
		}
	}

	var src io.Reader = req.Body
	if limit > 0 {
		// 多读一个字节用于判断是否超限
		src = io.LimitReader(req.Body, limit+1)
	}
	buf := bytes.NewBuffer(make([]byte, 0, capHint))
	if _, err := io.Copy(buf, src); err != nil {
		return nil, err
	}
	if limit > 0 && int64(buf.Len()) > limit {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrBodyTooLarge, limit)
	}
	return buf.Bytes(), nil
}
