package repository

import (
	"context"
	"fmt"

	"github.com/WPeytz/MinuteMind/internal/pkg/httpclient"
	"github.com/WPeytz/MinuteMind/internal/service"
	"github.com/WPeytz/MinuteMind/internal/util/logredact"
)

// MediaDownloadError 表示媒体地址返回了非 2xx 状态。
type MediaDownloadError struct {
	URL        string
	StatusCode int
}

func (e *MediaDownloadError) Error() string {
	return fmt.Sprintf("download %s: upstream returned %d", logredact.RedactURL(e.URL), e.StatusCode)
}

type mediaFetcher struct {
	http *httpclient.Client
}

// NewMediaFetcher 复用 studio 的 httpclient（同样的代理与重定向策略）下载媒体。
func NewMediaFetcher(client *httpclient.Client) service.MediaFetcher {
	return &mediaFetcher{http: client}
}

func (f *mediaFetcher) Fetch(ctx context.Context, rawURL string) (*service.MediaObject, error) {
	resp, err := f.http.Raw().R().
		SetContext(ctx).
		DisableAutoReadResponse().
		Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", logredact.RedactURL(rawURL), err)
	}
	if !resp.IsSuccessState() {
		_ = resp.Body.Close()
		return nil, &MediaDownloadError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &service.MediaObject{
		Body:          resp.Body,
		ContentType:   contentType,
		ContentLength: resp.ContentLength,
	}, nil
}
