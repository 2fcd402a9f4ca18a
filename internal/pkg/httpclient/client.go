// Package httpclient is the request dispatch facility shared by every studio call.
//
// It owns base endpoint resolution, the redirect policy and per-request tracing.
// It never retries, never caches and adds no timeout unless one is configured.
package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/WPeytz/MinuteMind/internal/pkg/logger"
	"github.com/WPeytz/MinuteMind/internal/pkg/proxyurl"
	"github.com/WPeytz/MinuteMind/internal/util/logredact"
	"github.com/google/uuid"
	"github.com/imroc/req/v3"
	"go.uber.org/zap"
)

const (
	// DefaultMaxRedirects bounds how many redirects a single call follows.
	DefaultMaxRedirects = 5
	DefaultUserAgent    = "minutemind-client/1.0"
	RequestIDHeader     = "X-Request-ID"
)

// Options configures New. BaseURL must already be absolute (see ResolveBaseURL).
type Options struct {
	BaseURL      string
	Timeout      time.Duration // 0 disables the client-side timeout
	MaxRedirects int
	ProxyURL     string
	UserAgent    string
}

// Client dispatches single-attempt requests relative to a fixed base URL.
// It is safe for concurrent use; nothing is mutated after New returns.
type Client struct {
	raw     *req.Client
	baseURL string
}

// New builds a Client from opts.
func New(opts Options) (*Client, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if !hasHTTPScheme(base) {
		return nil, fmt.Errorf("base url must be absolute, got %q", opts.BaseURL)
	}
	if opts.MaxRedirects < 0 {
		return nil, fmt.Errorf("max redirects must not be negative")
	}
	proxy, _, err := proxyurl.Parse(opts.ProxyURL)
	if err != nil {
		return nil, err
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	raw := req.C().
		SetUserAgent(userAgent).
		SetCommonHeader("Accept", "application/json").
		SetTimeout(opts.Timeout).
		SetRedirectPolicy(redirectPolicy(opts.MaxRedirects)).
		OnBeforeRequest(stampRequestID).
		OnAfterResponse(traceResponse)
	if proxy != "" {
		raw.SetProxyURL(proxy)
	}

	return &Client{raw: raw, baseURL: base}, nil
}

// redirectPolicy follows up to limit redirects; the (limit+1)th fails the call.
// req.MaxRedirectPolicy counts the original request, so it would stop one short.
func redirectPolicy(limit int) req.RedirectPolicy {
	if limit == 0 {
		return req.NoRedirectPolicy()
	}
	return func(_ *http.Request, via []*http.Request) error {
		if len(via) > limit {
			return fmt.Errorf("stopped after %d redirects", limit)
		}
		return nil
	}
}

func stampRequestID(_ *req.Client, r *req.Request) error {
	if r.Headers.Get(RequestIDHeader) == "" {
		r.SetHeader(RequestIDHeader, uuid.NewString())
	}
	return nil
}

func traceResponse(_ *req.Client, resp *req.Response) error {
	if resp == nil || resp.Err != nil || resp.Response == nil || resp.Request == nil {
		return nil
	}
	logger.With("httpclient").Debug("studio.response",
		zap.String("method", resp.Request.Method),
		zap.String("url", logredact.RedactURL(resp.Request.RawURL)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", resp.TotalTime()),
		zap.String("request_id", resp.Request.Headers.Get(RequestIDHeader)),
	)
	return nil
}

// BaseURL returns the normalized absolute base.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Endpoint resolves a fixed sub-path against the base.
func (c *Client) Endpoint(path string) string {
	return JoinPath(c.baseURL, path)
}

// Raw exposes the underlying req client, read-only by convention.
func (c *Client) Raw() *req.Client {
	return c.raw
}

// Send performs one round trip. jsonBody, when non-nil, is sent verbatim as application/json.
// Non-2xx statuses are not errors here; callers classify them.
func (c *Client) Send(ctx context.Context, method, path string, jsonBody []byte) (*req.Response, error) {
	r := c.raw.R().SetContext(ctx)
	if jsonBody != nil {
		r.SetBodyJsonBytes(jsonBody)
	}
	return r.Send(method, c.Endpoint(path))
}
