package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string, maxRedirects int) *Client {
	t.Helper()
	c, err := New(Options{BaseURL: baseURL, MaxRedirects: maxRedirects})
	require.NoError(t, err)
	return c
}

// redirectChain 让 /hop/N 依次跳转到 /hop/N-1，/hop/0 返回 200。
func redirectChain(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/hop/", func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(r.URL.Path[len("/api/hop/"):])
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if n == 0 {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"ok":true}`)
			return
		}
		http.Redirect(w, r, fmt.Sprintf("/api/hop/%d", n-1), http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_RejectsRelativeBase(t *testing.T) {
	_, err := New(Options{BaseURL: "/api"})
	require.Error(t, err)
}

func TestNew_RejectsInvalidProxy(t *testing.T) {
	_, err := New(Options{BaseURL: "http://localhost", ProxyURL: "ftp://proxy.local:21"})
	require.ErrorContains(t, err, "unsupported proxy scheme")
}

func TestNew_NoTimeoutByDefault(t *testing.T) {
	c := newTestClient(t, "http://localhost:8000/api", DefaultMaxRedirects)
	require.Zero(t, c.Raw().GetClient().Timeout)
}

func TestSend_FollowsUpToFiveRedirects(t *testing.T) {
	srv := redirectChain(t)
	c := newTestClient(t, srv.URL+"/api", DefaultMaxRedirects)

	resp, err := c.Send(context.Background(), http.MethodGet, "/hop/5", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"ok":true}`, resp.String())
}

func TestSend_SixthRedirectFails(t *testing.T) {
	srv := redirectChain(t)
	c := newTestClient(t, srv.URL+"/api", DefaultMaxRedirects)

	_, err := c.Send(context.Background(), http.MethodGet, "/hop/6", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "stopped after 5 redirects")
}

func TestSend_ZeroRedirectsReturnsRedirectResponse(t *testing.T) {
	srv := redirectChain(t)
	c := newTestClient(t, srv.URL+"/api", 0)

	resp, err := c.Send(context.Background(), http.MethodGet, "/hop/1", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestSend_StampsHeadersAndJSONBody(t *testing.T) {
	var (
		calls    int32
		captured *http.Request
		body     []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		captured = r.Clone(context.Background())
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL+"/api", DefaultMaxRedirects)
	resp, err := c.Send(context.Background(), http.MethodPost, "/scripts/generate", []byte(`{"topic":"volcanoes"}`))
	require.NoError(t, err, "non-2xx is not a transport error")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls), "no retry")

	require.NotNil(t, captured)
	require.Equal(t, "/api/scripts/generate", captured.URL.Path)
	require.Equal(t, http.MethodPost, captured.Method)
	require.Equal(t, "application/json", captured.Header.Get("Accept"))
	require.Contains(t, captured.Header.Get("Content-Type"), "application/json")
	require.Equal(t, DefaultUserAgent, captured.Header.Get("User-Agent"))
	require.NotEmpty(t, captured.Header.Get(RequestIDHeader))
	require.Equal(t, `{"topic":"volcanoes"}`, string(body))
}

func TestSend_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL, DefaultMaxRedirects)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Send(ctx, http.MethodGet, "/videos/", nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestEndpoint(t *testing.T) {
	c := newTestClient(t, "http://localhost:8000/api", DefaultMaxRedirects)
	require.Equal(t, "http://localhost:8000/api", c.BaseURL())
	require.Equal(t, "http://localhost:8000/api/videos/", c.Endpoint("/videos/"))
}
