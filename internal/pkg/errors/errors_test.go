package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewf_FormatsMessage(t *testing.T) {
	err := Newf(http.StatusBadGateway, "UPSTREAM", "status %d", 503)
	require.Equal(t, int32(http.StatusBadGateway), err.Code)
	require.Equal(t, "UPSTREAM", err.Reason)
	require.Equal(t, "status 503", err.Message)
}

func TestFromError_WrapsForeignError(t *testing.T) {
	plain := stderrors.New("boom")
	appErr := FromError(plain)
	require.Equal(t, int32(UnknownCode), appErr.Code)
	require.ErrorIs(t, appErr, plain)
	require.Nil(t, FromError(nil))
}

func TestFromError_FindsWrappedApplicationError(t *testing.T) {
	base := New(http.StatusNotFound, "NOT_FOUND", "missing")
	wrapped := fmt.Errorf("lookup: %w", base)
	require.Same(t, base, FromError(wrapped))
	require.Equal(t, http.StatusNotFound, Code(wrapped))
	require.Equal(t, "NOT_FOUND", Reason(wrapped))
	require.Equal(t, "missing", Message(wrapped))
}

func TestApplicationError_IsMatchesCodeAndReason(t *testing.T) {
	sentinel := New(http.StatusBadRequest, "INVALID", "")
	err := Newf(http.StatusBadRequest, "INVALID", "topic is required")
	require.ErrorIs(t, err, sentinel)
	require.NotErrorIs(t, err, New(http.StatusBadRequest, "OTHER", ""))
}

func TestWithCause_KeepsCauseReachable(t *testing.T) {
	err := New(http.StatusBadGateway, "TRANSPORT", "request failed").WithCause(context.Canceled)
	require.ErrorIs(t, err, context.Canceled)
	require.Contains(t, err.Error(), "context canceled")
}

func TestWithMetadata_DoesNotMutateOriginal(t *testing.T) {
	base := New(http.StatusBadGateway, "SERVICE", "bad").WithMetadata(map[string]string{"a": "1"})
	derived := base.WithMetadata(map[string]string{"b": "2"})
	require.Equal(t, map[string]string{"a": "1"}, base.Metadata)
	require.Equal(t, map[string]string{"a": "1", "b": "2"}, derived.Metadata)
}

func TestToHTTP(t *testing.T) {
	code, body := ToHTTP(nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, int32(http.StatusOK), body.Code)

	code, body = ToHTTP(New(http.StatusUnprocessableEntity, "INVALID", "bad scenes").WithMetadata(map[string]string{"field": "scenes"}))
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.Equal(t, "INVALID", body.Reason)
	require.Equal(t, "scenes", body.Metadata["field"])

	code, _ = ToHTTP(New(0, "WEIRD", ""))
	require.Equal(t, http.StatusInternalServerError, code)
}
