package clog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextAttributes(t *testing.T) {
	ctx := context.Background()
	AddAttribute(ctx, "ignored", 1)
	assert.Nil(t, GetAttributes(ctx))

	ctx = ContextWithSlog(ctx)
	AddAttributes(ctx, map[string]any{
		"task": map[string]any{"id": "01H"},
	})
	AddAttributes(ctx, map[string]any{
		"task": map[string]any{"status": "done"},
	})
	AddError(ctx, errors.New("boom"))
	AddStack(ctx, "stack")

	attrs := GetAttributes(ctx)
	assert.Equal(t, map[string]any{"id": "01H", "status": "done"}, attrs["task"])
	assert.EqualError(t, GetError(ctx), "boom")
	assert.Equal(t, "stack", GetStack(ctx))
	assert.Equal(t, 0, GetAttribute[int](ctx, "task"))
}

func TestAttributesHandler_AddsContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewAttributesHandler(slog.NewJSONHandler(&buf, nil)))

	ctx := ContextWithSlog(context.Background())
	AddAttribute(ctx, "task_id", "01H")
	logger.InfoContext(ctx, "task moved")

	assert.Contains(t, buf.String(), `"task_id":"01H"`)
	assert.Contains(t, buf.String(), `"msg":"task moved"`)
}

func TestTextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewTextHandler(&buf, WithColor(false), WithLevel(slog.LevelDebug)))

	logger.Warn("Not Found", "method", "GET", "path", "/api/tasks/x", "status", 404, ErrorAttributeKey, "task not found", "z", 1)

	out := buf.String()
	assert.Contains(t, out, `WARN GET /api/tasks/x 404 "Not Found" "task not found"`)
	assert.Contains(t, out, "    z=1\n")
	assert.NotContains(t, out, "method=")

	buf.Reset()
	quiet := slog.New(NewTextHandler(&buf, WithColor(false)))
	quiet.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestLevels(t *testing.T) {
	assert.Equal(t, LevelInfo, HTTPStatusToLevel(200))
	assert.Equal(t, LevelInfo, HTTPStatusToLevel(499))
	assert.Equal(t, LevelWarn, HTTPStatusToLevel(404))
	assert.Equal(t, LevelError, HTTPStatusToLevel(500))

	assert.Equal(t, LevelInfo, ConnectCodeToLevel(connect.CodeNotFound))
	assert.Equal(t, LevelError, ConnectCodeToLevel(connect.CodeInternal))
}

func TestSlogChiMiddleware(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(NewAttributesHandler(slog.NewJSONHandler(&buf, nil))))
	t.Cleanup(func() { slog.SetDefault(prev) })

	h := SlogChiMiddleware(WithChiFilter(func(r *http.Request) bool {
		return r.URL.Path != "/health"
	}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddAttribute(r.Context(), "task_id", "01H")
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks/01H", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"task_id":"01H"`)
	assert.Contains(t, buf.String(), `"path":"/api/tasks/01H"`)

	buf.Reset()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, buf.String())
}
