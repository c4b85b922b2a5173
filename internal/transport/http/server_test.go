package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qw31415/claude-vision-api/internal/adapter/llm"
	"github.com/qw31415/claude-vision-api/internal/domain"
	"github.com/qw31415/claude-vision-api/internal/metrics"
	"github.com/qw31415/claude-vision-api/internal/policy"
	"github.com/qw31415/claude-vision-api/internal/repository"
	"github.com/qw31415/claude-vision-api/internal/service"
)

// countingClient counts upstream calls made through the mock client.
type countingClient struct {
	*llm.MockClient
	calls atomic.Int32
}

func (c *countingClient) CreateMessage(ctx context.Context, msgs []domain.Message, opts llm.Options) (*llm.MessageResponse, error) {
	c.calls.Add(1)
	return c.MockClient.CreateMessage(ctx, msgs, opts)
}

func (c *countingClient) CreateMessageStream(ctx context.Context, msgs []domain.Message, opts llm.Options) (io.ReadCloser, error) {
	c.calls.Add(1)
	return c.MockClient.CreateMessageStream(ctx, msgs, opts)
}

func newTestServer(t *testing.T, allowedKeys ...string) (*echo.Echo, *countingClient) {
	t.Helper()
	kv, err := repository.NewSQLiteKV(":memory:", 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	client := &countingClient{MockClient: llm.NewMockClient()}
	svc := service.New(repository.NewSessionStore(kv, nil), client, llm.DefaultDefaults())

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy, allowedKeys)
	require.NoError(t, err)

	return NewServer(svc, engine, metrics.New(), zap.NewNop()), client
}

func do(e *echo.Echo, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) domain.ErrorResponse {
	t.Helper()
	var resp domain.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func assertCORS(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, Authorization, X-API-Key, X-Session-ID", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
}

func TestAuthMissingKey(t *testing.T) {
	e, client := newTestServer(t, "secret")

	for _, path := range []string{"/api/chat", "/api/chat/stream", "/api/chat/multimodal", "/api/image/upload"} {
		rec := do(e, http.MethodPost, path, `{"message":"hello","image":"x"}`, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
		resp := decode(t, rec)
		assert.Equal(t, "Unauthorized", resp.Error)
		assert.Equal(t, "Missing API key. Please provide X-API-Key header or Authorization Bearer token.", resp.Message)
		assertCORS(t, rec)
	}
	assert.Equal(t, int32(0), client.calls.Load())
}

func TestAuthMissingKeyInOpenMode(t *testing.T) {
	e, client := newTestServer(t)

	rec := do(e, http.MethodPost, "/api/chat", `{"message":"hello"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, int32(0), client.calls.Load())

	rec = do(e, http.MethodPost, "/api/chat", `{"message":"hello"}`, map[string]string{"X-API-Key": "anything"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthInvalidAndValidKeys(t *testing.T) {
	e, _ := newTestServer(t, "secret", "other")

	rec := do(e, http.MethodPost, "/api/chat", `{"message":"hello"}`, map[string]string{"X-API-Key": "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid API key.", decode(t, rec).Message)

	rec = do(e, http.MethodPost, "/api/chat", `{"message":"hello"}`, map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodPost, "/api/chat", `{"message":"hello"}`, map[string]string{"Authorization": "Bearer other"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assertCORS(t, rec)
}

func TestHealthIsPublic(t *testing.T) {
	e, _ := newTestServer(t, "secret")

	rec := do(e, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assertCORS(t, rec)
}

func TestPreflight(t *testing.T) {
	e, _ := newTestServer(t, "secret")

	for _, path := range []string{"/api/chat", "/anything/else"} {
		rec := do(e, http.MethodOptions, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assertCORS(t, rec)
	}
}

func TestNotFound(t *testing.T) {
	e, _ := newTestServer(t, "secret")
	key := map[string]string{"X-API-Key": "secret"}

	rec := do(e, http.MethodGet, "/api/unknown", "", key)
	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "Not Found", resp.Error)
	assert.Contains(t, resp.Message, "Available endpoints")
	assertCORS(t, rec)

	rec = do(e, http.MethodGet, "/api/chat", "", key)
	require.Equal(t, http.StatusNotFound, rec.Code, "wrong method answers 404")
	assert.Equal(t, "Not Found", decode(t, rec).Error)

	rec = do(e, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStreamThroughServer(t *testing.T) {
	e, client := newTestServer(t, "secret")

	rec := do(e, http.MethodPost, "/api/chat/stream", `{"message":"hi","sessionId":"s1"}`, map[string]string{"X-API-Key": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))
	assertCORS(t, rec)
	assert.Contains(t, rec.Body.String(), `"type":"done"`)
	assert.Equal(t, int32(1), client.calls.Load())

	rec = do(e, http.MethodGet, "/api/sessions/s1", "", map[string]string{"X-API-Key": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	var session domain.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Len(t, session.Messages, 2)
}

func TestMetricsEndpoint(t *testing.T) {
	e, _ := newTestServer(t, "secret")

	do(e, http.MethodPost, "/api/chat", `{"message":"hello"}`, nil)

	rec := do(e, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `claude_vision_auth_denied_total{reason="missing_key"} 1`)
}
