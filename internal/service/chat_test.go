package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qw31415/claude-vision-api/internal/adapter/llm"
	"github.com/qw31415/claude-vision-api/internal/domain"
	"github.com/qw31415/claude-vision-api/internal/metrics"
)

func TestChatRoundTrip(t *testing.T) {
	client := newStubClient()
	svc, _ := newTestService(t, client)
	ctx := context.Background()

	resp, err := svc.Chat(ctx, domain.ChatRequest{Message: "hello"}, false)
	require.NoError(t, err)
	assert.Equal(t, "generated-id", resp.SessionID)
	assert.Equal(t, "msg_1", resp.ID)
	assert.Equal(t, "hi there", resp.Message)
	assert.Equal(t, "claude-test", resp.Model)
	assert.Equal(t, "2025-03-01T10:00:00.000Z", resp.Timestamp)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 3, resp.Usage.InputTokens)

	history, err := svc.History(ctx, resp.SessionID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, "hello", history[0].Content.Text)
	assert.Equal(t, domain.RoleAssistant, history[1].Role)
	assert.Equal(t, "hi there", history[1].Content.Text)

	_, err = svc.Chat(ctx, domain.ChatRequest{Message: "again", SessionID: resp.SessionID}, false)
	require.NoError(t, err)
	require.Equal(t, 2, client.callCount())
	assert.Len(t, client.calls[1], 3)
}

func TestChatResolvesOptions(t *testing.T) {
	client := newStubClient()
	svc, _ := newTestService(t, client)

	maxTokens := 128
	temperature := 0.0
	_, err := svc.Chat(context.Background(), domain.ChatRequest{
		Message:      "hello",
		SessionID:    "s1",
		Model:        "claude-custom",
		MaxTokens:    &maxTokens,
		Temperature:  &temperature,
		SystemPrompt: "be brief",
	}, false)
	require.NoError(t, err)

	require.Len(t, client.opts, 1)
	assert.Equal(t, llm.Options{
		Model:        "claude-custom",
		MaxTokens:    128,
		Temperature:  0,
		SystemPrompt: "be brief",
	}, client.opts[0])
}

func TestChatMultimodal(t *testing.T) {
	client := newStubClient()
	svc, _ := newTestService(t, client)

	_, err := svc.Chat(context.Background(), domain.ChatRequest{Message: "what is this", Images: []string{pngURI}, SessionID: "s1"}, true)
	require.NoError(t, err)

	sent := client.calls[0]
	require.Len(t, sent, 1)
	assert.Equal(t, domain.ContentBlocks, sent[0].Content.Kind)
	assert.Len(t, sent[0].Content.Blocks, 2)
}

func TestChatValidationHappensBeforeUpstream(t *testing.T) {
	client := newStubClient()
	svc, store := newTestService(t, client)
	ctx := context.Background()

	_, err := svc.Chat(ctx, domain.ChatRequest{SessionID: "s1"}, false)
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	_, err = svc.Chat(ctx, domain.ChatRequest{Message: "x", Images: []string{"bad"}, SessionID: "s1"}, true)
	assert.ErrorIs(t, err, domain.ErrInvalidImage)

	assert.Equal(t, 0, client.callCount())
	session, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestChatUpstreamError(t *testing.T) {
	client := newStubClient()
	client.err = &domain.UpstreamError{StatusCode: 529, Body: `{"type":"error"}`}
	m := metrics.New()
	svc, _ := newTestService(t, client, WithMetrics(m))
	ctx := context.Background()

	_, err := svc.Chat(ctx, domain.ChatRequest{Message: "hello", SessionID: "s1"}, false)
	var upstreamErr *domain.UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, 529, upstreamErr.StatusCode)

	history, err := svc.History(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Len(t, history, 1, "user turn is kept even when upstream fails")
}

func TestChatEmptyReply(t *testing.T) {
	client := newStubClient()
	client.reply = &llm.MessageResponse{ID: "msg_2", Model: "m"}
	svc, _ := newTestService(t, client)

	_, err := svc.Chat(context.Background(), domain.ChatRequest{Message: "hello"}, false)
	assert.ErrorIs(t, err, errEmptyReply)
}

func TestAnalyzeImage(t *testing.T) {
	client := newStubClient()
	svc, _ := newTestService(t, client)
	ctx := context.Background()

	resp, err := svc.AnalyzeImage(ctx, domain.ImageRequest{Image: pngURI, SessionID: "img"})
	require.NoError(t, err)
	assert.Equal(t, "img", resp.SessionID)
	assert.Equal(t, "hi there", resp.Analysis)
	assert.Equal(t, domain.ImageInfo{MediaType: "image/png", Size: 9, Format: "png"}, resp.ImageInfo)

	sent := client.calls[0]
	require.Len(t, sent, 1)
	require.Len(t, sent[0].Content.Blocks, 2)
	assert.Equal(t, DefaultImagePrompt, sent[0].Content.Blocks[0].Text)
	assert.Equal(t, llm.DefaultVisionModel, client.opts[0].Model)
	assert.Equal(t, llm.DefaultMaxTokens, client.opts[0].MaxTokens)
	assert.InDelta(t, llm.DefaultTemperature, client.opts[0].Temperature, 1e-9)
}

func TestAnalyzeImageValidation(t *testing.T) {
	client := newStubClient()
	svc, _ := newTestService(t, client)
	ctx := context.Background()

	_, err := svc.AnalyzeImage(ctx, domain.ImageRequest{})
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	_, err = svc.AnalyzeImage(ctx, domain.ImageRequest{Image: "data:text/plain;base64,AA"})
	assert.ErrorIs(t, err, domain.ErrInvalidImage)

	assert.Equal(t, 0, client.callCount())
}

func TestChatWithMockClient(t *testing.T) {
	svc, _ := newTestService(t, llm.NewMockClient())

	resp, err := svc.Chat(context.Background(), domain.ChatRequest{Message: "ping"}, false)
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "ping")
	assert.Equal(t, llm.DefaultModel, resp.Model)
}

func TestChatSessionClearedMidRequest(t *testing.T) {
	client := newStubClient()
	svc, store := newTestService(t, client)
	ctx := context.Background()
	client.onCall = func() { require.NoError(t, store.Clear(ctx, "s1")) }

	_, err := svc.Chat(ctx, domain.ChatRequest{Message: "hello", SessionID: "s1"}, false)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrSessionNotFound))
	assert.Contains(t, err.Error(), `session "s1"`)
}
