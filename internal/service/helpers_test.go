package service

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/qw31415/claude-vision-api/internal/adapter/llm"
	"github.com/qw31415/claude-vision-api/internal/domain"
	"github.com/qw31415/claude-vision-api/internal/repository"
)

const pngURI = "data:image/png;base64,iVBORw0KGgo="

// stubClient records upstream calls and replays canned results.
type stubClient struct {
	mu     sync.Mutex
	calls  [][]domain.Message
	opts   []llm.Options
	reply  *llm.MessageResponse
	stream string
	err    error
	onCall func()
}

func newStubClient() *stubClient {
	return &stubClient{
		reply: &llm.MessageResponse{
			ID:      "msg_1",
			Model:   "claude-test",
			Content: []llm.ResponseContent{{Type: "text", Text: "hi there"}},
			Usage:   &domain.Usage{InputTokens: 3, OutputTokens: 2},
		},
	}
}

func (c *stubClient) record(messages []domain.Message, opts llm.Options) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, append([]domain.Message(nil), messages...))
	c.opts = append(c.opts, opts)
	if c.onCall != nil {
		c.onCall()
	}
}

func (c *stubClient) CreateMessage(ctx context.Context, messages []domain.Message, opts llm.Options) (*llm.MessageResponse, error) {
	c.record(messages, opts)
	if c.err != nil {
		return nil, c.err
	}
	return c.reply, nil
}

func (c *stubClient) CreateMessageStream(ctx context.Context, messages []domain.Message, opts llm.Options) (io.ReadCloser, error) {
	c.record(messages, opts)
	if c.err != nil {
		return nil, c.err
	}
	return io.NopCloser(strings.NewReader(c.stream)), nil
}

func (c *stubClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func newTestStore(t *testing.T) *repository.SessionStore {
	t.Helper()
	kv, err := repository.NewSQLiteKV(":memory:", 0, nil)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })
	return repository.NewSessionStore(kv, nil)
}

func newTestService(t *testing.T, client llm.LLMClient, opts ...Option) (*Service, *repository.SessionStore) {
	t.Helper()
	store := newTestStore(t)
	fixed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	opts = append([]Option{
		WithClock(func() time.Time { return fixed }),
		WithIDGenerator(func() string { return "generated-id" }),
	}, opts...)
	return New(store, client, llm.DefaultDefaults(), opts...), store
}
