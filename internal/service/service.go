// Package service implements the conversation use cases behind the HTTP API.
package service

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qw31415/claude-vision-api/internal/adapter/llm"
	"github.com/qw31415/claude-vision-api/internal/metrics"
	"github.com/qw31415/claude-vision-api/internal/repository"
)

// DefaultHistoryWindow is how many recent messages are sent upstream.
const DefaultHistoryWindow = 10

// Service coordinates the session store and the upstream client.
type Service struct {
	sessions  *repository.SessionStore
	llmClient llm.LLMClient
	defaults  llm.Defaults
	window    int
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures a Service.
type Option func(*Service)

// WithHistoryWindow sets how many recent messages form the upstream window.
func WithHistoryWindow(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.window = n
		}
	}
}

// WithMetrics attaches the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the clock used for response timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides how session ids are generated.
func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

func New(sessions *repository.SessionStore, llmClient llm.LLMClient, defaults llm.Defaults, opts ...Option) *Service {
	s := &Service{
		sessions:  sessions,
		llmClient: llmClient,
		defaults:  defaults,
		window:    DefaultHistoryWindow,
		logger:    zap.NewNop(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// sessionID returns id, or a fresh one when the caller sent none.
func (s *Service) sessionID(id string) string {
	if id != "" {
		return id
	}
	return s.newID()
}

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func (s *Service) timestamp() string {
	return s.now().UTC().Format(isoMillis)
}
