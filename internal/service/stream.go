package service

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/qw31415/claude-vision-api/internal/adapter/llm"
	"github.com/qw31415/claude-vision-api/internal/domain"
	"github.com/qw31415/claude-vision-api/internal/metrics"
	"github.com/qw31415/claude-vision-api/internal/relay"
)

// Stream is an opened upstream event stream waiting to be relayed.
type Stream struct {
	SessionID string
	Model     string
	Body      io.ReadCloser
}

// OpenStream validates the request, stores the user turn and opens the
// upstream stream. Every failure here happens before any frame is written,
// so callers can still answer with a plain JSON error. Images are accepted
// on the stream endpoint without a separate multimodal flag.
func (s *Service) OpenStream(ctx context.Context, req domain.ChatRequest) (*Stream, error) {
	content, err := BuildContent(req.Message, req.Images, true)
	if err != nil {
		return nil, err
	}

	sessionID := s.sessionID(req.SessionID)
	window, err := s.prepareConversation(ctx, sessionID, content)
	if err != nil {
		return nil, err
	}

	opts := s.defaults.Resolve(llm.Overrides{
		Model:        req.Model,
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
		SystemPrompt: req.SystemPrompt,
	}, false)

	start := time.Now()
	body, err := s.llmClient.CreateMessageStream(ctx, window, opts)
	s.metrics.ObserveUpstream(metrics.KindStream, time.Since(start), err)
	if err != nil {
		s.logger.Error("failed to open upstream stream",
			zap.String("session_id", sessionID),
			zap.String("model", opts.Model),
			zap.Error(err))
		return nil, err
	}

	return &Stream{SessionID: sessionID, Model: opts.Model, Body: body}, nil
}

// Relay forwards an opened stream to sink until it ends. The body is always
// closed. The assistant reply is stored only when the stream ends cleanly.
func (s *Service) Relay(ctx context.Context, stream *Stream, sink relay.Sink) error {
	r := relay.New(stream.SessionID, s.sessions,
		relay.WithObserver(s.metrics),
		relay.WithLogger(s.logger),
	)
	return r.Run(ctx, stream.Body, sink)
}
