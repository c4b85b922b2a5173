package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/qw31415/claude-vision-api/internal/adapter/llm"
	"github.com/qw31415/claude-vision-api/internal/domain"
	"github.com/qw31415/claude-vision-api/internal/imageval"
	"github.com/qw31415/claude-vision-api/internal/metrics"
)

// DefaultImagePrompt is used when an image upload carries no prompt.
const DefaultImagePrompt = "What do you see in this image? Please describe it in detail."

var errEmptyReply = errors.New("upstream reply has no content")

// Chat runs one non-streaming turn. Images are only used when multimodal is set.
func (s *Service) Chat(ctx context.Context, req domain.ChatRequest, multimodal bool) (*domain.ChatResponse, error) {
	content, err := BuildContent(req.Message, req.Images, multimodal)
	if err != nil {
		return nil, err
	}

	sessionID := s.sessionID(req.SessionID)
	opts := s.defaults.Resolve(llm.Overrides{
		Model:        req.Model,
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
		SystemPrompt: req.SystemPrompt,
	}, false)

	resp, err := s.complete(ctx, metrics.KindChat, sessionID, content, opts)
	if err != nil {
		return nil, err
	}

	return &domain.ChatResponse{
		ID:        resp.ID,
		SessionID: sessionID,
		Message:   resp.Text(),
		Model:     resp.Model,
		Usage:     resp.Usage,
		Timestamp: s.timestamp(),
	}, nil
}

// AnalyzeImage runs one vision turn over a single image.
func (s *Service) AnalyzeImage(ctx context.Context, req domain.ImageRequest) (*domain.ImageResponse, error) {
	if req.Image == "" {
		return nil, fmt.Errorf("%w: Image data is required", domain.ErrBadRequest)
	}
	img, err := imageval.Validate(req.Image)
	if err != nil {
		return nil, err
	}

	prompt := req.Prompt
	if prompt == "" {
		prompt = DefaultImagePrompt
	}
	content := domain.Blocks(domain.TextBlock(prompt), img.Block())

	sessionID := s.sessionID(req.SessionID)
	opts := s.defaults.Resolve(llm.Overrides{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}, true)

	resp, err := s.complete(ctx, metrics.KindImage, sessionID, content, opts)
	if err != nil {
		return nil, err
	}

	return &domain.ImageResponse{
		ID:        resp.ID,
		SessionID: sessionID,
		Analysis:  resp.Text(),
		ImageInfo: domain.ImageInfo{
			MediaType: img.MediaType,
			Size:      img.Size,
			Format:    img.Format(),
		},
		Model:     resp.Model,
		Usage:     resp.Usage,
		Timestamp: s.timestamp(),
	}, nil
}

// complete stores the user turn, calls upstream and stores the reply.
func (s *Service) complete(ctx context.Context, kind, sessionID string, content domain.Content, opts llm.Options) (*llm.MessageResponse, error) {
	window, err := s.prepareConversation(ctx, sessionID, content)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.llmClient.CreateMessage(ctx, window, opts)
	if err == nil && len(resp.Content) == 0 {
		err = errEmptyReply
	}
	s.metrics.ObserveUpstream(kind, time.Since(start), err)
	if err != nil {
		s.logger.Error("upstream call failed",
			zap.String("session_id", sessionID),
			zap.String("model", opts.Model),
			zap.Error(err))
		return nil, err
	}
	s.metrics.ObserveUsage(resp.Usage)

	if err := s.persistReply(ctx, sessionID, resp.Text()); err != nil {
		return nil, err
	}
	return resp, nil
}
