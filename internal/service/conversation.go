package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/qw31415/claude-vision-api/internal/domain"
	"github.com/qw31415/claude-vision-api/internal/imageval"
)

// BuildContent turns request text and images into message content.
//
// Outside multimodal mode, or without images, the content is plain text and
// the text must be non-empty. In multimodal mode a text block leads only when
// text is non-empty, followed by the images in request order. The first image
// that fails validation aborts the build.
func BuildContent(text string, images []string, multimodal bool) (domain.Content, error) {
	if !multimodal || len(images) == 0 {
		if text == "" {
			return domain.Content{}, fmt.Errorf("%w: Either message or images must be provided", domain.ErrBadRequest)
		}
		return domain.PlainText(text), nil
	}

	blocks := make([]domain.ContentBlock, 0, len(images)+1)
	if text != "" {
		blocks = append(blocks, domain.TextBlock(text))
	}
	for _, raw := range images {
		img, err := imageval.Validate(raw)
		if err != nil {
			return domain.Content{}, err
		}
		blocks = append(blocks, img.Block())
	}
	return domain.Blocks(blocks...), nil
}

// prepareConversation stores the user turn and returns the window to send
// upstream. The session is created first when absent, and the window is read
// back from the store so it includes the message just written.
func (s *Service) prepareConversation(ctx context.Context, sessionID string, content domain.Content) ([]domain.Message, error) {
	_, created, err := s.sessions.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if created {
		s.metrics.SessionCreated()
		s.logger.Debug("session created", zap.String("session_id", sessionID))
	}

	if err := s.appendMessage(ctx, sessionID, domain.Message{
		Role:    domain.RoleUser,
		Content: content,
	}); err != nil {
		return nil, err
	}

	return s.sessions.History(ctx, sessionID, s.window)
}

// persistReply appends the assistant reply to the session.
func (s *Service) persistReply(ctx context.Context, sessionID, text string) error {
	return s.appendMessage(ctx, sessionID, domain.Message{
		Role:    domain.RoleAssistant,
		Content: domain.PlainText(text),
	})
}

// appendMessage writes to a session this request already created. A missing
// session here is an internal failure and is not reported as not found.
func (s *Service) appendMessage(ctx context.Context, sessionID string, msg domain.Message) error {
	_, err := s.sessions.AddMessage(ctx, sessionID, msg)
	if errors.Is(err, domain.ErrSessionNotFound) {
		s.logger.Error("session vanished mid-request", zap.String("session_id", sessionID))
		return fmt.Errorf("session %q disappeared before the message was stored", sessionID)
	}
	return err
}
