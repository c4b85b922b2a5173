package service

import (
	"context"
	"fmt"

	"github.com/qw31415/claude-vision-api/internal/domain"
)

// GetSession returns the stored conversation, newest maxMessages at most.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.SessionResponse, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session %q: %w", sessionID, domain.ErrSessionNotFound)
	}
	return &domain.SessionResponse{
		SessionID:    session.ID,
		Messages:     session.Messages,
		CreatedAt:    session.CreatedAt.UnixMilli(),
		LastActivity: session.LastActivity.UnixMilli(),
	}, nil
}

// History returns the last limit messages of a session.
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = s.window
	}
	return s.sessions.History(ctx, sessionID, limit)
}

// ClearSession deletes a session. Clearing an unknown id is not an error.
func (s *Service) ClearSession(ctx context.Context, sessionID string) error {
	return s.sessions.Clear(ctx, sessionID)
}
