package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/qw31415/claude-vision-api/internal/domain"
)

const (
	// DefaultSessionTTL is how long an untouched session is retained.
	DefaultSessionTTL = 24 * time.Hour
	// DefaultMaxMessages caps the messages kept per session.
	DefaultMaxMessages = 50

	sessionKeyPrefix = "session:"
)

// SessionStore keeps TTL-bounded conversation history keyed by session id.
//
// There is no locking: concurrent AddMessage calls for the same id each
// read-modify-write the whole session and the last writer wins.
type SessionStore struct {
	kv          KV
	logger      *zap.Logger
	ttl         time.Duration
	maxMessages int
	now         func() time.Time
}

// SessionOption configures a SessionStore.
type SessionOption func(*SessionStore)

// WithTTL sets the retention window renewed on every read and write.
func WithTTL(ttl time.Duration) SessionOption {
	return func(s *SessionStore) { s.ttl = ttl }
}

// WithMaxMessages sets the per-session message cap.
func WithMaxMessages(n int) SessionOption {
	return func(s *SessionStore) { s.maxMessages = n }
}

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionStore) { s.now = now }
}

// NewSessionStore creates a session store over kv.
func NewSessionStore(kv KV, logger *zap.Logger, opts ...SessionOption) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SessionStore{
		kv:          kv,
		logger:      logger,
		ttl:         DefaultSessionTTL,
		maxMessages: DefaultMaxMessages,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Create initializes an empty session and persists it.
func (s *SessionStore) Create(ctx context.Context, id string) (*domain.Session, error) {
	now := s.now()
	session := &domain.Session{
		ID:           id,
		Messages:     []domain.Message{},
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.put(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Get returns the session or nil when the id is empty, unknown or expired.
// A hit refreshes lastActivity and renews the TTL.
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, nil
	}

	data, found, err := s.kv.Get(ctx, sessionKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if !found {
		return nil, nil
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		s.logger.Error("failed to parse session data", zap.String("session_id", id), zap.Error(err))
		return nil, nil
	}
	if session.Messages == nil {
		session.Messages = []domain.Message{}
	}

	if err := s.touch(ctx, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetOrCreate returns the existing session or creates it. created reports which.
func (s *SessionStore) GetOrCreate(ctx context.Context, id string) (session *domain.Session, created bool, err error) {
	session, err = s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if session != nil {
		return session, false, nil
	}
	session, err = s.Create(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return session, true, nil
}

// AddMessage appends msg, stamping it with the current time, and trims the
// session to the newest maxMessages entries.
func (s *SessionStore) AddMessage(ctx context.Context, id string, msg domain.Message) (*domain.Session, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("add message to %q: %w", id, domain.ErrSessionNotFound)
	}

	msg.Timestamp = s.now()
	session.Messages = append(session.Messages, msg)
	if over := len(session.Messages) - s.maxMessages; s.maxMessages > 0 && over > 0 {
		session.Messages = append([]domain.Message(nil), session.Messages[over:]...)
	}

	if err := s.touch(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// History returns the last limit messages, or none when the session is absent.
func (s *SessionStore) History(ctx context.Context, id string, limit int) ([]domain.Message, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil || limit <= 0 {
		return []domain.Message{}, nil
	}
	msgs := session.Messages
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// Clear deletes the session unconditionally.
func (s *SessionStore) Clear(ctx context.Context, id string) error {
	if err := s.kv.Delete(ctx, sessionKey(id)); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (s *SessionStore) touch(ctx context.Context, session *domain.Session) error {
	now := s.now()
	if now.After(session.LastActivity) {
		session.LastActivity = now
	}
	return s.put(ctx, session)
}

func (s *SessionStore) put(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.kv.Put(ctx, sessionKey(session.ID), data, s.ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
