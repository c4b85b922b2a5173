package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteKV implements KV on a single SQLite table.
// Expired rows are invisible to reads and removed by a periodic sweep.
type SQLiteKV struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
	stopCh chan struct{}
	doneCh chan struct{}
}

// SQLiteOption configures a SQLiteKV.
type SQLiteOption func(*SQLiteKV)

// WithSQLiteClock overrides the clock used for expiry.
func WithSQLiteClock(now func() time.Time) SQLiteOption {
	return func(s *SQLiteKV) { s.now = now }
}

// NewSQLiteKV opens the database at dsn and runs migrations.
// A positive sweepInterval starts a goroutine that deletes expired rows.
func NewSQLiteKV(dsn string, sweepInterval time.Duration, logger *zap.Logger, opts ...SQLiteOption) (*SQLiteKV, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &SQLiteKV{db: db, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if sweepInterval > 0 {
		s.stopCh = make(chan struct{})
		s.doneCh = make(chan struct{})
		go s.runSweeper(sweepInterval)
	}
	return s, nil
}

func (s *SQLiteKV) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_kv_expires ON kv(expires_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Get implements KV.
func (s *SQLiteKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ? AND (expires_at = 0 OR expires_at > ?)`,
		key, s.now().UnixMilli()).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite get %s: %w", key, err)
	}
	return value, true, nil
}

// Put implements KV.
func (s *SQLiteKV) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).UnixMilli()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("sqlite put %s: %w", key, err)
	}
	return nil
}

// Delete implements KV.
func (s *SQLiteKV) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite delete %s: %w", key, err)
	}
	return nil
}

// Sweep deletes expired rows and reports how many were removed.
func (s *SQLiteKV) Sweep(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM kv WHERE expires_at != 0 AND expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("sqlite sweep: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the sweeper and closes the database connection.
func (s *SQLiteKV) Close() error {
	if s.stopCh != nil {
		close(s.stopCh)
		<-s.doneCh
		s.stopCh = nil
	}
	return s.db.Close()
}

func (s *SQLiteKV) runSweeper(interval time.Duration) {
	defer close(s.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			n, err := s.Sweep(context.Background())
			if err != nil {
				s.logger.Warn("failed to sweep expired sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Debug("swept expired sessions", zap.Int64("count", n))
			}
		}
	}
}
