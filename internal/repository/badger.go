package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// BadgerConfig holds configuration for the badger backend.
type BadgerConfig struct {
	// Path is the database directory. Empty selects in-memory mode.
	Path string

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// GCInterval is how often value log GC runs for on-disk databases.
	// Zero disables GC.
	GCInterval time.Duration

	// GCDiscardRatio is the garbage ratio that triggers a value log rewrite.
	GCDiscardRatio float64
}

// DefaultBadgerConfig returns production defaults for an on-disk database.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// BadgerKV implements KV on badger; expiry uses badger's native entry TTL.
type BadgerKV struct {
	db     *badger.DB
	logger *zap.Logger
	stopCh chan struct{}
	doneCh chan struct{}
}

// badgerLogger adapts zap to badger's Logger interface.
type badgerLogger struct {
	sugar *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{})   { l.sugar.Errorf(format, args...) }
func (l *badgerLogger) Warningf(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }
func (l *badgerLogger) Infof(format string, args ...interface{})    { l.sugar.Debugf(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...interface{})   { l.sugar.Debugf(format, args...) }

// NewBadgerKV opens a badger database with the given configuration.
func NewBadgerKV(cfg BadgerConfig, logger *zap.Logger) (*BadgerKV, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{sugar: logger.Named("badger").Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	kv := &BadgerKV{db: db, logger: logger}
	if cfg.GCInterval > 0 && cfg.Path != "" {
		kv.stopCh = make(chan struct{})
		kv.doneCh = make(chan struct{})
		go kv.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return kv, nil
}

// Get implements KV.
func (k *BadgerKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := k.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger get %s: %w", key, err)
	}
	return value, true, nil
}

// Put implements KV.
func (k *BadgerKV) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := k.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("badger put %s: %w", key, err)
	}
	return nil
}

// Delete implements KV.
func (k *BadgerKV) Delete(ctx context.Context, key string) error {
	err := k.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("badger delete %s: %w", key, err)
	}
	return nil
}

// Close stops the GC runner and closes the database.
func (k *BadgerKV) Close() error {
	if k.stopCh != nil {
		close(k.stopCh)
		<-k.doneCh
		k.stopCh = nil
	}
	return k.db.Close()
}

func (k *BadgerKV) runGC(interval time.Duration, ratio float64) {
	defer close(k.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-k.stopCh:
			return
		case <-ticker.C:
			// ErrNoRewrite means nothing needed collecting.
			if err := k.db.RunValueLogGC(ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				k.logger.Warn("badger value log GC failed", zap.Error(err))
			}
		}
	}
}
