package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/qw31415/claude-vision-api/internal/adapter/llm"
	"github.com/qw31415/claude-vision-api/internal/config"
	"github.com/qw31415/claude-vision-api/internal/logging"
	"github.com/qw31415/claude-vision-api/internal/metrics"
	"github.com/qw31415/claude-vision-api/internal/policy"
	"github.com/qw31415/claude-vision-api/internal/repository"
	"github.com/qw31415/claude-vision-api/internal/service"
	transport "github.com/qw31415/claude-vision-api/internal/transport/http"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		logger, err := logging.New(cfg.LogLevel)
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// openKV opens the configured session backend.
func openKV(cfg *config.Config, logger *zap.Logger) (repository.KV, error) {
	switch cfg.SessionBackend {
	case config.BackendSQLite:
		return repository.NewSQLiteKV(cfg.DatabaseURL, sweepInterval, logger)
	default:
		return repository.NewBadgerKV(repository.DefaultBadgerConfig(cfg.SessionPath), logger)
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting claude-vision-api",
		zap.String("version", Version),
		zap.Int("port", cfg.HTTPPort),
		zap.String("session_backend", cfg.SessionBackend),
		zap.String("api_base_url", cfg.APIBaseURL))

	kv, err := openKV(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}
	defer kv.Close()

	store := repository.NewSessionStore(kv, logger,
		repository.WithTTL(cfg.SessionTTL),
		repository.WithMaxMessages(cfg.SessionMaxMessages),
	)

	llmClient := llm.NewLLMClient(cfg.ProxyMode, cfg.APIBaseURL, cfg.AnthropicAPIKey, cfg.AnthropicVersion, cfg.UpstreamTimeout, logger)

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy, cfg.AllowedAPIKeys)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	m := metrics.New()
	svc := service.New(store, llmClient, llm.Defaults{
		Model:       cfg.DefaultModel,
		VisionModel: cfg.VisionModel,
		MaxTokens:   cfg.DefaultMaxTokens,
		Temperature: cfg.DefaultTemperature,
	},
		service.WithHistoryWindow(cfg.HistoryWindow),
		service.WithMetrics(m),
		service.WithLogger(logger),
	)

	e := transport.NewServer(svc, policyEngine, m, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Addr()))
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shutdown server gracefully", zap.Error(err))
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
