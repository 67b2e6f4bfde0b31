// Package cli provides common initialization shared by cmd/spendlens and
// cmd/insights-worker.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spendlens/internal/amqp"
	"spendlens/internal/backend"
	"spendlens/internal/config"
	"spendlens/internal/insights"
	"spendlens/internal/log"
	"spendlens/internal/services"
)

// SetupLogger builds the application logger for level and makes it the slog
// default. A nil out means stdout.
func SetupLogger(level string, out io.Writer) *log.Logger {
	if out == nil {
		out = os.Stdout
	}
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: log.ComponentApp,
		Output:    out,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitStore opens the configured store and applies the seed CSV.
func InitStore(ctx context.Context, logger *log.Logger, cfg *config.Config) (*backend.Result, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger).CreateBackend(ctx, bcfg)
}

// InitPublisher connects to the broker when AMQP_URL is set. Without a URL,
// or when the broker is unreachable, expense writes go unannounced; the
// returned close function is always safe to call.
func InitPublisher(logger *log.Logger, cfg *config.Config) (services.Publisher, func()) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - no AMQP_URL provided")
		return nil, func() {}
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without change events", log.FieldError, err)
		return nil, func() {}
	}
	logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, func() { _ = client.Close() }
}

// InitGenerator returns Gemini with the rule based generator as fallback
// when GEMINI_API_KEY is set, and the rule based generator otherwise.
func InitGenerator(ctx context.Context, logger *log.Logger, cfg *config.Config) (insights.Generator, func()) {
	rules := insights.Rules{}
	if !cfg.InsightsEnabled() {
		logger.Info("Gemini disabled - using rule based insights")
		return rules, func() {}
	}
	gemini, err := insights.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	if err != nil {
		logger.Warn("Failed to initialize Gemini, using rule based insights", log.FieldError, err)
		return rules, func() {}
	}
	logger.Info("Initialized Gemini insights", "model", cfg.GeminiModel)
	return insights.Fallback{
		Primary:   gemini,
		Secondary: rules,
		Logger:    logger.WithComponent(log.ComponentInsights),
	}, func() { _ = gemini.Close() }
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// The returned context is cancelled on SIGINT/SIGTERM after cleanup has
// run or timeout has passed, whichever comes first.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
			return
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		done := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(done)
		}()

		select {
		case <-done:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		cancel()
	}()

	return ctx, cancel
}
