package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"spendlens/internal/analytics"
	"spendlens/internal/cache"
	"spendlens/internal/cli"
	apphttp "spendlens/internal/http"
	"spendlens/internal/log"
	"spendlens/internal/services"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	res, err := cli.InitStore(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	publisher, closePublisher := cli.InitPublisher(logger, cfg)
	defer closePublisher()
	generator, closeGenerator := cli.InitGenerator(ctx, logger, cfg)
	defer closeGenerator()

	listCache := services.NewListCache(cfg.CacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager(logger)
	cacheManager.Register(listCache)
	cacheManager.StartCleanup(cfg.CacheTTL)
	defer cacheManager.Stop()

	engine := analytics.New()
	expenses := services.NewExpenseService(res.Store, publisher, listCache, logger)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Expenses:  expenses,
		Analytics: services.NewAnalyticsService(expenses, res.Store, engine, logger),
		Insights:  services.NewInsightService(expenses, res.Store, generator, engine, logger),
		Store:     res.Store,
	}, apphttp.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	stopped, cancel := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})
	defer cancel()

	logger.Info("Starting spendlens server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"insights", generator.Name(),
		"amqp_enabled", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		return err
	}

	<-stopped.Done()
	logger.Info("Server stopped gracefully")
	return nil
}
