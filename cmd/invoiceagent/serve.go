package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	httpAdapter "github.com/iho/invoiceagent/internal/adapter/http"
	"github.com/iho/invoiceagent/internal/adapter/http/handler"
	"github.com/iho/invoiceagent/internal/adapter/http/middleware"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if err := ensureDirs(cfg.InputDir, cfg.OutputDir); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			// Initialize handlers
			backends := map[string]handler.Pinger{}
			if a.redisClient != nil {
				backends["redis"] = handler.PingerFunc(func(ctx context.Context) error {
					return a.redisClient.Ping(ctx).Err()
				})
			}
			if a.pool != nil {
				backends["postgres"] = a.pool
			}
			healthHandler := handler.NewHealthHandler([]string{cfg.InputDir, cfg.OutputDir}, backends)
			overviewHandler := handler.NewOverviewHandler(a.overviewUC, a.ledgerUC, a.runInput())

			var runner handler.PipelineRunner
			if a.pipeline != nil {
				runner = a.pipeline
			}
			runHandler := handler.NewRunHandler(runner, a.ledgerUC, a.runInput(), log)

			rateLimiter := middleware.NewRateLimiter(cfg.RunRateLimit, cfg.RunRateBurst).
				OnLimit(func(r *http.Request) {
					a.metrics.RateLimitHits.WithLabelValues("runs").Inc()
				})
			go rateLimiter.RunCleanup(ctx, time.Hour)

			// Create router
			router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
				HealthHandler:   healthHandler,
				OverviewHandler: overviewHandler,
				RunHandler:      runHandler,
				Metrics:         a.metrics,
				MetricsHandler:  promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
				RateLimiter:     rateLimiter,
				Logger:          log,
			})

			// Create server
			server := &http.Server{
				Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
				Handler:      router,
				ReadTimeout:  cfg.HTTPReadTimeout,
				WriteTimeout: cfg.HTTPWriteTimeout,
				IdleTimeout:  cfg.HTTPIdleTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("port", cfg.HTTPPort).Str("input_dir", cfg.InputDir).Msg("starting dashboard")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down server...")

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}

			log.Info().Msg("server stopped")
			return nil
		},
	}
}
