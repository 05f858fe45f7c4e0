package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "github.com/finqa/investor-qa/internal/adapters/http"
	"github.com/finqa/investor-qa/internal/bootstrap"
	"github.com/finqa/investor-qa/internal/config"
	"github.com/finqa/investor-qa/internal/observability/logging"
	"github.com/finqa/investor-qa/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	m := metrics.NewHTTPServerMetrics("api")
	router := httpadapter.NewRouter(app.IngestUC, app.QueryUC, app.ResetUC, app.Repo, m, httpadapter.Options{
		DefaultChunkSize:    cfg.ChunkSize,
		DefaultChunkOverlap: cfg.ChunkOverlap,
		DefaultTopK:         cfg.TopK,
		DefaultProvider:     cfg.DefaultProvider,
		MaxUploadBytes:      cfg.MaxUploadBytes,
		RateLimitRPS:        cfg.RateLimitRPS,
		RateLimitBurst:      cfg.RateLimitBurst,
		MaxInFlight:         cfg.MaxInFlight,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}
