package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	rag_http "rag-assistant/internal/adapter/rag_http"
	"rag-assistant/internal/di"
	"rag-assistant/internal/infra"
	"rag-assistant/internal/infra/config"
	"rag-assistant/internal/infra/logger"
	"rag-assistant/internal/infra/otel"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server_exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 1. Load Config
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// 2. Telemetry and Logger
	otelShutdown, err := otel.InitProvider(ctx, cfg.OTel, cfg.Env)
	if err != nil {
		slog.Warn("otel_init_failed", slog.String("error", err.Error()))
		cfg.OTel.Enabled = false
		otelShutdown = func(context.Context) error { return nil }
	}
	log := logger.NewWithOTel(cfg.OTel.Enabled)
	slog.SetDefault(log)

	// 3. Initialize DB
	dbPool, err := infra.NewPostgresDB(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to db: %w", err)
	}
	defer dbPool.Close()

	// 4. Wire components
	components, err := di.NewApplicationComponents(cfg, dbPool, log)
	if err != nil {
		return fmt.Errorf("failed to wire components: %w", err)
	}

	// 5. Initialize Echo
	e, err := rag_http.NewServer(ctx, components.Handler, rag_http.ServerConfig{
		CORSAllowOrigins: cfg.HTTP.CORSAllowOrigins,
		RateLimitRPS:     cfg.HTTP.RateLimitRPS,
		RateLimitBurst:   cfg.HTTP.RateLimitBurst,
		OTelEnabled:      cfg.OTel.Enabled,
		ServiceName:      cfg.OTel.ServiceName,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to build http server: %w", err)
	}

	settings := components.Settings.Current()
	log.Info("server_configured",
		slog.String("embedding_model", settings.EmbeddingModel),
		slog.String("metric", string(settings.Metric)),
		slog.String("llm_provider", string(settings.Provider)),
		slog.String("llm_model", settings.Model),
	)

	// 6. Start Server and wait for shutdown
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.Info("server_starting", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("server_shutting_down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		return errors.Join(
			e.Shutdown(shutdownCtx),
			otelShutdown(shutdownCtx),
		)
	})

	return g.Wait()
}
