package rag_http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/time/rate"
)

// ServerConfig controls the HTTP middleware stack.
type ServerConfig struct {
	CORSAllowOrigins []string
	// Per client IP. Zero disables rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int
	OTelEnabled    bool
	ServiceName    string
}

// NewServer builds the echo instance with middleware, API routes and /metrics.
func NewServer(ctx context.Context, h *Handler, cfg ServerConfig, logger *slog.Logger) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if cfg.OTelEnabled {
		e.Use(otelecho.Middleware(cfg.ServiceName))
	}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/healthz" || path == "/readyz" || path == "/metrics"
		},
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			rctx := c.Request().Context()
			if v.Error == nil {
				logger.InfoContext(rctx, "request_completed",
					slog.String("method", v.Method),
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
					slog.Int64("latency_ms", v.Latency.Milliseconds()))
			} else {
				logger.ErrorContext(rctx, "request_failed",
					slog.String("method", v.Method),
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
					slog.Int64("latency_ms", v.Latency.Milliseconds()),
					slog.String("error", v.Error.Error()))
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())

	origins := cfg.CORSAllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{"*"},
	}))

	if cfg.RateLimitRPS > 0 {
		e.Use(NewRateLimiter(ctx, rate.Limit(cfg.RateLimitRPS), max(cfg.RateLimitBurst, 1)).Middleware())
	}

	doc, err := LoadOpenAPI(ctx)
	if err != nil {
		return nil, err
	}
	validator, err := RequestValidator(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build request validator: %w", err)
	}
	e.Use(validator)

	h.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e, nil
}
