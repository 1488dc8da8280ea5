// Package telemetry reports panics and degraded pipeline stages to Sentry.
// Every function is a no-op until Init is called with a DSN.
package telemetry

import (
	"context"
	"time"

	"github.com/akolanti/DocTalk/pkg/logger_i"
	"github.com/getsentry/sentry-go"
)

const serviceName = "doctalk"

const flushTimeout = 5 * time.Second

type Config struct {
	DSN         string
	Environment string
	Release     string
}

// Init returns a shutdown function that flushes pending events. Without a DSN
// the shutdown function does nothing.
func Init(cfg Config) (func(), error) {
	logger := logger_i.NewLogger("telemetry")
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		ServerName:  serviceName,
	})
	if err != nil {
		logger.Warn("sentry: failed to initialize, continuing without it", "error", err)
		return func() {}, nil
	}

	logger.Info("sentry initialized", "environment", cfg.Environment)
	return func() { sentry.Flush(flushTimeout) }, nil
}

func hubFrom(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

// WithHub gives the request its own hub so scope tags do not leak across requests.
func WithHub(ctx context.Context) (context.Context, *sentry.Hub) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return ctx, hub
	}
	hub := sentry.CurrentHub().Clone()
	return sentry.SetHubOnContext(ctx, hub), hub
}

func CaptureError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	hubFrom(ctx).CaptureException(err)
}

// RecoverPanic reports a recovered panic value.
func RecoverPanic(ctx context.Context, recovered interface{}) {
	hubFrom(ctx).RecoverWithContext(ctx, recovered)
}

func AddBreadcrumb(ctx context.Context, category, message string) {
	hubFrom(ctx).AddBreadcrumb(&sentry.Breadcrumb{
		Type:      "default",
		Category:  category,
		Message:   message,
		Level:     sentry.LevelWarning,
		Timestamp: time.Now(),
	}, nil)
}

// Degraded records an enrichment stage that failed without failing the request.
func Degraded(ctx context.Context, stage string, err error) {
	AddBreadcrumb(ctx, "degraded", stage)
	CaptureError(ctx, err)
}
