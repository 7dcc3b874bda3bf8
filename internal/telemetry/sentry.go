// Package telemetry wires optional Sentry error reporting. With an empty DSN
// every function is a no-op.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
)

type Config struct {
	DSN         string
	Environment string
	Release     string
	Debug       bool
}

var enabled bool

// Init configures the global Sentry client. It reports whether reporting is on.
func Init(cfg Config) (bool, error) {
	if cfg.DSN == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			event.ServerName = "palavreco"
			return event
		},
		Transport: &sentry.HTTPTransport{Timeout: 5 * time.Second},
	})
	if err != nil {
		return false, fmt.Errorf("init sentry: %w", err)
	}
	enabled = true
	return true, nil
}

// Middleware attaches a hub to each request and reports panics. Panics are
// re-raised so chi's Recoverer still answers 500.
func Middleware() func(http.Handler) http.Handler {
	if !enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return sentryhttp.New(sentryhttp.Options{
		Repanic: true,
		Timeout: 2 * time.Second,
	}).Handle
}

// CaptureError reports err with tags, using the request hub when present.
func CaptureError(ctx context.Context, err error, tags map[string]string) {
	if !enabled || err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		scope.SetLevel(sentry.LevelError)
		hub.CaptureException(err)
	})
}

// Flush waits for buffered events.
func Flush(timeout time.Duration) {
	if enabled {
		sentry.Flush(timeout)
	}
}
