// Package logger builds the process-wide slog logger: JSON on stdout,
// request-scoped attributes pulled from the context, and an optional Sentry
// sink for warnings and errors.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
	"github.com/go-chi/chi/v5/middleware"
)

// Config holds logging configuration.
type Config struct {
	Level             string
	SentryDSN         string
	SentryEnvironment string
}

// ContextExtractor extracts a slog attribute from context.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// RequestID attaches the chi request id, when present.
func RequestID(ctx context.Context) (slog.Attr, bool) {
	id := middleware.GetReqID(ctx)
	if id == "" {
		return slog.Attr{}, false
	}
	return slog.String("request_id", id), true
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a JSON logger writing to stdout. When cfg.SentryDSN is set,
// warnings are also recorded in Sentry and errors raise Sentry issues. The
// returned flush function must be called before exit.
func New(cfg Config, extractors ...ContextExtractor) (*slog.Logger, func()) {
	return newWithWriter(os.Stdout, cfg, extractors...)
}

func newWithWriter(w io.Writer, cfg Config, extractors ...ContextExtractor) (*slog.Logger, func()) {
	var handler slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	})
	flush := func() {}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.SentryEnvironment,
			EnableLogs:  true,
		}); err != nil {
			slog.New(handler).Error("failed to initialize Sentry", slog.String("error", err.Error()))
		} else {
			sentryHandler := sentryslog.Option{
				EventLevel: []slog.Level{slog.LevelError},
				LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelError},
			}.NewSentryHandler(context.Background())
			handler = newMultiHandler(handler, sentryHandler)
			flush = func() { sentry.Flush(2 * time.Second) }
		}
	}

	return slog.New(NewLogHandlerDecorator(handler, extractors...)), flush
}
