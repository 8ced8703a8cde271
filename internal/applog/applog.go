// Package applog configures the process-wide zerolog logger and hands
// out request-scoped child loggers.
package applog

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/anthroshim/msgshim/internal/config"
	"github.com/anthroshim/msgshim/internal/scrub"
)

var logger zerolog.Logger

func init() {
	logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// Init configures the process-wide logger from cfg: level, destination
// (stderr console writer, stderr JSON when not a TTY, or a file), and
// is safe to call once at startup before any request arrives.
func Init(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var writer io.Writer = os.Stderr
	switch {
	case cfg.File != "":
		if f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			writer = f
		}
	case isatty.IsTerminal(os.Stderr.Fd()):
		writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}

	logger = zerolog.New(writer).With().Timestamp().Logger()
}

// L returns the process-wide logger.
func L() *zerolog.Logger {
	return &logger
}

type ctxKey struct{}

// WithRequestLogger attaches a child logger carrying requestID to ctx,
// for FromContext to retrieve at any point during that request's
// handling.
func WithRequestLogger(ctx context.Context, requestID string) context.Context {
	child := logger.With().Str("request_id", requestID).Logger()
	return context.WithValue(ctx, ctxKey{}, &child)
}

// FromContext returns the request-scoped logger attached by
// WithRequestLogger, or the process-wide logger if ctx carries none.
func FromContext(ctx context.Context) *zerolog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok && l != nil {
		return l
	}
	return &logger
}

// LogPayload scrubs v of credential-bearing keys and logs it under
// label: at info level when payloadsEnabled (operators opted into full
// payload logging), otherwise at debug level so it only surfaces when
// TRANSFORMER_LOG_LEVEL is turned down.
func LogPayload(ctx context.Context, label string, v any, payloadsEnabled bool, maxChars int) {
	l := FromContext(ctx)
	if !payloadsEnabled && l.GetLevel() > zerolog.DebugLevel {
		return
	}
	text := scrub.MarshalScrubbed(v, maxChars)
	if payloadsEnabled {
		l.Info().Str("label", label).Msg(text)
	} else {
		l.Debug().Str("label", label).Msg(text)
	}
}
