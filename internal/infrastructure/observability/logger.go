package observability

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

type loggerKey struct{}

// InitLogger configures the global zerolog logger. Development gets a
// console writer; every other env logs JSON with caller info.
func InitLogger(serviceName, env, level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var base zerolog.Logger
	if env == "development" {
		base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		base = zerolog.New(os.Stdout).With().Caller().Logger()
	}
	log.Logger = base.With().
		Timestamp().
		Str("service", serviceName).
		Str("env", env).
		Logger()
}

// WithLogFields returns a context whose logger carries the given key/value
// pairs. A trailing key without a value is ignored.
func WithLogFields(ctx context.Context, kv ...string) context.Context {
	logCtx := contextLogger(ctx).With()
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			logCtx = logCtx.Str(kv[i], kv[i+1])
		}
	}
	return context.WithValue(ctx, loggerKey{}, logCtx.Logger())
}

// LoggerFromContext returns the context logger with trace context attached
func LoggerFromContext(ctx context.Context) *zerolog.Logger {
	logger := contextLogger(ctx)

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		logger = logger.With().
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String()).
			Logger()
	}

	return &logger
}

func contextLogger(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return logger
	}
	return log.Logger
}
