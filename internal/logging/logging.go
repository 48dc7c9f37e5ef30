// Package logging builds the process logger and reports execution events
// through it.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	config "github.com/hanpama/gqlengine/internal/config"
	eventbus "github.com/hanpama/gqlengine/internal/eventbus"
	events "github.com/hanpama/gqlengine/internal/events"
	reqid "github.com/hanpama/gqlengine/internal/reqid"
)

// New returns a logger writing to stderr.
func New(cfg config.Log) (*zap.Logger, error) {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter returns a logger writing to w at the configured level.
func NewWithWriter(cfg config.Log, w io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch cfg.Format {
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	case "console", "":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("log format: unknown format %q", cfg.Format)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(w), level)
	return zap.New(core), nil
}

// Subscribe logs finished operations and resolver failures published on b.
// The returned func removes the handlers.
func Subscribe(b *eventbus.Bus, log *zap.Logger) (unsubscribe func()) {
	unsubFinish := eventbus.SubscribeTo(b, func(ctx context.Context, e events.GraphQLFinish) {
		fields := []zap.Field{
			zap.String("operation", e.OperationName),
			zap.String("type", e.OperationType),
			zap.Duration("duration", e.Duration),
			zap.Int("errors", len(e.Errors)),
		}
		fields = append(fields, requestID(ctx)...)
		if len(e.Errors) > 0 {
			log.Warn("graphql operation finished with errors", append(fields, zap.Errors("error_list", e.Errors))...)
			return
		}
		log.Info("graphql operation finished", fields...)
	})
	unsubResolver := eventbus.SubscribeTo(b, func(ctx context.Context, e events.ResolverError) {
		fields := []zap.Field{
			zap.String("object", e.ObjectType),
			zap.String("field", e.Field),
			zap.String("path", e.Path),
			zap.Error(e.Err),
		}
		log.Debug("resolver failed", append(fields, requestID(ctx)...)...)
	})
	return func() {
		unsubFinish()
		unsubResolver()
	}
}

func requestID(ctx context.Context) []zap.Field {
	if rid, ok := reqid.FromContext(ctx); ok {
		return []zap.Field{zap.String("request_id", rid)}
	}
	return nil
}
