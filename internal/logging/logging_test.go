package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	config "github.com/hanpama/gqlengine/internal/config"
	eventbus "github.com/hanpama/gqlengine/internal/eventbus"
	events "github.com/hanpama/gqlengine/internal/events"
	reqid "github.com/hanpama/gqlengine/internal/reqid"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(config.Log{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("shown", zap.String("k", "v"))
	require.NoError(t, log.Sync())

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "shown", line["msg"])
	require.Equal(t, "info", line["level"])
	require.Equal(t, "v", line["k"])
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(config.Log{Level: "debug", Format: "console"}, &buf)
	require.NoError(t, err)
	log.Debug("visible")
	require.Contains(t, buf.String(), "DEBUG")
	require.Contains(t, buf.String(), "visible")
}

func TestNewWithWriter_Errors(t *testing.T) {
	_, err := NewWithWriter(config.Log{Level: "chatty", Format: "json"}, &bytes.Buffer{})
	require.ErrorContains(t, err, "log level")

	_, err = NewWithWriter(config.Log{Level: "info", Format: "xml"}, &bytes.Buffer{})
	require.ErrorContains(t, err, `unknown format "xml"`)
}

func TestSubscribe(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	b := eventbus.New()
	unsubscribe := Subscribe(b, zap.New(core))

	ctx, rid := reqid.NewContext(context.Background())
	eventbus.Use(b)
	t.Cleanup(func() { eventbus.Use(nil) })

	eventbus.Publish(ctx, events.GraphQLFinish{OperationName: "getUsers", OperationType: "query", Duration: time.Millisecond})
	eventbus.Publish(ctx, events.ResolverError{ObjectType: "Mutation", Field: "createPost", Path: "createPost", Err: errors.New("Not Authenticated")})
	eventbus.Publish(ctx, events.GraphQLFinish{OperationName: "createPost", OperationType: "mutation", Errors: []error{errors.New("Not Authenticated")}})

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)

	require.Equal(t, zapcore.InfoLevel, entries[0].Level)
	require.Equal(t, "graphql operation finished", entries[0].Message)
	require.Equal(t, "getUsers", entries[0].ContextMap()["operation"])
	require.Equal(t, rid, entries[0].ContextMap()["request_id"])

	require.Equal(t, zapcore.DebugLevel, entries[1].Level)
	require.Equal(t, "createPost", entries[1].ContextMap()["path"])
	require.Equal(t, "Not Authenticated", entries[1].ContextMap()["error"])

	require.Equal(t, zapcore.WarnLevel, entries[2].Level)
	require.Equal(t, int64(1), entries[2].ContextMap()["errors"])

	unsubscribe()
	eventbus.Publish(ctx, events.GraphQLFinish{})
	require.Equal(t, 3, logs.Len())
}
