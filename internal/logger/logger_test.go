package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrap_WritesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core)).With(String("component", "test"))

	l.Warn("read failed", Error(errors.New("boom")), Int("count", 2))

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "read failed", entries[0].Message)
	ctx := entries[0].ContextMap()
	require.Equal(t, "test", ctx["component"])
	require.Equal(t, "boom", ctx["error"])
	require.EqualValues(t, 2, ctx["count"])
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	require.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	require.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	require.Equal(t, zapcore.InfoLevel, parseLevel(""))
	require.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestNew(t *testing.T) {
	l, err := New(Config{Level: "debug", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	require.NotNil(t, l)
}

func TestContext(t *testing.T) {
	nop := NewNop()
	require.Same(t, nop, FromContext(context.Background(), nop))

	core, _ := observer.New(zapcore.InfoLevel)
	l := Wrap(zap.New(core))
	ctx := WithContext(context.Background(), l)
	require.Same(t, l, FromContext(ctx, nop))
}
