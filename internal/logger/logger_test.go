package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"panic": zapcore.PanicLevel,
		"fatal": zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestFromContextFallback ensures a bare context yields the global logger.
func TestFromContextFallback(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestToContextRoundtrip ensures a logger stored in a context is the one extracted.
func TestToContextRoundtrip(t *testing.T) {
	t.Parallel()

	l := New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), l)

	require.Same(t, l, FromContext(ctx))
}

// TestWithName ensures naming produces a distinct logger bound to the context.
func TestWithName(t *testing.T) {
	t.Parallel()

	ctx := WithName(context.Background(), "dolphin-updater")
	require.NotSame(t, Logger(), FromContext(ctx))
}
