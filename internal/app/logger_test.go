package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/bukubesar/bukubesar/testing"
)

func TestNewLoggerFormatAndLevel(t *testing.T) {
	ctx := context.Background()

	jsonLogger := NewLogger(&Config{LogFormat: "json"})
	_, ok := jsonLogger.Handler().(*slog.JSONHandler)
	require.True(t, ok)
	require.True(t, jsonLogger.Handler().Enabled(ctx, slog.LevelDebug))

	textLogger := NewLogger(&Config{LogFormat: "pretty"})
	_, ok = textLogger.Handler().(*slog.TextHandler)
	require.True(t, ok)

	prodLogger := NewLogger(&Config{AppEnv: "production", LogFormat: "json"})
	require.False(t, prodLogger.Handler().Enabled(ctx, slog.LevelDebug))
	require.True(t, prodLogger.Handler().Enabled(ctx, slog.LevelInfo))
}
