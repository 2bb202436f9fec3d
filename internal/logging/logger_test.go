package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Defaults(t *testing.T) {
	logger, err := NewLogger(nil)
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Info(context.Background(), "hello")
	require.NoError(t, logger.Sync())
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"

	_, err := NewLogger(cfg)
	require.Error(t, err)
}

func TestLevelFromString_Trace(t *testing.T) {
	level, err := LevelFromString("trace")
	require.NoError(t, err)
	require.Equal(t, TraceLevel, level)
}

func TestLevelFromString_Standard(t *testing.T) {
	level, err := LevelFromString("warn")
	require.NoError(t, err)
	require.Equal(t, zapcore.WarnLevel, level)
}
