package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLogger_ZeroValueIsNoop(t *testing.T) {
	var l Logger
	l.Info("ignored")
	l.Error("ignored", zap.Int("n", 1))

	var nilLogger *Logger
	nilLogger.Warn("ignored")

	assert.ErrorIs(t, l.Close(), ErrLogNotInitialized)
	assert.NotNil(t, l.Named("child"))
}

func TestLogger_WritesToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")

	l, err := NewLogger(LogOptions{Dir: dir, File: "test.log", Level: "info"})
	require.NoError(t, err)

	l.Info("collector started", zap.String("interval", "20s"))
	l.Debug("should be filtered")
	l.Named("api").Warn("slow request")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "collector started")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "api")
	assert.NotContains(t, out, "should be filtered")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("4"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}
