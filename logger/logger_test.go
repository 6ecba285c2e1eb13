package logger

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/isdmx/coderun/config"
)

func TestLoggerNew(t *testing.T) {
	t.Run("ValidDevelopmentMode", func(t *testing.T) {
		logger, err := New("development", "debug")
		require.NoError(t, err)
		assert.NotNil(t, logger)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
		_ = logger.Sync()
	})

	t.Run("ValidProductionMode", func(t *testing.T) {
		logger, err := New("production", "info")
		require.NoError(t, err)
		assert.NotNil(t, logger)
		assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
		assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
		_ = logger.Sync()
	})

	t.Run("InvalidMode", func(t *testing.T) {
		_, err := New("invalid_mode", "info")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid logging mode")
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		_, err := New("production", "invalid_level")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid logging level")
	})

	t.Run("ValidLevels", func(t *testing.T) {
		levels := []string{"debug", "info", "warn", "error", "dpanic", "panic", "fatal"}
		for _, level := range levels {
			t.Run(level, func(t *testing.T) {
				logger, err := New("production", level)
				require.NoError(t, err)
				assert.NotNil(t, logger)
				_ = logger.Sync()
			})
		}
	})
}

func TestLoggerNewFromConfig(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		cfg := &config.Config{
			Server: config.ServerConfig{Transport: config.TransportREST},
			Logging: config.LoggingConfig{
				Mode:  "development",
				Level: "warn",
			},
		}
		logger, err := NewFromConfig(cfg)
		require.NoError(t, err)
		assert.NotNil(t, logger)
		assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
		_ = logger.Sync()
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		cfg := &config.Config{
			Logging: config.LoggingConfig{
				Mode:  "invalid_mode",
				Level: "info",
			},
		}
		_, err := NewFromConfig(cfg)
		assert.Error(t, err)
	})
}

func TestBuildConfigWritesToStderr(t *testing.T) {
	for _, mode := range []string{"development", "production"} {
		t.Run(mode, func(t *testing.T) {
			cfg, err := buildConfig(mode, "info")
			require.NoError(t, err)
			assert.Equal(t, []string{"stderr"}, cfg.OutputPaths)
			assert.Equal(t, []string{"stderr"}, cfg.ErrorOutputPaths)
		})
	}

	t.Run("ProductionTimestampKey", func(t *testing.T) {
		cfg, err := buildConfig("production", "info")
		require.NoError(t, err)
		assert.Equal(t, "timestamp", cfg.EncoderConfig.TimeKey)
	})
}

// redirectStd swaps *target for a temp file until the test ends and returns
// a function reading everything written so far.
func redirectStd(t *testing.T, target **os.File) func() string {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "std")
	require.NoError(t, err)

	orig := *target
	*target = f
	t.Cleanup(func() {
		*target = orig
		_ = f.Close()
	})

	return func() string {
		_, err := f.Seek(0, io.SeekStart)
		require.NoError(t, err)
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		return string(data)
	}
}

func TestNewFromConfigOutput(t *testing.T) {
	readStderr := redirectStd(t, &os.Stderr)
	readStdout := redirectStd(t, &os.Stdout)

	cfg := &config.Config{
		Server: config.ServerConfig{Transport: config.TransportStdio},
		Logging: config.LoggingConfig{
			Mode:  "production",
			Level: "info",
		},
	}
	logger, err := NewFromConfig(cfg)
	require.NoError(t, err)

	logger.Info("server starting")
	_ = logger.Sync()

	assert.Empty(t, readStdout())

	lines := strings.Split(strings.TrimSpace(readStderr()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "server starting", entry["msg"])
	assert.Equal(t, "coderun", entry["logger"])
	assert.Equal(t, config.TransportStdio, entry["transport"])
	assert.Contains(t, entry, "timestamp")
}
