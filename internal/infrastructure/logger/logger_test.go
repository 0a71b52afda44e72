package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplysync/backend/internal/infrastructure/config"
	"go.uber.org/zap/zapcore"
)

func TestPresetConfigs(t *testing.T) {
	assert.Equal(t, "console", DefaultConfig().Format)
	assert.Equal(t, "json", ProductionConfig().Format)
	assert.Equal(t, "stdout", ProductionConfig().Output)
}

func TestFromAppConfig(t *testing.T) {
	cfg := FromAppConfig(config.LogConfig{
		Level:      "debug",
		Format:     "json",
		Output:     "/var/log/supplysync.log",
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 7,
	})

	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "/var/log/supplysync.log", cfg.Output)
	assert.Equal(t, 50, cfg.MaxSizeMB)
	assert.Equal(t, 3, cfg.MaxBackups)
	assert.Equal(t, 7, cfg.MaxAgeDays)
	assert.True(t, cfg.Compress)
	assert.Equal(t, defaultTimeFormat, cfg.TimeFormat)
}

func TestNewForEnvironment(t *testing.T) {
	for _, env := range []string{"production", "development", ""} {
		log, err := NewForEnvironment(env)
		require.NoError(t, err)
		assert.NotNil(t, log)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestCreateWriter_Streams(t *testing.T) {
	for _, out := range []string{"", "stdout", "STDERR"} {
		assert.NotNil(t, createWriter(&Config{Output: out}), out)
	}
}

func TestNew_FileOutputRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.log")
	cfg := &Config{Level: "info", Format: "json", Output: path, MaxSizeMB: 1, MaxBackups: 2}

	log, err := New(cfg)
	require.NoError(t, err)
	log.Info("sync finished")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"sync finished"`)
}

func TestCreateWriter_FileUsesLumberjack(t *testing.T) {
	ws := createWriter(&Config{Output: filepath.Join(t.TempDir(), "x.log"), MaxSizeMB: 5, MaxAgeDays: 3})

	n, err := ws.Write([]byte("line\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}
