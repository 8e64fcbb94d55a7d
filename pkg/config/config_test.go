package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-see/opendmx/pkg/serialport"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, serialport.DefaultMatch, cfg.Match)
	assert.Empty(t, cfg.Device)
	assert.Empty(t, cfg.Addr)
	assert.Equal(t, 7, cfg.MIDICC)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFlags(t *testing.T) {
	cfg, err := Load(newFlags(t, "--device", "/dev/ttyUSB3", "--addr", ":9000", "--midi-cc", "1"))
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB3", cfg.Device)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 1, cfg.MIDICC)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("OPENDMX_DEVICE", "/dev/ttyUSB9")
	t.Setenv("OPENDMX_MIDI_IN", "nanoKONTROL2")
	t.Setenv("OPENDMX_LOG_LEVEL", "debug")

	cfg, err := Load(newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB9", cfg.Device)
	assert.Equal(t, "nanoKONTROL2", cfg.MIDIIn)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestExplicitFlagBeatsEnvironment(t *testing.T) {
	t.Setenv("OPENDMX_ADDR", ":1111")
	cfg, err := Load(newFlags(t, "--addr", ":2222"))
	require.NoError(t, err)
	assert.Equal(t, ":2222", cfg.Addr)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"cc too high", []string{"--midi-cc", "128"}},
		{"cc negative", []string{"--midi-cc", "-1"}},
		{"bad log level", []string{"--log-level", "chatty"}},
		{"no way to find adapter", []string{"--match", " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newFlags(t, tt.args...))
			assert.Error(t, err)
		})
	}
}

func TestLoggerQuietDiscards(t *testing.T) {
	cfg := &Config{LogLevel: "info"}
	logger, closeFn, err := cfg.Logger(true)
	require.NoError(t, err)
	defer closeFn()
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opendmx.log")
	cfg := &Config{LogLevel: "warn", LogFile: path}

	logger, closeFn, err := cfg.Logger(true)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("tick overrun", "behind", "3ms")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "tick overrun")
}
