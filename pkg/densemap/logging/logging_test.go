package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    log.Level
		wantErr bool
	}{
		{"debug", log.DebugLevel, false},
		{"info", log.InfoLevel, false},
		{"", log.InfoLevel, false},
		{"warn", log.WarnLevel, false},
		{"warning", log.WarnLevel, false},
		{"error", log.ErrorLevel, false},
		{"ERROR", log.ErrorLevel, false},
		{"bogus", log.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInit_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "densemap.log")

	require.NoError(t, Init(Config{Level: "debug", Path: path}))
	defer Close()

	Get("engine").Info("session started", "path", "/tmp/x")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "session started")
	assert.Contains(t, string(data), "engine")
}

func TestInit_ComponentLevelOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "densemap.log")

	require.NoError(t, Init(Config{
		Level:      "info",
		Path:       path,
		Components: map[string]string{"watcher": "error"},
	}))
	defer Close()

	Get("watcher").Warn("should be filtered")
	Get("engine").Warn("should appear")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "should be filtered")
	assert.Contains(t, string(data), "should appear")
}

func TestInit_InvalidLevel(t *testing.T) {
	assert.Error(t, Init(Config{Level: "loud"}))
	assert.Error(t, Init(Config{
		Level:      "info",
		Path:       "-",
		Components: map[string]string{"engine": "shouty"},
	}))
}

func TestGet_BeforeInitIsSilent(t *testing.T) {
	require.NoError(t, Close())

	// Must not panic or write anywhere.
	Get("engine").Info("dropped")
}
