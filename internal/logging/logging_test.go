package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunbeam/internal/config"
)

var started = time.Date(2026, 3, 4, 10, 20, 30, 0, time.UTC)

func fixedNow() time.Time { return started }

func newLogger(t *testing.T, cfg config.LoggingConfig, verbose bool) (zerolog.Logger, *bytes.Buffer) {
	t.Helper()
	var console bytes.Buffer
	logger, closer, err := New(cfg, Options{Verbose: verbose, Console: &console, Now: fixedNow})
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })
	return logger, &console
}

func TestNew_ConsoleOnlyGetsWarnings(t *testing.T) {
	dir := t.TempDir()
	logger, console := newLogger(t, config.LoggingConfig{Level: "warn", Dir: dir, MaxSizeMB: 1}, false)

	logger.Debug().Msg("polling status")
	logger.Warn().Msg("state lock held")

	assert.NotContains(t, console.String(), "polling status")
	assert.Contains(t, console.String(), "state lock held")

	data, err := os.ReadFile(filepath.Join(dir, FileName(started)))
	require.NoError(t, err)
	assert.Contains(t, string(data), "polling status")
	assert.Contains(t, string(data), "state lock held")
}

func TestNew_VerboseConsole(t *testing.T) {
	logger, console := newLogger(t, config.LoggingConfig{Level: "error", Dir: t.TempDir()}, true)

	logger.Debug().Str("step", "Deploy manila-data").Msg("Starting step")

	assert.Contains(t, console.String(), "Starting step")
	assert.Contains(t, console.String(), "Deploy manila-data")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Level: "chatty", Dir: t.TempDir()}, Options{Console: &bytes.Buffer{}})
	assert.ErrorContains(t, err, `invalid log level "chatty"`)
}

func TestNew_DefaultDirUnderDataDir(t *testing.T) {
	data := t.TempDir()
	t.Setenv("XDG_DATA_HOME", data)

	logger, _ := newLogger(t, config.LoggingConfig{}, false)
	logger.Info().Msg("hello")

	_, err := os.Stat(filepath.Join(data, "sunbeam", "logs", FileName(started)))
	assert.NoError(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "sunbeam-20260304-102030.log", FileName(started))
}
