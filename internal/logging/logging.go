// Package logging builds the zerolog logger shared by every command.
//
// Console output only carries warnings and errors unless verbose is set.
// Every record at debug level and above also goes to a dated file under the
// log directory, rotated by size.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/lumberjack/v2"
	"github.com/rs/zerolog"

	"sunbeam/internal/config"
)

// Options tune where the logger writes. The zero value writes the console
// to stderr and names the file after the current day.
type Options struct {
	Verbose bool
	Console io.Writer
	Now     func() time.Time
}

// New returns a logger writing to the console and to a rotated file in
// cfg.Dir. The returned closer flushes and closes the file; callers close it
// before exiting.
func New(cfg config.LoggingConfig, opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := consoleLevel(cfg.Level, opts.Verbose)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	dir, err := logDir(cfg.Dir)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("create log directory: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	file := &lumberjack.Logger{
		Filename:   filepath.Join(dir, FileName(now())),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	consoleWriter := zerolog.ConsoleWriter{Out: console, NoColor: true, TimeFormat: time.Kitchen}

	multi := zerolog.MultiLevelWriter(
		levelWriter{Writer: consoleWriter, min: level},
		levelWriter{Writer: file, min: zerolog.DebugLevel},
	)
	logger := zerolog.New(multi).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	return logger, file, nil
}

// FileName returns the log file name for a run started at t.
func FileName(t time.Time) string {
	return "sunbeam-" + t.Format("20060102-150405") + ".log"
}

func consoleLevel(name string, verbose bool) (zerolog.Level, error) {
	if verbose {
		return zerolog.DebugLevel, nil
	}
	if name == "" {
		return zerolog.WarnLevel, nil
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

func logDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	data, err := config.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(data, "logs"), nil
}

// levelWriter drops records below min.
type levelWriter struct {
	io.Writer
	min zerolog.Level
}

func (w levelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < w.min {
		return len(p), nil
	}
	return w.Write(p)
}
