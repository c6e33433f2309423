// Package hlog bootstraps the process-wide structured logger, grounded on
// the teacher CLI's initSlog: a JSON slog handler at a configurable level,
// writing to a file that defaults to a temp path when unset, here rotated
// with lumberjack so a long-lived pipeline run doesn't grow one file
// without bound.
package hlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures Init.
type Options struct {
	Level    string // debug|info|warn|error, default info.
	FilePath string // empty writes to a random temp file.
	Verbose  bool   // also echo to the side error stream (spec §6: --verbose).
}

// Init installs the default slog.Logger for the process, returning the
// file handle(s) opened so callers can flush/close them on exit.
func Init(opts Options) (io.Closer, error) { return initLogger(opts) }

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func initLogger(opts Options) (io.Closer, error) {
	path := opts.FilePath
	if path == "" {
		f, err := os.CreateTemp("", "hilctl-log-*")
		if err != nil {
			return nil, fmt.Errorf("creating temp log file: %w", err)
		}
		path = f.Name()
		f.Close()
	} else if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory %s: %w", dir, err)
		}
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	}

	var writers []io.Writer = []io.Writer{rotator}
	if opts.Verbose {
		writers = append(writers, os.Stderr)
	}

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: parseLevel(opts.Level),
	}))
	slog.SetDefault(logger)
	slog.Info("hlog initialized", "file", path, "level", opts.Level)
	return rotator, nil
}
