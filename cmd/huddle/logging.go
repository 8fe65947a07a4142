package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecgard/huddle/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// setupLogging installs a JSON slog default writing to stdout, or to a
// size-rotated file when cfg.File is set. The returned func closes the file.
func setupLogging(cfg config.LogConfig) func() {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	closer := func() {}
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = lj
		closer = func() { _ = lj.Close() }
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})))
	return closer
}
