// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package logger configures the global zerolog logger: console output,
// optional rotated file output, runtime-adjustable level.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Bollo123view/refresherr/internal/domain"
)

// Setup configures the global logger from config. Safe to call again after a
// config reload; the previous file rotator (if any) keeps its handle until
// process exit, which is acceptable for a path that rarely changes.
func Setup(cfg *domain.Config) error {
	setLevel(cfg.LogLevel)

	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	var out io.Writer = console
	if cfg.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o750); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}

		maxSize := cfg.LogMaxSize
		if maxSize <= 0 {
			maxSize = 50
		}
		maxBackups := cfg.LogMaxBackups
		if maxBackups < 0 {
			maxBackups = 0
		}

		out = io.MultiWriter(console, &lumberjack.Logger{
			Filename:   cfg.LogPath,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
		})
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return nil
}

func setLevel(level string) {
	switch strings.ToUpper(level) {
	case "TRACE":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "DEBUG":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "INFO", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "WARN":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "ERROR":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
