// Package logger is the host's concrete WriteLine logging sink: a
// prefixed, leveled writer backed by log/slog, optionally rotated to a
// file via lumberjack. Named gives a component its own prefixed Sink; the
// host names the manager loop's sink AM and shares one "worker" sink
// across the pool, whose lines carry the slot name (A0, A1, ...).
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default logging configuration constants
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

// FileConfig describes optional rotation of the host's own log output.
// An empty Path disables rotation; the host then logs to stdout only.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func (c FileConfig) writer() io.Writer {
	if c.Path == "" {
		return os.Stdout
	}
	return &lj.Logger{
		Filename:   c.Path,
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Sink is the WriteLine abstraction spec §1 describes as an external
// collaborator: a single line-oriented call per anomaly or status event,
// prefixed by the emitting component's name.
type Sink interface {
	WriteLine(format string, args ...any)
}

type slogSink struct {
	prefix string
	log    *slog.Logger
}

// New builds the process-wide base logger. Call Named to get a
// component-prefixed Sink (worker, manager, scheduler).
func New(cfg FileConfig, colorize bool) *slog.Logger {
	w := cfg.writer()
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler
	if colorize && cfg.Path == "" {
		h = NewColorTextHandler(w, opts, true)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// Named returns a Sink that prefixes every line with name, matching spec
// §7: "all anomalies appear as log lines prefixed by the worker or
// scheduler name (A0, A1, AM)."
func Named(base *slog.Logger, name string) Sink {
	return &slogSink{prefix: name, log: base.With("component", name)}
}

func (s *slogSink) WriteLine(format string, args ...any) {
	s.log.Info(fmt.Sprintf("[%s] %s", s.prefix, fmt.Sprintf(format, args...)))
}

// Discard is a Sink that drops all lines; useful for tests.
type Discard struct{}

func (Discard) WriteLine(string, ...any) {}
