// Package logging provides the pulsectl logger: human output on stdout,
// full detail in a rotating log file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where the file log goes and how chatty stdout is.
type Config struct {
	LogDir     string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Verbose    bool
}

// Logger writes operator-facing lines to stdout and everything to the
// rotating file log.
type Logger struct {
	file    *logrus.Logger
	verbose bool
}

// NewLogger builds a logger writing to <logdir>/pulsectl.log. A file
// setup failure degrades to stdout-only logging rather than failing the
// command.
func NewLogger(cfg Config) *Logger {
	file := logrus.New()
	file.SetFormatter(&logrus.JSONFormatter{})
	file.SetLevel(logrus.DebugLevel)

	if cfg.LogDir != "" && ensureDir(cfg.LogDir) {
		file.SetOutput(&lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogDir, "pulsectl.log"),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	} else {
		file.SetOutput(os.Stderr)
	}

	return &Logger{file: file, verbose: cfg.Verbose}
}

func ensureDir(dir string) bool {
	return os.MkdirAll(dir, 0755) == nil
}

// Info prints a progress line and records it in the file log.
func (l *Logger) Info(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
	l.file.Infof(format, args...)
}

// Success prints a completion line with a check mark.
func (l *Logger) Success(format string, args ...any) {
	fmt.Printf("✓ "+format+"\n", args...)
	l.file.Infof(format, args...)
}

// Error prints an error line to stderr and records it in the file log.
func (l *Logger) Error(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
	l.file.Errorf(format, args...)
}

// Debug records a detail line; it only reaches stdout in verbose mode.
func (l *Logger) Debug(format string, args ...any) {
	if l.verbose {
		fmt.Printf("  "+format+"\n", args...)
	}
	l.file.Debugf(format, args...)
}
