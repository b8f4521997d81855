// Package logging provides categorized structured logging for breathplat.
// Each subsystem asks for its category logger with Get; all categories share
// one zap core configured by Initialize. The wizard logs to a file so the
// terminal stays clean, CLI commands may log to stderr.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, config loading
	CategoryWorkflow Category = "workflow" // Controller state changes
	CategorySteps    Category = "steps"    // Step runs and validation
	CategoryServices Category = "services" // Analysis service HTTP calls
	CategoryExplain  Category = "explain"  // Explanation backends
	CategoryDataset  Category = "dataset"  // File parsing, store, watcher
	CategoryJournal  Category = "journal"  // Run journal persistence
	CategoryUI       Category = "ui"       // Wizard TUI
)

// Options mirrors config.LoggingConfig to avoid an import cycle.
type Options struct {
	Level      string          // debug, info, warn, error
	Format     string          // json, console
	File       string          // empty means stderr
	Categories map[string]bool // nil enables every category
}

var (
	mu         sync.RWMutex
	base       = zap.NewNop()
	categories map[string]bool
)

// Initialize builds the shared zap logger. Calling it again replaces the
// previous logger after flushing it.
func Initialize(opts Options) error {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	switch strings.ToLower(opts.Format) {
	case "", "json":
		cfg.Encoding = "json"
	case "console", "text":
		cfg.Encoding = "console"
	default:
		return fmt.Errorf("unknown log format %q", opts.Format)
	}

	out := "stderr"
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		out = opts.File
	}
	cfg.OutputPaths = []string{out}
	cfg.ErrorOutputPaths = []string{out}

	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	Use(logger, opts.Categories)
	logger.Named(string(CategoryBoot)).Debug("logging initialized",
		zap.String("level", level.String()),
		zap.String("output", out))
	return nil
}

// Use installs an existing logger, e.g. an observer core in tests.
func Use(logger *zap.Logger, enabled map[string]bool) {
	mu.Lock()
	defer mu.Unlock()
	_ = base.Sync()
	base = logger
	categories = enabled
}

// Get returns the logger for a category. Disabled categories and an
// uninitialized package yield a no-op logger.
func Get(category Category) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if categories != nil {
		if on, ok := categories[string(category)]; ok && !on {
			return zap.NewNop()
		}
	}
	return base.Named(string(category))
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}

// Reset drops the installed logger.
func Reset() {
	Use(zap.NewNop(), nil)
}

// ParseLevel maps a config level name to a zap level; empty means info.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}
