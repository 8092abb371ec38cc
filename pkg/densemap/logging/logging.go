// Package logging provides a unified logging system for densemap. CLI and
// TUI share this package; the TUI disables console output because it owns
// the screen.
//
// Basic usage:
//
//	cfg := logging.Config{Level: "info"}
//	if err := logging.Init(cfg); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Close()
//
//	logger := logging.Get("engine")
//	logger.Info("first pass complete", "path", path)
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Config configures the logging system.
type Config struct {
	// Level is the default log level (debug, info, warn, error).
	Level string

	// Path is the log file path. Empty uses DefaultLogPath(). "-"
	// disables file output entirely.
	Path string

	// Components maps component names to level overrides.
	Components map[string]string

	// Console enables stderr output in addition to the log file.
	// The TUI leaves this off.
	Console bool
}

// DefaultLogPath returns the default log file path under the XDG state
// directory.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "densemap", "densemap.log")
}

// ParseLevel parses a level string into a charmbracelet/log level.
func ParseLevel(s string) (log.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return log.DebugLevel, nil
	case "info", "":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("invalid log level: %q", s)
	}
}

type state struct {
	mu          sync.RWMutex
	initialized bool
	file        *os.File
	writer      io.Writer
	level       log.Level
	components  map[string]log.Level
	loggers     map[string]*log.Logger
}

var globalState = &state{
	components: make(map[string]log.Level),
	loggers:    make(map[string]*log.Logger),
}

// Init initializes the logging system. Before Init, loggers write to
// io.Discard.
func Init(cfg Config) error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}

	components := make(map[string]log.Level, len(cfg.Components))
	for comp, lvl := range cfg.Components {
		parsed, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("component %s: %w", comp, err)
		}
		components[comp] = parsed
	}

	var writers []io.Writer
	if cfg.Path != "-" {
		path := cfg.Path
		if path == "" {
			path = DefaultLogPath()
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		if globalState.file != nil {
			_ = globalState.file.Close()
		}
		globalState.file = f
		writers = append(writers, f)
	}
	if cfg.Console {
		writers = append(writers, os.Stderr)
	}

	switch len(writers) {
	case 0:
		globalState.writer = io.Discard
	case 1:
		globalState.writer = writers[0]
	default:
		globalState.writer = io.MultiWriter(writers...)
	}

	globalState.level = level
	globalState.components = components
	globalState.initialized = true
	globalState.loggers = make(map[string]*log.Logger)

	return nil
}

// Get returns a logger for the given component, honoring any
// per-component level override from the config.
func Get(component string) *log.Logger {
	globalState.mu.RLock()
	if logger, ok := globalState.loggers[component]; ok {
		globalState.mu.RUnlock()
		return logger
	}
	globalState.mu.RUnlock()

	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if logger, ok := globalState.loggers[component]; ok {
		return logger
	}

	writer := globalState.writer
	if !globalState.initialized {
		writer = io.Discard
	}

	level := globalState.level
	if override, ok := globalState.components[component]; ok {
		level = override
	}

	logger := log.NewWithOptions(writer, log.Options{
		ReportTimestamp: true,
		Level:           level,
		Prefix:          component,
	})
	globalState.loggers[component] = logger
	return logger
}

// Close flushes and closes the log file.
func Close() error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	globalState.initialized = false
	globalState.loggers = make(map[string]*log.Logger)
	globalState.writer = io.Discard

	if globalState.file != nil {
		err := globalState.file.Close()
		globalState.file = nil
		return err
	}
	return nil
}
