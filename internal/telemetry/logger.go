// Package telemetry provides the ambient logging and metrics surface shared
// by can, positioner, fps and cmd/jaegerctl: package-level leveled logging
// over log/slog, and a small set of Prometheus collectors. There is no
// per-request context to carry (this is a single-process fleet-control
// daemon, not a multi-tenant server), so unlike the logger this was
// modeled on, there is no context-aware *Ctx variant here.
package telemetry

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Level mirrors slog's levels with the names used in config.yaml.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func toSlogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config selects the logger's level, format (text/json) and output.
type Config struct {
	Level  string
	Format string
	Output string // stdout, stderr, or a file path
}

var (
	currentLevel  atomic.Int32
	currentFormat atomic.Value // string: "text" or "json"

	mu     sync.RWMutex
	logger *slog.Logger
	output = os.Stdout
)

func init() {
	currentLevel.Store(int32(LevelInfo))
	currentFormat.Store("text")
	reconfigure("text", os.Stdout)
}

func reconfigure(format string, w *os.File) {
	mu.Lock()
	defer mu.Unlock()

	levelVar := new(slog.LevelVar)
	levelVar.Set(toSlogLevel(Level(currentLevel.Load())))
	opts := &slog.HandlerOptions{Level: levelVar}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	output = w
	logger = slog.New(handler)
}

// Init configures the package logger from cfg. An empty Output defaults to
// stdout; an empty Level leaves the current level unchanged, and an empty or
// unrecognised Format selects text.
func Init(cfg Config) error {
	w := output
	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("telemetry: open log file %q: %w", cfg.Output, err)
		}
		w = f
	}

	if cfg.Level != "" {
		SetLevel(cfg.Level)
	}
	format := strings.ToLower(cfg.Format)
	if format != "json" {
		format = "text"
	}
	currentFormat.Store(format)
	reconfigure(format, w)
	return nil
}

// SetLevel sets the minimum log level; an unrecognised name is ignored.
func SetLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		currentLevel.Store(int32(LevelDebug))
	case "INFO":
		currentLevel.Store(int32(LevelInfo))
	case "WARN":
		currentLevel.Store(int32(LevelWarn))
	case "ERROR":
		currentLevel.Store(int32(LevelError))
	default:
		return
	}
	mu.RLock()
	w := output
	mu.RUnlock()
	format, _ := currentFormat.Load().(string)
	reconfigure(format, w)
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug logs a structured message at debug level.
func Debug(msg string, args ...any) { get().Debug(msg, args...) }

// Info logs a structured message at info level.
func Info(msg string, args ...any) { get().Info(msg, args...) }

// Warn logs a structured message at warn level.
func Warn(msg string, args ...any) { get().Warn(msg, args...) }

// Error logs a structured message at error level.
func Error(msg string, args ...any) { get().Error(msg, args...) }

// Debugf logs a printf-style message at debug level.
func Debugf(format string, v ...any) { get().Debug(fmt.Sprintf(format, v...)) }

// Infof logs a printf-style message at info level.
func Infof(format string, v ...any) { get().Info(fmt.Sprintf(format, v...)) }

// Warnf logs a printf-style message at warn level.
func Warnf(format string, v ...any) { get().Warn(fmt.Sprintf(format, v...)) }

// Errorf logs a printf-style message at error level.
func Errorf(format string, v ...any) { get().Error(fmt.Sprintf(format, v...)) }

// With returns a logger with additional pre-bound fields.
func With(args ...any) *slog.Logger { return get().With(args...) }
