// Package logger wires log/slog for the whole process.  Text output goes
// through tint (colored only on a terminal); LOG_FORMAT=json switches to the
// standard JSON handler.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"

	"github.com/Kaplan-Paving/fleet-backend/internal/config"
)

var (
	mu     sync.Mutex
	logger *slog.Logger
	level  = new(slog.LevelVar)
)

// Init builds the process logger from cfg and installs it as slog's default.
func Init(cfg config.LoggerConfig) error {
	level.Set(parseLevel(cfg.Level))

	var w io.Writer
	switch strings.ToLower(cfg.OutputPath) {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		w = f
	}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		h = newTint(w)
	}
	// warn and error carry source locations
	h = NewConditionalSourceHandler(h, slog.LevelWarn, slog.LevelError)

	mu.Lock()
	logger = slog.New(h)
	mu.Unlock()
	slog.SetDefault(logger)
	return nil
}

// Get returns the process logger, building a default tint logger on first
// use when Init was never called (tests, CLI helpers).
func Get() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = slog.New(NewConditionalSourceHandler(newTint(os.Stdout), slog.LevelWarn, slog.LevelError))
	}
	return logger
}

// WithComponent tags every record with a component attribute.
func WithComponent(component string) *slog.Logger {
	return Get().With("component", component)
}

// SetLevel adjusts the level at runtime.
func SetLevel(l slog.Level) { level.Set(l) }

func newTint(w io.Writer) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    !isTerminal(w),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" && a.Value.Kind() == slog.KindAny {
				if err, ok := a.Value.Any().(error); ok {
					return tint.Err(err)
				}
			}
			return a
		},
	})
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}
