package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sort"
	"strings"
	"time"
)

// LogLevel is a thin enum for user friendly level configuration decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a case-insensitive level name into a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug, nil
	case "info", "":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger defines the minimal logging interface for hookmesh.
// Arguments after the message are alternating keys and values.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// HookLogger is a slog backed Logger that carries hook scoped attributes.
// With* methods return copies; the receiver is never modified.
type HookLogger struct {
	logger *slog.Logger
	level  LogLevel
	attrs  []slog.Attr
}

// LoggerConfig configures construction of a HookLogger.
type LoggerConfig struct {
	Level       LogLevel
	Format      string // json or text
	Output      io.Writer
	AddSource   bool
	Component   string
	CustomAttrs map[string]any
}

// DefaultLoggerConfig returns a baseline JSON info level configuration writing to stderr.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stderr, CustomAttrs: map[string]any{}}
}

// NewLogger builds a HookLogger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) *HookLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: cfg.Level.slogLevel(), AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	l := &HookLogger{logger: slog.New(handler), level: cfg.Level}
	if cfg.Component != "" {
		l = l.with(slog.String("component", cfg.Component))
	}

	keys := make([]string, 0, len(cfg.CustomAttrs))
	for k := range cfg.CustomAttrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		l = l.with(slog.Any(k, cfg.CustomAttrs[k]))
	}

	return l
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// with returns a copy carrying attrs, replacing attributes of the same key.
func (l *HookLogger) with(attrs ...slog.Attr) *HookLogger {
	nl := &HookLogger{logger: l.logger, level: l.level, attrs: make([]slog.Attr, 0, len(l.attrs)+len(attrs))}
	for _, a := range l.attrs {
		if !slices.ContainsFunc(attrs, func(b slog.Attr) bool { return b.Key == a.Key }) {
			nl.attrs = append(nl.attrs, a)
		}
	}
	nl.attrs = append(nl.attrs, attrs...)
	return nl
}

// WithContext adds a key/value attribute that will be attached to every log entry.
func (l *HookLogger) WithContext(key string, value any) *HookLogger {
	return l.with(slog.Any(key, value))
}

// WithComponent sets the logical component (registry, table, lua, cli).
func (l *HookLogger) WithComponent(c string) *HookLogger {
	return l.with(slog.String("component", c))
}

// WithDispatch scopes the logger to one dispatch of a hook.
func (l *HookLogger) WithDispatch(hook, dispatchID string) *HookLogger {
	return l.with(slog.String("hook", hook), slog.String("dispatch_id", dispatchID))
}

func (l *HookLogger) log(level slog.Level, msg string, args ...any) {
	if level < l.level.slogLevel() {
		return
	}
	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.AddAttrs(l.attrs...)
	r.Add(args...)
	_ = l.logger.Handler().Handle(context.Background(), r)
}

// Debug logs at debug level.
func (l *HookLogger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }

// Info logs at info level.
func (l *HookLogger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args...) }

// Warn logs at warn level.
func (l *HookLogger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args...) }

// Error logs at error level.
func (l *HookLogger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

// LogDispatch records the end of a dispatch. Use it on a logger returned by
// WithDispatch. Failures are logged at error level, successes at info.
func (l *HookLogger) LogDispatch(mode string, depth int, dur time.Duration, err error) {
	if err != nil {
		l.log(slog.LevelError, "hook.dispatch.error", "mode", mode, "depth", depth, "duration", dur, "error", err.Error())
		return
	}
	l.log(slog.LevelInfo, "hook.dispatch.done", "mode", mode, "depth", depth, "duration", dur)
}

// LogRegistration records a callback being added to or removed from a hook
// at debug level.
func (l *HookLogger) LogRegistration(hook, key string, priority, arity int, added bool) {
	if !added {
		l.log(slog.LevelDebug, "hook.unregister", "hook", hook, "callback", key, "priority", priority)
		return
	}
	l.log(slog.LevelDebug, "hook.register", "hook", hook, "callback", key, "priority", priority, "arity", arity)
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

// NewSlogLogger creates a new HookLogger with the specified configuration.
func NewSlogLogger(level LogLevel, format string, addSource bool) *HookLogger {
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	if format != "" {
		cfg.Format = format
	}
	cfg.AddSource = addSource
	return NewLogger(cfg)
}
