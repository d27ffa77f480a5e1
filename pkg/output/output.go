package output

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pterm/pterm"
)

// LevelTrace is lower than debug and enables header logging
const LevelTrace = slog.LevelDebug - 4

// Logger wraps slog.Logger with context-aware methods
type Logger interface {
	// Component returns a logger for a specific component
	Component(name string) Logger
	// With returns a logger with additional attributes
	With(args ...any) Logger
	// Slog exposes the underlying logger for libraries that take *slog.Logger
	Slog() *slog.Logger

	// Standard log levels
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// OutputLogger handles both user output and structured logging
type OutputLogger struct {
	Logger
	jsonMode bool
}

// New creates a new OutputLogger
// If jsonMode is true, only structured logs go to stdout
// If jsonMode is false, structured logs go to file and user messages use pterm
func New(jsonMode bool) (*OutputLogger, error) {
	var slogLogger *slog.Logger

	if jsonMode {
		handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: getLogLevel(),
		})
		slogLogger = slog.New(handler)
	} else {
		logFile, err := getLogFilePath()
		if err != nil {
			return nil, fmt.Errorf("failed to get log file path: %w", err)
		}

		if err := os.MkdirAll(filepath.Dir(logFile), 0700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}

		handler := slog.NewTextHandler(file, &slog.HandlerOptions{
			Level: getLogLevel(),
		})
		slogLogger = slog.New(handler)
	}

	return &OutputLogger{
		Logger:   &loggerImpl{slog: slogLogger},
		jsonMode: jsonMode,
	}, nil
}

// NewWithSlog wraps an existing logger, mostly for tests
func NewWithSlog(logger *slog.Logger, jsonMode bool) *OutputLogger {
	return &OutputLogger{Logger: &loggerImpl{slog: logger}, jsonMode: jsonMode}
}

// JSONMode reports whether user output is structured
func (ol *OutputLogger) JSONMode() bool {
	return ol.jsonMode
}

// getLogLevel returns the log level from LOG_LEVEL env var, defaulting to info
func getLogLevel() slog.Level {
	return parseLevel(os.Getenv("LOG_LEVEL"))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "trace":
		return LevelTrace
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

// getLogFilePath returns the path to the log file
func getLogFilePath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".coachsync", "coachsync.log"), nil
}

// Progress shows ongoing operations
func (ol *OutputLogger) Progress(format string, args ...any) {
	if ol.jsonMode {
		ol.Logger.Info("progress", "message", fmt.Sprintf(format, args...))
	} else {
		pterm.Info.Printf(format+"\n", args...)
	}
}

// Status shows important state changes
func (ol *OutputLogger) Status(format string, args ...any) {
	if ol.jsonMode {
		ol.Logger.Info("status", "message", fmt.Sprintf(format, args...))
	} else {
		pterm.Success.Printf(format+"\n", args...)
	}
}

// Warning shows a non-fatal problem
func (ol *OutputLogger) Warning(format string, args ...any) {
	if ol.jsonMode {
		ol.Logger.Warn("warning", "message", fmt.Sprintf(format, args...))
	} else {
		pterm.Warning.Printf(format+"\n", args...)
	}
}

// Result shows final results/summaries
func (ol *OutputLogger) Result(format string, args ...any) {
	if ol.jsonMode {
		ol.Logger.Info("result", "message", fmt.Sprintf(format, args...))
	} else {
		pterm.Success.Printf("🎯 "+format+"\n", args...)
	}
}

// Error shows user-facing errors
func (ol *OutputLogger) Error(format string, args ...any) {
	if ol.jsonMode {
		ol.Logger.Error("user_error", "message", fmt.Sprintf(format, args...))
	} else {
		pterm.Error.Printf(format+"\n", args...)
	}
}

// Table renders rows under a header. In JSON mode nothing is printed; use JSON instead.
func (ol *OutputLogger) Table(header []string, rows [][]string) error {
	if ol.jsonMode {
		return nil
	}
	data := pterm.TableData{header}
	data = append(data, rows...)
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// JSON outputs structured data (only in JSON mode)
func (ol *OutputLogger) JSON(data any) error {
	if !ol.jsonMode {
		return nil
	}
	encoder := json.NewEncoder(os.Stdout)
	return encoder.Encode(data)
}

// LogAndShowError logs an error with full context and shows a user-friendly message
func (ol *OutputLogger) LogAndShowError(err error, userMsg string, args ...any) {
	ol.Logger.Error("operation_failed", "error", err.Error(), "user_message", fmt.Sprintf(userMsg, args...))
	ol.Error(userMsg, args...)
}

// loggerImpl implements Logger interface
type loggerImpl struct {
	slog *slog.Logger
}

func (l *loggerImpl) Component(name string) Logger {
	return &loggerImpl{slog: l.slog.With("component", name)}
}

func (l *loggerImpl) With(args ...any) Logger {
	return &loggerImpl{slog: l.slog.With(args...)}
}

func (l *loggerImpl) Slog() *slog.Logger {
	return l.slog
}

func (l *loggerImpl) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

func (l *loggerImpl) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

func (l *loggerImpl) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

func (l *loggerImpl) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}
