// Package logger provides structured, slog-backed logging for the pipeline,
// with convenience helpers for the job-correlated log lines the orchestrator
// emits at each pipeline stage.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with convenience methods.
type Logger struct {
	*slog.Logger
}

// LogLevel represents logging levels.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	defaultLogger *Logger
	currentLevel  = LevelInfo
	colorEnabled  = true
)

// Init initializes the global logger with the specified level. NO_COLOR
// disables ANSI coloring of the startup banner and HTTP access log, per the
// host-environment convention the pipeline recognizes.
func Init(level string) {
	switch strings.ToLower(level) {
	case "debug":
		currentLevel = LevelDebug
	case "info", "":
		currentLevel = LevelInfo
	case "warn", "warning":
		currentLevel = LevelWarn
	case "error":
		currentLevel = LevelError
	default:
		currentLevel = LevelInfo
	}

	if os.Getenv("NO_COLOR") != "" {
		colorEnabled = false
	}

	var slogLevel slog.Level
	switch currentLevel {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelInfo:
		slogLevel = slog.LevelInfo
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level:     slogLevel,
		AddSource: false,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   a.Key,
					Value: slog.StringValue(a.Value.Time().Format("15:04:05")),
				}
			}
			if a.Key == slog.LevelKey {
				level := a.Value.Any().(slog.Level)
				switch level {
				case slog.LevelDebug:
					a.Value = slog.StringValue("DEBUG")
				case slog.LevelInfo:
					a.Value = slog.StringValue("INFO ")
				case slog.LevelWarn:
					a.Value = slog.StringValue("WARN ")
				case slog.LevelError:
					a.Value = slog.StringValue("ERROR")
				}
			}
			return a
		},
	}

	// stderr, so stdout stays reserved for the line-delimited control protocol.
	handler := slog.NewTextHandler(os.Stderr, opts)
	defaultLogger = &Logger{slog.New(handler)}
}

// Get returns the default logger instance, initializing it from LOG_LEVEL on
// first use.
func Get() *Logger {
	if defaultLogger == nil {
		Init(os.Getenv("LOG_LEVEL"))
	}
	return defaultLogger
}

// GetLevel returns the current log level.
func GetLevel() LogLevel {
	return currentLevel
}

func Debug(msg string, args ...any) {
	if currentLevel <= LevelDebug {
		Get().Debug(msg, args...)
	}
}

func Info(msg string, args ...any) {
	if currentLevel <= LevelInfo {
		Get().Info(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if currentLevel <= LevelWarn {
		Get().Warn(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if currentLevel <= LevelError {
		Get().Error(msg, args...)
	}
}

// WithContext creates a logger with additional context.
func WithContext(key string, value any) *Logger {
	return &Logger{Get().With(key, value)}
}

// Startup prints a clean, human-facing line for a major initialization step.
func Startup(step, message string, args ...any) {
	if currentLevel <= LevelInfo {
		if colorEnabled {
			fmt.Fprintf(os.Stderr, "\033[36m[+]\033[0m %s\n", message)
		} else {
			fmt.Fprintf(os.Stderr, "[+] %s\n", message)
		}
	}
	if currentLevel <= LevelDebug {
		Debug("startup step", append([]any{"step", step, "message", message}, args...)...)
	}
}

// Stage logs a single pipeline-stage transition, keyed by job_id, per the
// executor's per-stage correlation requirement.
func Stage(jobID, stage, event string, args ...any) {
	Info("pipeline stage", append([]any{"job_id", jobID, "stage", stage, "event", event}, args...)...)
}

// JobStarted logs the start of a job's processing.
func JobStarted(jobID, audioRef string, opts map[string]any) {
	Info("job started", "job_id", jobID, "audio_ref", audioRef)
	Debug("job started detail", "job_id", jobID, "audio_ref", audioRef, "options", opts)
}

func JobCompleted(jobID string, duration time.Duration) {
	Info("job completed", "job_id", jobID, "duration", duration.String())
}

func JobFailed(jobID string, duration time.Duration, stage string, err error) {
	Error("job failed", "job_id", jobID, "stage", stage, "duration", duration.String(), "error", err.Error())
}

// WorkerOperation logs a heavy-worker-pool operation.
func WorkerOperation(worker, jobID, operation string, args ...any) {
	Debug("worker operation", append([]any{"worker", worker, "job_id", jobID, "operation", operation}, args...)...)
}

// Performance records a timed operation at debug level.
func Performance(operation string, duration time.Duration, details ...any) {
	Debug("performance", append([]any{"operation", operation, "duration", duration.String()}, details...)...)
}

// GinLogger is a Gin middleware for the read-only HTTP admin surface.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		duration := time.Since(start)
		if raw != "" {
			path = path + "?" + raw
		}

		if currentLevel <= LevelInfo && (path == "/healthz" || path == "/metrics") {
			return
		}

		status := c.Writer.Status()
		if currentLevel <= LevelDebug {
			Debug("http request",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"duration", fmt.Sprintf("%.2fms", float64(duration.Nanoseconds())/1e6),
				"ip", c.ClientIP())
			return
		}

		statusColor, reset := getStatusColor(status), "\033[0m"
		if !colorEnabled {
			statusColor, reset = "", ""
		}
		fmt.Fprintf(os.Stderr, "INFO  %s %s %s %s%d%s %s\n",
			time.Now().Format("15:04:05"),
			c.Request.Method,
			path,
			statusColor,
			status,
			reset,
			fmt.Sprintf("%.2fms", float64(duration.Nanoseconds())/1e6))
	}
}

func getStatusColor(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "\033[32m"
	case status >= 300 && status < 400:
		return "\033[33m"
	case status >= 400 && status < 500:
		return "\033[31m"
	case status >= 500:
		return "\033[35m"
	default:
		return "\033[37m"
	}
}

// SetGinOutput configures Gin to suppress its own default access log; the
// pipeline's GinLogger middleware replaces it.
func SetGinOutput() {
	gin.DefaultWriter = io.Discard
}
