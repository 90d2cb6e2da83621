package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jwebster45206/hushpath/internal/config"
)

// Rotation limits for LOG_FILE
const (
	maxSizeMB  = 20
	maxBackups = 3
	maxAgeDays = 14
)

// Setup configures the global slog logger based on environment. Output
// goes to stdout, or to a rotating file when cfg.LogFile is set.
func Setup(cfg *config.Config) *slog.Logger {
	var w io.Writer = os.Stdout
	color := true
	if cfg.LogFile != "" {
		_ = os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755)
		w = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   true,
		}
		color = false
	}

	logger := New(w, cfg.Environment, cfg.Level(), color)

	// Set as default logger
	slog.SetDefault(logger)

	return logger
}

// New builds a logger writing to w: JSON in production, tint text otherwise.
func New(w io.Writer, environment string, level slog.Level, color bool) *slog.Logger {
	var handler slog.Handler
	if environment == "production" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
			AddSource:  level == slog.LevelDebug,
			NoColor:    !color,
		})
	}
	return slog.New(handler)
}

// WithRequestID adds request ID to logger context
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With("request_id", requestID)
}

// WithError adds error to logger context
func WithError(logger *slog.Logger, err error) *slog.Logger {
	return logger.With("error", err.Error())
}
