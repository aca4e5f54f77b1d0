package utils

import (
	"log/slog"
	"os"
)

// Logger is the store's logging surface; anything slog-shaped fits.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// DefaultLogger writes text records to stderr, tagged app=refactory.
type DefaultLogger struct {
	logger *slog.Logger
}

func NewDefaultLogger(level slog.Level) *DefaultLogger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &DefaultLogger{logger: slog.New(h).With("app", "refactory")}
}

func (d *DefaultLogger) Debug(msg string, args ...any) { d.logger.Debug(msg, args...) }
func (d *DefaultLogger) Info(msg string, args ...any)  { d.logger.Info(msg, args...) }
func (d *DefaultLogger) Warn(msg string, args ...any)  { d.logger.Warn(msg, args...) }
func (d *DefaultLogger) Error(msg string, args ...any) { d.logger.Error(msg, args...) }
