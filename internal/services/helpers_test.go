package services

import (
	"io"
	"log/slog"
	"time"

	"github.com/jwebster45206/hushpath/internal/retry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{Attempts: attempts, Initial: time.Millisecond}
}
