package observability

import (
	"log/slog"
	"os"
)

func NewLogger(env string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if env == "local" || env == "dev" {
		opts.Level = slog.LevelDebug
	}
	if jsonOutput {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
