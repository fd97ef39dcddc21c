package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide slog.Logger. Deployments set
// LOG_FORMAT=json for structured output; anything else gets the text
// handler for local reading. Source locations are always attached.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
