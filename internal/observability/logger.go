// Package observability builds the service logger and Prometheus metrics.
package observability

import (
	"log/slog"

	"github.com/couchcryptid/alumni-hazard-monitor/internal/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// NewLogger creates a slog logger using the configured format ("json" or
// "text") and level.
func NewLogger(cfg *config.Config) *slog.Logger {
	return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
}
