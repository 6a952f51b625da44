package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/couchcryptid/alumni-hazard-monitor/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Level(t *testing.T) {
	ctx := context.Background()

	debug := NewLogger(&config.Config{LogLevel: "debug", LogFormat: "text"})
	require.NotNil(t, debug)
	assert.True(t, debug.Enabled(ctx, slog.LevelDebug))

	info := NewLogger(&config.Config{LogLevel: "info", LogFormat: "json"})
	require.NotNil(t, info)
	assert.False(t, info.Enabled(ctx, slog.LevelDebug))
	assert.True(t, info.Enabled(ctx, slog.LevelInfo))
}

func TestNewMetricsForTesting_NotRegistered(t *testing.T) {
	m1 := NewMetricsForTesting()
	m2 := NewMetricsForTesting()

	m1.Resolutions.WithLabelValues("region").Inc()
	m2.FeedFetches.WithLabelValues("success").Inc()

	assert.NotSame(t, m1, m2)
}
