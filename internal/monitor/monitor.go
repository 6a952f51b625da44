// Package monitor runs the alert cycle: load persons, fetch hazards, filter
// by type, compute proximity alerts, persist and publish them.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/alumni-hazard-monitor/internal/domain"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/observability"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/retry"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
)

// Store persists persons, hazard events, and the current alert set.
type Store interface {
	ListPersons(ctx context.Context) ([]domain.PersonLocation, error)
	UpsertDisasters(ctx context.Context, events []domain.DisasterEvent) error
	ReplaceAlerts(ctx context.Context, runID string, alerts []domain.ProximityAlert) error
}

// DisasterSource returns normalized hazard events. It never fails; an
// unavailable upstream yields an empty batch.
type DisasterSource interface {
	Disasters(ctx context.Context, q domain.FeedQuery) domain.FeedBatch
}

// AlertPublisher delivers the alerts of one run downstream.
type AlertPublisher interface {
	Publish(ctx context.Context, runID string, alerts []domain.ProximityAlert) error
}

// Config holds the cycle parameters.
type Config struct {
	FeedQuery    domain.FeedQuery
	ThresholdKm  float64
	Types        []string
	Schedule     string
	PublishRetry retry.Policy
}

// Snapshot is the result of the most recent completed cycle.
type Snapshot struct {
	RunID       string                  `json:"run_id"`
	GeneratedAt time.Time               `json:"generated_at"`
	ThresholdKm float64                 `json:"threshold_km"`
	Types       []string                `json:"types"`
	Persons     int                     `json:"persons"`
	Alerts      []domain.ProximityAlert `json:"alerts"`
	Disasters   []domain.DisasterEvent  `json:"disasters"`
	Dropped     int                     `json:"dropped"`
}

// Monitor orchestrates the alert cycle.
type Monitor struct {
	store     Store
	source    DisasterSource
	catalog   domain.Catalog
	publisher AlertPublisher
	cfg       Config
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	ready    atomic.Bool
	mu       sync.RWMutex
	snapshot Snapshot
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithPublisher enables alert publishing.
func WithPublisher(p AlertPublisher) Option {
	return func(m *Monitor) { m.publisher = p }
}

// WithClock sets the clock used for publish backoff.
func WithClock(c clockwork.Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

// New creates a Monitor. Config.ThresholdKm and Config.Types must be valid.
func New(store Store, source DisasterSource, catalog domain.Catalog, cfg Config, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) (*Monitor, error) {
	if err := domain.ValidateThreshold(cfg.ThresholdKm); err != nil {
		return nil, err
	}
	if err := catalog.ValidateTypes(cfg.Types); err != nil {
		return nil, err
	}
	cfg.PublishRetry = cfg.PublishRetry.Normalize()

	m := &Monitor{
		store:   store,
		source:  source,
		catalog: catalog,
		cfg:     cfg,
		clock:   clockwork.NewRealClock(),
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// CheckReadiness returns nil once a cycle has completed.
func (m *Monitor) CheckReadiness(_ context.Context) error {
	if !m.ready.Load() {
		return errors.New("monitor has not completed a cycle yet")
	}
	return nil
}

// Latest returns the most recent snapshot and whether one exists.
func (m *Monitor) Latest() (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot, m.ready.Load()
}

// Run executes a cycle immediately and then on the configured cron schedule
// until ctx is cancelled. Overlapping cycles are skipped.
func (m *Monitor) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{m.logger})))
	if _, err := c.AddFunc(m.cfg.Schedule, func() { m.runScheduled(ctx) }); err != nil {
		return fmt.Errorf("invalid monitor schedule %q: %w", m.cfg.Schedule, err)
	}

	m.logger.Info("monitor started",
		"schedule", m.cfg.Schedule,
		"threshold_km", m.cfg.ThresholdKm,
		"types", m.cfg.Types,
	)
	m.metrics.MonitorRunning.Set(1)
	defer m.metrics.MonitorRunning.Set(0)

	m.runScheduled(ctx)
	c.Start()

	<-ctx.Done()
	m.logger.Info("monitor stopping", "reason", ctx.Err())
	<-c.Stop().Done()
	return nil
}

func (m *Monitor) runScheduled(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := m.RunOnce(ctx); err != nil && ctx.Err() == nil {
		m.logger.Error("monitor cycle failed", "error", err)
	}
}

// RunOnce executes one full cycle and returns its snapshot.
func (m *Monitor) RunOnce(ctx context.Context) (Snapshot, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := m.logger.With("run_id", runID)

	snap, err := m.cycle(ctx, runID, logger)
	if err != nil {
		m.metrics.Cycles.WithLabelValues("error").Inc()
		return Snapshot{}, err
	}

	m.mu.Lock()
	m.snapshot = snap
	m.mu.Unlock()
	m.ready.Store(true)

	m.metrics.Cycles.WithLabelValues("success").Inc()
	m.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	m.metrics.ActiveAlerts.Set(float64(len(snap.Alerts)))
	logger.Info("monitor cycle complete",
		"persons", snap.Persons,
		"disasters", len(snap.Disasters),
		"dropped", snap.Dropped,
		"alerts", len(snap.Alerts),
		"duration", time.Since(start),
	)
	return snap, nil
}

func (m *Monitor) cycle(ctx context.Context, runID string, logger *slog.Logger) (Snapshot, error) {
	persons, err := m.store.ListPersons(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list persons: %w", err)
	}

	batch := m.source.Disasters(ctx, m.cfg.FeedQuery)
	if err := m.store.UpsertDisasters(ctx, batch.Events); err != nil {
		logger.Warn("persist disasters failed", "error", err, "count", len(batch.Events))
	}

	disasters := m.catalog.Filter(batch.Events, m.cfg.Types)
	alerts, err := domain.FindNearby(persons, disasters, m.cfg.ThresholdKm)
	if err != nil {
		return Snapshot{}, err
	}

	if err := m.store.ReplaceAlerts(ctx, runID, alerts); err != nil {
		return Snapshot{}, fmt.Errorf("store alerts: %w", err)
	}
	m.publish(ctx, runID, alerts, logger)

	return Snapshot{
		RunID:       runID,
		GeneratedAt: domain.Now(),
		ThresholdKm: m.cfg.ThresholdKm,
		Types:       m.cfg.Types,
		Persons:     len(persons),
		Alerts:      alerts,
		Disasters:   disasters,
		Dropped:     batch.Dropped,
	}, nil
}

// publish retries with backoff. A final failure is logged and does not fail
// the cycle, since the alerts are already stored.
func (m *Monitor) publish(ctx context.Context, runID string, alerts []domain.ProximityAlert, logger *slog.Logger) {
	if m.publisher == nil || len(alerts) == 0 {
		return
	}

	policy := m.cfg.PublishRetry
	backoff := policy.Initial
	var err error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		if err = m.publisher.Publish(ctx, runID, alerts); err == nil {
			m.metrics.AlertsPublished.Add(float64(len(alerts)))
			return
		}
		logger.Warn("publish alerts failed", "attempt", attempt, "error", err)
		if attempt == policy.Attempts || !retry.Sleep(ctx, m.clock, backoff) {
			break
		}
		backoff = policy.Next(backoff)
	}
	m.metrics.PublishErrors.Inc()
	logger.Error("giving up publishing alerts", "count", len(alerts), "error", err)
}

// cronLogger routes cron's own messages through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
