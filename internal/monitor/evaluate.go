package monitor

import (
	"context"
	"fmt"

	"github.com/couchcryptid/alumni-hazard-monitor/internal/domain"
)

// Evaluate computes alerts for an ad-hoc threshold and type selection without
// storing or publishing them. A nil types slice uses the configured types.
func (m *Monitor) Evaluate(ctx context.Context, thresholdKm float64, types []string) ([]domain.ProximityAlert, error) {
	if err := domain.ValidateThreshold(thresholdKm); err != nil {
		return nil, err
	}
	disasters, err := m.Disasters(ctx, types)
	if err != nil {
		return nil, err
	}
	persons, err := m.store.ListPersons(ctx)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	return domain.FindNearby(persons, disasters, thresholdKm)
}

// Disasters returns the current feed filtered by types. A nil types slice
// uses the configured types.
func (m *Monitor) Disasters(ctx context.Context, types []string) ([]domain.DisasterEvent, error) {
	if types == nil {
		types = m.cfg.Types
	}
	if err := m.catalog.ValidateTypes(types); err != nil {
		return nil, err
	}
	batch := m.source.Disasters(ctx, m.cfg.FeedQuery)
	return m.catalog.Filter(batch.Events, types), nil
}

// Types lists the disaster type names known to the catalog.
func (m *Monitor) Types() []string {
	return m.catalog.Names()
}

// Threshold is the configured alert distance in kilometers.
func (m *Monitor) Threshold() float64 {
	return m.cfg.ThresholdKm
}
