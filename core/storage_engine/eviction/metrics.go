package eviction

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the otel instruments backing the three counters this
// package reports, registered on the application's shared metric.Meter.
type Metrics struct {
	EvictUnmodified metric.Int64Counter // cache_evict_unmodified
	EvictModified   metric.Int64Counter // cache_evict_modified
	RecHazard       metric.Int64Counter // rec_hazard
}

// NewMetrics creates and registers the eviction counters on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	evictUnmodified, err := meter.Int64Counter(
		"gojodb.cache.evict.unmodified_total",
		metric.WithDescription("Number of clean pages evicted from the cache."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	evictModified, err := meter.Int64Counter(
		"gojodb.cache.evict.modified_total",
		metric.WithDescription("Number of dirty pages reconciled and evicted from the cache."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	recHazard, err := meter.Int64Counter(
		"gojodb.cache.evict.hazard_retry_total",
		metric.WithDescription("Number of times exclusive-access acquisition found a live hazard reference."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		EvictUnmodified: evictUnmodified,
		EvictModified:   evictModified,
		RecHazard:       recHazard,
	}, nil
}

func (m *Metrics) incUnmodified(ctx context.Context) {
	if m == nil {
		return
	}
	m.EvictUnmodified.Add(ctx, 1)
}

func (m *Metrics) incModified(ctx context.Context) {
	if m == nil {
		return
	}
	m.EvictModified.Add(ctx, 1)
}

func (m *Metrics) incHazardRetry(ctx context.Context) {
	if m == nil {
		return
	}
	m.RecHazard.Add(ctx, 1)
}
