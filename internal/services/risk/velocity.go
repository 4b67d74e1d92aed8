package risk

import (
	"context"
	"fmt"
	"time"
)

// VelocityTracker maintains per-subject counters over a 1 hour and a 24 hour
// window. The windows are independent fixed buckets that start at the first
// observation and expire with the store TTL.
type VelocityTracker struct {
	store   SignalStore
	metrics MetricsCollector
}

// NewVelocityTracker creates a tracker on top of store.
func NewVelocityTracker(store SignalStore, metrics MetricsCollector) *VelocityTracker {
	if store == nil {
		panic("signal store is required")
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	return &VelocityTracker{store: store, metrics: metrics}
}

// VelocityKey builds the counter key for (kind, id, window).
func VelocityKey(kind SubjectKind, id string, window time.Duration) string {
	return fmt.Sprintf("%s:%s:%s:%d", VelocityKeyPrefix, kind, id, int64(window/time.Second))
}

// Observe records one occurrence for the subject in both windows and returns
// the post-increment counts. On store failure it returns zero counts and the
// error; the caller must degrade, not fail.
func (t *VelocityTracker) Observe(ctx context.Context, kind SubjectKind, id string) (VelocityCounts, error) {
	hour, err := t.ObserveWindow(ctx, kind, id, WindowHour)
	if err != nil {
		return VelocityCounts{}, err
	}
	day, err := t.ObserveWindow(ctx, kind, id, WindowDay)
	if err != nil {
		return VelocityCounts{}, err
	}
	return VelocityCounts{Hour: hour, Day: day}, nil
}

// ObserveWindow increments a single window counter atomically.
func (t *VelocityTracker) ObserveWindow(ctx context.Context, kind SubjectKind, id string, window time.Duration) (int64, error) {
	n, err := t.store.Increment(ctx, VelocityKey(kind, id, window), window)
	if err != nil {
		t.metrics.RecordStoreError("velocity_increment")
		return 0, fmt.Errorf("velocity increment %s/%s: %w", kind, id, err)
	}
	return n, nil
}

// WindowCount reads a counter without modifying it.
func (t *VelocityTracker) WindowCount(ctx context.Context, kind SubjectKind, id string, window time.Duration) (int64, error) {
	n, err := t.store.Count(ctx, VelocityKey(kind, id, window))
	if err != nil {
		t.metrics.RecordStoreError("velocity_count")
		return 0, fmt.Errorf("velocity count %s/%s: %w", kind, id, err)
	}
	return n, nil
}
