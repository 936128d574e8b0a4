// Package metrics reports per-item processing outcomes to a dashboard side
// channel. Recording is fire-and-forget: a sink failure is logged and never
// fails the job or batch item that produced the sample.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/dkathuria/taskpipe/internal/cache"
)

// Sample is one processing outcome.
type Sample struct {
	ToolType string
	FileType string
	Duration time.Duration
	Success  bool
	Extra    map[string]any
}

// Sink receives samples. Implementations must swallow their own errors.
type Sink interface {
	Record(ctx context.Context, s Sample)
}

// RedisSink aggregates samples into daily counters for dashboards, keyed as
// metrics:{tool}:{day}:{outcome}. Counters expire after the retention window.
type RedisSink struct {
	cache     cache.Cache
	retention time.Duration
}

// NewRedisSink creates a RedisSink with the given counter retention.
func NewRedisSink(c cache.Cache, retention time.Duration) *RedisSink {
	if retention <= 0 {
		retention = 48 * time.Hour
	}
	return &RedisSink{cache: c, retention: retention}
}

func (s *RedisSink) Record(ctx context.Context, sample Sample) {
	outcome := "success"
	if !sample.Success {
		outcome = "failure"
	}
	day := time.Now().UTC().Format("2006-01-02")

	key := cache.MetricsKey(sample.ToolType, day, outcome)
	if _, err := s.cache.IncrWithExpiry(ctx, key, s.retention); err != nil {
		slog.Warn("metrics counter write failed", "key", key, "error", err)
		return
	}

	slog.Debug("metrics sample",
		"tool_type", sample.ToolType,
		"file_type", sample.FileType,
		"duration_ms", sample.Duration.Milliseconds(),
		"success", sample.Success,
	)
}

// NopSink discards all samples.
type NopSink struct{}

func (NopSink) Record(context.Context, Sample) {}

var (
	_ Sink = (*RedisSink)(nil)
	_ Sink = NopSink{}
)
