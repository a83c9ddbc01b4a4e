// Package monitoring records how long each evaluation pipeline stage takes
// and how much it allocated.
package monitoring

import (
	"runtime"
	"sync"
	"time"
)

// StageMetrics represents performance metrics for a single pipeline stage.
type StageMetrics struct {
	Stage         string        `json:"stage"`
	Duration      time.Duration `json:"duration"`
	RowsProcessed int           `json:"rows_processed"`
	MemoryDelta   int64         `json:"memory_delta"`
	Parallel      bool          `json:"parallel"`
	Failed        bool          `json:"failed"`
}

// MetricsCollector collects and stores stage metrics. It is safe for
// concurrent use.
type MetricsCollector struct {
	mu      sync.RWMutex
	metrics []StageMetrics
	enabled bool
	now     func() time.Time
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector(enabled bool) *MetricsCollector {
	return &MetricsCollector{
		metrics: make([]StageMetrics, 0),
		enabled: enabled,
		now:     time.Now,
	}
}

// IsEnabled returns whether metrics collection is enabled.
func (mc *MetricsCollector) IsEnabled() bool {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.enabled
}

// SetEnabled enables or disables metrics collection.
func (mc *MetricsCollector) SetEnabled(enabled bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.enabled = enabled
}

// RecordStage executes fn and records its duration against stage. rows is
// the number of input rows the stage worked on. fn's error is returned
// unchanged and the stage is marked failed.
func (mc *MetricsCollector) RecordStage(stage string, rows int, fn func() error) error {
	return mc.record(stage, rows, false, fn)
}

// RecordParallelStage is RecordStage for stages that fan out to the
// worker pool.
func (mc *MetricsCollector) RecordParallelStage(stage string, rows int, fn func() error) error {
	return mc.record(stage, rows, true, fn)
}

func (mc *MetricsCollector) record(stage string, rows int, parallel bool, fn func() error) error {
	if mc == nil || !mc.IsEnabled() {
		return fn()
	}

	var memBefore runtime.MemStats
	runtime.ReadMemStats(&memBefore)
	start := mc.now()

	err := fn()

	duration := mc.now().Sub(start)
	var memAfter runtime.MemStats
	runtime.ReadMemStats(&memAfter)

	//nolint:gosec // heap sizes fit comfortably in int64
	delta := int64(memAfter.TotalAlloc) - int64(memBefore.TotalAlloc)

	mc.mu.Lock()
	mc.metrics = append(mc.metrics, StageMetrics{
		Stage:         stage,
		Duration:      duration,
		RowsProcessed: rows,
		MemoryDelta:   delta,
		Parallel:      parallel,
		Failed:        err != nil,
	})
	mc.mu.Unlock()

	return err
}

// GetMetrics returns a copy of all collected metrics in recording order.
func (mc *MetricsCollector) GetMetrics() []StageMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	// Return a copy to avoid race conditions
	result := make([]StageMetrics, len(mc.metrics))
	copy(result, mc.metrics)
	return result
}

// Clear removes all collected metrics.
func (mc *MetricsCollector) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.metrics = mc.metrics[:0]
}

// GetSummary returns a summary of collected metrics.
func (mc *MetricsCollector) GetSummary() MetricsSummary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if len(mc.metrics) == 0 {
		return MetricsSummary{}
	}

	var summary MetricsSummary
	stageCounts := make(map[string]int)
	var slowest time.Duration
	for _, m := range mc.metrics {
		summary.TotalDuration += m.Duration
		summary.TotalMemory += m.MemoryDelta
		if m.Failed {
			summary.FailedStages++
		}
		if m.Duration >= slowest {
			slowest = m.Duration
			summary.SlowestStage = m.Stage
		}
		stageCounts[m.Stage]++
	}
	summary.TotalStages = len(mc.metrics)
	summary.StageCounts = stageCounts
	summary.AverageDuration = summary.TotalDuration / time.Duration(len(mc.metrics))
	return summary
}

// MetricsSummary provides aggregate statistics for collected metrics.
type MetricsSummary struct {
	TotalStages     int            `json:"total_stages"`
	FailedStages    int            `json:"failed_stages"`
	TotalDuration   time.Duration  `json:"total_duration"`
	TotalMemory     int64          `json:"total_memory"`
	StageCounts     map[string]int `json:"stage_counts"`
	AverageDuration time.Duration  `json:"average_duration"`
	SlowestStage    string         `json:"slowest_stage"`
}
