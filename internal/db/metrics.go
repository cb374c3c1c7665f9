package db

import (
	"context"
	"time"
)

type AlertMetric string

const (
	MetricErrorRate    AlertMetric = "error_rate"
	MetricResponseTime AlertMetric = "response_time"
	MetricThroughput   AlertMetric = "throughput"
)

type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

type ResourceSample struct {
	HeapMB        float64   `json:"heap_mb"`
	Goroutines    int       `json:"goroutines"`
	GCCPUFraction float64   `json:"gc_cpu_fraction"`
	SampledTs     time.Time `json:"sampled_ts"`
}

// MetricsBucket accumulates execution outcomes for one algorithm within one
// short time window.
type MetricsBucket struct {
	AlgorithmId string          `json:"algorithm_id"`
	WindowStart time.Time       `json:"window_start"`
	Throughput  int64           `json:"throughput"`
	Failures    int64           `json:"failures"`
	AvgLatency  time.Duration   `json:"avg_latency"`
	ErrorRate   float64         `json:"error_rate"`
	Resources   *ResourceSample `json:"resources,omitempty"`
}

type AlertThreshold struct {
	Id          int64             `json:"id"`
	AlgorithmId string            `json:"algorithm_id"`
	Metric      AlertMetric       `json:"metric"`
	Operator    ConditionOperator `json:"operator"` // gt, lt, gte, lte, eq
	Threshold   float64           `json:"threshold"`
	Severity    AlertSeverity     `json:"severity"`
}

type PerformanceAlert struct {
	Id           int64         `json:"id"`
	AlgorithmId  string        `json:"algorithm_id"`
	Metric       AlertMetric   `json:"metric"`
	Severity     AlertSeverity `json:"severity"`
	Threshold    float64       `json:"threshold"`
	CurrentValue float64       `json:"current_value"`
	Message      string        `json:"message"`
	Resolved     bool          `json:"resolved"`
	CreatedTs    time.Time     `json:"created_ts"`
	ResolvedTs   *time.Time    `json:"resolved_ts,omitempty"`
}

type MetricsService interface {
	// RecordSample folds one execution outcome into the bucket that starts at
	// windowStart, creating it if needed, and returns a snapshot of the bucket
	// after the update. Throughput, the running latency average and the error
	// rate are maintained atomically by the store.
	RecordSample(ctx context.Context, algorithmId string, windowStart time.Time, execTime time.Duration, success bool) (*MetricsBucket, error)
	AttachResourceSample(ctx context.Context, algorithmId string, sample ResourceSample) error
	ListBuckets(ctx context.Context, algorithmId string, since time.Time) ([]*MetricsBucket, error)
	TrackedAlgorithmIds(ctx context.Context) ([]string, error)
	// Prune drops buckets older than cutoff and, per algorithm, the oldest
	// buckets beyond maxPerAlgorithm. Returns the number dropped.
	Prune(ctx context.Context, cutoff time.Time, maxPerAlgorithm int) (int, error)

	CreateThreshold(ctx context.Context, t *AlertThreshold) (*AlertThreshold, error)
	ListThresholds(ctx context.Context, algorithmId string) ([]*AlertThreshold, error)

	CreateAlert(ctx context.Context, a *PerformanceAlert) (*PerformanceAlert, error)
	ListAlerts(ctx context.Context, algorithmId string, unresolvedOnly bool) ([]*PerformanceAlert, error)
	LatestUnresolvedAlert(ctx context.Context, algorithmId string, metric AlertMetric, severity AlertSeverity) (*PerformanceAlert, error)
	ResolveAlert(ctx context.Context, id int64, resolvedTs time.Time) error
}
