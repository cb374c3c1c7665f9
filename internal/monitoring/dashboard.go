package monitoring

import (
	"context"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sitecraft/AlgoOrchestration/internal/db"
)

type TimeSeriesPoint struct {
	Timestamp  time.Time     `json:"timestamp"`
	Throughput int64         `json:"throughput"`
	AvgLatency time.Duration `json:"avg_latency"`
	ErrorRate  float64       `json:"error_rate"`
}

type DashboardData struct {
	AlgorithmId     string                 `json:"algorithm_id"`
	Window          time.Duration          `json:"window"`
	TotalExecutions int64                  `json:"total_executions"`
	TotalFailures   int64                  `json:"total_failures"`
	ErrorRate       float64                `json:"error_rate"`
	AvgLatency      time.Duration          `json:"avg_latency"`
	P95Latency      time.Duration          `json:"p95_latency"`
	P99Latency      time.Duration          `json:"p99_latency"`
	Availability    float64                `json:"availability"` // 0..100
	HealthScore     float64                `json:"health_score"` // 0..100
	TimeSeries      []TimeSeriesPoint      `json:"time_series"`
	ActiveAlerts    []*db.PerformanceAlert `json:"active_alerts"`
}

type SystemMetrics struct {
	TrackedAlgorithms int     `json:"tracked_algorithms"`
	TotalThroughput   int64   `json:"total_throughput"`
	AvgHealthScore    float64 `json:"avg_health_score"`
	UnresolvedAlerts  int     `json:"unresolved_alerts"`
}

// GetDashboardData aggregates the algorithm's buckets inside the window into
// dashboard totals, latency percentiles, a charting series and a health score.
func (e *Engine) GetDashboardData(ctx context.Context, algorithmId string, window time.Duration) (*DashboardData, error) {
	if window <= 0 {
		window = e.config.Retention
	}
	since := time.Now().Add(-window)
	buckets, err := e.db.Metrics().ListBuckets(ctx, algorithmId, since)
	if err != nil {
		return nil, err
	}
	alerts, err := e.db.Metrics().ListAlerts(ctx, algorithmId, true)
	if err != nil {
		return nil, err
	}

	data := &DashboardData{
		AlgorithmId:  algorithmId,
		Window:       window,
		ActiveAlerts: alerts,
	}

	var weightedLatency time.Duration
	var latencies []time.Duration
	availableBuckets := 0
	for _, bucket := range buckets {
		data.TotalExecutions += bucket.Throughput
		data.TotalFailures += bucket.Failures
		weightedLatency += bucket.AvgLatency * time.Duration(bucket.Throughput)
		latencies = append(latencies, bucket.AvgLatency)
		if bucket.Failures < bucket.Throughput {
			availableBuckets++
		}
		data.TimeSeries = append(data.TimeSeries, TimeSeriesPoint{
			Timestamp:  bucket.WindowStart,
			Throughput: bucket.Throughput,
			AvgLatency: bucket.AvgLatency,
			ErrorRate:  bucket.ErrorRate,
		})
	}
	if data.TotalExecutions > 0 {
		data.ErrorRate = float64(data.TotalFailures) / float64(data.TotalExecutions)
		data.AvgLatency = weightedLatency / time.Duration(data.TotalExecutions)
	}
	if len(buckets) > 0 {
		data.Availability = 100 * float64(availableBuckets) / float64(len(buckets))
	} else {
		data.Availability = 100
	}
	data.P95Latency = percentile(latencies, 0.95)
	data.P99Latency = percentile(latencies, 0.99)
	data.HealthScore = e.healthScore(data)
	return data, nil
}

// percentile sorts the sampled bucket averages; good enough for charting
// without keeping every raw latency.
func percentile(latencies []time.Duration, q float64) time.Duration {
	if len(latencies) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(q * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// healthScore summarizes a window as 0..100: error rate, latency beyond the
// configured ceiling, lost availability and open alerts all cost points.
func (e *Engine) healthScore(data *DashboardData) float64 {
	score := 100.0
	score -= data.ErrorRate * 100 * 0.5
	if data.AvgLatency > e.config.ResponseTimeCeiling {
		over := float64(data.AvgLatency-e.config.ResponseTimeCeiling) / float64(e.config.ResponseTimeCeiling)
		penalty := over * 10
		if penalty > 20 {
			penalty = 20
		}
		score -= penalty
	}
	score -= (100 - data.Availability) * 0.3
	score -= float64(len(data.ActiveAlerts)) * 5
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// GetSystemMetrics rolls health and throughput up across every tracked
// algorithm. One algorithm's aggregation failure is logged and skipped.
func (e *Engine) GetSystemMetrics(ctx context.Context) (*SystemMetrics, error) {
	ids, err := e.db.Metrics().TrackedAlgorithmIds(ctx)
	if err != nil {
		return nil, err
	}
	ret := &SystemMetrics{}
	var healthTotal float64
	counted := 0
	for _, id := range ids {
		data, err := e.GetDashboardData(ctx, id, e.config.Retention)
		if err != nil {
			log.Printf("failed to aggregate dashboard for %s: %s", id, err)
			continue
		}
		ret.TrackedAlgorithms++
		ret.TotalThroughput += data.TotalExecutions
		ret.UnresolvedAlerts += len(data.ActiveAlerts)
		healthTotal += data.HealthScore
		counted++
	}
	if counted > 0 {
		ret.AvgHealthScore = healthTotal / float64(counted)
	}
	return ret, nil
}
