package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sitecraft/AlgoOrchestration/internal/db"
	"github.com/sitecraft/AlgoOrchestration/internal/db/memory"
	"github.com/sitecraft/AlgoOrchestration/internal/events"
	ltime "github.com/sitecraft/AlgoOrchestration/pkg/time"
	"github.com/stretchr/testify/assert"
)

func newTestEngine(t *testing.T, cooldown time.Duration) *Engine {
	t.Helper()
	cfg := &Config{
		// an hour-wide bucket keeps a test's samples in one window
		BucketGranularity:   time.Hour,
		Retention:           24 * time.Hour,
		MaxBucketsPerAlgo:   360,
		SampleInterval:      30 * time.Second,
		AlertCooldown:       cooldown,
		ResponseTimeCeiling: time.Second,
	}
	return NewEngine(cfg, memory.NewDatabase(), events.NewBus(16))
}

func TestRecordExecutionFoldsBucket(t *testing.T) {
	engine := newTestEngine(t, 0)

	assert.NoError(t, engine.RecordExecution(context.TODO(), "scheduler", true, 100*time.Millisecond))
	assert.NoError(t, engine.RecordExecution(context.TODO(), "scheduler", true, 300*time.Millisecond))
	assert.NoError(t, engine.RecordExecution(context.TODO(), "scheduler", false, 200*time.Millisecond))

	buckets, err := engine.db.Metrics().ListBuckets(context.TODO(), "scheduler", time.Time{})
	assert.NoError(t, err)
	assert.Len(t, buckets, 1)
	assert.Equal(t, int64(3), buckets[0].Throughput)
	assert.Equal(t, int64(1), buckets[0].Failures)
	assert.Equal(t, 200*time.Millisecond, buckets[0].AvgLatency)
	assert.InDelta(t, 1.0/3.0, buckets[0].ErrorRate, 1e-9)
}

func TestSetThresholdValidation(t *testing.T) {
	engine := newTestEngine(t, 0)

	_, err := engine.SetThreshold(context.TODO(), &db.AlertThreshold{
		Metric: db.MetricErrorRate, Operator: db.OpGt, Threshold: 0.5,
	})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = engine.SetThreshold(context.TODO(), &db.AlertThreshold{
		AlgorithmId: "scheduler", Metric: "vibes", Operator: db.OpGt, Threshold: 0.5,
	})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = engine.SetThreshold(context.TODO(), &db.AlertThreshold{
		AlgorithmId: "scheduler", Metric: db.MetricErrorRate, Operator: "contains", Threshold: 0.5,
	})
	assert.True(t, errors.Is(err, ErrValidation))

	created, err := engine.SetThreshold(context.TODO(), &db.AlertThreshold{
		AlgorithmId: "scheduler", Metric: db.MetricErrorRate, Operator: db.OpGte,
		Threshold: 0.5, Severity: db.SeverityHigh,
	})
	assert.NoError(t, err)
	assert.NotZero(t, created.Id)
}

func TestResponseTimeThresholdUsesObservedCall(t *testing.T) {
	engine := newTestEngine(t, 0)

	_, err := engine.SetThreshold(context.TODO(), &db.AlertThreshold{
		AlgorithmId: "scheduler", Metric: db.MetricResponseTime, Operator: db.OpGt,
		Threshold: 2000, Severity: db.SeverityHigh,
	})
	assert.NoError(t, err)

	// a fast call stays quiet even though it shares the bucket with a slow one
	assert.NoError(t, engine.RecordExecution(context.TODO(), "scheduler", true, 3*time.Second))
	assert.NoError(t, engine.RecordExecution(context.TODO(), "scheduler", true, 100*time.Millisecond))

	alerts, err := engine.ListAlerts(context.TODO(), "scheduler", false)
	assert.NoError(t, err)
	assert.Len(t, alerts, 1)
	assert.Equal(t, db.MetricResponseTime, alerts[0].Metric)
	assert.Equal(t, db.SeverityHigh, alerts[0].Severity)
	assert.InDelta(t, 3000, alerts[0].CurrentValue, 1e-9)
}

func TestAlertCooldownSuppressesRepeats(t *testing.T) {
	engine := newTestEngine(t, time.Hour)

	_, err := engine.SetThreshold(context.TODO(), &db.AlertThreshold{
		AlgorithmId: "scheduler", Metric: db.MetricErrorRate, Operator: db.OpGte,
		Threshold: 0.5, Severity: db.SeverityCritical,
	})
	assert.NoError(t, err)

	assert.NoError(t, engine.RecordExecution(context.TODO(), "scheduler", false, time.Millisecond))
	assert.NoError(t, engine.RecordExecution(context.TODO(), "scheduler", false, time.Millisecond))

	alerts, err := engine.ListAlerts(context.TODO(), "scheduler", true)
	assert.NoError(t, err)
	assert.Len(t, alerts, 1)

	// resolving the open alert ends the cooldown
	assert.NoError(t, engine.ResolveAlert(context.TODO(), alerts[0].Id))
	assert.NoError(t, engine.RecordExecution(context.TODO(), "scheduler", false, time.Millisecond))

	alerts, err = engine.ListAlerts(context.TODO(), "scheduler", true)
	assert.NoError(t, err)
	assert.Len(t, alerts, 1)
	all, err := engine.ListAlerts(context.TODO(), "scheduler", false)
	assert.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestZeroCooldownAlertsEveryBreach(t *testing.T) {
	engine := newTestEngine(t, 0)

	_, err := engine.SetThreshold(context.TODO(), &db.AlertThreshold{
		AlgorithmId: "scheduler", Metric: db.MetricErrorRate, Operator: db.OpGte,
		Threshold: 0.5, Severity: db.SeverityHigh,
	})
	assert.NoError(t, err)

	assert.NoError(t, engine.RecordExecution(context.TODO(), "scheduler", false, time.Millisecond))
	assert.NoError(t, engine.RecordExecution(context.TODO(), "scheduler", false, time.Millisecond))

	alerts, err := engine.ListAlerts(context.TODO(), "scheduler", true)
	assert.NoError(t, err)
	assert.Len(t, alerts, 2)
}

func TestResolveAlert(t *testing.T) {
	engine := newTestEngine(t, 0)

	assert.True(t, errors.Is(engine.ResolveAlert(context.TODO(), 42), db.ErrNotFound))

	created, err := engine.db.Metrics().CreateAlert(context.TODO(), &db.PerformanceAlert{
		AlgorithmId: "scheduler", Metric: db.MetricThroughput, Severity: db.SeverityLow,
	})
	assert.NoError(t, err)
	assert.NoError(t, engine.ResolveAlert(context.TODO(), created.Id))

	unresolved, err := engine.ListAlerts(context.TODO(), "scheduler", true)
	assert.NoError(t, err)
	assert.Empty(t, unresolved)
	all, err := engine.ListAlerts(context.TODO(), "scheduler", false)
	assert.NoError(t, err)
	assert.Len(t, all, 1)
	assert.True(t, all[0].Resolved)
	assert.NotNil(t, all[0].ResolvedTs)
}

func TestDashboardAggregatesBuckets(t *testing.T) {
	engine := newTestEngine(t, 0)
	metrics := engine.db.Metrics()

	earlier := time.Now().Truncate(time.Hour).Add(-time.Hour)
	later := earlier.Add(time.Hour)
	_, err := metrics.RecordSample(context.TODO(), "scheduler", earlier, 100*time.Millisecond, true)
	assert.NoError(t, err)
	_, err = metrics.RecordSample(context.TODO(), "scheduler", earlier, 100*time.Millisecond, true)
	assert.NoError(t, err)
	_, err = metrics.RecordSample(context.TODO(), "scheduler", later, 300*time.Millisecond, false)
	assert.NoError(t, err)
	_, err = metrics.RecordSample(context.TODO(), "scheduler", later, 100*time.Millisecond, true)
	assert.NoError(t, err)

	data, err := engine.GetDashboardData(context.TODO(), "scheduler", 3*time.Hour)
	assert.NoError(t, err)
	assert.Equal(t, int64(4), data.TotalExecutions)
	assert.Equal(t, int64(1), data.TotalFailures)
	assert.InDelta(t, 0.25, data.ErrorRate, 1e-9)
	assert.Equal(t, 150*time.Millisecond, data.AvgLatency)
	assert.Equal(t, 200*time.Millisecond, data.P95Latency)
	assert.Equal(t, 200*time.Millisecond, data.P99Latency)
	assert.InDelta(t, 100, data.Availability, 1e-9)
	assert.Len(t, data.TimeSeries, 2)
	// 0.25 error rate costs 12.5 points; no alerts, latency under the ceiling
	assert.InDelta(t, 87.5, data.HealthScore, 1e-9)
}

func TestDashboardWithoutData(t *testing.T) {
	engine := newTestEngine(t, 0)

	data, err := engine.GetDashboardData(context.TODO(), "unknown", time.Hour)
	assert.NoError(t, err)
	assert.Zero(t, data.TotalExecutions)
	assert.InDelta(t, 100, data.Availability, 1e-9)
	assert.InDelta(t, 100, data.HealthScore, 1e-9)
	assert.Empty(t, data.TimeSeries)
}

func TestHealthScorePenalties(t *testing.T) {
	engine := newTestEngine(t, 0)

	// the latency penalty is capped
	capped := engine.healthScore(&DashboardData{AvgLatency: time.Minute, Availability: 100})
	assert.InDelta(t, 80, capped, 1e-9)

	// the score never goes below zero
	floor := engine.healthScore(&DashboardData{
		ErrorRate:    1,
		Availability: 0,
		ActiveAlerts: make([]*db.PerformanceAlert, 20),
	})
	assert.InDelta(t, 0, floor, 1e-9)
}

func TestSystemMetrics(t *testing.T) {
	engine := newTestEngine(t, 0)

	assert.NoError(t, engine.RecordExecution(context.TODO(), "scheduler", true, 100*time.Millisecond))
	assert.NoError(t, engine.RecordExecution(context.TODO(), "scheduler", true, 100*time.Millisecond))
	assert.NoError(t, engine.RecordExecution(context.TODO(), "estimator", false, 100*time.Millisecond))
	_, err := engine.db.Metrics().CreateAlert(context.TODO(), &db.PerformanceAlert{
		AlgorithmId: "estimator", Metric: db.MetricErrorRate, Severity: db.SeverityHigh,
	})
	assert.NoError(t, err)

	system, err := engine.GetSystemMetrics(context.TODO())
	assert.NoError(t, err)
	assert.Equal(t, 2, system.TrackedAlgorithms)
	assert.Equal(t, int64(3), system.TotalThroughput)
	assert.Equal(t, 1, system.UnresolvedAlerts)
	assert.Greater(t, system.AvgHealthScore, 0.0)
	assert.Less(t, system.AvgHealthScore, 100.0)
}

func TestSamplerAttachesResourcesAndPrunes(t *testing.T) {
	engine := newTestEngine(t, 0)
	engine.config.Retention = time.Hour
	metrics := engine.db.Metrics()

	stale := time.Now().Add(-2 * time.Hour).Truncate(time.Hour)
	_, err := metrics.RecordSample(context.TODO(), "scheduler", stale, time.Millisecond, true)
	assert.NoError(t, err)
	assert.NoError(t, engine.RecordExecution(context.TODO(), "scheduler", true, time.Millisecond))

	sampler := NewSampler(engine.config, engine, engine.db)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sampler.StartWithTicker(ctx, ltime.NewTestingTicker())
	defer sampler.Stop()

	assert.Eventually(t, func() bool {
		buckets, err := metrics.ListBuckets(context.TODO(), "scheduler", time.Time{})
		if err != nil || len(buckets) != 1 {
			return false
		}
		return buckets[0].Resources != nil && buckets[0].Resources.Goroutines > 0
	}, time.Second, 5*time.Millisecond)
}
