package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sitecraft/AlgoOrchestration/internal/db"
)

type Metrics struct {
	mu          sync.RWMutex
	nextAlertId int64
	nextThresId int64
	buckets     map[string][]*db.MetricsBucket // per algorithm, oldest first
	thresholds  map[string][]*db.AlertThreshold
	alerts      []*db.PerformanceAlert
}

var _ db.MetricsService = &Metrics{}

func NewMetrics() *Metrics {
	return &Metrics{
		buckets:    make(map[string][]*db.MetricsBucket),
		thresholds: make(map[string][]*db.AlertThreshold),
	}
}

func (m *Metrics) RecordSample(_ context.Context, algorithmId string, windowStart time.Time, execTime time.Duration, success bool) (*db.MetricsBucket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var bucket *db.MetricsBucket
	buckets := m.buckets[algorithmId]
	for i := len(buckets) - 1; i >= 0; i-- {
		if buckets[i].WindowStart.Equal(windowStart) {
			bucket = buckets[i]
			break
		}
	}
	if bucket == nil {
		bucket = &db.MetricsBucket{
			AlgorithmId: algorithmId,
			WindowStart: windowStart,
		}
		m.buckets[algorithmId] = append(m.buckets[algorithmId], bucket)
	}
	// incremental average keeps the bucket O(1) in memory
	total := bucket.AvgLatency*time.Duration(bucket.Throughput) + execTime
	bucket.Throughput++
	bucket.AvgLatency = total / time.Duration(bucket.Throughput)
	if !success {
		bucket.Failures++
	}
	bucket.ErrorRate = float64(bucket.Failures) / float64(bucket.Throughput)
	snapshot := *bucket
	return &snapshot, nil
}

func (m *Metrics) AttachResourceSample(_ context.Context, algorithmId string, sample db.ResourceSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buckets := m.buckets[algorithmId]
	if len(buckets) == 0 {
		return db.ErrNotFound
	}
	s := sample
	buckets[len(buckets)-1].Resources = &s
	return nil
}

func (m *Metrics) ListBuckets(_ context.Context, algorithmId string, since time.Time) ([]*db.MetricsBucket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ret []*db.MetricsBucket
	for _, bucket := range m.buckets[algorithmId] {
		if bucket.WindowStart.Before(since) {
			continue
		}
		c := *bucket
		ret = append(ret, &c)
	}
	return ret, nil
}

func (m *Metrics) TrackedAlgorithmIds(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.buckets))
	for id := range m.buckets {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *Metrics) Prune(_ context.Context, cutoff time.Time, maxPerAlgorithm int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dropped := 0
	for id, buckets := range m.buckets {
		kept := buckets[:0]
		for _, bucket := range buckets {
			if bucket.WindowStart.Before(cutoff) {
				dropped++
				continue
			}
			kept = append(kept, bucket)
		}
		if maxPerAlgorithm > 0 && len(kept) > maxPerAlgorithm {
			dropped += len(kept) - maxPerAlgorithm
			kept = kept[len(kept)-maxPerAlgorithm:]
		}
		if len(kept) == 0 {
			delete(m.buckets, id)
			continue
		}
		m.buckets[id] = kept
	}
	return dropped, nil
}

func (m *Metrics) CreateThreshold(_ context.Context, t *db.AlertThreshold) (*db.AlertThreshold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextThresId++
	stored := *t
	stored.Id = m.nextThresId
	m.thresholds[t.AlgorithmId] = append(m.thresholds[t.AlgorithmId], &stored)
	ret := stored
	return &ret, nil
}

func (m *Metrics) ListThresholds(_ context.Context, algorithmId string) ([]*db.AlertThreshold, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ret := make([]*db.AlertThreshold, 0, len(m.thresholds[algorithmId]))
	for _, t := range m.thresholds[algorithmId] {
		c := *t
		ret = append(ret, &c)
	}
	return ret, nil
}

func (m *Metrics) CreateAlert(_ context.Context, a *db.PerformanceAlert) (*db.PerformanceAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextAlertId++
	stored := *a
	stored.Id = m.nextAlertId
	if stored.CreatedTs.IsZero() {
		stored.CreatedTs = time.Now()
	}
	m.alerts = append(m.alerts, &stored)
	ret := stored
	return &ret, nil
}

func (m *Metrics) ListAlerts(_ context.Context, algorithmId string, unresolvedOnly bool) ([]*db.PerformanceAlert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ret []*db.PerformanceAlert
	for _, a := range m.alerts {
		if algorithmId != "" && a.AlgorithmId != algorithmId {
			continue
		}
		if unresolvedOnly && a.Resolved {
			continue
		}
		c := *a
		ret = append(ret, &c)
	}
	return ret, nil
}

func (m *Metrics) LatestUnresolvedAlert(_ context.Context, algorithmId string, metric db.AlertMetric, severity db.AlertSeverity) (*db.PerformanceAlert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.alerts) - 1; i >= 0; i-- {
		a := m.alerts[i]
		if a.AlgorithmId == algorithmId && a.Metric == metric && a.Severity == severity && !a.Resolved {
			c := *a
			return &c, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *Metrics) ResolveAlert(_ context.Context, id int64, resolvedTs time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.Id == id {
			a.Resolved = true
			ts := resolvedTs
			a.ResolvedTs = &ts
			return nil
		}
	}
	return db.ErrNotFound
}
