package monitoring

import (
	"context"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sitecraft/AlgoOrchestration/internal/db"
	ltime "github.com/sitecraft/AlgoOrchestration/pkg/time"
)

// Sampler periodically attaches process resource usage to every tracked
// algorithm's latest bucket and enforces the retention policy.
type Sampler struct {
	config *Config
	engine *Engine
	db     db.Database
	ticker ltime.Ticker
	done   chan struct{}
}

func NewSampler(config *Config, engine *Engine, database db.Database) *Sampler {
	return &Sampler{
		config: config,
		engine: engine,
		db:     database,
		done:   make(chan struct{}),
	}
}

func (s *Sampler) Start(ctx context.Context) {
	s.ticker = ltime.NewWallTicker(s.config.SampleInterval)
	go s.run(ctx)
}

// StartWithTicker is the test entry point; the caller owns the ticker.
func (s *Sampler) StartWithTicker(ctx context.Context, ticker ltime.Ticker) {
	s.ticker = ticker
	go s.run(ctx)
}

func (s *Sampler) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ticker.Channel():
			s.sampleOnce(ctx)
			s.pruneOnce(ctx)
		}
	}
}

func (s *Sampler) Stop() {
	if s.ticker != nil {
		s.ticker.Close()
	}
}

func (s *Sampler) sampleOnce(ctx context.Context) {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	sample := db.ResourceSample{
		HeapMB:        float64(stats.HeapInuse) / (1024 * 1024),
		Goroutines:    runtime.NumGoroutine(),
		GCCPUFraction: stats.GCCPUFraction,
		SampledTs:     time.Now(),
	}

	ids, err := s.db.Metrics().TrackedAlgorithmIds(ctx)
	if err != nil {
		log.Printf("resource sampler: failed to list tracked algorithms: %s", err)
		return
	}
	for _, id := range ids {
		if err := s.db.Metrics().AttachResourceSample(ctx, id, sample); err != nil && err != db.ErrNotFound {
			log.Printf("resource sampler: failed to attach sample to %s: %s", id, err)
		}
	}

	limitMB := float64(s.config.MemoryAlertLimit.Value()) / (1024 * 1024)
	if limitMB > 0 && sample.HeapMB > limitMB {
		log.Warnf("heap in use %.1fMB exceeds the configured %.1fMB limit", sample.HeapMB, limitMB)
	}
}

func (s *Sampler) pruneOnce(ctx context.Context) {
	cutoff := time.Now().Add(-s.config.Retention)
	dropped, err := s.db.Metrics().Prune(ctx, cutoff, s.config.MaxBucketsPerAlgo)
	if err != nil {
		log.Printf("retention prune failed: %s", err)
		return
	}
	if dropped > 0 {
		log.Debugf("pruned %d metric buckets", dropped)
	}
}
