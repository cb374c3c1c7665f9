package abtest

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/sitecraft/AlgoOrchestration/internal/db"
	"github.com/sitecraft/AlgoOrchestration/pkg/app"
	"github.com/sitecraft/AlgoOrchestration/pkg/reconciler"
)

// Analyzer periodically recomputes the statistics of every running test and
// stops the ones that reached a terminal recommendation.
type Analyzer struct {
	config *Config
	db     db.Database
	engine *Engine
}

var _ reconciler.Reconciler[string] = &Analyzer{}

func NewAnalyzer(config *Config, database db.Database, engine *Engine) *Analyzer {
	return &Analyzer{
		config: config,
		db:     database,
		engine: engine,
	}
}

func NewAnalyzerManager(app *app.Instance, cfg *Config, analyzer *Analyzer) (*reconciler.Manager[string], error) {
	reconcilerConfig, err := cfg.ReconcilerConfig()
	if err != nil {
		return nil, err
	}
	return reconciler.NewManager[string](app.Context(), reconcilerConfig, analyzer), nil
}

func (a *Analyzer) Name() string {
	return "abtest-analyzer"
}

func (a *Analyzer) Reboot(_ context.Context) {}

func (a *Analyzer) Resync(ctx context.Context, queue *reconciler.ReconcileQueue[string]) {
	running := db.TestRunning
	tests, err := a.db.Tests().ListTests(ctx, &running)
	if err != nil {
		log.Printf("analyzer failed to list running tests: %s", err)
		return
	}
	for _, test := range tests {
		queue.Add(test.Id)
	}
}

func (a *Analyzer) Reconcile(ctx context.Context, items []reconciler.ReconcileItem[string]) {
	for _, item := range items {
		item.Callback(a.analyze(ctx, item.ID))
	}
}

func (a *Analyzer) analyze(ctx context.Context, testId string) error {
	stats, err := a.engine.GetTestStatistics(ctx, testId)
	if err != nil {
		log.Printf("analyzer failed to compute statistics for %s: %s", testId, err)
		return err
	}
	switch stats.Recommendation {
	case RecommendDeploy:
		return a.engine.StopTest(ctx, testId, "analyzer: significant improvement, deploy "+stats.BestVariantId)
	case RecommendStop:
		return a.engine.StopTest(ctx, testId, "analyzer: treatment significantly worse than control")
	default:
		log.Debugf("test %s recommendation: %s", testId, stats.Recommendation)
		return nil
	}
}
