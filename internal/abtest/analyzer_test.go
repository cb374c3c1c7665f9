package abtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sitecraft/AlgoOrchestration/internal/db"
	"github.com/sitecraft/AlgoOrchestration/pkg/reconciler"
)

func TestAnalyzerResyncQueuesRunningTests(t *testing.T) {
	engine := newTestEngine(t)
	startTest(t, engine, fiftyFifty("running-1"))
	startTest(t, engine, fiftyFifty("running-2"))

	draft := fiftyFifty("still-draft")
	_, err := engine.CreateTest(context.TODO(), draft)
	assert.NoError(t, err)

	analyzer := NewAnalyzer(engine.config, engine.db, engine)
	queue := reconciler.NewReconcileQueue[string]()
	analyzer.Resync(context.TODO(), queue)

	assert.Len(t, queue.Pending, 2)
	assert.Contains(t, queue.Pending, "running-1")
	assert.Contains(t, queue.Pending, "running-2")
}

func TestAnalyzerStopsDecidedTests(t *testing.T) {
	engine := newTestEngine(t)
	def := fiftyFifty("decided")
	def.Criteria = db.SuccessCriteria{
		PrimaryMetric:      MetricSuccessRate,
		MinimumImprovement: 0.05,
		ConfidenceLevel:    0.95,
		MinimumSampleSize:  100,
	}
	startTest(t, engine, def)
	recordResults(t, engine, "decided", "control", 200, 120)
	recordResults(t, engine, "decided", "treatment", 200, 180)

	undecided := fiftyFifty("undecided")
	startTest(t, engine, undecided)

	analyzer := NewAnalyzer(engine.config, engine.db, engine)
	queue := reconciler.NewReconcileQueue[string]()
	analyzer.Resync(context.TODO(), queue)
	items := queue.Pop(10)
	analyzer.Reconcile(context.TODO(), items)

	stopped, err := engine.GetTest(context.TODO(), "decided")
	assert.NoError(t, err)
	assert.Equal(t, db.TestCompleted, stopped.State)
	assert.Contains(t, stopped.EndReason, "deploy")

	stillRunning, err := engine.GetTest(context.TODO(), "undecided")
	assert.NoError(t, err)
	assert.Equal(t, db.TestRunning, stillRunning.State)
}
