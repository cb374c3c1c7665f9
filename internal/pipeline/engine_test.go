package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/sitecraft/AlgoOrchestration/internal/db"
	"github.com/sitecraft/AlgoOrchestration/internal/db/memory"
	"github.com/sitecraft/AlgoOrchestration/internal/events"
	"github.com/sitecraft/AlgoOrchestration/internal/executor"
	"github.com/sitecraft/AlgoOrchestration/internal/monitoring"
	ltime "github.com/sitecraft/AlgoOrchestration/pkg/time"
)

func newTestEngine(t *testing.T, maxConcurrent int) *Engine {
	t.Helper()
	cfg := &Config{
		MaxConcurrentExecutions: maxConcurrent,
		QueueDrainInterval:      10 * time.Millisecond,
		DefaultTimeout:          5 * time.Second,
		DefaultStageTimeout:     2 * time.Second,
		DefaultStageConcurrency: 4,
		ResultHistory:           100,
	}
	monitorCfg := &monitoring.Config{
		BucketGranularity:   10 * time.Second,
		Retention:           time.Hour,
		MaxBucketsPerAlgo:   360,
		SampleInterval:      30 * time.Second,
		ResponseTimeCeiling: 5 * time.Second,
	}
	database := memory.NewDatabase()
	bus := events.NewBus(16)
	monitor := monitoring.NewEngine(monitorCfg, database, bus)
	return NewEngine(cfg, database, executor.NewMock(), monitor, bus)
}

func (e *Engine) mock() *executor.Mock {
	return e.executor.(*executor.Mock)
}

func register(t *testing.T, engine *Engine, def *db.PipelineDefinition) {
	t.Helper()
	_, err := engine.RegisterPipeline(context.TODO(), def)
	assert.NoError(t, err)
}

func TestExecuteChainOrdering(t *testing.T) {
	engine := newTestEngine(t, 10)
	register(t, engine, chainDefinition("chain", "a", "b", "c"))

	result, err := engine.Execute(context.TODO(), "chain", map[string]interface{}{"site": "north"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Len(t, result.Stages, 3)
	for _, stage := range result.Stages {
		assert.Equal(t, StageCompleted, stage.Status)
	}

	var order []string
	for _, call := range engine.mock().Calls {
		order = append(order, call.AlgorithmId)
	}
	assert.Equal(t, []string{"algo-a", "algo-b", "algo-c"}, order)
}

func TestExecuteOutputRouting(t *testing.T) {
	engine := newTestEngine(t, 10)
	engine.mock().Outcomes["algo-a"] = executor.MockOutcome{Data: map[string]interface{}{"estimate": 42.0}}
	engine.mock().Outcomes["algo-b"] = executor.MockOutcome{Data: map[string]interface{}{"plan": "final"}}

	def := chainDefinition("routing", "a", "b")
	def.Stages[0].Output = db.OutputMapping{Target: db.OutputToAccumulator, Key: "estimation"}
	def.Stages[1].Input = db.InputMapping{Source: db.InputFromAccumulator, Key: "estimation"}
	def.Stages[1].Output = db.OutputMapping{Target: db.OutputToPipeline}
	register(t, engine, def)

	result, err := engine.Execute(context.TODO(), "routing", map[string]interface{}{}, nil)
	assert.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, map[string]interface{}{"plan": "final"}, result.Output)

	calls := engine.mock().Calls
	assert.Equal(t, map[string]interface{}{"estimate": 42.0}, calls[1].Input)
}

func TestExecuteConstantAndEnvInputs(t *testing.T) {
	engine := newTestEngine(t, 10)
	t.Setenv("PIPELINE_TEST_REGION", "eu-west")

	def := chainDefinition("inputs", "a", "b")
	def.Stages[0].Input = db.InputMapping{Source: db.InputConstant, Constant: map[string]interface{}{"mode": "fast"}}
	def.Stages[1].Input = db.InputMapping{Source: db.InputFromEnv, Key: "PIPELINE_TEST_REGION"}
	register(t, engine, def)

	result, err := engine.Execute(context.TODO(), "inputs", nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)

	calls := engine.mock().Calls
	assert.Equal(t, map[string]interface{}{"mode": "fast"}, calls[0].Input)
	assert.Equal(t, map[string]interface{}{"PIPELINE_TEST_REGION": "eu-west"}, calls[1].Input)
}

func TestExecuteSkipsOnCondition(t *testing.T) {
	engine := newTestEngine(t, 10)

	def := chainDefinition("conditional", "a", "b", "c")
	def.Stages[1].Conditions = &db.ConditionSet{
		Logic: db.LogicAnd,
		Conditions: []db.StageCondition{
			{Field: "budget", Operator: db.OpGt, Value: 100000},
		},
	}
	register(t, engine, def)

	result, err := engine.Execute(context.TODO(), "conditional", map[string]interface{}{"budget": 500.0}, nil)
	assert.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, StageSkipped, result.Stages["b"].Status)
	// a skipped stage satisfies its dependents
	assert.Equal(t, StageCompleted, result.Stages["c"].Status)
	assert.Equal(t, 0, engine.mock().CallsFor("algo-b"))
	assert.Equal(t, 1, engine.mock().CallsFor("algo-c"))
}

func TestExecuteDependencyFailurePropagates(t *testing.T) {
	engine := newTestEngine(t, 10)
	engine.mock().Outcomes["algo-b"] = executor.MockOutcome{Fail: true}

	// a and b are independent roots; c depends on b only.
	def := chainDefinition("partial", "a")
	def.Stages = append(def.Stages,
		db.Stage{Id: "b", Name: "b", AlgorithmId: "algo-b"},
		db.Stage{Id: "c", Name: "c", AlgorithmId: "algo-c", Dependencies: []string{"b"}},
	)
	register(t, engine, def)

	result, err := engine.Execute(context.TODO(), "partial", nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, StageCompleted, result.Stages["a"].Status)
	assert.Equal(t, StageFailed, result.Stages["b"].Status)
	assert.Equal(t, StageDependencyFailed, result.Stages["c"].Status)
	assert.Equal(t, 0, engine.mock().CallsFor("algo-c"))
}

func TestExecuteHaltOnFailure(t *testing.T) {
	engine := newTestEngine(t, 10)
	engine.mock().Outcomes["algo-a"] = executor.MockOutcome{Fail: true}

	def := chainDefinition("halting", "a", "b")
	def.HaltOnFailure = true
	register(t, engine, def)

	result, err := engine.Execute(context.TODO(), "halting", nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Error, "a")
	assert.Equal(t, 0, engine.mock().CallsFor("algo-b"))
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	engine := newTestEngine(t, 10)
	engine.mock().Outcomes["algo-a"] = executor.MockOutcome{FailTimes: 2}

	def := chainDefinition("retrying", "a")
	def.Stages[0].Retry = &db.RetryPolicy{
		MaxRetries:   2,
		Backoff:      db.BackoffFixed,
		InitialDelay: time.Millisecond,
	}
	register(t, engine, def)

	result, err := engine.Execute(context.TODO(), "retrying", nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 3, result.Stages["a"].Attempts)
	assert.Equal(t, 3, engine.mock().CallsFor("algo-a"))
}

func TestExecuteRetryBudgetExhausted(t *testing.T) {
	engine := newTestEngine(t, 10)
	engine.mock().Outcomes["algo-a"] = executor.MockOutcome{Fail: true}

	def := chainDefinition("exhausted", "a")
	def.Stages[0].Retry = &db.RetryPolicy{
		MaxRetries:   1,
		Backoff:      db.BackoffExponential,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
	register(t, engine, def)

	result, err := engine.Execute(context.TODO(), "exhausted", nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, StageFailed, result.Stages["a"].Status)
	assert.Equal(t, 2, engine.mock().CallsFor("algo-a"))
}

func TestExecuteReportsToMonitoring(t *testing.T) {
	engine := newTestEngine(t, 10)
	register(t, engine, chainDefinition("observed", "a"))

	_, err := engine.Execute(context.TODO(), "observed", nil, nil)
	assert.NoError(t, err)

	buckets, err := engine.db.Metrics().ListBuckets(context.TODO(), "algo-a", time.Now().Add(-time.Minute))
	assert.NoError(t, err)
	if assert.Len(t, buckets, 1) {
		assert.Equal(t, int64(1), buckets[0].Throughput)
		assert.Equal(t, int64(0), buckets[0].Failures)
	}
}

func TestExecuteQueuesBeyondCeiling(t *testing.T) {
	engine := newTestEngine(t, 1)
	engine.mock().Outcomes["algo-a"] = executor.MockOutcome{Latency: 200 * time.Millisecond}
	register(t, engine, chainDefinition("ceiling", "a"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine.StartWithTicker(ctx, ltime.NewTestingTicker())
	defer engine.Stop()

	go func() {
		_, _ = engine.Execute(context.TODO(), "ceiling", nil, nil)
	}()
	assert.Eventually(t, func() bool {
		for _, result := range engine.ListExecutions() {
			if result.Status == StatusRunning {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	queued, err := engine.Execute(context.TODO(), "ceiling", nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, StatusQueued, queued.Status)
	assert.Equal(t, 1, queued.QueuePosition)

	// the drain loop promotes the queued execution once the slot frees
	assert.Eventually(t, func() bool {
		result, err := engine.GetExecution(queued.ExecutionId)
		return err == nil && result.Status == StatusCompleted
	}, 3*time.Second, 10*time.Millisecond)
}

func TestCancelQueuedExecution(t *testing.T) {
	engine := newTestEngine(t, 1)
	engine.mock().Outcomes["algo-a"] = executor.MockOutcome{BlockOnCtx: true}
	register(t, engine, chainDefinition("cancellable", "a"))

	go func() {
		_, _ = engine.Execute(context.TODO(), "cancellable", nil, nil)
	}()
	assert.Eventually(t, func() bool {
		for _, result := range engine.ListExecutions() {
			if result.Status == StatusRunning {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	queued, err := engine.Execute(context.TODO(), "cancellable", nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, StatusQueued, queued.Status)

	assert.NoError(t, engine.Cancel(queued.ExecutionId))
	result, err := engine.GetExecution(queued.ExecutionId)
	assert.NoError(t, err)
	assert.Equal(t, StatusCancelled, result.Status)
	// cancelling again is an error, the execution is settled
	assert.Error(t, engine.Cancel(queued.ExecutionId))
}

func TestCancelRunningExecution(t *testing.T) {
	engine := newTestEngine(t, 1)
	engine.mock().Outcomes["algo-a"] = executor.MockOutcome{BlockOnCtx: true}
	register(t, engine, chainDefinition("stuck", "a"))

	go func() {
		_, _ = engine.Execute(context.TODO(), "stuck", nil, nil)
	}()

	var runningId string
	assert.Eventually(t, func() bool {
		for _, result := range engine.ListExecutions() {
			if result.Status == StatusRunning {
				runningId = result.ExecutionId
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	assert.NoError(t, engine.Cancel(runningId))
	assert.Eventually(t, func() bool {
		result, err := engine.GetExecution(runningId)
		return err == nil && result.Status == StatusCancelled
	}, time.Second, 5*time.Millisecond)
}

func TestExecuteUnknownPipeline(t *testing.T) {
	engine := newTestEngine(t, 10)
	_, err := engine.Execute(context.TODO(), "missing", nil, nil)
	assert.True(t, errors.Is(err, ErrPipelineNotFound))
}

func TestExecuteInactivePipeline(t *testing.T) {
	engine := newTestEngine(t, 10)
	register(t, engine, chainDefinition("dormant", "a"))
	assert.NoError(t, engine.db.Pipelines().UpdatePipelineActive(context.TODO(), "dormant", false))

	_, err := engine.Execute(context.TODO(), "dormant", nil, nil)
	assert.True(t, errors.Is(err, ErrPipelineInactive))
}
