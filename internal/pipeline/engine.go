// Package pipeline executes registered multi-stage pipelines: stages run as
// concurrent waves over their dependency graph, with conditional skipping,
// per-stage retries, a concurrency ceiling and a FIFO overflow queue.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/sitecraft/AlgoOrchestration/internal/db"
	"github.com/sitecraft/AlgoOrchestration/internal/events"
	"github.com/sitecraft/AlgoOrchestration/internal/executor"
	"github.com/sitecraft/AlgoOrchestration/internal/monitoring"
	ltime "github.com/sitecraft/AlgoOrchestration/pkg/time"
	"golang.org/x/sync/errgroup"
)

var (
	ErrValidation        = fmt.Errorf("validation failed")
	ErrPipelineNotFound  = fmt.Errorf("pipeline not found")
	ErrPipelineInactive  = fmt.Errorf("pipeline is inactive")
	ErrExecutionNotFound = fmt.Errorf("execution not found")
)

type ExecutionStatus string

const (
	StatusQueued    ExecutionStatus = "queued"
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	StatusCancelled ExecutionStatus = "cancelled"
)

type StageStatus string

const (
	StageCompleted        StageStatus = "completed"
	StageFailed           StageStatus = "failed"
	StageSkipped          StageStatus = "skipped"
	StageDependencyFailed StageStatus = "dependency_failed"
)

type StageResult struct {
	StageId     string                 `json:"stage_id"`
	AlgorithmId string                 `json:"algorithm_id"`
	Status      StageStatus            `json:"status"`
	Output      map[string]interface{} `json:"output,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Attempts    int                    `json:"attempts"`
	Duration    time.Duration          `json:"duration"`
}

type ExecutionResult struct {
	ExecutionId   string                  `json:"execution_id"`
	PipelineId    string                  `json:"pipeline_id"`
	Status        ExecutionStatus         `json:"status"`
	QueuePosition int                     `json:"queue_position,omitempty"`
	Output        map[string]interface{}  `json:"output,omitempty"`
	Stages        map[string]*StageResult `json:"stages"`
	Error         string                  `json:"error,omitempty"`
	StartedTs     time.Time               `json:"started_ts"`
	FinishedTs    time.Time               `json:"finished_ts,omitempty"`
}

// execution is the engine's in-flight state for one pipeline run.
type execution struct {
	id          string
	def         *db.PipelineDefinition
	input       map[string]interface{}
	inv         *executor.Invocation
	accumulator map[string]interface{}
	output      map[string]interface{}
	result      *ExecutionResult
	cancel      context.CancelFunc
	done        chan struct{}
}

type Engine struct {
	config   *Config
	db       db.Database
	executor executor.Executor
	monitor  *monitoring.Engine
	bus      *events.Bus

	mu      sync.Mutex
	active  map[string]*execution
	queue   []*execution
	history map[string]*ExecutionResult
	order   []string
	ticker  ltime.Ticker
	stopped chan struct{}
}

func NewEngine(config *Config, database db.Database, exec executor.Executor, monitor *monitoring.Engine, bus *events.Bus) *Engine {
	return &Engine{
		config:   config,
		db:       database,
		executor: exec,
		monitor:  monitor,
		bus:      bus,
		active:   map[string]*execution{},
		history:  map[string]*ExecutionResult{},
		stopped:  make(chan struct{}),
	}
}

// Start launches the queue drain loop. Executions submitted while the engine
// is at its concurrency ceiling wait here in FIFO order.
func (e *Engine) Start(ctx context.Context) {
	e.StartWithTicker(ctx, ltime.NewWallTicker(e.config.QueueDrainInterval))
}

func (e *Engine) StartWithTicker(ctx context.Context, ticker ltime.Ticker) {
	e.mu.Lock()
	e.ticker = ticker
	e.mu.Unlock()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-e.stopped:
				return
			case <-ticker.Channel():
				e.drain()
			}
		}
	}()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	select {
	case <-e.stopped:
	default:
		close(e.stopped)
	}
	if e.ticker != nil {
		e.ticker.Close()
	}
}

// Execute runs the pipeline synchronously when a slot is free and returns the
// final result. At the ceiling the execution is queued and a StatusQueued
// result with the queue position comes back immediately; callers poll
// GetExecution for the outcome.
func (e *Engine) Execute(ctx context.Context, pipelineId string, input map[string]interface{}, inv *executor.Invocation) (*ExecutionResult, error) {
	def, err := e.db.Pipelines().GetPipeline(ctx, pipelineId)
	if err != nil {
		if err == db.ErrNotFound {
			return nil, errors.Wrap(ErrPipelineNotFound, pipelineId)
		}
		return nil, err
	}
	if !def.Active {
		return nil, errors.Wrap(ErrPipelineInactive, pipelineId)
	}
	if inv == nil {
		inv = &executor.Invocation{}
	}
	if inv.CorrelationId == "" {
		inv.CorrelationId = uuid.New().String()
	}

	ex := &execution{
		id:          uuid.New().String(),
		def:         def,
		input:       copyMap(input),
		inv:         inv,
		accumulator: map[string]interface{}{},
		done:        make(chan struct{}),
		result: &ExecutionResult{
			PipelineId: pipelineId,
			Stages:     map[string]*StageResult{},
		},
	}
	ex.result.ExecutionId = ex.id

	e.mu.Lock()
	if len(e.active) >= e.config.MaxConcurrentExecutions {
		e.queue = append(e.queue, ex)
		ex.result.Status = StatusQueued
		ex.result.QueuePosition = len(e.queue)
		e.remember(ex.result)
		e.mu.Unlock()
		log.Printf("execution %s of pipeline %s queued at position %d", ex.id, pipelineId, ex.result.QueuePosition)
		return snapshotResult(ex.result), nil
	}
	e.admit(ex)
	e.mu.Unlock()

	e.run(ex)
	return e.GetExecution(ex.id)
}

// admit marks the execution active. Caller holds e.mu.
func (e *Engine) admit(ex *execution) {
	ex.result.Status = StatusRunning
	ex.result.QueuePosition = 0
	ex.result.StartedTs = time.Now()
	e.active[ex.id] = ex
	e.remember(ex.result)
}

// remember keeps the result in the bounded history. Caller holds e.mu.
func (e *Engine) remember(result *ExecutionResult) {
	if _, ok := e.history[result.ExecutionId]; !ok {
		e.order = append(e.order, result.ExecutionId)
	}
	e.history[result.ExecutionId] = result
	for len(e.order) > e.config.ResultHistory {
		delete(e.history, e.order[0])
		e.order = e.order[1:]
	}
}

// drain promotes queued executions into freed slots, oldest first.
func (e *Engine) drain() {
	for {
		e.mu.Lock()
		if len(e.queue) == 0 || len(e.active) >= e.config.MaxConcurrentExecutions {
			for i, queued := range e.queue {
				queued.result.QueuePosition = i + 1
			}
			e.mu.Unlock()
			return
		}
		ex := e.queue[0]
		e.queue = e.queue[1:]
		e.admit(ex)
		e.mu.Unlock()
		go e.run(ex)
	}
}

func (e *Engine) GetExecution(executionId string) (*ExecutionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	result, ok := e.history[executionId]
	if !ok {
		return nil, errors.Wrap(ErrExecutionNotFound, executionId)
	}
	return snapshotResult(result), nil
}

func (e *Engine) ListExecutions() []*ExecutionResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	ret := make([]*ExecutionResult, 0, len(e.order))
	for _, id := range e.order {
		ret = append(ret, snapshotResult(e.history[id]))
	}
	return ret
}

// Cancel removes a queued execution outright, or signals a running one to
// stop cooperatively. A stage already in flight finishes its current attempt.
func (e *Engine) Cancel(executionId string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, queued := range e.queue {
		if queued.id == executionId {
			e.queue = append(e.queue[:i], e.queue[i+1:]...)
			queued.result.Status = StatusCancelled
			queued.result.QueuePosition = 0
			queued.result.FinishedTs = time.Now()
			close(queued.done)
			return nil
		}
	}
	if ex, ok := e.active[executionId]; ok {
		if ex.cancel != nil {
			ex.cancel()
		}
		return nil
	}
	if result, ok := e.history[executionId]; ok {
		return errors.Wrapf(ErrExecutionNotFound, "execution %s already %s", executionId, result.Status)
	}
	return errors.Wrap(ErrExecutionNotFound, executionId)
}

func (e *Engine) run(ex *execution) {
	ctx, cancel := context.WithTimeout(context.Background(), ex.def.Timeout)
	defer cancel()
	e.mu.Lock()
	ex.cancel = cancel
	e.mu.Unlock()

	runErr := e.runWaves(ctx, ex)

	e.mu.Lock()
	delete(e.active, ex.id)
	ex.result.FinishedTs = time.Now()
	ex.result.Output = ex.finalOutput()
	switch {
	case runErr == nil:
		ex.result.Status = StatusCompleted
	case errors.Is(runErr, context.Canceled):
		ex.result.Status = StatusCancelled
		ex.result.Error = "execution cancelled"
	case errors.Is(runErr, context.DeadlineExceeded):
		ex.result.Status = StatusFailed
		ex.result.Error = fmt.Sprintf("pipeline timeout after %s", ex.def.Timeout)
	default:
		ex.result.Status = StatusFailed
		ex.result.Error = runErr.Error()
	}
	status := ex.result.Status
	e.mu.Unlock()
	close(ex.done)

	topic := events.TopicPipelineCompleted
	if status != StatusCompleted {
		topic = events.TopicPipelineFailed
	}
	event := events.NewEvent(topic, "pipeline", map[string]interface{}{
		"pipeline_id":  ex.def.Id,
		"execution_id": ex.id,
		"status":       string(status),
	})
	event.CorrelationId = ex.inv.CorrelationId
	if pubErr := e.bus.Publish(event); pubErr != nil {
		log.Debugf("pipeline %s event not fully delivered: %s", topic, pubErr)
	}
	log.Printf("execution %s of pipeline %s finished: %s", ex.id, ex.def.Id, status)

	e.drain()
}

// finalOutput is the explicit pipeline_output if any stage produced one,
// otherwise the accumulator as it stands.
func (ex *execution) finalOutput() map[string]interface{} {
	if ex.output != nil {
		return ex.output
	}
	return copyMap(ex.accumulator)
}

// runWaves walks the dependency graph wavefront by wavefront. Failed and
// skipped stages still satisfy the frontier so independent branches keep
// going; their dependents get a dependency_failed marker unless the pipeline
// halts on failure.
func (e *Engine) runWaves(ctx context.Context, ex *execution) error {
	remaining := make(map[string]db.Stage, len(ex.def.Stages))
	for _, stage := range ex.def.Stages {
		remaining[stage.Id] = stage
	}
	settled := map[string]StageStatus{}

	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		var frontier []db.Stage
		for _, stage := range ex.def.Stages {
			if _, pending := remaining[stage.Id]; !pending {
				continue
			}
			ready := true
			for _, dep := range stage.Dependencies {
				if _, done := settled[dep]; !done {
					ready = false
					break
				}
			}
			if ready {
				frontier = append(frontier, stage)
			}
		}
		if len(frontier) == 0 {
			return fmt.Errorf("no runnable stages among %d remaining", len(remaining))
		}

		var wave []db.Stage
		for _, stage := range frontier {
			delete(remaining, stage.Id)

			if failedDep := firstFailedDependency(stage, settled); failedDep != "" {
				if ex.def.HaltOnFailure {
					return fmt.Errorf("stage %s failed, pipeline halts on failure", failedDep)
				}
				settled[stage.Id] = StageDependencyFailed
				e.recordStage(ex, &StageResult{
					StageId:     stage.Id,
					AlgorithmId: stage.AlgorithmId,
					Status:      StageDependencyFailed,
					Error:       fmt.Sprintf("dependency %s failed", failedDep),
				})
				continue
			}

			scope := copyMap(ex.input)
			for k, v := range ex.accumulator {
				scope[k] = v
			}
			if !evaluateConditions(stage.Conditions, scope) {
				settled[stage.Id] = StageSkipped
				e.recordStage(ex, &StageResult{
					StageId:     stage.Id,
					AlgorithmId: stage.AlgorithmId,
					Status:      StageSkipped,
				})
				continue
			}
			wave = append(wave, stage)
		}
		if len(wave) == 0 {
			continue
		}

		results := make([]*StageResult, len(wave))
		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(ex.def.MaxConcurrency)
		for i, stage := range wave {
			i, stage := i, stage
			input := resolveInput(stage.Input, ex.input, ex.accumulator)
			group.Go(func() error {
				results[i] = e.runStage(groupCtx, ex, stage, input)
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		for i, stage := range wave {
			result := results[i]
			settled[stage.Id] = result.Status
			e.recordStage(ex, result)
			if result.Status == StageCompleted {
				ex.applyOutput(stage, result.Output)
			} else if ex.def.HaltOnFailure {
				return fmt.Errorf("stage %s failed: %s", stage.Id, result.Error)
			}
		}
	}
	return nil
}

func firstFailedDependency(stage db.Stage, settled map[string]StageStatus) string {
	for _, dep := range stage.Dependencies {
		switch settled[dep] {
		case StageFailed, StageDependencyFailed:
			return dep
		}
	}
	return ""
}

// recordStage publishes a stage outcome under the engine lock so concurrent
// GetExecution snapshots stay consistent.
func (e *Engine) recordStage(ex *execution, result *StageResult) {
	e.mu.Lock()
	ex.result.Stages[result.StageId] = result
	e.mu.Unlock()
}

// runStage invokes the executor under the stage timeout and retry policy, and
// reports every attempt to the monitoring engine.
func (e *Engine) runStage(ctx context.Context, ex *execution, stage db.Stage, input map[string]interface{}) *StageResult {
	ret := &StageResult{
		StageId:     stage.Id,
		AlgorithmId: stage.AlgorithmId,
	}

	timeout := stage.Timeout
	if timeout <= 0 {
		timeout = e.config.DefaultStageTimeout
	}
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	var data map[string]interface{}
	err := retry.Do(
		func() error {
			ret.Attempts++
			attemptStart := time.Now()
			result, execErr := e.executor.Execute(stageCtx, stage.AlgorithmId, input, ex.inv)
			callTime := time.Since(attemptStart)
			if result != nil && result.ExecutionTime > 0 {
				callTime = result.ExecutionTime
			}
			success := execErr == nil && result != nil && result.Success
			if monErr := e.monitor.RecordExecution(ctx, stage.AlgorithmId, success, callTime); monErr != nil {
				log.Printf("failed to record execution of %s: %s", stage.AlgorithmId, monErr)
			}
			if execErr != nil {
				return execErr
			}
			if result == nil || !result.Success {
				msg := "algorithm reported failure"
				if result != nil && result.Error != "" {
					msg = result.Error
				}
				return fmt.Errorf("%s", msg)
			}
			data = result.Data
			return nil
		},
		retryOptions(stage.Retry, stageCtx)...,
	)
	ret.Duration = time.Since(started)
	if err != nil {
		ret.Status = StageFailed
		ret.Error = err.Error()
		log.Printf("stage %s of execution %s failed after %d attempts: %s", stage.Id, ex.id, ret.Attempts, err)
		return ret
	}
	ret.Status = StageCompleted
	ret.Output = data
	return ret
}

func retryOptions(policy *db.RetryPolicy, ctx context.Context) []retry.Option {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	}
	if policy == nil || policy.MaxRetries <= 0 {
		return append(opts, retry.Attempts(1))
	}
	opts = append(opts, retry.Attempts(uint(policy.MaxRetries)+1))
	if policy.InitialDelay > 0 {
		opts = append(opts, retry.Delay(policy.InitialDelay))
	}
	if policy.MaxDelay > 0 {
		opts = append(opts, retry.MaxDelay(policy.MaxDelay))
	}
	if policy.Backoff == db.BackoffFixed {
		opts = append(opts, retry.DelayType(retry.FixedDelay))
	} else {
		opts = append(opts, retry.DelayType(retry.BackOffDelay))
	}
	return opts
}

func snapshotResult(result *ExecutionResult) *ExecutionResult {
	dup := *result
	dup.Stages = make(map[string]*StageResult, len(result.Stages))
	for id, stage := range result.Stages {
		stageCopy := *stage
		dup.Stages[id] = &stageCopy
	}
	dup.Output = copyMap(result.Output)
	return &dup
}
