// Package abtest runs A/B experiments over algorithm variants: eligibility
// gating, sticky weight-based assignment, per-call result capture and the
// statistics that drive a deploy/stop/extend/continue recommendation.
package abtest

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/sitecraft/AlgoOrchestration/internal/db"
	"github.com/sitecraft/AlgoOrchestration/internal/events"
	"github.com/sitecraft/AlgoOrchestration/internal/executor"
	"github.com/sitecraft/AlgoOrchestration/internal/monitoring"
)

var (
	ErrValidation     = fmt.Errorf("validation failed")
	ErrTestNotFound   = fmt.Errorf("test not found")
	ErrTestNotRunning = fmt.Errorf("test is not running")
	ErrNotEligible    = fmt.Errorf("user is not eligible for this test")
)

const weightSumEpsilon = 0.01

type Engine struct {
	config   *Config
	db       db.Database
	executor executor.Executor
	monitor  *monitoring.Engine
	bus      *events.Bus

	randMu sync.Mutex
	rng    *rand.Rand
}

func NewEngine(config *Config, database db.Database, exec executor.Executor, monitor *monitoring.Engine, bus *events.Bus) *Engine {
	return &Engine{
		config:   config,
		db:       database,
		executor: exec,
		monitor:  monitor,
		bus:      bus,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// roll returns a uniform draw in [0, 100).
func (e *Engine) roll() float64 {
	e.randMu.Lock()
	defer e.randMu.Unlock()
	return e.rng.Float64() * 100
}

func (e *Engine) CreateTest(ctx context.Context, def *db.ABTestDefinition) (*db.ABTestDefinition, error) {
	if err := validateTest(def); err != nil {
		return nil, err
	}
	def.State = db.TestDraft
	if def.Criteria.ConfidenceLevel <= 0 || def.Criteria.ConfidenceLevel >= 1 {
		def.Criteria.ConfidenceLevel = 0.95
	}
	if def.Criteria.MinimumSampleSize <= 0 {
		def.Criteria.MinimumSampleSize = 100
	}
	if def.Criteria.PrimaryMetric == "" {
		def.Criteria.PrimaryMetric = MetricSuccessRate
	}
	created, err := e.db.Tests().CreateTest(ctx, def)
	if err != nil {
		if err == db.ErrAlreadyExists {
			return nil, fmt.Errorf("%w: test %q already exists", ErrValidation, def.Id)
		}
		return nil, err
	}
	log.Printf("created test %s with %d variants at %.0f%% traffic", created.Id, len(created.Variants), created.TrafficAllocation)
	return created, nil
}

func validateTest(def *db.ABTestDefinition) error {
	var errs *multierror.Error
	if def.Id == "" {
		errs = multierror.Append(errs, fmt.Errorf("test id is required"))
	}
	if def.Name == "" {
		errs = multierror.Append(errs, fmt.Errorf("test name is required"))
	}
	if len(def.Variants) < 2 {
		errs = multierror.Append(errs, fmt.Errorf("a test needs at least two variants"))
	}
	if def.TrafficAllocation < 0 || def.TrafficAllocation > 100 {
		errs = multierror.Append(errs, fmt.Errorf("traffic allocation must be within 0..100"))
	}

	controls := 0
	weightSum := 0.0
	seen := map[string]bool{}
	for _, variant := range def.Variants {
		if variant.Id == "" {
			errs = multierror.Append(errs, fmt.Errorf("variant id is required"))
			continue
		}
		if seen[variant.Id] {
			errs = multierror.Append(errs, fmt.Errorf("duplicate variant id %q", variant.Id))
		}
		seen[variant.Id] = true
		if variant.AlgorithmId == "" {
			errs = multierror.Append(errs, fmt.Errorf("variant %q has no algorithm id", variant.Id))
		}
		if variant.Weight < 0 {
			errs = multierror.Append(errs, fmt.Errorf("variant %q has a negative weight", variant.Id))
		}
		if variant.IsControl {
			controls++
		}
		weightSum += variant.Weight
	}
	if controls != 1 {
		errs = multierror.Append(errs, fmt.Errorf("exactly one control variant is required, got %d", controls))
	}
	if math.Abs(weightSum-100) > weightSumEpsilon {
		errs = multierror.Append(errs, fmt.Errorf("variant weights must sum to 100, got %.2f", weightSum))
	}

	if err := errs.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

func (e *Engine) GetTest(ctx context.Context, id string) (*db.ABTestDefinition, error) {
	def, err := e.db.Tests().GetTest(ctx, id)
	if err == db.ErrNotFound {
		return nil, errors.Wrap(ErrTestNotFound, id)
	}
	return def, err
}

func (e *Engine) ListTests(ctx context.Context, state *db.TestState) ([]*db.ABTestDefinition, error) {
	return e.db.Tests().ListTests(ctx, state)
}

func (e *Engine) StartTest(ctx context.Context, id string) error {
	err := e.db.Tests().UpdateTestState(ctx, id, []db.TestState{db.TestDraft}, db.TestRunning, "")
	if err != nil {
		if err == db.ErrNotFound {
			return errors.Wrap(ErrTestNotFound, id)
		}
		return err
	}
	if pubErr := e.bus.Publish(events.NewEvent(events.TopicTestStarted, "abtest", map[string]interface{}{
		"test_id": id,
	})); pubErr != nil {
		log.Debugf("test started event not fully delivered: %s", pubErr)
	}
	log.Printf("test %s started", id)
	return nil
}

func (e *Engine) PauseTest(ctx context.Context, id string) error {
	err := e.db.Tests().UpdateTestState(ctx, id, []db.TestState{db.TestRunning}, db.TestPaused, "")
	if err == db.ErrNotFound {
		return errors.Wrap(ErrTestNotFound, id)
	}
	return err
}

func (e *Engine) ResumeTest(ctx context.Context, id string) error {
	err := e.db.Tests().UpdateTestState(ctx, id, []db.TestState{db.TestPaused}, db.TestRunning, "")
	if err == db.ErrNotFound {
		return errors.Wrap(ErrTestNotFound, id)
	}
	return err
}

// StopTest is terminal. The end reason is kept for the audit trail; sticky
// assignments are kept as well so statistics stay attributable.
func (e *Engine) StopTest(ctx context.Context, id string, reason string) error {
	to := db.TestCompleted
	if strings.HasPrefix(reason, "cancelled") {
		to = db.TestCancelled
	}
	err := e.db.Tests().UpdateTestState(ctx, id, []db.TestState{db.TestRunning, db.TestPaused}, to, reason)
	if err != nil {
		if err == db.ErrNotFound {
			return errors.Wrap(ErrTestNotFound, id)
		}
		return err
	}
	if pubErr := e.bus.Publish(events.NewEvent(events.TopicTestStopped, "abtest", map[string]interface{}{
		"test_id": id,
		"reason":  reason,
	})); pubErr != nil {
		log.Debugf("test stopped event not fully delivered: %s", pubErr)
	}
	log.Printf("test %s stopped: %s", id, reason)
	return nil
}

type TestOutcome struct {
	TestId    string           `json:"test_id"`
	VariantId string           `json:"variant_id"`
	Result    *executor.Result `json:"result"`
}

// ExecuteWithABTest routes one call through a running test: traffic gate,
// targeting rules and the user lists decide eligibility, then the sticky
// assignment picks the variant whose pinned algorithm is executed.
func (e *Engine) ExecuteWithABTest(ctx context.Context, testId string, input map[string]interface{}, inv *executor.Invocation) (*TestOutcome, error) {
	def, err := e.GetTest(ctx, testId)
	if err != nil {
		return nil, err
	}
	if inv == nil || inv.UserId == "" {
		return nil, fmt.Errorf("%w: a user id is required", ErrValidation)
	}
	switch def.State {
	case db.TestRunning:
	case db.TestPaused:
		// a paused test keeps serving its existing assignees; enrollment of new
		// users waits for resume
		if _, aErr := e.db.Assignments().GetAssignment(ctx, testId, inv.UserId); aErr != nil {
			if aErr == db.ErrNotFound {
				return nil, errors.Wrapf(ErrTestNotRunning, "test %s is paused", testId)
			}
			return nil, aErr
		}
	default:
		return nil, errors.Wrapf(ErrTestNotRunning, "test %s is %s", testId, def.State)
	}

	if err := e.checkEligibility(def, inv); err != nil {
		return nil, err
	}

	variant, err := e.assignVariant(ctx, def, inv.UserId)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]interface{}, len(variant.Config)+len(input))
	for k, v := range variant.Config {
		merged[k] = v
	}
	for k, v := range input {
		merged[k] = v
	}

	started := time.Now()
	result, execErr := e.executor.Execute(ctx, variant.AlgorithmId, merged, inv)
	callTime := time.Since(started)
	if result != nil && result.ExecutionTime > 0 {
		callTime = result.ExecutionTime
	}
	success := execErr == nil && result != nil && result.Success

	if monErr := e.monitor.RecordExecution(ctx, variant.AlgorithmId, success, callTime); monErr != nil {
		log.Printf("failed to record test execution of %s: %s", variant.AlgorithmId, monErr)
	}
	record := &db.TestExecutionResult{
		TestId:        testId,
		VariantId:     variant.Id,
		UserId:        inv.UserId,
		Success:       success,
		ExecutionTime: callTime,
	}
	if execErr != nil {
		record.Error = execErr.Error()
	} else if result != nil && result.Error != "" {
		record.Error = result.Error
	}
	if _, recErr := e.db.Tests().RecordResult(ctx, record); recErr != nil {
		log.Printf("failed to record result for test %s: %s", testId, recErr)
	}

	if execErr != nil {
		return nil, execErr
	}
	return &TestOutcome{TestId: testId, VariantId: variant.Id, Result: result}, nil
}

func (e *Engine) checkEligibility(def *db.ABTestDefinition, inv *executor.Invocation) error {
	if def.TrafficAllocation < 100 && e.roll() >= def.TrafficAllocation {
		return errors.Wrap(ErrNotEligible, "outside the traffic allocation")
	}
	if !matchesTargeting(def, inv.Metadata) {
		return errors.Wrap(ErrNotEligible, "targeting rules not met")
	}
	for _, excluded := range def.ExcludeUsers {
		if excluded == inv.UserId {
			return errors.Wrap(ErrNotEligible, "user is excluded")
		}
	}
	if len(def.IncludeUsers) > 0 {
		for _, included := range def.IncludeUsers {
			if included == inv.UserId {
				return nil
			}
		}
		return errors.Wrap(ErrNotEligible, "user is not on the include list")
	}
	return nil
}

// assignVariant reuses the stored assignment, or draws one by cumulative
// weight and races it into the store; the stored winner is authoritative.
func (e *Engine) assignVariant(ctx context.Context, def *db.ABTestDefinition, userId string) (*db.TestVariant, error) {
	if existing, err := e.db.Assignments().GetAssignment(ctx, def.Id, userId); err == nil {
		return variantById(def, existing.VariantId)
	} else if err != db.ErrNotFound {
		return nil, err
	}

	draw := e.roll()
	cumulative := 0.0
	chosen := def.Variants[len(def.Variants)-1]
	for _, variant := range def.Variants {
		cumulative += variant.Weight
		if draw < cumulative {
			chosen = variant
			break
		}
	}

	stored, err := e.db.Assignments().CreateIfAbsent(ctx, &db.UserVariantAssignment{
		TestId:    def.Id,
		UserId:    userId,
		VariantId: chosen.Id,
	})
	if err != nil {
		return nil, err
	}
	return variantById(def, stored.VariantId)
}

func variantById(def *db.ABTestDefinition, id string) (*db.TestVariant, error) {
	for i := range def.Variants {
		if def.Variants[i].Id == id {
			return &def.Variants[i], nil
		}
	}
	return nil, fmt.Errorf("test %s has no variant %q", def.Id, id)
}
