package registry

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sitecraft/AlgoOrchestration/internal/db"
	"github.com/sitecraft/AlgoOrchestration/internal/db/memory"
	"github.com/sitecraft/AlgoOrchestration/internal/events"
	"github.com/sitecraft/AlgoOrchestration/internal/executor"
	"github.com/stretchr/testify/assert"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	cfg := &Config{
		SmokeTestAttempts: 3,
		SmokeTestDelay:    time.Millisecond,
		SmokeTestMaxDelay: 5 * time.Millisecond,
		SmokeTestTimeout:  time.Second,
	}
	return NewRegistry(cfg, memory.NewDatabase(), executor.NewMock(), events.NewBus(16))
}

func (r *Registry) mock() *executor.Mock {
	return r.executor.(*executor.Mock)
}

func schedulingVersion(algorithmId, version string) *db.AlgorithmVersion {
	return &db.AlgorithmVersion{
		AlgorithmId: algorithmId,
		Version:     version,
		Name:        "critical path scheduler",
		Category:    db.CategoryScheduling,
		Priority:    db.PriorityHigh,
		CreatedBy:   "tester",
	}
}

func TestRegisterAlgorithmValidation(t *testing.T) {
	registry := newTestRegistry(t)

	missing := schedulingVersion("", "")
	_, err := registry.RegisterAlgorithm(context.TODO(), missing)
	assert.True(t, errors.Is(err, ErrValidation))

	badCategory := schedulingVersion("scheduler", "1.0.0")
	badCategory.Category = "fortune_telling"
	_, err = registry.RegisterAlgorithm(context.TODO(), badCategory)
	assert.True(t, errors.Is(err, ErrValidation))

	// nothing persisted on validation failure
	ids, err := registry.db.Algorithms().ListAlgorithmIds(context.TODO())
	assert.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRegisterAlgorithmCreatesPendingDeployment(t *testing.T) {
	registry := newTestRegistry(t)

	created, err := registry.RegisterAlgorithm(context.TODO(), schedulingVersion("scheduler", "1.0.0"))
	assert.NoError(t, err)
	assert.Equal(t, "scheduler", created.AlgorithmId)

	deployments, err := registry.ListDeployments(context.TODO(), "scheduler", nil)
	assert.NoError(t, err)
	assert.Len(t, deployments, 1)
	assert.Equal(t, db.DeploymentPending, deployments[0].State)
	assert.Equal(t, db.EnvDevelopment, deployments[0].Environment)
}

func TestRegisterAlgorithmDuplicateVersion(t *testing.T) {
	registry := newTestRegistry(t)

	_, err := registry.RegisterAlgorithm(context.TODO(), schedulingVersion("scheduler", "1.0.0"))
	assert.NoError(t, err)
	_, err = registry.RegisterAlgorithm(context.TODO(), schedulingVersion("scheduler", "1.0.0"))
	assert.True(t, errors.Is(err, ErrDuplicateVersion))

	// a new version of the same algorithm is fine
	_, err = registry.RegisterAlgorithm(context.TODO(), schedulingVersion("scheduler", "1.1.0"))
	assert.NoError(t, err)
}

func TestDeployHappyPath(t *testing.T) {
	registry := newTestRegistry(t)

	_, err := registry.RegisterAlgorithm(context.TODO(), schedulingVersion("scheduler", "1.0.0"))
	assert.NoError(t, err)

	deployment, err := registry.Deploy(context.TODO(), "scheduler", "1.0.0", db.EnvStaging, "tester")
	assert.NoError(t, err)
	assert.Equal(t, db.DeploymentActive, deployment.State)
	assert.Len(t, deployment.HealthChecks, 3)
	for _, check := range deployment.HealthChecks {
		assert.True(t, check.Passed, check.Name)
	}
}

func TestDeployUnknownVersion(t *testing.T) {
	registry := newTestRegistry(t)

	_, err := registry.Deploy(context.TODO(), "scheduler", "9.9.9", db.EnvStaging, "tester")
	assert.True(t, errors.Is(err, ErrVersionNotFound))

	_, err = registry.Deploy(context.TODO(), "scheduler", "1.0.0", "moon", "tester")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestDeployExclusivity(t *testing.T) {
	registry := newTestRegistry(t)

	_, err := registry.RegisterAlgorithm(context.TODO(), schedulingVersion("scheduler", "1.0.0"))
	assert.NoError(t, err)
	_, err = registry.RegisterAlgorithm(context.TODO(), schedulingVersion("scheduler", "1.1.0"))
	assert.NoError(t, err)

	_, err = registry.Deploy(context.TODO(), "scheduler", "1.0.0", db.EnvStaging, "tester")
	assert.NoError(t, err)

	// the slot is occupied; a second deploy into staging must not write state
	before, err := registry.ListDeployments(context.TODO(), "scheduler", nil)
	assert.NoError(t, err)
	_, err = registry.Deploy(context.TODO(), "scheduler", "1.1.0", db.EnvStaging, "tester")
	assert.True(t, errors.Is(err, ErrDeploymentConflict))
	after, err := registry.ListDeployments(context.TODO(), "scheduler", nil)
	assert.NoError(t, err)
	assert.Equal(t, len(before), len(after))

	// a different environment is untouched by the conflict
	_, err = registry.Deploy(context.TODO(), "scheduler", "1.1.0", db.EnvProduction, "tester")
	assert.NoError(t, err)
}

func TestDeployFailedSmokeTest(t *testing.T) {
	registry := newTestRegistry(t)
	registry.mock().Outcomes["scheduler"] = executor.MockOutcome{Fail: true}

	_, err := registry.RegisterAlgorithm(context.TODO(), schedulingVersion("scheduler", "1.0.0"))
	assert.NoError(t, err)

	deployment, err := registry.Deploy(context.TODO(), "scheduler", "1.0.0", db.EnvStaging, "tester")
	assert.NoError(t, err)
	assert.Equal(t, db.DeploymentFailed, deployment.State)
	assert.Contains(t, deployment.FailureReason, "smoke-test")
	// every attempt hits the executor
	assert.Equal(t, 3, registry.mock().CallsFor("scheduler"))

	// a failed deployment frees the slot
	registry.mock().Outcomes["scheduler"] = executor.MockOutcome{}
	retried, err := registry.Deploy(context.TODO(), "scheduler", "1.0.0", db.EnvStaging, "tester")
	assert.NoError(t, err)
	assert.Equal(t, db.DeploymentActive, retried.State)
}

func TestDeploySmokeTestRetriesThenSucceeds(t *testing.T) {
	registry := newTestRegistry(t)
	registry.mock().Outcomes["scheduler"] = executor.MockOutcome{FailTimes: 2}

	_, err := registry.RegisterAlgorithm(context.TODO(), schedulingVersion("scheduler", "1.0.0"))
	assert.NoError(t, err)

	deployment, err := registry.Deploy(context.TODO(), "scheduler", "1.0.0", db.EnvStaging, "tester")
	assert.NoError(t, err)
	assert.Equal(t, db.DeploymentActive, deployment.State)
	assert.Equal(t, 3, registry.mock().CallsFor("scheduler"))
}

func TestDeployDependencyResolution(t *testing.T) {
	registry := newTestRegistry(t)

	dependent := schedulingVersion("scheduler", "1.0.0")
	dependent.Dependencies = []string{"estimator"}
	_, err := registry.RegisterAlgorithm(context.TODO(), dependent)
	assert.NoError(t, err)

	deployment, err := registry.Deploy(context.TODO(), "scheduler", "1.0.0", db.EnvStaging, "tester")
	assert.NoError(t, err)
	assert.Equal(t, db.DeploymentFailed, deployment.State)
	assert.Contains(t, deployment.FailureReason, "dependency-resolution")
	// the procedure stops at the first failed check
	assert.Equal(t, 0, registry.mock().CallsFor("scheduler"))

	// an active dependency version unblocks the deploy
	estimator := schedulingVersion("estimator", "1.0.0")
	estimator.Category = db.CategoryEstimation
	_, err = registry.RegisterAlgorithm(context.TODO(), estimator)
	assert.NoError(t, err)
	_, err = registry.Deploy(context.TODO(), "estimator", "1.0.0", db.EnvProduction, "tester")
	assert.NoError(t, err)

	deployment, err = registry.Deploy(context.TODO(), "scheduler", "1.0.0", db.EnvStaging, "tester")
	assert.NoError(t, err)
	assert.Equal(t, db.DeploymentActive, deployment.State)
}

func TestProductionDeployFlipsActiveVersion(t *testing.T) {
	registry := newTestRegistry(t)

	_, err := registry.RegisterAlgorithm(context.TODO(), schedulingVersion("scheduler", "1.0.0"))
	assert.NoError(t, err)
	_, err = registry.RegisterAlgorithm(context.TODO(), schedulingVersion("scheduler", "2.0.0"))
	assert.NoError(t, err)

	_, err = registry.GetActiveVersion(context.TODO(), "scheduler")
	assert.True(t, errors.Is(err, db.ErrNotFound))

	_, err = registry.Deploy(context.TODO(), "scheduler", "2.0.0", db.EnvProduction, "tester")
	assert.NoError(t, err)

	active, err := registry.GetActiveVersion(context.TODO(), "scheduler")
	assert.NoError(t, err)
	assert.Equal(t, "2.0.0", active.Version)
}

func TestRollbackAppendsHistory(t *testing.T) {
	registry := newTestRegistry(t)

	_, err := registry.RegisterAlgorithm(context.TODO(), schedulingVersion("scheduler", "1.0.0"))
	assert.NoError(t, err)
	_, err = registry.RegisterAlgorithm(context.TODO(), schedulingVersion("scheduler", "2.0.0"))
	assert.NoError(t, err)

	_, err = registry.Deploy(context.TODO(), "scheduler", "2.0.0", db.EnvProduction, "tester")
	assert.NoError(t, err)

	rolled, err := registry.Rollback(context.TODO(), "scheduler", db.EnvProduction, "1.0.0", "tester")
	assert.NoError(t, err)
	assert.Equal(t, db.DeploymentActive, rolled.State)
	assert.Equal(t, "1.0.0", rolled.Version)
	assert.Equal(t, "2.0.0", rolled.RolledBackFrom)

	env := db.EnvProduction
	history, err := registry.ListDeployments(context.TODO(), "scheduler", &env)
	assert.NoError(t, err)
	// history is append-only: the superseded deployment stays, marked rolled_back
	assert.Len(t, history, 2)
	assert.Equal(t, db.DeploymentRolledBack, history[0].State)
	assert.Equal(t, db.DeploymentActive, history[1].State)
}

func TestRollbackFlipsActiveVersion(t *testing.T) {
	registry := newTestRegistry(t)

	_, err := registry.RegisterAlgorithm(context.TODO(), schedulingVersion("scheduler", "1.0.0"))
	assert.NoError(t, err)
	_, err = registry.RegisterAlgorithm(context.TODO(), schedulingVersion("scheduler", "2.0.0"))
	assert.NoError(t, err)

	_, err = registry.Deploy(context.TODO(), "scheduler", "1.0.0", db.EnvProduction, "tester")
	assert.NoError(t, err)

	_, err = registry.Rollback(context.TODO(), "scheduler", db.EnvProduction, "2.0.0", "tester")
	assert.NoError(t, err)

	// the superseded version must not shadow the one production now runs
	active, err := registry.GetActiveVersion(context.TODO(), "scheduler")
	assert.NoError(t, err)
	assert.Equal(t, "2.0.0", active.Version)

	versions, err := registry.db.Algorithms().ListVersions(context.TODO(), "scheduler")
	assert.NoError(t, err)
	flagged := 0
	for _, v := range versions {
		if v.Active || v.Default {
			flagged++
			assert.Equal(t, "2.0.0", v.Version)
		}
	}
	assert.Equal(t, 1, flagged)
}

func TestRollbackWithoutActiveDeployment(t *testing.T) {
	registry := newTestRegistry(t)

	_, err := registry.Rollback(context.TODO(), "scheduler", db.EnvProduction, "1.0.0", "tester")
	assert.True(t, errors.Is(err, ErrVersionNotFound))
}
