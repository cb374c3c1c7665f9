package sqlite

import (
	"context"
	"strings"
	"testing"

	"github.com/sitecraft/AlgoOrchestration/internal/db"
	sqlitemig "github.com/sitecraft/AlgoOrchestration/internal/migrations/sqlite"
	lsql "github.com/sitecraft/AlgoOrchestration/pkg/sql"
	"github.com/stretchr/testify/assert"
)

func newTestInstance(t *testing.T) *lsql.Instance {
	t.Helper()
	cfg, err := lsql.NewTestingConfig(t)
	assert.NoError(t, err)
	instance, err := lsql.NewInstance(cfg)
	assert.NoError(t, err)
	t.Cleanup(func() {
		instance.Close()
	})

	schema, err := sqlitemig.Asset("1_registry.up.sql")
	assert.NoError(t, err)
	for _, statement := range strings.Split(string(schema), ";") {
		if strings.TrimSpace(statement) == "" {
			continue
		}
		_, err = instance.ExecContext(context.Background(), statement)
		assert.NoError(t, err)
	}
	return instance
}

func TestCreateDeploymentOccupiedSlot(t *testing.T) {
	ctx := context.Background()
	store := NewDeployments(newTestInstance(t))

	first, err := store.CreateDeployment(ctx, &db.Deployment{
		AlgorithmId: "ranker",
		Version:     "1.0.0",
		Environment: db.EnvStaging,
		State:       db.DeploymentActive,
	})
	assert.NoError(t, err)
	assert.NotZero(t, first.Id)

	// active occupant blocks new deploys to the same slot
	_, err = store.CreateDeployment(ctx, &db.Deployment{
		AlgorithmId: "ranker",
		Version:     "2.0.0",
		Environment: db.EnvStaging,
		State:       db.DeploymentDeploying,
	})
	assert.Equal(t, db.ErrAlreadyExists, err)

	// a different environment is a different slot
	_, err = store.CreateDeployment(ctx, &db.Deployment{
		AlgorithmId: "ranker",
		Version:     "1.0.0",
		Environment: db.EnvProduction,
		State:       db.DeploymentActive,
	})
	assert.NoError(t, err)

	// terminal records never occupy a slot
	_, err = store.CreateDeployment(ctx, &db.Deployment{
		AlgorithmId: "ranker",
		Version:     "0.9.0",
		Environment: db.EnvStaging,
		State:       db.DeploymentRolledBack,
	})
	assert.NoError(t, err)
}

func TestUpdateDeploymentStateTransitions(t *testing.T) {
	ctx := context.Background()
	store := NewDeployments(newTestInstance(t))

	dep, err := store.CreateDeployment(ctx, &db.Deployment{
		AlgorithmId: "ranker",
		Version:     "1.0.0",
		Environment: db.EnvStaging,
		State:       db.DeploymentDeploying,
	})
	assert.NoError(t, err)

	err = store.UpdateDeploymentState(ctx, dep.Id,
		[]db.DeploymentState{db.DeploymentActive}, db.DeploymentRolledBack)
	assert.Equal(t, db.ErrInvalidTransition, err)

	err = store.UpdateDeploymentState(ctx, dep.Id+100,
		[]db.DeploymentState{db.DeploymentDeploying}, db.DeploymentActive)
	assert.Equal(t, db.ErrNotFound, err)

	err = store.UpdateDeploymentState(ctx, dep.Id,
		[]db.DeploymentState{db.DeploymentDeploying}, db.DeploymentActive)
	assert.NoError(t, err)

	got, err := store.GetDeployment(ctx, dep.Id)
	assert.NoError(t, err)
	assert.Equal(t, db.DeploymentActive, got.State)

	current, err := store.ActiveDeployment(ctx, "ranker", db.EnvStaging)
	assert.NoError(t, err)
	assert.Equal(t, dep.Id, current.Id)
}

func TestActivationRespectsOccupiedSlot(t *testing.T) {
	ctx := context.Background()
	store := NewDeployments(newTestInstance(t))

	active, err := store.CreateDeployment(ctx, &db.Deployment{
		AlgorithmId: "ranker",
		Version:     "1.0.0",
		Environment: db.EnvStaging,
		State:       db.DeploymentActive,
	})
	assert.NoError(t, err)

	// a failed record can sit next to the active one
	failed, err := store.CreateDeployment(ctx, &db.Deployment{
		AlgorithmId: "ranker",
		Version:     "2.0.0",
		Environment: db.EnvStaging,
		State:       db.DeploymentFailed,
	})
	assert.NoError(t, err)

	// but it cannot re-activate while the slot is taken
	err = store.UpdateDeploymentState(ctx, failed.Id,
		[]db.DeploymentState{db.DeploymentFailed}, db.DeploymentActive)
	assert.Equal(t, db.ErrAlreadyExists, err)

	err = store.UpdateDeploymentState(ctx, active.Id,
		[]db.DeploymentState{db.DeploymentActive}, db.DeploymentRolledBack)
	assert.NoError(t, err)
	err = store.UpdateDeploymentState(ctx, failed.Id,
		[]db.DeploymentState{db.DeploymentFailed}, db.DeploymentActive)
	assert.NoError(t, err)
}

func TestVersionDefaultFlagExclusive(t *testing.T) {
	ctx := context.Background()
	store := NewAlgorithms(newTestInstance(t))

	for _, version := range []string{"1.0.0", "2.0.0"} {
		_, err := store.CreateVersion(ctx, &db.AlgorithmVersion{
			AlgorithmId: "ranker",
			Version:     version,
			Name:        "result ranker",
			Category:    db.CategoryOptimization,
			Priority:    db.PriorityHigh,
		})
		assert.NoError(t, err)
	}

	assert.NoError(t, store.UpdateVersionFlags(ctx, "ranker", "1.0.0", true, true))
	assert.NoError(t, store.UpdateVersionFlags(ctx, "ranker", "2.0.0", true, true))

	active, err := store.ActiveVersion(ctx, "ranker")
	assert.NoError(t, err)
	assert.Equal(t, "2.0.0", active.Version)

	versions, err := store.ListVersions(ctx, "ranker")
	assert.NoError(t, err)
	flagged := 0
	for _, v := range versions {
		if v.Active || v.Default {
			flagged++
			assert.Equal(t, "2.0.0", v.Version)
		}
	}
	assert.Equal(t, 1, flagged)

	assert.Equal(t, db.ErrNotFound, store.UpdateVersionFlags(ctx, "ranker", "9.9.9", true, true))
}
