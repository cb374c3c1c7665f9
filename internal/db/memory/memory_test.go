package memory

import (
	"context"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/sitecraft/AlgoOrchestration/internal/db"
	_ "github.com/sitecraft/AlgoOrchestration/pkg/test/gomega"
)

func registerVersion(t *testing.T, store *Algorithms, version string) *db.AlgorithmVersion {
	t.Helper()
	created, err := store.CreateVersion(context.Background(), &db.AlgorithmVersion{
		AlgorithmId: "ranker",
		Version:     version,
		Name:        "result ranker",
		Category:    db.CategoryOptimization,
		Priority:    db.PriorityHigh,
		CreatedBy:   "tester",
	})
	Expect(err).To(BeNil())
	return created
}

func TestAlgorithmVersionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewAlgorithms()

	registerVersion(t, store, "1.0.0")
	_, err := store.CreateVersion(ctx, &db.AlgorithmVersion{AlgorithmId: "ranker", Version: "1.0.0"})
	Expect(err).To(Equal(db.ErrAlreadyExists))

	fetched, err := store.GetVersion(ctx, "ranker", "1.0.0")
	Expect(err).To(BeNil())
	Expect(fetched.Name).To(Equal("result ranker"))
	Expect(fetched.Id).ToNot(BeZero())

	_, err = store.GetVersion(ctx, "ranker", "9.9.9")
	Expect(err).To(Equal(db.ErrNotFound))

	_, err = store.ActiveVersion(ctx, "ranker")
	Expect(err).To(Equal(db.ErrNotFound))
}

func TestDefaultFlagIsExclusive(t *testing.T) {
	ctx := context.Background()
	store := NewAlgorithms()
	registerVersion(t, store, "1.0.0")
	registerVersion(t, store, "2.0.0")

	Expect(store.UpdateVersionFlags(ctx, "ranker", "1.0.0", true, true)).To(Succeed())
	Expect(store.UpdateVersionFlags(ctx, "ranker", "2.0.0", true, true)).To(Succeed())

	active, err := store.ActiveVersion(ctx, "ranker")
	Expect(err).To(BeNil())
	Expect(active.Version).To(Equal("2.0.0"))

	versions, err := store.ListVersions(ctx, "ranker")
	Expect(err).To(BeNil())
	flagged := 0
	for _, v := range versions {
		if v.Active || v.Default {
			flagged++
			Expect(v.Version).To(Equal("2.0.0"))
		}
	}
	Expect(flagged).To(Equal(1))

	Expect(store.UpdateVersionFlags(ctx, "ranker", "9.9.9", true, true)).To(Equal(db.ErrNotFound))
}

func TestDeploymentSlotExclusivity(t *testing.T) {
	ctx := context.Background()
	store := NewDeployments()

	first, err := store.CreateDeployment(ctx, &db.Deployment{
		AlgorithmId: "ranker",
		Version:     "1.0.0",
		Environment: db.EnvStaging,
		State:       db.DeploymentActive,
	})
	Expect(err).To(BeNil())

	_, err = store.CreateDeployment(ctx, &db.Deployment{
		AlgorithmId: "ranker",
		Version:     "2.0.0",
		Environment: db.EnvStaging,
		State:       db.DeploymentDeploying,
	})
	Expect(err).To(Equal(db.ErrAlreadyExists))

	// other environments have their own slot
	_, err = store.CreateDeployment(ctx, &db.Deployment{
		AlgorithmId: "ranker",
		Version:     "1.0.0",
		Environment: db.EnvProduction,
		State:       db.DeploymentActive,
	})
	Expect(err).To(BeNil())

	// once the occupant is rolled back, the slot frees up
	err = store.UpdateDeploymentState(ctx, first.Id,
		[]db.DeploymentState{db.DeploymentActive}, db.DeploymentRolledBack)
	Expect(err).To(BeNil())
	second, err := store.CreateDeployment(ctx, &db.Deployment{
		AlgorithmId: "ranker",
		Version:     "2.0.0",
		Environment: db.EnvStaging,
		State:       db.DeploymentActive,
	})
	Expect(err).To(BeNil())

	current, err := store.ActiveDeployment(ctx, "ranker", db.EnvStaging)
	Expect(err).To(BeNil())
	Expect(current.Id).To(Equal(second.Id))
}

func TestDeploymentStateTransitions(t *testing.T) {
	ctx := context.Background()
	store := NewDeployments()

	dep, err := store.CreateDeployment(ctx, &db.Deployment{
		AlgorithmId: "ranker",
		Version:     "1.0.0",
		Environment: db.EnvStaging,
		State:       db.DeploymentDeploying,
	})
	Expect(err).To(BeNil())

	err = store.UpdateDeploymentState(ctx, dep.Id,
		[]db.DeploymentState{db.DeploymentActive}, db.DeploymentRolledBack)
	Expect(err).To(Equal(db.ErrInvalidTransition))

	err = store.UpdateDeploymentState(ctx, dep.Id+100,
		[]db.DeploymentState{db.DeploymentDeploying}, db.DeploymentActive)
	Expect(err).To(Equal(db.ErrNotFound))

	err = store.UpdateDeploymentState(ctx, dep.Id,
		[]db.DeploymentState{db.DeploymentDeploying}, db.DeploymentActive)
	Expect(err).To(BeNil())

	got, err := store.GetDeployment(ctx, dep.Id)
	Expect(err).To(BeNil())
	Expect(got.State).To(Equal(db.DeploymentActive))
}
