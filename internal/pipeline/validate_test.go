package pipeline

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/sitecraft/AlgoOrchestration/internal/db"
	"pgregory.net/rapid"
)

func chainDefinition(id string, stageIds ...string) *db.PipelineDefinition {
	def := &db.PipelineDefinition{
		Id:      id,
		Name:    id,
		Version: "1.0.0",
	}
	for i, stageId := range stageIds {
		stage := db.Stage{
			Id:          stageId,
			Name:        stageId,
			AlgorithmId: "algo-" + stageId,
		}
		if i > 0 {
			stage.Dependencies = []string{stageIds[i-1]}
		}
		def.Stages = append(def.Stages, stage)
	}
	return def
}

func TestRegisterPipelineRejectsCycle(t *testing.T) {
	engine := newTestEngine(t, 10)

	def := chainDefinition("cyclic", "a", "b", "c")
	def.Stages[0].Dependencies = []string{"c"}

	_, err := engine.RegisterPipeline(context.TODO(), def)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "cycle")

	_, err = engine.db.Pipelines().GetPipeline(context.TODO(), "cyclic")
	assert.Equal(t, db.ErrNotFound, err)
}

func TestRegisterPipelineRejectsSelfDependency(t *testing.T) {
	engine := newTestEngine(t, 10)

	def := chainDefinition("selfdep", "a")
	def.Stages[0].Dependencies = []string{"a"}

	_, err := engine.RegisterPipeline(context.TODO(), def)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestRegisterPipelineRejectsDuplicateStageIds(t *testing.T) {
	engine := newTestEngine(t, 10)

	def := chainDefinition("dup", "a")
	def.Stages = append(def.Stages, db.Stage{Id: "a", Name: "again", AlgorithmId: "algo-a2"})

	_, err := engine.RegisterPipeline(context.TODO(), def)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "duplicate stage id")
}

func TestRegisterPipelineRejectsUnknownDependency(t *testing.T) {
	engine := newTestEngine(t, 10)

	def := chainDefinition("ghost", "a")
	def.Stages[0].Dependencies = []string{"missing"}

	_, err := engine.RegisterPipeline(context.TODO(), def)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestRegisterPipelineDefaults(t *testing.T) {
	engine := newTestEngine(t, 10)

	def := chainDefinition("defaults", "a")
	created, err := engine.RegisterPipeline(context.TODO(), def)
	assert.NoError(t, err)
	assert.True(t, created.Active)
	assert.Equal(t, engine.config.DefaultStageConcurrency, created.MaxConcurrency)
	assert.Equal(t, engine.config.DefaultTimeout, created.Timeout)
}

func TestFindCycleAcyclicGraphs(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		// Stages only ever depend on earlier stages, so no cycle can exist.
		count := rapid.IntRange(1, 12).Draw(rt, "count")
		var stages []db.Stage
		for i := 0; i < count; i++ {
			stage := db.Stage{Id: stageId(i), AlgorithmId: "algo"}
			if i > 0 {
				depCount := rapid.IntRange(0, i).Draw(rt, "depCount")
				seen := map[int]bool{}
				for d := 0; d < depCount; d++ {
					dep := rapid.IntRange(0, i-1).Draw(rt, "dep")
					if !seen[dep] {
						seen[dep] = true
						stage.Dependencies = append(stage.Dependencies, stageId(dep))
					}
				}
			}
			stages = append(stages, stage)
		}

		// Property: a graph with only backward edges never reports a cycle
		assert.Equal(t, "", findCycle(stages))

		// Property: closing the loop from the first stage to the last is always a cycle
		if count > 1 {
			stages[0].Dependencies = append(stages[0].Dependencies, stageId(count-1))
			assert.NotEqual(t, "", findCycle(stages))
		}
	})
}

func stageId(i int) string {
	return string(rune('a' + i))
}
