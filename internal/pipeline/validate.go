package pipeline

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"github.com/sitecraft/AlgoOrchestration/internal/db"
	"github.com/sitecraft/AlgoOrchestration/internal/events"
)

// RegisterPipeline validates and stores a pipeline definition. A rejected
// definition leaves the store untouched.
func (e *Engine) RegisterPipeline(ctx context.Context, def *db.PipelineDefinition) (*db.PipelineDefinition, error) {
	if err := validateDefinition(def); err != nil {
		return nil, err
	}
	if def.MaxConcurrency <= 0 {
		def.MaxConcurrency = e.config.DefaultStageConcurrency
	}
	if def.Timeout <= 0 {
		def.Timeout = e.config.DefaultTimeout
	}
	def.Active = true
	created, err := e.db.Pipelines().CreatePipeline(ctx, def)
	if err != nil {
		if err == db.ErrAlreadyExists {
			return nil, fmt.Errorf("%w: pipeline %q already registered", ErrValidation, def.Id)
		}
		return nil, err
	}
	if pubErr := e.bus.Publish(events.NewEvent(events.TopicPipelineRegistered, "pipeline", map[string]interface{}{
		"pipeline_id": created.Id,
		"version":     created.Version,
		"stages":      len(created.Stages),
	})); pubErr != nil {
		log.Debugf("pipeline registered event not fully delivered: %s", pubErr)
	}
	log.Printf("registered pipeline %s version %s with %d stages", created.Id, created.Version, len(created.Stages))
	return created, nil
}

func validateDefinition(def *db.PipelineDefinition) error {
	var errs *multierror.Error
	if def.Id == "" {
		errs = multierror.Append(errs, fmt.Errorf("pipeline id is required"))
	}
	if def.Name == "" {
		errs = multierror.Append(errs, fmt.Errorf("pipeline name is required"))
	}
	if def.Version == "" {
		errs = multierror.Append(errs, fmt.Errorf("pipeline version is required"))
	}
	if len(def.Stages) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("pipeline needs at least one stage"))
	}

	stageIds := make(map[string]bool, len(def.Stages))
	for _, stage := range def.Stages {
		if stage.Id == "" {
			errs = multierror.Append(errs, fmt.Errorf("stage id is required"))
			continue
		}
		if stageIds[stage.Id] {
			errs = multierror.Append(errs, fmt.Errorf("duplicate stage id %q", stage.Id))
		}
		stageIds[stage.Id] = true
		if stage.AlgorithmId == "" {
			errs = multierror.Append(errs, fmt.Errorf("stage %q has no algorithm id", stage.Id))
		}
	}
	for _, stage := range def.Stages {
		for _, dep := range stage.Dependencies {
			if !stageIds[dep] {
				errs = multierror.Append(errs, fmt.Errorf("stage %q depends on unknown stage %q", stage.Id, dep))
			}
		}
	}

	if errs.ErrorOrNil() == nil {
		if cycle := findCycle(def.Stages); cycle != "" {
			errs = multierror.Append(errs, fmt.Errorf("stage dependency cycle through %q", cycle))
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// findCycle runs a depth-first search with a recursion stack and returns a
// stage id on the first cycle found, or "".
func findCycle(stages []db.Stage) string {
	deps := make(map[string][]string, len(stages))
	for _, stage := range stages {
		deps[stage.Id] = stage.Dependencies
	}

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(stages))

	var visit func(id string) string
	visit = func(id string) string {
		state[id] = inStack
		for _, dep := range deps[id] {
			switch state[dep] {
			case inStack:
				return dep
			case unvisited:
				if hit := visit(dep); hit != "" {
					return hit
				}
			}
		}
		state[id] = done
		return ""
	}

	for _, stage := range stages {
		if state[stage.Id] == unvisited {
			if hit := visit(stage.Id); hit != "" {
				return hit
			}
		}
	}
	return ""
}
