// Package registry owns algorithm definitions, their versions and the
// per-environment deployment lifecycle. Versions are immutable; behavior
// changes are always a new version.
package registry

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"github.com/sitecraft/AlgoOrchestration/internal/db"
	"github.com/sitecraft/AlgoOrchestration/internal/events"
	"github.com/sitecraft/AlgoOrchestration/internal/executor"
)

var (
	ErrValidation       = fmt.Errorf("validation failed")
	ErrDuplicateVersion = fmt.Errorf("algorithm version already registered")
)

type Registry struct {
	config   *Config
	db       db.Database
	executor executor.Executor
	bus      *events.Bus
}

func NewRegistry(config *Config, database db.Database, exec executor.Executor, bus *events.Bus) *Registry {
	return &Registry{
		config:   config,
		db:       database,
		executor: exec,
		bus:      bus,
	}
}

var validCategories = map[db.AlgorithmCategory]bool{
	db.CategoryScheduling:   true,
	db.CategoryEstimation:   true,
	db.CategoryRiskAnalysis: true,
	db.CategoryDocumentAI:   true,
	db.CategoryOptimization: true,
}

var validPriorities = map[db.AlgorithmPriority]bool{
	db.PriorityLow:      true,
	db.PriorityMedium:   true,
	db.PriorityHigh:     true,
	db.PriorityCritical: true,
}

func validateVersion(v *db.AlgorithmVersion) error {
	var errs *multierror.Error
	if v.AlgorithmId == "" {
		errs = multierror.Append(errs, fmt.Errorf("algorithm id is required"))
	}
	if v.Version == "" {
		errs = multierror.Append(errs, fmt.Errorf("version is required"))
	}
	if v.Name == "" {
		errs = multierror.Append(errs, fmt.Errorf("name is required"))
	}
	if !validCategories[v.Category] {
		errs = multierror.Append(errs, fmt.Errorf("unknown category %q", v.Category))
	}
	if !validPriorities[v.Priority] {
		errs = multierror.Append(errs, fmt.Errorf("unknown priority %q", v.Priority))
	}
	if err := errs.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// RegisterAlgorithm stores a new immutable version, seeds its performance
// baseline and creates the initial pending deployment in development. Nothing
// is persisted when validation fails.
func (r *Registry) RegisterAlgorithm(ctx context.Context, v *db.AlgorithmVersion) (*db.AlgorithmVersion, error) {
	if err := validateVersion(v); err != nil {
		return nil, err
	}
	if v.Baseline.SmokeTestInput == nil {
		v.Baseline.SmokeTestInput = map[string]interface{}{}
	}

	created, err := r.db.Algorithms().CreateVersion(ctx, v)
	if err != nil {
		if err == db.ErrAlreadyExists {
			return nil, fmt.Errorf("%w: %s@%s", ErrDuplicateVersion, v.AlgorithmId, v.Version)
		}
		return nil, err
	}

	_, err = r.db.Deployments().CreateDeployment(ctx, &db.Deployment{
		AlgorithmId: created.AlgorithmId,
		Version:     created.Version,
		Environment: db.EnvDevelopment,
		State:       db.DeploymentPending,
		DeployedBy:  created.CreatedBy,
	})
	if err != nil {
		log.Printf("failed to create initial development deployment for %s@%s: %s", created.AlgorithmId, created.Version, err)
	}

	if pubErr := r.bus.Publish(events.NewEvent(events.TopicAlgorithmRegistered, "registry", map[string]interface{}{
		"algorithm_id": created.AlgorithmId,
		"version":      created.Version,
	})); pubErr != nil {
		log.Debugf("algorithm registered event not fully delivered: %s", pubErr)
	}

	log.Printf("registered algorithm %s version %s (category %s)", created.AlgorithmId, created.Version, created.Category)
	return created, nil
}

// GetActiveVersion prefers a version flagged both active and default, then any
// active version.
func (r *Registry) GetActiveVersion(ctx context.Context, algorithmId string) (*db.AlgorithmVersion, error) {
	return r.db.Algorithms().ActiveVersion(ctx, algorithmId)
}

func (r *Registry) ListVersions(ctx context.Context, algorithmId string) ([]*db.AlgorithmVersion, error) {
	return r.db.Algorithms().ListVersions(ctx, algorithmId)
}

func (r *Registry) ListDeployments(ctx context.Context, algorithmId string, environment *db.Environment) ([]*db.Deployment, error) {
	return r.db.Deployments().ListDeployments(ctx, algorithmId, environment)
}
