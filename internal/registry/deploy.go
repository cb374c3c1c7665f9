package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	log "github.com/sirupsen/logrus"
	"github.com/sitecraft/AlgoOrchestration/internal/db"
	"github.com/sitecraft/AlgoOrchestration/internal/events"
	"github.com/sitecraft/AlgoOrchestration/internal/executor"
)

var (
	ErrVersionNotFound    = fmt.Errorf("algorithm version not found")
	ErrDeploymentConflict = fmt.Errorf("an active or deploying deployment already exists for this environment")
)

var validEnvironments = map[db.Environment]bool{
	db.EnvDevelopment: true,
	db.EnvStaging:     true,
	db.EnvProduction:  true,
}

// Deploy creates a deployment for a known version, walks it through
// pending -> deploying and runs the deployment procedure; the deployment ends
// active on success and failed otherwise. Conflicting deployments fail before
// any state is written.
func (r *Registry) Deploy(ctx context.Context, algorithmId string, version string, environment db.Environment, actor string) (*db.Deployment, error) {
	return r.deploy(ctx, algorithmId, version, environment, actor, "")
}

func (r *Registry) deploy(ctx context.Context, algorithmId string, version string, environment db.Environment, actor string, rolledBackFrom string) (*db.Deployment, error) {
	if !validEnvironments[environment] {
		return nil, fmt.Errorf("%w: unknown environment %q", ErrValidation, environment)
	}
	algorithm, err := r.db.Algorithms().GetVersion(ctx, algorithmId, version)
	if err != nil {
		if err == db.ErrNotFound {
			return nil, fmt.Errorf("%w: %s@%s", ErrVersionNotFound, algorithmId, version)
		}
		return nil, err
	}

	deployment, err := r.db.Deployments().CreateDeployment(ctx, &db.Deployment{
		AlgorithmId:    algorithmId,
		Version:        version,
		Environment:    environment,
		State:          db.DeploymentDeploying,
		DeployedBy:     actor,
		RolledBackFrom: rolledBackFrom,
	})
	if err != nil {
		if err == db.ErrAlreadyExists {
			return nil, ErrDeploymentConflict
		}
		return nil, err
	}

	checks, procErr := r.runDeploymentProcedure(ctx, algorithm, environment)
	failureReason := ""
	if procErr != nil {
		failureReason = procErr.Error()
	}
	if err := r.db.Deployments().UpdateDeploymentChecks(ctx, deployment.Id, checks, failureReason); err != nil {
		log.Printf("failed to record health checks for deployment %d: %s", deployment.Id, err)
	}

	if procErr != nil {
		if err := r.db.Deployments().UpdateDeploymentState(ctx, deployment.Id,
			[]db.DeploymentState{db.DeploymentDeploying}, db.DeploymentFailed); err != nil {
			log.Printf("failed to mark deployment %d failed: %s", deployment.Id, err)
		}
		r.publishDeploymentEvent(events.TopicDeploymentFailed, deployment, procErr.Error())
		log.Printf("deployment of %s@%s to %s failed: %s", algorithmId, version, environment, procErr)
		return r.db.Deployments().GetDeployment(ctx, deployment.Id)
	}

	if err := r.db.Deployments().UpdateDeploymentState(ctx, deployment.Id,
		[]db.DeploymentState{db.DeploymentDeploying}, db.DeploymentActive); err != nil {
		return nil, err
	}

	// Activating a version in production also flips the version flags so
	// GetActiveVersion resolves to it.
	if environment == db.EnvProduction {
		if err := r.db.Algorithms().UpdateVersionFlags(ctx, algorithmId, version, true, true); err != nil {
			log.Printf("failed to flag %s@%s active: %s", algorithmId, version, err)
		}
	}

	r.publishDeploymentEvent(events.TopicDeploymentSucceeded, deployment, "")
	log.Printf("deployed %s@%s to %s", algorithmId, version, environment)
	return r.db.Deployments().GetDeployment(ctx, deployment.Id)
}

// Rollback marks the currently active deployment rolled_back and deploys
// toVersion fresh. History is append-only; the superseded version is recorded
// on the new deployment for audit.
func (r *Registry) Rollback(ctx context.Context, algorithmId string, environment db.Environment, toVersion string, actor string) (*db.Deployment, error) {
	current, err := r.db.Deployments().ActiveDeployment(ctx, algorithmId, environment)
	if err != nil {
		if err == db.ErrNotFound {
			return nil, fmt.Errorf("%w: no active deployment for %s in %s", ErrVersionNotFound, algorithmId, environment)
		}
		return nil, err
	}
	if err := r.db.Deployments().UpdateDeploymentState(ctx, current.Id,
		[]db.DeploymentState{db.DeploymentActive}, db.DeploymentRolledBack); err != nil {
		return nil, err
	}
	r.publishDeploymentEvent(events.TopicDeploymentRolledBack, current, "")

	deployment, err := r.deploy(ctx, algorithmId, toVersion, environment, actor, current.Version)
	if err != nil {
		return nil, err
	}
	log.Printf("rolled back %s in %s from %s to %s", algorithmId, environment, current.Version, toVersion)
	return deployment, nil
}

// runDeploymentProcedure performs the dependency-resolution check, the
// configuration validation and a performance smoke test against the executor.
func (r *Registry) runDeploymentProcedure(ctx context.Context, algorithm *db.AlgorithmVersion, environment db.Environment) ([]db.HealthCheck, error) {
	var checks []db.HealthCheck
	var failure error

	run := func(name string, fn func() error) {
		if failure != nil {
			return
		}
		start := time.Now()
		err := fn()
		check := db.HealthCheck{Name: name, Passed: err == nil, Duration: time.Since(start)}
		if err != nil {
			check.Detail = err.Error()
			failure = fmt.Errorf("%s: %v", name, err)
		}
		checks = append(checks, check)
	}

	run("dependency-resolution", func() error {
		for _, dep := range algorithm.Dependencies {
			if _, err := r.db.Algorithms().ActiveVersion(ctx, dep); err != nil {
				return fmt.Errorf("dependency %s has no active version", dep)
			}
		}
		return nil
	})

	run("configuration", func() error {
		for key, value := range algorithm.Config {
			if value == nil {
				return fmt.Errorf("configuration key %q is unset", key)
			}
		}
		return nil
	})

	run("smoke-test", func() error {
		smokeCtx, cancel := context.WithTimeout(ctx, r.config.SmokeTestTimeout)
		defer cancel()
		return retry.Do(func() error {
			result, err := r.executor.Execute(smokeCtx, algorithm.AlgorithmId, algorithm.Baseline.SmokeTestInput, &executor.Invocation{
				CorrelationId: fmt.Sprintf("smoke-%s-%s", algorithm.AlgorithmId, algorithm.Version),
				Environment:   string(environment),
			})
			if err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("smoke execution failed: %s", result.Error)
			}
			if algorithm.Baseline.ExpectedLatency > 0 && result.ExecutionTime > algorithm.Baseline.ExpectedLatency*2 {
				return fmt.Errorf("smoke execution took %s, more than twice the %s baseline",
					result.ExecutionTime, algorithm.Baseline.ExpectedLatency)
			}
			return nil
		},
			retry.Attempts(r.config.SmokeTestAttempts),
			retry.Delay(r.config.SmokeTestDelay),
			retry.MaxDelay(r.config.SmokeTestMaxDelay),
			retry.Context(smokeCtx),
		)
	})

	return checks, failure
}

func (r *Registry) publishDeploymentEvent(topic events.Topic, deployment *db.Deployment, detail string) {
	payload := map[string]interface{}{
		"algorithm_id": deployment.AlgorithmId,
		"version":      deployment.Version,
		"environment":  string(deployment.Environment),
	}
	if detail != "" {
		payload["detail"] = detail
	}
	if err := r.bus.Publish(events.NewEvent(topic, "registry", payload)); err != nil {
		log.Debugf("deployment event %s not fully delivered: %s", topic, err)
	}
}
