package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sitecraft/AlgoOrchestration/internal/db"
)

type Deployments struct {
	mu          sync.RWMutex
	nextId      int64
	deployments []*db.Deployment
}

var _ db.DeploymentService = &Deployments{}

func NewDeployments() *Deployments {
	return &Deployments{}
}

func stateIn(state db.DeploymentState, states []db.DeploymentState) bool {
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}

func (d *Deployments) CreateDeployment(_ context.Context, dep *db.Deployment) (*db.Deployment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	exclusive := []db.DeploymentState{db.DeploymentActive, db.DeploymentDeploying}
	if stateIn(dep.State, exclusive) {
		for _, existing := range d.deployments {
			if existing.AlgorithmId == dep.AlgorithmId && existing.Environment == dep.Environment &&
				stateIn(existing.State, exclusive) {
				return nil, db.ErrAlreadyExists
			}
		}
	}
	d.nextId++
	stored := *dep
	stored.Id = d.nextId
	now := time.Now()
	if stored.CreatedTs.IsZero() {
		stored.CreatedTs = now
	}
	stored.UpdatedTs = now
	d.deployments = append(d.deployments, &stored)
	ret := stored
	return &ret, nil
}

func (d *Deployments) GetDeployment(_ context.Context, id int64) (*db.Deployment, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, dep := range d.deployments {
		if dep.Id == id {
			ret := *dep
			return &ret, nil
		}
	}
	return nil, db.ErrNotFound
}

func (d *Deployments) ListDeployments(_ context.Context, algorithmId string, environment *db.Environment) ([]*db.Deployment, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var ret []*db.Deployment
	for _, dep := range d.deployments {
		if dep.AlgorithmId != algorithmId {
			continue
		}
		if environment != nil && dep.Environment != *environment {
			continue
		}
		c := *dep
		ret = append(ret, &c)
	}
	return ret, nil
}

func (d *Deployments) ActiveDeployment(_ context.Context, algorithmId string, environment db.Environment) (*db.Deployment, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, dep := range d.deployments {
		if dep.AlgorithmId == algorithmId && dep.Environment == environment && dep.State == db.DeploymentActive {
			ret := *dep
			return &ret, nil
		}
	}
	return nil, db.ErrNotFound
}

func (d *Deployments) UpdateDeploymentState(_ context.Context, id int64, from []db.DeploymentState, to db.DeploymentState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, dep := range d.deployments {
		if dep.Id != id {
			continue
		}
		if !stateIn(dep.State, from) {
			return db.ErrInvalidTransition
		}
		// transitioning to active must not break the exclusivity invariant
		if to == db.DeploymentActive {
			for _, other := range d.deployments {
				if other.Id != dep.Id && other.AlgorithmId == dep.AlgorithmId &&
					other.Environment == dep.Environment && other.State == db.DeploymentActive {
					return db.ErrAlreadyExists
				}
			}
		}
		dep.State = to
		dep.UpdatedTs = time.Now()
		return nil
	}
	return db.ErrNotFound
}

func (d *Deployments) UpdateDeploymentChecks(_ context.Context, id int64, checks []db.HealthCheck, failureReason string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, dep := range d.deployments {
		if dep.Id == id {
			dep.HealthChecks = append([]db.HealthCheck(nil), checks...)
			dep.FailureReason = failureReason
			dep.UpdatedTs = time.Now()
			return nil
		}
	}
	return db.ErrNotFound
}
