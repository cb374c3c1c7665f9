package db

import (
	"context"
	"time"
)

type DeploymentState string

const (
	DeploymentPending    DeploymentState = "pending"
	DeploymentDeploying  DeploymentState = "deploying"
	DeploymentActive     DeploymentState = "active"
	DeploymentFailed     DeploymentState = "failed"
	DeploymentRolledBack DeploymentState = "rolled_back"
)

type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

type HealthCheck struct {
	Name     string        `json:"name"`
	Passed   bool          `json:"passed"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration"`
}

type Deployment struct {
	Id             int64
	AlgorithmId    string
	Version        string
	Environment    Environment
	State          DeploymentState
	DeployedBy     string
	HealthChecks   []HealthCheck
	FailureReason  string
	RolledBackFrom string // version this deployment superseded on rollback
	CreatedTs      time.Time
	UpdatedTs      time.Time
}

type DeploymentService interface {
	// CreateDeployment enforces the invariant that at most one deployment per
	// (algorithm, environment) pair is active or deploying; violating it
	// returns ErrAlreadyExists without mutating state.
	CreateDeployment(ctx context.Context, d *Deployment) (*Deployment, error)
	GetDeployment(ctx context.Context, id int64) (*Deployment, error)
	ListDeployments(ctx context.Context, algorithmId string, environment *Environment) ([]*Deployment, error)
	ActiveDeployment(ctx context.Context, algorithmId string, environment Environment) (*Deployment, error)
	// UpdateDeploymentState applies the transition only when the current state
	// is one of from; otherwise returns ErrInvalidTransition.
	UpdateDeploymentState(ctx context.Context, id int64, from []DeploymentState, to DeploymentState) error
	UpdateDeploymentChecks(ctx context.Context, id int64, checks []HealthCheck, failureReason string) error
}
