package db

import (
	"fmt"
	_ "github.com/mattn/go-sqlite3" // Import go-sqlite3 library
)

var (
	ErrNotFound          = fmt.Errorf("not found")
	ErrAlreadyExists     = fmt.Errorf("already exists")
	ErrInvalidTransition = fmt.Errorf("invalid state transition")
)

type Database interface {
	Algorithms() AlgorithmService
	Deployments() DeploymentService
	Pipelines() PipelineService
	Tests() TestService
	Assignments() AssignmentService
	Metrics() MetricsService
}

type database struct {
	algorithms  AlgorithmService
	deployments DeploymentService
	pipelines   PipelineService
	tests       TestService
	assignments AssignmentService
	metrics     MetricsService
}

func NewDatabase(algorithms AlgorithmService, deployments DeploymentService,
	pipelines PipelineService, tests TestService,
	assignments AssignmentService, metrics MetricsService) Database {
	return &database{
		algorithms:  algorithms,
		deployments: deployments,
		pipelines:   pipelines,
		tests:       tests,
		assignments: assignments,
		metrics:     metrics,
	}
}

func (d *database) Algorithms() AlgorithmService   { return d.algorithms }
func (d *database) Deployments() DeploymentService { return d.deployments }
func (d *database) Pipelines() PipelineService     { return d.pipelines }
func (d *database) Tests() TestService             { return d.tests }
func (d *database) Assignments() AssignmentService { return d.assignments }
func (d *database) Metrics() MetricsService        { return d.metrics }
