// Package sqlite persists the registry entities (algorithm versions and the
// deployment audit trail) in SQLite. The runtime entities stay in memory;
// they are rebuilt from registrations on restart.
package sqlite

import (
	log "github.com/sirupsen/logrus"
	"github.com/sitecraft/AlgoOrchestration/internal/db"
	"github.com/sitecraft/AlgoOrchestration/internal/db/memory"
	lsql "github.com/sitecraft/AlgoOrchestration/pkg/sql"
)

func NewInstance(cfg *lsql.Config) *lsql.Instance {
	log.Printf("Connecting to %s database at %q", cfg.Engine, cfg.Address)
	instance, err := lsql.NewInstance(cfg)
	if err != nil {
		log.Printf("failed to create database instance: %s", err)
	}

	return instance
}

func NewDatabase(algorithms db.AlgorithmService, deployments db.DeploymentService) db.Database {
	return db.NewDatabase(
		algorithms,
		deployments,
		memory.NewPipelines(),
		memory.NewTests(),
		memory.NewAssignments(),
		memory.NewMetrics(),
	)
}
