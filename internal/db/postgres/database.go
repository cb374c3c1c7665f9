// Package postgres persists the registry entities in PostgreSQL. Like the
// sqlite backend it only stores algorithm versions and deployments; the
// runtime entities live in memory.
package postgres

import (
	_ "github.com/jackc/pgx/v4/stdlib"
	log "github.com/sirupsen/logrus"
	"github.com/sitecraft/AlgoOrchestration/internal/db"
	"github.com/sitecraft/AlgoOrchestration/internal/db/memory"
	lsql "github.com/sitecraft/AlgoOrchestration/pkg/sql"
)

func NewInstance(cfg *lsql.Config) *lsql.Instance {
	if cfg.DatabaseName == "" {
		panic("database name is empty")
	}
	log.Printf("Connecting to %s database %s", cfg.Engine, cfg.DatabaseName)
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
