// Package memory provides the in-memory implementation of db.Database. Every
// entity map is guarded by its own lock so the services can be swapped for a
// persistent backend without touching call sites.
package memory

import (
	"github.com/sitecraft/AlgoOrchestration/internal/db"
)

func NewDatabase() db.Database {
	return db.NewDatabase(
		NewAlgorithms(),
		NewDeployments(),
		NewPipelines(),
		NewTests(),
		NewAssignments(),
		NewMetrics(),
	)
}
