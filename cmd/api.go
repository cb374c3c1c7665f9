package main

import (
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/sitecraft/AlgoOrchestration/internal/config"
	"github.com/sitecraft/AlgoOrchestration/internal/db"
	"github.com/sitecraft/AlgoOrchestration/internal/db/memory"
	"github.com/sitecraft/AlgoOrchestration/internal/db/postgres"
	"github.com/sitecraft/AlgoOrchestration/internal/db/sqlite"
	"github.com/sitecraft/AlgoOrchestration/internal/events"
	postgresmig "github.com/sitecraft/AlgoOrchestration/internal/migrations/postgres"
	sqlitemig "github.com/sitecraft/AlgoOrchestration/internal/migrations/sqlite"
	"github.com/sitecraft/AlgoOrchestration/internal/monitoring"
	"github.com/sitecraft/AlgoOrchestration/internal/pipeline"
	"github.com/sitecraft/AlgoOrchestration/internal/server"
	"github.com/sitecraft/AlgoOrchestration/pkg/app"
	"github.com/sitecraft/AlgoOrchestration/pkg/clientbase"
	"github.com/sitecraft/AlgoOrchestration/pkg/reconciler"
	sbhttpserver "github.com/sitecraft/AlgoOrchestration/pkg/serverbase/http/server"
	lsql "github.com/sitecraft/AlgoOrchestration/pkg/sql"
	lmigration "github.com/sitecraft/AlgoOrchestration/pkg/sql/migration"
)

type dependencies struct {
	cfg             *config.Config
	app             *app.Instance
	svc             *sbhttpserver.Instance
	apiServer       *server.ApiServer
	servers         []sbhttpserver.Server
	database        db.Database
	migration       *lmigration.Migration
	bus             *events.Bus
	pipelineEngine  *pipeline.Engine
	sampler         *monitoring.Sampler
	analyzerManager *reconciler.Manager[string]
	connections     *clientbase.Connections
}

func NewEventBus() *events.Bus {
	return events.NewBus(64)
}

// NewDatabaseInstance is nil for the memory backend; everything that takes the
// instance has to tolerate that.
func NewDatabaseInstance(appCfg *config.Config, cfg *lsql.Config) *lsql.Instance {
	switch strings.ToLower(appCfg.Backend) {
	case "sqlite":
		return sqlite.NewInstance(cfg)
	case "postgres":
		return postgres.NewInstance(cfg)
	default:
		return nil
	}
}

func NewDatabase(appCfg *config.Config, instance *lsql.Instance) db.Database {
	switch strings.ToLower(appCfg.Backend) {
	case "sqlite":
		return sqlite.NewDatabase(sqlite.NewAlgorithms(instance), sqlite.NewDeployments(instance))
	case "postgres":
		return postgres.NewDatabase(postgres.NewAlgorithms(instance), postgres.NewDeployments(instance))
	default:
		return memory.NewDatabase()
	}
}

func NewMigration(appCfg *config.Config, cfg *lsql.Config) (*lmigration.Migration, error) {
	if appCfg.Migrate && strings.ToLower(appCfg.Backend) != "memory" {
		return lmigration.NewMigration(cfg, map[string]lmigration.MigrationSet{
			"sqlite":   {AssetNames: sqlitemig.AssetNames, Asset: sqlitemig.Asset},
			"postgres": {AssetNames: postgresmig.AssetNames, Asset: postgresmig.Asset},
		})
	}
	return nil, nil
}

func newDependencies(app *app.Instance, cfg *config.Config, svc *sbhttpserver.Instance,
	apiServer *server.ApiServer, servers []sbhttpserver.Server,
	database db.Database, migration *lmigration.Migration, bus *events.Bus,
	pipelineEngine *pipeline.Engine, sampler *monitoring.Sampler,
	analyzerManager *reconciler.Manager[string],
	connections *clientbase.Connections) *dependencies {
	return &dependencies{
		cfg:             cfg,
		app:             app,
		svc:             svc,
		apiServer:       apiServer,
		servers:         servers,
		database:        database,
		migration:       migration,
		bus:             bus,
		pipelineEngine:  pipelineEngine,
		sampler:         sampler,
		analyzerManager: analyzerManager,
		connections:     connections,
	}
}

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
	log.SetReportCaller(true)
	deps, err := InitializeDependencies()
	if err != nil {
		log.Fatalf("failed to initialize app: %v", err)
	}

	if deps.migration != nil {
		if err := deps.migration.Run(deps.cfg.MigrationVersion); err != nil {
			panic(err)
		}
	}

	// Log everything the engines publish
	events.LogSubscriber(deps.bus.Subscribe())

	if err := deps.svc.Register(sbhttpserver.NewMultiServer(deps.servers)); err != nil {
		panic(err)
	}
	if err := deps.svc.Serve(); err != nil {
		panic(err)
	}

	deps.pipelineEngine.Start(deps.app.Context())
	deps.sampler.Start(deps.app.Context())
	defer deps.sampler.Stop()

	deps.analyzerManager.Start()
	defer deps.analyzerManager.Finish()

	// Wait for the server to finish
	deps.app.WaitForFinish()
}
