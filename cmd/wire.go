//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/sitecraft/AlgoOrchestration/internal/abtest"
	"github.com/sitecraft/AlgoOrchestration/internal/config"
	"github.com/sitecraft/AlgoOrchestration/internal/executor"
	"github.com/sitecraft/AlgoOrchestration/internal/monitoring"
	"github.com/sitecraft/AlgoOrchestration/internal/pipeline"
	"github.com/sitecraft/AlgoOrchestration/internal/registry"
	"github.com/sitecraft/AlgoOrchestration/internal/restapi"
	"github.com/sitecraft/AlgoOrchestration/internal/server"
	"github.com/sitecraft/AlgoOrchestration/pkg/app"
	"github.com/sitecraft/AlgoOrchestration/pkg/clientbase"
	cbhttp "github.com/sitecraft/AlgoOrchestration/pkg/clientbase/http"
	interceptors_inflight "github.com/sitecraft/AlgoOrchestration/pkg/interceptors/in-flight"
	sbhttpserver "github.com/sitecraft/AlgoOrchestration/pkg/serverbase/http/server"
	lsql "github.com/sitecraft/AlgoOrchestration/pkg/sql"
)

// wire up the dependencies.
func InitializeDependencies() (*dependencies, error) {
	wire.Build(config.NewConfigFromEnv, app.NewInstance,
		cbhttp.NewConfigFromEnv, cbhttp.NewInstance, clientbase.NewConfigFromEnv, clientbase.NewConnections,
		sbhttpserver.NewConfigFromEnv, sbhttpserver.NewInstance,
		interceptors_inflight.NewConfigFromEnv, interceptors_inflight.NewInterceptor,
		lsql.NewConfigFromEnv, NewDatabaseInstance, NewDatabase, NewMigration, NewEventBus,
		executor.NewConfigFromEnv, executor.NewClient,
		registry.NewConfigFromEnv, registry.NewRegistry,
		monitoring.NewConfigFromEnv, monitoring.NewEngine, monitoring.NewSampler,
		pipeline.NewConfigFromEnv, pipeline.NewEngine,
		abtest.NewConfigFromEnv, abtest.NewEngine, abtest.NewAnalyzer, abtest.NewAnalyzerManager,
		restapi.NewRegistryAPI, restapi.NewPipelinesAPI, restapi.NewMonitoringAPI, restapi.NewABTestsAPI,
		server.NewApiServer, server.NewHttpServers,
		newDependencies)
	return &dependencies{}, nil
}
