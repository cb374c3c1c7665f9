package server

import (
	"context"

	"github.com/sitecraft/AlgoOrchestration/internal/config"
	restimpl "github.com/sitecraft/AlgoOrchestration/internal/restapi"
	"github.com/sitecraft/AlgoOrchestration/pkg/app"
	sbhttpserver "github.com/sitecraft/AlgoOrchestration/pkg/serverbase/http/server"
	lsql "github.com/sitecraft/AlgoOrchestration/pkg/sql"
)

type ApiServer struct {
	app  *app.Instance
	cfg  *config.Config
	db   *lsql.Instance
	apis []apiProvider
}

type apiProvider interface {
	GetHandlers() []sbhttpserver.HandleDescription
	Shutdown() error
}

func NewApiServer(app *app.Instance, cfg *config.Config, db *lsql.Instance,
	registryApi *restimpl.RegistryAPI, pipelinesApi *restimpl.PipelinesAPI,
	monitoringApi *restimpl.MonitoringAPI, abtestsApi *restimpl.ABTestsAPI) *ApiServer {
	return &ApiServer{
		app: app,
		cfg: cfg,
		db:  db,
		apis: []apiProvider{
			registryApi,
			pipelinesApi,
			monitoringApi,
			abtestsApi,
		},
	}
}

func NewHttpServers(apiServer *ApiServer) []sbhttpserver.Server {
	return []sbhttpserver.Server{
		apiServer,
	}
}

// Ready fails if we cannot ping the database in a reasonable time
func (s *ApiServer) Ready(ctx context.Context) error {
	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Live doesn't do any check. Just answering the request is enough evidence we're alive
func (s *ApiServer) Live(ctx context.Context) error {
	return nil
}

func (s *ApiServer) Shutdown() error {
	for _, api := range s.apis {
		if err := api.Shutdown(); err != nil {
			return err
		}
	}
	return nil
}

func (s *ApiServer) GetHandlers() []sbhttpserver.HandleDescription {
	handlers := make([]sbhttpserver.HandleDescription, 0)
	for _, api := range s.apis {
		handlers = append(handlers, api.GetHandlers()...)
	}
	return handlers
}
