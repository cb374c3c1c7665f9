package restapi

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sitecraft/AlgoOrchestration/internal/db"
	"github.com/sitecraft/AlgoOrchestration/internal/registry"
	lhttp "github.com/sitecraft/AlgoOrchestration/pkg/http"
	sbhttpbase "github.com/sitecraft/AlgoOrchestration/pkg/serverbase/http/base"
	sbhttpserver "github.com/sitecraft/AlgoOrchestration/pkg/serverbase/http/server"
)

type RegistryAPI struct {
	registry *registry.Registry
	db       db.Database
}

func NewRegistryAPI(reg *registry.Registry, database db.Database) *RegistryAPI {
	return &RegistryAPI{
		registry: reg,
		db:       database,
	}
}

type algorithmVersionPayload struct {
	AlgorithmId  string                 `json:"algorithm_id"`
	Version      string                 `json:"version"`
	Name         string                 `json:"name"`
	Category     string                 `json:"category"`
	Priority     string                 `json:"priority"`
	CreatedBy    string                 `json:"created_by,omitempty"`
	Active       bool                   `json:"active"`
	Default      bool                   `json:"default"`
	Baseline     db.PerformanceBaseline `json:"baseline"`
	Dependencies []string               `json:"dependencies,omitempty"`
	Config       map[string]interface{} `json:"config,omitempty"`
	CreatedTs    time.Time              `json:"created_ts,omitempty"`
}

func versionPayload(v *db.AlgorithmVersion) *algorithmVersionPayload {
	return &algorithmVersionPayload{
		AlgorithmId:  v.AlgorithmId,
		Version:      v.Version,
		Name:         v.Name,
		Category:     string(v.Category),
		Priority:     string(v.Priority),
		CreatedBy:    v.CreatedBy,
		Active:       v.Active,
		Default:      v.Default,
		Baseline:     v.Baseline,
		Dependencies: v.Dependencies,
		Config:       v.Config,
		CreatedTs:    v.CreatedTs,
	}
}

type deploymentPayload struct {
	Id             int64            `json:"id"`
	AlgorithmId    string           `json:"algorithm_id"`
	Version        string           `json:"version"`
	Environment    string           `json:"environment"`
	State          string           `json:"state"`
	DeployedBy     string           `json:"deployed_by,omitempty"`
	HealthChecks   []db.HealthCheck `json:"health_checks,omitempty"`
	FailureReason  string           `json:"failure_reason,omitempty"`
	RolledBackFrom string           `json:"rolled_back_from,omitempty"`
	CreatedTs      time.Time        `json:"created_ts"`
	UpdatedTs      time.Time        `json:"updated_ts"`
}

func deployPayload(d *db.Deployment) *deploymentPayload {
	return &deploymentPayload{
		Id:             d.Id,
		AlgorithmId:    d.AlgorithmId,
		Version:        d.Version,
		Environment:    string(d.Environment),
		State:          string(d.State),
		DeployedBy:     d.DeployedBy,
		HealthChecks:   d.HealthChecks,
		FailureReason:  d.FailureReason,
		RolledBackFrom: d.RolledBackFrom,
		CreatedTs:      d.CreatedTs,
		UpdatedTs:      d.UpdatedTs,
	}
}

func registryError(err error) *lhttp.HttpError {
	switch {
	case errors.Is(err, registry.ErrValidation):
		return lhttp.NewBadRequest(err.Error())
	case errors.Is(err, registry.ErrDuplicateVersion), errors.Is(err, registry.ErrDeploymentConflict), errors.Is(err, db.ErrAlreadyExists):
		return lhttp.NewConflict(err.Error())
	case errors.Is(err, db.ErrNotFound):
		return lhttp.NewNotFound(err.Error())
	default:
		return lhttp.NewInternalError(err.Error())
	}
}

func (a *RegistryAPI) GetHandlers() []sbhttpserver.HandleDescription {
	return []sbhttpserver.HandleDescription{
		{Path: "/api/v1/algorithms", Method: "POST", Handler: a.registerAlgorithm},
		{Path: "/api/v1/algorithms", Method: "GET", Handler: a.listAlgorithms},
		{Path: "/api/v1/algorithms/:id/versions", Method: "GET", Handler: a.listVersions},
		{Path: "/api/v1/algorithms/:id/active", Method: "GET", Handler: a.getActiveVersion},
		{Path: "/api/v1/algorithms/:id/deployments", Method: "POST", Handler: a.deploy},
		{Path: "/api/v1/algorithms/:id/deployments", Method: "GET", Handler: a.listDeployments},
		{Path: "/api/v1/algorithms/:id/rollback", Method: "POST", Handler: a.rollback},
	}
}

func (a *RegistryAPI) registerAlgorithm(request *sbhttpbase.Request) {
	var payload algorithmVersionPayload
	if herr := decodeBody(request, &payload); herr != nil {
		writeError(request, herr)
		return
	}
	version := &db.AlgorithmVersion{
		AlgorithmId:  payload.AlgorithmId,
		Version:      payload.Version,
		Name:         payload.Name,
		Category:     db.AlgorithmCategory(payload.Category),
		Priority:     db.AlgorithmPriority(payload.Priority),
		CreatedBy:    payload.CreatedBy,
		Active:       payload.Active,
		Default:      payload.Default,
		Baseline:     payload.Baseline,
		Dependencies: payload.Dependencies,
		Config:       payload.Config,
		CreatedTs:    payload.CreatedTs,
	}
	created, err := a.registry.RegisterAlgorithm(request.Request.Context(), version)
	if err != nil {
		writeError(request, registryError(err))
		return
	}
	writeResult(request, 201, versionPayload(created))
}

func (a *RegistryAPI) listAlgorithms(request *sbhttpbase.Request) {
	ids, err := a.db.Algorithms().ListAlgorithmIds(request.Request.Context())
	if err != nil {
		writeError(request, registryError(err))
		return
	}
	writeResult(request, 200, map[string]interface{}{"algorithms": ids})
}

func (a *RegistryAPI) listVersions(request *sbhttpbase.Request) {
	versions, err := a.registry.ListVersions(request.Request.Context(), request.Params["id"])
	if err != nil {
		writeError(request, registryError(err))
		return
	}
	payload := make([]*algorithmVersionPayload, 0, len(versions))
	for _, v := range versions {
		payload = append(payload, versionPayload(v))
	}
	writeResult(request, 200, payload)
}

func (a *RegistryAPI) getActiveVersion(request *sbhttpbase.Request) {
	version, err := a.registry.GetActiveVersion(request.Request.Context(), request.Params["id"])
	if err != nil {
		writeError(request, registryError(err))
		return
	}
	writeResult(request, 200, versionPayload(version))
}

type deployRequest struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
	Actor       string `json:"actor,omitempty"`
}

func (a *RegistryAPI) deploy(request *sbhttpbase.Request) {
	var payload deployRequest
	if herr := decodeBody(request, &payload); herr != nil {
		writeError(request, herr)
		return
	}
	deployment, err := a.registry.Deploy(request.Request.Context(), request.Params["id"],
		payload.Version, db.Environment(payload.Environment), payload.Actor)
	if err != nil {
		writeError(request, registryError(err))
		return
	}
	writeResult(request, 201, deployPayload(deployment))
}

type listDeploymentsQuery struct {
	Environment string `json:"environment"`
}

func (a *RegistryAPI) listDeployments(request *sbhttpbase.Request) {
	var query listDeploymentsQuery
	if herr := decodeQuery(request, &query); herr != nil {
		writeError(request, herr)
		return
	}
	var environment *db.Environment
	if query.Environment != "" {
		env := db.Environment(query.Environment)
		environment = &env
	}
	deployments, err := a.registry.ListDeployments(request.Request.Context(), request.Params["id"], environment)
	if err != nil {
		writeError(request, registryError(err))
		return
	}
	payload := make([]*deploymentPayload, 0, len(deployments))
	for _, d := range deployments {
		payload = append(payload, deployPayload(d))
	}
	writeResult(request, 200, payload)
}

type rollbackRequest struct {
	Environment string `json:"environment"`
	ToVersion   string `json:"to_version,omitempty"`
	Actor       string `json:"actor,omitempty"`
}

func (a *RegistryAPI) rollback(request *sbhttpbase.Request) {
	var payload rollbackRequest
	if herr := decodeBody(request, &payload); herr != nil {
		writeError(request, herr)
		return
	}
	if payload.Environment == "" {
		writeError(request, lhttp.NewBadRequest("environment is required"))
		return
	}
	deployment, err := a.registry.Rollback(request.Request.Context(), request.Params["id"],
		db.Environment(payload.Environment), payload.ToVersion, payload.Actor)
	if err != nil {
		writeError(request, registryError(err))
		return
	}
	writeResult(request, 200, deployPayload(deployment))
}

func (a *RegistryAPI) Shutdown() error {
	return nil
}
