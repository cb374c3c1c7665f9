package restapi

import (
	"github.com/pkg/errors"
	"github.com/sitecraft/AlgoOrchestration/internal/db"
	"github.com/sitecraft/AlgoOrchestration/internal/executor"
	"github.com/sitecraft/AlgoOrchestration/internal/pipeline"
	lhttp "github.com/sitecraft/AlgoOrchestration/pkg/http"
	interceptors_inflight "github.com/sitecraft/AlgoOrchestration/pkg/interceptors/in-flight"
	sbhttpbase "github.com/sitecraft/AlgoOrchestration/pkg/serverbase/http/base"
	sbhttpserver "github.com/sitecraft/AlgoOrchestration/pkg/serverbase/http/server"
)

type PipelinesAPI struct {
	engine   *pipeline.Engine
	db       db.Database
	inflight *interceptors_inflight.Interceptor
}

func NewPipelinesAPI(engine *pipeline.Engine, database db.Database, inflight *interceptors_inflight.Interceptor) *PipelinesAPI {
	return &PipelinesAPI{
		engine:   engine,
		db:       database,
		inflight: inflight,
	}
}

func pipelineError(err error) *lhttp.HttpError {
	switch {
	case errors.Is(err, pipeline.ErrValidation):
		return lhttp.NewBadRequest(err.Error())
	case errors.Is(err, pipeline.ErrPipelineNotFound), errors.Is(err, pipeline.ErrExecutionNotFound), errors.Is(err, db.ErrNotFound):
		return lhttp.NewNotFound(err.Error())
	case errors.Is(err, pipeline.ErrPipelineInactive), errors.Is(err, db.ErrAlreadyExists):
		return lhttp.NewConflict(err.Error())
	default:
		return lhttp.NewInternalError(err.Error())
	}
}

func (a *PipelinesAPI) GetHandlers() []sbhttpserver.HandleDescription {
	return []sbhttpserver.HandleDescription{
		{Path: "/api/v1/pipelines", Method: "POST", Handler: a.registerPipeline},
		{Path: "/api/v1/pipelines", Method: "GET", Handler: a.listPipelines},
		{Path: "/api/v1/pipelines/:id", Method: "GET", Handler: a.getPipeline},
		{Path: "/api/v1/pipelines/:id/executions", Method: "POST", Handler: a.execute,
			Middleware: []sbhttpbase.RegistrableMiddleware{a.inflight.ToHTTP()}},
		{Path: "/api/v1/executions", Method: "GET", Handler: a.listExecutions},
		{Path: "/api/v1/executions/:id", Method: "GET", Handler: a.getExecution},
		{Path: "/api/v1/executions/:id/cancel", Method: "POST", Handler: a.cancelExecution},
	}
}

func (a *PipelinesAPI) registerPipeline(request *sbhttpbase.Request) {
	var def db.PipelineDefinition
	if herr := decodeBody(request, &def); herr != nil {
		writeError(request, herr)
		return
	}
	created, err := a.engine.RegisterPipeline(request.Request.Context(), &def)
	if err != nil {
		writeError(request, pipelineError(err))
		return
	}
	writeResult(request, 201, created)
}

func (a *PipelinesAPI) listPipelines(request *sbhttpbase.Request) {
	pipelines, err := a.db.Pipelines().ListPipelines(request.Request.Context())
	if err != nil {
		writeError(request, pipelineError(err))
		return
	}
	writeResult(request, 200, pipelines)
}

func (a *PipelinesAPI) getPipeline(request *sbhttpbase.Request) {
	def, err := a.db.Pipelines().GetPipeline(request.Request.Context(), request.Params["id"])
	if err != nil {
		writeError(request, pipelineError(err))
		return
	}
	writeResult(request, 200, def)
}

type executeRequest struct {
	Input         map[string]interface{} `json:"input"`
	CorrelationId string                 `json:"correlation_id,omitempty"`
	UserId        string                 `json:"user_id,omitempty"`
	ProjectId     string                 `json:"project_id,omitempty"`
	Environment   string                 `json:"environment,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

func (r *executeRequest) invocation() *executor.Invocation {
	return &executor.Invocation{
		CorrelationId: r.CorrelationId,
		UserId:        r.UserId,
		ProjectId:     r.ProjectId,
		Environment:   r.Environment,
		Metadata:      r.Metadata,
	}
}

func (a *PipelinesAPI) execute(request *sbhttpbase.Request) {
	var payload executeRequest
	if herr := decodeBody(request, &payload); herr != nil {
		writeError(request, herr)
		return
	}
	result, err := a.engine.Execute(request.Request.Context(), request.Params["id"], payload.Input, payload.invocation())
	if err != nil {
		writeError(request, pipelineError(err))
		return
	}
	code := 200
	if result.Status == pipeline.StatusQueued {
		code = 202
	}
	writeResult(request, code, result)
}

func (a *PipelinesAPI) listExecutions(request *sbhttpbase.Request) {
	writeResult(request, 200, a.engine.ListExecutions())
}

func (a *PipelinesAPI) getExecution(request *sbhttpbase.Request) {
	result, err := a.engine.GetExecution(request.Params["id"])
	if err != nil {
		writeError(request, pipelineError(err))
		return
	}
	writeResult(request, 200, result)
}

func (a *PipelinesAPI) cancelExecution(request *sbhttpbase.Request) {
	if err := a.engine.Cancel(request.Params["id"]); err != nil {
		writeError(request, pipelineError(err))
		return
	}
	writeResult(request, 202, map[string]interface{}{"cancelled": true})
}

func (a *PipelinesAPI) Shutdown() error {
	a.engine.Stop()
	return nil
}
