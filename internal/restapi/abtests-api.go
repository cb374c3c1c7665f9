package restapi

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sitecraft/AlgoOrchestration/internal/abtest"
	"github.com/sitecraft/AlgoOrchestration/internal/db"
	lhttp "github.com/sitecraft/AlgoOrchestration/pkg/http"
	interceptors_inflight "github.com/sitecraft/AlgoOrchestration/pkg/interceptors/in-flight"
	sbhttpbase "github.com/sitecraft/AlgoOrchestration/pkg/serverbase/http/base"
	sbhttpserver "github.com/sitecraft/AlgoOrchestration/pkg/serverbase/http/server"
)

type ABTestsAPI struct {
	engine   *abtest.Engine
	inflight *interceptors_inflight.Interceptor
}

func NewABTestsAPI(engine *abtest.Engine, inflight *interceptors_inflight.Interceptor) *ABTestsAPI {
	return &ABTestsAPI{
		engine:   engine,
		inflight: inflight,
	}
}

func abtestError(err error) *lhttp.HttpError {
	switch {
	case errors.Is(err, abtest.ErrValidation):
		return lhttp.NewBadRequest(err.Error())
	case errors.Is(err, abtest.ErrTestNotFound), errors.Is(err, db.ErrNotFound):
		return lhttp.NewNotFound(err.Error())
	case errors.Is(err, abtest.ErrTestNotRunning), errors.Is(err, db.ErrInvalidTransition), errors.Is(err, db.ErrAlreadyExists):
		return lhttp.NewConflict(err.Error())
	default:
		return lhttp.NewInternalError(err.Error())
	}
}

func (a *ABTestsAPI) GetHandlers() []sbhttpserver.HandleDescription {
	return []sbhttpserver.HandleDescription{
		{Path: "/api/v1/abtests", Method: "POST", Handler: a.createTest},
		{Path: "/api/v1/abtests", Method: "GET", Handler: a.listTests},
		{Path: "/api/v1/abtests/:id", Method: "GET", Handler: a.getTest},
		{Path: "/api/v1/abtests/:id/start", Method: "POST", Handler: a.startTest},
		{Path: "/api/v1/abtests/:id/pause", Method: "POST", Handler: a.pauseTest},
		{Path: "/api/v1/abtests/:id/resume", Method: "POST", Handler: a.resumeTest},
		{Path: "/api/v1/abtests/:id/stop", Method: "POST", Handler: a.stopTest},
		{Path: "/api/v1/abtests/:id/execute", Method: "POST", Handler: a.execute,
			Middleware: []sbhttpbase.RegistrableMiddleware{a.inflight.ToHTTP()}},
		{Path: "/api/v1/abtests/:id/statistics", Method: "GET", Handler: a.getStatistics},
	}
}

func (a *ABTestsAPI) createTest(request *sbhttpbase.Request) {
	var def db.ABTestDefinition
	if herr := decodeBody(request, &def); herr != nil {
		writeError(request, herr)
		return
	}
	created, err := a.engine.CreateTest(request.Request.Context(), &def)
	if err != nil {
		writeError(request, abtestError(err))
		return
	}
	writeResult(request, 201, created)
}

type listTestsQuery struct {
	State string `json:"state"`
}

func (a *ABTestsAPI) listTests(request *sbhttpbase.Request) {
	var query listTestsQuery
	if herr := decodeQuery(request, &query); herr != nil {
		writeError(request, herr)
		return
	}
	var state *db.TestState
	if query.State != "" {
		s := db.TestState(query.State)
		state = &s
	}
	tests, err := a.engine.ListTests(request.Request.Context(), state)
	if err != nil {
		writeError(request, abtestError(err))
		return
	}
	writeResult(request, 200, tests)
}

func (a *ABTestsAPI) getTest(request *sbhttpbase.Request) {
	test, err := a.engine.GetTest(request.Request.Context(), request.Params["id"])
	if err != nil {
		writeError(request, abtestError(err))
		return
	}
	writeResult(request, 200, test)
}

func (a *ABTestsAPI) startTest(request *sbhttpbase.Request) {
	a.transition(request, a.engine.StartTest)
}

func (a *ABTestsAPI) pauseTest(request *sbhttpbase.Request) {
	a.transition(request, a.engine.PauseTest)
}

func (a *ABTestsAPI) resumeTest(request *sbhttpbase.Request) {
	a.transition(request, a.engine.ResumeTest)
}

func (a *ABTestsAPI) transition(request *sbhttpbase.Request, fn func(ctx context.Context, id string) error) {
	if err := fn(request.Request.Context(), request.Params["id"]); err != nil {
		writeError(request, abtestError(err))
		return
	}
	writeResult(request, 200, map[string]interface{}{"ok": true})
}

type stopTestRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (a *ABTestsAPI) stopTest(request *sbhttpbase.Request) {
	var payload stopTestRequest
	if request.Request.ContentLength != 0 {
		if herr := decodeBody(request, &payload); herr != nil {
			writeError(request, herr)
			return
		}
	}
	if err := a.engine.StopTest(request.Request.Context(), request.Params["id"], payload.Reason); err != nil {
		writeError(request, abtestError(err))
		return
	}
	writeResult(request, 200, map[string]interface{}{"ok": true})
}

func (a *ABTestsAPI) execute(request *sbhttpbase.Request) {
	var payload executeRequest
	if herr := decodeBody(request, &payload); herr != nil {
		writeError(request, herr)
		return
	}
	outcome, err := a.engine.ExecuteWithABTest(request.Request.Context(), request.Params["id"], payload.Input, payload.invocation())
	if err != nil {
		if errors.Is(err, abtest.ErrNotEligible) {
			writeResult(request, 200, map[string]interface{}{"eligible": false})
			return
		}
		writeError(request, abtestError(err))
		return
	}
	writeResult(request, 200, outcome)
}

func (a *ABTestsAPI) getStatistics(request *sbhttpbase.Request) {
	stats, err := a.engine.GetTestStatistics(request.Request.Context(), request.Params["id"])
	if err != nil {
		writeError(request, abtestError(err))
		return
	}
	writeResult(request, 200, stats)
}

func (a *ABTestsAPI) Shutdown() error {
	return nil
}
