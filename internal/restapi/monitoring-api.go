package restapi

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sitecraft/AlgoOrchestration/internal/db"
	"github.com/sitecraft/AlgoOrchestration/internal/monitoring"
	lhttp "github.com/sitecraft/AlgoOrchestration/pkg/http"
	sbhttpbase "github.com/sitecraft/AlgoOrchestration/pkg/serverbase/http/base"
	sbhttpserver "github.com/sitecraft/AlgoOrchestration/pkg/serverbase/http/server"
)

type MonitoringAPI struct {
	engine *monitoring.Engine
	db     db.Database
}

func NewMonitoringAPI(engine *monitoring.Engine, database db.Database) *MonitoringAPI {
	return &MonitoringAPI{
		engine: engine,
		db:     database,
	}
}

func monitoringError(err error) *lhttp.HttpError {
	switch {
	case errors.Is(err, monitoring.ErrValidation):
		return lhttp.NewBadRequest(err.Error())
	case errors.Is(err, db.ErrNotFound):
		return lhttp.NewNotFound(err.Error())
	default:
		return lhttp.NewInternalError(err.Error())
	}
}

func (a *MonitoringAPI) GetHandlers() []sbhttpserver.HandleDescription {
	return []sbhttpserver.HandleDescription{
		{Path: "/api/v1/monitoring/algorithms/:id/dashboard", Method: "GET", Handler: a.getDashboard},
		{Path: "/api/v1/monitoring/algorithms/:id/buckets", Method: "GET", Handler: a.listBuckets},
		{Path: "/api/v1/monitoring/system", Method: "GET", Handler: a.getSystemMetrics},
		{Path: "/api/v1/monitoring/thresholds", Method: "POST", Handler: a.setThreshold},
		{Path: "/api/v1/monitoring/alerts", Method: "GET", Handler: a.listAlerts},
		{Path: "/api/v1/monitoring/alerts/:id/resolve", Method: "POST", Handler: a.resolveAlert},
	}
}

func (a *MonitoringAPI) getDashboard(request *sbhttpbase.Request) {
	var window time.Duration
	if raw := request.Request.URL.Query().Get("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			writeError(request, lhttp.NewBadRequest("window must be a duration"))
			return
		}
		window = parsed
	}
	data, err := a.engine.GetDashboardData(request.Request.Context(), request.Params["id"], window)
	if err != nil {
		writeError(request, monitoringError(err))
		return
	}
	writeResult(request, 200, data)
}

func (a *MonitoringAPI) listBuckets(request *sbhttpbase.Request) {
	var since time.Time
	if raw := request.Request.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(request, lhttp.NewBadRequest("since must be RFC3339"))
			return
		}
		since = parsed
	}
	buckets, err := a.db.Metrics().ListBuckets(request.Request.Context(), request.Params["id"], since)
	if err != nil {
		writeError(request, monitoringError(err))
		return
	}
	writeResult(request, 200, buckets)
}

func (a *MonitoringAPI) getSystemMetrics(request *sbhttpbase.Request) {
	metrics, err := a.engine.GetSystemMetrics(request.Request.Context())
	if err != nil {
		writeError(request, monitoringError(err))
		return
	}
	writeResult(request, 200, metrics)
}

func (a *MonitoringAPI) setThreshold(request *sbhttpbase.Request) {
	var threshold db.AlertThreshold
	if herr := decodeBody(request, &threshold); herr != nil {
		writeError(request, herr)
		return
	}
	created, err := a.engine.SetThreshold(request.Request.Context(), &threshold)
	if err != nil {
		writeError(request, monitoringError(err))
		return
	}
	writeResult(request, 201, created)
}

type listAlertsQuery struct {
	AlgorithmId string `json:"algorithm_id"`
	Unresolved  bool   `json:"unresolved"`
}

func (a *MonitoringAPI) listAlerts(request *sbhttpbase.Request) {
	var query listAlertsQuery
	if herr := decodeQuery(request, &query); herr != nil {
		writeError(request, herr)
		return
	}
	alerts, err := a.engine.ListAlerts(request.Request.Context(), query.AlgorithmId, query.Unresolved)
	if err != nil {
		writeError(request, monitoringError(err))
		return
	}
	writeResult(request, 200, alerts)
}

func (a *MonitoringAPI) resolveAlert(request *sbhttpbase.Request) {
	id, err := strconv.ParseInt(request.Params["id"], 10, 64)
	if err != nil {
		writeError(request, lhttp.NewBadRequest("alert id must be numeric"))
		return
	}
	if err := a.engine.ResolveAlert(request.Request.Context(), id); err != nil {
		writeError(request, monitoringError(err))
		return
	}
	writeResult(request, 200, map[string]interface{}{"resolved": true})
}

func (a *MonitoringAPI) Shutdown() error {
	return nil
}
