package restapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sitecraft/AlgoOrchestration/internal/db/memory"
	"github.com/sitecraft/AlgoOrchestration/internal/events"
	"github.com/sitecraft/AlgoOrchestration/internal/executor"
	"github.com/sitecraft/AlgoOrchestration/internal/registry"
	sbhttpbase "github.com/sitecraft/AlgoOrchestration/pkg/serverbase/http/base"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func newRegistryAPI() *RegistryAPI {
	cfg := &registry.Config{
		SmokeTestAttempts: 3,
		SmokeTestDelay:    time.Millisecond,
		SmokeTestMaxDelay: 5 * time.Millisecond,
		SmokeTestTimeout:  time.Second,
	}
	database := memory.NewDatabase()
	reg := registry.NewRegistry(cfg, database, executor.NewMock(), events.NewBus(16))
	return NewRegistryAPI(reg, database)
}

func jsonRequest(method, target string, body interface{}, params map[string]string) (*sbhttpbase.Request, *httptest.ResponseRecorder) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		reader = bytes.NewReader(encoded)
	}
	recorder := httptest.NewRecorder()
	request := &sbhttpbase.Request{
		Writer:  recorder,
		Request: httptest.NewRequest(method, target, reader),
		Params:  params,
	}
	return request, recorder
}

func schedulerPayload(version string) *algorithmVersionPayload {
	return &algorithmVersionPayload{
		AlgorithmId: "scheduler",
		Version:     version,
		Name:        "critical path scheduler",
		Category:    "scheduling",
		Priority:    "high",
		CreatedBy:   "tester",
	}
}

func TestRegisterAlgorithmHandler(t *testing.T) {
	api := newRegistryAPI()

	request, recorder := jsonRequest("POST", "/api/v1/algorithms", schedulerPayload("1.0.0"), nil)
	api.registerAlgorithm(request)
	assert.Equal(t, 201, recorder.Code)
	var created algorithmVersionPayload
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &created))
	assert.Equal(t, "scheduler", created.AlgorithmId)
	assert.Equal(t, "1.0.0", created.Version)

	// missing fields are rejected before anything is stored
	request, recorder = jsonRequest("POST", "/api/v1/algorithms", &algorithmVersionPayload{}, nil)
	api.registerAlgorithm(request)
	assert.Equal(t, 400, recorder.Code)

	// re-registering a version conflicts
	request, recorder = jsonRequest("POST", "/api/v1/algorithms", schedulerPayload("1.0.0"), nil)
	api.registerAlgorithm(request)
	assert.Equal(t, 409, recorder.Code)
}

func TestGetActiveVersionHandler(t *testing.T) {
	api := newRegistryAPI()
	params := map[string]string{"id": "scheduler"}

	request, recorder := jsonRequest("GET", "/api/v1/algorithms/scheduler/active", nil, params)
	api.getActiveVersion(request)
	assert.Equal(t, 404, recorder.Code)

	request, recorder = jsonRequest("POST", "/api/v1/algorithms", schedulerPayload("1.0.0"), nil)
	api.registerAlgorithm(request)
	assert.Equal(t, 201, recorder.Code)
	request, recorder = jsonRequest("POST", "/api/v1/algorithms/scheduler/deployments",
		&deployRequest{Version: "1.0.0", Environment: "production", Actor: "tester"}, params)
	api.deploy(request)
	assert.Equal(t, 201, recorder.Code)

	request, recorder = jsonRequest("GET", "/api/v1/algorithms/scheduler/active", nil, params)
	api.getActiveVersion(request)
	assert.Equal(t, 200, recorder.Code)
	var active algorithmVersionPayload
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &active))
	assert.Equal(t, "1.0.0", active.Version)
}

func TestDeployHandlerConflict(t *testing.T) {
	api := newRegistryAPI()
	params := map[string]string{"id": "scheduler"}

	for _, version := range []string{"1.0.0", "1.1.0"} {
		request, recorder := jsonRequest("POST", "/api/v1/algorithms", schedulerPayload(version), nil)
		api.registerAlgorithm(request)
		assert.Equal(t, 201, recorder.Code)
	}

	request, recorder := jsonRequest("POST", "/api/v1/algorithms/scheduler/deployments",
		&deployRequest{Version: "1.0.0", Environment: "staging"}, params)
	api.deploy(request)
	assert.Equal(t, 201, recorder.Code)

	// the staging slot is occupied
	request, recorder = jsonRequest("POST", "/api/v1/algorithms/scheduler/deployments",
		&deployRequest{Version: "1.1.0", Environment: "staging"}, params)
	api.deploy(request)
	assert.Equal(t, 409, recorder.Code)

	// an unknown environment is a validation failure
	request, recorder = jsonRequest("POST", "/api/v1/algorithms/scheduler/deployments",
		&deployRequest{Version: "1.1.0", Environment: "moon"}, params)
	api.deploy(request)
	assert.Equal(t, 400, recorder.Code)
}

func TestListDeploymentsHandlerFiltersEnvironment(t *testing.T) {
	api := newRegistryAPI()
	params := map[string]string{"id": "scheduler"}

	request, recorder := jsonRequest("POST", "/api/v1/algorithms", schedulerPayload("1.0.0"), nil)
	api.registerAlgorithm(request)
	assert.Equal(t, 201, recorder.Code)
	request, recorder = jsonRequest("POST", "/api/v1/algorithms/scheduler/deployments",
		&deployRequest{Version: "1.0.0", Environment: "staging"}, params)
	api.deploy(request)
	assert.Equal(t, 201, recorder.Code)

	request, recorder = jsonRequest("GET", "/api/v1/algorithms/scheduler/deployments?environment=staging", nil, params)
	api.listDeployments(request)
	assert.Equal(t, 200, recorder.Code)
	var staging []*deploymentPayload
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &staging))
	assert.Len(t, staging, 1)
	assert.Equal(t, "staging", staging[0].Environment)

	request, recorder = jsonRequest("GET", "/api/v1/algorithms/scheduler/deployments?environment=production", nil, params)
	api.listDeployments(request)
	assert.Equal(t, 200, recorder.Code)
	var production []*deploymentPayload
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &production))
	assert.Empty(t, production)
}

func TestRollbackHandlerRequiresEnvironment(t *testing.T) {
	api := newRegistryAPI()

	request, recorder := jsonRequest("POST", "/api/v1/algorithms/scheduler/rollback",
		&rollbackRequest{ToVersion: "1.0.0"}, map[string]string{"id": "scheduler"})
	api.rollback(request)
	assert.Equal(t, 400, recorder.Code)
}

func TestListVersionsHandler(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		api := newRegistryAPI()
		count := rapid.IntRange(1, 8).Draw(t, "count")
		for i := 0; i < count; i++ {
			request, recorder := jsonRequest("POST", "/api/v1/algorithms",
				schedulerPayload(fmt.Sprintf("1.%d.0", i)), nil)
			api.registerAlgorithm(request)
			assert.Equal(t, 201, recorder.Code)
		}

		request, recorder := jsonRequest("GET", "/api/v1/algorithms/scheduler/versions", nil,
			map[string]string{"id": "scheduler"})
		api.listVersions(request)
		assert.Equal(t, 200, recorder.Code)

		var versions []*algorithmVersionPayload
		assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &versions))
		// Property: every registered version comes back, nothing else
		assert.Len(t, versions, count)
	})
}
