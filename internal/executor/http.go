package executor

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sitecraft/AlgoOrchestration/pkg/clientbase"
	cbhttp "github.com/sitecraft/AlgoOrchestration/pkg/clientbase/http"
	cbhttpmiddleware "github.com/sitecraft/AlgoOrchestration/pkg/clientbase/http/middleware"
	lconfig "github.com/sitecraft/AlgoOrchestration/pkg/config"
)

type Config struct {
	BaseUrl string `env:"EXECUTOR_BASE_URL" envDefault:"http://localhost:8090"`
}

func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	err := lconfig.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Client talks to the algorithm executor service over HTTP. One call runs one
// algorithm; everything else (queueing, retries, metrics) stays on our side.
type Client struct {
	cfg         *Config
	connections *clientbase.Connections
}

var _ Executor = &Client{}

func NewClient(cfg *Config, connections *clientbase.Connections) Executor {
	return &Client{
		cfg:         cfg,
		connections: connections,
	}
}

type executeRequest struct {
	Input         map[string]interface{} `json:"input"`
	CorrelationId string                 `json:"correlation_id,omitempty"`
	UserId        string                 `json:"user_id,omitempty"`
	ProjectId     string                 `json:"project_id,omitempty"`
	Environment   string                 `json:"environment,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

type executeResponse struct {
	Success          bool                   `json:"success"`
	Data             map[string]interface{} `json:"data,omitempty"`
	Error            string                 `json:"error,omitempty"`
	ExecutionTimeMs  int64                  `json:"execution_time_ms"`
	AlgorithmVersion string                 `json:"algorithm_version"`
	Confidence       *float64               `json:"confidence,omitempty"`
}

func (c *Client) Execute(ctx context.Context, algorithmId string, input map[string]interface{}, inv *Invocation) (*Result, error) {
	url := fmt.Sprintf("%s/api/v1/algorithms/%s/execute", c.cfg.BaseUrl, algorithmId)
	payload := executeRequest{Input: input}
	if inv != nil {
		payload.CorrelationId = inv.CorrelationId
		payload.UserId = inv.UserId
		payload.ProjectId = inv.ProjectId
		payload.Environment = inv.Environment
		payload.Metadata = inv.Metadata
	}

	req := cbhttp.NewRequest(ctx, "POST", url, cbhttp.BodyObj(payload))

	started := time.Now()
	var decoded executeResponse
	if _, herr := c.connections.HttpClient.Do(req, cbhttpmiddleware.JsonDecoder(&decoded)); herr != nil {
		if herr.Code == 404 {
			return nil, fmt.Errorf("executor has no algorithm %s", algorithmId)
		}
		log.Debugf("executor call for %s failed: %s", algorithmId, herr)
		return nil, herr
	}

	execTime := time.Duration(decoded.ExecutionTimeMs) * time.Millisecond
	if execTime <= 0 {
		execTime = time.Since(started)
	}
	return &Result{
		Success:          decoded.Success,
		Data:             decoded.Data,
		Error:            decoded.Error,
		ExecutionTime:    execTime,
		AlgorithmVersion: decoded.AlgorithmVersion,
		Confidence:       decoded.Confidence,
	}, nil
}
