package pipeline

import (
	"fmt"
	"time"

	lconfig "github.com/sitecraft/AlgoOrchestration/pkg/config"
)

type Config struct {
	MaxConcurrentExecutions int           `env:"PIPELINE_MAX_CONCURRENT_EXECUTIONS" envDefault:"10"`
	QueueDrainInterval      time.Duration `env:"PIPELINE_QUEUE_DRAIN_INTERVAL" envDefault:"1s"`
	DefaultTimeout          time.Duration `env:"PIPELINE_DEFAULT_TIMEOUT" envDefault:"5m"`
	DefaultStageTimeout     time.Duration `env:"PIPELINE_DEFAULT_STAGE_TIMEOUT" envDefault:"30s"`
	DefaultStageConcurrency int           `env:"PIPELINE_DEFAULT_STAGE_CONCURRENCY" envDefault:"4"`
	ResultHistory           int           `env:"PIPELINE_RESULT_HISTORY" envDefault:"100"`
}

var (
	ErrInvalidMaxConcurrent      = fmt.Errorf("invalid max concurrent executions")
	ErrInvalidQueueDrainInterval = fmt.Errorf("invalid queue drain interval")
)

func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	err := lconfig.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConcurrentExecutions < 1 {
		return nil, ErrInvalidMaxConcurrent
	}
	if cfg.QueueDrainInterval < 1*time.Millisecond {
		return nil, ErrInvalidQueueDrainInterval
	}
	return &cfg, nil
}
