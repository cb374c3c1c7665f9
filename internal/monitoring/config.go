package monitoring

import (
	"fmt"
	"time"

	lconfig "github.com/sitecraft/AlgoOrchestration/pkg/config"
	"k8s.io/apimachinery/pkg/api/resource"
)

type Config struct {
	BucketGranularity   time.Duration     `env:"MONITORING_BUCKET_GRANULARITY" envDefault:"10s"`
	Retention           time.Duration     `env:"MONITORING_RETENTION" envDefault:"1h"`
	MaxBucketsPerAlgo   int               `env:"MONITORING_MAX_BUCKETS_PER_ALGORITHM" envDefault:"360"`
	SampleInterval      time.Duration     `env:"MONITORING_SAMPLE_INTERVAL" envDefault:"30s"`
	// AlertCooldown suppresses a repeated breach while an unresolved alert of
	// the same (algorithm, metric, severity) is younger than this. Zero keeps
	// one alert per breach.
	AlertCooldown       time.Duration     `env:"MONITORING_ALERT_COOLDOWN" envDefault:"60s"`
	ResponseTimeCeiling time.Duration     `env:"MONITORING_RESPONSE_TIME_CEILING" envDefault:"5s"`
	MemoryAlertLimit    resource.Quantity `env:"MONITORING_MEMORY_ALERT_LIMIT" envDefault:"512Mi"`
}

var (
	ErrInvalidBucketGranularity = fmt.Errorf("invalid bucket granularity")
	ErrInvalidRetention         = fmt.Errorf("invalid retention")
	ErrInvalidMaxBuckets        = fmt.Errorf("invalid max buckets per algorithm")
)

func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	err := lconfig.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	err = validateConfig(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.BucketGranularity < 1*time.Second {
		return ErrInvalidBucketGranularity
	}
	if cfg.Retention < cfg.BucketGranularity {
		return ErrInvalidRetention
	}
	if cfg.MaxBucketsPerAlgo < 1 {
		return ErrInvalidMaxBuckets
	}
	return nil
}
