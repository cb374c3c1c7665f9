package abtest

import (
	"time"

	lconfig "github.com/sitecraft/AlgoOrchestration/pkg/config"
	"github.com/sitecraft/AlgoOrchestration/pkg/reconciler"
)

type Config struct {
	AnalyzeFrequency time.Duration `env:"ABTEST_ANALYZE_FREQUENCY" envDefault:"1m"`
	AnalyzeWorkers   int           `env:"ABTEST_ANALYZE_WORKERS" envDefault:"2"`
	AnalyzeMaxItems  int           `env:"ABTEST_ANALYZE_MAX_ITEMS" envDefault:"10"`
}

func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	err := lconfig.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) ReconcilerConfig() (*reconciler.Config, error) {
	return reconciler.NewConfig(c.AnalyzeFrequency, c.AnalyzeWorkers, c.AnalyzeMaxItems)
}
