package registry

import (
	"fmt"
	"time"

	lconfig "github.com/sitecraft/AlgoOrchestration/pkg/config"
)

type Config struct {
	SmokeTestAttempts uint          `env:"REGISTRY_SMOKE_TEST_ATTEMPTS" envDefault:"3"`
	SmokeTestDelay    time.Duration `env:"REGISTRY_SMOKE_TEST_DELAY" envDefault:"500ms"`
	SmokeTestMaxDelay time.Duration `env:"REGISTRY_SMOKE_TEST_MAX_DELAY" envDefault:"5s"`
	SmokeTestTimeout  time.Duration `env:"REGISTRY_SMOKE_TEST_TIMEOUT" envDefault:"30s"`
}

var ErrInvalidSmokeTestAttempts = fmt.Errorf("invalid smoke test attempts")

func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	err := lconfig.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	if cfg.SmokeTestAttempts < 1 {
		return nil, ErrInvalidSmokeTestAttempts
	}
	return &cfg, nil
}
