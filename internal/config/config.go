package config

import (
	lconfig "github.com/sitecraft/AlgoOrchestration/pkg/config"
)

type Config struct {
	lconfig.PodInfo
	// Backend selects where registry entities are persisted. The runtime
	// entities always live in memory.
	Backend          string `env:"DB_BACKEND" envDefault:"memory"`
	Migrate          bool   `env:"MIGRATE" envDefault:"true"`
	MigrationVersion *uint  `env:"MIGRATION_VERSION"`
}

func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	err := lconfig.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
