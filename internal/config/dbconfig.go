package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// DBConfig connects the postgres indexer backend
type DBConfig struct {
	DBUser     string `env:"DB_USER,required"`
	DBPassword string `env:"DB_PASSWORD,required"`
	DBName     string `env:"DB_NAME,required"`
	DBHost     string `env:"DB_HOST,required"`
}

// NewDBConfig reads the database settings from the env loaded by New
func NewDBConfig(ctx context.Context) (*DBConfig, error) {
	cfg := &DBConfig{}
	err := envconfig.Process(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
