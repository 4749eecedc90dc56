package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port           int           `envconfig:"PORT" default:"8080"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL    string        `envconfig:"DATABASE_URL" required:"true"`
	RedisAddr      string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword  string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB        int           `envconfig:"REDIS_DB" default:"0"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	Version        string        `envconfig:"VERSION" default:"dev"`
	BcryptCost     int           `envconfig:"BCRYPT_COST" default:"12"`
	TxMaxRetries   int           `envconfig:"TX_MAX_RETRIES" default:"3"`
	MigrateOnStart bool          `envconfig:"MIGRATE_ON_START" default:"true"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
