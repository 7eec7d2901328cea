package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	// FetchTimeout bounds each outbound FHIR request.
	FetchTimeout time.Duration `mapstructure:"FETCH_TIMEOUT"`
	// BatchSize is how many resources are validated per batch.
	BatchSize  int           `mapstructure:"BATCH_SIZE"`
	BatchDelay time.Duration `mapstructure:"BATCH_DELAY"`
	// ProgressRetention is how long finished runs keep answering progress
	// polls before their in-memory state is dropped.
	ProgressRetention time.Duration `mapstructure:"PROGRESS_RETENTION"`

	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("FETCH_TIMEOUT", "30s")
	v.SetDefault("BATCH_SIZE", 10)
	v.SetDefault("BATCH_DELAY", "100ms")
	v.SetDefault("PROGRESS_RETENTION", "1h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("FETCH_TIMEOUT")
	v.BindEnv("BATCH_SIZE")
	v.BindEnv("BATCH_DELAY")
	v.BindEnv("PROGRESS_RETENTION")
	v.BindEnv("CORS_ORIGINS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("BATCH_SIZE must be positive")
	}
	if cfg.FetchTimeout <= 0 {
		return nil, fmt.Errorf("FETCH_TIMEOUT must be positive")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// HasDatabase reports whether a Postgres URL is configured. Without one the
// server falls back to the in-memory repository, which is fine for local use
// but loses results on restart.
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}
