package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"ENV"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32         `mapstructure:"DB_MIN_CONNS"`
	DBSchema            string        `mapstructure:"DB_SCHEMA"`
	RedisURL            string        `mapstructure:"REDIS_URL"`
	ImportLockTTL       time.Duration `mapstructure:"IMPORT_LOCK_TTL"`
	UploadLimit         string        `mapstructure:"UPLOAD_LIMIT"`
	ClassifyAfterImport bool          `mapstructure:"CLASSIFY_AFTER_IMPORT"`
	ClassifyMode        string        `mapstructure:"CLASSIFY_MODE"`
	LogLevel            string        `mapstructure:"LOG_LEVEL"`
}

// Load reads settings from the environment, with an optional .env file in
// the working directory underneath. DATABASE_URL is not checked here so
// that commands which never touch the database can run without it.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("IMPORT_LOCK_TTL", "10m")
	v.SetDefault("UPLOAD_LIMIT", "50M")
	v.SetDefault("CLASSIFY_AFTER_IMPORT", true)
	v.SetDefault("CLASSIFY_MODE", "full")
	v.SetDefault("LOG_LEVEL", "info")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"DB_SCHEMA", "REDIS_URL", "IMPORT_LOCK_TTL", "UPLOAD_LIMIT",
		"CLASSIFY_AFTER_IMPORT", "CLASSIFY_MODE", "LOG_LEVEL",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// RequireDatabase reports a missing DATABASE_URL.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// Validate checks values Load cannot type-check on its own.
func (c *Config) Validate() error {
	if c.ClassifyMode != "full" && c.ClassifyMode != "by-code" {
		return fmt.Errorf("CLASSIFY_MODE must be \"full\" or \"by-code\", got %q", c.ClassifyMode)
	}
	if c.ImportLockTTL <= 0 {
		return fmt.Errorf("IMPORT_LOCK_TTL must be positive, got %s", c.ImportLockTTL)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}
