package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/symcheck/symcheck/internal/platform/db"
	"github.com/symcheck/symcheck/internal/platform/fuzzy"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	StoreDriver    string        `mapstructure:"STORE_DRIVER"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	DBSchema       string        `mapstructure:"DB_SCHEMA"`
	MigrationsDir  string        `mapstructure:"MIGRATIONS_DIR"`
	SQLitePath     string        `mapstructure:"SQLITE_PATH"`
	SeedFixture    string        `mapstructure:"SEED_FIXTURE"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	BodyLimit      string        `mapstructure:"BODY_LIMIT"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	MatchScorer    string        `mapstructure:"MATCH_SCORER"`
	MatchWorkers   int           `mapstructure:"MATCH_WORKERS"`
	// Five-field cron expression; empty disables scheduled corpus reloads.
	CorpusRefreshSchedule string `mapstructure:"CORPUS_REFRESH_SCHEDULE"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "STORE_DRIVER", "DATABASE_URL", "DB_MAX_CONNS",
	"DB_MIN_CONNS", "DB_SCHEMA", "MIGRATIONS_DIR", "SQLITE_PATH", "SEED_FIXTURE",
	"CORS_ORIGINS", "BODY_LIMIT", "REQUEST_TIMEOUT", "MATCH_SCORER",
	"MATCH_WORKERS", "CORPUS_REFRESH_SCHEDULE",
}

// Load reads .env (if present) and the environment. It does not validate;
// call Validate before using the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("SQLITE_PATH", "data/symcheck.db")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("MATCH_SCORER", fuzzy.ScorerIndel)
	v.SetDefault("MATCH_WORKERS", 1)
	v.SetDefault("CORPUS_REFRESH_SCHEDULE", "")

	// Bind explicitly so Unmarshal sees keys that have no default.
	for _, k := range keys {
		v.BindEnv(k)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Level returns the configured zerolog level, defaulting to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Validate checks that the configuration is usable by the selected store
// driver.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is %q", DriverPostgres)
		}
		if !db.ValidSchema(c.DBSchema) {
			return fmt.Errorf("DB_SCHEMA %q is not a valid schema name", c.DBSchema)
		}
		if c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER is %q", DriverSQLite)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q, %q or %q, got %q",
			DriverPostgres, DriverSQLite, DriverMemory, c.StoreDriver)
	}

	if _, err := fuzzy.ByName(c.MatchScorer); err != nil {
		return fmt.Errorf("MATCH_SCORER: %w", err)
	}
	if c.MatchWorkers < 1 {
		return fmt.Errorf("MATCH_WORKERS must be at least 1, got %d", c.MatchWorkers)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative")
	}
	if c.CorpusRefreshSchedule != "" {
		if _, err := cron.ParseStandard(c.CorpusRefreshSchedule); err != nil {
			return fmt.Errorf("CORPUS_REFRESH_SCHEDULE: %w", err)
		}
	}
	return nil
}
