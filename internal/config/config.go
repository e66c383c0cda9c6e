package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "APP_"

// Config holds the core runtime configuration for the service.
// Values come from defaults, an optional YAML file named by APP_CONFIG,
// and APP_-prefixed environment variables, in that order of precedence.
type Config struct {
	// Env is "production" or "development". Development exposes
	// underlying error text in 5xx bodies.
	Env string `koanf:"env"`

	ListenAddr string `koanf:"listen_addr"`

	LogLevel    string `koanf:"log_level"`
	LogEncoding string `koanf:"log_encoding"`

	DatabaseURL       string        `koanf:"database_url"`
	DBMaxOpenConns    int           `koanf:"db_max_open_conns"`
	DBMaxIdleConns    int           `koanf:"db_max_idle_conns"`
	DBConnMaxLifetime time.Duration `koanf:"db_conn_max_lifetime"`
	DBConnectTimeout  time.Duration `koanf:"db_connect_timeout"`

	// QueryTimeout bounds pool acquisition plus execution of one store call.
	QueryTimeout time.Duration `koanf:"query_timeout"`

	// OverviewWindow is the shared lookback used by the subnet overview,
	// environment discovery and every 30-day view.
	OverviewWindow time.Duration `koanf:"overview_window"`

	// LiveWindow and ScoringWindow drive the live per-environment leaderboard.
	LiveWindow    time.Duration `koanf:"live_window"`
	ScoringWindow time.Duration `koanf:"scoring_window"`

	DailyWindow time.Duration `koanf:"daily_window"`

	// EnvWatchInterval is how often the set of active environments is
	// re-read in the background. Zero disables the watcher.
	EnvWatchInterval time.Duration `koanf:"env_watch_interval"`

	LeaderboardLimit int `koanf:"leaderboard_limit"`
	ActivityLimit    int `koanf:"activity_limit"`

	// WeightsURL is the upstream weights/summary service. Empty disables
	// the /weights-summary proxy.
	WeightsURL     string        `koanf:"weights_url"`
	WeightsTimeout time.Duration `koanf:"weights_timeout"`
	WeightsTTL     time.Duration `koanf:"weights_ttl"`

	// RedisAddr enables the response cache when set.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	CORSOrigin string `koanf:"cors_origin"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Env:               "production",
		ListenAddr:        ":8080",
		LogLevel:          "info",
		LogEncoding:       "json",
		DBMaxOpenConns:    20,
		DBMaxIdleConns:    5,
		DBConnMaxLifetime: time.Hour,
		DBConnectTimeout:  5 * time.Second,
		QueryTimeout:      10 * time.Second,
		OverviewWindow:    30 * 24 * time.Hour,
		LiveWindow:        221 * time.Minute,
		ScoringWindow:     24 * time.Hour,
		DailyWindow:       7 * 24 * time.Hour,
		EnvWatchInterval:  5 * time.Minute,
		LeaderboardLimit:  20,
		ActivityLimit:     50,
		WeightsTimeout:    15 * time.Second,
		WeightsTTL:        time.Minute,
		CORSOrigin:        "*",
	}
}

// Load layers defaults, the optional APP_CONFIG YAML file and APP_ env vars.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// APP_OVERVIEW_WINDOW -> overview_window
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the service cannot run without.
func (c *Config) Validate() error {
	dsn := strings.TrimSpace(c.DatabaseURL)
	switch {
	case dsn == "":
		return fmt.Errorf("%w: APP_DATABASE_URL is required (PostgreSQL URL)", ErrInvalidConfig)
	case !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://"):
		return fmt.Errorf("%w: APP_DATABASE_URL must be a postgres:// or postgresql:// URL", ErrInvalidConfig)
	case c.ListenAddr == "":
		return fmt.Errorf("%w: listen_addr must not be empty", ErrInvalidConfig)
	case c.QueryTimeout <= 0:
		return fmt.Errorf("%w: query_timeout must be positive", ErrInvalidConfig)
	case c.OverviewWindow <= 0, c.LiveWindow <= 0, c.ScoringWindow <= 0, c.DailyWindow <= 0:
		return fmt.Errorf("%w: lookback windows must be positive", ErrInvalidConfig)
	case c.EnvWatchInterval < 0:
		return fmt.Errorf("%w: env_watch_interval must not be negative", ErrInvalidConfig)
	case c.LeaderboardLimit <= 0 || c.ActivityLimit <= 0:
		return fmt.Errorf("%w: limits must be positive", ErrInvalidConfig)
	}
	return nil
}

// Development reports whether error details may be exposed to clients.
func (c *Config) Development() bool {
	return strings.EqualFold(c.Env, "development") || strings.EqualFold(c.Env, "dev")
}

// Sentinel error kinds for this package.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
