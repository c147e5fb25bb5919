// Package config loads the engine's environment-bag configuration.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the configuration bag: database connection, pool sizing, cache
// controls, and the base URL used in bundle entries.
type Config struct {
	Env string `mapstructure:"ENV"`
	Port string `mapstructure:"PORT"`

	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	DBIdleTimeout  time.Duration `mapstructure:"DB_IDLE_TIMEOUT"`
	DBConnTimeout  time.Duration `mapstructure:"DB_CONN_TIMEOUT"`

	CacheEnabled bool          `mapstructure:"CACHE_ENABLED"`
	CacheMaxSize int           `mapstructure:"CACHE_MAX_SIZE"`
	CacheTTL     time.Duration `mapstructure:"CACHE_TTL"`

	BaseURL string `mapstructure:"BASE_URL"`

	// AuthEnabled gates the bearer-token verification seam (middleware.Auth).
	// Off by default: the engine expects most deployments to front it with
	// their own OIDC gateway, per §1's AccessPolicy/auth Non-goal.
	AuthEnabled   bool   `mapstructure:"AUTH_ENABLED"`
	JWTIssuer     string `mapstructure:"JWT_ISSUER"`
	JWTAudience   string `mapstructure:"JWT_AUDIENCE"`
	JWTSigningKey string `mapstructure:"JWT_SIGNING_KEY"`
}

// Load reads configuration from a .env file overlaid by real environment
// variables, with explicit defaults and BindEnv calls so Unmarshal always
// observes process env overrides.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_IDLE_TIMEOUT", 5*time.Minute)
	v.SetDefault("DB_CONN_TIMEOUT", 5*time.Second)
	v.SetDefault("CACHE_ENABLED", true)
	v.SetDefault("CACHE_MAX_SIZE", 10000)
	v.SetDefault("CACHE_TTL", 5*time.Minute)
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("AUTH_ENABLED", false)

	for _, key := range []string{
		"ENV", "PORT", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"DB_IDLE_TIMEOUT", "DB_CONN_TIMEOUT", "CACHE_ENABLED", "CACHE_MAX_SIZE",
		"CACHE_TTL", "BASE_URL", "AUTH_ENABLED", "JWT_ISSUER", "JWT_AUDIENCE",
		"JWT_SIGNING_KEY",
	} {
		_ = v.BindEnv(key)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func (c *Config) IsDev() bool        { return c.Env == "development" }
func (c *Config) IsProduction() bool { return c.Env == "production" }

// Validate checks invariants Load cannot express as viper defaults.
func (c *Config) Validate() error {
	if c.DBMaxConns < c.DBMinConns {
		return fmt.Errorf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.DBMaxConns, c.DBMinConns)
	}
	if c.CacheEnabled && c.CacheMaxSize <= 0 {
		return fmt.Errorf("CACHE_MAX_SIZE must be positive when CACHE_ENABLED is true")
	}
	if c.AuthEnabled && c.JWTSigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY is required when AUTH_ENABLED is true")
	}
	return nil
}
