package infra

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/shopspring/decimal"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	FundingModeImmediate    = "immediate"
	FundingModeOnCompletion = "on_completion"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string   `env:"APP_ENV" env-default:"development"`
	Port               string   `env:"PORT" env-default:"8080"`
	DatabaseURL        string   `env:"DATABASE_URL"`
	JWTSecret          string   `env:"JWT_SECRET"`
	StorageDriver      string   `env:"STORAGE_DRIVER" env-default:"postgres"`
	FundingMode        string   `env:"FUNDING_MODE" env-default:"immediate"`
	PlatformFeePercent float64  `env:"PLATFORM_FEE_PERCENT" env-default:"0"`
	Timezone           string   `env:"TIMEZONE" env-default:"UTC"`
	DefaultLocale      string   `env:"DEFAULT_LOCALE" env-default:"ru"`
	GeoIPDBPath        string   `env:"GEOIP_DB_PATH"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
	RateLimitPerMin    int      `env:"RATE_LIMIT_PER_MINUTE" env-default:"60"`
	ReadTimeoutSec     int      `env:"HTTP_READ_TIMEOUT_SECONDS" env-default:"15"`
	WriteTimeoutSec    int      `env:"HTTP_WRITE_TIMEOUT_SECONDS" env-default:"30"`
	IdleTimeoutSec     int      `env:"HTTP_IDLE_TIMEOUT_SECONDS" env-default:"60"`
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field requirements that env tags cannot express.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER %q is not one of postgres, memory", c.StorageDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.FundingMode {
	case FundingModeImmediate, FundingModeOnCompletion:
	default:
		return fmt.Errorf("FUNDING_MODE %q is not one of immediate, on_completion", c.FundingMode)
	}
	if c.PlatformFeePercent < 0 || c.PlatformFeePercent > 100 {
		return fmt.Errorf("PLATFORM_FEE_PERCENT %v out of range", c.PlatformFeePercent)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.RateLimitPerMin <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

// Location resolves TIMEZONE, the zone day/week/month windows are computed in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// FeePercent returns the platform fee percentage as a decimal.
func (c *Config) FeePercent() decimal.Decimal {
	return decimal.NewFromFloat(c.PlatformFeePercent)
}

func (c *Config) HTTPReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSec) * time.Second
}

func (c *Config) HTTPWriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSec) * time.Second
}

func (c *Config) HTTPIdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSec) * time.Second
}
