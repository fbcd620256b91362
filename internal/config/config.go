// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Database holds the PostgreSQL and Redis connection settings.
type Database struct {
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"user"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"password"`
	DBName     string `env:"DB_NAME" envDefault:"traderadardb"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6380"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Config holds the server settings. Values come from the process environment,
// optionally seeded from a .env file.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"production"`
	Port   string `env:"PORT" envDefault:"8080"`

	Database

	JWTSecret string        `env:"JWT_SECRET,required,notEmpty"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"72h"`

	NearbyRadiusMeters float64       `env:"NEARBY_RADIUS_METERS" envDefault:"25000"`
	CacheTTL           time.Duration `env:"CACHE_TTL" envDefault:"30s"`
	CallTimeout        time.Duration `env:"CALL_TIMEOUT" envDefault:"5s"`
}

// ClientConfig holds the radar CLI settings.
type ClientConfig struct {
	BaseURL      string        `env:"RADAR_API_URL" envDefault:"http://localhost:8080"`
	Token        string        `env:"RADAR_TOKEN"`
	UserID       string        `env:"RADAR_USER_ID"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"3s"`
	ScanInterval time.Duration `env:"SCAN_INTERVAL" envDefault:"10s"`
	CallTimeout  time.Duration `env:"CALL_TIMEOUT" envDefault:"5s"`
	CancelStale  bool          `env:"CANCEL_STALE" envDefault:"true"`
}

// DSN builds the PostgreSQL connection string for gorm.
func (c Database) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// IsDevelopment reports whether verbose logging should be used.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Load reads .env (when present) and parses the server config.
// The returned bool is false when no .env file was found.
func Load() (Config, bool, error) {
	found := godotenv.Load() == nil
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, found, fmt.Errorf("parse env: %w", err)
	}
	return cfg, found, nil
}

// LoadDatabase reads .env (when present) and parses only the connection
// settings, for tools that do not serve the API.
func LoadDatabase() (Database, error) {
	_ = godotenv.Load()
	var cfg Database
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadClient reads .env (when present) and parses the CLI config.
func LoadClient() (ClientConfig, error) {
	_ = godotenv.Load()
	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
