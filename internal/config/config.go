package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	Kafka     KafkaConfig     `mapstructure:",squash"`
	Scheduler SchedulerConfig `mapstructure:",squash"`
	Logging   LoggingConfig   `mapstructure:",squash"`
	Business  BusinessConfig  `mapstructure:",squash"`
	Health    HealthConfig    `mapstructure:",squash"`
	CORS      CORSConfig      `mapstructure:",squash"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
	MigrationsPath  string        `mapstructure:"MIGRATIONS_PATH"`
}

type RedisConfig struct {
	Host              string        `mapstructure:"REDIS_HOST"`
	Port              string        `mapstructure:"REDIS_PORT"`
	Password          string        `mapstructure:"REDIS_PASSWORD"`
	DB                int           `mapstructure:"REDIS_DB"`
	DirectoryCacheTTL time.Duration `mapstructure:"DIRECTORY_CACHE_TTL"`
}

type KafkaConfig struct {
	Brokers       string `mapstructure:"KAFKA_BROKERS"`
	ActivityTopic string `mapstructure:"ACTIVITY_TOPIC"`
}

type SchedulerConfig struct {
	Spec     string `mapstructure:"SCHEDULER_SPEC"`
	Timezone string `mapstructure:"SCHEDULER_TIMEZONE"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type BusinessConfig struct {
	DefaultInterestRate string        `mapstructure:"DEFAULT_INTEREST_RATE"`
	AccrualPeriod       time.Duration `mapstructure:"ACCRUAL_PERIOD"`
}

type HealthConfig struct {
	Timeout time.Duration `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

type CORSConfig struct {
	AllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

var defaults = map[string]interface{}{
	"SERVER_PORT":                "8080",
	"SERVER_HOST":                "0.0.0.0",
	"ENV":                        "development",
	"SERVER_READ_TIMEOUT":        "15s",
	"SERVER_WRITE_TIMEOUT":       "15s",
	"DATABASE_URL":               "",
	"DATABASE_MAX_OPEN_CONNS":    25,
	"DATABASE_MAX_IDLE_CONNS":    5,
	"DATABASE_CONN_MAX_LIFETIME": "5m",
	"MIGRATIONS_PATH":            "migrations",
	"REDIS_HOST":                 "localhost",
	"REDIS_PORT":                 "6379",
	"REDIS_PASSWORD":             "",
	"REDIS_DB":                   0,
	"DIRECTORY_CACHE_TTL":        "10m",
	"KAFKA_BROKERS":              "",
	"ACTIVITY_TOPIC":             "loan.activity",
	"SCHEDULER_SPEC":             "0 0 * * * *",
	"SCHEDULER_TIMEZONE":         "UTC",
	"LOG_LEVEL":                  "info",
	"LOG_FORMAT":                 "json",
	"DEFAULT_INTEREST_RATE":      "0.10",
	"ACCRUAL_PERIOD":             "24h",
	"HEALTH_CHECK_TIMEOUT":       "5s",
	"CORS_ALLOWED_ORIGINS":       "*",
}

// Load reads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	// Don't fail if .env file doesn't exist; real environment variables win
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Read from environment variables
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Business.AccrualPeriod <= 0 {
		return fmt.Errorf("ACCRUAL_PERIOD must be greater than 0")
	}

	if c.Redis.DirectoryCacheTTL < 0 {
		return fmt.Errorf("DIRECTORY_CACHE_TTL must not be negative")
	}

	// Validate interest rate
	rate, err := decimal.NewFromString(c.Business.DefaultInterestRate)
	if err != nil {
		return fmt.Errorf("DEFAULT_INTEREST_RATE must be a valid decimal: %w", err)
	}
	if rate.IsNegative() {
		return fmt.Errorf("DEFAULT_INTEREST_RATE must not be negative")
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid timezone: %w", err)
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetDefaultInterestRate returns the default interest rate as decimal
func (c *Config) GetDefaultInterestRate() decimal.Decimal {
	rate, _ := decimal.NewFromString(c.Business.DefaultInterestRate)
	return rate
}

// Addr returns the host:port the HTTP server listens on
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// Addr returns the host:port of the Redis server
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// GetBrokers returns the configured Kafka brokers; empty disables publishing
func (k KafkaConfig) GetBrokers() []string {
	return splitList(k.Brokers)
}

// GetAllowedOrigins returns the CORS allowed origins
func (c CORSConfig) GetAllowedOrigins() []string {
	return splitList(c.AllowedOrigins)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
