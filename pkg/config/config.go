// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/David-Botos/texture-ingress/pkg/dataset"
)

// Config represents the application configuration
type Config struct {
	// Database connections, loaded on first use
	snowflake *SnowflakeConfig
	postgres  *PostgresConfig

	// Output defaults applied to jobs that leave them unset
	OutputNAToken   string
	OutputPrecision int

	// Rows per INSERT statement for database exports
	InsertBatchSize int

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables. Named env files are
// required to exist; without any, ./.env is loaded when present. Variables already set in
// the process environment take precedence over file values.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			envFiles = []string{".env"}
		}
	}
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	cfg := &Config{
		OutputNAToken:   getEnv("OUTPUT_NA_TOKEN", "-999"),
		OutputPrecision: getEnvAsInt("OUTPUT_PRECISION", 5),
		InsertBatchSize: getEnvAsInt("INSERT_BATCH_SIZE", 1000),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OutputNAToken) == "" {
		return errors.New("output NA token cannot be empty")
	}

	if c.OutputPrecision < 0 || c.OutputPrecision > 17 {
		return errors.New("output precision must be between 0 and 17")
	}

	if c.InsertBatchSize <= 0 {
		return errors.New("insert batch size must be positive")
	}

	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported log format %q", c.LogFormat)
	}

	return nil
}

// WriteDefaults returns the output settings jobs start from
func (c *Config) WriteDefaults() dataset.WriteOptions {
	opts := dataset.DefaultWriteOptions()
	opts.NAToken = c.OutputNAToken
	opts.Precision = c.OutputPrecision
	return opts
}

// Postgres returns the PostgreSQL settings, reading them from the environment on first use
func (c *Config) Postgres() (*PostgresConfig, error) {
	if c.postgres == nil {
		pg, err := LoadPostgresConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load PostgreSQL configuration: %w", err)
		}
		c.postgres = pg
	}
	return c.postgres, nil
}

// Snowflake returns the Snowflake settings, reading them from the environment on first use
func (c *Config) Snowflake() (*SnowflakeConfig, error) {
	if c.snowflake == nil {
		sf, err := LoadSnowflakeConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load Snowflake configuration: %w", err)
		}
		c.snowflake = sf
	}
	return c.snowflake, nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
