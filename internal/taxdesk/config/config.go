// Package config loads the YAML configuration file and the AI credential.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// APIKeyEnv names the environment variable holding the AI credential.
	APIKeyEnv = "API_KEY"
)

// Config struct for YAML configuration
type Config struct {
	LogLevel      string        `yaml:"LOG_LEVEL"`
	StorageDriver string        `yaml:"STORAGE_DRIVER"`
	SQLitePath    string        `yaml:"SQLITE_PATH"`
	DBHost        string        `yaml:"DB_HOST"`
	DBPort        int           `yaml:"DB_PORT"`
	DBUser        string        `yaml:"DB_USER"`
	DBPassword    string        `yaml:"DB_PASSWORD"`
	DBName        string        `yaml:"DB_NAME"`
	DBSSLMode     string        `yaml:"DB_SSLMODE"`
	KafkaBrokers  []string      `yaml:"KAFKA_BROKERS"`
	Topic         string        `yaml:"TOPIC"`
	AIModel       string        `yaml:"AI_MODEL"`
	AITemperature float32       `yaml:"AI_TEMPERATURE"`
	AITimeout     time.Duration `yaml:"AI_TIMEOUT"`
	FollowUpDays  int           `yaml:"FOLLOW_UP_DAYS"`
	ReportDir     string        `yaml:"REPORT_DIR"`
	ReportFont    string        `yaml:"REPORT_FONT"`

	MinIOEndpoint  string `yaml:"MINIO_ENDPOINT"`
	MinIOAccessKey string `yaml:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `yaml:"MINIO_SECRET_KEY"`
	MinIORegion    string `yaml:"MINIO_REGION"`
	MinIOUseSSL    bool   `yaml:"MINIO_USE_SSL"`
	MinIOBucket    string `yaml:"MINIO_BUCKET"`

	// APIKey is read from the environment, never from the file.
	APIKey string `yaml:"-"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		LogLevel:      "warn",
		StorageDriver: DriverSQLite,
		SQLitePath:    "data/taxdesk.db",
		DBPort:        5432,
		DBSSLMode:     "disable",
		Topic:         "taxdesk.actions",
		AIModel:       "gemini-2.5-flash",
		AITemperature: 0.5,
		AITimeout:     60 * time.Second,
		FollowUpDays:  7,
		ReportDir:     "reports",
		MinIORegion:   "us-east-1",
		MinIOBucket:   "reports",
	}
}

// Load reads the file at path over the defaults. A missing file is not an
// error. A .env file in the working directory is loaded first without
// overriding variables already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(file, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}
	cfg.APIKey = strings.TrimSpace(os.Getenv(APIKeyEnv))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DBHost == "" || c.DBName == "" {
			return errors.New("DB_HOST and DB_NAME are required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.FollowUpDays <= 0 {
		return fmt.Errorf("FOLLOW_UP_DAYS must be positive, got %d", c.FollowUpDays)
	}
	if c.AITimeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT must be positive, got %s", c.AITimeout)
	}
	if c.MinIOEndpoint == "" && (c.MinIOAccessKey != "" || c.MinIOSecretKey != "") {
		return errors.New("MINIO_ENDPOINT is required when MinIO credentials are set")
	}
	if c.MinIOEndpoint != "" && (c.MinIOAccessKey == "" || c.MinIOSecretKey == "") {
		return errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required with MINIO_ENDPOINT")
	}
	return nil
}
