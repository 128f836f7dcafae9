package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(APIKeyEnv, "")

	cfg, err := Load("does-not-exist.yaml")

	require.NoError(t, err)
	want := Default()
	assert.Equal(t, &want, cfg)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(APIKeyEnv, " secret ")
	path := writeFile(t, dir, "config.yaml", `
LOG_LEVEL: debug
STORAGE_DRIVER: postgres
DB_HOST: localhost
DB_PORT: 5433
DB_NAME: taxdesk
KAFKA_BROKERS:
  - localhost:9092
AI_TEMPERATURE: 0.2
AI_TIMEOUT: 30s
FOLLOW_UP_DAYS: 3
MINIO_ENDPOINT: localhost:9000
MINIO_ACCESS_KEY: key
MINIO_SECRET_KEY: secret
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DriverPostgres, cfg.StorageDriver)
	assert.Equal(t, 5433, cfg.DBPort)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.InDelta(t, 0.2, cfg.AITemperature, 1e-6)
	assert.Equal(t, 30*time.Second, cfg.AITimeout)
	assert.Equal(t, 3, cfg.FollowUpDays)
	assert.Equal(t, "gemini-2.5-flash", cfg.AIModel, "unset keys keep defaults")
	assert.Equal(t, "secret", cfg.APIKey)
}

func TestLoad_APIKeyIgnoredInFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(APIKeyEnv, "")
	path := writeFile(t, dir, "config.yaml", "API_KEY: leaked\n")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Empty(t, cfg.APIKey)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, ".env", "API_KEY=from-dotenv\n")

	t.Run("fills unset variable", func(t *testing.T) {
		t.Setenv(APIKeyEnv, "")
		require.NoError(t, os.Unsetenv(APIKeyEnv))

		cfg, err := Load("")

		require.NoError(t, err)
		assert.Equal(t, "from-dotenv", cfg.APIKey)
	})

	t.Run("does not override environment", func(t *testing.T) {
		t.Setenv(APIKeyEnv, "from-env")

		cfg, err := Load("")

		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.APIKey)
	})
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "config.yaml", "FOLLOW_UP_DAYS: [not a number\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.StorageDriver = "mysql" }, wantErr: "unknown STORAGE_DRIVER"},
		{name: "empty sqlite path", mutate: func(c *Config) { c.SQLitePath = "" }, wantErr: "SQLITE_PATH"},
		{name: "postgres without host", mutate: func(c *Config) { c.StorageDriver = DriverPostgres; c.DBName = "taxdesk" }, wantErr: "DB_HOST"},
		{name: "zero follow-up", mutate: func(c *Config) { c.FollowUpDays = 0 }, wantErr: "FOLLOW_UP_DAYS"},
		{name: "zero timeout", mutate: func(c *Config) { c.AITimeout = 0 }, wantErr: "AI_TIMEOUT"},
		{name: "credentials without endpoint", mutate: func(c *Config) { c.MinIOAccessKey = "key" }, wantErr: "MINIO_ENDPOINT"},
		{name: "endpoint without credentials", mutate: func(c *Config) { c.MinIOEndpoint = "localhost:9000" }, wantErr: "MINIO_ACCESS_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
