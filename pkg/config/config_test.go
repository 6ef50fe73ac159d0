package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "visitors-arrivals-staging-zone/", cfg.Pipeline.DestPrefix)
	assert.Equal(t, "visitors-arrivals-staging-zone-processed/", cfg.Pipeline.ProcessedPrefix)
	assert.Equal(t, "parquet", cfg.Pipeline.Sink)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
	assert.Equal(t, slog.LevelInfo, cfg.Log.SlogLevel())
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORAGE_TYPE", "s3")
	t.Setenv("S3_ENDPOINT", "minio:9000")
	t.Setenv("SRC_PATH", "s3://arrivals/staging/*.csv")
	t.Setenv("DISPATCH_RATE_PER_SECOND", "0.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("POSTGRES_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "minio:9000", cfg.Storage.S3Endpoint)
	assert.Equal(t, "s3://arrivals/staging/*.csv", cfg.Pipeline.SrcPath)
	assert.InDelta(t, 0.5, cfg.Pipeline.DispatchRate, 1e-9)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"s3 without endpoint", map[string]string{"STORAGE_TYPE": "s3"}, "S3_ENDPOINT is required"},
		{"unknown storage", map[string]string{"STORAGE_TYPE": "ftp"}, "STORAGE_TYPE"},
		{"unknown sink", map[string]string{"DATASET_SINK": "csv"}, "DATASET_SINK"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "arrivals", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=arrivals sslmode=disable", c.DSN())
}
