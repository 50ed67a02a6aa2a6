package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/notely?sslmode=disable")
	t.Setenv("SUPABASE_JWT_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "keep", cfg.RestorePositionPolicy)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
	assert.True(t, cfg.IsDevelopment())

	db := cfg.GetDatabaseConfig()
	assert.Equal(t, cfg.DatabaseURL, db.URL)
	assert.Equal(t, 25, db.MaxOpenConns)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_DRIVER", "SQLite")
	t.Setenv("RESTORE_POSITION_POLICY", "append")
	t.Setenv("LOCK_WAIT", "2s")
	t.Setenv("PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "append", cfg.RestorePositionPolicy)
	assert.Equal(t, 2*time.Second, cfg.LockWait)
	assert.Equal(t, 8080, cfg.Port, "unparsable values fall back to the default")
}

func TestValidate(t *testing.T) {
	cases := map[string]map[string]string{
		"missing database url": {"DATABASE_URL": ""},
		"missing jwt secret":   {"SUPABASE_JWT_SECRET": ""},
		"bad driver":           {"DATABASE_DRIVER": "mysql"},
		"bad restore policy":   {"RESTORE_POSITION_POLICY": "front"},
		"bad log level":        {"LOG_LEVEL": "trace"},
		"port clash":           {"PORT": "9090"},
		"s3 without keys":      {"S3_ENDPOINT": "localhost:9000"},
		"tls without files":    {"TLS_ENABLED": "true", "TLS_CERT_FILE": "/nonexistent.crt"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
