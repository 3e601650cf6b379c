// ABOUTME: Tests for configuration layering
// ABOUTME: Defaults, config file, .env and environment precedence

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/harperreed/crmlite/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"CRMLITE_DB_DRIVER", "CRMLITE_DB_PATH", "DATABASE_URL",
		"CRMLITE_UPLOAD_DIR", "CRMLITE_ADDR", "CRMLITE_LOG_LEVEL",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := LoadFrom(dir, "")
	require.NoError(t, err)
	assert.Equal(t, db.DriverSQLite, cfg.DBDriver)
	assert.Equal(t, filepath.Join(dir, "crm.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(dir, "uploads"), cfg.UploadDir)
	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Equal(t, cfg.DBPath, cfg.DSN())
}

func TestLoadMissingEnvFileIsFine(t *testing.T) {
	clearEnv(t)
	_, err := LoadFrom(t.TempDir(), filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestConfigFileThenEnvironment(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	saved := Default(dir)
	saved.Addr = ":9000"
	saved.UploadDir = "/srv/uploads"
	require.NoError(t, saved.Save())

	cfg, err := LoadFrom(dir, "")
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "/srv/uploads", cfg.UploadDir)

	t.Setenv("CRMLITE_ADDR", ":7000")
	cfg, err = LoadFrom(dir, "")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, "/srv/uploads", cfg.UploadDir)
}

func TestEnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv only fills variables that are unset, and clearEnv sets them empty.
	for _, name := range []string{"CRMLITE_DB_DRIVER", "DATABASE_URL", "CRMLITE_LOG_LEVEL"} {
		require.NoError(t, os.Unsetenv(name))
	}
	t.Cleanup(func() {
		for _, name := range []string{"CRMLITE_DB_DRIVER", "DATABASE_URL", "CRMLITE_LOG_LEVEL"} {
			_ = os.Unsetenv(name)
		}
	})

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"CRMLITE_DB_DRIVER=pgx\nDATABASE_URL=postgres://crm@localhost/crm\nCRMLITE_LOG_LEVEL=debug\n",
	), 0600))

	cfg, err := LoadFrom(t.TempDir(), envFile)
	require.NoError(t, err)
	assert.Equal(t, db.DriverPostgres, cfg.DBDriver)
	assert.Equal(t, "postgres://crm@localhost/crm", cfg.DSN())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	cfg := Default(t.TempDir())
	assert.NoError(t, cfg.Validate())

	cfg.DBDriver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg.DBDriver = db.DriverPostgres
	assert.Error(t, cfg.Validate())
	cfg.DatabaseURL = "postgres://localhost/crm"
	assert.NoError(t, cfg.Validate())

	cfg.LogLevel = "loud"
	assert.Error(t, cfg.Validate())
}

func TestLogger(t *testing.T) {
	cfg := Default(t.TempDir())
	cfg.LogLevel = "warn"

	var buf bytes.Buffer
	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), AppName)
}
