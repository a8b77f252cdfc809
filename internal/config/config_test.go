package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/bgilleran-port/port-tsm-scripts/internal/errors"
)

// chdir changes the working directory for the test, restoring it on
// cleanup. Stand-in for t.Chdir, which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })
}

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("PORT_CLIENT_ID", "test-client-id")
	t.Setenv("PORT_CLIENT_SECRET", "test-client-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setCredentials(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.getport.io", cfg.PortAPIURL)
	assert.Equal(t, "_user", cfg.Blueprint)
	assert.Equal(t, 30, cfg.DaysThreshold)
	assert.Equal(t, "user_backups", cfg.BackupDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DryRun)
	assert.False(t, cfg.MetricsEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	setCredentials(t)
	t.Setenv("PORT_API_URL", "https://port.example.com/")
	t.Setenv("DAYS_THRESHOLD", "7")
	t.Setenv("DRY_RUN", "true")
	t.Setenv("PUSHGATEWAY_URL", "http://pushgw:9091")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://port.example.com/", cfg.PortAPIURL)
	assert.Equal(t, 7, cfg.DaysThreshold)
	assert.True(t, cfg.DryRun)
	assert.True(t, cfg.MetricsEnabled())
}

func TestValidate_MissingCredentials(t *testing.T) {
	cfg := &Config{PortClientID: "", PortClientSecret: "secret"}
	assert.ErrorIs(t, cfg.Validate(), perrors.ErrMissingCredentials)

	cfg = &Config{PortClientID: "id", PortClientSecret: ""}
	assert.ErrorIs(t, cfg.Validate(), perrors.ErrMissingCredentials)

	cfg = &Config{PortClientID: "id", PortClientSecret: "secret"}
	assert.NoError(t, cfg.Validate())
}

func TestValidate_NegativeThreshold(t *testing.T) {
	cfg := &Config{PortClientID: "id", PortClientSecret: "secret", DaysThreshold: -1}
	assert.Error(t, cfg.Validate())
}

func TestLoadDotEnv_DoesNotOverrideProcessEnv(t *testing.T) {
	dir := t.TempDir()
	env := "PORT_CLIENT_ID=from-file\nPORT_CLIENT_SECRET=file-secret\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644))
	chdir(t, dir)

	t.Setenv("PORT_CLIENT_ID", "from-shell")
	t.Setenv("PORT_CLIENT_SECRET", "")
	os.Unsetenv("PORT_CLIENT_SECRET")

	LoadDotEnv(zerolog.Nop())

	// Shell export wins; the file only fills what was unset.
	assert.Equal(t, "from-shell", os.Getenv("PORT_CLIENT_ID"))
	assert.Equal(t, "file-secret", os.Getenv("PORT_CLIENT_SECRET"))
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	chdir(t, t.TempDir())
	// Must not error or alter the environment.
	LoadDotEnv(zerolog.Nop())
}
