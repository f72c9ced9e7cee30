package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, int64(32), cfg.Server.MaxUploadMB)
	assert.Equal(t, "relatorios.db", cfg.Database.Path)
	assert.Equal(t, "uploads", cfg.Storage.UploadDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.PDF.UTF8Font)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  path: /data/r.db\nstorage:\n  upload_dir: /data/fotos\n"), 0o644))
	t.Setenv("RELATORIOS_STORAGE_UPLOAD_DIR", "/srv/fotos")
	t.Setenv("RELATORIOS_PDF_UTF8_FONT", "/usr/share/fonts/DejaVuSans.ttf")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/r.db", cfg.Database.Path)
	assert.Equal(t, "/srv/fotos", cfg.Storage.UploadDir)
	assert.Equal(t, "/usr/share/fonts/DejaVuSans.ttf", cfg.PDF.UTF8Font)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveUploadLimit(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("RELATORIOS_SERVER_MAX_UPLOAD_MB", "0")

	_, err := Load("")
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test
// (stand-in for testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
