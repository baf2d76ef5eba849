package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, 100, cfg.Import.DefaultChunkSize)
	assert.Equal(t, int64(10<<20), cfg.Import.MaxFileSize)
	assert.Equal(t, 15*time.Minute, cfg.Sweeper.StuckAfter)
	assert.Equal(t, "import-service", cfg.Telemetry.ServiceName)
	assert.Same(t, cfg, Get())

	opts := cfg.Import.Options()
	assert.Equal(t, 10, opts.MinChunkSize)
	assert.Equal(t, 500, opts.MaxChunkSize)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
import:
  default_chunk_size: 250
worker:
  concurrency: 4
  poll_delay: 250ms
`), 0o644))

	t.Setenv("IMPORT_SERVICE_LOGGING_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://localhost/imports")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 250, cfg.Import.DefaultChunkSize)
	assert.Equal(t, 4, cfg.Worker.Concurrency)
	assert.Equal(t, 250*time.Millisecond, cfg.Worker.PollDelay)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "postgres://localhost/imports", cfg.Database.URL)
}

func TestLoad_InvalidLimits(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"default chunk above max", "import:\n  default_chunk_size: 900\n"},
		{"min above max", "import:\n  min_chunk_size: 600\n"},
		{"no file size", "import:\n  max_file_size: 0\n"},
		{"unknown storage", "storage:\n  type: s3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			_, err := Load(path)
			assert.ErrorContains(t, err, "invalid config")
		})
	}
}

func TestLoadDotEnvFile_KeepsExistingVars(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nIMPORT_TEST_A=\"from-file\"\nIMPORT_TEST_B=file\nbroken line\n"), 0o644))
	t.Setenv("IMPORT_TEST_B", "from-env")
	t.Setenv("IMPORT_TEST_A", "")
	os.Unsetenv("IMPORT_TEST_A")

	require.NoError(t, loadDotEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("IMPORT_TEST_A"))
	assert.Equal(t, "from-env", os.Getenv("IMPORT_TEST_B"))
	os.Unsetenv("IMPORT_TEST_A")
}
