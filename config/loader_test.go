package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// Runs in a directory without a .env file.
func chdirTemp(t *testing.T) {
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(orig) })
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, filepath.Join("data", "nexus.cache"), cfg.CachePath())
	assert.Equal(t, filepath.Join("data", "metro_stations.xml"), cfg.StationsPath())
	assert.Equal(t, "Hebburn", cfg.Map.ReferenceStation)
	assert.Equal(t, WindowConfig{Start: 6, End: 24, Step: 3}, cfg.Windows)
}

func TestLoadFile(t *testing.T) {
	chdirTemp(t)

	path := writeConfig(t, `
data_dir: /srv/nexus
output_dir: /srv/maps
cache:
  backend: sqlite
map:
  reference_station: Monument
  zoom: 13
windows:
  start: 5
  end: 23
  step: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/nexus", cfg.DataDir)
	assert.Equal(t, "/srv/maps", cfg.OutputDir)
	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	assert.Equal(t, "/srv/nexus", cfg.CachePath())
	assert.Equal(t, "Monument", cfg.Map.ReferenceStation)
	assert.Equal(t, 13, cfg.Map.Zoom)
	assert.Equal(t, WindowConfig{Start: 5, End: 23, Step: 2}, cfg.Windows)

	// Untouched values keep defaults
	assert.Equal(t, "Metro", cfg.FilePrefix)
	assert.Equal(t, "red", cfg.Map.FillColor)
	assert.Equal(t, 0.95, cfg.SparseThreshold)
}

func TestLoadDataDirMovesInputs(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load(writeConfig(t, "data_dir: /srv/nexus\n"))
	require.NoError(t, err)
	assert.Equal(t, "/srv/nexus", cfg.DataDir)
	assert.Equal(t, filepath.Join("/srv/nexus", "nexus.cache"), cfg.CachePath())
	assert.Equal(t, filepath.Join("/srv/nexus", "metro_stations.xml"), cfg.StationsPath())

	// An explicit registry is used as is.
	cfg, err = Load(writeConfig(t, "data_dir: /srv/nexus\nstations_file: /etc/nexus/stations.csv\n"))
	require.NoError(t, err)
	assert.Equal(t, "/etc/nexus/stations.csv", cfg.StationsPath())
}

func TestLoadEnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv(EnvCacheBackend, "postgres")
	t.Setenv(EnvPostgresURL, "postgres://localhost/nexus")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Cache.Backend)
	assert.Equal(t, "postgres://localhost/nexus", cfg.Cache.PostgresURL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadDotEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv(EnvLogLevel, "")
	require.NoError(t, os.Unsetenv(EnvLogLevel))
	require.NoError(t, os.WriteFile(".env", []byte(EnvLogLevel+"=warn\n"), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadInvalid(t *testing.T) {
	chdirTemp(t)

	for name, content := range map[string]string{
		"unknown backend":      "cache:\n  backend: redis\n",
		"postgres without url": "cache:\n  backend: postgres\n",
		"zoom out of range":    "map:\n  zoom: 40\n",
		"empty window range":   "windows:\n  start: 12\n  end: 12\n",
		"zero step":            "windows:\n  step: 0\n",
		"threshold above one":  "sparse_threshold: 1.5\n",
		"bad log level":        "log_level: chatty\n",
		"empty data dir":       "data_dir: \"\"\n",
		"not yaml":             "data_dir: [unterminated\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	chdirTemp(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestCachePath(t *testing.T) {
	cfg := Default()
	cfg.Cache.Path = "/tmp/explicit"
	assert.Equal(t, "/tmp/explicit", cfg.CachePath())
}
