package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tidbyt.dev/nexusmap"
	"tidbyt.dev/nexusmap/parse"
	"tidbyt.dev/nexusmap/render"
	"tidbyt.dev/nexusmap/storage"
)

// Environment variables overriding file values.
const (
	EnvCacheBackend = "NEXUSMAP_CACHE_BACKEND"
	EnvPostgresURL  = "NEXUSMAP_POSTGRES_URL"
	EnvLogLevel     = "NEXUSMAP_LOG_LEVEL"
)

// Default reproduces the fixed layout of the survey data: extracts
// and the OSM station extract under data/, maps written to maps/.
func Default() *Config {
	return &Config{
		DataDir:         nexusmap.DefaultDataDir,
		OutputDir:       nexusmap.DefaultOutputDir,
		FilePrefix:      nexusmap.DefaultFilePrefix,
		SparseThreshold: parse.DefaultSparseThreshold,
		LogLevel:        "info",
		Cache: CacheConfig{
			Backend: "file",
			Key:     storage.DefaultKey,
		},
		Map: MapConfig{
			ReferenceStation: render.DefaultReferenceStation,
			Zoom:             render.DefaultZoom,
			MarkerColor:      render.DefaultColor,
			FillColor:        render.DefaultFillColor,
		},
		Windows: WindowConfig{
			Start: nexusmap.DefaultFirstHour,
			End:   nexusmap.DefaultLastHour,
			Step:  nexusmap.DefaultWindowSize,
		},
	}
}

// Load reads configuration from a YAML file on top of Default(). An
// empty path skips the file. A .env file in the working directory,
// if present, is loaded before environment overrides are applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	_ = godotenv.Load()
	applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvCacheBackend); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv(EnvPostgresURL); v != "" {
		cfg.Cache.PostgresURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
}

// Location of the cache. Unless configured, the file backend caches
// to a single file under DataDir and sqlite to DataDir itself.
func (c *Config) CachePath() string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	if c.Cache.Backend == "sqlite" {
		return c.DataDir
	}
	return filepath.Join(c.DataDir, "nexus.cache")
}

// Location of the station registry. Unless configured, it is the OSM
// extract in DataDir.
func (c *Config) StationsPath() string {
	if c.StationsFile != "" {
		return c.StationsFile
	}
	return filepath.Join(c.DataDir, nexusmap.DefaultStationsFile)
}
