package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tidbyt.dev/nexusmap"
	"tidbyt.dev/nexusmap/config"
	"tidbyt.dev/nexusmap/render"
	"tidbyt.dev/nexusmap/storage"
)

var rootCmd = &cobra.Command{
	Use:          "nexusmap",
	Short:        "Metro demand maps",
	Long:         "Renders boarding and alighting demand per metro station from Nexus survey data",
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         renderMaps,
}

var (
	configPath string
	dataDir    string
	outputDir  string
	logLevel   string
	refresh    bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "", "", "Directory holding survey extracts")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", "", "Directory maps are written to")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "", "", "Log level (debug, info, warn, ...)")
	rootCmd.PersistentFlags().BoolVarP(&refresh, "refresh", "", false, "Ignore the survey cache and parse extracts again")
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(stationsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// InitLogger Receives the log level to be set in logrus as a string. If
// the level string is not valid an error is returned.
func InitLogger(level string) error {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}

	logrus.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})
	logrus.SetLevel(parsed)
	return nil
}

// Loads config and applies command line overrides.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	if err := InitLogger(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	return cfg, nil
}

// Opens the configured cache. Returns nil if caching is disabled.
func OpenStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.Cache.Backend {
	case "none":
		return nil, nil
	case "sqlite":
		return storage.NewSQLiteStorage(storage.SQLiteConfig{OnDisk: true, Directory: cfg.CachePath()})
	case "postgres":
		return storage.NewPSQLStorage(cfg.Cache.PostgresURL, false)
	}
	return storage.NewFileStorage(cfg.CachePath()), nil
}

func BuildPipeline(cfg *config.Config) (*nexusmap.Pipeline, error) {
	windows, err := nexusmap.Windows(cfg.Windows.Start, cfg.Windows.End, cfg.Windows.Step)
	if err != nil {
		return nil, err
	}

	// An unusable cache only costs a re-parse.
	s, err := OpenStorage(cfg)
	if err != nil {
		logrus.Warnf("survey cache disabled: %v", err)
		s = nil
	}

	p := nexusmap.NewPipeline(s, cfg.OutputDir)
	p.DataDir = cfg.DataDir
	p.FilePrefix = cfg.FilePrefix
	p.StationsFile = cfg.StationsPath()
	p.SparseThreshold = cfg.SparseThreshold
	p.Windows = windows
	p.CacheKey = cfg.Cache.Key
	p.Refresh = refresh
	p.Renderer = render.NewRenderer(render.Config{
		OutputDir:        cfg.OutputDir,
		ReferenceStation: cfg.Map.ReferenceStation,
		Zoom:             cfg.Map.Zoom,
		Color:            cfg.Map.MarkerColor,
		FillColor:        cfg.Map.FillColor,
		TileURL:          cfg.Map.TileURL,
		Attribution:      cfg.Map.Attribution,
	})

	return p, nil
}
