package config

// CacheConfig selects where parsed survey records are cached
type CacheConfig struct {
	Backend     string `yaml:"backend" validate:"oneof=file sqlite postgres none"`
	Path        string `yaml:"path"`
	Key         string `yaml:"key" validate:"required"`
	PostgresURL string `yaml:"postgres_url" validate:"required_if=Backend postgres"`
}

// MapConfig controls how artifacts look
type MapConfig struct {
	ReferenceStation string `yaml:"reference_station" validate:"required"`
	Zoom             int    `yaml:"zoom" validate:"gte=1,lte=18"`
	MarkerColor      string `yaml:"marker_color" validate:"required"`
	FillColor        string `yaml:"fill_color" validate:"required"`
	TileURL          string `yaml:"tile_url"`
	Attribution      string `yaml:"attribution"`
}

// WindowConfig describes the service day schedule, as range(start, end, step)
type WindowConfig struct {
	Start int `yaml:"start" validate:"gte=0,lte=23"`
	End   int `yaml:"end" validate:"gtfield=Start,lte=24"`
	Step  int `yaml:"step" validate:"gte=1,lte=24"`
}

// Config is the root configuration structure
type Config struct {
	DataDir         string       `yaml:"data_dir" validate:"required"`
	OutputDir       string       `yaml:"output_dir" validate:"required"`
	FilePrefix      string       `yaml:"file_prefix" validate:"required"`
	StationsFile    string       `yaml:"stations_file"`
	SparseThreshold float64      `yaml:"sparse_threshold" validate:"gte=0,lte=1"`
	LogLevel        string       `yaml:"log_level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Cache           CacheConfig  `yaml:"cache"`
	Map             MapConfig    `yaml:"map"`
	Windows         WindowConfig `yaml:"windows"`
}
