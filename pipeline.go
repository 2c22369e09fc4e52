package nexusmap

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"tidbyt.dev/nexusmap/model"
	"tidbyt.dev/nexusmap/parse"
	"tidbyt.dev/nexusmap/render"
	"tidbyt.dev/nexusmap/storage"
)

const (
	DefaultDataDir      = "data"
	DefaultOutputDir    = "maps"
	DefaultFilePrefix   = "Metro"
	DefaultStationsFile = "metro_stations.xml"
)

// Pipeline turns survey extracts and a station registry into one
// demand map per (direction, window) pair.
type Pipeline struct {
	DataDir         string
	FilePrefix      string
	StationsFile    string // DefaultStationsFile in DataDir if empty
	SparseThreshold float64
	Windows         []model.Window
	Directions      []model.Direction

	// Parsed records are cached under CacheKey in Storage. A nil
	// Storage disables caching. Refresh ignores any cached copy.
	Storage  storage.Storage
	CacheKey string
	Refresh  bool

	Renderer *render.Renderer
	Log      logrus.FieldLogger
}

// Creates a Pipeline reading from the default data directory and
// writing maps to outputDir. Records are cached in s, which may be
// nil.
func NewPipeline(s storage.Storage, outputDir string) *Pipeline {
	return &Pipeline{
		DataDir:         DefaultDataDir,
		FilePrefix:      DefaultFilePrefix,
		SparseThreshold: parse.DefaultSparseThreshold,
		Windows:         DefaultWindows(),
		Directions:      model.Directions,
		Storage:         s,
		CacheKey:        storage.DefaultKey,
		Renderer:        render.NewRenderer(render.Config{OutputDir: outputDir}),
		Log:             logrus.StandardLogger(),
	}
}

// Loads survey records, from cache if possible. On a cache miss the
// raw extracts are parsed and the result is written back to the
// cache. Failing to write the cache is an error.
func (p *Pipeline) LoadRecords() ([]model.Record, error) {
	if p.Storage != nil && !p.Refresh {
		records, err := p.Storage.LoadRecords(p.CacheKey)
		if err == nil {
			p.Log.WithField("records", len(records)).Info("loaded survey from cache")
			return records, nil
		}
		if errors.Is(err, storage.ErrCacheMiss) {
			p.Log.Infof("survey cache unavailable, parsing extracts: %v", err)
		} else {
			p.Log.Warnf("reading survey cache failed, parsing extracts: %v", err)
		}
	}

	records, stats, err := parse.ParseSurvey(p.DataDir, p.FilePrefix, p.SparseThreshold)
	if err != nil {
		return nil, fmt.Errorf("parsing survey: %w", err)
	}

	p.Log.WithFields(logrus.Fields{
		"files":   len(stats.Files),
		"rows":    stats.Rows,
		"kept":    stats.Kept,
		"dropped": stats.Dropped,
		"unnamed": stats.Unnamed,
	}).Info("parsed survey extracts")
	if stats.Unnamed > 0 {
		p.Log.WithField("unnamed", stats.Unnamed).Warn("records without a source or destination station")
	}
	if len(stats.DroppedColumns) > 0 {
		p.Log.Debugf("dropped sparse columns: %v", stats.DroppedColumns)
	}

	if p.Storage != nil {
		err = p.Storage.WriteRecords(p.CacheKey, records)
		if err != nil {
			return nil, fmt.Errorf("writing survey cache: %w", err)
		}
	}

	return records, nil
}

func (p *Pipeline) LoadStations() (map[string]model.Coordinates, error) {
	stations, err := parse.LoadStations(p.stationsPath())
	if err != nil {
		return nil, fmt.Errorf("loading stations: %w", err)
	}
	p.Log.WithField("stations", len(stations)).Info("loaded station coordinates")
	return stations, nil
}

func (p *Pipeline) stationsPath() string {
	if p.StationsFile != "" {
		return p.StationsFile
	}
	return filepath.Join(p.DataDir, DefaultStationsFile)
}

// Run loads both inputs once, then aggregates and renders every
// (direction, window) pair in order.
func (p *Pipeline) Run() ([]*model.Artifact, error) {
	records, err := p.LoadRecords()
	if err != nil {
		return nil, err
	}

	stations, err := p.LoadStations()
	if err != nil {
		return nil, err
	}

	return p.RenderAll(records, stations)
}

func (p *Pipeline) RenderAll(records []model.Record, stations map[string]model.Coordinates) ([]*model.Artifact, error) {
	artifacts := []*model.Artifact{}
	for _, direction := range p.Directions {
		for _, window := range p.Windows {
			table := Aggregate(records, window, direction)
			artifact, err := p.Renderer.Render(table, stations)
			if err != nil {
				return nil, fmt.Errorf("rendering %s %s: %w", direction, window, err)
			}
			artifacts = append(artifacts, artifact)
		}
	}

	return artifacts, nil
}

// Stations referenced by records, in either direction, that have no
// entry in stations. Sorted by name.
func MissingStations(records []model.Record, stations map[string]model.Coordinates) []string {
	missing := map[string]bool{}
	for i := range records {
		for _, d := range model.Directions {
			name := records[i].Station(d)
			if name == "" {
				continue
			}
			if _, found := stations[name]; !found {
				missing[name] = true
			}
		}
	}

	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
