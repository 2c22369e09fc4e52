package parse

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
	"github.com/spkg/bom"

	"tidbyt.dev/nexusmap/model"
)

type StationCSV struct {
	Name string  `csv:"name"`
	Lat  float64 `csv:"lat"`
	Lon  float64 `csv:"lon"`
}

// Loads a station registry. Files ending in .csv are read as
// name,lat,lon tables, anything else as an OSM XML extract.
func LoadStations(path string) (map[string]model.Coordinates, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		return ParseStationsCSV(f)
	}
	return ParseStations(f)
}

// Parses the nodes of an OSM XML extract. Nodes without a name tag
// are skipped. If several nodes share a name, the last one wins. Ways
// and relations are ignored.
func ParseStations(data io.Reader) (map[string]model.Coordinates, error) {
	scanner := osmxml.New(context.Background(), data)
	defer scanner.Close()

	stations := map[string]model.Coordinates{}
	for scanner.Scan() {
		node, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}

		name := node.Tags.Find("name")
		if name == "" {
			continue
		}

		stations[name] = model.Coordinates{Lat: node.Lat, Lon: node.Lon}
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scanning osm xml")
	}

	return stations, nil
}

func ParseStationsCSV(data io.Reader) (map[string]model.Coordinates, error) {
	rows := []*StationCSV{}
	if err := gocsv.UnmarshalCSV(gocsv.LazyCSVReader(bom.NewReader(data)), &rows); err != nil {
		return nil, errors.Wrap(err, "unmarshaling stations csv")
	}

	stations := map[string]model.Coordinates{}
	for _, row := range rows {
		if row.Name == "" {
			continue
		}
		stations[row.Name] = model.Coordinates{Lat: row.Lat, Lon: row.Lon}
	}

	return stations, nil
}
