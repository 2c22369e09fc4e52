package model

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

// Holds all external facing types and constants.

type Direction string

const (
	DirectionSource      Direction = "source"
	DirectionDestination Direction = "destination"
)

// Directions in the order artifacts are produced.
var Directions = []Direction{DirectionSource, DirectionDestination}

func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionSource, DirectionDestination:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown direction '%s'", s)
}

// A single survey response: someone boarding at Source and alighting
// at Destination at Time.
type Record struct {
	Time        time.Time
	Section     string
	Source      string
	Destination string
}

// Station name for the given direction.
func (r *Record) Station(d Direction) string {
	if d == DirectionDestination {
		return r.Destination
	}
	return r.Source
}

// An hour range [Start, End).
type Window struct {
	Start int
	End   int
}

func (w Window) Contains(t time.Time) bool {
	return w.Start <= t.Hour() && t.Hour() < w.End
}

func (w Window) String() string {
	return fmt.Sprintf("%d-%d", w.Start, w.End)
}

type Coordinates struct {
	Lat float64
	Lon float64
}

// orb uses [lon, lat] ordering.
func (c Coordinates) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

func CoordinatesFromPoint(p orb.Point) Coordinates {
	return Coordinates{Lat: p.Lat(), Lon: p.Lon()}
}

type DemandEntry struct {
	Station    string
	Count      int
	Percentage float64
	Size       float64
}

// Demand per station for one (window, direction) pair. Entries are
// sorted by station name.
type DemandTable struct {
	Window    Window
	Direction Direction
	Total     int
	Max       int
	Entries   []DemandEntry
}

func (t *DemandTable) Get(station string) (DemandEntry, bool) {
	for _, e := range t.Entries {
		if e.Station == station {
			return e, true
		}
	}
	return DemandEntry{}, false
}

// A rendered map file.
type Artifact struct {
	Direction Direction
	Window    Window
	Path      string
	Markers   int
	Skipped   []string
}

// File name for the artifact of a (direction, window) pair.
func ArtifactName(d Direction, w Window) string {
	return fmt.Sprintf("map_%s_%d-%d.html", d, w.Start, w.End)
}
