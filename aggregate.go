package nexusmap

import (
	"sort"

	"tidbyt.dev/nexusmap/model"
)

const (
	MinMarkerSize   = 3.0
	MarkerSizeRange = 20.0
)

// Counts records surveyed within the window, grouped by the station
// of the given direction. Each entry carries its share of the window
// total in percent, and a marker size scaled linearly from
// MinMarkerSize (no demand) to MinMarkerSize+MarkerSizeRange (the
// busiest station).
//
// Records without a station for the direction are not counted. A
// window without records yields a table with no entries.
func Aggregate(records []model.Record, window model.Window, direction model.Direction) *model.DemandTable {
	table := &model.DemandTable{
		Window:    window,
		Direction: direction,
		Entries:   []model.DemandEntry{},
	}

	counts := map[string]int{}
	for i := range records {
		if !window.Contains(records[i].Time) {
			continue
		}
		station := records[i].Station(direction)
		if station == "" {
			continue
		}
		counts[station]++
		table.Total++
	}

	for station, count := range counts {
		if count > table.Max {
			table.Max = count
		}
		table.Entries = append(table.Entries, model.DemandEntry{
			Station: station,
			Count:   count,
		})
	}

	for i := range table.Entries {
		count := float64(table.Entries[i].Count)
		table.Entries[i].Percentage = 100 * count / float64(table.Total)
		table.Entries[i].Size = MinMarkerSize + MarkerSizeRange*count/float64(table.Max)
	}

	sort.Slice(table.Entries, func(i, j int) bool {
		return table.Entries[i].Station < table.Entries[j].Station
	})

	return table
}
