package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidbyt.dev/nexusmap/model"
)

func stations() map[string]model.Coordinates {
	return map[string]model.Coordinates{
		"Monument": {Lat: 54.97387, Lon: -1.61318},
		"Hebburn":  {Lat: 54.9727, Lon: -1.5137},
		"Jesmond":  {Lat: 54.98333, Lon: -1.60583},
	}
}

func testRenderer(t *testing.T, dir string) (*Renderer, *test.Hook) {
	logger, hook := test.NewNullLogger()
	r := NewRenderer(Config{OutputDir: dir})
	r.Log = logger
	return r, hook
}

func TestRender(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "maps", "nested")
	r, hook := testRenderer(t, dir)

	table := &model.DemandTable{
		Window:    model.Window{Start: 6, End: 9},
		Direction: model.DirectionSource,
		Total:     4,
		Max:       3,
		Entries: []model.DemandEntry{
			{Station: "Airport", Count: 1, Percentage: 25, Size: 3 + 20.0/3},
			{Station: "Monument", Count: 3, Percentage: 75, Size: 23},
		},
	}

	artifact, err := r.Render(table, stations())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "map_source_6-9.html"), artifact.Path)
	assert.Equal(t, 1, artifact.Markers)
	assert.Equal(t, []string{"Airport"}, artifact.Skipped)
	assert.Equal(t, model.DirectionSource, artifact.Direction)

	buf, err := os.ReadFile(artifact.Path)
	require.NoError(t, err)
	html := string(buf)

	assert.Contains(t, html, "Monument (75.0%)")
	assert.NotContains(t, html, "Airport")
	assert.Equal(t, 1, strings.Count(html, "L.circleMarker("))
	assert.Regexp(t, `radius:\s*23\s*,`, html)
	assert.Regexp(t, `center: \[\s*54\.9727\s*,\s*-1\.5137\s*\]`, html)
	assert.Regexp(t, `zoom:\s*12\s*}`, html)
	assert.Contains(t, html, `"black"`)
	assert.Contains(t, html, `"red"`)

	require.Equal(t, 2, len(hook.AllEntries()))
	assert.Equal(t, 1, hook.AllEntries()[0].Data["skipped"])
}

func TestRenderEmptyTable(t *testing.T) {
	dir := t.TempDir()
	r, hook := testRenderer(t, dir)

	artifact, err := r.Render(&model.DemandTable{
		Window:    model.Window{Start: 21, End: 24},
		Direction: model.DirectionDestination,
		Entries:   []model.DemandEntry{},
	}, stations())
	require.NoError(t, err)

	assert.Equal(t, 0, artifact.Markers)
	assert.Equal(t, 0, len(artifact.Skipped))

	buf, err := os.ReadFile(filepath.Join(dir, "map_destination_21-24.html"))
	require.NoError(t, err)
	assert.Equal(t, 0, strings.Count(string(buf), "L.circleMarker("))
	assert.Contains(t, string(buf), "L.map(")

	// No skip warning, just the write
	assert.Equal(t, 1, len(hook.AllEntries()))
}

func TestRenderOverwrites(t *testing.T) {
	dir := t.TempDir()
	r, _ := testRenderer(t, dir)

	table := &model.DemandTable{
		Window:    model.Window{Start: 6, End: 9},
		Direction: model.DirectionSource,
		Entries:   []model.DemandEntry{{Station: "Jesmond", Count: 1, Percentage: 100, Size: 23}},
	}
	_, err := r.Render(table, stations())
	require.NoError(t, err)

	table.Entries = []model.DemandEntry{{Station: "Monument", Count: 1, Percentage: 100, Size: 23}}
	_, err = r.Render(table, stations())
	require.NoError(t, err)

	buf, err := os.ReadFile(filepath.Join(dir, "map_source_6-9.html"))
	require.NoError(t, err)
	assert.Contains(t, string(buf), "Monument (100.0%)")
	assert.NotContains(t, string(buf), "Jesmond")
}

func TestRenderUnwritable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	r, _ := testRenderer(t, file)
	_, err := r.Render(&model.DemandTable{Direction: model.DirectionSource}, stations())
	assert.Error(t, err)
}

func TestRenderEscapesNames(t *testing.T) {
	dir := t.TempDir()
	r, _ := testRenderer(t, dir)

	s := stations()
	s[`<script>alert("x")</script>`] = model.Coordinates{Lat: 1, Lon: 2}
	_, err := r.Render(&model.DemandTable{
		Direction: model.DirectionSource,
		Window:    model.Window{Start: 6, End: 9},
		Entries:   []model.DemandEntry{{Station: `<script>alert("x")</script>`, Count: 1, Percentage: 100, Size: 23}},
	}, s)
	require.NoError(t, err)

	buf, err := os.ReadFile(filepath.Join(dir, "map_source_6-9.html"))
	require.NoError(t, err)
	assert.NotContains(t, string(buf), `<script>alert`)
}

func TestCenter(t *testing.T) {
	r := NewRenderer(Config{})
	assert.Equal(t, stations()["Hebburn"], r.Center(stations()))

	r = NewRenderer(Config{ReferenceStation: "Nowhere"})
	c := r.Center(map[string]model.Coordinates{
		"a": {Lat: 54.0, Lon: -2.0},
		"b": {Lat: 55.0, Lon: -1.0},
	})
	assert.InDelta(t, 54.5, c.Lat, 1e-9)
	assert.InDelta(t, -1.5, c.Lon, 1e-9)

	assert.Equal(t, model.Coordinates{}, r.Center(nil))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Monument (66.7%)", Label(model.DemandEntry{Station: "Monument", Percentage: 200.0 / 3}))
	assert.Equal(t, "Jesmond (100.0%)", Label(model.DemandEntry{Station: "Jesmond", Percentage: 100}))
	assert.Equal(t, "Pelaw (0.1%)", Label(model.DemandEntry{Station: "Pelaw", Percentage: 0.05}))
}
