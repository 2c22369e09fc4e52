package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html"
	"html/template"
	"os"
	"path/filepath"
	"sort"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"tidbyt.dev/nexusmap/model"
)

const (
	DefaultReferenceStation = "Hebburn"
	DefaultZoom             = 12
	DefaultColor            = "black"
	DefaultFillColor        = "red"
	DefaultTileURL          = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultAttribution      = "Data by &copy; OpenStreetMap contributors"
	DefaultLeafletJS        = "https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"
	DefaultLeafletCSS       = "https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"
)

//go:embed map.html.tmpl
var mapTemplateSource string

var mapTemplate = template.Must(template.New("map").Parse(mapTemplateSource))

type Config struct {
	OutputDir        string
	ReferenceStation string
	Zoom             int
	Color            string
	FillColor        string
	TileURL          string
	Attribution      string
	LeafletJS        string
	LeafletCSS       string
}

// Renderer writes one Leaflet map per demand table.
type Renderer struct {
	Config
	Log logrus.FieldLogger
}

func NewRenderer(cfg Config) *Renderer {
	if cfg.ReferenceStation == "" {
		cfg.ReferenceStation = DefaultReferenceStation
	}
	if cfg.Zoom == 0 {
		cfg.Zoom = DefaultZoom
	}
	if cfg.Color == "" {
		cfg.Color = DefaultColor
	}
	if cfg.FillColor == "" {
		cfg.FillColor = DefaultFillColor
	}
	if cfg.TileURL == "" {
		cfg.TileURL = DefaultTileURL
	}
	if cfg.Attribution == "" {
		cfg.Attribution = DefaultAttribution
	}
	if cfg.LeafletJS == "" {
		cfg.LeafletJS = DefaultLeafletJS
	}
	if cfg.LeafletCSS == "" {
		cfg.LeafletCSS = DefaultLeafletCSS
	}

	return &Renderer{
		Config: cfg,
		Log:    logrus.StandardLogger(),
	}
}

type marker struct {
	Lat    float64
	Lon    float64
	Radius float64
	Popup  string
}

type page struct {
	Title       string
	Center      model.Coordinates
	Zoom        int
	Color       string
	FillColor   string
	TileURL     string
	Attribution string
	LeafletJS   string
	LeafletCSS  string
	Markers     []marker
}

// Popup text for a station, e.g. "Monument (12.5%)".
func Label(entry model.DemandEntry) string {
	return fmt.Sprintf("%s (%.1f%%)", entry.Station, entry.Percentage)
}

// Centre of the map: the reference station if known, otherwise the
// centre of the bounding box of all stations.
func (r *Renderer) Center(stations map[string]model.Coordinates) model.Coordinates {
	if c, found := stations[r.ReferenceStation]; found {
		return c
	}

	if len(stations) == 0 {
		return model.Coordinates{}
	}

	names := make([]string, 0, len(stations))
	for name := range stations {
		names = append(names, name)
	}
	sort.Strings(names)

	points := make(orb.MultiPoint, 0, len(names))
	for _, name := range names {
		points = append(points, stations[name].Point())
	}

	return model.CoordinatesFromPoint(points.Bound().Center())
}

// Writes the map for table into OutputDir, creating the directory if
// needed. Stations without coordinates are left off the map and
// listed in the returned artifact.
func (r *Renderer) Render(table *model.DemandTable, stations map[string]model.Coordinates) (*model.Artifact, error) {
	artifact := &model.Artifact{
		Direction: table.Direction,
		Window:    table.Window,
		Path:      filepath.Join(r.OutputDir, model.ArtifactName(table.Direction, table.Window)),
		Skipped:   []string{},
	}

	p := page{
		Title:       fmt.Sprintf("Metro demand by %s, %02d:00 to %02d:00", table.Direction, table.Window.Start, table.Window.End),
		Center:      r.Center(stations),
		Zoom:        r.Zoom,
		Color:       r.Color,
		FillColor:   r.FillColor,
		TileURL:     r.TileURL,
		Attribution: r.Attribution,
		LeafletJS:   r.LeafletJS,
		LeafletCSS:  r.LeafletCSS,
		Markers:     []marker{},
	}

	for _, entry := range table.Entries {
		c, found := stations[entry.Station]
		if !found {
			artifact.Skipped = append(artifact.Skipped, entry.Station)
			continue
		}
		p.Markers = append(p.Markers, marker{
			Lat:    c.Lat,
			Lon:    c.Lon,
			Radius: entry.Size,
			Popup:  html.EscapeString(Label(entry)),
		})
	}
	artifact.Markers = len(p.Markers)

	buf := &bytes.Buffer{}
	err := mapTemplate.Execute(buf, p)
	if err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}

	err = os.MkdirAll(r.OutputDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", r.OutputDir, err)
	}

	err = os.WriteFile(artifact.Path, buf.Bytes(), 0644)
	if err != nil {
		return nil, fmt.Errorf("writing %s: %w", artifact.Path, err)
	}

	log := r.Log.WithFields(logrus.Fields{
		"direction": table.Direction,
		"window":    table.Window.String(),
	})
	if len(artifact.Skipped) > 0 {
		log.WithField("skipped", len(artifact.Skipped)).Warn("stations without coordinates left off the map")
		log.Debugf("skipped stations: %v", artifact.Skipped)
	}
	log.WithField("markers", artifact.Markers).Infof("wrote %s", artifact.Path)

	return artifact, nil
}
