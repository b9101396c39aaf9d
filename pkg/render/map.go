// Package render builds a self-contained Leaflet web map.
//
// A Map is an immutable value: every With* method returns a new Map and
// leaves the receiver untouched, so a layer composition can be expressed
// and tested as a plain sequence of calls. Build validates the composition
// and produces a Document that can be written to disk.
package render

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/kass/heritage-map/pkg/crs"
	"github.com/kass/heritage-map/pkg/layer"
	"github.com/kass/heritage-map/pkg/models"
)

var (
	ErrUnknownPalette = errors.New("unknown palette")
	ErrDuplicateName  = errors.New("duplicate layer name")
	ErrLayerCRS       = errors.New("layer must be in EPSG:4326")
	ErrNoLayer        = errors.New("layer is missing")
)

// Options configures the base map.
type Options struct {
	Title        string
	Center       models.Location
	Zoom         int
	ControlScale bool
}

// Choropleth colors the features of Layer by Values, joined on the
// KeyProperty of each feature. Features without a value are "no data".
type Choropleth struct {
	Name           string
	LegendName     string
	Layer          *layer.Layer
	KeyProperty    string
	Values         map[string]float64
	Palette        string
	Bins           int
	FillOpacity    float64
	NaNFillColor   string
	NaNFillOpacity float64
	LineColor      string
	LineOpacity    float64
	LineWeight     float64
	Show           bool
}

// GeoJSONOverlay draws Layer with a fixed fill color.
type GeoJSONOverlay struct {
	Name             string
	Layer            *layer.Layer
	FillColor        string
	FillOpacity      float64
	LineColor        string
	LineWeight       float64
	HighlightOpacity float64
	ZoomOnClick      bool
	Show             bool
}

// MarkerCluster puts the points of Layer into a toggleable sub-group of a
// marker cluster group.
type MarkerCluster struct {
	Name          string
	Layer         *layer.Layer
	PopupProperty string
	Show          bool
}

type LayerControl struct {
	Collapsed bool
	Position  string
}

type MousePosition struct {
	Position    string
	Separator   string
	EmptyString string
	LngFirst    bool
	NumDigits   int
	Prefix      string
}

type Fullscreen struct {
	Position            string
	Title               string
	TitleCancel         string
	ForceSeparateButton bool
}

// element is one named, toggleable layer of the map.
type element interface {
	name() string
	view(newID func() string) (layerView, *legendView, error)
}

// Map accumulates layers and widgets. The zero value is not usable; call New.
type Map struct {
	options       Options
	tiles         Tiles
	elements      []element
	layerControl  *LayerControl
	mousePosition *MousePosition
	fullscreen    *Fullscreen
	newID         func() string
}

// New starts a map with OpenStreetMap tiles.
func New(opts Options) Map {
	return Map{
		options: opts,
		tiles:   defaultTiles(),
		newID:   uuidID,
	}
}

func uuidID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// WithIDGenerator replaces the generator of JavaScript identifiers.
func (m Map) WithIDGenerator(f func() string) Map {
	m.newID = f
	return m
}

func (m Map) WithTiles(t Tiles) Map {
	m.tiles = t
	return m
}

func (m Map) WithChoropleth(c Choropleth) Map {
	m.elements = appendElement(m.elements, c)
	return m
}

func (m Map) WithGeoJSON(o GeoJSONOverlay) Map {
	m.elements = appendElement(m.elements, o)
	return m
}

func (m Map) WithMarkerCluster(c MarkerCluster) Map {
	m.elements = appendElement(m.elements, c)
	return m
}

func (m Map) WithLayerControl(c LayerControl) Map {
	m.layerControl = &c
	return m
}

func (m Map) WithMousePosition(p MousePosition) Map {
	m.mousePosition = &p
	return m
}

func (m Map) WithFullscreen(f Fullscreen) Map {
	m.fullscreen = &f
	return m
}

// LayerNames returns the names of the layers added so far, in order.
func (m Map) LayerNames() []string {
	names := make([]string, len(m.elements))
	for i, e := range m.elements {
		names[i] = e.name()
	}
	return names
}

// appendElement never writes into the backing array of es, so maps derived
// from the same parent do not share layers.
func appendElement(es []element, e element) []element {
	out := make([]element, len(es), len(es)+1)
	copy(out, es)
	return append(out, e)
}

// Build validates the map and resolves it into a Document.
func (m Map) Build() (*Document, error) {
	c := m.options.Center
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.Abs(c.Lat) > 90 || math.Abs(c.Lon) > 180 {
		return nil, fmt.Errorf("invalid map center %+v", c)
	}
	if m.options.Zoom < 0 || m.options.Zoom > 22 {
		return nil, fmt.Errorf("invalid zoom %d", m.options.Zoom)
	}

	newID := m.newID
	if newID == nil {
		newID = uuidID
	}

	doc := &Document{
		Title:        m.options.Title,
		MapElement:   "map_" + newID(),
		Center:       c,
		Zoom:         m.options.Zoom,
		ControlScale: m.options.ControlScale,
		Tiles:        m.tiles,
	}

	seen := make(map[string]bool, len(m.elements))
	for _, e := range m.elements {
		name := e.name()
		if name == "" {
			return nil, fmt.Errorf("layer without a name")
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
		seen[name] = true

		v, legend, err := e.view(newID)
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", name, err)
		}
		doc.Layers = append(doc.Layers, v)
		if legend != nil {
			doc.Legends = append(doc.Legends, *legend)
		}
		if v.Kind == kindCluster {
			doc.HasCluster = true
		}
	}

	if m.layerControl != nil {
		lc := *m.layerControl
		doc.LayerControl = &lc
	}
	if m.mousePosition != nil {
		mp := *m.mousePosition
		doc.MousePosition = &mp
	}
	if m.fullscreen != nil {
		fs := *m.fullscreen
		doc.Fullscreen = &fs
	}
	return doc, nil
}

// checkLayer verifies a layer can be embedded as GeoJSON in the page.
func checkLayer(l *layer.Layer) error {
	if l == nil {
		return ErrNoLayer
	}
	if l.Collection == nil || len(l.Collection.Features) == 0 {
		return layer.ErrEmptyLayer
	}
	if !crs.Same(l.CRS, crs.WGS84) {
		return fmt.Errorf("%w, got %s", ErrLayerCRS, l.CRS)
	}
	for i, f := range l.Collection.Features {
		if err := layer.Validate(f.Geometry); err != nil {
			return fmt.Errorf("feature %d: %w", i, err)
		}
	}
	return nil
}
