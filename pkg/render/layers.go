package render

import (
	"encoding/json"
	"fmt"
	"html/template"
	"sort"

	"github.com/kass/heritage-map/pkg/layer"
)

const (
	kindChoropleth = "choropleth"
	kindGeoJSON    = "geojson"
	kindCluster    = "cluster"

	defaultLineColor  = "#3388ff"
	defaultLineWeight = 2.0
	defaultNaNColor   = "black"
)

// layerView is the template model of one layer.
type layerView struct {
	Kind string
	Var  template.JS
	Name string
	Show bool
	Data template.JS

	// choropleth
	Colors         template.JS
	KeyProperty    string
	NaNFillColor   string
	NaNFillOpacity float64
	LineOpacity    float64

	// shared style
	FillColor        string
	FillOpacity      float64
	LineColor        string
	LineWeight       float64
	HighlightOpacity float64
	ZoomOnClick      bool

	// cluster
	PopupProperty string
	Features      int
}

// LegendEntry is one class of a choropleth legend.
type LegendEntry struct {
	Color string
	Label string
}

type legendView struct {
	Title   string
	Entries []LegendEntry
}

// Style returns the inline CSS of the legend swatch.
func (e LegendEntry) Style() template.CSS {
	return template.CSS("background: " + e.Color)
}

func layerData(l *layer.Layer) (template.JS, error) {
	data, err := l.Collection.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("failed to encode layer data: %w", err)
	}
	return template.JS(data), nil
}

func jsVar(newID func() string) template.JS {
	return template.JS("layer_" + newID())
}

func (c Choropleth) name() string { return c.Name }

func (c Choropleth) view(newID func() string) (layerView, *legendView, error) {
	if err := checkLayer(c.Layer); err != nil {
		return layerView{}, nil, err
	}
	if c.KeyProperty == "" {
		return layerView{}, nil, fmt.Errorf("choropleth needs a key property")
	}
	colors, err := Colors(c.Palette, c.Bins)
	if err != nil {
		return layerView{}, nil, err
	}

	keys := make([]string, 0, len(c.Values))
	for k := range c.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := make([]float64, len(keys))
	for i, k := range keys {
		values[i] = c.Values[k]
	}
	scale := NewScale(values, colors)

	byKey := make(map[string]string, len(keys))
	for i, k := range keys {
		byKey[k] = scale.Color(values[i])
	}
	colorJSON, err := json.Marshal(byKey)
	if err != nil {
		return layerView{}, nil, fmt.Errorf("failed to encode colors: %w", err)
	}
	data, err := layerData(c.Layer)
	if err != nil {
		return layerView{}, nil, err
	}

	nanColor := c.NaNFillColor
	if nanColor == "" {
		nanColor = defaultNaNColor
	}
	lineColor := c.LineColor
	if lineColor == "" {
		lineColor = defaultLineColor
	}

	v := layerView{
		Kind:           kindChoropleth,
		Var:            jsVar(newID),
		Name:           c.Name,
		Show:           c.Show,
		Data:           data,
		Colors:         template.JS(colorJSON),
		KeyProperty:    c.KeyProperty,
		FillOpacity:    c.FillOpacity,
		NaNFillColor:   nanColor,
		NaNFillOpacity: c.NaNFillOpacity,
		LineColor:      lineColor,
		LineOpacity:    c.LineOpacity,
		LineWeight:     c.LineWeight,
		Features:       c.Layer.Len(),
	}

	var legend *legendView
	if c.LegendName != "" && len(values) > 0 {
		legend = &legendView{Title: c.LegendName, Entries: scale.Entries()}
	}
	return v, legend, nil
}

func (o GeoJSONOverlay) name() string { return o.Name }

func (o GeoJSONOverlay) view(newID func() string) (layerView, *legendView, error) {
	if err := checkLayer(o.Layer); err != nil {
		return layerView{}, nil, err
	}
	data, err := layerData(o.Layer)
	if err != nil {
		return layerView{}, nil, err
	}

	lineColor := o.LineColor
	if lineColor == "" {
		lineColor = defaultLineColor
	}
	weight := o.LineWeight
	if weight == 0 {
		weight = defaultLineWeight
	}

	return layerView{
		Kind:             kindGeoJSON,
		Var:              jsVar(newID),
		Name:             o.Name,
		Show:             o.Show,
		Data:             data,
		FillColor:        o.FillColor,
		FillOpacity:      o.FillOpacity,
		LineColor:        lineColor,
		LineWeight:       weight,
		HighlightOpacity: o.HighlightOpacity,
		ZoomOnClick:      o.ZoomOnClick,
		Features:         o.Layer.Len(),
	}, nil, nil
}

func (c MarkerCluster) name() string { return c.Name }

func (c MarkerCluster) view(newID func() string) (layerView, *legendView, error) {
	if err := checkLayer(c.Layer); err != nil {
		return layerView{}, nil, err
	}
	if _, err := c.Layer.Points(); err != nil {
		return layerView{}, nil, err
	}
	data, err := layerData(c.Layer)
	if err != nil {
		return layerView{}, nil, err
	}

	return layerView{
		Kind:          kindCluster,
		Var:           jsVar(newID),
		Name:          c.Name,
		Show:          c.Show,
		Data:          data,
		PopupProperty: c.PopupProperty,
		Features:      c.Layer.Len(),
	}, nil, nil
}
