package render

import (
	"fmt"
	"strings"
)

const osmAttribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`

// Tiles is the background tile layer.
type Tiles struct {
	Name        string
	URL         string
	Attribution string
	Subdomains  string
	MaxZoom     int
}

var tileProviders = map[string]Tiles{
	"openstreetmap": {
		Name:        "openstreetmap",
		URL:         "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: osmAttribution,
		Subdomains:  "abc",
		MaxZoom:     19,
	},
	"cartodbpositron": {
		Name:        "cartodbpositron",
		URL:         "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png",
		Attribution: osmAttribution + ` &copy; <a href="https://carto.com/attributions">CARTO</a>`,
		Subdomains:  "abcd",
		MaxZoom:     20,
	},
	"cartodbdarkmatter": {
		Name:        "cartodbdark_matter",
		URL:         "https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}{r}.png",
		Attribution: osmAttribution + ` &copy; <a href="https://carto.com/attributions">CARTO</a>`,
		Subdomains:  "abcd",
		MaxZoom:     20,
	},
}

func defaultTiles() Tiles {
	return tileProviders["openstreetmap"]
}

// TilesByName resolves a provider name such as "cartodb positron" or a
// custom URL template, which then needs an attribution.
func TilesByName(name, attribution string) (Tiles, error) {
	if strings.Contains(name, "{z}") {
		if attribution == "" {
			return Tiles{}, fmt.Errorf("custom tiles %q need an attribution", name)
		}
		return Tiles{Name: "custom", URL: name, Attribution: attribution, Subdomains: "abc", MaxZoom: 18}, nil
	}

	key := strings.NewReplacer(" ", "", "_", "", ".", "", "-", "").Replace(strings.ToLower(name))
	t, ok := tileProviders[key]
	if !ok {
		return Tiles{}, fmt.Errorf("unknown tiles %q", name)
	}
	if attribution != "" {
		t.Attribution = attribution
	}
	return t, nil
}
