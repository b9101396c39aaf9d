package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every tunable of the pipeline.
type Config struct {
	Inputs     InputsConfig     `mapstructure:"inputs"`
	Output     OutputConfig     `mapstructure:"output"`
	Grid       GridConfig       `mapstructure:"grid"`
	Map        MapConfig        `mapstructure:"map"`
	Choropleth ChoroplethConfig `mapstructure:"choropleth"`
	Overlays   OverlaysConfig   `mapstructure:"overlays"`
	Cluster    ClusterConfig    `mapstructure:"cluster"`
	Widgets    WidgetsConfig    `mapstructure:"widgets"`
	Log        LogConfig        `mapstructure:"log"`
}

// InputsConfig lists the four source layers. A value is either a GeoJSON
// file path or a postgres:// URL (see pkg/postgis).
type InputsConfig struct {
	Bounds    string `mapstructure:"bounds"`
	Points    string `mapstructure:"points"`
	Buildings string `mapstructure:"buildings"`
	Ensembles string `mapstructure:"ensembles"`
}

// OutputConfig lists the files the pipeline writes. Grid and Report are
// skipped when empty.
type OutputConfig struct {
	Map    string `mapstructure:"map"`
	Grid   string `mapstructure:"grid"`
	Report string `mapstructure:"report"`
}

type GridConfig struct {
	// SquareSize is the cell side in linear units of CRS.
	SquareSize float64 `mapstructure:"square_size"`
	// CRS is the working projection: an EPSG code, a proj4 string or "auto"
	// for the UTM zone of the points' mean location.
	CRS      string `mapstructure:"crs"`
	MaxCells int    `mapstructure:"max_cells"`
}

type MapConfig struct {
	Title            string `mapstructure:"title"`
	Zoom             int    `mapstructure:"zoom"`
	Tiles            string `mapstructure:"tiles"`
	TilesAttribution string `mapstructure:"tiles_attribution"`
	ControlScale     bool   `mapstructure:"control_scale"`
}

type ChoroplethConfig struct {
	Name           string  `mapstructure:"name"`
	Palette        string  `mapstructure:"palette"`
	Bins           int     `mapstructure:"bins"`
	FillOpacity    float64 `mapstructure:"fill_opacity"`
	NaNFillOpacity float64 `mapstructure:"nan_fill_opacity"`
	LineColor      string  `mapstructure:"line_color"`
	LineOpacity    float64 `mapstructure:"line_opacity"`
	LegendName     string  `mapstructure:"legend_name"`
	Show           bool    `mapstructure:"show"`
}

type OverlayConfig struct {
	Name             string  `mapstructure:"name"`
	FillColor        string  `mapstructure:"fill_color"`
	FillOpacity      float64 `mapstructure:"fill_opacity"`
	HighlightOpacity float64 `mapstructure:"highlight_opacity"`
	Show             bool    `mapstructure:"show"`
	ZoomOnClick      bool    `mapstructure:"zoom_on_click"`
}

type OverlaysConfig struct {
	Buildings OverlayConfig `mapstructure:"buildings"`
	Bounds    OverlayConfig `mapstructure:"bounds"`
	Ensembles OverlayConfig `mapstructure:"ensembles"`
}

type ClusterConfig struct {
	Name          string `mapstructure:"name"`
	Show          bool   `mapstructure:"show"`
	PopupProperty string `mapstructure:"popup_property"`
}

type LayerControlConfig struct {
	Collapsed bool   `mapstructure:"collapsed"`
	Position  string `mapstructure:"position"`
}

type MousePositionConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Position string `mapstructure:"position"`
}

type FullscreenConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	Position            string `mapstructure:"position"`
	Title               string `mapstructure:"title"`
	TitleCancel         string `mapstructure:"title_cancel"`
	ForceSeparateButton bool   `mapstructure:"force_separate_button"`
}

type WidgetsConfig struct {
	LayerControl  LayerControlConfig  `mapstructure:"layer_control"`
	MousePosition MousePositionConfig `mapstructure:"mouse_position"`
	Fullscreen    FullscreenConfig    `mapstructure:"fullscreen"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"bounds":      "inputs.bounds",
	"points":      "inputs.points",
	"buildings":   "inputs.buildings",
	"ensembles":   "inputs.ensembles",
	"output":      "output.map",
	"grid-output": "output.grid",
	"report":      "output.report",
	"square-size": "grid.square_size",
	"crs":         "grid.crs",
	"zoom":        "map.zoom",
	"tiles":       "map.tiles",
	"log-mode":    "log.mode",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("inputs.bounds", "bounds.geojson")
	v.SetDefault("inputs.points", "points.geojson")
	v.SetDefault("inputs.buildings", "pol.geojson")
	v.SetDefault("inputs.ensembles", "ans.geojson")

	v.SetDefault("output.map", "index.html")
	v.SetDefault("output.grid", "")
	v.SetDefault("output.report", "")

	v.SetDefault("grid.square_size", 400.0)
	v.SetDefault("grid.crs", "EPSG:32639")
	v.SetDefault("grid.max_cells", 1000000)

	v.SetDefault("map.title", "Heritage sites")
	v.SetDefault("map.zoom", 12)
	v.SetDefault("map.tiles", "cartodb positron")
	v.SetDefault("map.tiles_attribution", "")
	v.SetDefault("map.control_scale", true)

	v.SetDefault("choropleth.name", "Heritage Sites Concentration")
	v.SetDefault("choropleth.palette", "BuPu")
	v.SetDefault("choropleth.bins", 6)
	v.SetDefault("choropleth.fill_opacity", 0.5)
	v.SetDefault("choropleth.nan_fill_opacity", 0.0)
	v.SetDefault("choropleth.line_color", "#0000")
	v.SetDefault("choropleth.line_opacity", 0.0)
	v.SetDefault("choropleth.legend_name", "amount of heritage sites")
	v.SetDefault("choropleth.show", true)

	v.SetDefault("overlays.buildings.name", "Heritage buildings")
	v.SetDefault("overlays.buildings.fill_color", "blue")
	v.SetDefault("overlays.buildings.fill_opacity", 0.2)
	v.SetDefault("overlays.buildings.highlight_opacity", 0.8)
	v.SetDefault("overlays.buildings.show", false)
	v.SetDefault("overlays.buildings.zoom_on_click", true)

	v.SetDefault("overlays.bounds.name", "Ekaterinburg bounds")
	v.SetDefault("overlays.bounds.fill_color", "blue")
	v.SetDefault("overlays.bounds.fill_opacity", 0.2)
	v.SetDefault("overlays.bounds.highlight_opacity", 0.4)
	v.SetDefault("overlays.bounds.show", false)
	v.SetDefault("overlays.bounds.zoom_on_click", true)

	v.SetDefault("overlays.ensembles.name", "Ensembles and places of interest")
	v.SetDefault("overlays.ensembles.fill_color", "red")
	v.SetDefault("overlays.ensembles.fill_opacity", 0.2)
	v.SetDefault("overlays.ensembles.highlight_opacity", 0.4)
	v.SetDefault("overlays.ensembles.show", false)
	v.SetDefault("overlays.ensembles.zoom_on_click", true)

	v.SetDefault("cluster.name", "Heritage Sites")
	v.SetDefault("cluster.show", true)
	v.SetDefault("cluster.popup_property", "")

	v.SetDefault("widgets.layer_control.collapsed", true)
	v.SetDefault("widgets.layer_control.position", "topright")
	v.SetDefault("widgets.mouse_position.enabled", true)
	v.SetDefault("widgets.mouse_position.position", "bottomright")
	v.SetDefault("widgets.fullscreen.enabled", true)
	v.SetDefault("widgets.fullscreen.position", "bottomright")
	v.SetDefault("widgets.fullscreen.title", "Expand me")
	v.SetDefault("widgets.fullscreen.title_cancel", "Exit me")
	v.SetDefault("widgets.fullscreen.force_separate_button", true)

	v.SetDefault("log.mode", "dev")
}

// Default returns the configuration with every default applied.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// defaults are static; a failure here is a programming error
		panic(fmt.Sprintf("unmarshal default config: %v", err))
	}
	return &cfg
}

// Load reads configuration from defaults, an optional config file,
// HERITAGEMAP_* environment variables and changed command-line flags,
// in increasing order of precedence.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("heritage-map")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	// HERITAGEMAP_GRID_SQUARE_SIZE -> grid.square_size
	v.SetEnvPrefix("HERITAGEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that every field holds a usable value and reports all
// violations at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Inputs.Bounds == "" {
		errs = append(errs, "inputs.bounds is required")
	}
	if c.Inputs.Points == "" {
		errs = append(errs, "inputs.points is required")
	}
	if c.Inputs.Buildings == "" {
		errs = append(errs, "inputs.buildings is required")
	}
	if c.Inputs.Ensembles == "" {
		errs = append(errs, "inputs.ensembles is required")
	}
	if c.Output.Map == "" {
		errs = append(errs, "output.map is required")
	}

	if !(c.Grid.SquareSize > 0) || math.IsInf(c.Grid.SquareSize, 0) {
		errs = append(errs, fmt.Sprintf("grid.square_size must be a positive finite number, got %v", c.Grid.SquareSize))
	}
	if c.Grid.CRS == "" {
		errs = append(errs, "grid.crs is required")
	}
	if c.Grid.MaxCells <= 0 {
		errs = append(errs, fmt.Sprintf("grid.max_cells must be positive, got %d", c.Grid.MaxCells))
	}

	if c.Map.Zoom < 0 || c.Map.Zoom > 22 {
		errs = append(errs, fmt.Sprintf("map.zoom must be 0-22, got %d", c.Map.Zoom))
	}
	if c.Map.Tiles == "" {
		errs = append(errs, "map.tiles is required")
	}

	if c.Choropleth.Bins < 2 {
		errs = append(errs, fmt.Sprintf("choropleth.bins must be at least 2, got %d", c.Choropleth.Bins))
	}
	errs = checkOpacity(errs, "choropleth.fill_opacity", c.Choropleth.FillOpacity)
	errs = checkOpacity(errs, "choropleth.nan_fill_opacity", c.Choropleth.NaNFillOpacity)
	errs = checkOpacity(errs, "choropleth.line_opacity", c.Choropleth.LineOpacity)

	overlays := map[string]OverlayConfig{
		"overlays.buildings": c.Overlays.Buildings,
		"overlays.bounds":    c.Overlays.Bounds,
		"overlays.ensembles": c.Overlays.Ensembles,
	}
	names := map[string]string{c.Choropleth.Name: "choropleth.name", c.Cluster.Name: "cluster.name"}
	if c.Choropleth.Name == c.Cluster.Name {
		errs = append(errs, fmt.Sprintf("cluster.name duplicates choropleth.name %q", c.Cluster.Name))
	}
	for _, prefix := range []string{"overlays.buildings", "overlays.bounds", "overlays.ensembles"} {
		o := overlays[prefix]
		if o.Name == "" {
			errs = append(errs, prefix+".name is required")
		} else if other, ok := names[o.Name]; ok {
			errs = append(errs, fmt.Sprintf("%s.name duplicates %s %q", prefix, other, o.Name))
		} else {
			names[o.Name] = prefix + ".name"
		}
		errs = checkOpacity(errs, prefix+".fill_opacity", o.FillOpacity)
		errs = checkOpacity(errs, prefix+".highlight_opacity", o.HighlightOpacity)
	}
	if c.Choropleth.Name == "" {
		errs = append(errs, "choropleth.name is required")
	}
	if c.Cluster.Name == "" {
		errs = append(errs, "cluster.name is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func checkOpacity(errs []string, key string, v float64) []string {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return append(errs, fmt.Sprintf("%s must be within [0, 1], got %v", key, v))
	}
	return errs
}
