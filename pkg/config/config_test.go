package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesNotebook(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 400.0, cfg.Grid.SquareSize)
	assert.Equal(t, "EPSG:32639", cfg.Grid.CRS)
	assert.Equal(t, 12, cfg.Map.Zoom)
	assert.Equal(t, "cartodb positron", cfg.Map.Tiles)
	assert.Equal(t, "BuPu", cfg.Choropleth.Palette)
	assert.Equal(t, 0.5, cfg.Choropleth.FillOpacity)
	assert.Equal(t, 0.0, cfg.Choropleth.NaNFillOpacity)
	assert.Equal(t, "blue", cfg.Overlays.Buildings.FillColor)
	assert.Equal(t, "blue", cfg.Overlays.Bounds.FillColor)
	assert.Equal(t, "red", cfg.Overlays.Ensembles.FillColor)
	assert.False(t, cfg.Overlays.Buildings.Show)
	assert.True(t, cfg.Cluster.Show)
	assert.Equal(t, "Expand me", cfg.Widgets.Fullscreen.Title)
	assert.Equal(t, "Exit me", cfg.Widgets.Fullscreen.TitleCancel)
	assert.Equal(t, "index.html", cfg.Output.Map)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		message string
	}{
		{"zero square size", func(c *Config) { c.Grid.SquareSize = 0 }, "grid.square_size"},
		{"negative square size", func(c *Config) { c.Grid.SquareSize = -10 }, "grid.square_size"},
		{"missing points", func(c *Config) { c.Inputs.Points = "" }, "inputs.points"},
		{"zoom out of range", func(c *Config) { c.Map.Zoom = 30 }, "map.zoom"},
		{"opacity above one", func(c *Config) { c.Choropleth.FillOpacity = 1.5 }, "choropleth.fill_opacity"},
		{"single bin", func(c *Config) { c.Choropleth.Bins = 1 }, "choropleth.bins"},
		{"duplicate overlay name", func(c *Config) { c.Overlays.Bounds.Name = c.Overlays.Buildings.Name }, "duplicates"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestValidateReportsAllViolations(t *testing.T) {
	cfg := Default()
	cfg.Grid.SquareSize = 0
	cfg.Map.Zoom = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grid.square_size")
	assert.Contains(t, err.Error(), "map.zoom")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "heritage-map.yaml")
	content := []byte(`
grid:
  square_size: 250
  crs: auto
map:
  zoom: 14
overlays:
  ensembles:
    fill_color: "#aa0000"
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 250.0, cfg.Grid.SquareSize)
	assert.Equal(t, "auto", cfg.Grid.CRS)
	assert.Equal(t, 14, cfg.Map.Zoom)
	assert.Equal(t, "#aa0000", cfg.Overlays.Ensembles.FillColor)
	// untouched keys keep their defaults
	assert.Equal(t, "Heritage buildings", cfg.Overlays.Buildings.Name)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadEnvAndFlags(t *testing.T) {
	t.Setenv("HERITAGEMAP_GRID_SQUARE_SIZE", "100")
	t.Setenv("HERITAGEMAP_MAP_ZOOM", "10")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("zoom", 12, "")
	flags.String("output", "index.html", "")
	require.NoError(t, flags.Parse([]string{"--zoom", "15", "--output", "out/map.html"}))

	dir := t.TempDir()
	path := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  mode: quiet\n"), 0o644))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, 100.0, cfg.Grid.SquareSize)
	assert.Equal(t, 15, cfg.Map.Zoom, "changed flag wins over env")
	assert.Equal(t, "out/map.html", cfg.Output.Map)
	assert.Equal(t, "quiet", cfg.Log.Mode)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grid:\n  square_size: -1\n"), 0o644))

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grid.square_size")
}
