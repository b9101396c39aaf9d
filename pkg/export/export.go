// Package export writes the aggregated grid for use outside the web map.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kass/heritage-map/pkg/crs"
	"github.com/kass/heritage-map/pkg/grid"
	"github.com/kass/heritage-map/pkg/layer"
	"github.com/paulmach/orb/geojson"
	flatgeobuf "github.com/tingold/orb-flatgeobuf"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

type Format string

const (
	GeoJSON    Format = "geojson"
	FlatGeobuf Format = "fgb"
)

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return GeoJSON, nil
	case ".fgb":
		return FlatGeobuf, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// GridLayer returns the cells of g, expressed in gridCRS, as an EPSG:4326 layer.
func GridLayer(g *grid.Grid, gridCRS string) (*layer.Layer, error) {
	l, err := layer.New("grid", gridCRS, g.FeatureCollection())
	if err != nil {
		return nil, err
	}
	return l.Reproject(crs.WGS84)
}

// Write encodes fc in the given format.
func Write(w io.Writer, fc *geojson.FeatureCollection, format Format) error {
	switch format {
	case GeoJSON:
		data, err := fc.MarshalJSON()
		if err != nil {
			return fmt.Errorf("failed to encode geojson: %w", err)
		}
		_, err = w.Write(data)
		return err
	case FlatGeobuf:
		err := flatgeobuf.WriteFeatures(w, fc, &flatgeobuf.Options{
			Name:         "heritage_density",
			Description:  "heritage sites per grid cell",
			IncludeIndex: true,
			CRS:          flatgeobuf.WGS84(),
		})
		if err != nil {
			return fmt.Errorf("failed to encode flatgeobuf: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// WriteGrid saves the grid to path, in EPSG:4326, choosing the format from
// the extension.
func WriteGrid(path string, g *grid.Grid, gridCRS string) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	l, err := GridLayer(g, gridCRS)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Write(&buf, l.Collection, format); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write grid: %w", err)
	}
	return nil
}
