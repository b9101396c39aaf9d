package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"

	"github.com/kass/heritage-map/pkg/models"
)

//go:embed templates/map.html.tmpl
var mapTemplateText string

var mapTemplate = template.Must(template.New("map").Parse(mapTemplateText))

// Document is a validated map ready to be serialized.
type Document struct {
	Title         string
	MapElement    string
	Center        models.Location
	Zoom          int
	ControlScale  bool
	Tiles         Tiles
	Layers        []layerView
	Legends       []legendView
	LayerControl  *LayerControl
	MousePosition *MousePosition
	Fullscreen    *Fullscreen
	HasCluster    bool
}

// Overlay describes one entry of the layer control.
type Overlay struct {
	Name     string
	Kind     string
	Show     bool
	Features int
}

// Overlays returns the toggleable layers in drawing order.
func (d *Document) Overlays() []Overlay {
	out := make([]Overlay, len(d.Layers))
	for i, l := range d.Layers {
		out[i] = Overlay{Name: l.Name, Kind: l.Kind, Show: l.Show, Features: l.Features}
	}
	return out
}

// WriteTo renders the HTML page and writes it to w. Nothing is written
// when rendering fails.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	if err := d.render(&buf); err != nil {
		return 0, err
	}
	return buf.WriteTo(w)
}

func (d *Document) render(buf *bytes.Buffer) error {
	if err := mapTemplate.Execute(buf, d); err != nil {
		return fmt.Errorf("failed to render map: %w", err)
	}
	return nil
}

// Save renders the page and replaces path with it. The page is written to
// a temporary file in the same directory first, so path is either fully
// written or left as it was.
func (d *Document) Save(path string) error {
	var buf bytes.Buffer
	if err := d.render(&buf); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".heritage-map-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write map: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close map: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move map into place: %w", err)
	}
	return nil
}
