package render

import (
	"encoding/json"
	"fmt"
	"io"

	"config-conflict-detector/internal/model"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Renderer writes a finished report.
type Renderer interface {
	Render(report *model.ConflictReport) error
}

// New returns the renderer for format. color only affects the text format.
func New(format string, w io.Writer, color bool) (Renderer, error) {
	switch format {
	case "", FormatText:
		return NewTextRenderer(w, color), nil
	case FormatJSON:
		return &JSONRenderer{w: w}, nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}

// JSONRenderer writes the report as an indented JSON document.
type JSONRenderer struct {
	w io.Writer
}

func (r *JSONRenderer) Render(report *model.ConflictReport) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
