package sink

import (
	"encoding/json"

	"github.com/matzehuels/textmosaic/pkg/mosaic"
)

// JSONOption configures JSON rendering via [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	status *mosaic.Status
	header *Header
}

// WithJSONStatus records the fill status.
func WithJSONStatus(s mosaic.Status) JSONOption {
	return func(r *jsonRenderer) { r.status = &s }
}

// WithJSONHeader records the font and case settings.
func WithJSONHeader(h Header) JSONOption {
	return func(r *jsonRenderer) { r.header = &h }
}

type jsonOutput struct {
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Status     *mosaic.Status  `json:"status,omitempty"`
	Image      string          `json:"image,omitempty"`
	Font       string          `json:"font,omitempty"`
	FontSize   float64         `json:"font_size,omitempty"`
	Black      *bool           `json:"black_background,omitempty"`
	CaseWidth  int             `json:"case_width,omitempty"`
	CaseHeight int             `json:"case_height,omitempty"`
	Streams    []int           `json:"streams"`
	Rows       []string        `json:"rows"`
	Placements []jsonPlacement `json:"placements"`
}

type jsonPlacement struct {
	Stream int    `json:"stream"`
	Text   string `json:"text"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
}

// RenderJSON exports the grid rows and word placements as pretty-printed
// JSON. Filler cells appear only in rows.
func RenderJSON(g *mosaic.Grid, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{}
	for _, opt := range opts {
		opt(&r)
	}

	out := jsonOutput{
		Width:      g.Width(),
		Height:     g.Height(),
		Status:     r.status,
		Streams:    g.Streams(),
		Rows:       make([]string, 0, g.Height()),
		Placements: make([]jsonPlacement, 0),
	}
	if h := r.header; h != nil {
		out.Image = h.Name
		out.Font = h.Font
		out.FontSize = h.FontSize
		out.Black = &h.BlackBackground
		out.CaseWidth = h.CaseWidth
		out.CaseHeight = h.CaseHeight
	}
	for _, row := range g.Chars() {
		out.Rows = append(out.Rows, string(row))
	}
	for _, p := range g.Placements() {
		out.Placements = append(out.Placements, jsonPlacement{
			Stream: p.Word.Stream,
			Text:   p.Word.Text,
			Row:    p.Pos.Row,
			Col:    p.Pos.Col,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}
