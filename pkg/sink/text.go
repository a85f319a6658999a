package sink

import (
	"bytes"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/matzehuels/textmosaic/pkg/errors"
	"github.com/matzehuels/textmosaic/pkg/mosaic"
)

// Header describes how a text grid was produced.
type Header struct {
	Name            string
	Font            string
	FontSize        float64
	BlackBackground bool
	CaseWidth       int
	CaseHeight      int
}

func (h Header) String() string {
	var sb strings.Builder
	sb.WriteString(h.Name + "\n")
	sb.WriteString(h.Font + "    " + strconv.FormatFloat(h.FontSize, 'g', -1, 64) + "\n")
	sb.WriteString("blackbackground = " + pyBool(h.BlackBackground) + "\n")
	fmt.Fprintf(&sb, "character case size = (%d, %d)\n\n", h.CaseWidth, h.CaseHeight)
	return sb.String()
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// RenderText writes the grid one row per line, preceded by h when not nil.
func RenderText(g *mosaic.Grid, h *Header) []byte {
	var buf bytes.Buffer
	if h != nil {
		buf.WriteString(h.String())
	}
	buf.WriteString(g.String())
	return buf.Bytes()
}

// RenderColors writes one line per grid row listing the (r, g, b) colour of
// every cell.
func RenderColors(labels []int, palette []color.RGBA, width int) ([]byte, error) {
	if width <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "width must be positive")
	}
	if len(labels)%width != 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%d labels do not fill rows of %d", len(labels), width)
	}
	if err := checkLabels(labels, palette, len(labels)); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	for i, l := range labels {
		c := palette[l]
		if i%width != 0 {
			buf.WriteByte(' ')
		}
		fmt.Fprintf(&buf, "(%d, %d, %d)", c.R, c.G, c.B)
		if i%width == width-1 {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes(), nil
}

// RenderLayers returns one text grid per stream present in g, keyed by stream
// id. Filler characters appear under [mosaic.FillerStream].
func RenderLayers(g *mosaic.Grid) map[int][]byte {
	out := make(map[int][]byte)
	for _, s := range g.Streams() {
		var buf bytes.Buffer
		for _, row := range g.Layer(s) {
			buf.WriteString(string(row))
			buf.WriteByte('\n')
		}
		out[s] = buf.Bytes()
	}
	return out
}
