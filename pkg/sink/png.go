package sink

import (
	"bytes"
	"image/color"
	"unicode"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/matzehuels/textmosaic/pkg/errors"
	"github.com/matzehuels/textmosaic/pkg/fonts"
	"github.com/matzehuels/textmosaic/pkg/mosaic"
)

// Default case and font settings.
const (
	DefaultCaseWidth  = 15
	DefaultCaseHeight = 15
	DefaultFontSize   = 12.0
)

// PNGOption configures PNG rendering via [RenderPNG].
type PNGOption func(*pngRenderer)

type pngRenderer struct {
	fontData []byte
	fontSize float64
	caseW    int
	caseH    int
	black    bool
	labels   []int
	palette  []color.RGBA
}

// WithFont sets the TrueType data and point size used to draw characters.
func WithFont(data []byte, size float64) PNGOption {
	return func(r *pngRenderer) {
		if len(data) > 0 {
			r.fontData = data
		}
		if size > 0 {
			r.fontSize = size
		}
	}
}

// WithCase sets the pixel size of one cell.
func WithCase(w, h int) PNGOption {
	return func(r *pngRenderer) {
		if w > 0 && h > 0 {
			r.caseW, r.caseH = w, h
		}
	}
}

// WithBlackBackground selects white-on-black (true, the default) or
// black-on-white output.
func WithBlackBackground(black bool) PNGOption {
	return func(r *pngRenderer) { r.black = black }
}

// WithColors colours each cell with palette[labels[i]], where i is the cell's
// row-major index.
func WithColors(labels []int, palette []color.RGBA) PNGOption {
	return func(r *pngRenderer) { r.labels, r.palette = labels, palette }
}

// RenderPNG draws g as a PNG image of Width*caseW by Height*caseH pixels.
func RenderPNG(g *mosaic.Grid, opts ...PNGOption) ([]byte, error) {
	r := pngRenderer{
		fontData: fonts.Default(),
		fontSize: DefaultFontSize,
		caseW:    DefaultCaseWidth,
		caseH:    DefaultCaseHeight,
		black:    true,
	}
	for _, opt := range opts {
		opt(&r)
	}

	if g.Width() == 0 || g.Height() == 0 {
		return nil, errors.New(errors.ErrCodeInvalidRaster, "cannot render an empty grid")
	}
	if r.labels != nil {
		if err := checkLabels(r.labels, r.palette, g.Width()*g.Height()); err != nil {
			return nil, err
		}
	}

	f, err := truetype.Parse(r.fontData)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFont, err, "parse font")
	}
	face := truetype.NewFace(f, &truetype.Options{Size: r.fontSize, DPI: 72, Hinting: font.HintingFull})
	defer face.Close()

	var bg, fg color.Color = color.Black, color.White
	if !r.black {
		bg, fg = color.White, color.Black
	}

	dc := gg.NewContext(g.Width()*r.caseW, g.Height()*r.caseH)
	dc.SetColor(bg)
	dc.Clear()
	dc.SetFontFace(face)
	dc.SetColor(fg)

	for y, row := range g.Chars() {
		for x, c := range row {
			if unicode.IsSpace(c) {
				continue
			}
			if r.labels != nil {
				dc.SetColor(r.palette[r.labels[y*g.Width()+x]])
			}
			cx := float64(x*r.caseW) + float64(r.caseW)/2
			cy := float64(y*r.caseH) + float64(r.caseH)/2
			dc.DrawStringAnchored(string(c), cx, cy, 0.5, 0.5)
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode png")
	}
	return buf.Bytes(), nil
}

func checkLabels(labels []int, palette []color.RGBA, cells int) error {
	if len(labels) != cells {
		return errors.New(errors.ErrCodeInvalidInput, "got %d colour labels for %d cells", len(labels), cells)
	}
	for i, l := range labels {
		if l < 0 || l >= len(palette) {
			return errors.New(errors.ErrCodeInvalidInput, "cell %d: label %d outside palette of %d", i, l, len(palette))
		}
	}
	return nil
}
