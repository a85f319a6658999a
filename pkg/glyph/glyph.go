// Package glyph measures how much ink each character of a font puts on the
// page.
//
// A character is drawn in white on a black box and the share of lit pixels is
// its ink ratio. The ratios feed [grayscale.Build]. Measuring is the slow part
// of building a grayscale map, so callers cache the resulting map per font and
// size rather than measuring again.
package glyph

import (
	"context"
	"image"
	"io"
	"runtime"

	"github.com/charmbracelet/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/textmosaic/pkg/errors"
	"github.com/matzehuels/textmosaic/pkg/grayscale"
)

// DefaultBox is the side of the square canvas each glyph is drawn on.
const DefaultBox = 40

const (
	asciiLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits       = "0123456789"
	punctuation  = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
	whitespace   = " \t\n\r\x0b\x0c"
)

// Alphabet returns the measured characters in enumeration order: ASCII
// letters, digits, punctuation, then whitespace.
func Alphabet() string {
	return asciiLetters + digits + punctuation + whitespace
}

// Measurer draws glyphs of one font at one size.
type Measurer struct {
	font    *opentype.Font
	size    float64
	box     image.Rectangle
	workers int
	logger  *log.Logger
}

// Option configures a Measurer.
type Option func(*Measurer)

// WithBox sets the canvas size in pixels.
func WithBox(w, h int) Option {
	return func(m *Measurer) {
		if w > 0 && h > 0 {
			m.box = image.Rect(0, 0, w, h)
		}
	}
}

// WithWorkers bounds the goroutines used by [Measurer.Measure].
func WithWorkers(n int) Option {
	return func(m *Measurer) { m.workers = max(n, 1) }
}

// WithLogger sets a logger for debug output.
func WithLogger(l *log.Logger) Option {
	return func(m *Measurer) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMeasurer parses TrueType or OpenType data.
func NewMeasurer(data []byte, size float64, opts ...Option) (*Measurer, error) {
	if size <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidFont, "font size must be positive, got %v", size)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFont, err, "parse font")
	}
	m := &Measurer{
		font:    f,
		size:    size,
		box:     image.Rect(0, 0, DefaultBox, DefaultBox),
		workers: runtime.GOMAXPROCS(0),
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Faces are stateful, so every goroutine opens its own.
func (m *Measurer) newFace() (font.Face, error) {
	face, err := opentype.NewFace(m.font, &opentype.FaceOptions{
		Size:    m.size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFont, err, "open face")
	}
	return face, nil
}

// Ink returns the lit share of the canvas after drawing r.
func (m *Measurer) Ink(r rune) (float64, error) {
	face, err := m.newFace()
	if err != nil {
		return 0, err
	}
	defer face.Close()
	return m.ink(face, r), nil
}

func (m *Measurer) ink(face font.Face, r rune) float64 {
	img := image.NewGray(m.box)
	d := font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(0, face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(string(r))

	lit := 0
	for _, p := range img.Pix {
		if p > 0 {
			lit++
		}
	}
	return float64(lit) / float64(len(img.Pix))
}

// Measure returns the ink ratio of every character of alphabet, in order.
// Characters are split across workers; results do not depend on scheduling.
func (m *Measurer) Measure(ctx context.Context, alphabet string) ([]grayscale.Ink, error) {
	runes := []rune(alphabet)
	if len(runes) == 0 {
		return nil, grayscale.ErrEmptyAlphabet
	}
	out := make([]grayscale.Ink, len(runes))
	chunk := (len(runes) + m.workers - 1) / m.workers

	eg, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(runes); start += chunk {
		end := min(start+chunk, len(runes))
		eg.Go(func() error {
			face, err := m.newFace()
			if err != nil {
				return err
			}
			defer face.Close()
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				out[i] = grayscale.Ink{Char: runes[i], Ratio: m.ink(face, runes[i])}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	m.logger.Debug("measured glyphs", "count", len(out), "size", m.size)
	return out, nil
}

// Grayscale measures the default alphabet of a font and builds its map on
// the default 0..255 range.
func Grayscale(ctx context.Context, data []byte, size float64, opts ...Option) (*grayscale.Map, error) {
	m, err := NewMeasurer(data, size, opts...)
	if err != nil {
		return nil, err
	}
	ink, err := m.Measure(ctx, Alphabet())
	if err != nil {
		return nil, err
	}
	return grayscale.Build(ink, grayscale.DefaultRange)
}
