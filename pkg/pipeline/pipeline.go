// Package pipeline provides the complete text mosaic pipeline.
//
// The CLI and the HTTP server both run images through this package, so option
// defaults, caching and artifact rendering behave the same on every surface.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Grayscale: measure the font's glyphs into a character brightness map
//  2. Fill: resize the image, convert it to luminance, and place words on it
//  3. Palette: cluster the image's colours when coloured output is requested
//  4. Render: produce artifacts (PNG, text, JSON, colour dump, layers)
//
// Grayscale maps and palettes are cached. Filling is cheap and always runs.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	img, _ := raster.Open("cat.jpg")
//	result, err := runner.Execute(ctx, pipeline.Options{Width: 120}, pipeline.Input{
//	    Image: img,
//	    Name:  "cat.jpg",
//	    Texts: []string{poem},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	png := result.Artifacts[pipeline.FormatPNG]
package pipeline

import (
	"image"
	"image/color"
	"io"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/textmosaic/pkg/cache"
	"github.com/matzehuels/textmosaic/pkg/errors"
	"github.com/matzehuels/textmosaic/pkg/fonts"
	"github.com/matzehuels/textmosaic/pkg/glyph"
	"github.com/matzehuels/textmosaic/pkg/mosaic"
	"github.com/matzehuels/textmosaic/pkg/palette"
	"github.com/matzehuels/textmosaic/pkg/raster"
	"github.com/matzehuels/textmosaic/pkg/sink"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultThreshold is the largest brightness distance accepted for a word.
	DefaultThreshold = 100.0

	// DefaultFont is the embedded font used when none is named.
	DefaultFont = fonts.DefaultName

	// DefaultFontSize is the glyph size in points, for measuring and drawing.
	DefaultFontSize = sink.DefaultFontSize

	// DefaultCaseWidth and DefaultCaseHeight are the pixel size of one cell
	// in the PNG output.
	DefaultCaseWidth  = sink.DefaultCaseWidth
	DefaultCaseHeight = sink.DefaultCaseHeight

	// DefaultSeed seeds colour clustering.
	DefaultSeed = palette.DefaultSeed

	// MaxWidth caps the number of columns so one request cannot allocate an
	// unbounded grid.
	MaxWidth = 2000

	// MaxCells caps the cells of one grid, whatever its shape.
	MaxCells = 1 << 20

	// MaxCanvasPixels caps the PNG canvas, cells times the case size.
	MaxCanvasPixels = 1 << 26

	// MaxCaseSize caps each side of a cell's pixel box.
	MaxCaseSize = 256

	// MaxColors caps the palette size.
	MaxColors = 256
)

// Format constants for output formats.
const (
	FormatPNG    = "png"
	FormatText   = "txt"
	FormatJSON   = "json"
	FormatColors = "colors"
)

// DefaultFormats are rendered when no format is requested.
var DefaultFormats = []string{FormatPNG, FormatText}

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatPNG:    true,
	FormatText:   true,
	FormatJSON:   true,
	FormatColors: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the mosaic pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Fill options. A nil Threshold means DefaultThreshold; zero accepts
	// exact brightness matches only.
	Threshold       *float64 `json:"threshold,omitempty"`
	WhiteBackground bool     `json:"white_background,omitempty"` // dark glyphs on white
	Width           int      `json:"width,omitempty"`            // columns; 0 keeps the image size

	// Glyph options
	Font       string  `json:"font,omitempty"`
	FontSize   float64 `json:"font_size,omitempty"`
	CaseWidth  int     `json:"case_width,omitempty"`
	CaseHeight int     `json:"case_height,omitempty"`

	// Colour options. Zero Colors renders a monochrome mosaic.
	Colors int    `json:"colors,omitempty"`
	Seed   uint64 `json:"seed,omitempty"`

	// Render options
	Formats []string `json:"formats,omitempty"`
	Layers  bool     `json:"layers,omitempty"`

	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger  *log.Logger `json:"-" bson:"-"`
	FontDir string      `json:"-" bson:"-"`
	Workers int         `json:"-" bson:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Input is the data a pipeline run works on.
type Input struct {
	Image image.Image
	Name  string   // shown in text headers, usually the image's file name
	Texts []string // one stream per text; none gives pure character art
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// ID identifies this run. Artifacts and stored records are named after it.
	ID uuid.UUID

	// Grid is the filled mosaic.
	Grid *mosaic.Grid

	// Status reports whether every word was placed.
	Status    mosaic.Status
	Placed    int
	Remaining int

	// Labels and Palette are set when Colors > 0. Labels holds one palette
	// index per cell in row-major order.
	Labels  []int
	Palette []color.RGBA

	// Artifacts contains rendered outputs keyed by format, plus one
	// LayerArtifact per stream when layers are requested.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Width         int
	Height        int
	Streams       int
	GrayscaleTime time.Duration
	FillTime      time.Duration
	PaletteTime   time.Duration
	RenderTime    time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	GrayscaleHit bool // Whether the grayscale map came from cache
	PaletteHit   bool // Whether the colour labels came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: png, txt, json, colors)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateThreshold checks that a threshold is a usable distance.
func ValidateThreshold(t float64) error {
	if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return errors.New(errors.ErrCodeInvalidInput, "invalid threshold: %v (must be a finite, non-negative number)", t)
	}
	return nil
}

// ParseFormats splits a comma-separated format list, dropping blanks and
// duplicates.
func ParseFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateSize checks the size of a prepared grid against MaxWidth and
// MaxCells, and the PNG canvas against MaxCanvasPixels when PNG output is
// requested.
func (o *Options) ValidateSize(w, h int) error {
	if w > MaxWidth {
		return errors.New(errors.ErrCodeInvalidInput, "image is %d cells wide (max %d); set a width", w, MaxWidth)
	}
	if w*h > MaxCells {
		return errors.New(errors.ErrCodeInvalidInput, "grid of %dx%d cells is too large (max %d cells)", w, h, MaxCells)
	}
	if slices.Contains(o.Formats, FormatPNG) {
		if px := w * o.CaseWidth * h * o.CaseHeight; px > MaxCanvasPixels {
			return errors.New(errors.ErrCodeInvalidInput, "PNG canvas of %d pixels is too large (max %d); lower the width or case size", px, MaxCanvasPixels)
		}
	}
	return nil
}

// FitWidth returns the largest width, at most MaxWidth and the image width,
// whose prepared grid passes ValidateSize. Call it after defaults are set.
func (o *Options) FitWidth(b image.Rectangle) int {
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return 0
	}
	cw, ch := max(o.CaseWidth, 1), max(o.CaseHeight, 1)
	// Rows per column once resized.
	ratio := float64(b.Dy()) / float64(b.Dx()) * float64(cw) / float64(ch)
	limit := float64(MaxCells)
	if slices.Contains(o.Formats, FormatPNG) {
		limit = min(limit, float64(MaxCanvasPixels)/float64(cw*ch))
	}
	w := min(b.Dx(), MaxWidth, int(math.Sqrt(limit/ratio))+1)
	for ; w > 1; w-- {
		if o.ValidateSize(raster.Size(b, w, cw, ch)) == nil {
			break
		}
	}
	return max(w, 1)
}

// ValidateAndSetDefaults checks every field and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.SetDefaults()
	if err := ValidateThreshold(*o.Threshold); err != nil {
		return err
	}
	if o.FontSize < 0 || math.IsNaN(o.FontSize) {
		return errors.New(errors.ErrCodeInvalidInput, "invalid font size: %v", o.FontSize)
	}
	if o.CaseWidth < 0 || o.CaseHeight < 0 || o.CaseWidth > MaxCaseSize || o.CaseHeight > MaxCaseSize {
		return errors.New(errors.ErrCodeInvalidInput, "invalid case size: %dx%d", o.CaseWidth, o.CaseHeight)
	}
	if o.Width < 0 || o.Width > MaxWidth {
		return errors.New(errors.ErrCodeInvalidInput, "invalid width: %d (must be between 0 and %d)", o.Width, MaxWidth)
	}
	if o.Colors < 0 || o.Colors > MaxColors {
		return errors.New(errors.ErrCodeInvalidInput, "invalid colors: %d (must be between 0 and %d)", o.Colors, MaxColors)
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Colors == 0 && slices.Contains(o.Formats, FormatColors) {
		return errors.New(errors.ErrCodeInvalidInput, "format %q needs colors > 0", FormatColors)
	}
	o.validated = true
	return nil
}

// SetDefaults fills zero-valued fields with their defaults.
func (o *Options) SetDefaults() {
	if o.Threshold == nil {
		t := DefaultThreshold
		o.Threshold = &t
	}
	if o.Font == "" {
		o.Font = DefaultFont
	}
	if o.FontSize == 0 {
		o.FontSize = DefaultFontSize
	}
	if o.CaseWidth == 0 {
		o.CaseWidth = DefaultCaseWidth
	}
	if o.CaseHeight == 0 {
		o.CaseHeight = DefaultCaseHeight
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if len(o.Formats) == 0 {
		o.Formats = slices.Clone(DefaultFormats)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// FillThreshold returns the threshold in effect.
func (o *Options) FillThreshold() float64 {
	if o.Threshold == nil {
		return DefaultThreshold
	}
	return *o.Threshold
}

// BlackBackground reports whether glyphs are drawn light on dark.
func (o *Options) BlackBackground() bool {
	return !o.WhiteBackground
}

// GrayscaleKeyOpts returns cache key options for glyph measurement.
func (o *Options) GrayscaleKeyOpts() cache.GrayscaleKeyOpts {
	return cache.GrayscaleKeyOpts{Size: o.FontSize, Box: glyph.DefaultBox}
}

// PaletteKeyOpts returns cache key options for colour clustering.
func (o *Options) PaletteKeyOpts() cache.PaletteKeyOpts {
	return cache.PaletteKeyOpts{
		Colors:     o.Colors,
		Seed:       o.Seed,
		Iterations: palette.DefaultIterations,
		SampleRate: palette.DefaultSampleRate,
	}
}
