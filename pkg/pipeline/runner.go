package pipeline

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/matzehuels/textmosaic/pkg/cache"
	"github.com/matzehuels/textmosaic/pkg/errors"
	"github.com/matzehuels/textmosaic/pkg/fonts"
	"github.com/matzehuels/textmosaic/pkg/glyph"
	"github.com/matzehuels/textmosaic/pkg/grayscale"
	"github.com/matzehuels/textmosaic/pkg/mosaic"
	"github.com/matzehuels/textmosaic/pkg/observability"
	"github.com/matzehuels/textmosaic/pkg/palette"
	"github.com/matzehuels/textmosaic/pkg/raster"
)

// Cache key types reported to observability hooks.
const (
	keyTypeGrayscale = "grayscale"
	keyTypePalette   = "palette"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete grayscale → fill → palette → render pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options, in Input) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if in.Image == nil {
		return nil, errors.New(errors.ErrCodeInvalidRaster, "no image given")
	}

	w, h := raster.Size(in.Image.Bounds(), opts.Width, opts.CaseWidth, opts.CaseHeight)
	if err := opts.ValidateSize(w, h); err != nil {
		return nil, err
	}

	result := &Result{ID: uuid.New()}
	hooks := observability.Pipeline()

	// Stage 1: Grayscale
	start := time.Now()
	hooks.OnGrayscaleStart(ctx, opts.Font, opts.FontSize)
	m, hit, err := r.Grayscale(ctx, opts)
	result.Stats.GrayscaleTime = time.Since(start)
	hooks.OnGrayscaleComplete(ctx, opts.Font, opts.FontSize, hit, result.Stats.GrayscaleTime, err)
	if err != nil {
		return nil, fmt.Errorf("grayscale: %w", err)
	}
	result.CacheInfo.GrayscaleHit = hit

	opts.Logger.Debug("grayscale map ready",
		"font", opts.Font,
		"chars", m.Len(),
		"cached", hit,
		"duration", result.Stats.GrayscaleTime)

	// Stage 2: Fill
	img := raster.Prepare(in.Image, opts.Width, opts.CaseWidth, opts.CaseHeight)
	rows := raster.FromImage(img).Rows()

	start = time.Now()
	hooks.OnFillStart(ctx, img.Bounds().Dx(), img.Bounds().Dy(), len(in.Texts))
	fillOpts := []mosaic.Option{mosaic.WithLogger(opts.Logger)}
	if opts.Workers > 0 {
		fillOpts = append(fillOpts, mosaic.WithWorkers(opts.Workers))
	}
	filled, err := mosaic.FillGrid(rows, in.Texts, m, opts.FillThreshold(), opts.BlackBackground(), fillOpts...)
	result.Stats.FillTime = time.Since(start)
	if err != nil {
		hooks.OnFillComplete(ctx, 0, "", result.Stats.FillTime, err)
		return nil, fillError(err)
	}
	hooks.OnFillComplete(ctx, filled.Placed, filled.Status.String(), result.Stats.FillTime, nil)

	result.Grid = filled.Grid
	result.Status = filled.Status
	result.Placed = filled.Placed
	result.Remaining = filled.Remaining
	result.Stats.Width = filled.Grid.Width()
	result.Stats.Height = filled.Grid.Height()
	result.Stats.Streams = len(in.Texts)

	opts.Logger.Info("filled grid",
		"width", result.Stats.Width,
		"height", result.Stats.Height,
		"placed", filled.Placed,
		"remaining", filled.Remaining,
		"status", filled.Status,
		"duration", result.Stats.FillTime)

	// Stage 3: Palette
	if opts.Colors > 0 {
		start = time.Now()
		hooks.OnPaletteStart(ctx, opts.Colors)
		labels, colors, hit, err := r.Palette(ctx, img, opts)
		result.Stats.PaletteTime = time.Since(start)
		hooks.OnPaletteComplete(ctx, len(colors), hit, result.Stats.PaletteTime, err)
		if err != nil {
			return nil, fmt.Errorf("palette: %w", err)
		}
		result.Labels, result.Palette = labels, colors
		result.CacheInfo.PaletteHit = hit

		opts.Logger.Info("clustered colors",
			"colors", len(colors),
			"cached", hit,
			"duration", result.Stats.PaletteTime)
	}

	// Stage 4: Render
	start = time.Now()
	hooks.OnRenderStart(ctx, opts.Formats)
	artifacts, err := r.Render(result, in.Name, opts)
	result.Stats.RenderTime = time.Since(start)
	hooks.OnRenderComplete(ctx, opts.Formats, result.Stats.RenderTime, err)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts

	opts.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Grayscale returns the character brightness map of opts.Font at
// opts.FontSize, measuring it on a cache miss. The cached map is the
// measured one; inversion for white backgrounds happens at fill time.
func (r *Runner) Grayscale(ctx context.Context, opts Options) (*grayscale.Map, bool, error) {
	opts.SetDefaults()
	r.applyLogger(&opts)

	data, err := fonts.Load(opts.Font, opts.FontDir)
	if err != nil {
		return nil, false, err
	}
	key := r.Keyer.GrayscaleKey(fonts.Hash(data), opts.GrayscaleKeyOpts())

	if !opts.Refresh {
		if cached, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var m grayscale.Map
			if err := json.Unmarshal(cached, &m); err == nil {
				observability.Cache().OnCacheHit(ctx, keyTypeGrayscale)
				return &m, true, nil
			}
			// If deserialization fails, fall through to remeasure
		}
		observability.Cache().OnCacheMiss(ctx, keyTypeGrayscale)
	}

	measureOpts := []glyph.Option{glyph.WithLogger(opts.Logger)}
	if opts.Workers > 0 {
		measureOpts = append(measureOpts, glyph.WithWorkers(opts.Workers))
	}
	m, err := glyph.Grayscale(ctx, data, opts.FontSize, measureOpts...)
	if err != nil {
		return nil, false, err
	}

	if encoded, err := json.Marshal(m); err == nil {
		if err := r.Cache.Set(ctx, key, encoded, cache.TTLGrayscale); err == nil {
			observability.Cache().OnCacheSet(ctx, keyTypeGrayscale, len(encoded))
		}
	}
	return m, false, nil
}

// cachedPalette is the cache encoding of a clustering result.
type cachedPalette struct {
	Labels  []int        `json:"labels"`
	Palette []color.RGBA `json:"palette"`
}

// Palette clusters the colours of img, which must already be prepared to
// the grid size, into at most opts.Colors colours.
func (r *Runner) Palette(ctx context.Context, img image.Image, opts Options) ([]int, []color.RGBA, bool, error) {
	opts.SetDefaults()

	pixels := imaging.Clone(img)
	key := r.Keyer.PaletteKey(cache.Hash(pixels.Pix), opts.PaletteKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var c cachedPalette
			if err := json.Unmarshal(data, &c); err == nil && len(c.Labels) == len(pixels.Pix)/4 {
				observability.Cache().OnCacheHit(ctx, keyTypePalette)
				return c.Labels, c.Palette, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, keyTypePalette)
	}

	labels, colors, err := palette.AssignColors(raster.Colors(pixels), opts.Colors,
		palette.WithSeed(opts.Seed))
	if err != nil {
		return nil, nil, false, errors.Wrap(errors.ErrCodeInvalidInput, err, "cluster colors")
	}

	if data, err := json.Marshal(cachedPalette{Labels: labels, Palette: colors}); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLPalette); err == nil {
			observability.Cache().OnCacheSet(ctx, keyTypePalette, len(data))
		}
	}
	return labels, colors, false, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// fillError attaches an error code to the core package's sentinel errors.
func fillError(err error) error {
	switch {
	case stderrors.Is(err, mosaic.ErrEmptyWord):
		return errors.Wrap(errors.ErrCodeEmptyWord, err, "fill grid")
	case stderrors.Is(err, mosaic.ErrRaggedRaster):
		return errors.Wrap(errors.ErrCodeInvalidRaster, err, "fill grid")
	default:
		return errors.Wrap(errors.ErrCodeInternal, err, "fill grid")
	}
}
