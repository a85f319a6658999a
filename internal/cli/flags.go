package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/textmosaic/pkg/errors"
	"github.com/matzehuels/textmosaic/pkg/pipeline"
)

// mosaicFlags holds the pipeline flags shared by render, ascii, and preview.
type mosaicFlags struct {
	threshold float64
	black     bool
	font      string
	fontSize  float64
	caseSize  string
	colors    int
	width     int
	formats   string
	layers    bool
	seed      uint64
	noCache   bool
	refresh   bool
}

// register adds the flags to cmd. Output flags (format, layers) are left
// out for commands that render nothing to disk.
func (f *mosaicFlags) register(cmd *cobra.Command, withOutput bool) {
	flags := cmd.Flags()
	flags.Float64Var(&f.threshold, "threshold", pipeline.DefaultThreshold, "largest brightness distance accepted for a word")
	flags.BoolVar(&f.black, "black", true, "light glyphs on a black background (--black=false for dark on light)")
	flags.StringVar(&f.font, "font", pipeline.DefaultFont, "embedded font name or font file")
	flags.Float64Var(&f.fontSize, "font-size", pipeline.DefaultFontSize, "font size in points")
	flags.StringVar(&f.caseSize, "case-size", "15x15", "pixel size of one cell, WxH")
	flags.IntVar(&f.width, "width", 0, "columns of the mosaic (0 keeps one cell per pixel)")
	flags.IntVar(&f.colors, "colors", 0, "colour the output with this many image colours (0 = monochrome)")
	flags.Uint64Var(&f.seed, "seed", pipeline.DefaultSeed, "random seed for colour clustering")
	flags.BoolVar(&f.noCache, "no-cache", false, "disable caching")
	flags.BoolVar(&f.refresh, "refresh", false, "recompute cached grayscale maps and palettes")
	if withOutput {
		flags.StringVarP(&f.formats, "format", "f", "", "output format(s): png, txt (default both), json, colors (comma-separated)")
		flags.BoolVar(&f.layers, "layers", false, "also write one text layer per source text")
	}
}

// options builds pipeline options from the config file, then overrides them
// with every flag the user set explicitly.
func (f *mosaicFlags) options(cmd *cobra.Command, c *CLI) (pipeline.Options, error) {
	var opts pipeline.Options
	c.config.Apply(&opts)
	opts.Logger = c.Logger
	opts.Refresh = f.refresh

	flags := cmd.Flags()
	if flags.Changed("threshold") {
		t := f.threshold
		opts.Threshold = &t
	}
	if flags.Changed("black") {
		opts.WhiteBackground = !f.black
	}
	if flags.Changed("font") {
		opts.Font = f.font
	}
	if flags.Changed("font-size") {
		opts.FontSize = f.fontSize
	}
	if flags.Changed("case-size") {
		w, h, err := parseCaseSize(f.caseSize)
		if err != nil {
			return opts, err
		}
		opts.CaseWidth, opts.CaseHeight = w, h
	}
	if flags.Changed("width") {
		opts.Width = f.width
	}
	if flags.Changed("colors") {
		opts.Colors = f.colors
	}
	if flags.Changed("seed") {
		opts.Seed = f.seed
	}
	if flags.Changed("format") {
		opts.Formats = pipeline.ParseFormats(f.formats)
	}
	if flags.Changed("layers") {
		opts.Layers = f.layers
	}

	if err := opts.ValidateAndSetDefaults(); err != nil {
		return opts, err
	}
	return opts, nil
}

// parseCaseSize parses "WxH", e.g. "10x18".
func parseCaseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, errors.New(errors.ErrCodeInvalidInput, "invalid case size %q (want WxH, e.g. 15x15)", s)
	}
	w, errW := strconv.Atoi(ws)
	h, errH := strconv.Atoi(hs)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, errors.New(errors.ErrCodeInvalidInput, "invalid case size %q (want positive WxH, e.g. 15x15)", s)
	}
	return w, h, nil
}
