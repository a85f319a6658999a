package pipeline

import (
	"fmt"
	"strconv"

	"github.com/matzehuels/textmosaic/pkg/errors"
	"github.com/matzehuels/textmosaic/pkg/fonts"
	"github.com/matzehuels/textmosaic/pkg/mosaic"
	"github.com/matzehuels/textmosaic/pkg/sink"
)

// layerPrefix starts the artifact key of every per-stream layer.
const layerPrefix = "layer-"

// LayerArtifact returns the artifact key of one stream's layer.
func LayerArtifact(stream int) string {
	if stream == mosaic.FillerStream {
		return layerPrefix + "filler"
	}
	return layerPrefix + strconv.Itoa(stream)
}

// Extension returns the file extension of an artifact key.
func Extension(artifact string) string {
	switch artifact {
	case FormatPNG:
		return "png"
	case FormatJSON:
		return "json"
	case FormatColors:
		return "colors.txt"
	}
	// Text and layers
	return "txt"
}

// Render generates output artifacts in the requested formats from a filled
// result. name labels the text header.
func (r *Runner) Render(res *Result, name string, opts Options) (map[string][]byte, error) {
	if res == nil || res.Grid == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nothing to render")
	}
	opts.SetDefaults()

	header := &sink.Header{
		Name:            name,
		Font:            opts.Font,
		FontSize:        opts.FontSize,
		BlackBackground: opts.BlackBackground(),
		CaseWidth:       opts.CaseWidth,
		CaseHeight:      opts.CaseHeight,
	}
	artifacts := make(map[string][]byte, len(opts.Formats))

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatPNG:
			data, err = renderPNG(res, opts)
		case FormatText:
			data = sink.RenderText(res.Grid, header)
		case FormatJSON:
			data, err = sink.RenderJSON(res.Grid, sink.WithJSONStatus(res.Status), sink.WithJSONHeader(*header))
		case FormatColors:
			data, err = sink.RenderColors(res.Labels, res.Palette, res.Grid.Width())
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}

	if opts.Layers {
		for stream, data := range sink.RenderLayers(res.Grid) {
			artifacts[LayerArtifact(stream)] = data
		}
	}
	return artifacts, nil
}

func renderPNG(res *Result, opts Options) ([]byte, error) {
	data, err := fonts.Load(opts.Font, opts.FontDir)
	if err != nil {
		return nil, err
	}
	pngOpts := []sink.PNGOption{
		sink.WithFont(data, opts.FontSize),
		sink.WithCase(opts.CaseWidth, opts.CaseHeight),
		sink.WithBlackBackground(opts.BlackBackground()),
	}
	if res.Labels != nil {
		pngOpts = append(pngOpts, sink.WithColors(res.Labels, res.Palette))
	}
	return sink.RenderPNG(res.Grid, pngOpts...)
}
