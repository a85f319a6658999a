// Package sink turns a filled [mosaic.Grid] into output artifacts.
//
// # Overview
//
// A "sink" renders a grid into one output format. This package provides:
//
//   - PNG: every cell drawn as its character in a fixed-size case
//   - Text: the character grid, optionally preceded by a settings header
//   - Colors: one (r, g, b) tuple per cell, aligned with the text rows
//   - JSON: grid rows plus every word placement, for external tools
//   - Layers: one text grid per source stream
//
// # PNG Output
//
// [RenderPNG] draws with fogleman/gg using a TrueType face:
//
//	png, err := sink.RenderPNG(grid,
//	    sink.WithFont(fonts.Default(), 12),
//	    sink.WithCase(15, 15),
//	    sink.WithColors(labels, palette),
//	)
//
// On a black background characters are white; otherwise they are black on
// white. [WithColors] replaces the single foreground colour with one palette
// entry per cell, as produced by the palette package.
//
// # Text Output
//
// [RenderText] writes the grid one row per line. With a [Header] the file
// starts with the image name, font, background flag and case size, followed
// by a blank line.
//
// [mosaic.Grid]: github.com/matzehuels/textmosaic/pkg/mosaic.Grid
package sink
