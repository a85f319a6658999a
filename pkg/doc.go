// Package pkg provides the core libraries for Textmosaic.
//
// # Overview
//
// Textmosaic draws an image with the words of one or more texts. Every word
// is placed, in reading order, on the cells whose brightness best matches the
// word's own ink density; the remaining cells are filled with the single
// character closest to their brightness. The pkg directory is organized
// into three areas:
//
//  1. Domain logic: [glyph], [grayscale], [mosaic], [palette]
//  2. Input and output: [raster], [fonts], [sink]
//  3. Infrastructure: [pipeline], [cache], [store], [config], [observability], [errors]
//
// # Architecture
//
// The typical data flow through Textmosaic:
//
//	Font + size
//	     ↓
//	[glyph] measures ink per character → [grayscale] map
//	     ↓
//	Image → [raster] resize + gray rows
//	     ↓
//	[mosaic] places words, then fills the gaps
//	     ↓
//	[palette] optional colour labels
//	     ↓
//	[sink] PNG / text / JSON / colour output
//
// [pipeline] runs these steps with caching, hooks and validation. The CLI
// and the HTTP server both go through it.
//
// # Quick Start
//
//	img, _ := raster.Open("cat.jpg")
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil)
//	res, err := runner.Execute(ctx, pipeline.Options{Width: 120}, pipeline.Input{
//	    Image: img,
//	    Name:  "cat.jpg",
//	    Texts: []string{poem},
//	})
//	if err != nil {
//	    return err
//	}
//	os.WriteFile("cat.png", res.Artifacts[pipeline.FormatPNG], 0o644)
//
// Lower-level use, without the pipeline:
//
//	m, _ := glyph.Grayscale(ctx, fonts.Default(), 12)
//	filled, _ := mosaic.FillGrid(rows, []string{poem}, m, 100, true)
//	fmt.Print(string(sink.RenderText(filled.Grid, nil)))
//
// # Testing
//
//	go test ./...
package pkg
