// Package raster turns source images into brightness rasters.
//
// Images are decoded with EXIF auto-orientation, optionally resized so one
// pixel becomes one mosaic cell, and converted to 8-bit luminance.
package raster

import (
	"image"
	"image/color"
	"io"
	"math"
	"os"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/textmosaic/pkg/errors"
)

// Raster is a row-major 8-bit brightness image.
type Raster struct {
	Width  int
	Height int
	Pix    []uint8
}

// Open decodes the image file at path.
func Open(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "image %s not found", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidRaster, err, "decode %s", path)
	}
	return img, nil
}

// Decode reads an image from r.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRaster, err, "decode image")
	}
	return img, nil
}

// Size returns the dimensions Prepare gives an image of bounds b.
func Size(b image.Rectangle, width, caseW, caseH int) (int, int) {
	if width <= 0 || b.Dx() == 0 || b.Dy() == 0 {
		return b.Dx(), b.Dy()
	}
	if caseW <= 0 || caseH <= 0 {
		caseW, caseH = 1, 1
	}
	h := float64(b.Dy()) / float64(b.Dx()) * float64(width) * float64(caseW) / float64(caseH)
	return width, max(int(math.Round(h)), 1)
}

// Prepare resizes img to width columns. The row count keeps the picture's
// aspect ratio once every cell is drawn as a caseW x caseH box. A width of
// zero or less leaves img as is.
func Prepare(img image.Image, width, caseW, caseH int) image.Image {
	w, h := Size(img.Bounds(), width, caseW, caseH)
	if w == img.Bounds().Dx() && h == img.Bounds().Dy() {
		return img
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// FromImage converts img to luminance.
func FromImage(img image.Image) *Raster {
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	r := &Raster{Width: b.Dx(), Height: b.Dy(), Pix: make([]uint8, b.Dx()*b.Dy())}
	for y := range r.Height {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+r.Width*4]
		for x := range r.Width {
			r.Pix[y*r.Width+x] = row[x*4]
		}
	}
	return r
}

// FromRows builds a raster from equal-length rows.
func FromRows(rows [][]uint8) (*Raster, error) {
	r := &Raster{Height: len(rows)}
	if len(rows) > 0 {
		r.Width = len(rows[0])
	}
	r.Pix = make([]uint8, 0, r.Width*r.Height)
	for i, row := range rows {
		if len(row) != r.Width {
			return nil, errors.New(errors.ErrCodeInvalidRaster, "row %d has %d pixels, want %d", i, len(row), r.Width)
		}
		r.Pix = append(r.Pix, row...)
	}
	return r, nil
}

// At returns the brightness at column x, row y.
func (r *Raster) At(x, y int) uint8 {
	return r.Pix[y*r.Width+x]
}

// Rows returns views of each row. They share memory with Pix.
func (r *Raster) Rows() [][]uint8 {
	rows := make([][]uint8, r.Height)
	for y := range rows {
		rows[y] = r.Pix[y*r.Width : (y+1)*r.Width : (y+1)*r.Width]
	}
	return rows
}

// Colors returns the pixels of img in row-major order.
func Colors(img image.Image) []color.Color {
	n := imaging.Clone(img)
	b := n.Bounds()
	out := make([]color.Color, 0, b.Dx()*b.Dy())
	for y := range b.Dy() {
		for x := range b.Dx() {
			i := y*n.Stride + x*4
			out = append(out, color.NRGBA{R: n.Pix[i], G: n.Pix[i+1], B: n.Pix[i+2], A: n.Pix[i+3]})
		}
	}
	return out
}
