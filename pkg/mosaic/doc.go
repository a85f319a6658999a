// Package mosaic places the words of several texts onto a brightness raster.
//
// # Overview
//
// The output is a character grid in which every cell holds a character whose
// ink density approximates the brightness of the matching source pixel, while
// each source text still reads in its original order, left to right and top to
// bottom. Several texts interleave on the same grid.
//
// The package has four parts:
//
//   - [Word]: a token of one text with its mean brightness
//   - [Pool]: one FIFO queue of words per text plus the last position each
//     text was placed at
//   - [Grid]: the raster, the placement loop and the fallback fill
//   - [FillGrid]: the one-call entry point tying them together
//
// # Placement
//
// Rows are processed top to bottom. Within a row the engine repeatedly looks
// at the head word of every text and at every free run of cells long enough
// to hold it, and commits the single best (word, position) pair. A candidate
// scores
//
//	score = 1.0*|mean(cells) - word.Brightness| + 0.8*gap
//
// where gap is the distance back to the previous word of the same text on the
// row (or to the row start). Candidates whose brightness distance exceeds the
// threshold are rejected; when nothing survives the row is left as is.
// Candidates are enumerated in text order, then left to right, and the first
// strictly lowest score wins, so results are deterministic.
//
// A text's head word is only eligible at positions strictly after (in
// row-major order) where that text last placed a word. This keeps each text
// readable even though texts share the grid.
//
// # Fallback fill
//
// After the scan every cell still holding a raw brightness gets the single
// character nearest in brightness, owned by a synthetic word of stream
// [FillerStream]. After [Grid.Fill] returns no unplaced cell remains.
//
// # Completion
//
// If every text was fully placed the result is [StatusComplete], otherwise
// [StatusInsufficientCapacity]. A shortfall is a normal outcome, not an error:
// the partial mosaic is still usable and callers decide whether to retry with
// a larger grid or a looser threshold.
//
// # Concurrency
//
// Word commits are strictly serial in row-major order. The fallback fill is
// row-parallel (see [WithWorkers]) since each row only writes its own cells.
// A Grid and its Pool must not be used from several goroutines at once.
package mosaic
