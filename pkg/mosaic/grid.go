package mosaic

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/textmosaic/pkg/grayscale"
)

const (
	brightnessWeight = 1.0
	gapWeight        = 0.8
)

var (
	// ErrRaggedRaster is returned by [NewGrid] when rows differ in length.
	ErrRaggedRaster = errors.New("mosaic: rows differ in length")

	// ErrNilMap is returned when a grayscale map is required but missing.
	ErrNilMap = errors.New("mosaic: nil grayscale map")
)

// Owner describes the word a placed cell belongs to.
type Owner struct {
	Stream     int      `json:"stream"`
	Text       string   `json:"text"`
	Brightness float64  `json:"brightness"`
	Start      Position `json:"start"`
}

// Cell is one raster position. Value is the source brightness and stays set
// after placement.
type Cell struct {
	Value  float64
	Placed bool
	Char   rune
	Owner  Owner
}

// Placement is a committed word and where it starts.
type Placement struct {
	Word Word     `json:"word"`
	Pos  Position `json:"pos"`
}

// Grid is a rectangular raster of cells, filled in place by [Grid.Fill].
type Grid struct {
	width, height int
	cells         []Cell
	placements    []Placement
}

// NewGrid creates a grid of unplaced cells from 8-bit brightness rows.
// Zero rows, or rows of zero length, give an empty grid.
func NewGrid(rows [][]uint8) (*Grid, error) {
	h := len(rows)
	w := 0
	if h > 0 {
		w = len(rows[0])
	}
	for i, r := range rows {
		if len(r) != w {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrRaggedRaster, i, len(r), w)
		}
	}
	if w == 0 {
		h = 0
	}

	g := &Grid{width: w, height: h, cells: make([]Cell, w*h)}
	for y, r := range rows[:h] {
		for x, v := range r {
			g.cells[y*w+x] = Cell{Value: float64(v)}
		}
	}
	return g, nil
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// At returns the cell at p. It panics when p is outside the grid.
func (g *Grid) At(p Position) Cell {
	if p.Row < 0 || p.Row >= g.height || p.Col < 0 || p.Col >= g.width {
		panic(fmt.Sprintf("mosaic: position %v outside %dx%d grid", p, g.width, g.height))
	}
	return g.cells[p.Row*g.width+p.Col]
}

// Placements returns the committed words in commit order. Filler words are
// not included.
func (g *Grid) Placements() []Placement { return slices.Clone(g.placements) }

// Chars returns the grid as rows of characters. Unplaced cells read as spaces.
func (g *Grid) Chars() [][]rune {
	out := make([][]rune, g.height)
	for y := range out {
		row := make([]rune, g.width)
		for x := range row {
			c := g.cells[y*g.width+x]
			if c.Placed {
				row[x] = c.Char
			} else {
				row[x] = ' '
			}
		}
		out[y] = row
	}
	return out
}

// String returns the grid as text, one line per row, each ending in '\n'.
func (g *Grid) String() string {
	var sb strings.Builder
	sb.Grow((g.width + 1) * g.height)
	for _, row := range g.Chars() {
		sb.WriteString(string(row))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Streams returns the distinct stream ids of placed cells in ascending order,
// FillerStream included when present.
func (g *Grid) Streams() []int {
	seen := make(map[int]bool)
	for _, c := range g.cells {
		if c.Placed {
			seen[c.Owner.Stream] = true
		}
	}
	out := make([]int, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// Layer returns the grid restricted to one stream: cells owned by stream keep
// their character, every other cell is a space.
func (g *Grid) Layer(stream int) [][]rune {
	out := make([][]rune, g.height)
	for y := range out {
		row := make([]rune, g.width)
		for x := range row {
			c := g.cells[y*g.width+x]
			if c.Placed && c.Owner.Stream == stream {
				row[x] = c.Char
			} else {
				row[x] = ' '
			}
		}
		out[y] = row
	}
	return out
}

// Fill runs the placement loop over every row and then the fallback fill.
// Afterwards every cell is placed. The status reports whether the pool was
// fully consumed.
func (g *Grid) Fill(pool *Pool, m *grayscale.Map, threshold float64, opts ...Option) (Status, error) {
	if m == nil {
		return StatusInsufficientCapacity, ErrNilMap
	}
	cfg := newConfig(opts)

	for row := 0; row < g.height && !pool.IsExhausted(); row++ {
		n, err := g.fillRow(row, pool, threshold)
		if err != nil {
			return StatusInsufficientCapacity, err
		}
		cfg.logger.Debug("row scanned", "row", row, "placed", n, "remaining", pool.Remaining())
	}

	if err := g.fallback(m, cfg.workers); err != nil {
		return StatusInsufficientCapacity, err
	}

	if pool.IsExhausted() {
		return StatusComplete, nil
	}
	cfg.logger.Debug("pool not exhausted", "remaining", pool.Remaining())
	return StatusInsufficientCapacity, nil
}

type candidate struct {
	stream int
	pos    Position
	score  float64
}

// fillRow commits the best candidate on row until none is left.
func (g *Grid) fillRow(row int, pool *Pool, threshold float64) (int, error) {
	placed := 0
	for {
		best, ok := g.bestCandidate(row, pool, threshold)
		if !ok {
			return placed, nil
		}
		w, err := pool.Commit(best.stream, best.pos)
		if err != nil {
			return placed, err
		}
		g.place(w, best.pos)
		placed++
	}
}

// bestCandidate scans every eligible (head word, column) pair of row and
// returns the first one with the strictly lowest score.
func (g *Grid) bestCandidate(row int, pool *Pool, threshold float64) (candidate, bool) {
	free := g.freeRuns(row)
	best := candidate{score: math.Inf(1)}
	found := false

	for _, c := range pool.Next() {
		n := c.Word.Len()
		prev := -1
		for col := 0; col+n <= g.width; col++ {
			if col > 0 {
				if left := g.cells[row*g.width+col-1]; left.Placed && left.Owner.Stream == c.Stream {
					prev = col - 1
				}
			}
			if free[col] < n {
				continue
			}
			pos := Position{Row: row, Col: col}
			if !pool.Eligible(c.Stream, pos) {
				continue
			}
			dist := g.brightnessDistance(pos, c.Word)
			if math.IsInf(dist, 1) || dist > threshold {
				continue
			}
			score := brightnessWeight*dist + gapWeight*float64(col-prev)
			if score < best.score {
				best = candidate{stream: c.Stream, pos: pos, score: score}
				found = true
			}
		}
	}
	return best, found
}

// freeRuns returns, for every column of row, the number of consecutive
// unplaced cells starting there.
func (g *Grid) freeRuns(row int) []int {
	runs := make([]int, g.width+1)
	base := row * g.width
	for col := g.width - 1; col >= 0; col-- {
		if !g.cells[base+col].Placed {
			runs[col] = runs[col+1] + 1
		}
	}
	return runs[:g.width]
}

// brightnessDistance is |mean of unplaced cell values in the span - w.Brightness|.
// It is +Inf when the span has no unplaced cell or leaves the row.
func (g *Grid) brightnessDistance(p Position, w Word) float64 {
	n := w.Len()
	if p.Col < 0 || p.Col+n > g.width {
		return math.Inf(1)
	}
	var sum float64
	var count int
	base := p.Row*g.width + p.Col
	for i := range n {
		if c := g.cells[base+i]; !c.Placed {
			sum += c.Value
			count++
		}
	}
	if count == 0 {
		return math.Inf(1)
	}
	return math.Abs(sum/float64(count) - w.Brightness)
}

func (g *Grid) place(w Word, p Position) {
	owner := Owner{Stream: w.Stream, Text: w.Text, Brightness: w.Brightness, Start: p}
	base := p.Row*g.width + p.Col
	i := 0
	for _, r := range w.Text {
		c := &g.cells[base+i]
		c.Placed = true
		c.Char = r
		c.Owner = owner
		i++
	}
	g.placements = append(g.placements, Placement{Word: w, Pos: p})
}

// fallback writes the nearest single character into every unplaced cell.
// Rows are independent, so they are filled concurrently.
func (g *Grid) fallback(m *grayscale.Map, workers int) error {
	var table [256]Word
	for v := range table {
		c, _ := m.Nearest(float64(v))
		table[v] = Word{
			Text:       string(c),
			Stream:     FillerStream,
			Brightness: m.LookupOrDefault(c, DefaultCharBrightness),
		}
	}

	var eg errgroup.Group
	eg.SetLimit(workers)
	for row := range g.height {
		eg.Go(func() error {
			base := row * g.width
			for col := range g.width {
				c := &g.cells[base+col]
				if c.Placed {
					continue
				}
				w := table[clampByte(c.Value)]
				c.Placed = true
				c.Char = []rune(w.Text)[0]
				c.Owner = Owner{
					Stream:     FillerStream,
					Text:       w.Text,
					Brightness: w.Brightness,
					Start:      Position{Row: row, Col: col},
				}
			}
			return nil
		})
	}
	return eg.Wait()
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(math.Round(v))
}
