package mosaic

import (
	"io"
	"runtime"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/textmosaic/pkg/grayscale"
)

// Status reports whether every word of every text was placed.
type Status int

const (
	// StatusComplete means the pool was exhausted.
	StatusComplete Status = iota
	// StatusInsufficientCapacity means the grid ran out of room or no
	// remaining word fit under the threshold.
	StatusInsufficientCapacity
)

func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusInsufficientCapacity:
		return "insufficient capacity"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Option configures [Grid.Fill] and [FillGrid].
type Option func(*config)

type config struct {
	logger  *log.Logger
	workers int
}

func newConfig(opts []Option) config {
	cfg := config{
		logger:  log.New(io.Discard),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithLogger sets the logger for per-row debug output.
func WithLogger(l *log.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithWorkers bounds the goroutines used by the fallback fill. Values below
// one mean one.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = max(n, 1)
	}
}

// Result is the outcome of [FillGrid].
type Result struct {
	Grid      *Grid
	Status    Status
	Placed    int // words committed, filler excluded
	Remaining int // words left in the pool
}

// FillGrid tokenizes texts, fills a grid built from rows and returns it.
//
// When blackBackground is false, m is inverted before tokenizing so that dense
// characters land on dark pixels. A shortfall is reported through
// Result.Status, not as an error.
func FillGrid(rows [][]uint8, texts []string, m *grayscale.Map, threshold float64, blackBackground bool, opts ...Option) (*Result, error) {
	if m == nil {
		return nil, ErrNilMap
	}
	if !blackBackground {
		m = m.Invert()
	}

	g, err := NewGrid(rows)
	if err != nil {
		return nil, err
	}
	pool, err := NewPoolFromTexts(texts, m)
	if err != nil {
		return nil, err
	}

	status, err := g.Fill(pool, m, threshold, opts...)
	if err != nil {
		return nil, err
	}
	return &Result{
		Grid:      g,
		Status:    status,
		Placed:    len(g.placements),
		Remaining: pool.Remaining(),
	}, nil
}
