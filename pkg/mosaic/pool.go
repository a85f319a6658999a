package mosaic

import (
	"errors"
	"fmt"
	"slices"

	"github.com/matzehuels/textmosaic/pkg/grayscale"
)

var (
	// ErrUnknownStream is returned by [Pool.Commit] for a stream id that does
	// not exist.
	ErrUnknownStream = errors.New("mosaic: unknown stream")

	// ErrStreamExhausted is returned by [Pool.Commit] when the stream has no
	// words left.
	ErrStreamExhausted = errors.New("mosaic: stream exhausted")

	// ErrOutOfOrder is returned by [Pool.Commit] when the position is not
	// strictly after the stream's previous placement.
	ErrOutOfOrder = errors.New("mosaic: position not after previous placement")
)

// Position is a raster cell address. Positions order row-major.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Origin sorts before every cell of the raster.
var Origin = Position{Row: -1, Col: -1}

// After reports whether p comes strictly after q in row-major order.
func (p Position) After(q Position) bool {
	return p.Row > q.Row || (p.Row == q.Row && p.Col > q.Col)
}

// Candidate is the head word of one stream as seen from a position.
type Candidate struct {
	Stream   int
	Word     Word
	Eligible bool
}

// Pool holds one ordered queue of words per source text and the position at
// which each text last placed a word.
//
// The ordering rule lives here: a stream's head may only be committed at a
// position strictly after its last one.
type Pool struct {
	queues    [][]Word
	last      []Position
	remaining int
}

// NewPool creates a pool from per-stream word lists. The slices are copied.
func NewPool(streams [][]Word) *Pool {
	p := &Pool{
		queues: make([][]Word, len(streams)),
		last:   make([]Position, len(streams)),
	}
	for i, s := range streams {
		p.queues[i] = slices.Clone(s)
		p.last[i] = Origin
		p.remaining += len(s)
	}
	return p
}

// NewPoolFromTexts tokenizes every text against m, one stream per text in
// the given order.
func NewPoolFromTexts(texts []string, m *grayscale.Map) (*Pool, error) {
	streams := make([][]Word, len(texts))
	for i, text := range texts {
		words, err := Tokenize(text, i, m)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		streams[i] = words
	}
	return NewPool(streams), nil
}

// Streams returns the number of streams, exhausted ones included.
func (p *Pool) Streams() int { return len(p.queues) }

// Remaining returns the number of words not yet committed.
func (p *Pool) Remaining() int { return p.remaining }

// IsExhausted reports whether every stream is empty.
func (p *Pool) IsExhausted() bool { return p.remaining == 0 }

// Last returns the position of the stream's previous commit, or Origin.
func (p *Pool) Last(stream int) Position {
	if stream < 0 || stream >= len(p.last) {
		return Origin
	}
	return p.last[stream]
}

// Next returns the head word of every non-exhausted stream, in stream order.
// All candidates are marked eligible.
func (p *Pool) Next() []Candidate {
	out := make([]Candidate, 0, len(p.queues))
	for s, q := range p.queues {
		if len(q) == 0 {
			continue
		}
		out = append(out, Candidate{Stream: s, Word: q[0], Eligible: true})
	}
	return out
}

// NextAt returns the head word of every non-exhausted stream, marking which
// of them may be placed at pos.
func (p *Pool) NextAt(pos Position) []Candidate {
	out := make([]Candidate, 0, len(p.queues))
	for s, q := range p.queues {
		if len(q) == 0 {
			continue
		}
		out = append(out, Candidate{Stream: s, Word: q[0], Eligible: pos.After(p.last[s])})
	}
	return out
}

// Eligible reports whether the head of stream may be placed at pos.
func (p *Pool) Eligible(stream int, pos Position) bool {
	if stream < 0 || stream >= len(p.queues) || len(p.queues[stream]) == 0 {
		return false
	}
	return pos.After(p.last[stream])
}

// Commit pops the head of stream and records pos as its last position.
func (p *Pool) Commit(stream int, pos Position) (Word, error) {
	if stream < 0 || stream >= len(p.queues) {
		return Word{}, fmt.Errorf("%w: %d", ErrUnknownStream, stream)
	}
	q := p.queues[stream]
	if len(q) == 0 {
		return Word{}, fmt.Errorf("%w: %d", ErrStreamExhausted, stream)
	}
	if !pos.After(p.last[stream]) {
		return Word{}, fmt.Errorf("%w: stream %d at %v, last %v", ErrOutOfOrder, stream, pos, p.last[stream])
	}
	w := q[0]
	p.queues[stream] = q[1:]
	p.last[stream] = pos
	p.remaining--
	return w, nil
}
