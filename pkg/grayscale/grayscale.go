package grayscale

import (
	"encoding/json"
	"errors"
	"math"
	"slices"
	"strings"
)

var (
	// ErrEmptyAlphabet is returned by [Build] when no measurements are given.
	ErrEmptyAlphabet = errors.New("grayscale: empty alphabet")

	// ErrDuplicateChar is returned when decoding a map that lists the same
	// character twice.
	ErrDuplicateChar = errors.New("grayscale: duplicate character")
)

// Range is a closed numeric interval [Lo, Hi].
type Range struct {
	Lo, Hi float64
}

// DefaultRange matches 8-bit grayscale pixels.
var DefaultRange = Range{Lo: 0, Hi: 255}

// Ink is the measured ink coverage of one character, in [0, 1].
type Ink struct {
	Char  rune
	Ratio float64
}

// Entry is one character and its brightness.
type Entry struct {
	Char  rune    `json:"char"`
	Value float64 `json:"value"`
}

// Map is an immutable character → brightness table.
// Entries keep alphabet enumeration order.
type Map struct {
	entries []Entry
	index   map[rune]float64
	min     float64
	max     float64
}

// Build creates a Map from ink measurements listed in alphabet order.
// Duplicate ratios are discarded (first occurrence wins) and the survivors are
// rescaled linearly into r. When all survivors share one ratio they all map to r.Lo.
func Build(ink []Ink, r Range) (*Map, error) {
	if len(ink) == 0 {
		return nil, ErrEmptyAlphabet
	}

	seenRatio := make(map[float64]bool, len(ink))
	seenChar := make(map[rune]bool, len(ink))
	entries := make([]Entry, 0, len(ink))
	for _, in := range ink {
		if seenRatio[in.Ratio] || seenChar[in.Char] {
			continue
		}
		seenRatio[in.Ratio] = true
		seenChar[in.Char] = true
		entries = append(entries, Entry{Char: in.Char, Value: in.Ratio})
	}

	return newMap(entries).rescale(r), nil
}

// FromEntries creates a Map from already-normalized values, keeping their order.
// Entries are used as given; duplicates of a character are rejected.
func FromEntries(entries []Entry) (*Map, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyAlphabet
	}
	seen := make(map[rune]bool, len(entries))
	for _, e := range entries {
		if seen[e.Char] {
			return nil, ErrDuplicateChar
		}
		seen[e.Char] = true
	}
	return newMap(slices.Clone(entries)), nil
}

func newMap(entries []Entry) *Map {
	m := &Map{
		entries: entries,
		index:   make(map[rune]float64, len(entries)),
		min:     math.Inf(1),
		max:     math.Inf(-1),
	}
	for _, e := range entries {
		m.index[e.Char] = e.Value
		m.min = math.Min(m.min, e.Value)
		m.max = math.Max(m.max, e.Value)
	}
	return m
}

// rescale maps [m.min, m.max] linearly onto r.
func (m *Map) rescale(r Range) *Map {
	span := m.max - m.min
	out := make([]Entry, len(m.entries))
	for i, e := range m.entries {
		v := r.Lo
		if span > 0 {
			v = r.Lo + (e.Value-m.min)/span*(r.Hi-r.Lo)
		}
		out[i] = Entry{Char: e.Char, Value: v}
	}
	return newMap(out)
}

// Len returns the number of characters in the map.
func (m *Map) Len() int { return len(m.entries) }

// Min returns the smallest brightness value.
func (m *Map) Min() float64 { return m.min }

// Max returns the largest brightness value.
func (m *Map) Max() float64 { return m.max }

// Entries returns a copy of the entries in alphabet order.
func (m *Map) Entries() []Entry { return slices.Clone(m.entries) }

// Lookup returns the brightness of c and whether c is in the map.
func (m *Map) Lookup(c rune) (float64, bool) {
	v, ok := m.index[c]
	return v, ok
}

// LookupOrDefault returns the brightness of c, or def if c is not in the map.
func (m *Map) LookupOrDefault(c rune, def float64) float64 {
	if v, ok := m.index[c]; ok {
		return v
	}
	return def
}

// Normalize returns a copy rescaled linearly into r.
func (m *Map) Normalize(r Range) *Map {
	return m.rescale(r)
}

// Invert returns a copy with every value v replaced by max + min - v.
// It turns a light-on-dark map into a dark-on-light one and vice versa.
func (m *Map) Invert() *Map {
	out := make([]Entry, len(m.entries))
	for i, e := range m.entries {
		out[i] = Entry{Char: e.Char, Value: m.max + m.min - e.Value}
	}
	return newMap(out)
}

// Nearest returns the character whose value is closest to b, together with
// the signed difference (value - b). Ties go to the earliest entry.
func (m *Map) Nearest(b float64) (rune, float64) {
	if len(m.entries) == 0 {
		return 0, 0
	}
	first := m.entries[0]
	best, delta, dist := first.Char, first.Value-b, math.Abs(b-first.Value)
	for _, e := range m.entries[1:] {
		if d := math.Abs(b - e.Value); d < dist {
			best, delta, dist = e.Char, e.Value-b, d
		}
	}
	return best, delta
}

// Ramp returns all characters ordered from the lowest value to the highest.
func (m *Map) Ramp() string {
	sorted := slices.Clone(m.entries)
	slices.SortStableFunc(sorted, func(a, b Entry) int {
		switch {
		case a.Value < b.Value:
			return -1
		case a.Value > b.Value:
			return 1
		}
		return 0
	})
	var sb strings.Builder
	for _, e := range sorted {
		sb.WriteRune(e.Char)
	}
	return sb.String()
}

type jsonMap struct {
	Entries []Entry `json:"entries"`
}

// MarshalJSON encodes the map as an ordered entry list.
func (m *Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonMap{Entries: m.entries})
}

// UnmarshalJSON decodes a map written by MarshalJSON.
func (m *Map) UnmarshalJSON(data []byte) error {
	var in jsonMap
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	decoded, err := FromEntries(in.Entries)
	if err != nil {
		return err
	}
	*m = *decoded
	return nil
}
