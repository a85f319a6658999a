package mosaic

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/matzehuels/textmosaic/pkg/grayscale"
)

// FillerStream is the stream id of synthetic single-character words written
// by the fallback fill.
const FillerStream = -1

// DefaultCharBrightness is used for characters missing from the grayscale map.
const DefaultCharBrightness = 255.0

// ErrEmptyWord is returned by [NewWord] for a zero-length text.
var ErrEmptyWord = errors.New("mosaic: empty word")

// Word is one token of a source text. Words are values and never change after
// creation.
type Word struct {
	Text       string  // the characters, in order
	Stream     int     // index of the source text, or FillerStream
	Brightness float64 // mean brightness of the characters
}

// NewWord computes the brightness of text against m and returns the word.
func NewWord(text string, stream int, m *grayscale.Map) (Word, error) {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return Word{}, ErrEmptyWord
	}
	var sum float64
	for _, c := range text {
		sum += m.LookupOrDefault(c, DefaultCharBrightness)
	}
	return Word{Text: text, Stream: stream, Brightness: sum / float64(n)}, nil
}

// Len returns the number of characters (cells) the word occupies.
func (w Word) Len() int { return utf8.RuneCountInString(w.Text) }

// IsFiller reports whether the word was synthesized by the fallback fill.
func (w Word) IsFiller() bool { return w.Stream == FillerStream }

// Tokenize splits text on whitespace and returns its words in order.
func Tokenize(text string, stream int, m *grayscale.Map) ([]Word, error) {
	fields := strings.Fields(text)
	words := make([]Word, 0, len(fields))
	for _, f := range fields {
		w, err := NewWord(f, stream, m)
		if err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	return words, nil
}
