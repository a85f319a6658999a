package mosaic

import (
	"errors"
	"testing"

	"github.com/matzehuels/textmosaic/pkg/grayscale"
)

func testMap(t *testing.T, entries ...grayscale.Entry) *grayscale.Map {
	t.Helper()
	m, err := grayscale.FromEntries(entries)
	if err != nil {
		t.Fatalf("FromEntries() error: %v", err)
	}
	return m
}

func TestNewWord(t *testing.T) {
	m := testMap(t,
		grayscale.Entry{Char: 'a', Value: 0},
		grayscale.Entry{Char: 'b', Value: 255},
		grayscale.Entry{Char: 'c', Value: 100},
	)

	tests := []struct {
		name string
		text string
		want float64
	}{
		{"mean", "ab", 127.5},
		{"single", "c", 100},
		{"missing char defaults to 255", "a?", 127.5},
		{"all missing", "??", 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWord(tt.text, 3, m)
			if err != nil {
				t.Fatalf("NewWord() error: %v", err)
			}
			if w.Brightness != tt.want {
				t.Errorf("Brightness = %v, want %v", w.Brightness, tt.want)
			}
			if w.Stream != 3 {
				t.Errorf("Stream = %d, want 3", w.Stream)
			}
		})
	}
}

func TestNewWordEmpty(t *testing.T) {
	m := testMap(t, grayscale.Entry{Char: 'a', Value: 0})
	if _, err := NewWord("", 0, m); !errors.Is(err, ErrEmptyWord) {
		t.Errorf("NewWord(\"\") error = %v, want ErrEmptyWord", err)
	}
}

func TestWordLenCountsRunes(t *testing.T) {
	w := Word{Text: "héllo"}
	if w.Len() != 5 {
		t.Errorf("Len() = %d, want 5", w.Len())
	}
}

func TestTokenize(t *testing.T) {
	m := testMap(t, grayscale.Entry{Char: 'a', Value: 0})
	words, err := Tokenize("  the quick\n\tbrown  fox ", 1, m)
	if err != nil {
		t.Fatalf("Tokenize() error: %v", err)
	}
	want := []string{"the", "quick", "brown", "fox"}
	if len(words) != len(want) {
		t.Fatalf("got %d words, want %d", len(words), len(want))
	}
	for i, w := range words {
		if w.Text != want[i] {
			t.Errorf("word %d = %q, want %q", i, w.Text, want[i])
		}
		if w.Stream != 1 {
			t.Errorf("word %d stream = %d, want 1", i, w.Stream)
		}
	}
}

func TestTokenizeBlank(t *testing.T) {
	m := testMap(t, grayscale.Entry{Char: 'a', Value: 0})
	words, err := Tokenize(" \n\t ", 0, m)
	if err != nil {
		t.Fatalf("Tokenize() error: %v", err)
	}
	if len(words) != 0 {
		t.Errorf("got %d words, want 0", len(words))
	}
}
