package cache

// Keyer builds cache keys for each cached pipeline stage.
type Keyer interface {
	// GrayscaleKey identifies the grayscale map of one font at one size.
	GrayscaleKey(fontHash string, opts GrayscaleKeyOpts) string

	// PaletteKey identifies the colour labels of one prepared image.
	PaletteKey(pixelsHash string, opts PaletteKeyOpts) string
}

// GrayscaleKeyOpts holds the measurement settings that change a grayscale map.
type GrayscaleKeyOpts struct {
	Size float64 `json:"size"`
	Box  int     `json:"box,omitempty"`
}

// PaletteKeyOpts holds the clustering settings that change a palette.
type PaletteKeyOpts struct {
	Colors     int     `json:"colors"`
	Seed       uint64  `json:"seed"`
	Iterations int     `json:"iterations,omitempty"`
	SampleRate float64 `json:"sample_rate,omitempty"`
}

// DefaultKeyer hashes every key component into a fixed-length key.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// GrayscaleKey returns "grayscale:<sha256>".
func (DefaultKeyer) GrayscaleKey(fontHash string, opts GrayscaleKeyOpts) string {
	return hashKey("grayscale", fontHash, opts)
}

// PaletteKey returns "palette:<sha256>".
func (DefaultKeyer) PaletteKey(pixelsHash string, opts PaletteKeyOpts) string {
	return hashKey("palette", pixelsHash, opts)
}
