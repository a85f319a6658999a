package cache

// ScopedKeyer wraps a Keyer with a prefix so that several deployments can
// share one Redis instance without seeing each other's entries.
//
// Example usage:
//
//	// Keys of the staging server
//	staging := NewScopedKeyer(NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// GrayscaleKey generates a prefixed key for grayscale map caching.
func (k *ScopedKeyer) GrayscaleKey(fontHash string, opts GrayscaleKeyOpts) string {
	return k.prefix + k.inner.GrayscaleKey(fontHash, opts)
}

// PaletteKey generates a prefixed key for palette caching.
func (k *ScopedKeyer) PaletteKey(pixelsHash string, opts PaletteKeyOpts) string {
	return k.prefix + k.inner.PaletteKey(pixelsHash, opts)
}
