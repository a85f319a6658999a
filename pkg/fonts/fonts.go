// Package fonts resolves font names to TrueType data for glyph measurement
// and PNG rendering.
//
// The Go fonts are compiled into the binary, so the default pipeline runs
// without any font files on disk. Other fonts are read from a font directory.
package fonts

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/matzehuels/textmosaic/pkg/errors"
)

// Builtin font names.
const (
	Regular = "goregular"
	Mono    = "gomono"
)

// DefaultName is used when no font is configured.
const DefaultName = Regular

var builtin = map[string][]byte{
	Regular: goregular.TTF,
	Mono:    gomono.TTF,
}

// Default returns the Go Regular TTF data.
func Default() []byte {
	return goregular.TTF
}

// Builtin returns the embedded data for name.
func Builtin(name string) ([]byte, bool) {
	data, ok := builtin[name]
	return data, ok
}

// Names returns the builtin font names, sorted.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for n := range builtin {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Load returns the font data for name. Builtin names resolve to embedded data.
// An absolute path is read as is; anything else must be a plain file name and
// is read from dir.
func Load(name, dir string) ([]byte, error) {
	if name == "" {
		name = DefaultName
	}
	if data, ok := builtin[name]; ok {
		return data, nil
	}

	path := name
	if !filepath.IsAbs(name) {
		if err := errors.ValidateFontName(name); err != nil {
			return nil, err
		}
		path = filepath.Join(dir, name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "font %q not found", name)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidFont, err, "read font %q", name)
	}
	return data, nil
}

// Hash returns a stable hex digest of font data, used in cache keys.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
