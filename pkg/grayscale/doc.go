// Package grayscale maps characters to brightness values.
//
// # Overview
//
// A [Map] is the bridge between typography and imaging: every character of an
// alphabet gets a single number saying how bright a cell looks once that
// character is drawn into it. Values come from an external ink-coverage
// measurement (see the glyph package) and are rescaled into a target [Range],
// by default [0, 255] so they are directly comparable to 8-bit pixels.
//
// # Building
//
// [Build] takes measurements in alphabet enumeration order. Characters whose
// ratio duplicates an earlier one are dropped (first occurrence wins), so every
// value in the map is unique:
//
//	m, err := grayscale.Build([]grayscale.Ink{
//	    {Char: ' ', Ratio: 0},
//	    {Char: '.', Ratio: 0.02},
//	    {Char: '#', Ratio: 0.31},
//	}, grayscale.DefaultRange)
//
// # Lookups
//
// [Map.Nearest] returns the character whose value is closest to a brightness,
// breaking ties in alphabet order. [Map.LookupOrDefault] is what word
// brightness is computed from.
//
// # Immutability
//
// A Map is never modified after construction. [Map.Normalize] and
// [Map.Invert] return new maps, which makes a Map safe to share between
// goroutines.
package grayscale
