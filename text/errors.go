package text

import (
	"errors"
	"fmt"
)

// Sentinel errors for text package.
var (
	// ErrEmptyFontData is returned when a font file has no content.
	ErrEmptyFontData = errors.New("text: empty font data")

	// ErrNoFont is returned when glyphs are requested before a font was loaded.
	ErrNoFont = errors.New("text: no font loaded")

	// ErrInvalidSize is returned for non-positive pixel sizes.
	ErrInvalidSize = errors.New("text: invalid pixel size")

	// ErrEmptyRange is returned when a range has no codepoints.
	ErrEmptyRange = errors.New("text: empty codepoint range")

	// ErrRangeNotCovered is returned when a font maps none of the codepoints of a range.
	ErrRangeNotCovered = errors.New("text: font does not cover range")

	// ErrUnsupportedAtlas is returned for atlas types the rasterizer cannot produce.
	ErrUnsupportedAtlas = errors.New("text: unsupported atlas type")

	// ErrUnknownParser is returned when a parser name is not registered.
	ErrUnknownParser = errors.New("text: unknown font parser")
)

// FontError is returned when a font file cannot be loaded.
type FontError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FontError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("text: load %q: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("text: load %q: %s", e.Path, e.Reason)
}

func (e *FontError) Unwrap() error { return e.Err }

// GlyphError is returned when a single glyph of a range fails to rasterize.
type GlyphError struct {
	Codepoint Codepoint
	Err       error
}

func (e *GlyphError) Error() string {
	return fmt.Sprintf("text: rasterize glyph U+%04X: %v", e.Codepoint, e.Err)
}

func (e *GlyphError) Unwrap() error { return e.Err }
