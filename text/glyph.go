package text

import (
	"fmt"

	"golang.org/x/image/math/fixed"
)

// Codepoint is a Unicode scalar value.
type Codepoint = rune

// Glyph is one rasterized glyph.
// Glyphs are immutable once produced; Pixels may be shared between glyphs.
type Glyph struct {
	Codepoint Codepoint

	// Width and Height of the pixel buffer.
	Width, Height int

	// BearingX is the offset from the pen position to the left edge.
	// BearingY is the offset from the baseline up to the top edge.
	BearingX, BearingY int

	// Advance is the horizontal pen movement in 26.6 fixed point.
	Advance fixed.Int26_6

	// Pixels holds Width*Height bytes, top row first.
	Pixels []byte
}

// Empty reports whether the glyph has no visible pixels (space, tab).
func (g *Glyph) Empty() bool {
	return g.Width <= 0 || g.Height <= 0
}

// AdvancePixels returns the advance truncated to whole pixels.
func (g *Glyph) AdvancePixels() int {
	return int(g.Advance >> 6)
}

// GlyphRange is the rasterization result of the half-open interval [From, To).
// Glyphs[i].Codepoint == From+i for every i.
type GlyphRange struct {
	From, To Codepoint
	Glyphs   []Glyph

	maxWidth, maxHeight int
}

// NewGlyphRange validates glyphs against the interval and wraps them.
func NewGlyphRange(from, to Codepoint, glyphs []Glyph) (*GlyphRange, error) {
	if to <= from {
		return nil, ErrEmptyRange
	}
	if len(glyphs) != int(to-from) {
		return nil, fmt.Errorf("text: range [%d,%d) has %d glyphs", from, to, len(glyphs))
	}
	r := &GlyphRange{From: from, To: to, Glyphs: glyphs}
	for i := range glyphs {
		g := &glyphs[i]
		if g.Codepoint != from+Codepoint(i) {
			return nil, fmt.Errorf("text: glyph %d has codepoint U+%04X, want U+%04X", i, g.Codepoint, from+Codepoint(i))
		}
		if len(g.Pixels) < g.Width*g.Height {
			return nil, fmt.Errorf("text: glyph U+%04X: short pixel buffer", g.Codepoint)
		}
		r.maxWidth = max(r.maxWidth, g.Width)
		r.maxHeight = max(r.maxHeight, g.Height)
	}
	return r, nil
}

// Len returns the number of glyphs in the range.
func (r *GlyphRange) Len() int { return len(r.Glyphs) }

// Contains reports whether c lies inside [From, To).
func (r *GlyphRange) Contains(c Codepoint) bool {
	return c >= r.From && c < r.To
}

// Glyph returns the glyph for c. It panics if c is outside the range.
func (r *GlyphRange) Glyph(c Codepoint) *Glyph {
	if !r.Contains(c) {
		panic(fmt.Sprintf("text: codepoint U+%04X outside range [%d,%d)", c, r.From, r.To))
	}
	return &r.Glyphs[c-r.From]
}

// MaxSize returns the largest glyph width and height in the range.
func (r *GlyphRange) MaxSize() (width, height int) {
	return r.maxWidth, r.maxHeight
}
