package text

import (
	"sync"

	"golang.org/x/image/math/fixed"
)

// FontParser is an interface for font parsing backends.
// This abstraction allows swapping the font parsing library
// (e.g., golang.org/x/image/font/opentype vs go-text/typesetting).
//
// The default implementation uses golang.org/x/image/font/opentype.
type FontParser interface {
	// Parse parses font data (TTF or OTF) and returns a ParsedFont.
	Parse(data []byte) (ParsedFont, error)
}

// GlyphID is a glyph index inside a font.
type GlyphID uint16

// ParsedFont represents a parsed font file.
// All sizes are in pixels per em.
type ParsedFont interface {
	// GlyphIndex returns the glyph index for a rune.
	// ok is false when the font has no glyph for r.
	GlyphIndex(r rune) (gid GlyphID, ok bool)

	// GlyphAdvance returns the advance width for a glyph in 26.6 fixed point.
	GlyphAdvance(gid GlyphID, ppem float64) fixed.Int26_6

	// GlyphOutline returns the glyph outline in pixels, relative to the
	// pen position on the baseline, with y pointing down.
	// Glyphs without an outline return no segments.
	GlyphOutline(gid GlyphID, ppem float64) ([]OutlineSegment, error)

	// Metrics returns the font metrics at the given size.
	Metrics(ppem float64) FontMetrics
}

// FontMetrics holds font-level metrics at a specific size.
type FontMetrics struct {
	// Ascent is the distance from the baseline to the top of the font (positive).
	Ascent fixed.Int26_6

	// Descent is the distance from the baseline to the bottom of the font (positive).
	Descent fixed.Int26_6

	// Height is the recommended baseline-to-baseline distance.
	Height fixed.Int26_6
}

// OutlineOp is the drawing operation of an outline segment.
type OutlineOp uint8

// Outline operations.
const (
	OutlineOpMoveTo OutlineOp = iota
	OutlineOpLineTo
	OutlineOpQuadTo
	OutlineOpCubicTo
)

// OutlinePoint is a point of a glyph outline in pixels.
type OutlinePoint struct {
	X, Y float32
}

// OutlineSegment is one segment of a glyph outline.
//   - MoveTo, LineTo: Points[0] is the target point
//   - QuadTo: Points[0] is control, Points[1] is target
//   - CubicTo: Points[0], Points[1] are controls, Points[2] is target
type OutlineSegment struct {
	Op     OutlineOp
	Points [3]OutlinePoint
}

// parserRegistry holds registered font parsers.
// The default parser is "ximage" (golang.org/x/image).
var (
	parserMu       sync.RWMutex
	parserRegistry = map[string]FontParser{
		"ximage": &ximageParser{},
		"gotext": &gotextParser{},
	}
)

// DefaultParser is the name of the default parser.
const DefaultParser = "ximage"

// RegisterParser registers a custom font parser.
// This allows users to provide their own parsing implementation.
func RegisterParser(name string, parser FontParser) {
	parserMu.Lock()
	defer parserMu.Unlock()
	parserRegistry[name] = parser
}

// Parsers returns the names of all registered parsers.
func Parsers() []string {
	parserMu.RLock()
	defer parserMu.RUnlock()

	names := make([]string, 0, len(parserRegistry))
	for name := range parserRegistry {
		names = append(names, name)
	}
	return names
}

// getParser returns the parser by name. An empty name selects the default.
func getParser(name string) (FontParser, bool) {
	if name == "" {
		name = DefaultParser
	}
	parserMu.RLock()
	defer parserMu.RUnlock()
	p, ok := parserRegistry[name]
	return p, ok
}
