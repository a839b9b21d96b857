package text

import (
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// ximageParser implements FontParser using golang.org/x/image/font/opentype.
type ximageParser struct{}

// Parse implements FontParser.Parse.
func (p *ximageParser) Parse(data []byte) (ParsedFont, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("text: failed to parse font: %w", err)
	}
	return &ximageParsedFont{font: f}, nil
}

// ximageParsedFont implements ParsedFont using sfnt.Font.
// The shared buffer makes it unsafe for concurrent use.
type ximageParsedFont struct {
	font *opentype.Font
	buf  sfnt.Buffer
}

// GlyphIndex implements ParsedFont.GlyphIndex.
func (f *ximageParsedFont) GlyphIndex(r rune) (GlyphID, bool) {
	idx, err := f.font.GlyphIndex(&f.buf, r)
	if err != nil || idx == 0 {
		return 0, false
	}
	return GlyphID(idx), true
}

// GlyphAdvance implements ParsedFont.GlyphAdvance.
func (f *ximageParsedFont) GlyphAdvance(gid GlyphID, ppem float64) fixed.Int26_6 {
	advance, err := f.font.GlyphAdvance(&f.buf, sfnt.GlyphIndex(gid), toFixed(ppem), font.HintingFull)
	if err != nil {
		return 0
	}
	return advance
}

// GlyphOutline implements ParsedFont.GlyphOutline.
func (f *ximageParsedFont) GlyphOutline(gid GlyphID, ppem float64) ([]OutlineSegment, error) {
	segments, err := f.font.LoadGlyph(&f.buf, sfnt.GlyphIndex(gid), toFixed(ppem), nil)
	if err != nil {
		return nil, err
	}

	out := make([]OutlineSegment, 0, len(segments))
	for _, seg := range segments {
		var o OutlineSegment
		n := 1
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			o.Op = OutlineOpMoveTo
		case sfnt.SegmentOpLineTo:
			o.Op = OutlineOpLineTo
		case sfnt.SegmentOpQuadTo:
			o.Op, n = OutlineOpQuadTo, 2
		case sfnt.SegmentOpCubeTo:
			o.Op, n = OutlineOpCubicTo, 3
		}
		for i := 0; i < n; i++ {
			o.Points[i] = OutlinePoint{
				X: float32(seg.Args[i].X) / 64,
				Y: float32(seg.Args[i].Y) / 64,
			}
		}
		out = append(out, o)
	}
	return out, nil
}

// Metrics implements ParsedFont.Metrics.
func (f *ximageParsedFont) Metrics(ppem float64) FontMetrics {
	m, err := f.font.Metrics(&f.buf, toFixed(ppem), font.HintingFull)
	if err != nil {
		return FontMetrics{}
	}
	return FontMetrics{
		Ascent:  m.Ascent,
		Descent: m.Descent,
		Height:  m.Height,
	}
}

// toFixed converts a float64 size to fixed.Int26_6.
func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(v * 64)
}
