package text

import (
	"bytes"
	"fmt"
	"math"

	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/font/opentype"
	"golang.org/x/image/math/fixed"
)

// gotextParser implements FontParser using github.com/go-text/typesetting.
type gotextParser struct{}

// Parse implements FontParser.Parse.
func (p *gotextParser) Parse(data []byte) (ParsedFont, error) {
	face, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("text: failed to parse font: %w", err)
	}
	return &gotextParsedFont{face: face}, nil
}

// gotextParsedFont implements ParsedFont on a go-text Face.
// Font units are scaled linearly; no hinting is applied.
type gotextParsedFont struct {
	face *font.Face
}

func (f *gotextParsedFont) scale(ppem float64) float64 {
	return ppem / float64(f.face.Upem())
}

// GlyphIndex implements ParsedFont.GlyphIndex.
func (f *gotextParsedFont) GlyphIndex(r rune) (GlyphID, bool) {
	gid, ok := f.face.NominalGlyph(r)
	if !ok || gid == 0 || gid > math.MaxUint16 {
		return 0, false
	}
	return GlyphID(gid), true
}

// GlyphAdvance implements ParsedFont.GlyphAdvance.
func (f *gotextParsedFont) GlyphAdvance(gid GlyphID, ppem float64) fixed.Int26_6 {
	adv := float64(f.face.HorizontalAdvance(font.GID(gid))) * f.scale(ppem)
	return fixed.Int26_6(math.Round(adv * 64))
}

// GlyphOutline implements ParsedFont.GlyphOutline.
// Bitmap and SVG glyphs have no outline and return no segments.
func (f *gotextParsedFont) GlyphOutline(gid GlyphID, ppem float64) ([]OutlineSegment, error) {
	outline, ok := f.face.GlyphData(font.GID(gid)).(font.GlyphOutline)
	if !ok {
		return nil, nil
	}

	s := float32(f.scale(ppem))
	out := make([]OutlineSegment, 0, len(outline.Segments))
	for _, seg := range outline.Segments {
		var o OutlineSegment
		n := 1
		switch seg.Op {
		case opentype.SegmentOpMoveTo:
			o.Op = OutlineOpMoveTo
		case opentype.SegmentOpLineTo:
			o.Op = OutlineOpLineTo
		case opentype.SegmentOpQuadTo:
			o.Op, n = OutlineOpQuadTo, 2
		case opentype.SegmentOpCubeTo:
			o.Op, n = OutlineOpCubicTo, 3
		}
		// go-text outlines are y-up.
		for i := 0; i < n; i++ {
			o.Points[i] = OutlinePoint{X: seg.Args[i].X * s, Y: -seg.Args[i].Y * s}
		}
		out = append(out, o)
	}
	return out, nil
}

// Metrics implements ParsedFont.Metrics.
func (f *gotextParsedFont) Metrics(ppem float64) FontMetrics {
	ext, ok := f.face.FontHExtents()
	if !ok {
		return FontMetrics{}
	}
	s := f.scale(ppem)
	return FontMetrics{
		Ascent:  toFixed(float64(ext.Ascender) * s),
		Descent: toFixed(-float64(ext.Descender) * s),
		Height:  toFixed(float64(ext.Ascender-ext.Descender+ext.LineGap) * s),
	}
}
