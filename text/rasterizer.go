package text

import (
	"fmt"
	"os"

	"golang.org/x/image/math/fixed"
)

// FontRasterizer turns codepoint ranges of one font at one pixel size into
// GlyphRanges. Metrics are valid only after a successful LoadFont.
type FontRasterizer interface {
	// LoadFont loads the font file at path at the given pixel size.
	LoadFont(path string, width, height int) error

	// Rasterize produces the glyphs of [from, to).
	Rasterize(from, to Codepoint) (*GlyphRange, error)

	// FontHeight returns the baseline-to-baseline distance in pixels.
	FontHeight() int

	// Ascender returns the distance from the baseline to the top in pixels.
	Ascender() int

	// Descender returns the distance from the baseline to the bottom in
	// pixels. It is negative for fonts that extend below the baseline.
	Descender() int

	// Close releases the loaded font.
	Close() error
}

// DefaultSDFSpread is the distance in pixels covered by an SDF gradient.
const DefaultSDFSpread = 4

// RasterizerConfig configures a Rasterizer.
type RasterizerConfig struct {
	// Atlas selects coverage or distance field output.
	Atlas AtlasType

	// Parser names a registered FontParser. Empty selects DefaultParser.
	Parser string

	// SDFSpread overrides DefaultSDFSpread when positive.
	SDFSpread int
}

// Rasterizer is the FontRasterizer built on the registered font parsers.
// It is not safe for concurrent use.
type Rasterizer struct {
	atlas  AtlasType
	spread int
	parser FontParser

	font          ParsedFont
	width, height int
	metrics       FontMetrics
}

var _ FontRasterizer = (*Rasterizer)(nil)

// NewRasterizer creates a rasterizer without a font.
func NewRasterizer(cfg RasterizerConfig) (*Rasterizer, error) {
	switch cfg.Atlas {
	case AtlasBitmap, AtlasSDF:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAtlas, cfg.Atlas)
	}
	p, ok := getParser(cfg.Parser)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParser, cfg.Parser)
	}
	spread := cfg.SDFSpread
	if spread <= 0 {
		spread = DefaultSDFSpread
	}
	return &Rasterizer{atlas: cfg.Atlas, spread: spread, parser: p}, nil
}

// Atlas returns the atlas type the rasterizer produces.
func (r *Rasterizer) Atlas() AtlasType { return r.atlas }

// LoadFont implements FontRasterizer.
// The font is scaled to height pixels per em and stretched horizontally
// by width/height.
func (r *Rasterizer) LoadFont(path string, width, height int) error {
	if width <= 0 || height <= 0 {
		return &FontError{Path: path, Reason: fmt.Sprintf("size %dx%d", width, height), Err: ErrInvalidSize}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return &FontError{Path: path, Reason: "read", Err: err}
	}
	if len(data) == 0 {
		return &FontError{Path: path, Reason: "read", Err: ErrEmptyFontData}
	}
	parsed, err := r.parser.Parse(data)
	if err != nil {
		return &FontError{Path: path, Reason: "parse", Err: err}
	}

	r.font = parsed
	r.width, r.height = width, height
	r.metrics = parsed.Metrics(float64(height))
	return nil
}

// Rasterize implements FontRasterizer.
// Codepoints the font does not map get the .notdef glyph; the call fails
// with ErrRangeNotCovered only when no codepoint of the range is mapped.
func (r *Rasterizer) Rasterize(from, to Codepoint) (*GlyphRange, error) {
	if r.font == nil {
		return nil, ErrNoFont
	}
	if to <= from {
		return nil, ErrEmptyRange
	}

	glyphs := make([]Glyph, to-from)
	mapped := 0
	var notdef *Glyph
	for i := range glyphs {
		c := from + Codepoint(i)
		gid, ok := r.font.GlyphIndex(c)
		if !ok && notdef != nil {
			glyphs[i] = *notdef
			glyphs[i].Codepoint = c
			continue
		}
		g, err := r.rasterizeGlyph(gid)
		if err != nil {
			return nil, &GlyphError{Codepoint: c, Err: err}
		}
		g.Codepoint = c
		glyphs[i] = g
		if ok {
			mapped++
		} else {
			notdef = &glyphs[i]
		}
	}
	if mapped == 0 {
		return nil, fmt.Errorf("%w: [U+%04X, U+%04X)", ErrRangeNotCovered, from, to)
	}
	return NewGlyphRange(from, to, glyphs)
}

func (r *Rasterizer) rasterizeGlyph(gid GlyphID) (Glyph, error) {
	ppem := float64(r.height)
	sx := float32(r.width) / float32(r.height)

	segs, err := r.font.GlyphOutline(gid, ppem)
	if err != nil {
		return Glyph{}, err
	}
	pad := 0
	if r.atlas == AtlasSDF {
		pad = r.spread
	}
	g := rasterizeOutline(segs, sx, pad)
	if r.atlas == AtlasSDF && !g.Empty() {
		g.Pixels = coverageToSDF(g.Pixels, g.Width, g.Height, r.spread)
	}

	adv := r.font.GlyphAdvance(gid, ppem)
	if r.width != r.height {
		adv = fixed.Int26_6(float32(adv) * sx)
	}
	g.Advance = adv
	return g, nil
}

// FontHeight implements FontRasterizer.
func (r *Rasterizer) FontHeight() int { return r.metrics.Height.Ceil() }

// Ascender implements FontRasterizer.
func (r *Rasterizer) Ascender() int { return r.metrics.Ascent.Ceil() }

// Descender implements FontRasterizer.
func (r *Rasterizer) Descender() int { return -r.metrics.Descent.Ceil() }

// Close implements FontRasterizer.
func (r *Rasterizer) Close() error {
	r.font = nil
	r.metrics = FontMetrics{}
	return nil
}
