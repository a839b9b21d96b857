package textbatch

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/textbatch/text"
)

// Defaults used when a Config field is zero.
const (
	DefaultRangeSize      = 200
	DefaultBufferCapacity = 100
	DefaultFontWidth      = 64
	DefaultFontHeight     = 64
)

// Normalization selects the Unicode normalization applied to text edits.
type Normalization uint8

const (
	// NormalizeNone stores text as given.
	NormalizeNone Normalization = iota
	NormalizeNFC
	NormalizeNFD
	NormalizeNFKC
	NormalizeNFKD
)

// apply normalizes one text fragment.
func (n Normalization) apply(s string) string {
	switch n {
	case NormalizeNFC:
		return norm.NFC.String(s)
	case NormalizeNFD:
		return norm.NFD.String(s)
	case NormalizeNFKC:
		return norm.NFKC.String(s)
	case NormalizeNFKD:
		return norm.NFKD.String(s)
	default:
		return s
	}
}

// RasterizerFactory creates a FontRasterizer for a new font storage.
type RasterizerFactory func() (text.FontRasterizer, error)

// Config holds the settings shared by everything created from one Context.
// Zero values fall back to defaults.
type Config struct {
	// RangeSize is the number of codepoints rasterized together.
	RangeSize int

	// BufferCapacity is the number of glyph instances per InstanceBuffer.
	BufferCapacity int

	// DefaultFontWidth and DefaultFontHeight are used by layouts created
	// without an explicit pixel size.
	DefaultFontWidth  int
	DefaultFontHeight int

	// AtlasType selects coverage or SDF glyph textures.
	AtlasType text.AtlasType

	// Parser names the font parser of the default rasterizer.
	Parser string

	// Normalization is applied to every text fragment passed to a Layout.
	// Edit indices refer to the normalized text.
	Normalization Normalization

	// NewRasterizer overrides the default text.Rasterizer.
	NewRasterizer RasterizerFactory
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		RangeSize:         DefaultRangeSize,
		BufferCapacity:    DefaultBufferCapacity,
		DefaultFontWidth:  DefaultFontWidth,
		DefaultFontHeight: DefaultFontHeight,
		AtlasType:         text.AtlasBitmap,
		Parser:            text.DefaultParser,
	}
}

// withDefaults fills zero fields and validates the rest.
func (c Config) withDefaults() (Config, error) {
	d := DefaultConfig()
	if c.RangeSize == 0 {
		c.RangeSize = d.RangeSize
	}
	if c.BufferCapacity == 0 {
		c.BufferCapacity = d.BufferCapacity
	}
	if c.DefaultFontWidth == 0 {
		c.DefaultFontWidth = d.DefaultFontWidth
	}
	if c.DefaultFontHeight == 0 {
		c.DefaultFontHeight = d.DefaultFontHeight
	}
	if c.Parser == "" {
		c.Parser = d.Parser
	}
	if c.RangeSize < 0 || c.BufferCapacity < 0 || c.DefaultFontWidth < 0 || c.DefaultFontHeight < 0 {
		return c, fmt.Errorf("%w: negative size in %+v", ErrInvalidConfig, c)
	}
	if c.NewRasterizer == nil {
		atlas, parser := c.AtlasType, c.Parser
		c.NewRasterizer = func() (text.FontRasterizer, error) {
			return text.NewRasterizer(text.RasterizerConfig{Atlas: atlas, Parser: parser})
		}
	}
	return c, nil
}

// Option configures a Context during creation.
//
// Example:
//
//	ctx, err := textbatch.NewContext(b,
//	    textbatch.WithBufferCapacity(256),
//	    textbatch.WithAtlasType(text.AtlasSDF))
type Option func(*Config)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}

// WithRangeSize sets the number of codepoints per rasterized range.
func WithRangeSize(n int) Option {
	return func(c *Config) {
		c.RangeSize = n
	}
}

// WithBufferCapacity sets the instance capacity of each InstanceBuffer.
func WithBufferCapacity(n int) Option {
	return func(c *Config) {
		c.BufferCapacity = n
	}
}

// WithDefaultFontSize sets the pixel size used when a layout gives none.
func WithDefaultFontSize(width, height int) Option {
	return func(c *Config) {
		c.DefaultFontWidth, c.DefaultFontHeight = width, height
	}
}

// WithAtlasType selects coverage or distance field glyph textures.
func WithAtlasType(a text.AtlasType) Option {
	return func(c *Config) {
		c.AtlasType = a
	}
}

// WithParser selects the font parser of the default rasterizer.
func WithParser(name string) Option {
	return func(c *Config) {
		c.Parser = name
	}
}

// WithNormalization normalizes every text fragment given to a Layout.
func WithNormalization(n Normalization) Option {
	return func(c *Config) {
		c.Normalization = n
	}
}

// WithRasterizerFactory injects the FontRasterizer used for new fonts.
// This is mainly useful for tests.
func WithRasterizerFactory(f RasterizerFactory) Option {
	return func(c *Config) {
		c.NewRasterizer = f
	}
}
