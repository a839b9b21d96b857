// Package text rasterizes font glyphs into fixed codepoint ranges.
//
// The unit of work is a GlyphRange: every codepoint of a half-open interval
// [From, To) rasterized at one pixel size, stored in codepoint order. Ranges
// are produced by a FontRasterizer and are immutable afterwards, so they can
// be shared by every consumer that needs the same interval.
//
// # Rasterizer
//
// Rasterizer is the production FontRasterizer. It loads a TTF/OTF file,
// renders glyph outlines into 8-bit coverage masks and optionally converts
// them into signed distance fields:
//
//	r, err := text.NewRasterizer(text.RasterizerConfig{Atlas: text.AtlasBitmap})
//	if err != nil {
//	    return err
//	}
//	if err := r.LoadFont("Roboto-Regular.ttf", 32, 32); err != nil {
//	    return err
//	}
//	latin, err := r.Rasterize(0, 200)
//
// # Pluggable Parser Backend
//
// Font parsing is abstracted through the FontParser interface.
// By default, golang.org/x/image/font/opentype is used ("ximage").
// The "gotext" parser uses github.com/go-text/typesetting instead.
// Custom parsers can be registered for alternative implementations:
//
//	text.RegisterParser("myparser", myCustomParser)
//	r, err := text.NewRasterizer(text.RasterizerConfig{Parser: "myparser"})
package text
