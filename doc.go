// Package textbatch turns strings into GPU-drawable batches of glyph
// instances.
//
// # Overview
//
// Glyphs are rasterized in ranges of consecutive codepoints. Every range
// becomes one texture array with a layer per codepoint, and every string
// becomes one [Batch] per range it uses. A batch owns a chain of
// fixed-capacity [InstanceBuffer] values holding the codepoint and screen
// rectangle of each visible glyph, so a whole range is drawn with one
// instanced draw per buffer.
//
// Rasterized ranges and textures are shared: layouts using the same font
// file at the same pixel size share one [FontStorage], and a range is
// rasterized once no matter how many layouts need it.
//
// # Quick Start
//
//	b := backend.NewSoftware(800, 600)
//	ctx, err := textbatch.NewContext(b)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ctx.Close()
//
//	layout, err := ctx.NewLayout(textbatch.FontKey{Path: "Go-Regular.ttf", Width: 32, Height: 32})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer layout.Close()
//	layout.SetText("Hello,\nWorld!")
//
//	r, err := ctx.NewRenderer()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//	r.SetTextLayout(layout)
//	r.SetMatrix(textbatch.Ortho(800, 600).Multiply(textbatch.Translate(20, 500)))
//	r.SetColor(textbatch.White)
//	if err := r.Draw(); err != nil {
//	    log.Println(err)
//	}
//
// # Coordinates
//
// Layout space is measured in pixels with y pointing up. The first
// baseline is y = 0 and each newline adds the configured font pixel
// height to y. Instance rectangles give the bottom-left corner of the
// glyph bitmap; the renderer matrix maps layout space to clip space, see [Ortho].
//
// # Lifetimes
//
// Layouts and renderers hold references into their [Context]. Close them
// before closing the context. Fonts no longer used by any layout are freed
// by [StorageManager.ReleaseUnused], which layouts call when they switch
// fonts or close.
//
// # Backends
//
// Drawing goes through the [backend.Backend] interface. The backend
// package ships a CPU implementation used by tests and tools, and
// backend/wgpu draws with a WebGPU device.
//
// # Logging
//
// textbatch is silent by default. Use [SetLogger] to enable structured
// logging via log/slog.
package textbatch
