package textbatch

import (
	"errors"
	"fmt"
	"testing"

	"golang.org/x/image/math/fixed"

	"github.com/gogpu/textbatch/backend"
	"github.com/gogpu/textbatch/text"
)

// Stub font metrics: every glyph is 8x10 with bearing (1, 9) and a 10px advance.
const (
	stubWidth      = 8
	stubHeight     = 10
	stubBearingX   = 1
	stubBearingY   = 9
	stubAdvance    = fixed.Int26_6(640)
	stubLineHeight = 12
)

var errStubRange = errors.New("stub: range not available")

// stubFactory creates stubRasterizers and records them.
type stubFactory struct {
	created    []*stubRasterizer
	failRanges map[text.Codepoint]bool // keyed by range start
	missing    map[string]bool
}

func newStubFactory() *stubFactory {
	return &stubFactory{
		failRanges: make(map[text.Codepoint]bool),
		missing:    map[string]bool{"missing.ttf": true},
	}
}

func (f *stubFactory) New() (text.FontRasterizer, error) {
	r := &stubRasterizer{factory: f, rasterized: make(map[text.Codepoint]int)}
	f.created = append(f.created, r)
	return r, nil
}

type stubRasterizer struct {
	factory    *stubFactory
	path       string
	loaded     bool
	closed     bool
	rasterized map[text.Codepoint]int
}

func (r *stubRasterizer) LoadFont(path string, width, height int) error {
	if r.factory.missing[path] {
		return &text.FontError{Path: path, Reason: "open", Err: fmt.Errorf("stub: no such font")}
	}
	r.path = path
	r.loaded = true
	return nil
}

func (r *stubRasterizer) Rasterize(from, to text.Codepoint) (*text.GlyphRange, error) {
	if r.factory.failRanges[from] {
		return nil, errStubRange
	}
	r.rasterized[from]++
	pixels := make([]byte, stubWidth*stubHeight)
	for i := range pixels {
		pixels[i] = 0xff
	}
	glyphs := make([]text.Glyph, to-from)
	for i := range glyphs {
		glyphs[i] = text.Glyph{
			Codepoint: from + text.Codepoint(i),
			Width:     stubWidth,
			Height:    stubHeight,
			BearingX:  stubBearingX,
			BearingY:  stubBearingY,
			Advance:   stubAdvance,
			Pixels:    pixels,
		}
	}
	return text.NewGlyphRange(from, to, glyphs)
}

func (r *stubRasterizer) FontHeight() int { return stubLineHeight }
func (r *stubRasterizer) Ascender() int   { return stubBearingY }
func (r *stubRasterizer) Descender() int  { return -3 }

func (r *stubRasterizer) Close() error {
	r.closed = true
	return nil
}

var stubKey = FontKey{Path: "stub.ttf", Width: 16, Height: 16}

// newTestContext creates a context over a software backend with stub fonts.
func newTestContext(t *testing.T, opts ...Option) (*Context, *backend.Software, *stubFactory) {
	t.Helper()
	f := newStubFactory()
	sw := backend.NewSoftware(64, 64)
	opts = append([]Option{WithRasterizerFactory(f.New)}, opts...)
	ctx, err := NewContext(sw, opts...)
	if err != nil {
		t.Fatalf("NewContext() = %v", err)
	}
	t.Cleanup(ctx.Close)
	return ctx, sw, f
}

// newTestLayout creates a layout with the stub font and text s, updated.
func newTestLayout(t *testing.T, ctx *Context, s string) *Layout {
	t.Helper()
	l, err := ctx.NewLayout(stubKey)
	if err != nil {
		t.Fatalf("NewLayout() = %v", err)
	}
	t.Cleanup(l.Close)
	l.SetText(s)
	if err := l.Update(); err != nil {
		t.Fatalf("Update() = %v", err)
	}
	return l
}

// instanceCount sums the instances of all batches to draw.
func instanceCount(l *Layout) int {
	n := 0
	for _, b := range l.Batches() {
		n += b.Instances()
	}
	return n
}
