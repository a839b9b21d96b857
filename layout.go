package textbatch

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/textbatch/text"
)

// LayoutState tracks what a Layout must recompute before it is drawn.
type LayoutState uint8

const (
	// LayoutClean means batches and advances match the text and font.
	LayoutClean LayoutState = iota

	// LayoutTextDirty means the text changed and instance buffers are stale.
	LayoutTextDirty

	// LayoutFontDirty means the font changed and batches are stale too.
	// It is never downgraded to LayoutTextDirty by text edits.
	LayoutFontDirty
)

func (s LayoutState) String() string {
	switch s {
	case LayoutClean:
		return "Clean"
	case LayoutTextDirty:
		return "TextDirty"
	case LayoutFontDirty:
		return "FontDirty"
	default:
		return fmt.Sprintf("LayoutState(%d)", s)
	}
}

// Layout is one block of text in one font. It turns its text into batches
// of positioned glyph instances and keeps the cursor advance of every
// character.
//
// Edits only mark the layout dirty. Update recomputes, and Renderer.Draw
// calls Update itself.
//
// Coordinates are layout pixels with y pointing up: the first baseline is
// y = 0 and every newline moves the baseline by the configured font pixel
// height.
//
// A Layout is not safe for concurrent use.
type Layout struct {
	ctx     *Context
	key     FontKey
	storage *FontStorage
	fontErr error

	text     []rune
	advances []int
	state    LayoutState

	batches map[int]*Batch
	drawn   []*Batch
	closed  bool
}

// NewLayout creates an empty layout using the font described by key.
// A zero size selects the context default. An empty path creates a layout
// without a font; SetFontPath assigns one later.
func NewLayout(ctx *Context, key FontKey) (*Layout, error) {
	if ctx.closed {
		return nil, ErrClosed
	}
	l := &Layout{
		ctx:     ctx,
		key:     ctx.defaultKey(key),
		state:   LayoutTextDirty,
		batches: make(map[int]*Batch),
	}
	if l.key.Path != "" {
		s, err := ctx.fonts.Acquire(l.key)
		if err != nil {
			return nil, err
		}
		l.storage = s
	}
	return l, nil
}

// NewLayout creates an empty layout drawing with this context.
func (c *Context) NewLayout(key FontKey) (*Layout, error) {
	return NewLayout(c, key)
}

func (l *Layout) markTextDirty() {
	if l.state == LayoutClean {
		l.state = LayoutTextDirty
	}
}

// SetText replaces the text.
func (l *Layout) SetText(s string) {
	l.text = []rune(l.ctx.cfg.Normalization.apply(s))
	l.markTextDirty()
}

// InsertText inserts s before character index. index may equal TextLength.
// An index outside [0, TextLength] panics.
func (l *Layout) InsertText(index int, s string) {
	if index < 0 || index > len(l.text) {
		panic(fmt.Sprintf("textbatch: insert index %d out of range [0,%d]", index, len(l.text)))
	}
	l.text = slices.Insert(l.text, index, []rune(l.ctx.cfg.Normalization.apply(s))...)
	l.markTextDirty()
}

// EraseText removes count characters starting at start.
// A span outside the text panics.
func (l *Layout) EraseText(start, count int) {
	if start < 0 || count < 0 || start+count > len(l.text) {
		panic(fmt.Sprintf("textbatch: erase [%d,%d) out of range [0,%d)", start, start+count, len(l.text)))
	}
	l.text = slices.Delete(l.text, start, start+count)
	l.markTextDirty()
}

// AppendText appends s to the text.
func (l *Layout) AppendText(s string) {
	l.text = append(l.text, []rune(l.ctx.cfg.Normalization.apply(s))...)
	l.markTextDirty()
}

// SetFontPath switches to another font file at the current size.
// The new font is loaded immediately; on failure the layout has no font
// until the next successful switch and the load error is returned.
func (l *Layout) SetFontPath(path string) error {
	key := l.key
	key.Path = path
	return l.setFont(key)
}

// SetFontSize switches to another pixel size of the current font.
func (l *Layout) SetFontSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", text.ErrInvalidSize, width, height)
	}
	key := l.key
	key.Width, key.Height = width, height
	return l.setFont(key)
}

func (l *Layout) setFont(key FontKey) error {
	if l.closed {
		return ErrClosed
	}
	l.state = LayoutFontDirty
	l.key = key

	var next *FontStorage
	var err error
	if key.Path != "" {
		next, err = l.ctx.fonts.Acquire(key)
	}

	// Batches reference the old storage's caches.
	l.dropBatches()
	if l.storage != nil {
		l.storage.Release()
	}
	l.storage, l.fontErr = next, err
	l.ctx.fonts.ReleaseUnused()
	return err
}

func (l *Layout) dropBatches() {
	for _, b := range l.batches {
		b.release()
	}
	clear(l.batches)
	l.drawn = nil
}

// Update recomputes batches and advances if the layout is dirty.
//
// Without a usable font every advance is zero and the returned error
// matches ErrNoFont. When a codepoint range cannot be rasterized the
// layout stays dirty, keeps drawing the batches of its last successful
// update, and returns a *RangeError. Advances of the characters from the
// failing one on are set to the cursor position reached before it.
func (l *Layout) Update() error {
	if l.closed {
		return ErrClosed
	}
	if l.state == LayoutClean && l.storage != nil {
		return nil
	}
	if l.state == LayoutFontDirty {
		// setFont already acquired the storage; a failed load is not retried.
		l.dropBatches()
	}

	if cap(l.advances) < len(l.text) {
		l.advances = make([]int, len(l.text))
	}
	l.advances = l.advances[:len(l.text)]

	if l.storage == nil {
		clear(l.advances)
		l.state = LayoutClean
		if l.fontErr != nil {
			return errors.Join(ErrNoFont, l.fontErr)
		}
		return ErrNoFont
	}

	if err := l.relayout(); err != nil {
		return err
	}
	l.state = LayoutClean
	return nil
}

func (l *Layout) relayout() error {
	s := l.storage
	lineHeight := l.key.Height

	var touched []*Batch
	x, y := 0, 0
	for i, c := range l.text {
		if c == '\n' {
			l.advances[i] = x
			x = 0
			y += lineHeight
			continue
		}

		idx := s.RangeIndexOf(c)
		b, err := l.batchFor(idx)
		if err != nil {
			Logger().Error("textbatch: layout update aborted", "font", l.key, "index", i, "err", err)
			for j := i; j < len(l.advances); j++ {
				l.advances[j] = x
			}
			return err
		}
		if !slices.Contains(touched, b) {
			b.BeginUpdate()
			touched = append(touched, b)
		}

		g := b.Range().Glyph(c)
		if c != ' ' && c != '\t' && !g.Empty() {
			gx := float32(x + g.BearingX)
			gy := float32(y + g.BearingY - g.Height)
			if err := b.AppendCharacter(c, gx, gy); err != nil {
				for j := i; j < len(l.advances); j++ {
					l.advances[j] = x
				}
				return fmt.Errorf("textbatch: grow instance buffers: %w", err)
			}
		}
		x += g.AdvancePixels()
		l.advances[i] = x
	}

	var errs []error
	for _, b := range touched {
		if err := b.EndUpdate(); err != nil {
			errs = append(errs, err)
		}
	}
	slices.SortFunc(touched, func(a, b *Batch) int { return a.RangeIndex() - b.RangeIndex() })
	l.drawn = touched
	return errors.Join(errs...)
}

// batchFor returns the cached batch of range idx, creating it on first use.
func (l *Layout) batchFor(idx int) (*Batch, error) {
	if b, ok := l.batches[idx]; ok {
		return b, nil
	}
	rng, err := l.storage.RasterizeGlyphRange(idx)
	if err != nil {
		return nil, err
	}
	tex, err := l.storage.GlyphTexture(idx)
	if err != nil {
		rng.Release()
		return nil, err
	}
	b, err := newBatch(l.ctx.backend, rng, tex, l.ctx.cfg.BufferCapacity)
	if err != nil {
		tex.Release()
		rng.Release()
		from, to := l.storage.RangeBounds(idx)
		return nil, &RangeError{Font: l.key, Index: idx, From: from, To: to, Err: err}
	}
	l.batches[idx] = b
	return b, nil
}

// Text returns the current text.
func (l *Layout) Text() string { return string(l.text) }

// TextLength returns the number of characters.
func (l *Layout) TextLength() int { return len(l.text) }

// TextAdvance returns the cursor x position after every character as of
// the last Update. A newline carries the position before the line break.
// Call Update first to see the effect of pending edits.
func (l *Layout) TextAdvance() []int {
	return slices.Clone(l.advances)
}

// FontHeight returns the line height reported by the font, or 0 without a
// font. Newlines advance by the configured pixel height instead.
func (l *Layout) FontHeight() int {
	if l.storage == nil {
		return 0
	}
	return l.storage.FontHeight()
}

// FontAscender returns the font ascent in pixels, or 0 without a font.
func (l *Layout) FontAscender() int {
	if l.storage == nil {
		return 0
	}
	return l.storage.Ascender()
}

// FontDescender returns the font descent in pixels, or 0 without a font.
func (l *Layout) FontDescender() int {
	if l.storage == nil {
		return 0
	}
	return l.storage.Descender()
}

// FontKey returns the current font configuration.
func (l *Layout) FontKey() FontKey { return l.key }

// FontPath returns the current font file.
func (l *Layout) FontPath() string { return l.key.Path }

// FontSize returns the current pixel size.
func (l *Layout) FontSize() (width, height int) { return l.key.Width, l.key.Height }

// Storage returns the font storage in use, or nil without a font.
func (l *Layout) Storage() *FontStorage { return l.storage }

// Batches returns the batches to draw, ordered by range index.
func (l *Layout) Batches() []*Batch { return l.drawn }

// State returns the pending recompute state.
func (l *Layout) State() LayoutState { return l.state }

// Close releases batches and the font. Unused fonts are freed immediately.
func (l *Layout) Close() {
	if l.closed {
		return
	}
	l.closed = true
	l.dropBatches()
	if l.storage != nil {
		l.storage.Release()
		l.storage = nil
	}
	l.ctx.fonts.ReleaseUnused()
}
