package textbatch

import (
	"fmt"

	"github.com/gogpu/textbatch/backend"
	"github.com/gogpu/textbatch/text"
)

// Batch groups the glyph instances of one codepoint range. It holds the
// range's glyph data and texture and a chain of instance buffers that
// grows when a layout needs more than one buffer's worth of glyphs.
type Batch struct {
	rng      *RangeRef
	tex      *TextureRef
	backend  backend.Backend
	capacity int
	label    string

	buffers  []*InstanceBuffer
	cursor   int
	updating bool
}

// newBatch takes ownership of rng and tex.
func newBatch(b backend.Backend, rng *RangeRef, tex *TextureRef, capacity int) (*Batch, error) {
	bt := &Batch{
		rng:      rng,
		tex:      tex,
		backend:  b,
		capacity: capacity,
		label:    fmt.Sprintf("range %d", rng.Index()),
	}
	buf, err := newInstanceBuffer(b, capacity, bt.label)
	if err != nil {
		return nil, err
	}
	bt.buffers = append(bt.buffers, buf)
	return bt, nil
}

// BeginUpdate starts a full re-layout of the batch.
func (b *Batch) BeginUpdate() {
	b.cursor = 0
	b.buffers[0].reset()
	b.updating = true
}

// AppendCharacter adds the glyph of c with its bottom-left corner at (x, y).
// c must belong to the batch's range and BeginUpdate must have been called;
// violations panic.
func (b *Batch) AppendCharacter(c text.Codepoint, x, y float32) error {
	if !b.updating {
		panic("textbatch: AppendCharacter outside BeginUpdate/EndUpdate")
	}
	rng := b.rng.Range()
	if !rng.Contains(c) {
		panic(fmt.Sprintf("textbatch: U+%04X appended to batch [U+%04X, U+%04X)", c, rng.From, rng.To))
	}

	buf := b.buffers[b.cursor]
	if buf.IsFull() {
		b.cursor++
		if b.cursor < len(b.buffers) {
			buf = b.buffers[b.cursor]
			buf.reset()
		} else {
			var err error
			buf, err = newInstanceBuffer(b.backend, b.capacity, b.label)
			if err != nil {
				b.cursor--
				return err
			}
			b.buffers = append(b.buffers, buf)
		}
	}
	buf.Append(rng.Glyph(c), x, y)
	return nil
}

// EndUpdate drops buffers left over from a longer previous layout and
// uploads the touched ones.
func (b *Batch) EndUpdate() error {
	if !b.updating {
		panic("textbatch: EndUpdate without BeginUpdate")
	}
	b.updating = false

	for _, buf := range b.buffers[b.cursor+1:] {
		buf.destroy()
	}
	clear(b.buffers[b.cursor+1:])
	b.buffers = b.buffers[:b.cursor+1]

	for _, buf := range b.buffers {
		if err := buf.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Range returns the glyph range of the batch.
func (b *Batch) Range() *text.GlyphRange { return b.rng.Range() }

// RangeIndex returns the index of the batch's range.
func (b *Batch) RangeIndex() int { return b.rng.Index() }

// Texture returns the glyph texture of the batch.
func (b *Batch) Texture() *GlyphTexture { return b.tex.Texture() }

// Buffers returns the instance buffer chain.
func (b *Batch) Buffers() []*InstanceBuffer { return b.buffers }

// Instances returns the number of appended instances across all buffers.
func (b *Batch) Instances() int {
	n := 0
	for _, buf := range b.buffers {
		n += buf.Len()
	}
	return n
}

// release destroys the buffers and drops the range and texture references.
func (b *Batch) release() {
	for _, buf := range b.buffers {
		buf.destroy()
	}
	b.buffers = nil
	b.tex.Release()
	b.rng.Release()
}
