package textbatch

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/textbatch/backend"
	"github.com/gogpu/textbatch/text"
)

// Transform is the screen rectangle of one glyph instance: the bottom-left
// corner in layout pixels and the glyph size.
type Transform struct {
	X, Y, W, H float32
}

// InstanceBuffer is a fixed-capacity list of glyph instances mirrored to
// two shader buffers, one for codepoints and one for transforms.
// The GPU copy is valid only after Flush, and only for the first Len
// entries.
type InstanceBuffer struct {
	capacity int
	count    int
	flushed  int

	codepoints []uint32
	transforms []Transform

	gpuCodepoints backend.ShaderBuffer
	gpuTransforms backend.ShaderBuffer
}

func newInstanceBuffer(b backend.Backend, capacity int, label string) (*InstanceBuffer, error) {
	cp, err := b.CreateShaderBuffer(backend.ShaderBufferDescriptor{
		Label: label + " codepoints",
		Size:  capacity * backend.CodepointStride,
	})
	if err != nil {
		return nil, err
	}
	tr, err := b.CreateShaderBuffer(backend.ShaderBufferDescriptor{
		Label: label + " transforms",
		Size:  capacity * backend.TransformStride,
	})
	if err != nil {
		cp.Destroy()
		return nil, err
	}
	return &InstanceBuffer{
		capacity:      capacity,
		codepoints:    make([]uint32, capacity),
		transforms:    make([]Transform, capacity),
		gpuCodepoints: cp,
		gpuTransforms: tr,
	}, nil
}

// reset empties the CPU side. The last flushed contents stay drawable.
func (b *InstanceBuffer) reset() { b.count = 0 }

// Append writes glyph g at (x, y) and advances the fill cursor.
// Appending to a full buffer panics.
func (b *InstanceBuffer) Append(g *text.Glyph, x, y float32) {
	if b.count >= b.capacity {
		panic(fmt.Sprintf("textbatch: append to full instance buffer (capacity %d)", b.capacity))
	}
	b.codepoints[b.count] = uint32(g.Codepoint)
	b.transforms[b.count] = Transform{X: x, Y: y, W: float32(g.Width), H: float32(g.Height)}
	b.count++
}

// IsFull reports whether the buffer has no free slot.
func (b *InstanceBuffer) IsFull() bool { return b.count == b.capacity }

// Len returns the number of appended instances.
func (b *InstanceBuffer) Len() int { return b.count }

// Cap returns the instance capacity.
func (b *InstanceBuffer) Cap() int { return b.capacity }

// DrawCount returns the number of instances valid on the GPU side.
func (b *InstanceBuffer) DrawCount() int { return b.flushed }

// Codepoint returns the codepoint of instance i.
func (b *InstanceBuffer) Codepoint(i int) text.Codepoint {
	return text.Codepoint(b.codepoints[b.checkIndex(i)])
}

// Transform returns the rectangle of instance i.
func (b *InstanceBuffer) Transform(i int) Transform {
	return b.transforms[b.checkIndex(i)]
}

func (b *InstanceBuffer) checkIndex(i int) int {
	if i < 0 || i >= b.count {
		panic(fmt.Sprintf("textbatch: instance %d out of range [0,%d)", i, b.count))
	}
	return i
}

// encode returns the little-endian bytes of the filled prefix.
func (b *InstanceBuffer) encode() (codepoints, transforms []byte) {
	codepoints = make([]byte, b.count*backend.CodepointStride)
	transforms = make([]byte, b.count*backend.TransformStride)
	for i := 0; i < b.count; i++ {
		binary.LittleEndian.PutUint32(codepoints[i*backend.CodepointStride:], b.codepoints[i])
		t := b.transforms[i]
		o := i * backend.TransformStride
		binary.LittleEndian.PutUint32(transforms[o:], math.Float32bits(t.X))
		binary.LittleEndian.PutUint32(transforms[o+4:], math.Float32bits(t.Y))
		binary.LittleEndian.PutUint32(transforms[o+8:], math.Float32bits(t.W))
		binary.LittleEndian.PutUint32(transforms[o+12:], math.Float32bits(t.H))
	}
	return codepoints, transforms
}

// Flush uploads the filled prefix to the shader buffers.
func (b *InstanceBuffer) Flush() error {
	if b.count > 0 {
		cp, tr := b.encode()
		if err := b.gpuCodepoints.SetSubData(0, cp); err != nil {
			return fmt.Errorf("textbatch: upload codepoints: %w", err)
		}
		if err := b.gpuTransforms.SetSubData(0, tr); err != nil {
			return fmt.Errorf("textbatch: upload transforms: %w", err)
		}
	}
	b.flushed = b.count
	return nil
}

// Buffers returns the codepoint and transform shader buffers.
func (b *InstanceBuffer) Buffers() (codepoints, transforms backend.ShaderBuffer) {
	return b.gpuCodepoints, b.gpuTransforms
}

func (b *InstanceBuffer) destroy() {
	b.gpuCodepoints.Destroy()
	b.gpuTransforms.Destroy()
	b.count, b.flushed = 0, 0
}
