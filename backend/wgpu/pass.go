//go:build !nogpu

package wgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/textbatch/backend"
)

// Uniform block sizes matching the text shader.
const (
	// frameUniformSize: matrix (64) + color (16) + background (16) +
	// font_size (8) + sdf (4) + padding (4).
	frameUniformSize = 112

	// atlasUniformSize: layer_size (8) + char_from (4) + padding (4).
	atlasUniformSize = 16
)

func putFloat32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

// encodeFrameUniforms lays out backend.Uniforms as the Frame struct.
func encodeFrameUniforms(u backend.Uniforms) []byte {
	buf := make([]byte, frameUniformSize)
	for i, v := range u.Matrix {
		putFloat32(buf[i*4:], v)
	}
	for i, v := range u.Color {
		putFloat32(buf[64+i*4:], v)
	}
	for i, v := range u.Background {
		putFloat32(buf[80+i*4:], v)
	}
	putFloat32(buf[96:], u.FontSize[0])
	putFloat32(buf[100:], u.FontSize[1])
	if u.SDF {
		binary.LittleEndian.PutUint32(buf[104:], 1)
	}
	return buf
}

// encodeAtlasUniforms lays out the Atlas struct for one texture array.
func encodeAtlasUniforms(width, height int, firstCodepoint uint32) []byte {
	buf := make([]byte, atlasUniformSize)
	putFloat32(buf[0:], float32(width))
	putFloat32(buf[4:], float32(height))
	binary.LittleEndian.PutUint32(buf[8:], firstCodepoint)
	return buf
}

// pass records one render pass. Uniform buffers and bind groups created
// while recording are released after submission.
type pass struct {
	b       *Backend
	encoder hal.CommandEncoder
	rp      hal.RenderPassEncoder

	buffers    []hal.Buffer
	bindGroups []hal.BindGroup

	textureBound   bool
	instancesBound bool
	ended          bool
}

// BeginPass implements backend.Backend.
func (b *Backend) BeginPass(prog backend.Program, u backend.Uniforms) (backend.Pass, error) {
	if b.closed {
		return nil, backend.ErrClosed
	}
	p, ok := prog.(*program)
	if !ok || p.destroyed || p.owner != b {
		return nil, fmt.Errorf("%w: program not created by this backend", backend.ErrInvalidDescriptor)
	}
	if b.target == nil {
		return nil, ErrNoTarget
	}

	ps := &pass{b: b}
	frame, err := ps.uniformGroup("text_frame", b.frameLayout, encodeFrameUniforms(u), nil)
	if err != nil {
		ps.release()
		return nil, err
	}

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "text_encoder",
	})
	if err != nil {
		ps.release()
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("text_pass"); err != nil {
		ps.release()
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	ps.encoder = encoder

	loadOp, clearValue := gputypes.LoadOpLoad, gputypes.Color{}
	if b.clear != nil {
		loadOp, clearValue = gputypes.LoadOpClear, *b.clear
		b.clear = nil
	}
	ps.rp = encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "text_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       b.target,
			LoadOp:     loadOp,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: clearValue,
		}},
	})
	ps.rp.SetPipeline(p.pipeline)
	ps.rp.SetBindGroup(0, frame, nil)
	return ps, nil
}

// uniformGroup uploads data into a transient uniform buffer and binds it
// at binding 0 of a new bind group, followed by extra entries.
func (p *pass) uniformGroup(label string, layout hal.BindGroupLayout, data []byte, extra []gputypes.BindGroupEntry) (hal.BindGroup, error) {
	dev := p.b.device
	buf, err := dev.CreateBuffer(&hal.BufferDescriptor{
		Label: label + "_uniform",
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create %s uniform: %w", label, err)
	}
	p.buffers = append(p.buffers, buf)
	if err := p.b.queue.WriteBuffer(buf, 0, data); err != nil {
		return nil, fmt.Errorf("wgpu: write %s uniforms: %w", label, err)
	}

	entries := append([]gputypes.BindGroupEntry{
		{Binding: 0, Resource: gputypes.BufferBinding{
			Buffer: buf.NativeHandle(), Offset: 0, Size: uint64(len(data)),
		}},
	}, extra...)
	bg, err := dev.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   label + "_bind",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create %s bind group: %w", label, err)
	}
	p.bindGroups = append(p.bindGroups, bg)
	return bg, nil
}

func (p *pass) BindTexture(tex backend.TextureArray, firstCodepoint uint32) error {
	if p.ended {
		return backend.ErrClosed
	}
	t, ok := tex.(*textureArray)
	if !ok || t.destroyed || t.owner != p.b {
		return fmt.Errorf("%w: texture not created by this backend", backend.ErrNotBound)
	}
	bg, err := p.uniformGroup("text_glyphs", p.b.glyphLayout,
		encodeAtlasUniforms(t.width, t.height, firstCodepoint),
		[]gputypes.BindGroupEntry{
			{Binding: 1, Resource: gputypes.TextureViewBinding{
				TextureView: t.view.NativeHandle(),
			}},
			{Binding: 2, Resource: gputypes.SamplerBinding{
				Sampler: p.b.sampler.NativeHandle(),
			}},
		})
	if err != nil {
		return err
	}
	p.rp.SetBindGroup(1, bg, nil)
	p.textureBound = true
	return nil
}

func (p *pass) BindInstances(codepoints, transforms backend.ShaderBuffer) error {
	if p.ended {
		return backend.ErrClosed
	}
	cb, ok1 := codepoints.(*shaderBuffer)
	tb, ok2 := transforms.(*shaderBuffer)
	if !ok1 || !ok2 || cb.destroyed || tb.destroyed || cb.owner != p.b || tb.owner != p.b {
		return fmt.Errorf("%w: buffers not created by this backend", backend.ErrNotBound)
	}
	bg, err := p.b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "text_instances_bind",
		Layout: p.b.instanceLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: cb.buf.NativeHandle(), Offset: 0, Size: uint64(cb.size), //nolint:gosec // positive
			}},
			{Binding: 1, Resource: gputypes.BufferBinding{
				Buffer: tb.buf.NativeHandle(), Offset: 0, Size: uint64(tb.size), //nolint:gosec // positive
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create instance bind group: %w", err)
	}
	p.bindGroups = append(p.bindGroups, bg)
	p.rp.SetBindGroup(2, bg, nil)
	p.instancesBound = true
	return nil
}

func (p *pass) DrawInstanced(vertexCount, instanceCount uint32) error {
	if p.ended {
		return backend.ErrClosed
	}
	if !p.textureBound || !p.instancesBound {
		return backend.ErrNotBound
	}
	if vertexCount != backend.QuadVertices {
		return fmt.Errorf("%w: vertex count %d, want %d", backend.ErrInvalidDescriptor, vertexCount, backend.QuadVertices)
	}
	p.rp.Draw(vertexCount, instanceCount, 0, 0)
	return nil
}

// End submits the pass and waits for it to complete.
func (p *pass) End() error {
	if p.ended {
		return backend.ErrClosed
	}
	p.ended = true
	defer p.release()

	p.rp.End()
	cmdBuf, err := p.encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	dev := p.b.device
	defer dev.FreeCommandBuffer(cmdBuf)

	if _, err := p.b.queue.Submit([]hal.CommandBuffer{cmdBuf}); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	// Transient bind groups and uniform buffers are destroyed on return.
	if err := dev.WaitIdle(); err != nil {
		return fmt.Errorf("wgpu: wait idle: %w", err)
	}
	return nil
}

// release destroys the transient objects of the pass.
func (p *pass) release() {
	dev := p.b.device
	for _, bg := range p.bindGroups {
		dev.DestroyBindGroup(bg)
	}
	for _, buf := range p.buffers {
		dev.DestroyBuffer(buf)
	}
	p.bindGroups, p.buffers = nil, nil
}
