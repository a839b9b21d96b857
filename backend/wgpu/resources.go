//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/textbatch/backend"
)

// textureFormat maps backend formats to GPU formats.
func textureFormat(f backend.TextureFormat) (gputypes.TextureFormat, error) {
	switch f {
	case backend.FormatR8:
		return gputypes.TextureFormatR8Unorm, nil
	default:
		return gputypes.TextureFormatUndefined, fmt.Errorf("%w: texture format %d", backend.ErrInvalidDescriptor, f)
	}
}

type textureArray struct {
	owner         *Backend
	tex           hal.Texture
	view          hal.TextureView
	width, height int
	layers        int
	destroyed     bool
}

// CreateTextureArray implements backend.Backend.
func (b *Backend) CreateTextureArray(desc backend.TextureArrayDescriptor) (backend.TextureArray, error) {
	if b.closed {
		return nil, backend.ErrClosed
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	format, err := textureFormat(desc.Format)
	if err != nil {
		return nil, err
	}

	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              uint32(desc.Width),  //nolint:gosec // validated positive
			Height:             uint32(desc.Height), //nolint:gosec // validated positive
			DepthOrArrayLayers: uint32(desc.Layers), //nolint:gosec // validated positive
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture %q: %w", desc.Label, err)
	}
	view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           desc.Label + " view",
		Format:          format,
		Dimension:       gputypes.TextureViewDimension2DArray,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: uint32(desc.Layers), //nolint:gosec // validated positive
	})
	if err != nil {
		b.device.DestroyTexture(tex)
		return nil, fmt.Errorf("wgpu: create texture view %q: %w", desc.Label, err)
	}

	b.log().Debug("wgpu: texture array created",
		"label", desc.Label, "width", desc.Width, "height", desc.Height, "layers", desc.Layers)
	return &textureArray{
		owner:  b,
		tex:    tex,
		view:   view,
		width:  desc.Width,
		height: desc.Height,
		layers: desc.Layers,
	}, nil
}

func (t *textureArray) Width() int  { return t.width }
func (t *textureArray) Height() int { return t.height }
func (t *textureArray) Layers() int { return t.layers }

func (t *textureArray) SetLayerData(layer, width, height int, data []byte) error {
	if t.destroyed {
		return backend.ErrClosed
	}
	if layer < 0 || layer >= t.layers || width <= 0 || height <= 0 ||
		width > t.width || height > t.height || len(data) < width*height {
		return fmt.Errorf("%w: layer %d block %dx%d (%d bytes) into %dx%dx%d",
			backend.ErrOutOfBounds, layer, width, height, len(data), t.width, t.height, t.layers)
	}
	err := t.owner.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: 0, Y: 0, Z: uint32(layer)}, //nolint:gosec // bounds checked
			Aspect:   gputypes.TextureAspectAll,
		},
		data[:width*height],
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(width),  //nolint:gosec // bounds checked
			RowsPerImage: uint32(height), //nolint:gosec // bounds checked
		},
		&hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1}, //nolint:gosec // bounds checked
	)
	if err != nil {
		return fmt.Errorf("wgpu: write layer %d: %w", layer, err)
	}
	return nil
}

func (t *textureArray) Destroy() {
	if t.destroyed {
		return
	}
	t.destroyed = true
	t.owner.device.DestroyTextureView(t.view)
	t.owner.device.DestroyTexture(t.tex)
}

type shaderBuffer struct {
	owner     *Backend
	buf       hal.Buffer
	size      int
	destroyed bool
}

// CreateShaderBuffer implements backend.Backend. The buffer is a read-only
// storage buffer; its size is rounded up to a multiple of four bytes.
func (b *Backend) CreateShaderBuffer(desc backend.ShaderBufferDescriptor) (backend.ShaderBuffer, error) {
	if b.closed {
		return nil, backend.ErrClosed
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	size := (desc.Size + 3) &^ 3
	buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  uint64(size), //nolint:gosec // validated positive
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create buffer %q: %w", desc.Label, err)
	}
	return &shaderBuffer{owner: b, buf: buf, size: desc.Size}, nil
}

func (s *shaderBuffer) Size() int { return s.size }

func (s *shaderBuffer) SetSubData(offset int, data []byte) error {
	if s.destroyed {
		return backend.ErrClosed
	}
	if offset < 0 || offset+len(data) > s.size {
		return fmt.Errorf("%w: %d bytes at %d into %d", backend.ErrOutOfBounds, len(data), offset, s.size)
	}
	if len(data) == 0 {
		return nil
	}
	if err := s.owner.queue.WriteBuffer(s.buf, uint64(offset), data); err != nil { //nolint:gosec // bounds checked
		return fmt.Errorf("wgpu: write buffer: %w", err)
	}
	return nil
}

func (s *shaderBuffer) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.owner.device.DestroyBuffer(s.buf)
}

type program struct {
	owner     *Backend
	label     string
	shader    hal.ShaderModule
	pipeline  hal.RenderPipeline
	destroyed bool
}

// compileWGSL compiles WGSL source to little-endian SPIR-V words.
func compileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, err
	}
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code, nil
}

// CreateProgram implements backend.Backend.
func (b *Backend) CreateProgram(desc backend.ProgramDescriptor) (backend.Program, error) {
	if b.closed {
		return nil, backend.ErrClosed
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	spirv, err := compileWGSL(desc.Source)
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile %q: %w", desc.Label, err)
	}

	shader, err := b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label + "_shader",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create shader module %q: %w", desc.Label, err)
	}

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := b.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  desc.Label + "_pipeline",
		Layout: b.pipeLayout,
		Vertex: hal.VertexState{
			Module:     shader,
			EntryPoint: desc.VertexEntry,
		},
		Fragment: &hal.FragmentState{
			Module:     shader,
			EntryPoint: desc.FragmentEntry,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    b.format,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleStrip,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		b.device.DestroyShaderModule(shader)
		return nil, fmt.Errorf("wgpu: create pipeline %q: %w", desc.Label, err)
	}

	b.log().Debug("wgpu: program created", "label", desc.Label, "spirvWords", len(spirv))
	return &program{owner: b, label: desc.Label, shader: shader, pipeline: pipeline}, nil
}

func (p *program) Label() string { return p.label }

func (p *program) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	p.owner.device.DestroyRenderPipeline(p.pipeline)
	p.owner.device.DestroyShaderModule(p.shader)
}
