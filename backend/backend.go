package backend

import (
	"errors"
	"fmt"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrClosed is returned when a closed backend or resource is used.
	ErrClosed = errors.New("backend: closed")

	// ErrInvalidDescriptor is returned for descriptors with invalid sizes or names.
	ErrInvalidDescriptor = errors.New("backend: invalid descriptor")

	// ErrOutOfBounds is returned when an upload does not fit its destination.
	ErrOutOfBounds = errors.New("backend: upload out of bounds")

	// ErrNotBound is returned when a draw is issued without a texture or buffers.
	ErrNotBound = errors.New("backend: resources not bound")
)

// Instance layout shared by backends and the text shader.
const (
	// CodepointStride is the size of one codepoint entry (u32).
	CodepointStride = 4

	// TransformStride is the size of one transform entry (vec4<f32>: x, y, w, h).
	TransformStride = 16

	// QuadVertices is the vertex count of one glyph quad (triangle strip).
	QuadVertices = 4
)

// TextureFormat is the texel format of a texture array.
type TextureFormat uint8

const (
	// FormatR8 stores one unsigned normalized byte per texel.
	FormatR8 TextureFormat = iota
)

// TextureArrayDescriptor describes a 2D texture array.
type TextureArrayDescriptor struct {
	Label  string
	Width  int
	Height int
	Layers int
	Format TextureFormat
}

// Validate checks the descriptor sizes.
func (d TextureArrayDescriptor) Validate() error {
	if d.Width <= 0 || d.Height <= 0 || d.Layers <= 0 {
		return fmt.Errorf("%w: texture array %q is %dx%dx%d", ErrInvalidDescriptor, d.Label, d.Width, d.Height, d.Layers)
	}
	return nil
}

// ShaderBufferDescriptor describes a buffer read by shaders.
type ShaderBufferDescriptor struct {
	Label string
	Size  int
}

// Validate checks the descriptor size.
func (d ShaderBufferDescriptor) Validate() error {
	if d.Size <= 0 {
		return fmt.Errorf("%w: buffer %q has size %d", ErrInvalidDescriptor, d.Label, d.Size)
	}
	return nil
}

// ProgramDescriptor describes a shader program.
type ProgramDescriptor struct {
	Label         string
	Source        string // WGSL
	VertexEntry   string
	FragmentEntry string
}

// Validate checks that source and entry points are present.
func (d ProgramDescriptor) Validate() error {
	if d.Source == "" || d.VertexEntry == "" || d.FragmentEntry == "" {
		return fmt.Errorf("%w: program %q needs source and entry points", ErrInvalidDescriptor, d.Label)
	}
	return nil
}

// Uniforms are the per-pass shader inputs.
type Uniforms struct {
	// Matrix maps layout pixels to clip space (column-major).
	Matrix [16]float32

	// FontSize is the font pixel size.
	FontSize [2]float32

	// Color and Background are straight-alpha RGBA in [0,1].
	Color      [4]float32
	Background [4]float32

	// SDF selects distance field sampling instead of coverage.
	SDF bool
}

// Backend creates GPU resources and submits text draws.
type Backend interface {
	// Name returns the backend identifier (e.g., "software", "wgpu").
	Name() string

	// CreateTextureArray allocates a zeroed texture array.
	CreateTextureArray(desc TextureArrayDescriptor) (TextureArray, error)

	// CreateShaderBuffer allocates a buffer readable by the vertex stage.
	CreateShaderBuffer(desc ShaderBufferDescriptor) (ShaderBuffer, error)

	// CreateProgram compiles and links a shader program.
	CreateProgram(desc ProgramDescriptor) (Program, error)

	// BeginPass starts drawing with program and uniforms.
	BeginPass(program Program, u Uniforms) (Pass, error)

	// Close releases all backend resources.
	// The backend should not be used after Close is called.
	Close()
}

// TextureArray is a layered 2D texture.
type TextureArray interface {
	Width() int
	Height() int
	Layers() int

	// SetLayerData writes a width x height block of texels, top row first,
	// at the origin of layer.
	SetLayerData(layer, width, height int, data []byte) error

	Destroy()
}

// ShaderBuffer is a byte buffer read by shaders.
type ShaderBuffer interface {
	Size() int

	// SetSubData writes data at offset.
	SetSubData(offset int, data []byte) error

	Destroy()
}

// Program is a compiled shader program.
type Program interface {
	Label() string
	Destroy()
}

// Pass records draws with one program and one set of uniforms.
type Pass interface {
	// BindTexture binds the glyph texture whose layer 0 holds firstCodepoint.
	BindTexture(tex TextureArray, firstCodepoint uint32) error

	// BindInstances binds the per-instance codepoint and transform buffers.
	BindInstances(codepoints, transforms ShaderBuffer) error

	// DrawInstanced draws instanceCount instances of a vertexCount strip.
	DrawInstanced(vertexCount, instanceCount uint32) error

	// End finishes the pass and submits its work.
	End() error
}
