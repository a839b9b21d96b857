//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/textbatch/backend"
)

// Errors returned by the wgpu backend.
var (
	// ErrNoDevice is returned when the backend is created without a HAL device and queue.
	ErrNoDevice = errors.New("wgpu: device and queue are required")

	// ErrNoHAL is returned when a device provider does not expose HAL objects.
	ErrNoHAL = errors.New("wgpu: provider does not expose HAL types")

	// ErrNoTarget is returned when a pass begins before SetTarget.
	ErrNoTarget = errors.New("wgpu: no render target")
)

// DefaultTargetFormat is used when the provider reports no surface format.
const DefaultTargetFormat = gputypes.TextureFormatBGRA8Unorm

// Backend draws text with a HAL device.
// It is not safe for concurrent use.
type Backend struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat

	target        hal.TextureView
	width, height uint32
	clear         *gputypes.Color

	frameLayout    hal.BindGroupLayout
	glyphLayout    hal.BindGroupLayout
	instanceLayout hal.BindGroupLayout
	pipeLayout     hal.PipelineLayout
	sampler        hal.Sampler

	logger atomic.Pointer[slog.Logger]
	closed bool
}

var _ backend.Backend = (*Backend)(nil)

// New creates a backend on device and queue rendering to targets of the
// given format.
func New(device hal.Device, queue hal.Queue, format gputypes.TextureFormat) (*Backend, error) {
	if device == nil || queue == nil {
		return nil, ErrNoDevice
	}
	if format == gputypes.TextureFormatUndefined {
		format = DefaultTargetFormat
	}
	b := &Backend{device: device, queue: queue, format: format}
	b.logger.Store(slog.New(slog.DiscardHandler))
	if err := b.createLayouts(); err != nil {
		b.destroyLayouts()
		return nil, err
	}
	return b, nil
}

// NewFromProvider creates a backend on the HAL device of provider.
// The provider must expose HalDevice and HalQueue.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Backend, error) {
	if provider == nil {
		return nil, ErrNoDevice
	}
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHAL)
	}
	return New(device, queue, provider.SurfaceFormat())
}

// Register makes the backend for provider available from the backend
// registry under backend.BackendWGPU.
func Register(provider gpucontext.DeviceProvider) {
	backend.Register(backend.BackendWGPU, func() (backend.Backend, error) {
		return NewFromProvider(provider)
	})
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return backend.BackendWGPU }

// SetLogger sets the logger used by the backend.
func (b *Backend) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	b.logger.Store(l)
}

func (b *Backend) log() *slog.Logger { return b.logger.Load() }

// SetTarget selects the texture view drawn by following passes.
// The view must have the format the backend was created with.
func (b *Backend) SetTarget(view hal.TextureView, width, height uint32) {
	b.target, b.width, b.height = view, width, height
}

// Format returns the render target format.
func (b *Backend) Format() gputypes.TextureFormat { return b.format }

// ClearNextPass makes the next pass clear the target to c instead of
// loading its contents.
func (b *Backend) ClearNextPass(c gputypes.Color) {
	b.clear = &c
}

func (b *Backend) createLayouts() error {
	var err error
	b.frameLayout, err = b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "text_frame_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create frame layout: %w", err)
	}

	b.glyphLayout, err = b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "text_glyph_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2DArray,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create glyph layout: %w", err)
	}

	b.instanceLayout, err = b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "text_instance_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create instance layout: %w", err)
	}

	b.pipeLayout, err = b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "text_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{b.frameLayout, b.glyphLayout, b.instanceLayout},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create pipeline layout: %w", err)
	}

	// Linear filtering keeps distance fields smooth under scaling.
	b.sampler, err = b.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "text_glyph_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create sampler: %w", err)
	}
	return nil
}

// destroyLayouts releases shared objects in reverse creation order.
func (b *Backend) destroyLayouts() {
	if b.sampler != nil {
		b.device.DestroySampler(b.sampler)
		b.sampler = nil
	}
	if b.pipeLayout != nil {
		b.device.DestroyPipelineLayout(b.pipeLayout)
		b.pipeLayout = nil
	}
	for _, l := range []*hal.BindGroupLayout{&b.instanceLayout, &b.glyphLayout, &b.frameLayout} {
		if *l != nil {
			b.device.DestroyBindGroupLayout(*l)
			*l = nil
		}
	}
}

// Close releases the backend's shared GPU objects. Textures, buffers and
// programs must be destroyed by their owners first.
func (b *Backend) Close() {
	if b.closed {
		return
	}
	b.closed = true
	b.destroyLayouts()
	b.log().Info("wgpu: text backend closed")
}
