//go:build !nogpu

// Package wgpu implements backend.Backend on a gogpu/wgpu HAL device.
//
// Glyph textures become R8 texture arrays sampled through a 2D-array view,
// instance buffers become read-only storage buffers, and every pass is
// recorded into one command buffer that is submitted and waited on when
// the pass ends. Per-pass uniform buffers and bind groups live only until
// that submission completes.
//
// # Usage
//
// The backend draws into a texture view owned by the caller, usually the
// current surface texture:
//
//	b, err := wgpu.NewFromProvider(provider)
//	if err != nil {
//	    return err
//	}
//	defer b.Close()
//	b.SetTarget(view, width, height)
//
//	ctx, err := textbatch.NewContext(b)
//
// Register makes the backend available through backend.Get and
// backend.Default for a given device provider.
//
// # Shaders
//
// Program sources are WGSL. They are compiled to SPIR-V with naga when
// the program is created, so shader errors surface from CreateProgram
// rather than from the first draw.
//
// # Build Tags
//
// Build with -tags nogpu to leave this package out entirely.
package wgpu
