// Package backend provides the graphics abstraction used to upload glyph
// textures and instance data and to submit instanced draws.
//
// A Backend creates three kinds of resources:
//
//   - TextureArray: one layer per glyph of a codepoint range (8-bit texels)
//   - ShaderBuffer: raw bytes read by the vertex stage (codepoints, transforms)
//   - Program: the compiled text shader
//
// Drawing happens inside a Pass, which fixes the program and the frame
// uniforms. Within a pass a texture array and a pair of instance buffers
// are bound before each instanced draw of a four-vertex triangle strip.
//
// # Backend Registration
//
// Backends are registered by name and selected at runtime.
// The software backend is registered on import:
//
//	import "github.com/gogpu/textbatch/backend"
//
//	b, err := backend.Get(backend.BackendSoftware)
//
// The GPU backend in backend/wgpu needs a device, so it is registered
// explicitly with a provider:
//
//	wgpu.Register(provider)
//	b, err := backend.Default() // wgpu first, software as fallback
//
// # Software Backend
//
// Software keeps every resource in memory and rasterizes each glyph quad
// into an *image.RGBA target with the same math as the WGSL shader.
// It also records uploads and draws, which makes it the backend of choice
// for tests and headless rendering.
package backend
