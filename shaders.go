package textbatch

import _ "embed"

// textShaderSource draws one glyph quad per instance from a texture array
// layer selected by the instance codepoint.
//
//go:embed shaders/text.wgsl
var textShaderSource string
