package textbatch

import (
	"fmt"

	"github.com/gogpu/textbatch/backend"
)

// Context owns everything shared between layouts and renderers that draw
// with one backend: the font storage registry and the text shader program.
// Create one per graphics context and Close it when the backend goes away.
//
// A Context is not safe for concurrent use.
type Context struct {
	backend backend.Backend
	cfg     Config
	fonts   *StorageManager

	program     backend.Program
	programRefs int
	closed      bool
}

// NewContext creates a context drawing through b.
//
// Example:
//
//	b := backend.NewSoftware(800, 600)
//	ctx, err := textbatch.NewContext(b, textbatch.WithAtlasType(text.AtlasSDF))
//	if err != nil {
//	    return err
//	}
//	defer ctx.Close()
func NewContext(b backend.Backend, opts ...Option) (*Context, error) {
	if b == nil {
		return nil, ErrNilBackend
	}
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	propagateLogger(b, Logger())
	c := &Context{backend: b, cfg: cfg}
	c.fonts = newStorageManager(b, cfg)

	Logger().Info("textbatch: context created",
		"backend", b.Name(),
		"rangeSize", cfg.RangeSize,
		"bufferCapacity", cfg.BufferCapacity,
		"atlas", cfg.AtlasType)
	return c, nil
}

// Backend returns the backend the context draws with.
func (c *Context) Backend() backend.Backend { return c.backend }

// Config returns the effective configuration.
func (c *Context) Config() Config { return c.cfg }

// Fonts returns the font storage registry.
func (c *Context) Fonts() *StorageManager { return c.fonts }

// defaultKey fills a missing pixel size from the configuration.
func (c *Context) defaultKey(key FontKey) FontKey {
	if key.Width <= 0 {
		key.Width = c.cfg.DefaultFontWidth
	}
	if key.Height <= 0 {
		key.Height = c.cfg.DefaultFontHeight
	}
	return key
}

// acquireProgram returns the shared text program, creating it for the
// first renderer.
func (c *Context) acquireProgram() (backend.Program, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if c.programRefs == 0 {
		p, err := c.backend.CreateProgram(backend.ProgramDescriptor{
			Label:         "text",
			Source:        textShaderSource,
			VertexEntry:   "vs_main",
			FragmentEntry: "fs_main",
		})
		if err != nil {
			return nil, fmt.Errorf("textbatch: create text program: %w", err)
		}
		c.program = p
		Logger().Debug("textbatch: text program created")
	}
	c.programRefs++
	return c.program, nil
}

// releaseProgram drops one renderer reference and destroys the program
// with the last one.
func (c *Context) releaseProgram() {
	if c.programRefs == 0 {
		Logger().Warn("textbatch: text program released more often than acquired")
		return
	}
	c.programRefs--
	if c.programRefs == 0 && c.program != nil {
		c.program.Destroy()
		c.program = nil
		Logger().Debug("textbatch: text program destroyed")
	}
}

// Close frees unused font storages and the shader program.
// Layouts and renderers must be closed first; resources they still hold
// are reported and left to the backend.
func (c *Context) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.fonts.ReleaseUnused()
	if n := c.fonts.Len(); n > 0 {
		Logger().Warn("textbatch: context closed with fonts in use", "fonts", n)
	}
	if c.program != nil {
		Logger().Warn("textbatch: context closed with live renderers", "renderers", c.programRefs)
		c.program.Destroy()
		c.program = nil
		c.programRefs = 0
	}
	Logger().Info("textbatch: context closed", "backend", c.backend.Name())
}
