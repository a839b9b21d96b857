package textbatch

import (
	"errors"
	"fmt"

	"github.com/gogpu/textbatch/backend"
	"github.com/gogpu/textbatch/text"
)

// Renderer draws a Layout with one color and transform.
// Renderers of a Context share its shader program; the program is
// destroyed with the last renderer.
//
// Example:
//
//	r, err := textbatch.NewRenderer(ctx)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	r.SetTextLayout(layout)
//	r.SetMatrix(textbatch.Ortho(800, 600))
//	r.SetColor(textbatch.White)
//	if err := r.Draw(); err != nil {
//	    log.Println(err)
//	}
type Renderer struct {
	ctx     *Context
	program backend.Program
	layout  *Layout

	matrix     Matrix
	color      RGBA
	background RGBA
	closed     bool
}

// NewRenderer creates a renderer with the identity transform, black text
// and a transparent background.
func NewRenderer(ctx *Context) (*Renderer, error) {
	p, err := ctx.acquireProgram()
	if err != nil {
		return nil, err
	}
	return &Renderer{
		ctx:        ctx,
		program:    p,
		matrix:     Identity(),
		color:      Black,
		background: Transparent,
	}, nil
}

// NewRenderer creates a renderer drawing with this context.
func (c *Context) NewRenderer() (*Renderer, error) {
	return NewRenderer(c)
}

// SetTextLayout selects the layout to draw. nil draws nothing.
func (r *Renderer) SetTextLayout(l *Layout) { r.layout = l }

// TextLayout returns the selected layout.
func (r *Renderer) TextLayout() *Layout { return r.layout }

// SetMatrix sets the transform from layout pixels to clip space.
func (r *Renderer) SetMatrix(m Matrix) { r.matrix = m }

// Matrix returns the current transform.
func (r *Renderer) Matrix() Matrix { return r.matrix }

// SetColor sets the text color.
func (r *Renderer) SetColor(c RGBA) { r.color = c }

// SetBackgroundColor sets the color drawn behind each glyph quad.
func (r *Renderer) SetBackgroundColor(c RGBA) { r.background = c }

func (r *Renderer) uniforms() backend.Uniforms {
	w, h := r.layout.FontSize()
	return backend.Uniforms{
		Matrix:     r.matrix.mat4(),
		FontSize:   [2]float32{float32(w), float32(h)},
		Color:      r.color.vec4(),
		Background: r.background.vec4(),
		SDF:        r.ctx.cfg.AtlasType != text.AtlasBitmap,
	}
}

// Draw updates the layout if needed and issues one instanced draw per
// filled instance buffer. An empty layout or one without a font draws
// nothing. When the update fails on a glyph range the batches of the last
// successful update are drawn and the error is returned.
func (r *Renderer) Draw() error {
	if r.closed {
		return ErrClosed
	}
	l := r.layout
	if l == nil || l.TextLength() == 0 {
		return nil
	}

	updateErr := l.Update()
	if errors.Is(updateErr, ErrNoFont) {
		return nil
	}
	batches := l.Batches()
	if len(batches) == 0 {
		return updateErr
	}

	pass, err := r.ctx.backend.BeginPass(r.program, r.uniforms())
	if err != nil {
		return errors.Join(updateErr, fmt.Errorf("textbatch: begin pass: %w", err))
	}
	errs := []error{updateErr}
	for _, b := range batches {
		if err := r.drawBatch(pass, b); err != nil {
			errs = append(errs, err)
			break
		}
	}
	if err := pass.End(); err != nil {
		errs = append(errs, fmt.Errorf("textbatch: end pass: %w", err))
	}
	return errors.Join(errs...)
}

func (r *Renderer) drawBatch(pass backend.Pass, b *Batch) error {
	if err := pass.BindTexture(b.Texture().Array, uint32(b.Range().From)); err != nil {
		return fmt.Errorf("textbatch: bind range %d: %w", b.RangeIndex(), err)
	}
	for _, buf := range b.Buffers() {
		n := buf.DrawCount()
		if n == 0 {
			continue
		}
		cp, tr := buf.Buffers()
		if err := pass.BindInstances(cp, tr); err != nil {
			return fmt.Errorf("textbatch: bind instances of range %d: %w", b.RangeIndex(), err)
		}
		if err := pass.DrawInstanced(backend.QuadVertices, uint32(n)); err != nil {
			return fmt.Errorf("textbatch: draw range %d: %w", b.RangeIndex(), err)
		}
	}
	return nil
}

// Close releases the renderer's share of the shader program.
func (r *Renderer) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.ctx.releaseProgram()
	r.program = nil
}
