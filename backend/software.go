package backend

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
)

// DefaultSoftwareSize is the target size of software backends created by
// the registry.
const DefaultSoftwareSize = 256

// init registers the software backend on package import.
func init() {
	Register(BackendSoftware, func() (Backend, error) {
		return NewSoftware(DefaultSoftwareSize, DefaultSoftwareSize), nil
	})
}

// SoftwareStats counts what a Software backend has been asked to do.
type SoftwareStats struct {
	TextureArrays int
	ShaderBuffers int
	Programs      int
	LayerUploads  int
	BufferUploads int
	Passes        int
	Draws         int
	Instances     int
}

// DrawRecord is one instanced draw seen by a Software backend.
type DrawRecord struct {
	FirstCodepoint uint32
	VertexCount    uint32
	InstanceCount  uint32
	Codepoints     []uint32
	Transforms     [][4]float32
}

// Software is an in-memory Backend that rasterizes glyph quads on the CPU.
// It is not safe for concurrent use.
type Software struct {
	target *image.RGBA
	stats  SoftwareStats
	draws  []DrawRecord
	live   int
	closed bool
}

var _ Backend = (*Software)(nil)

// NewSoftware creates a software backend with a transparent target.
func NewSoftware(width, height int) *Software {
	return &Software{target: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Name returns the backend identifier.
func (s *Software) Name() string { return BackendSoftware }

// Target returns the render target.
func (s *Software) Target() *image.RGBA { return s.target }

// SetTarget replaces the render target.
func (s *Software) SetTarget(img *image.RGBA) { s.target = img }

// Clear fills the target with c.
func (s *Software) Clear(c color.Color) {
	draw.Draw(s.target, s.target.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// Stats returns resource and draw counters.
func (s *Software) Stats() SoftwareStats { return s.stats }

// LiveResources returns the number of created and not yet destroyed resources.
func (s *Software) LiveResources() int { return s.live }

// Draws returns the draws recorded since the last ResetDraws.
func (s *Software) Draws() []DrawRecord { return s.draws }

// ResetDraws forgets recorded draws.
func (s *Software) ResetDraws() { s.draws = nil }

// Close releases the target. Resources stay readable but no new ones can
// be created.
func (s *Software) Close() { s.closed = true }

// CreateTextureArray implements Backend.
func (s *Software) CreateTextureArray(desc TextureArrayDescriptor) (TextureArray, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	t := &softwareTexture{owner: s, width: desc.Width, height: desc.Height}
	t.layers = make([][]byte, desc.Layers)
	for i := range t.layers {
		t.layers[i] = make([]byte, desc.Width*desc.Height)
	}
	s.stats.TextureArrays++
	s.live++
	return t, nil
}

// CreateShaderBuffer implements Backend.
func (s *Software) CreateShaderBuffer(desc ShaderBufferDescriptor) (ShaderBuffer, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	s.stats.ShaderBuffers++
	s.live++
	return &softwareBuffer{owner: s, data: make([]byte, desc.Size)}, nil
}

// CreateProgram implements Backend. The source is not compiled.
func (s *Software) CreateProgram(desc ProgramDescriptor) (Program, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	s.stats.Programs++
	s.live++
	return &softwareProgram{owner: s, label: desc.Label}, nil
}

// BeginPass implements Backend.
func (s *Software) BeginPass(program Program, u Uniforms) (Pass, error) {
	if s.closed {
		return nil, ErrClosed
	}
	p, ok := program.(*softwareProgram)
	if !ok || p.destroyed {
		return nil, fmt.Errorf("%w: program not created by this backend", ErrInvalidDescriptor)
	}
	s.stats.Passes++
	return &softwarePass{owner: s, u: u}, nil
}

type softwareTexture struct {
	owner         *Software
	width, height int
	layers        [][]byte
	destroyed     bool
}

func (t *softwareTexture) Width() int  { return t.width }
func (t *softwareTexture) Height() int { return t.height }
func (t *softwareTexture) Layers() int { return len(t.layers) }

func (t *softwareTexture) SetLayerData(layer, width, height int, data []byte) error {
	if t.destroyed {
		return ErrClosed
	}
	if layer < 0 || layer >= len(t.layers) || width <= 0 || height <= 0 ||
		width > t.width || height > t.height || len(data) < width*height {
		return fmt.Errorf("%w: layer %d block %dx%d (%d bytes) into %dx%dx%d",
			ErrOutOfBounds, layer, width, height, len(data), t.width, t.height, len(t.layers))
	}
	dst := t.layers[layer]
	for y := 0; y < height; y++ {
		copy(dst[y*t.width:y*t.width+width], data[y*width:(y+1)*width])
	}
	t.owner.stats.LayerUploads++
	return nil
}

func (t *softwareTexture) Destroy() {
	if !t.destroyed {
		t.destroyed = true
		t.owner.live--
	}
}

type softwareBuffer struct {
	owner     *Software
	data      []byte
	destroyed bool
}

func (b *softwareBuffer) Size() int { return len(b.data) }

func (b *softwareBuffer) SetSubData(offset int, data []byte) error {
	if b.destroyed {
		return ErrClosed
	}
	if offset < 0 || offset+len(data) > len(b.data) {
		return fmt.Errorf("%w: %d bytes at %d into %d", ErrOutOfBounds, len(data), offset, len(b.data))
	}
	copy(b.data[offset:], data)
	b.owner.stats.BufferUploads++
	return nil
}

func (b *softwareBuffer) Destroy() {
	if !b.destroyed {
		b.destroyed = true
		b.owner.live--
	}
}

type softwareProgram struct {
	owner     *Software
	label     string
	destroyed bool
}

func (p *softwareProgram) Label() string { return p.label }

func (p *softwareProgram) Destroy() {
	if !p.destroyed {
		p.destroyed = true
		p.owner.live--
	}
}

type softwarePass struct {
	owner      *Software
	u          Uniforms
	tex        *softwareTexture
	charFrom   uint32
	codepoints *softwareBuffer
	transforms *softwareBuffer
	ended      bool
}

func (p *softwarePass) BindTexture(tex TextureArray, firstCodepoint uint32) error {
	t, ok := tex.(*softwareTexture)
	if !ok || t.destroyed {
		return fmt.Errorf("%w: texture not created by this backend", ErrNotBound)
	}
	p.tex, p.charFrom = t, firstCodepoint
	return nil
}

func (p *softwarePass) BindInstances(codepoints, transforms ShaderBuffer) error {
	cb, ok1 := codepoints.(*softwareBuffer)
	tb, ok2 := transforms.(*softwareBuffer)
	if !ok1 || !ok2 || cb.destroyed || tb.destroyed {
		return fmt.Errorf("%w: buffers not created by this backend", ErrNotBound)
	}
	p.codepoints, p.transforms = cb, tb
	return nil
}

func (p *softwarePass) DrawInstanced(vertexCount, instanceCount uint32) error {
	if p.ended {
		return ErrClosed
	}
	if p.tex == nil || p.codepoints == nil || p.transforms == nil {
		return ErrNotBound
	}
	if vertexCount != QuadVertices {
		return fmt.Errorf("%w: vertex count %d, want %d", ErrInvalidDescriptor, vertexCount, QuadVertices)
	}
	n := int(instanceCount)
	if n*CodepointStride > len(p.codepoints.data) || n*TransformStride > len(p.transforms.data) {
		return fmt.Errorf("%w: %d instances exceed bound buffers", ErrOutOfBounds, n)
	}

	rec := DrawRecord{
		FirstCodepoint: p.charFrom,
		VertexCount:    vertexCount,
		InstanceCount:  instanceCount,
		Codepoints:     make([]uint32, n),
		Transforms:     make([][4]float32, n),
	}
	for i := 0; i < n; i++ {
		rec.Codepoints[i] = binary.LittleEndian.Uint32(p.codepoints.data[i*CodepointStride:])
		for j := 0; j < 4; j++ {
			bits := binary.LittleEndian.Uint32(p.transforms.data[i*TransformStride+j*4:])
			rec.Transforms[i][j] = math.Float32frombits(bits)
		}
		p.drawGlyph(rec.Codepoints[i], rec.Transforms[i])
	}

	s := p.owner
	s.draws = append(s.draws, rec)
	s.stats.Draws++
	s.stats.Instances += n
	return nil
}

func (p *softwarePass) End() error {
	if p.ended {
		return ErrClosed
	}
	p.ended = true
	return nil
}

// drawGlyph rasterizes one instance quad. Quad corner (u, v) sits at
// (x + u*w, y + v*h) in layout space and samples texel column u*w and
// row (1-v)*h of its layer.
func (p *softwarePass) drawGlyph(codepoint uint32, tr [4]float32) {
	layer := int(codepoint) - int(p.charFrom)
	if layer < 0 || layer >= len(p.tex.layers) {
		return
	}
	gw, gh := float64(tr[2]), float64(tr[3])
	if gw <= 0 || gh <= 0 {
		return
	}

	target := p.owner.target
	bounds := target.Bounds()
	tw, th := float64(bounds.Dx()), float64(bounds.Dy())

	project := func(x, y float64) (float64, float64) {
		cx, cy, cw := p.u.clip(x, y)
		if cw == 0 {
			cw = 1
		}
		return (cx/cw + 1) / 2 * tw, (1 - cy/cw) / 2 * th
	}
	x0, y0 := float64(tr[0]), float64(tr[1])
	ox, oy := project(x0, y0)
	ux, uy := project(x0+gw, y0)
	vx, vy := project(x0, y0+gh)
	e1x, e1y := ux-ox, uy-oy
	e2x, e2y := vx-ox, vy-oy
	det := e1x*e2y - e1y*e2x
	if det == 0 {
		return
	}

	minX := math.Floor(min(ox, ux, vx, ux+e2x))
	maxX := math.Ceil(max(ox, ux, vx, ux+e2x))
	minY := math.Floor(min(oy, uy, vy, uy+e2y))
	maxY := math.Ceil(max(oy, uy, vy, uy+e2y))
	rect := image.Rect(int(minX), int(minY), int(maxX), int(maxY)).Add(bounds.Min).Intersect(bounds)

	texels := p.tex.layers[layer]
	for py := rect.Min.Y; py < rect.Max.Y; py++ {
		for px := rect.Min.X; px < rect.Max.X; px++ {
			qx := float64(px-bounds.Min.X) + 0.5 - ox
			qy := float64(py-bounds.Min.Y) + 0.5 - oy
			u := (qx*e2y - qy*e2x) / det
			v := (e1x*qy - e1y*qx) / det
			if u < 0 || u >= 1 || v < 0 || v >= 1 {
				continue
			}
			col := min(int(u*gw), p.tex.width-1)
			row := min(int((1-v)*gh), int(gh)-1, p.tex.height-1)
			a := p.u.coverage(texels[row*p.tex.width+col])
			blendOver(target, px, py, p.u.shade(a))
		}
	}
}

// clip applies the column-major matrix to (x, y, 0, 1).
func (u *Uniforms) clip(x, y float64) (cx, cy, cw float64) {
	m := &u.Matrix
	cx = float64(m[0])*x + float64(m[4])*y + float64(m[12])
	cy = float64(m[1])*x + float64(m[5])*y + float64(m[13])
	cw = float64(m[3])*x + float64(m[7])*y + float64(m[15])
	return cx, cy, cw
}

// coverage converts a texel to alpha.
func (u *Uniforms) coverage(texel byte) float64 {
	a := float64(texel) / 255
	if !u.SDF {
		return a
	}
	// Linear ramp over a quarter of the encoded range around the edge.
	return clamp01((a-0.5)*4 + 0.5)
}

// shade mixes background and text color by coverage (straight alpha).
func (u *Uniforms) shade(a float64) [4]float64 {
	var out [4]float64
	for i := range out {
		out[i] = float64(u.Background[i])*(1-a) + float64(u.Color[i])*a
	}
	return out
}

// blendOver composites a straight-alpha color over a premultiplied pixel.
func blendOver(img *image.RGBA, x, y int, c [4]float64) {
	sa := clamp01(c[3])
	if sa == 0 {
		return
	}
	i := img.PixOffset(x, y)
	pix := img.Pix[i : i+4 : i+4]
	for k := 0; k < 3; k++ {
		pix[k] = uint8(math.Round(clamp01(c[k])*sa*255 + float64(pix[k])*(1-sa)))
	}
	pix[3] = uint8(math.Round(sa*255 + float64(pix[3])*(1-sa)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
