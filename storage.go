package textbatch

import (
	"fmt"

	"github.com/gogpu/textbatch/backend"
	"github.com/gogpu/textbatch/internal/cache"
	"github.com/gogpu/textbatch/text"
)

// FontKey identifies one rasterization cache: a font file at a pixel size.
// Layouts with equal keys share one FontStorage.
type FontKey struct {
	Path          string
	Width, Height int
}

func (k FontKey) String() string {
	return fmt.Sprintf("%s@%dx%d", k.Path, k.Width, k.Height)
}

// GlyphTexture is the texture array built from one glyph range.
// Layer i holds the glyph of codepoint Range().From+i.
type GlyphTexture struct {
	Array backend.TextureArray
	rng   *RangeRef
}

// Range returns the glyph range the texture was built from.
func (t *GlyphTexture) Range() *text.GlyphRange { return t.rng.Range() }

// RangeRef is a strong reference to a cached glyph range.
type RangeRef struct {
	h *cache.Handle[int, *text.GlyphRange]
}

// Range returns the referenced glyph range.
func (r *RangeRef) Range() *text.GlyphRange { return r.h.Value() }

// Index returns the range index.
func (r *RangeRef) Index() int { return r.h.Key() }

// Acquire returns a new reference to the same range.
func (r *RangeRef) Acquire() *RangeRef { return &RangeRef{h: r.h.Acquire()} }

// Release drops the reference. The range is freed with its last reference.
func (r *RangeRef) Release() { r.h.Release() }

// TextureRef is a strong reference to a cached glyph texture.
type TextureRef struct {
	h *cache.Handle[int, *GlyphTexture]
}

// Texture returns the referenced glyph texture.
func (r *TextureRef) Texture() *GlyphTexture { return r.h.Value() }

// Index returns the range index.
func (r *TextureRef) Index() int { return r.h.Key() }

// Release drops the reference. The texture array is destroyed with its
// last reference.
func (r *TextureRef) Release() { r.h.Release() }

// FontStorage caches the glyph ranges and textures of one font
// configuration. Both caches free an entry as soon as no batch holds it.
type FontStorage struct {
	key        FontKey
	rasterizer text.FontRasterizer
	backend    backend.Backend
	rangeSize  int
	atlas      text.AtlasType

	ranges   *cache.Cache[int, *text.GlyphRange]
	textures *cache.Cache[int, *GlyphTexture]

	// handle is the manager entry; nil for storages created outside one.
	handle *cache.Handle[FontKey, *FontStorage]
}

func newFontStorage(key FontKey, r text.FontRasterizer, b backend.Backend, cfg Config) *FontStorage {
	s := &FontStorage{
		key:        key,
		rasterizer: r,
		backend:    b,
		rangeSize:  cfg.RangeSize,
		atlas:      cfg.AtlasType,
	}
	s.ranges = cache.New(func(idx int, _ *text.GlyphRange) {
		Logger().Debug("textbatch: glyph range freed", "font", key, "range", idx)
	})
	s.textures = cache.New(func(idx int, t *GlyphTexture) {
		t.Array.Destroy()
		t.rng.Release()
		Logger().Debug("textbatch: glyph texture freed", "font", key, "range", idx)
	})
	return s
}

// Key returns the font configuration of the storage.
func (s *FontStorage) Key() FontKey { return s.key }

// RangeSize returns the number of codepoints per range.
func (s *FontStorage) RangeSize() int { return s.rangeSize }

// RangeIndexOf returns the index of the range containing c.
func (s *FontStorage) RangeIndexOf(c text.Codepoint) int {
	return int(c) / s.rangeSize
}

// RangeBounds returns the half-open codepoint interval of range idx.
func (s *FontStorage) RangeBounds(idx int) (from, to text.Codepoint) {
	from = text.Codepoint(idx * s.rangeSize)
	return from, from + text.Codepoint(s.rangeSize)
}

// RasterizeGlyphRange returns range idx, rasterizing it on a cache miss.
// Failures are *RangeError values; the caller treats them as missing glyphs.
func (s *FontStorage) RasterizeGlyphRange(idx int) (*RangeRef, error) {
	from, to := s.RangeBounds(idx)
	h, err := s.ranges.GetOrCreate(idx, func() (*text.GlyphRange, error) {
		rng, err := s.rasterizer.Rasterize(from, to)
		if err != nil {
			return nil, err
		}
		if rng.From != from || rng.To != to {
			return nil, fmt.Errorf("rasterizer returned [U+%04X, U+%04X)", rng.From, rng.To)
		}
		Logger().Debug("textbatch: glyph range rasterized", "font", s.key, "range", idx)
		return rng, nil
	})
	if err != nil {
		return nil, &RangeError{Font: s.key, Index: idx, From: from, To: to, Err: err}
	}
	return &RangeRef{h: h}, nil
}

// GlyphTexture returns the texture of range idx, building and uploading
// it on a cache miss. Whitespace and other empty glyphs get no upload.
func (s *FontStorage) GlyphTexture(idx int) (*TextureRef, error) {
	var rerr error
	h, err := s.textures.GetOrCreate(idx, func() (*GlyphTexture, error) {
		rng, err := s.RasterizeGlyphRange(idx)
		if err != nil {
			rerr = err
			return nil, err
		}
		t, err := s.uploadRange(rng)
		if err != nil {
			rng.Release()
			return nil, err
		}
		return t, nil
	})
	if rerr != nil {
		return nil, rerr
	}
	if err != nil {
		from, to := s.RangeBounds(idx)
		return nil, &RangeError{Font: s.key, Index: idx, From: from, To: to, Err: err}
	}
	return &TextureRef{h: h}, nil
}

func (s *FontStorage) uploadRange(ref *RangeRef) (*GlyphTexture, error) {
	rng := ref.Range()
	w, h := rng.MaxSize()
	w = max(w, s.key.Width)
	h = max(h, s.key.Height)

	arr, err := s.backend.CreateTextureArray(backend.TextureArrayDescriptor{
		Label:  fmt.Sprintf("glyphs %s range %d", s.key, ref.Index()),
		Width:  w,
		Height: h,
		Layers: rng.Len(),
		Format: backend.FormatR8,
	})
	if err != nil {
		return nil, err
	}

	uploads := 0
	for i := range rng.Glyphs {
		g := &rng.Glyphs[i]
		if g.Empty() {
			continue
		}
		if err := arr.SetLayerData(i, g.Width, g.Height, g.Pixels); err != nil {
			arr.Destroy()
			return nil, fmt.Errorf("layer %d (U+%04X): %w", i, g.Codepoint, err)
		}
		uploads++
	}
	Logger().Debug("textbatch: glyph texture uploaded",
		"font", s.key, "range", ref.Index(), "size", fmt.Sprintf("%dx%d", w, h), "layers", uploads)
	return &GlyphTexture{Array: arr, rng: ref}, nil
}

// FontHeight returns the font line height in pixels.
func (s *FontStorage) FontHeight() int { return s.rasterizer.FontHeight() }

// Ascender returns the ascent in pixels.
func (s *FontStorage) Ascender() int { return s.rasterizer.Ascender() }

// Descender returns the descent in pixels (negative below the baseline).
func (s *FontStorage) Descender() int { return s.rasterizer.Descender() }

// CachedRanges returns the number of live glyph ranges.
func (s *FontStorage) CachedRanges() int { return s.ranges.Len() }

// CachedTextures returns the number of live glyph textures.
func (s *FontStorage) CachedTextures() int { return s.textures.Len() }

// Release drops the caller's reference to a storage obtained from
// StorageManager.Acquire. The storage stays cached until the next
// StorageManager.ReleaseUnused.
func (s *FontStorage) Release() {
	if s.handle != nil {
		s.handle.Release()
	}
}

// close frees the rasterizer. Called by the manager on eviction.
func (s *FontStorage) close() {
	if n := s.ranges.Len() + s.textures.Len(); n > 0 {
		Logger().Warn("textbatch: font storage freed with live glyph data", "font", s.key, "entries", n)
	}
	if err := s.rasterizer.Close(); err != nil {
		Logger().Warn("textbatch: rasterizer close failed", "font", s.key, "err", err)
	}
}
