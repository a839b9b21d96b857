package textbatch

import (
	"errors"
	"testing"

	"github.com/gogpu/textbatch/text"
)

func TestFontKeyString(t *testing.T) {
	if got, want := stubKey.String(), "stub.ttf@16x16"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestStorageRangeIndex(t *testing.T) {
	ctx, _, _ := newTestContext(t)
	s, err := ctx.Fonts().Acquire(stubKey)
	if err != nil {
		t.Fatalf("Acquire() = %v", err)
	}
	defer s.Release()

	tests := []struct {
		c        text.Codepoint
		want     int
		from, to text.Codepoint
	}{
		{0, 0, 0, 200},
		{'A', 0, 0, 200},
		{199, 0, 0, 200},
		{200, 1, 200, 400},
		{0x20AC, 41, 8200, 8400},
	}
	for _, tt := range tests {
		idx := s.RangeIndexOf(tt.c)
		if idx != tt.want {
			t.Errorf("RangeIndexOf(U+%04X) = %d, want %d", tt.c, idx, tt.want)
		}
		from, to := s.RangeBounds(idx)
		if from != tt.from || to != tt.to {
			t.Errorf("RangeBounds(%d) = [%d, %d), want [%d, %d)", idx, from, to, tt.from, tt.to)
		}
		if tt.c < from || tt.c >= to {
			t.Errorf("U+%04X not inside its range [%d, %d)", tt.c, from, to)
		}
	}
}

func TestStorageCacheCoherency(t *testing.T) {
	ctx, _, f := newTestContext(t)

	l1 := newTestLayout(t, ctx, "AB")
	l2 := newTestLayout(t, ctx, "BA")

	if l1.Storage() != l2.Storage() {
		t.Fatal("layouts with equal keys use different storages")
	}
	if len(f.created) != 1 {
		t.Errorf("rasterizers created = %d, want 1", len(f.created))
	}
	r1, r2 := l1.Batches()[0].Range(), l2.Batches()[0].Range()
	if r1 != r2 {
		t.Error("layouts observe different glyph ranges for range 0")
	}
	if t1, t2 := l1.Batches()[0].Texture(), l2.Batches()[0].Texture(); t1 != t2 {
		t.Error("layouts observe different glyph textures for range 0")
	}
	if n := f.created[0].rasterized[0]; n != 1 {
		t.Errorf("range 0 rasterized %d times, want 1", n)
	}

	other, err := ctx.NewLayout(FontKey{Path: "stub.ttf", Width: 16, Height: 20})
	if err != nil {
		t.Fatalf("NewLayout() = %v", err)
	}
	defer other.Close()
	if other.Storage() == l1.Storage() {
		t.Error("different sizes share a storage")
	}
}

func TestStorageEviction(t *testing.T) {
	ctx, sw, f := newTestContext(t)
	baseline := sw.LiveResources()

	l1, _ := ctx.NewLayout(stubKey)
	l2, _ := ctx.NewLayout(stubKey)
	l1.SetText("hello")
	l2.SetText("world")
	if err := l1.Update(); err != nil {
		t.Fatal(err)
	}
	if err := l2.Update(); err != nil {
		t.Fatal(err)
	}
	old := l1.Storage()

	l1.Close()
	if ctx.Fonts().Len() != 1 {
		t.Fatalf("storage freed while still in use")
	}
	l2.Close()
	ctx.Fonts().ReleaseUnused()

	if got := ctx.Fonts().Len(); got != 0 {
		t.Errorf("Fonts().Len() = %d after release, want 0", got)
	}
	if !f.created[0].closed {
		t.Error("rasterizer of evicted storage not closed")
	}
	if got := sw.LiveResources(); got != baseline {
		t.Errorf("live backend resources = %d, want %d", got, baseline)
	}
	if old.CachedRanges() != 0 || old.CachedTextures() != 0 {
		t.Errorf("evicted storage still caches %d ranges, %d textures", old.CachedRanges(), old.CachedTextures())
	}

	fresh, err := ctx.Fonts().Acquire(stubKey)
	if err != nil {
		t.Fatalf("Acquire() = %v", err)
	}
	defer fresh.Release()
	if fresh == old {
		t.Error("Acquire after eviction returned the old storage")
	}
	if len(f.created) != 2 {
		t.Errorf("rasterizers created = %d, want 2", len(f.created))
	}
}

func TestStorageLazyRelease(t *testing.T) {
	ctx, _, _ := newTestContext(t)

	s, err := ctx.Fonts().Acquire(stubKey)
	if err != nil {
		t.Fatal(err)
	}
	s.Release()
	if ctx.Fonts().Len() != 1 {
		t.Fatal("storage freed before ReleaseUnused")
	}

	again, err := ctx.Fonts().Acquire(stubKey)
	if err != nil {
		t.Fatal(err)
	}
	defer again.Release()
	if again != s {
		t.Error("unreleased storage not reused")
	}
	if ctx.Fonts().ReleaseUnused() != 0 {
		t.Error("ReleaseUnused freed a referenced storage")
	}
	if st := ctx.Fonts().Stats(); st.Hits != 1 || st.Misses != 1 {
		t.Errorf("Stats() = %+v, want 1 hit and 1 miss", st)
	}
}

func TestStorageLoadFailure(t *testing.T) {
	ctx, _, f := newTestContext(t)

	_, err := ctx.Fonts().Acquire(FontKey{Path: "missing.ttf", Width: 16, Height: 16})
	var fe *text.FontError
	if !errors.As(err, &fe) {
		t.Fatalf("Acquire() = %v, want *text.FontError", err)
	}
	if ctx.Fonts().Len() != 0 {
		t.Error("failed font left in registry")
	}
	if !f.created[0].closed {
		t.Error("rasterizer of failed font not closed")
	}
}

func TestStorageRangeFailure(t *testing.T) {
	ctx, _, f := newTestContext(t)
	f.failRanges[200] = true

	s, err := ctx.Fonts().Acquire(stubKey)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Release()

	_, err = s.RasterizeGlyphRange(1)
	var re *RangeError
	if !errors.As(err, &re) {
		t.Fatalf("RasterizeGlyphRange(1) = %v, want *RangeError", err)
	}
	if re.Index != 1 || re.From != 200 || re.To != 400 || !errors.Is(err, errStubRange) {
		t.Errorf("RangeError = %+v", re)
	}
	if _, err := s.GlyphTexture(1); !errors.As(err, &re) {
		t.Errorf("GlyphTexture(1) = %v, want *RangeError", err)
	}
	if s.CachedRanges() != 0 || s.CachedTextures() != 0 {
		t.Error("failed range cached")
	}
}

func TestStorageTextureLifetime(t *testing.T) {
	ctx, sw, _ := newTestContext(t)
	s, err := ctx.Fonts().Acquire(stubKey)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Release()

	tex, err := s.GlyphTexture(0)
	if err != nil {
		t.Fatalf("GlyphTexture(0) = %v", err)
	}
	arr := tex.Texture().Array
	if arr.Layers() != 200 {
		t.Errorf("layers = %d, want 200", arr.Layers())
	}
	if arr.Width() != 16 || arr.Height() != 16 {
		t.Errorf("texture size = %dx%d, want 16x16", arr.Width(), arr.Height())
	}
	if got := sw.Stats().LayerUploads; got != 200 {
		t.Errorf("layer uploads = %d, want 200", got)
	}
	// The texture holds the range.
	if s.CachedRanges() != 1 {
		t.Errorf("CachedRanges() = %d, want 1", s.CachedRanges())
	}

	tex.Release()
	if s.CachedTextures() != 0 || s.CachedRanges() != 0 {
		t.Errorf("after release: %d textures, %d ranges cached", s.CachedTextures(), s.CachedRanges())
	}
}
