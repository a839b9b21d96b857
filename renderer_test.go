package textbatch

import (
	"errors"
	"image/color"
	"testing"

	"github.com/gogpu/textbatch/backend"
)

func TestRendererDraw(t *testing.T) {
	ctx, sw, _ := newTestContext(t, WithBufferCapacity(2))
	l := newTestLayout(t, ctx, "ABC Ā")

	r, err := ctx.NewRenderer()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	r.SetTextLayout(l)
	r.SetMatrix(Ortho(64, 64).Multiply(Translate(0, 20)))
	r.SetColor(RGB(1, 0, 0))

	if err := r.Draw(); err != nil {
		t.Fatalf("Draw() = %v", err)
	}

	st := sw.Stats()
	if st.Passes != 1 {
		t.Errorf("passes = %d, want 1", st.Passes)
	}
	// Range 0 holds A, B, C in buffers of 2 and 1; range 1 holds Ā.
	if st.Draws != 3 || st.Instances != 4 {
		t.Errorf("draws = %d, instances = %d, want 3 and 4", st.Draws, st.Instances)
	}
	draws := sw.Draws()
	wantCounts := []uint32{2, 1, 1}
	wantFirst := []uint32{0, 0, 200}
	for i, d := range draws {
		if d.InstanceCount != wantCounts[i] || d.FirstCodepoint != wantFirst[i] {
			t.Errorf("draw %d: %d instances from U+%04X, want %d from U+%04X",
				i, d.InstanceCount, d.FirstCodepoint, wantCounts[i], wantFirst[i])
		}
		if d.VertexCount != backend.QuadVertices {
			t.Errorf("draw %d: vertex count %d", i, d.VertexCount)
		}
	}

	// 'A' covers layout x in [1,9), y in [19,29): image rows 35..44.
	if got := color.NRGBAModel.Convert(sw.Target().At(4, 40)).(color.NRGBA); got.R != 255 || got.A != 255 {
		t.Errorf("pixel inside 'A' = %v, want opaque red", got)
	}
	if got := sw.Target().RGBAAt(4, 10); got.A != 0 {
		t.Errorf("pixel above the text = %v, want transparent", got)
	}
}

func TestRendererSkipsEmptyAndFontless(t *testing.T) {
	ctx, sw, _ := newTestContext(t)
	r, err := ctx.NewRenderer()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if err := r.Draw(); err != nil {
		t.Errorf("Draw() without layout = %v", err)
	}

	empty := newTestLayout(t, ctx, "")
	r.SetTextLayout(empty)
	if err := r.Draw(); err != nil {
		t.Errorf("Draw() of empty layout = %v", err)
	}

	fontless, err := ctx.NewLayout(FontKey{})
	if err != nil {
		t.Fatal(err)
	}
	defer fontless.Close()
	fontless.SetText("abc")
	r.SetTextLayout(fontless)
	if err := r.Draw(); err != nil {
		t.Errorf("Draw() of layout without font = %v", err)
	}

	spaces := newTestLayout(t, ctx, "   ")
	r.SetTextLayout(spaces)
	if err := r.Draw(); err != nil {
		t.Errorf("Draw() of whitespace = %v", err)
	}
	if st := sw.Stats(); st.Draws != 0 {
		t.Errorf("draws = %d, want 0", st.Draws)
	}
}

func TestRendererUpdatesDirtyLayout(t *testing.T) {
	ctx, sw, _ := newTestContext(t)
	l := newTestLayout(t, ctx, "A")
	r, err := ctx.NewRenderer()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	r.SetTextLayout(l)

	l.AppendText("BC")
	if err := r.Draw(); err != nil {
		t.Fatal(err)
	}
	if l.State() != LayoutClean {
		t.Errorf("state after Draw = %v", l.State())
	}
	if st := sw.Stats(); st.Instances != 3 {
		t.Errorf("instances drawn = %d, want 3", st.Instances)
	}
}

func TestRendererDrawsStaleBatchesOnRangeFailure(t *testing.T) {
	ctx, sw, f := newTestContext(t)
	l := newTestLayout(t, ctx, "AB")
	r, err := ctx.NewRenderer()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	r.SetTextLayout(l)

	f.failRanges[200] = true
	l.AppendText("Ā")
	err = r.Draw()
	var re *RangeError
	if !errors.As(err, &re) {
		t.Fatalf("Draw() = %v, want *RangeError", err)
	}
	if st := sw.Stats(); st.Draws != 1 || st.Instances != 2 {
		t.Errorf("draws = %d, instances = %d, want the previous 1 and 2", st.Draws, st.Instances)
	}
}

func TestRendererSharesProgram(t *testing.T) {
	ctx, sw, _ := newTestContext(t)

	r1, err := NewRenderer(ctx)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := NewRenderer(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if r1.program != r2.program {
		t.Error("renderers use different programs")
	}
	if got := sw.Stats().Programs; got != 1 {
		t.Errorf("programs created = %d, want 1", got)
	}
	live := sw.LiveResources()

	r1.Close()
	r1.Close()
	if sw.LiveResources() != live {
		t.Error("program destroyed while a renderer remains")
	}
	r2.Close()
	if sw.LiveResources() != live-1 {
		t.Error("program not destroyed with the last renderer")
	}
	if err := r2.Draw(); !errors.Is(err, ErrClosed) {
		t.Errorf("Draw() after Close = %v, want ErrClosed", err)
	}

	r3, err := NewRenderer(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer r3.Close()
	if got := sw.Stats().Programs; got != 2 {
		t.Errorf("programs created = %d, want 2", got)
	}
}
