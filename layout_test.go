package textbatch

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestLayoutScenario(t *testing.T) {
	ctx, _, _ := newTestContext(t)
	l := newTestLayout(t, ctx, "AB\nC")

	if got, want := l.TextAdvance(), []int{10, 20, 20, 10}; !slices.Equal(got, want) {
		t.Errorf("TextAdvance() = %v, want %v", got, want)
	}
	batches := l.Batches()
	if len(batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(batches))
	}
	b := batches[0]
	if b.Instances() != 3 {
		t.Fatalf("instances = %d, want 3", b.Instances())
	}

	buf := b.Buffers()[0]
	want := []struct {
		c rune
		t Transform
	}{
		{'A', Transform{X: 1, Y: -1, W: 8, H: 10}},
		{'B', Transform{X: 11, Y: -1, W: 8, H: 10}},
		{'C', Transform{X: 1, Y: float32(stubKey.Height) - 1, W: 8, H: 10}},
	}
	for i, w := range want {
		if got := buf.Codepoint(i); got != w.c {
			t.Errorf("instance %d codepoint = %q, want %q", i, got, w.c)
		}
		if got := buf.Transform(i); got != w.t {
			t.Errorf("instance %d transform = %+v, want %+v", i, got, w.t)
		}
	}
}

func TestLayoutAdvanceLength(t *testing.T) {
	ctx, _, _ := newTestContext(t)
	l, err := ctx.NewLayout(stubKey)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	for _, s := range []string{"", "a", "\n", "\n\n\n", "hello world", "tab\there", "ĀāĂ€", strings.Repeat("x", 500)} {
		l.SetText(s)
		if err := l.Update(); err != nil {
			t.Fatalf("Update(%q) = %v", s, err)
		}
		if got, want := len(l.TextAdvance()), l.TextLength(); got != want {
			t.Errorf("%q: len(TextAdvance()) = %d, want %d", s, got, want)
		}
	}
}

func TestLayoutInitialUpdate(t *testing.T) {
	ctx, _, _ := newTestContext(t)
	l, err := ctx.NewLayout(stubKey)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	if l.State() != LayoutTextDirty {
		t.Errorf("initial state = %v, want TextDirty", l.State())
	}
	if err := l.Update(); err != nil {
		t.Fatal(err)
	}
	if l.State() != LayoutClean || len(l.TextAdvance()) != 0 || len(l.Batches()) != 0 {
		t.Errorf("empty layout after Update: state %v, %d advances, %d batches",
			l.State(), len(l.TextAdvance()), len(l.Batches()))
	}
}

func encodeLayout(l *Layout) []byte {
	var out bytes.Buffer
	for _, b := range l.Batches() {
		for _, buf := range b.Buffers() {
			cp, tr := buf.encode()
			out.Write(cp)
			out.Write(tr)
		}
	}
	return out.Bytes()
}

func TestLayoutIdempotentUpdate(t *testing.T) {
	ctx, sw, _ := newTestContext(t, WithBufferCapacity(3))
	l := newTestLayout(t, ctx, "The quick\nbrown fox ĀĂ")

	first := encodeLayout(l)
	uploads := sw.Stats().BufferUploads
	if err := l.Update(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, encodeLayout(l)) {
		t.Error("second Update changed instance data")
	}
	if sw.Stats().BufferUploads != uploads {
		t.Error("clean Update uploaded buffers")
	}

	// A forced recompute of the same text produces the same bytes.
	l.SetText(l.Text())
	if err := l.Update(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, encodeLayout(l)) {
		t.Error("recompute of unchanged text changed instance data")
	}
}

func TestLayoutRangeContainment(t *testing.T) {
	ctx, _, _ := newTestContext(t)
	l := newTestLayout(t, ctx, "aĀ€b\nЖ 日本")

	if len(l.Batches()) < 4 {
		t.Fatalf("batches = %d, want at least 4", len(l.Batches()))
	}
	var prev int = -1
	for _, b := range l.Batches() {
		if b.RangeIndex() <= prev {
			t.Errorf("batches not ordered by range: %d after %d", b.RangeIndex(), prev)
		}
		prev = b.RangeIndex()
		r := b.Range()
		for _, buf := range b.Buffers() {
			for i := 0; i < buf.Len(); i++ {
				c := buf.Codepoint(i)
				if c < r.From || c >= r.To {
					t.Errorf("U+%04X in batch [U+%04X, U+%04X)", c, r.From, r.To)
				}
			}
		}
	}
	if got, want := instanceCount(l), 7; got != want {
		t.Errorf("instances = %d, want %d", got, want)
	}
}

func TestLayoutWhitespaceExclusion(t *testing.T) {
	ctx, _, _ := newTestContext(t)
	l := newTestLayout(t, ctx, "")

	const ws = "  \t \t\t   "
	l.AppendText(ws)
	if err := l.Update(); err != nil {
		t.Fatal(err)
	}
	adv := l.TextAdvance()
	if len(adv) != len(ws) {
		t.Fatalf("len(TextAdvance()) = %d, want %d", len(adv), len(ws))
	}
	for i := 1; i < len(adv); i++ {
		if adv[i] < adv[i-1] {
			t.Errorf("advance decreases at %d: %v", i, adv)
		}
	}
	if n := instanceCount(l); n != 0 {
		t.Errorf("whitespace produced %d instances", n)
	}
}

func TestLayoutStateMachine(t *testing.T) {
	ctx, _, _ := newTestContext(t)

	tests := []struct {
		name string
		edit func(l *Layout)
		want LayoutState
	}{
		{"set text", func(l *Layout) { l.SetText("x") }, LayoutTextDirty},
		{"insert text", func(l *Layout) { l.InsertText(0, "x") }, LayoutTextDirty},
		{"erase text", func(l *Layout) { l.EraseText(0, 1) }, LayoutTextDirty},
		{"append text", func(l *Layout) { l.AppendText("x") }, LayoutTextDirty},
		{"font size", func(l *Layout) { _ = l.SetFontSize(20, 20) }, LayoutFontDirty},
		{"font path", func(l *Layout) { _ = l.SetFontPath("other.ttf") }, LayoutFontDirty},
		{"same font", func(l *Layout) { _ = l.SetFontPath(stubKey.Path) }, LayoutFontDirty},
		{"font then text", func(l *Layout) {
			_ = l.SetFontSize(20, 20)
			l.AppendText("x")
		}, LayoutFontDirty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLayout(t, ctx, "ab")
			if l.State() != LayoutClean {
				t.Fatalf("state after Update = %v", l.State())
			}
			tt.edit(l)
			if l.State() != tt.want {
				t.Errorf("state = %v, want %v", l.State(), tt.want)
			}
			if err := l.Update(); err != nil {
				t.Fatal(err)
			}
			if l.State() != LayoutClean {
				t.Errorf("state after Update = %v, want Clean", l.State())
			}
		})
	}
}

func TestLayoutEdits(t *testing.T) {
	ctx, _, _ := newTestContext(t)
	l := newTestLayout(t, ctx, "hello")

	l.InsertText(5, " world")
	l.InsertText(0, ">")
	l.EraseText(1, 1)
	l.AppendText("!")
	if got, want := l.Text(), ">ello world!"; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
	if l.TextLength() != 12 {
		t.Errorf("TextLength() = %d, want 12", l.TextLength())
	}

	// Advances are refreshed only by Update.
	if len(l.TextAdvance()) != 5 {
		t.Errorf("advances changed before Update")
	}
	if err := l.Update(); err != nil {
		t.Fatal(err)
	}
	if len(l.TextAdvance()) != 12 {
		t.Errorf("len(TextAdvance()) = %d, want 12", len(l.TextAdvance()))
	}

	for _, fn := range []func(){
		func() { l.InsertText(-1, "x") },
		func() { l.InsertText(13, "x") },
		func() { l.EraseText(10, 5) },
		func() { l.EraseText(-1, 1) },
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Error("out of range edit did not panic")
				}
			}()
			fn()
		}()
	}
}

func TestLayoutNormalization(t *testing.T) {
	ctx, _, _ := newTestContext(t, WithNormalization(NormalizeNFC))
	l := newTestLayout(t, ctx, "e\u0301")
	if l.TextLength() != 1 {
		t.Errorf("TextLength() = %d, want 1 after NFC", l.TextLength())
	}
	l.InsertText(1, "a\u0308")
	if got, want := l.Text(), "\u00e9\u00e4"; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestLayoutFontSwitch(t *testing.T) {
	ctx, _, f := newTestContext(t)
	l := newTestLayout(t, ctx, "AB")
	old := l.Storage()

	if err := l.SetFontSize(32, 32); err != nil {
		t.Fatalf("SetFontSize() = %v", err)
	}
	if l.Storage() == old {
		t.Error("storage not switched")
	}
	if w, h := l.FontSize(); w != 32 || h != 32 {
		t.Errorf("FontSize() = %dx%d", w, h)
	}
	if ctx.Fonts().Len() != 1 {
		t.Errorf("Fonts().Len() = %d, want 1 after switch", ctx.Fonts().Len())
	}
	if !f.created[0].closed {
		t.Error("old font not freed")
	}
	if err := l.Update(); err != nil {
		t.Fatal(err)
	}
	if len(l.Batches()) != 1 || l.Batches()[0].Texture().Array.Width() != 32 {
		t.Error("batches not rebuilt for the new size")
	}

	if err := l.SetFontSize(0, 10); err == nil {
		t.Error("SetFontSize(0, 10) succeeded")
	}
}

func TestLayoutNoFont(t *testing.T) {
	ctx, _, _ := newTestContext(t)

	_, err := ctx.NewLayout(FontKey{Path: "missing.ttf"})
	if err == nil {
		t.Fatal("NewLayout with a missing font succeeded")
	}

	l, err := ctx.NewLayout(FontKey{})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	l.SetText("abc")
	if err := l.Update(); !errors.Is(err, ErrNoFont) {
		t.Errorf("Update() = %v, want ErrNoFont", err)
	}
	if got := l.TextAdvance(); !slices.Equal(got, []int{0, 0, 0}) {
		t.Errorf("TextAdvance() = %v, want zeros", got)
	}
	if l.FontHeight() != 0 {
		t.Error("FontHeight() nonzero without a font")
	}

	if err := l.SetFontPath("missing.ttf"); err == nil {
		t.Error("SetFontPath(missing) succeeded")
	}
	if err := l.Update(); !errors.Is(err, ErrNoFont) {
		t.Errorf("Update() = %v, want ErrNoFont", err)
	}

	if err := l.SetFontPath(stubKey.Path); err != nil {
		t.Fatalf("SetFontPath() = %v", err)
	}
	if err := l.Update(); err != nil {
		t.Fatalf("Update() = %v", err)
	}
	if l.FontHeight() != stubLineHeight || l.FontAscender() != stubBearingY || l.FontDescender() != -3 {
		t.Errorf("metrics = %d/%d/%d", l.FontHeight(), l.FontAscender(), l.FontDescender())
	}
	if got := l.TextAdvance(); !slices.Equal(got, []int{10, 20, 30}) {
		t.Errorf("TextAdvance() = %v", got)
	}
}

func TestLayoutRangeFailureKeepsPreviousBatches(t *testing.T) {
	ctx, _, f := newTestContext(t)
	l := newTestLayout(t, ctx, "AB")
	before := l.Batches()

	f.failRanges[200] = true
	l.AppendText("ĀC")
	err := l.Update()
	var re *RangeError
	if !errors.As(err, &re) || re.Index != 1 {
		t.Fatalf("Update() = %v, want *RangeError for range 1", err)
	}
	if l.State() != LayoutTextDirty {
		t.Errorf("state = %v, want TextDirty after failure", l.State())
	}
	if !slices.Equal(l.Batches(), before) {
		t.Error("failed update replaced the drawn batches")
	}
	if got := before[0].Buffers()[0].DrawCount(); got != 2 {
		t.Errorf("DrawCount() = %d, want the 2 instances of the last good update", got)
	}
	if got, want := l.TextAdvance(), []int{10, 20, 20, 20}; !slices.Equal(got, want) {
		t.Errorf("TextAdvance() = %v, want %v", got, want)
	}

	delete(f.failRanges, 200)
	if err := l.Update(); err != nil {
		t.Fatalf("Update() after recovery = %v", err)
	}
	if len(l.Batches()) != 2 || instanceCount(l) != 4 {
		t.Errorf("after recovery: %d batches, %d instances", len(l.Batches()), instanceCount(l))
	}
}

func TestLayoutFailedFontLoadNotRetried(t *testing.T) {
	buf := captureLogs(t)
	ctx, _, f := newTestContext(t)
	l := newTestLayout(t, ctx, "abc")
	loads := len(f.created)

	if err := l.SetFontPath("missing.ttf"); err == nil {
		t.Fatal("SetFontPath(missing) succeeded")
	}
	for range 3 {
		if err := l.Update(); !errors.Is(err, ErrNoFont) {
			t.Fatalf("Update() = %v, want ErrNoFont", err)
		}
	}
	if got := len(f.created) - loads; got != 1 {
		t.Errorf("font load attempted %d times, want 1", got)
	}
	if got := strings.Count(buf.String(), "font load failed"); got != 1 {
		t.Errorf("logged %d load failures, want 1", got)
	}
}

func TestLayoutClosed(t *testing.T) {
	ctx, _, _ := newTestContext(t)
	l := newTestLayout(t, ctx, "x")
	l.Close()
	l.Close()
	if err := l.Update(); !errors.Is(err, ErrClosed) {
		t.Errorf("Update() = %v, want ErrClosed", err)
	}
	if err := l.SetFontPath("a.ttf"); !errors.Is(err, ErrClosed) {
		t.Errorf("SetFontPath() = %v, want ErrClosed", err)
	}
}

func TestLayoutStateString(t *testing.T) {
	for s, want := range map[LayoutState]string{
		LayoutClean:     "Clean",
		LayoutTextDirty: "TextDirty",
		LayoutFontDirty: "FontDirty",
		LayoutState(9):  "LayoutState(9)",
	} {
		if got := s.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
