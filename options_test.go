package textbatch

import (
	"errors"
	"testing"

	"github.com/gogpu/textbatch/text"
)

func TestConfigWithDefaults(t *testing.T) {
	cfg, err := Config{}.withDefaults()
	if err != nil {
		t.Fatalf("withDefaults() = %v", err)
	}
	if cfg.RangeSize != DefaultRangeSize {
		t.Errorf("RangeSize = %d, want %d", cfg.RangeSize, DefaultRangeSize)
	}
	if cfg.BufferCapacity != DefaultBufferCapacity {
		t.Errorf("BufferCapacity = %d, want %d", cfg.BufferCapacity, DefaultBufferCapacity)
	}
	if cfg.DefaultFontWidth != DefaultFontWidth || cfg.DefaultFontHeight != DefaultFontHeight {
		t.Errorf("default font size = %dx%d", cfg.DefaultFontWidth, cfg.DefaultFontHeight)
	}
	if cfg.Parser != text.DefaultParser {
		t.Errorf("Parser = %q, want %q", cfg.Parser, text.DefaultParser)
	}
	if cfg.NewRasterizer == nil {
		t.Error("NewRasterizer not filled")
	}
}

func TestConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative range size", Config{RangeSize: -1}},
		{"negative capacity", Config{BufferCapacity: -4}},
		{"negative font size", Config{DefaultFontWidth: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.cfg.withDefaults(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("withDefaults() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestOptions(t *testing.T) {
	cfg := DefaultConfig()
	for _, opt := range []Option{
		WithRangeSize(64),
		WithBufferCapacity(8),
		WithDefaultFontSize(12, 16),
		WithAtlasType(text.AtlasSDF),
		WithParser("gotext"),
		WithNormalization(NormalizeNFC),
	} {
		opt(&cfg)
	}
	if cfg.RangeSize != 64 || cfg.BufferCapacity != 8 {
		t.Errorf("sizes = %d/%d, want 64/8", cfg.RangeSize, cfg.BufferCapacity)
	}
	if cfg.DefaultFontWidth != 12 || cfg.DefaultFontHeight != 16 {
		t.Errorf("font size = %dx%d, want 12x16", cfg.DefaultFontWidth, cfg.DefaultFontHeight)
	}
	if cfg.AtlasType != text.AtlasSDF || cfg.Parser != "gotext" || cfg.Normalization != NormalizeNFC {
		t.Errorf("cfg = %+v", cfg)
	}

	WithConfig(Config{RangeSize: 5})(&cfg)
	if cfg.RangeSize != 5 || cfg.BufferCapacity != 0 {
		t.Errorf("WithConfig did not replace config: %+v", cfg)
	}
}

func TestNormalization(t *testing.T) {
	const (
		composed   = "\u00e9"
		decomposed = "e\u0301"
	)
	tests := []struct {
		n    Normalization
		in   string
		want string
	}{
		{NormalizeNone, decomposed, decomposed},
		{NormalizeNFC, decomposed, composed},
		{NormalizeNFD, composed, decomposed},
		{NormalizeNFKC, "\ufb01", "fi"},
		{NormalizeNFKD, composed, decomposed},
	}
	for _, tt := range tests {
		if got := tt.n.apply(tt.in); got != tt.want {
			t.Errorf("Normalization(%d).apply(%q) = %q, want %q", tt.n, tt.in, got, tt.want)
		}
	}
}
