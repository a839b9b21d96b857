// Command textdemo lays out text with textbatch and renders it to a PNG
// through the software backend.
package main

import (
	"flag"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/textbatch"
	"github.com/gogpu/textbatch/backend"
	"github.com/gogpu/textbatch/text"
)

func main() {
	var (
		width   = flag.Int("width", 800, "image width")
		height  = flag.Int("height", 200, "image height")
		font    = flag.String("font", "", "TrueType font file (default: Go Regular)")
		size    = flag.Int("size", 32, "font pixel size")
		message = flag.String("text", "Hello, textbatch!\nGlyphs in batches.", "text to render (\\n for newline)")
		output  = flag.String("output", "textdemo.png", "output file")
		atlas   = flag.String("atlas", "bitmap", "glyph atlas: bitmap or sdf")
		parser  = flag.String("parser", text.DefaultParser, "font parser: "+strings.Join(text.Parsers(), ", "))
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	textbatch.SetLogger(logger)

	if err := run(*width, *height, *font, *size, *message, *output, *atlas, *parser); err != nil {
		logger.Error("textdemo failed", "err", err)
		os.Exit(1)
	}
	logger.Info("textdemo: image saved", "output", *output, "width", *width, "height", *height)
}

func run(width, height int, fontPath string, size int, message, output, atlasName, parser string) error {
	atlas, err := text.ParseAtlasType(atlasName)
	if err != nil {
		return err
	}

	if fontPath == "" {
		dir, err := os.MkdirTemp("", "textdemo")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		fontPath = filepath.Join(dir, "Go-Regular.ttf")
		if err := os.WriteFile(fontPath, goregular.TTF, 0o600); err != nil {
			return err
		}
	}

	sw := backend.NewSoftware(width, height)
	sw.Clear(textbatch.RGB(0.1, 0.12, 0.18).Color())

	ctx, err := textbatch.NewContext(sw,
		textbatch.WithAtlasType(atlas),
		textbatch.WithParser(parser),
		textbatch.WithNormalization(textbatch.NormalizeNFC))
	if err != nil {
		return err
	}
	defer ctx.Close()

	layout, err := ctx.NewLayout(textbatch.FontKey{Path: fontPath, Width: size, Height: size})
	if err != nil {
		return err
	}
	defer layout.Close()
	layout.SetText(strings.ReplaceAll(message, `\n`, "\n"))

	r, err := ctx.NewRenderer()
	if err != nil {
		return err
	}
	defer r.Close()

	// Layout space is y-up and newlines move the baseline up, so the
	// first line sits at the bottom margin.
	bottom := float64(16 - layout.FontDescender())
	r.SetTextLayout(layout)
	r.SetMatrix(textbatch.Ortho(float64(width), float64(height)).
		Multiply(textbatch.Translate(16, bottom)))
	r.SetColor(textbatch.Hex("#f5f1e6"))
	if err := r.Draw(); err != nil {
		return err
	}

	st := sw.Stats()
	textbatch.Logger().Info("textdemo: rendered",
		"batches", len(layout.Batches()), "instances", st.Instances, "draws", st.Draws)

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := png.Encode(f, sw.Target()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
