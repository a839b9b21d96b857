package text

import (
	"image"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// rasterizeOutline renders an outline into an 8-bit coverage glyph.
// X coordinates are scaled by sx; pad transparent pixels surround the ink.
// An outline without area yields an empty glyph.
func rasterizeOutline(segs []OutlineSegment, sx float32, pad int) Glyph {
	if len(segs) == 0 {
		return Glyph{}
	}

	minX, minY := float32(math.MaxFloat32), float32(math.MaxFloat32)
	maxX, maxY := float32(-math.MaxFloat32), float32(-math.MaxFloat32)
	for _, s := range segs {
		for i := 0; i < pointCount(s.Op); i++ {
			x, y := s.Points[i].X*sx, s.Points[i].Y
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}

	bounds := image.Rect(
		int(math.Floor(float64(minX))), int(math.Floor(float64(minY))),
		int(math.Ceil(float64(maxX))), int(math.Ceil(float64(maxY))),
	)
	if bounds.Empty() {
		return Glyph{}
	}
	bounds = bounds.Inset(-pad)
	w, h := bounds.Dx(), bounds.Dy()

	dx := -float32(bounds.Min.X)
	dy := -float32(bounds.Min.Y)
	pt := func(p OutlinePoint) (float32, float32) {
		return p.X*sx + dx, p.Y + dy
	}

	z := vector.NewRasterizer(w, h)
	z.DrawOp = draw.Src
	open := false
	for _, s := range segs {
		switch s.Op {
		case OutlineOpMoveTo:
			if open {
				z.ClosePath()
			}
			z.MoveTo(pt(s.Points[0]))
			open = true
		case OutlineOpLineTo:
			z.LineTo(pt(s.Points[0]))
		case OutlineOpQuadTo:
			bx, by := pt(s.Points[0])
			cx, cy := pt(s.Points[1])
			z.QuadTo(bx, by, cx, cy)
		case OutlineOpCubicTo:
			bx, by := pt(s.Points[0])
			cx, cy := pt(s.Points[1])
			ex, ey := pt(s.Points[2])
			z.CubeTo(bx, by, cx, cy, ex, ey)
		}
	}
	if open {
		z.ClosePath()
	}

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	return Glyph{
		Width:    w,
		Height:   h,
		BearingX: bounds.Min.X,
		BearingY: -bounds.Min.Y,
		Pixels:   mask.Pix,
	}
}

func pointCount(op OutlineOp) int {
	switch op {
	case OutlineOpQuadTo:
		return 2
	case OutlineOpCubicTo:
		return 3
	default:
		return 1
	}
}
