package canvas

import (
	"image/color"
	"math"
	"math/rand/v2"

	"tools.zach/dev/coverkit/internal/document"
	"tools.zach/dev/coverkit/internal/fonts"
	"tools.zach/dev/coverkit/internal/preset"
)

// codeSymbols are scattered by the code watermark.
var codeSymbols = []string{
	"{", "}", "</>", "( )", "[ ]", "//", "++", "=>", "&&", "{ }",
	"/*", "*/", "===", "||", "< >", "#", "@", "0x", ";", "::",
}

type shapeKind int

const (
	shapeCircle shapeKind = iota
	shapeSquare
	shapeTriangle
	shapeHexagon
	numShapes
)

// DrawWatermark scatters a faint decorative pattern over the canvas. An
// unknown style or [document.StyleNone] draws nothing. All randomness comes
// from rng.
func DrawWatermark(s Surface, size preset.SizeConfig, style string, density int, opacity float64, rng *rand.Rand) {
	m := MetricsFor(size)
	ink := rgba(148, 163, 184, opacity)
	w, h := float64(size.Width), float64(size.Height)

	switch style {
	case document.StyleCode:
		drawCode(s, m, w, h, density, ink, rng)
	case document.StyleGeometric:
		drawShapes(s, m, w, h, density, ink, rng)
	case document.StyleDots:
		drawDots(s, m, w, h, density, ink, rng)
	case document.StyleBlobs:
		drawBlobs(s, m, w, h, density, opacity, rng)
	}
}

func drawCode(s Surface, m Metrics, w, h float64, density int, ink color.NRGBA, rng *rand.Rand) {
	for i := 0; i < density; i++ {
		x := rng.Float64() * w
		y := rng.Float64() * h
		fontSize := (20 + rng.Float64()*20) * m.WatermarkScale
		rotation := -20 + rng.Float64()*40
		symbol := codeSymbols[rng.IntN(len(codeSymbols))]

		s.Push()
		s.Translate(x, y)
		s.Rotate(rotation * math.Pi / 180)
		s.FillText(Font{Role: fonts.Mono, Size: fontSize}, symbol, 0, 0, AlignCenter, BaselineMiddle, ink)
		s.Pop()
	}
}

func drawShapes(s Surface, m Metrics, w, h float64, density int, ink color.NRGBA, rng *rand.Rand) {
	for i := 0; i < density; i++ {
		x := rng.Float64() * w
		y := rng.Float64() * h
		sz := (15 + rng.Float64()*30) * m.WatermarkScale
		rotation := rng.Float64() * math.Pi * 2
		kind := shapeKind(rng.IntN(int(numShapes)))
		filled := rng.Float64() > 0.5

		s.Push()
		s.Translate(x, y)
		s.Rotate(rotation)
		half := sz / 2
		if kind == shapeCircle {
			if filled {
				s.FillCircle(0, 0, half, Solid{ink})
			} else {
				s.StrokeCircle(0, 0, half, m.ShapeLineWidth, ink)
			}
		} else {
			pts := shapePoints(kind, half)
			if filled {
				s.FillPolygon(pts, Solid{ink})
			} else {
				s.StrokePolygon(pts, m.ShapeLineWidth, ink)
			}
		}
		s.Pop()
	}
}

// shapePoints returns the outline of a polygon shape centred on the origin.
func shapePoints(kind shapeKind, half float64) []Point {
	switch kind {
	case shapeSquare:
		return []Point{{-half, -half}, {half, -half}, {half, half}, {-half, half}}
	case shapeTriangle:
		return []Point{{0, -half}, {half, half}, {-half, half}}
	case shapeHexagon:
		pts := make([]Point, 6)
		for j := range pts {
			a := math.Pi / 3 * float64(j)
			pts[j] = Point{half * math.Cos(a), half * math.Sin(a)}
		}
		return pts
	}
	return nil
}

func drawDots(s Surface, m Metrics, w, h float64, density int, ink color.NRGBA, rng *rand.Rand) {
	spacing := math.Max(30, 150-float64(density)*3) * m.DotSpacingScale
	for x := spacing; x < w; x += spacing {
		for y := spacing; y < h; y += spacing {
			jx := (rng.Float64() - 0.5) * 5
			jy := (rng.Float64() - 0.5) * 5
			s.FillCircle(x+jx, y+jy, m.DotRadius, Solid{ink})
		}
	}
}

func drawBlobs(s Surface, m Metrics, w, h float64, density int, opacity float64, rng *rand.Rand) {
	limit := math.Min(float64(density)/2, 15)
	core := rgba(148, 163, 184, opacity*1.5)
	for i := 0; float64(i) < limit; i++ {
		x := rng.Float64() * w
		y := rng.Float64() * h
		r := (50 + rng.Float64()*150) * m.WatermarkScale
		s.FillCircle(x, y, r, RadialGradient{
			X0: x, Y0: y, R0: 0,
			X1: x, Y1: y, R1: r,
			Stops: []Stop{{0, core}, {1, rgba(0, 0, 0, 0)}},
		})
	}
}
