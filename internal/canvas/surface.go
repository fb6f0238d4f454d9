// Package canvas draws a cover as an ordered stack of layers onto a
// [Surface] and publishes finished frames through a [Compositor].
//
// Layers are plain functions. They read a theme, a size preset and their
// slice of the document, and only ever mutate the surface they are given.
// Every size-dependent constant comes from [MetricsFor].
package canvas

import (
	"image"
	"image/color"

	"tools.zach/dev/coverkit/internal/fonts"
)

// Point is a 2D coordinate in surface pixels.
type Point struct {
	X, Y float64
}

// Stop is one color stop of a gradient.
type Stop struct {
	Offset float64
	Color  color.NRGBA
}

// Paint is a fill style: [Solid], [LinearGradient] or [RadialGradient].
// Gradient coordinates are in surface pixels and ignore the current
// transform.
type Paint interface {
	isPaint()
}

// Solid is a flat color.
type Solid struct {
	Color color.NRGBA
}

// LinearGradient blends its stops along (X0,Y0)→(X1,Y1).
type LinearGradient struct {
	X0, Y0, X1, Y1 float64
	Stops          []Stop
}

// RadialGradient blends its stops from circle (X0,Y0,R0) to (X1,Y1,R1).
type RadialGradient struct {
	X0, Y0, R0 float64
	X1, Y1, R1 float64
	Stops      []Stop
}

func (Solid) isPaint()          {}
func (LinearGradient) isPaint() {}
func (RadialGradient) isPaint() {}

// Align is the horizontal text anchor.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
)

// Baseline is the vertical text anchor.
type Baseline int

const (
	// BaselineAlphabetic puts y on the glyph baseline.
	BaselineAlphabetic Baseline = iota
	// BaselineTop puts y on the top of the em box (baseline = y + ascent).
	BaselineTop
	// BaselineMiddle puts y halfway between ascent and descent.
	BaselineMiddle
)

func (b Baseline) String() string {
	switch b {
	case BaselineTop:
		return "top"
	case BaselineMiddle:
		return "middle"
	default:
		return "alphabetic"
	}
}

// Font selects a typeface role at a pixel size.
type Font struct {
	Role fonts.Role
	Size float64
}

// Surface is the drawing target of every layer. Push and Pop bracket
// transform and clip changes.
type Surface interface {
	Width() int
	Height() int

	Push()
	Pop()
	Translate(x, y float64)
	Rotate(angle float64)
	ClipRoundedRect(x, y, w, h, r float64)

	FillRect(x, y, w, h float64, p Paint)
	StrokeRect(x, y, w, h, lineWidth float64, c color.NRGBA)
	FillRoundedRect(x, y, w, h, r float64, p Paint)
	StrokeRoundedRect(x, y, w, h, r, lineWidth float64, c color.NRGBA)
	FillCircle(cx, cy, r float64, p Paint)
	StrokeCircle(cx, cy, r, lineWidth float64, c color.NRGBA)
	FillPolygon(pts []Point, p Paint)
	StrokePolygon(pts []Point, lineWidth float64, c color.NRGBA)

	// DrawImage scales img into the box (x, y, w, h).
	DrawImage(img image.Image, x, y, w, h float64)

	MeasureText(f Font, s string) float64
	FillText(f Font, s string, x, y float64, align Align, base Baseline, c color.NRGBA)

	// Err returns the first drawing error, such as a face that could not
	// be created.
	Err() error
}

// rgba builds a color from 8-bit channels and a 0-1 alpha.
func rgba(r, g, b uint8, a float64) color.NRGBA {
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	return color.NRGBA{R: r, G: g, B: b, A: uint8(a*255 + 0.5)}
}
