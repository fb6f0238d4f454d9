package canvas

import (
	"image/color"
	"math"

	"tools.zach/dev/coverkit/internal/document"
	"tools.zach/dev/coverkit/internal/fonts"
	"tools.zach/dev/coverkit/internal/preset"
)

type zoneStyle struct {
	label   string
	r, g, b uint8
}

var (
	mobileZone  = zoneStyle{"Mobile", 239, 68, 68}
	desktopZone = zoneStyle{"Desktop", 251, 146, 60}
)

// DrawSafeZones outlines the areas covered by the profile avatar. view is
// one of the document safe-zone views; anything else draws nothing.
func DrawSafeZones(s Surface, size preset.SizeConfig, view string) {
	h := float64(size.Height)
	if view == document.ViewMobile || view == document.ViewBoth {
		drawZone(s, size.SafeZones.Mobile, h, mobileZone)
	}
	if view == document.ViewDesktop || view == document.ViewBoth {
		drawZone(s, size.SafeZones.Desktop, h, desktopZone)
	}
}

func drawZone(s Surface, z preset.SafeZone, canvasH float64, st zoneStyle) {
	y := z.CanvasY(canvasH)
	c := func(a float64) color.NRGBA { return rgba(st.r, st.g, st.b, a) }

	s.FillRect(z.X, y, z.Width, z.Height, Solid{c(0.3)})
	s.StrokeRect(z.X, y, z.Width, z.Height, 3, c(0.8))

	f := Font{Role: fonts.Semibold, Size: math.Max(12, z.Width/20)}
	s.FillText(f, st.label+" Avatar Zone", z.X+10, y+20, AlignLeft, BaselineTop, c(0.9))
}
