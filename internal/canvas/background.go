package canvas

import (
	"tools.zach/dev/coverkit/internal/preset"
	"tools.zach/dev/coverkit/internal/theme"
)

// DrawBackground fills the canvas with the theme gradient and a dark radial
// glow anchored at the top-right corner.
func DrawBackground(s Surface, t theme.Theme, size preset.SizeConfig) {
	w, h := float64(size.Width), float64(size.Height)
	pal := t.Palette()

	s.FillRect(0, 0, w, h, LinearGradient{
		X0: 0, Y0: 0, X1: w, Y1: h,
		Stops: []Stop{{0, pal.BgStart}, {1, pal.BgEnd}},
	})

	glow := rgba(30, 41, 59, 0.8)
	s.FillRect(0, 0, w, h, RadialGradient{
		X0: w, Y0: 0, R0: 0,
		X1: w, Y1: 0, R1: w * 0.6,
		Stops: []Stop{{0, glow}, {1, rgba(0, 0, 0, 0)}},
	})
}
