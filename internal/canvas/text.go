package canvas

import (
	"image/color"

	"tools.zach/dev/coverkit/internal/fonts"
	"tools.zach/dev/coverkit/internal/preset"
	"tools.zach/dev/coverkit/internal/theme"
)

// Text is the copy drawn by [DrawText].
type Text struct {
	Title      string
	Subtitle   string
	Tagline    string
	Experience string
}

// DrawText draws the experience badge, title, subtitle and tagline. On
// large-format presets the badge sits to the right of the title; otherwise
// it sits above it.
func DrawText(s Surface, txt Text, t theme.Theme, size preset.SizeConfig) {
	m := MetricsFor(size)
	pal := t.Palette()
	left, top := size.Layout.LeftPadding, size.Layout.TopPadding
	titleFont := Font{Role: fonts.Bold, Size: m.TitleSize}
	titleY := top + m.TitleOffsetY

	if txt.Experience != "" {
		if m.BadgeInline {
			titleW := s.MeasureText(titleFont, txt.Title)
			badgeH := m.BadgeSize * 2
			drawBadge(s, txt.Experience, left+titleW+m.BadgeGap, titleY+(m.TitleSize-badgeH)/2, m.BadgeSize, pal.Accent)
		} else {
			drawBadge(s, txt.Experience, left, top, m.BadgeSize, pal.Accent)
		}
	}

	s.FillText(titleFont, txt.Title, left, titleY, AlignLeft, BaselineTop, pal.PrimaryText)
	s.FillText(Font{Role: fonts.Regular, Size: m.SubtitleSize}, txt.Subtitle,
		left, top+m.SubtitleOffsetY, AlignLeft, BaselineTop, pal.SecondaryText)

	if txt.Tagline != "" {
		s.FillText(Font{Role: fonts.Regular, Size: m.TaglineSize}, txt.Tagline,
			left+m.TaglineOffsetX, top+m.TaglineOffsetY, AlignLeft, BaselineTop, pal.Accent)
	}
}

// badge is the pill drawn behind the experience text.
type badge struct {
	X, Y, W, H, Radius float64
	Padding            float64
}

// badgeBox sizes the pill for a measured text width at fontSize.
func badgeBox(x, y, textW, fontSize float64) badge {
	padding := fontSize * 1.7
	return badge{
		X: x, Y: y,
		W:       textW + padding,
		H:       fontSize * 2,
		Radius:  fontSize,
		Padding: padding,
	}
}

func drawBadge(s Surface, label string, x, y, fontSize float64, accent color.NRGBA) {
	textW := s.MeasureText(Font{Role: fonts.Semibold, Size: fontSize}, label)
	b := badgeBox(x, y, textW, fontSize)

	lineWidth := 1.0
	if fontSize > 30 {
		lineWidth = 3
	}
	s.FillRoundedRect(b.X, b.Y, b.W, b.H, b.Radius, Solid{theme.WithAlpha(accent, 0x26)})
	s.StrokeRoundedRect(b.X, b.Y, b.W, b.H, b.Radius, lineWidth, theme.WithAlpha(accent, 0x4D))
	s.FillText(Font{Role: fonts.Semibold, Size: fontSize - 1}, label,
		b.X+b.Padding/2, b.Y+b.H/2, AlignLeft, BaselineMiddle, accent)
}
