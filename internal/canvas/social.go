package canvas

import (
	"image"

	"tools.zach/dev/coverkit/internal/fonts"
	"tools.zach/dev/coverkit/internal/preset"
	"tools.zach/dev/coverkit/internal/theme"
)

// SocialItem is one social link with its icon, which may be nil.
type SocialItem struct {
	Text string
	Icon image.Image
}

// DrawSocialLinks draws the links left to right starting at the social
// anchor. A missing icon leaves its slot empty so the text stays aligned.
func DrawSocialLinks(s Surface, items []SocialItem, t theme.Theme, size preset.SizeConfig) {
	if len(items) == 0 {
		return
	}
	m := MetricsFor(size)
	pal := t.Palette()
	f := Font{Role: fonts.Regular, Size: m.SocialFontSize}

	x := size.Layout.LeftPadding + m.SocialOffsetX
	y := size.Layout.SocialY
	for _, it := range items {
		textW := s.MeasureText(f, it.Text)
		if it.Icon != nil {
			s.DrawImage(it.Icon, x, y-m.SocialIcon/2, m.SocialIcon, m.SocialIcon)
		}
		s.FillText(f, it.Text, x+m.SocialIcon+m.SocialTextGap, y, AlignLeft, BaselineMiddle, pal.SecondaryText)
		x += m.SocialIcon + m.SocialTextGap + textW + m.SocialItemGap
	}
}
