package canvas

import (
	"image"

	"tools.zach/dev/coverkit/internal/fonts"
	"tools.zach/dev/coverkit/internal/preset"
	"tools.zach/dev/coverkit/internal/theme"
)

// Card is one app card with its images, either of which may be nil.
type Card struct {
	Name       string
	Screenshot image.Image
	Logo       image.Image
}

// CardBox is the laid-out box of one card.
type CardBox struct {
	X, Y, W, H float64
}

// Right returns the x coordinate of the right edge.
func (b CardBox) Right() float64 { return b.X + b.W }

// LayoutCards places cards in a right-aligned row, vertically centred in the
// space above the label row. Card width follows the screenshot aspect ratio.
func LayoutCards(size preset.SizeConfig, cards []Card, showLabels bool) []CardBox {
	if len(cards) == 0 {
		return nil
	}
	m := MetricsFor(size)
	h := size.Layout.CardHeight
	if !showLabels {
		h *= m.CardUnlabeledGrow
	}

	widths := make([]float64, len(cards))
	total := m.CardGap * float64(len(cards)-1)
	for i, c := range cards {
		widths[i] = m.CardDefaultWidth
		if c.Screenshot != nil {
			b := c.Screenshot.Bounds()
			if b.Dy() > 0 {
				widths[i] = h * float64(b.Dx()) / float64(b.Dy())
			}
		}
		total += widths[i]
	}

	bottom := 0.0
	if showLabels {
		bottom = m.CardBottomMargin
	}
	y := (float64(size.Height) - h - bottom) / 2
	x := float64(size.Width) - size.Layout.RightPadding - total

	boxes := make([]CardBox, len(cards))
	for i, w := range widths {
		boxes[i] = CardBox{X: x, Y: y, W: w, H: h}
		x += w + m.CardGap
	}
	return boxes
}

// DrawCards draws the app cards and, when showLabels is set, a logo and
// name under each one.
func DrawCards(s Surface, cards []Card, t theme.Theme, size preset.SizeConfig, showLabels bool) {
	boxes := LayoutCards(size, cards, showLabels)
	if len(boxes) == 0 {
		return
	}
	m := MetricsFor(size)
	pal := t.Palette()
	for i, c := range cards {
		b := boxes[i]
		if c.Screenshot != nil {
			drawScreenshot(s, c.Screenshot, b, m.CardRadius)
		}
		if showLabels {
			drawCardLabel(s, c, b, m, pal)
		}
	}
}

// containFit returns the largest box with img's aspect ratio centred in b.
func containFit(img image.Image, b CardBox) CardBox {
	ib := img.Bounds()
	if ib.Dx() == 0 || ib.Dy() == 0 || b.H == 0 {
		return b
	}
	imgRatio := float64(ib.Dx()) / float64(ib.Dy())
	if imgRatio > b.W/b.H {
		h := b.W / imgRatio
		return CardBox{X: b.X, Y: b.Y + (b.H-h)/2, W: b.W, H: h}
	}
	w := b.H * imgRatio
	return CardBox{X: b.X + (b.W-w)/2, Y: b.Y, W: w, H: b.H}
}

func drawScreenshot(s Surface, img image.Image, b CardBox, radius float64) {
	d := containFit(img, b)
	s.Push()
	s.ClipRoundedRect(d.X, d.Y, d.W, d.H, radius)
	s.DrawImage(img, d.X, d.Y, d.W, d.H)
	s.Pop()
}

func drawCardLabel(s Surface, c Card, b CardBox, m Metrics, pal theme.Palette) {
	f := Font{Role: fonts.Regular, Size: m.LabelFontSize}
	textW := s.MeasureText(f, c.Name)

	logoW := m.LogoHeight
	total := textW
	if c.Logo != nil {
		lb := c.Logo.Bounds()
		if lb.Dy() > 0 {
			logoW = m.LogoHeight * float64(lb.Dx()) / float64(lb.Dy())
		}
		total = logoW + m.LabelGap + textW
	}

	x := b.X + (b.W-total)/2
	labelY := b.Y + b.H + m.LabelOffsetY
	if c.Logo != nil {
		s.DrawImage(c.Logo, x, labelY+(m.LabelFontSize-m.LogoHeight)/2, logoW, m.LogoHeight)
		x += logoW + m.LabelGap
	}
	s.FillText(f, c.Name, x, labelY, AlignLeft, BaselineTop, pal.SecondaryText)
}
