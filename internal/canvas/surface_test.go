// surface_test.go tests the gg-backed surface by sampling pixels.

package canvas

import (
	"image"
	"image/color"
	"testing"

	"tools.zach/dev/coverkit/internal/document"
	"tools.zach/dev/coverkit/internal/fonts"
	"tools.zach/dev/coverkit/internal/preset"
)

func newSurface(t *testing.T, w, h int) *ImageSurface {
	t.Helper()
	s := NewImageSurface(w, h, fonts.Default())
	t.Cleanup(func() { s.Close() })
	return s
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

var (
	red  = color.NRGBA{R: 255, A: 255}
	blue = color.NRGBA{B: 255, A: 255}
)

func TestImageSurfaceFillRect(t *testing.T) {
	s := newSurface(t, 10, 10)
	s.FillRect(2, 2, 4, 4, Solid{red})

	if c := rgbaAt(s.Image(), 3, 3); c != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("inside = %v", c)
	}
	if c := rgbaAt(s.Image(), 8, 8); c.A != 0 {
		t.Errorf("outside = %v, want transparent", c)
	}
	if s.Width() != 10 || s.Height() != 10 {
		t.Errorf("size = %dx%d", s.Width(), s.Height())
	}
}

func TestImageSurfaceLinearGradient(t *testing.T) {
	s := newSurface(t, 100, 4)
	s.FillRect(0, 0, 100, 4, LinearGradient{
		X0: 0, X1: 100,
		Stops: []Stop{{0, red}, {1, blue}},
	})
	left, right := rgbaAt(s.Image(), 2, 2), rgbaAt(s.Image(), 97, 2)
	if left.R <= left.B || right.B <= right.R {
		t.Errorf("left = %v, right = %v", left, right)
	}
}

func TestImageSurfaceClipRoundedRect(t *testing.T) {
	s := newSurface(t, 40, 40)
	s.Push()
	s.ClipRoundedRect(0, 0, 40, 40, 16)
	s.FillRect(0, 0, 40, 40, Solid{red})
	s.Pop()

	if c := rgbaAt(s.Image(), 0, 0); c.A != 0 {
		t.Errorf("clipped corner = %v", c)
	}
	if c := rgbaAt(s.Image(), 20, 20); c.A != 255 {
		t.Errorf("centre = %v", c)
	}

	// Pop restores the unclipped state.
	s.FillRect(0, 0, 2, 2, Solid{blue})
	if c := rgbaAt(s.Image(), 0, 0); c.B != 255 {
		t.Errorf("after pop = %v", c)
	}
}

func TestImageSurfaceNestedClipRestored(t *testing.T) {
	s := newSurface(t, 40, 40)
	s.Push()
	s.Translate(10, 10)
	s.ClipRoundedRect(0, 0, 20, 20, 0)

	s.Push()
	s.ClipRoundedRect(0, 0, 5, 5, 0)
	s.Pop()

	// The outer clip is back, still under its translation.
	s.FillRect(-10, -10, 40, 40, Solid{red})
	if c := rgbaAt(s.Image(), 25, 25); c.R != 255 {
		t.Errorf("inside outer clip = %v", c)
	}
	for _, p := range []image.Point{{5, 5}, {35, 35}} {
		if c := rgbaAt(s.Image(), p.X, p.Y); c.A != 0 {
			t.Errorf("outside outer clip at %v = %v", p, c)
		}
	}
	s.Pop()

	s.FillRect(34, 34, 4, 4, Solid{blue})
	if c := rgbaAt(s.Image(), 35, 35); c.B != 255 {
		t.Errorf("after outer pop = %v", c)
	}
}

func TestImageSurfaceUnbalancedPop(t *testing.T) {
	s := newSurface(t, 4, 4)
	s.Pop()
	s.FillRect(0, 0, 4, 4, Solid{red})
	if c := rgbaAt(s.Image(), 2, 2); c.R != 255 {
		t.Errorf("fill after stray pop = %v", c)
	}
}

// Each screenshot clip must end with its card so later cards and the
// safe-zone overlay still reach the canvas.
func TestImageSurfaceCardsThenSafeZone(t *testing.T) {
	size := builtin(t, preset.Personal)
	shot := image.NewNRGBA(image.Rect(0, 0, 100, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 100; x++ {
			shot.Set(x, y, red)
		}
	}
	cards := []Card{{Name: "One", Screenshot: shot}, {Name: "Two", Screenshot: shot}}

	s := newSurface(t, size.Width, size.Height)
	DrawCards(s, cards, darkTheme(t), size, false)

	for i, b := range LayoutCards(size, cards, false) {
		cx, cy := int(b.X+b.W/2), int(b.Y+b.H/2)
		if c := rgbaAt(s.Image(), cx, cy); c.R < 250 || c.A < 250 {
			t.Errorf("card %d centre = %v, want red", i+1, c)
		}
	}

	DrawSafeZones(s, size, document.ViewBoth)
	z := size.SafeZones.Mobile
	zx, zy := int(z.X+z.Width/2), int(z.CanvasY(float64(size.Height))+z.Height/2)
	if c := rgbaAt(s.Image(), zx, zy); c.A == 0 {
		t.Errorf("mobile zone centre = %v, want overlay", c)
	}
}

func TestImageSurfaceDrawImageScales(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			src.Set(x, y, blue)
		}
	}
	s := newSurface(t, 12, 12)
	s.DrawImage(src, 2, 2, 8, 8)

	if c := rgbaAt(s.Image(), 5, 5); c.B < 250 || c.A < 250 {
		t.Errorf("inside = %v", c)
	}
	for _, p := range []image.Point{{1, 1}, {10, 10}} {
		if c := rgbaAt(s.Image(), p.X, p.Y); c.A != 0 {
			t.Errorf("outside %v = %v", p, c)
		}
	}

	s.DrawImage(nil, 0, 0, 4, 4)
	s.DrawImage(src, 0, 0, 0, 0)
}

func TestImageSurfaceText(t *testing.T) {
	s := newSurface(t, 120, 40)
	f := Font{Role: fonts.Bold, Size: 24}

	w := s.MeasureText(f, "Hello")
	if w <= 0 || w > 120 {
		t.Fatalf("width = %v", w)
	}
	if wider := s.MeasureText(f, "Hello Hello"); wider <= w {
		t.Errorf("longer string measured %v <= %v", wider, w)
	}

	s.FillText(f, "Hello", 4, 4, AlignLeft, BaselineTop, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	inked := 0
	b := s.Image().Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if rgbaAt(s.Image(), x, y).A > 0 {
				inked++
				if y < 2 {
					t.Fatalf("top-baseline text drew above its box at y=%d", y)
				}
			}
		}
	}
	if inked == 0 {
		t.Error("no text pixels drawn")
	}
	if err := s.Err(); err != nil {
		t.Errorf("Err = %v", err)
	}
}

func TestImageSurfaceCenteredText(t *testing.T) {
	s := newSurface(t, 200, 40)
	f := Font{Role: fonts.Mono, Size: 20}
	s.FillText(f, "{ }", 100, 20, AlignCenter, BaselineMiddle, red)

	minX, maxX := 200, 0
	for y := 0; y < 40; y++ {
		for x := 0; x < 200; x++ {
			if rgbaAt(s.Image(), x, y).A > 0 {
				minX, maxX = min(minX, x), max(maxX, x)
			}
		}
	}
	if maxX < minX {
		t.Fatal("nothing drawn")
	}
	if mid := (minX + maxX) / 2; mid < 92 || mid > 108 {
		t.Errorf("centred text spans %d..%d", minX, maxX)
	}
}
