package canvas

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"tools.zach/dev/coverkit/internal/fonts"
)

// ImageSurface is a raster [Surface] backed by a gg context.
//
// gg's Pop keeps the clip mask, so the surface mirrors the transforms and
// clips of each saved state and rebuilds the mask when a Pop drops a clip.
type ImageSurface struct {
	dc    *gg.Context
	faces *fonts.FaceCache
	err   error

	state clipState
	saved []clipState
}

// transform is one Translate or Rotate call.
type transform struct {
	rotate bool
	a, b   float64
}

// roundedClip is a clip shape with the transforms active when it was set.
type roundedClip struct {
	transforms    []transform
	x, y, w, h, r float64
}

type clipState struct {
	transforms []transform
	clips      []roundedClip
}

// NewImageSurface returns a transparent w×h surface drawing text with set.
func NewImageSurface(w, h int, set *fonts.Set) *ImageSurface {
	return &ImageSurface{
		dc:    gg.NewContext(w, h),
		faces: set.NewFaceCache(),
	}
}

// Image returns the backing image. It stays live until Close.
func (s *ImageSurface) Image() image.Image { return s.dc.Image() }

// Close releases the surface's font faces.
func (s *ImageSurface) Close() error { return s.faces.Close() }

func (s *ImageSurface) Width() int  { return s.dc.Width() }
func (s *ImageSurface) Height() int { return s.dc.Height() }
func (s *ImageSurface) Err() error  { return s.err }

func (s *ImageSurface) Push() {
	s.saved = append(s.saved, clipState{
		transforms: slices.Clone(s.state.transforms),
		clips:      slices.Clone(s.state.clips),
	})
	s.dc.Push()
}

// Pop restores the last pushed state. An unbalanced Pop is ignored.
func (s *ImageSurface) Pop() {
	n := len(s.saved)
	if n == 0 {
		return
	}
	prev := s.saved[n-1]
	s.saved = s.saved[:n-1]
	dropped := len(s.state.clips) != len(prev.clips)
	s.state = prev
	s.dc.Pop()
	if dropped {
		s.dc.ResetClip()
		for _, c := range prev.clips {
			s.replayClip(c)
		}
	}
}

func (s *ImageSurface) Translate(x, y float64) {
	s.state.transforms = append(s.state.transforms, transform{a: x, b: y})
	s.dc.Translate(x, y)
}

func (s *ImageSurface) Rotate(angle float64) {
	s.state.transforms = append(s.state.transforms, transform{rotate: true, a: angle})
	s.dc.Rotate(angle)
}

func (s *ImageSurface) ClipRoundedRect(x, y, w, h, r float64) {
	s.state.clips = append(s.state.clips, roundedClip{
		transforms: slices.Clone(s.state.transforms),
		x:          x, y: y, w: w, h: h, r: r,
	})
	s.clipRoundedRect(x, y, w, h, r)
}

func (s *ImageSurface) clipRoundedRect(x, y, w, h, r float64) {
	s.dc.NewSubPath()
	s.dc.DrawRoundedRectangle(x, y, w, h, r)
	s.dc.Clip()
}

// replayClip intersects the mask with c under its own transforms. The
// mask survives the gg Pop.
func (s *ImageSurface) replayClip(c roundedClip) {
	s.dc.Push()
	s.dc.Identity()
	for _, t := range c.transforms {
		if t.rotate {
			s.dc.Rotate(t.a)
		} else {
			s.dc.Translate(t.a, t.b)
		}
	}
	s.clipRoundedRect(c.x, c.y, c.w, c.h, c.r)
	s.dc.Pop()
}

func (s *ImageSurface) FillRect(x, y, w, h float64, p Paint) {
	s.dc.DrawRectangle(x, y, w, h)
	s.fill(p)
}

func (s *ImageSurface) StrokeRect(x, y, w, h, lineWidth float64, c color.NRGBA) {
	s.dc.DrawRectangle(x, y, w, h)
	s.stroke(lineWidth, c)
}

func (s *ImageSurface) FillRoundedRect(x, y, w, h, r float64, p Paint) {
	s.dc.DrawRoundedRectangle(x, y, w, h, r)
	s.fill(p)
}

func (s *ImageSurface) StrokeRoundedRect(x, y, w, h, r, lineWidth float64, c color.NRGBA) {
	s.dc.DrawRoundedRectangle(x, y, w, h, r)
	s.stroke(lineWidth, c)
}

func (s *ImageSurface) FillCircle(cx, cy, r float64, p Paint) {
	s.dc.DrawCircle(cx, cy, r)
	s.fill(p)
}

func (s *ImageSurface) StrokeCircle(cx, cy, r, lineWidth float64, c color.NRGBA) {
	s.dc.DrawCircle(cx, cy, r)
	s.stroke(lineWidth, c)
}

func (s *ImageSurface) FillPolygon(pts []Point, p Paint) {
	if s.polygon(pts) {
		s.fill(p)
	}
}

func (s *ImageSurface) StrokePolygon(pts []Point, lineWidth float64, c color.NRGBA) {
	if s.polygon(pts) {
		s.stroke(lineWidth, c)
	}
}

func (s *ImageSurface) polygon(pts []Point) bool {
	if len(pts) < 2 {
		return false
	}
	s.dc.NewSubPath()
	s.dc.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		s.dc.LineTo(p.X, p.Y)
	}
	s.dc.ClosePath()
	return true
}

func (s *ImageSurface) fill(p Paint) {
	switch p := p.(type) {
	case Solid:
		s.dc.SetColor(p.Color)
	case LinearGradient:
		g := gg.NewLinearGradient(p.X0, p.Y0, p.X1, p.Y1)
		addStops(g, p.Stops)
		s.dc.SetFillStyle(g)
	case RadialGradient:
		g := gg.NewRadialGradient(p.X0, p.Y0, p.R0, p.X1, p.Y1, p.R1)
		addStops(g, p.Stops)
		s.dc.SetFillStyle(g)
	default:
		s.dc.ClearPath()
		return
	}
	s.dc.Fill()
}

func addStops(g gg.Gradient, stops []Stop) {
	for _, st := range stops {
		g.AddColorStop(st.Offset, st.Color)
	}
}

func (s *ImageSurface) stroke(lineWidth float64, c color.NRGBA) {
	s.dc.SetLineWidth(lineWidth)
	s.dc.SetColor(c)
	s.dc.Stroke()
}

// DrawImage resamples img to the box size with Lanczos and draws it at the
// box origin.
func (s *ImageSurface) DrawImage(img image.Image, x, y, w, h float64) {
	if img == nil || w < 0.5 || h < 0.5 {
		return
	}
	tw, th := int(math.Round(w)), int(math.Round(h))
	b := img.Bounds()
	if b.Dx() != tw || b.Dy() != th {
		img = imaging.Resize(img, tw, th, imaging.Lanczos)
	}
	s.dc.DrawImage(img, int(math.Round(x)), int(math.Round(y)))
}

func (s *ImageSurface) MeasureText(f Font, str string) float64 {
	if _, ok := s.setFont(f); !ok {
		return 0
	}
	w, _ := s.dc.MeasureString(str)
	return w
}

func (s *ImageSurface) FillText(f Font, str string, x, y float64, align Align, base Baseline, c color.NRGBA) {
	if str == "" {
		return
	}
	face, ok := s.setFont(f)
	if !ok {
		return
	}
	if align == AlignCenter {
		w, _ := s.dc.MeasureString(str)
		x -= w / 2
	}
	metrics := face.Metrics()
	ascent := float64(metrics.Ascent) / 64
	descent := float64(metrics.Descent) / 64
	switch base {
	case BaselineTop:
		y += ascent
	case BaselineMiddle:
		y += (ascent - descent) / 2
	}
	s.dc.SetColor(c)
	s.dc.DrawString(str, x, y)
}

// setFont activates f, recording the first failure.
func (s *ImageSurface) setFont(f Font) (font.Face, bool) {
	face, err := s.faces.Face(f.Role, f.Size)
	if err != nil {
		if s.err == nil {
			s.err = fmt.Errorf("font %s %.1fpx: %w", f.Role, f.Size, err)
		}
		return nil, false
	}
	s.dc.SetFontFace(face)
	return face, true
}

var _ Surface = (*ImageSurface)(nil)
