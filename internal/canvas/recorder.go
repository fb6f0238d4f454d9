package canvas

import (
	"image"
	"image/color"
	"unicode/utf8"
)

// OpKind names a recorded surface call.
type OpKind string

const (
	OpPush              OpKind = "push"
	OpPop               OpKind = "pop"
	OpTranslate         OpKind = "translate"
	OpRotate            OpKind = "rotate"
	OpClipRoundedRect   OpKind = "clipRoundedRect"
	OpFillRect          OpKind = "fillRect"
	OpStrokeRect        OpKind = "strokeRect"
	OpFillRoundedRect   OpKind = "fillRoundedRect"
	OpStrokeRoundedRect OpKind = "strokeRoundedRect"
	OpFillCircle        OpKind = "fillCircle"
	OpStrokeCircle      OpKind = "strokeCircle"
	OpFillPolygon       OpKind = "fillPolygon"
	OpStrokePolygon     OpKind = "strokePolygon"
	OpDrawImage         OpKind = "drawImage"
	OpFillText          OpKind = "fillText"
)

// Op is one recorded call. Only the fields relevant to Kind are set.
type Op struct {
	Kind OpKind

	X, Y, W, H float64
	Radius     float64
	Angle      float64
	LineWidth  float64
	Points     []Point

	Paint Paint
	Color color.NRGBA
	Image image.Image

	Text     string
	Font     Font
	Align    Align
	Baseline Baseline
}

// Recorder is a [Surface] that records calls instead of drawing. Text is
// measured as advance·size per rune.
type Recorder struct {
	W, H int
	Ops  []Op

	// Advance is the per-rune width as a fraction of the font size.
	Advance float64
}

// NewRecorder returns an empty w×h recorder.
func NewRecorder(w, h int) *Recorder {
	return &Recorder{W: w, H: h, Advance: 0.5}
}

func (r *Recorder) add(op Op) { r.Ops = append(r.Ops, op) }

func (r *Recorder) Width() int  { return r.W }
func (r *Recorder) Height() int { return r.H }
func (r *Recorder) Err() error  { return nil }

func (r *Recorder) Push()                  { r.add(Op{Kind: OpPush}) }
func (r *Recorder) Pop()                   { r.add(Op{Kind: OpPop}) }
func (r *Recorder) Translate(x, y float64) { r.add(Op{Kind: OpTranslate, X: x, Y: y}) }
func (r *Recorder) Rotate(angle float64)   { r.add(Op{Kind: OpRotate, Angle: angle}) }

func (r *Recorder) ClipRoundedRect(x, y, w, h, rad float64) {
	r.add(Op{Kind: OpClipRoundedRect, X: x, Y: y, W: w, H: h, Radius: rad})
}

func (r *Recorder) FillRect(x, y, w, h float64, p Paint) {
	r.add(Op{Kind: OpFillRect, X: x, Y: y, W: w, H: h, Paint: p})
}

func (r *Recorder) StrokeRect(x, y, w, h, lineWidth float64, c color.NRGBA) {
	r.add(Op{Kind: OpStrokeRect, X: x, Y: y, W: w, H: h, LineWidth: lineWidth, Color: c})
}

func (r *Recorder) FillRoundedRect(x, y, w, h, rad float64, p Paint) {
	r.add(Op{Kind: OpFillRoundedRect, X: x, Y: y, W: w, H: h, Radius: rad, Paint: p})
}

func (r *Recorder) StrokeRoundedRect(x, y, w, h, rad, lineWidth float64, c color.NRGBA) {
	r.add(Op{Kind: OpStrokeRoundedRect, X: x, Y: y, W: w, H: h, Radius: rad, LineWidth: lineWidth, Color: c})
}

func (r *Recorder) FillCircle(cx, cy, rad float64, p Paint) {
	r.add(Op{Kind: OpFillCircle, X: cx, Y: cy, Radius: rad, Paint: p})
}

func (r *Recorder) StrokeCircle(cx, cy, rad, lineWidth float64, c color.NRGBA) {
	r.add(Op{Kind: OpStrokeCircle, X: cx, Y: cy, Radius: rad, LineWidth: lineWidth, Color: c})
}

func (r *Recorder) FillPolygon(pts []Point, p Paint) {
	r.add(Op{Kind: OpFillPolygon, Points: append([]Point(nil), pts...), Paint: p})
}

func (r *Recorder) StrokePolygon(pts []Point, lineWidth float64, c color.NRGBA) {
	r.add(Op{Kind: OpStrokePolygon, Points: append([]Point(nil), pts...), LineWidth: lineWidth, Color: c})
}

func (r *Recorder) DrawImage(img image.Image, x, y, w, h float64) {
	r.add(Op{Kind: OpDrawImage, Image: img, X: x, Y: y, W: w, H: h})
}

func (r *Recorder) MeasureText(f Font, s string) float64 {
	return float64(utf8.RuneCountInString(s)) * f.Size * r.Advance
}

func (r *Recorder) FillText(f Font, s string, x, y float64, align Align, base Baseline, c color.NRGBA) {
	r.add(Op{Kind: OpFillText, Text: s, Font: f, X: x, Y: y, Align: align, Baseline: base, Color: c})
}

// Filter returns the recorded ops of kind k in order.
func (r *Recorder) Filter(k OpKind) []Op {
	var out []Op
	for _, op := range r.Ops {
		if op.Kind == k {
			out = append(out, op)
		}
	}
	return out
}

// Texts returns every drawn string in order.
func (r *Recorder) Texts() []string {
	var out []string
	for _, op := range r.Filter(OpFillText) {
		out = append(out, op.Text)
	}
	return out
}

// Reset drops every recorded op.
func (r *Recorder) Reset() { r.Ops = r.Ops[:0] }

var _ Surface = (*Recorder)(nil)
