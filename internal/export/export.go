// Package export renders documents into standalone image files and the
// system clipboard. Export passes never draw the safe-zone overlay and never
// touch the compositor's published frame.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"tools.zach/dev/coverkit/internal/atomicfile"
	"tools.zach/dev/coverkit/internal/canvas"
	"tools.zach/dev/coverkit/internal/document"
)

// Format is an output encoding.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
)

// ParseFormat accepts "png", "jpeg" or "jpg", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "png":
		return PNG, nil
	case "jpeg", "jpg":
		return JPEG, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Options selects the encoding of one export.
type Options struct {
	Format Format
	// Scale is 1 or 2.
	Scale int
	// Quality is the JPEG quality in [0, 1]. Zero is the lowest quality,
	// not a default.
	Quality float64
}

// OptionsFor returns PNG options at the document's scale and quality.
func OptionsFor(doc document.Document) Options {
	return Options{Format: PNG, Scale: doc.ExportScale, Quality: doc.JPEGQuality}
}

func (o Options) normalize() (Options, error) {
	if o.Format == "" {
		o.Format = PNG
	}
	if o.Format != PNG && o.Format != JPEG {
		return o, fmt.Errorf("unknown export format %q", o.Format)
	}
	if o.Scale == 0 {
		o.Scale = 1
	}
	if o.Scale != 1 && o.Scale != 2 {
		return o, fmt.Errorf("export scale must be 1 or 2, got %d", o.Scale)
	}
	if o.Quality < 0 || o.Quality > 1 || math.IsNaN(o.Quality) {
		return o, fmt.Errorf("jpeg quality must be in [0, 1], got %v", o.Quality)
	}
	return o, nil
}

// FileName returns the download name for an export, e.g.
// "linkedin-cover-2x.png".
func FileName(scale int, f Format) string {
	return fmt.Sprintf("linkedin-cover-%dx.%s", scale, f)
}

// ExportError reports a failed export step.
type ExportError struct {
	Op  string
	Err error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Op, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

func fail(op string, err error) error {
	var ee *ExportError
	if errors.As(err, &ee) {
		return err
	}
	return &ExportError{Op: op, Err: err}
}

// ///////////////////////////////////////////////
// Exporter
// ///////////////////////////////////////////////

// Exporter renders documents through a compositor onto fresh surfaces.
type Exporter struct {
	comp *canvas.Compositor
	clip Clipboard
}

// New returns an exporter. clip may be nil when no clipboard is available.
func New(comp *canvas.Compositor, clip Clipboard) *Exporter {
	return &Exporter{comp: comp, clip: clip}
}

// Render composes doc without the safe-zone overlay. Scale 2 resamples the
// result to exactly twice the preset size.
func (e *Exporter) Render(ctx context.Context, doc document.Document, scale int) (image.Image, error) {
	if scale != 1 && scale != 2 {
		return nil, fail("render", fmt.Errorf("scale must be 1 or 2, got %d", scale))
	}
	size := e.comp.Size(doc)
	s := canvas.NewImageSurface(size.Width, size.Height, e.comp.Fonts())
	defer s.Close()

	if err := e.comp.Compose(ctx, s, doc, canvas.ComposeOptions{}); err != nil {
		return nil, fail("render", err)
	}
	img := s.Image()
	if scale == 2 {
		img = imaging.Resize(img, size.Width*2, size.Height*2, imaging.Lanczos)
	}
	return img, nil
}

// Encode renders doc and writes it to w in the requested format.
func (e *Exporter) Encode(ctx context.Context, w io.Writer, doc document.Document, opts Options) error {
	opts, err := opts.normalize()
	if err != nil {
		return fail("options", err)
	}
	img, err := e.Render(ctx, doc, opts.Scale)
	if err != nil {
		return err
	}
	return encode(w, img, opts)
}

func encode(w io.Writer, img image.Image, opts Options) error {
	var err error
	switch opts.Format {
	case JPEG:
		q := int(math.Round(opts.Quality * 100))
		err = imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(max(q, 1)))
	default:
		err = imaging.Encode(w, img, imaging.PNG)
	}
	if err != nil {
		return fail("encode", err)
	}
	return nil
}

// WriteFile exports doc into dir under [FileName] and returns the path. The
// file appears complete or not at all.
func (e *Exporter) WriteFile(ctx context.Context, dir string, doc document.Document, opts Options) (string, error) {
	opts, err := opts.normalize()
	if err != nil {
		return "", fail("options", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fail("write", err)
	}
	img, err := e.Render(ctx, doc, opts.Scale)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName(opts.Scale, opts.Format))
	err = atomicfile.WriteFunc(path, 0o644, func(w io.Writer) error {
		return encode(w, img, opts)
	})
	if err != nil {
		return "", fail("write", err)
	}
	b := img.Bounds()
	slog.Info("exported cover", "path", path, "format", opts.Format, "width", b.Dx(), "height", b.Dy())
	return path, nil
}

// CopyToClipboard places a 1× PNG of doc on the clipboard.
func (e *Exporter) CopyToClipboard(ctx context.Context, doc document.Document) error {
	if e.clip == nil {
		return fail("clipboard", ErrNoClipboard)
	}
	var buf bytes.Buffer
	if err := e.Encode(ctx, &buf, doc, Options{Format: PNG, Scale: 1}); err != nil {
		return err
	}
	if err := e.clip.WriteImage(buf.Bytes()); err != nil {
		return fail("clipboard", err)
	}
	slog.Info("copied cover to clipboard", "bytes", buf.Len())
	return nil
}
