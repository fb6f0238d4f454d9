// Package preview keeps a compositor frame in step with a document store and
// writes frames to disk for external viewers.
package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"tools.zach/dev/coverkit/internal/atomicfile"
	"tools.zach/dev/coverkit/internal/canvas"
	"tools.zach/dev/coverkit/internal/document"
)

// Follower re-renders on every store event. Renders run on their own
// goroutines; the compositor drops the ones that are overtaken.
type Follower struct {
	ctx     context.Context
	comp    *canvas.Compositor
	onFrame func(*canvas.Frame)
	// hideSafeZone drops the overlay regardless of the document setting.
	hideSafeZone bool

	wg    sync.WaitGroup
	unsub func()
}

// Option configures a [Follower].
type Option func(*Follower)

// WithoutSafeZone renders frames without the avatar overlay.
func WithoutSafeZone() Option {
	return func(f *Follower) { f.hideSafeZone = true }
}

// Follow subscribes to store and renders each new snapshot through comp.
// onFrame, if non-nil, runs after each published frame. Stop with
// [Follower.Stop].
func Follow(ctx context.Context, store *document.Store, comp *canvas.Compositor, onFrame func(*canvas.Frame), opts ...Option) *Follower {
	f := &Follower{ctx: ctx, comp: comp, onFrame: onFrame}
	for _, o := range opts {
		o(f)
	}
	f.unsub = store.Subscribe(f.handle)
	return f
}

func (f *Follower) handle(ev document.Event) {
	if ev.ImagesChanged {
		f.comp.ForceReload()
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.Render(ev.Doc)
	}()
}

// Render draws doc now and reports whether a frame was published.
func (f *Follower) Render(doc document.Document) bool {
	if f.hideSafeZone {
		doc.ShowSafeZone = false
	}
	frame, err := f.comp.Render(f.ctx, doc)
	switch {
	case errors.Is(err, canvas.ErrSuperseded):
		slog.Debug("preview render superseded")
		return false
	case err != nil:
		slog.Warn("preview render failed", "error", err)
		return false
	}
	if f.onFrame != nil {
		f.onFrame(frame)
	}
	return true
}

// Stop unsubscribes and waits for in-flight renders.
func (f *Follower) Stop() {
	f.unsub()
	f.wg.Wait()
}

// ///////////////////////////////////////////////
// Output
// ///////////////////////////////////////////////

// WritePNG atomically writes the frame image to path.
func WritePNG(path string, frame *canvas.Frame) error {
	if frame == nil || frame.Image == nil {
		return fmt.Errorf("write preview: no image")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	err := atomicfile.WriteFunc(path, 0o644, func(w io.Writer) error {
		return imaging.Encode(w, frame.Image, imaging.PNG)
	})
	if err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	slog.Debug("preview written", "path", path, "generation", frame.Generation)
	return nil
}
