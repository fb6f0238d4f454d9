// preview_test.go tests that store edits flow into published frames and
// that frames are written to disk as PNG.

package preview

import (
	"context"
	"encoding/json"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tools.zach/dev/coverkit/internal/canvas"
	"tools.zach/dev/coverkit/internal/document"
	"tools.zach/dev/coverkit/internal/preset"
)

type noImages struct {
	mu      sync.Mutex
	forgets int
}

func (*noImages) LoadAll(context.Context, []string) map[string]image.Image { return nil }

func (n *noImages) Forget(...string) {
	n.mu.Lock()
	n.forgets++
	n.mu.Unlock()
}

type memPersister struct{}

func (memPersister) Load() ([]byte, error) { return nil, nil }
func (memPersister) Save([]byte) error     { return nil }
func (memPersister) Clear() error          { return nil }

func newCompositor(t *testing.T, images canvas.ImageSource) *canvas.Compositor {
	t.Helper()
	reg, err := preset.NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	return canvas.NewCompositor(images, nil, reg)
}

func TestFollowRendersEdits(t *testing.T) {
	images := &noImages{}
	comp := newCompositor(t, images)
	store := document.NewStore(memPersister{}, document.WithDebounce(time.Hour))
	defer store.Close()

	frames := make(chan *canvas.Frame, 8)
	f := Follow(context.Background(), store, comp, func(fr *canvas.Frame) { frames <- fr })

	if err := store.SetField("title", json.RawMessage(`"Platform Engineer"`)); err != nil {
		t.Fatal(err)
	}
	f.Stop()

	select {
	case fr := <-frames:
		if fr.Doc.Title != "Platform Engineer" {
			t.Errorf("frame title = %q", fr.Doc.Title)
		}
	default:
		t.Fatal("no frame published")
	}
	if comp.Frame() == nil || comp.Frame().Doc.Title != "Platform Engineer" {
		t.Error("compositor frame not updated")
	}
}

func TestFollowForcesImageReload(t *testing.T) {
	images := &noImages{}
	comp := newCompositor(t, images)
	store := document.NewStore(memPersister{}, document.WithDebounce(time.Hour))
	defer store.Close()

	f := Follow(context.Background(), store, comp, nil)
	f.Render(store.Snapshot())
	images.mu.Lock()
	before := images.forgets
	images.mu.Unlock()

	logo := document.Ref("data:image/png;base64,AAAA")
	if err := store.UpdateApp(0, document.AppPatch{Logo: &logo}); err != nil {
		t.Fatal(err)
	}
	f.Stop()

	images.mu.Lock()
	defer images.mu.Unlock()
	if images.forgets != before+1 {
		t.Errorf("forgets = %d, want %d", images.forgets, before+1)
	}
}

func TestStopUnsubscribes(t *testing.T) {
	comp := newCompositor(t, &noImages{})
	store := document.NewStore(memPersister{}, document.WithDebounce(time.Hour))
	defer store.Close()

	calls := 0
	f := Follow(context.Background(), store, comp, func(*canvas.Frame) { calls++ })
	f.Stop()

	if err := store.SetField("title", json.RawMessage(`"x"`)); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if calls != 0 {
		t.Errorf("onFrame ran %d times after Stop", calls)
	}
}

func TestWritePNG(t *testing.T) {
	comp := newCompositor(t, &noImages{})
	fr, err := comp.Render(context.Background(), document.Defaults())
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "nested", "preview.png")
	if err := WritePNG(path, fr); err != nil {
		t.Fatal(err)
	}
	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	cfg, format, err := image.DecodeConfig(file)
	if err != nil {
		t.Fatal(err)
	}
	if format != "png" || cfg.Width != 1584 || cfg.Height != 396 {
		t.Errorf("preview = %s %dx%d", format, cfg.Width, cfg.Height)
	}

	if err := WritePNG(path, nil); err == nil {
		t.Error("nil frame should fail")
	}
}

func TestWithoutSafeZone(t *testing.T) {
	comp := newCompositor(t, &noImages{})
	store := document.NewStore(memPersister{}, document.WithDebounce(time.Hour))
	defer store.Close()

	f := Follow(context.Background(), store, comp, nil, WithoutSafeZone())
	defer f.Stop()

	if !store.Snapshot().ShowSafeZone {
		t.Fatal("defaults should enable the safe zone")
	}
	if !f.Render(store.Snapshot()) {
		t.Fatal("render failed")
	}
	if comp.Frame().Doc.ShowSafeZone {
		t.Error("frame rendered with safe zone")
	}
	if !store.Snapshot().ShowSafeZone {
		t.Error("store document was modified")
	}
}
