package canvas

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math/rand/v2"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"tools.zach/dev/coverkit/internal/document"
	"tools.zach/dev/coverkit/internal/fonts"
	"tools.zach/dev/coverkit/internal/logger"
	"tools.zach/dev/coverkit/internal/preset"
)

// ErrSuperseded is returned by [Compositor.Render] when a newer render
// started before this one could publish.
var ErrSuperseded = errors.New("render superseded by a newer one")

// RenderError reports a layer that failed or panicked. The previously
// published frame is kept.
type RenderError struct {
	Layer string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Layer, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// ImageSource loads decoded images by reference. *imagecache.Cache
// satisfies it.
type ImageSource interface {
	LoadAll(ctx context.Context, refs []string) map[string]image.Image
	Forget(refs ...string)
}

// Frame is a published render.
type Frame struct {
	Image      image.Image
	Generation uint64
	Size       preset.SizeConfig
	Doc        document.Document
	RenderedAt time.Time
	Duration   time.Duration
}

// ComposeOptions controls one pass of the layer pipeline.
type ComposeOptions struct {
	// IncludeSafeZone draws the avatar overlay when the document enables it.
	IncludeSafeZone bool
	// Rand drives the watermark. Nil uses the compositor's seed policy.
	Rand *rand.Rand
}

// SurfaceFactory creates the off-screen surface for a render.
type SurfaceFactory func(w, h int) Surface

// Option configures a [Compositor].
type Option func(*Compositor)

// WithSeed pins the watermark seed so every render draws the same pattern.
func WithSeed(seed uint64) Option {
	return func(c *Compositor) { c.seed = &seed }
}

// WithSurfaceFactory replaces the default [ImageSurface] factory used by
// [Compositor.Render].
func WithSurfaceFactory(f SurfaceFactory) Option {
	return func(c *Compositor) { c.newSurface = f }
}

// Compositor renders documents through the fixed layer order and publishes
// the newest frame.
type Compositor struct {
	images  ImageSource
	fonts   *fonts.Set
	presets *preset.Registry

	seed       *uint64
	newSurface SurfaceFactory

	gen atomic.Uint64

	// loadMu guards the loaded image set. It is held across LoadAll.
	loadMu     sync.Mutex
	loadedRefs []string
	loaded     map[string]image.Image

	// dirty forces the next load to refetch every image.
	dirty atomic.Bool

	frameMu sync.RWMutex
	frame   *Frame
}

// NewCompositor returns a compositor with no published frame.
func NewCompositor(images ImageSource, set *fonts.Set, presets *preset.Registry, opts ...Option) *Compositor {
	if set == nil {
		set = fonts.Default()
	}
	c := &Compositor{
		images:  images,
		fonts:   set,
		presets: presets,
	}
	c.dirty.Store(true)
	c.newSurface = func(w, h int) Surface { return NewImageSurface(w, h, c.fonts) }
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fonts returns the font set surfaces are created with.
func (c *Compositor) Fonts() *fonts.Set { return c.fonts }

// Size resolves the preset for doc.
func (c *Compositor) Size(doc document.Document) preset.SizeConfig {
	return c.presets.Resolve(doc.CanvasSize)
}

// ForceReload marks the image set stale. The next render evicts and
// refetches every image the document references.
// It does not wait for a load in progress.
func (c *Compositor) ForceReload() {
	c.dirty.Store(true)
}

// Frame returns the last published frame, or nil.
func (c *Compositor) Frame() *Frame {
	c.frameMu.RLock()
	defer c.frameMu.RUnlock()
	return c.frame
}

// Render draws doc off-screen and publishes it as the current frame. The
// safe-zone overlay is included when doc enables it. A render overtaken by a
// newer one returns [ErrSuperseded] and publishes nothing.
func (c *Compositor) Render(ctx context.Context, doc document.Document) (*Frame, error) {
	start := time.Now()
	g := c.gen.Add(1)

	imgs, err := c.ensureImages(ctx, doc)
	if err != nil {
		return nil, err
	}
	if c.gen.Load() != g {
		slog.Debug("render superseded before drawing", "generation", g)
		return nil, ErrSuperseded
	}

	size := c.Size(doc)
	surf := c.newSurface(size.Width, size.Height)
	if cl, ok := surf.(interface{ Close() error }); ok {
		defer cl.Close()
	}

	if err := c.draw(surf, doc, size, imgs, ComposeOptions{IncludeSafeZone: true}); err != nil {
		slog.Warn("render failed, keeping previous frame", "generation", g, "error", err)
		return nil, err
	}

	f := &Frame{
		Generation: g,
		Size:       size,
		Doc:        doc.Clone(),
		RenderedAt: time.Now(),
		Duration:   time.Since(start),
	}
	if im, ok := surf.(interface{ Image() image.Image }); ok {
		f.Image = im.Image()
	}

	c.frameMu.Lock()
	defer c.frameMu.Unlock()
	if c.frame != nil && c.frame.Generation >= g {
		return nil, ErrSuperseded
	}
	c.frame = f
	slog.Debug("frame published", "generation", g, "preset", size.Key, "duration", f.Duration)
	return f, nil
}

// Compose runs the layer pipeline for doc on a caller-owned surface. It is
// not subject to supersession.
func (c *Compositor) Compose(ctx context.Context, s Surface, doc document.Document, opts ComposeOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	imgs, err := c.ensureImages(ctx, doc)
	if err != nil {
		return err
	}
	return c.draw(s, doc, c.Size(doc), imgs, opts)
}

// ensureImages reloads the image set when the ordered ref list changed or a
// reload was forced, and returns the images for doc.
func (c *Compositor) ensureImages(ctx context.Context, doc document.Document) (map[string]image.Image, error) {
	refs := doc.ImageRefs()

	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	forced := c.dirty.Swap(false)
	if forced || !slices.Equal(refs, c.loadedRefs) {
		if forced {
			c.images.Forget(refs...)
		}
		loaded := c.images.LoadAll(ctx, refs)
		if err := ctx.Err(); err != nil {
			if forced {
				c.dirty.Store(true)
			}
			return nil, err
		}
		c.loaded = loaded
		c.loadedRefs = refs
		slog.Debug("images loaded", "refs", len(refs), "loaded", len(loaded))
	}
	return c.loaded, nil
}

// draw runs every layer in order. A panic in a layer becomes a
// [RenderError] naming it.
func (c *Compositor) draw(s Surface, doc document.Document, size preset.SizeConfig, imgs map[string]image.Image, opts ComposeOptions) error {
	t := doc.ResolvedTheme()
	rng := opts.Rand
	if rng == nil {
		rng = c.newRand()
	}

	layers := []layer{
		{"background", func() { DrawBackground(s, t, size) }},
		{"watermark", func() {
			DrawWatermark(s, size, doc.WatermarkStyle, doc.WatermarkDensity, doc.WatermarkOpacity, rng)
		}},
		{"text", func() { DrawText(s, textOf(doc), t, size) }},
		{"social", func() { DrawSocialLinks(s, socialOf(doc, imgs), t, size) }},
		{"cards", func() { DrawCards(s, cardsOf(doc, imgs), t, size, doc.ShowAppLabels) }},
	}
	if opts.IncludeSafeZone && doc.ShowSafeZone {
		layers = append(layers, layer{"safe zone", func() { DrawSafeZones(s, size, doc.SafeZoneView) }})
	}

	for _, l := range layers {
		start := time.Now()
		if err := runLayer(l.name, l.fn); err != nil {
			return err
		}
		logger.Trace(slog.Default(), "layer drawn", "layer", l.name, "duration", time.Since(start))
	}
	if err := s.Err(); err != nil {
		return &RenderError{Layer: "surface", Err: err}
	}
	return nil
}

type layer struct {
	name string
	fn   func()
}

func runLayer(name string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("layer panicked", "layer", name, "panic", r, "stack", string(debug.Stack()))
			err = &RenderError{Layer: name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	fn()
	return nil
}

func (c *Compositor) newRand() *rand.Rand {
	if c.seed != nil {
		return rand.New(rand.NewPCG(*c.seed, 0))
	}
	now := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(now, now>>1))
}

// ///////////////////////////////////////////////
// Document Slices
// ///////////////////////////////////////////////

func textOf(d document.Document) Text {
	return Text{Title: d.Title, Subtitle: d.Subtitle, Tagline: d.Tagline, Experience: d.Experience}
}

func socialOf(d document.Document, imgs map[string]image.Image) []SocialItem {
	items := make([]SocialItem, len(d.SocialLinks))
	for i, l := range d.SocialLinks {
		items[i] = SocialItem{Text: l.Text, Icon: imgs[string(l.IconURL)]}
	}
	return items
}

func cardsOf(d document.Document, imgs map[string]image.Image) []Card {
	n := min(len(d.Apps), document.MaxAppCards)
	cards := make([]Card, n)
	for i, a := range d.Apps[:n] {
		cards[i] = Card{Name: a.Name, Screenshot: imgs[string(a.Screenshot)], Logo: imgs[string(a.Logo)]}
	}
	return cards
}
