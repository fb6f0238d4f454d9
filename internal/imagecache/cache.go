// Package imagecache loads and decodes the images a cover references and
// keeps them in memory keyed by the exact reference string.
//
// A reference is a data URL, an http(s) URL, a file:// URL, an absolute
// path, or a bundled asset name resolved against the configured asset
// directories. Concurrent loads of the same reference share one fetch.
// Failures are returned to the caller and never cached, so the next render
// retries.
package imagecache

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Options configures a [Cache].
type Options struct {
	// Timeout bounds one load, remote retries included.
	Timeout time.Duration
	// RetryMax is the number of retries for a remote fetch.
	RetryMax int
	// MaxBytes caps the encoded size of one image.
	MaxBytes int64
	// SVGSize is the pixel size of the longer side of a rasterized SVG.
	SVGSize int
	// AssetDirs are searched in order for bundled asset names.
	AssetDirs []string
	// CacheDir keeps fetched remote bytes for offline use. Empty disables it.
	CacheDir string
}

// DefaultOptions returns the options used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		Timeout:  10 * time.Second,
		RetryMax: 2,
		MaxBytes: 20 << 20,
		SVGSize:  128,
	}
}

// Cache is a concurrency-safe decoded image cache.
type Cache struct {
	opts   Options
	client *retryablehttp.Client

	mu     sync.RWMutex
	images map[string]image.Image
	group  singleflight.Group
}

// New returns an empty cache.
func New(opts Options) *Cache {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = def.MaxBytes
	}
	if opts.SVGSize <= 0 {
		opts.SVGSize = def.SVGSize
	}

	client := retryablehttp.NewClient()
	client.RetryMax = opts.RetryMax
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = opts.Timeout
	client.Logger = nil // suppress retryablehttp's default logging

	return &Cache{
		opts:   opts,
		client: client,
		images: make(map[string]image.Image),
	}
}

// Get returns the decoded image for ref, or nil when it cannot be loaded.
// Failures are logged and not cached.
func (c *Cache) Get(ctx context.Context, ref string) image.Image {
	img, err := c.Load(ctx, ref)
	if err != nil {
		slog.Warn("failed to load image", "ref", shortRef(ref), "error", err)
		return nil
	}
	return img
}

// Load returns the decoded image for ref, fetching it on first use.
func (c *Cache) Load(ctx context.Context, ref string) (image.Image, error) {
	if ref == "" {
		return nil, fmt.Errorf("empty image reference")
	}
	if img, ok := c.lookup(ref); ok {
		return img, nil
	}

	ch := c.group.DoChan(ref, func() (any, error) {
		if img, ok := c.lookup(ref); ok {
			return img, nil
		}
		// Detached so one caller's cancellation does not fail the others.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.Timeout)
		defer cancel()

		data, hint, err := c.fetch(fetchCtx, ref)
		if err != nil {
			return nil, err
		}
		img, err := decode(data, hint, c.opts.SVGSize)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.images[ref] = img
		c.mu.Unlock()
		slog.Debug("image loaded", "ref", shortRef(ref), "size", img.Bounds().Size())
		return img, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(image.Image), nil
	}
}

// LoadAll loads refs concurrently and returns the images that loaded.
// Failed refs are logged and absent from the map.
func (c *Cache) LoadAll(ctx context.Context, refs []string) map[string]image.Image {
	var mu sync.Mutex
	out := make(map[string]image.Image, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true
		g.Go(func() error {
			if img := c.Get(gctx, ref); img != nil {
				mu.Lock()
				out[ref] = img
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (c *Cache) lookup(ref string) (image.Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok := c.images[ref]
	return img, ok
}

// Forget evicts refs so the next load fetches them again.
func (c *Cache) Forget(refs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range refs {
		delete(c.images, r)
	}
}

// Clear evicts everything.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.images)
}

// Len returns the number of cached images.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// shortRef trims data URLs for log output.
func shortRef(ref string) string {
	if len(ref) > 64 {
		return ref[:61] + "..."
	}
	return ref
}
