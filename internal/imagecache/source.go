package imagecache

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-retryablehttp"
	"tools.zach/dev/coverkit/internal/atomicfile"
)

// ErrNotFound is returned when an asset name matches no file in the asset
// directories.
var ErrNotFound = errors.New("image not found")

// fetch returns the encoded bytes for ref and a format hint (a media type or
// file extension) used to pick the decoder.
func (c *Cache) fetch(ctx context.Context, ref string) ([]byte, string, error) {
	switch {
	case strings.HasPrefix(ref, "data:"):
		return parseDataURL(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return c.fetchRemoteWithFallback(ctx, ref)
	case strings.HasPrefix(ref, "file://"):
		u, err := url.Parse(ref)
		if err != nil {
			return nil, "", fmt.Errorf("parse %s: %w", ref, err)
		}
		return c.readFile(filepath.FromSlash(u.Path))
	case filepath.IsAbs(ref):
		return c.readFile(ref)
	default:
		return c.readAsset(ref)
	}
}

// ///////////////////////////////////////////////
// Data URLs
// ///////////////////////////////////////////////

// parseDataURL decodes "data:[<mediatype>][;base64],<payload>".
func parseDataURL(ref string) ([]byte, string, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data URL")
	}
	isBase64 := strings.HasSuffix(meta, ";base64")
	mediaType := strings.TrimSuffix(meta, ";base64")
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// Some encoders drop the padding.
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return nil, "", fmt.Errorf("decode data URL: %w", err)
		}
		return data, mediaType, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("unescape data URL: %w", err)
	}
	return []byte(s), mediaType, nil
}

// ///////////////////////////////////////////////
// Remote
// ///////////////////////////////////////////////

// fetchRemoteWithFallback downloads url and refreshes the disk cache. When
// the download fails, previously cached bytes are used instead.
func (c *Cache) fetchRemoteWithFallback(ctx context.Context, rawURL string) ([]byte, string, error) {
	data, hint, err := c.fetchRemote(ctx, rawURL)
	if err == nil {
		if c.opts.CacheDir != "" {
			if cacheErr := c.writeCached(rawURL, data, hint); cacheErr != nil {
				slog.Warn("failed to write image cache", "url", rawURL, "error", cacheErr)
			}
		}
		return data, hint, nil
	}
	if c.opts.CacheDir == "" {
		return nil, "", err
	}

	cached, cachedHint, cacheErr := c.readCached(rawURL)
	if cacheErr != nil {
		return nil, "", fmt.Errorf("%w; cache: %w", err, cacheErr)
	}
	slog.Warn("using cached image, fetch failed", "url", rawURL, "error", err)
	return cached, cachedHint, nil
}

// fetchRemote performs one GET with retries.
func (c *Cache) fetchRemote(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("GET %s: %w", rawURL, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading response from %s: %w", rawURL, err)
	}
	if int64(len(body)) > c.opts.MaxBytes {
		return nil, "", fmt.Errorf("response from %s exceeds %d bytes", rawURL, c.opts.MaxBytes)
	}

	hint := resp.Header.Get("Content-Type")
	if hint == "" {
		hint = path.Ext(resp.Request.URL.Path)
	}
	return body, hint, nil
}

// cachePath names the cache entry for url. The format hint lives next to it
// in a ".type" file.
func (c *Cache) cachePath(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return filepath.Join(c.opts.CacheDir, hex.EncodeToString(sum[:16]))
}

func (c *Cache) writeCached(rawURL string, data []byte, hint string) error {
	if err := os.MkdirAll(c.opts.CacheDir, 0o755); err != nil {
		return fmt.Errorf("creating image cache directory: %w", err)
	}
	p := c.cachePath(rawURL)
	if err := atomicfile.Write(p+".type", []byte(hint), 0o644); err != nil {
		return err
	}
	return atomicfile.Write(p, data, 0o644)
}

func (c *Cache) readCached(rawURL string) ([]byte, string, error) {
	p := c.cachePath(rawURL)
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, "", fmt.Errorf("reading image cache: %w", err)
	}
	hint, _ := os.ReadFile(p + ".type")
	return data, string(hint), nil
}

// ///////////////////////////////////////////////
// Local Files
// ///////////////////////////////////////////////

// readFile reads an absolute path, enforcing the size cap.
func (c *Cache) readFile(p string) ([]byte, string, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, "", err
	}
	if info.IsDir() {
		return nil, "", fmt.Errorf("%s is a directory", p)
	}
	if info.Size() > c.opts.MaxBytes {
		return nil, "", fmt.Errorf("%s exceeds %d bytes", p, c.opts.MaxBytes)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, "", err
	}
	return data, filepath.Ext(p), nil
}

// readAsset resolves a relative asset name against each asset directory in
// order. A direct join wins; otherwise the first "**/<name>" match is used,
// so assets may live in nested folders.
func (c *Cache) readAsset(name string) ([]byte, string, error) {
	clean := filepath.FromSlash(name)
	if !filepath.IsLocal(clean) {
		return nil, "", fmt.Errorf("asset %q escapes the asset directories", name)
	}
	for _, dir := range c.opts.AssetDirs {
		p := filepath.Join(dir, clean)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return c.readFile(p)
		}
	}
	if strings.ContainsAny(name, "*?[{\\") {
		return nil, "", fmt.Errorf("asset %q: %w", name, ErrNotFound)
	}
	pattern := "**/" + filepath.ToSlash(clean)
	for _, dir := range c.opts.AssetDirs {
		matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
		if err != nil || len(matches) == 0 {
			continue
		}
		return c.readFile(filepath.Join(dir, filepath.FromSlash(matches[0])))
	}
	return nil, "", fmt.Errorf("asset %q: %w", name, ErrNotFound)
}
