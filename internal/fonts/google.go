// google.go downloads font files from the Google Fonts CSS API.
//
// Font specs use the format "google:FAMILY[:WEIGHT]" (e.g. "google:Inter:600").
// Downloaded fonts are converted to SFNT and cached so they are fetched once.

package fonts

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"tools.zach/dev/coverkit/internal/atomicfile"
)

// DefaultCSSURL is the Google Fonts CSS2 endpoint.
const DefaultCSSURL = "https://fonts.googleapis.com/css2"

// fontURLRe extracts the font file URL from the CSS response.
// Matches: url(https://fonts.gstatic.com/s/inter/v18/xxx.woff2)
var fontURLRe = regexp.MustCompile(`url\((https?://[^)\s]+)\)`)

// ParseGoogleFontSpec parses a "google:Family[:Weight]" spec. The weight
// defaults to 400.
func ParseGoogleFontSpec(spec string) (family, weight string, ok bool) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "google" || parts[1] == "" {
		return "", "", false
	}
	weight = "400"
	if len(parts) == 3 && parts[2] != "" {
		weight = parts[2]
	}
	return parts[1], weight, true
}

// GoogleFetcher downloads and caches Google Fonts.
type GoogleFetcher struct {
	// CSSURL is the CSS API endpoint. Empty uses [DefaultCSSURL].
	CSSURL string
	// CacheDir holds converted font files.
	CacheDir string

	client *retryablehttp.Client
}

// NewGoogleFetcher returns a fetcher caching into cacheDir.
func NewGoogleFetcher(cacheDir string, timeout time.Duration, retryMax int) *GoogleFetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.HTTPClient.Timeout = timeout
	client.Logger = nil // suppress retryablehttp's default logging
	return &GoogleFetcher{CacheDir: cacheDir, client: client}
}

// Fetch returns SFNT bytes for spec, from the cache when present.
func (g *GoogleFetcher) Fetch(spec string) ([]byte, error) {
	family, weight, ok := ParseGoogleFontSpec(spec)
	if !ok {
		return nil, fmt.Errorf("invalid google font spec %q: expected google:FAMILY[:WEIGHT]", spec)
	}

	cacheFile := filepath.Join(g.CacheDir, fmt.Sprintf("%s-%s.ttf", strings.ReplaceAll(family, " ", "_"), weight))
	if data, err := os.ReadFile(cacheFile); err == nil {
		return data, nil
	}

	base := g.CSSURL
	if base == "" {
		base = DefaultCSSURL
	}
	cssURL := fmt.Sprintf("%s?family=%s:wght@%s", base, url.QueryEscape(family), weight)

	req, err := retryablehttp.NewRequest(http.MethodGet, cssURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	// A modern User-Agent gets WOFF2 URLs, which we can convert.
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	cssBody, err := g.get(req, 1<<20)
	if err != nil {
		return nil, fmt.Errorf("fetching CSS for %s wght@%s: %w", family, weight, err)
	}

	matches := fontURLRe.FindSubmatch(cssBody)
	if matches == nil {
		return nil, fmt.Errorf("no font URL found in Google Fonts CSS response for %s wght@%s", family, weight)
	}
	fontURL := string(matches[1])

	fontReq, err := retryablehttp.NewRequest(http.MethodGet, fontURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	fontData, err := g.get(fontReq, 10<<20)
	if err != nil {
		return nil, fmt.Errorf("downloading font file: %w", err)
	}

	fontData, err = maybeConvertWOFF2(fontURL, fontData)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(g.CacheDir, 0o755); err != nil {
		slog.Warn("failed to create font cache dir", "error", err)
	} else if err := atomicfile.Write(cacheFile, fontData, 0o644); err != nil {
		slog.Warn("failed to cache font", "file", cacheFile, "error", err)
	}
	return fontData, nil
}

func (g *GoogleFetcher) get(req *retryablehttp.Request, limit int64) ([]byte, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("response exceeds %d bytes", limit)
	}
	return body, nil
}
