// Package update compares the running coverkit build with the latest entry of
// a release manifest.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ManifestURL is the default release manifest, set at build time via
//
//	-X tools.zach/dev/coverkit/internal/update.ManifestURL=...
var ManifestURL string

// ErrNoManifest is returned when no manifest URL is configured.
var ErrNoManifest = errors.New("no release manifest configured")

// Manifest is the published release description.
type Manifest struct {
	// Version is the latest stable release, e.g. "0.3.1".
	Version string `json:"version"`
	// URL points at the release notes or download page.
	URL string `json:"url,omitempty"`
}

// Result is the outcome of one check.
type Result struct {
	Current string
	Latest  string
	URL     string
	// Newer reports whether Latest is a newer release than Current.
	Newer bool
}

// ///////////////////////////////////////////////
// Check
// ///////////////////////////////////////////////

// Check fetches the manifest at url and compares it with current. An empty
// url uses [ManifestURL].
func Check(ctx context.Context, url, current string) (Result, error) {
	if url == "" {
		url = ManifestURL
	}
	res := Result{Current: current}
	if url == "" {
		return res, ErrNoManifest
	}
	m, err := fetch(ctx, url)
	if err != nil {
		return res, err
	}
	res.Latest = m.Version
	res.URL = m.URL
	res.Newer = m.Version != "" && semverLess(current, m.Version)
	if res.Newer {
		slog.Info("new version available", "current", current, "latest", m.Version)
	}
	return res, nil
}

func fetch(ctx context.Context, url string) (Manifest, error) {
	client := retryablehttp.NewClient()
	client.RetryMax = 1
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = 500 * time.Millisecond
	client.HTTPClient.Timeout = 5 * time.Second
	client.Logger = nil

	var m Manifest
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return m, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return m, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return m, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return m, fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(body, &m); err != nil {
		return m, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

// ///////////////////////////////////////////////
// Versions
// ///////////////////////////////////////////////

// semverLess reports a < b. Pre-releases sort before the release they
// precede; strings that are not x.y.z never compare less.
func semverLess(a, b string) bool {
	va, okA := parseSemver(a)
	vb, okB := parseSemver(b)
	if !okA || !okB {
		return false
	}
	for i := range va.core {
		if va.core[i] != vb.core[i] {
			return va.core[i] < vb.core[i]
		}
	}
	return va.pre && !vb.pre
}

type semver struct {
	core [3]int
	pre  bool
}

// parseSemver accepts "1.2.3", "v1.2.3" and suffixed forms like
// "0.1.0-dev+abc".
func parseSemver(s string) (semver, bool) {
	var v semver
	s = strings.TrimPrefix(s, "v")
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '-'); i >= 0 {
		v.pre = true
		s = s[:i]
	}
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return v, false
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || strings.ContainsAny(p, "+-") {
			return v, false
		}
		v.core[i] = n
	}
	return v, true
}
