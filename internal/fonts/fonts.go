// Package fonts resolves the four typefaces the renderer draws with and
// hands out per-surface face caches.
//
// Each role is backed by an embedded Go font unless the config names a font
// file (.ttf, .otf, .woff2) or a Google Fonts family ("google:Inter:700").
// Parsed fonts are shared; [font.Face] values are not goroutine-safe, so every
// surface gets its own [FaceCache].
package fonts

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"

	tdfont "github.com/tdewolff/font"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Role selects a typeface by what it draws.
type Role int

const (
	// Regular is the 400-weight sans face.
	Regular Role = iota
	// Semibold is the 600-weight sans face.
	Semibold
	// Bold is the 700-weight sans face.
	Bold
	// Mono is the monospace face used for code symbols.
	Mono

	numRoles
)

// String returns the config key of the role.
func (r Role) String() string {
	switch r {
	case Regular:
		return "sans_regular"
	case Semibold:
		return "sans_semibold"
	case Bold:
		return "sans_bold"
	case Mono:
		return "mono"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Sources names where each role comes from. Empty means the embedded font.
type Sources struct {
	Regular  string
	Semibold string
	Bold     string
	Mono     string
}

func (s Sources) get(r Role) string {
	switch r {
	case Semibold:
		return s.Semibold
	case Bold:
		return s.Bold
	case Mono:
		return s.Mono
	default:
		return s.Regular
	}
}

// ///////////////////////////////////////////////
// Set
// ///////////////////////////////////////////////

// Set holds one parsed font per role. It is immutable and safe to share.
type Set struct {
	fonts [numRoles]*opentype.Font
}

var (
	embeddedOnce sync.Once
	embedded     [numRoles]*opentype.Font
)

// embeddedTTF maps roles to the bundled Go fonts.
var embeddedTTF = [numRoles][]byte{
	Regular:  goregular.TTF,
	Semibold: gomedium.TTF,
	Bold:     gobold.TTF,
	Mono:     gomonobold.TTF,
}

func loadEmbedded() {
	embeddedOnce.Do(func() {
		for r, data := range embeddedTTF {
			f, err := opentype.Parse(data)
			if err != nil {
				panic(fmt.Sprintf("fonts: parse embedded %s: %v", Role(r), err))
			}
			embedded[r] = f
		}
	})
}

// Default returns the embedded Go font set.
func Default() *Set {
	loadEmbedded()
	return &Set{fonts: embedded}
}

// Load resolves each role from src. A role whose source fails to load falls
// back to the embedded font; the returned error lists those failures and the
// set is usable either way.
func Load(src Sources, g *GoogleFetcher) (*Set, error) {
	set := Default()
	var errs []error
	for r := Role(0); r < numRoles; r++ {
		spec := src.get(r)
		if spec == "" {
			continue
		}
		f, err := resolve(spec, g)
		if err != nil {
			slog.Warn("font unavailable, using embedded font", "role", r, "source", spec, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", r, err))
			continue
		}
		set.fonts[r] = f
		slog.Debug("font loaded", "role", r, "source", spec)
	}
	return set, errors.Join(errs...)
}

// Font returns the parsed font for r.
func (s *Set) Font(r Role) *opentype.Font {
	if r < 0 || r >= numRoles {
		r = Regular
	}
	return s.fonts[r]
}

// resolve loads one font source.
func resolve(spec string, g *GoogleFetcher) (*opentype.Font, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(spec, "google:") {
		if g == nil {
			return nil, fmt.Errorf("google fonts disabled")
		}
		data, err = g.Fetch(spec)
	} else {
		data, err = os.ReadFile(spec)
		if err == nil {
			data, err = maybeConvertWOFF2(spec, data)
		}
	}
	if err != nil {
		return nil, err
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return f, nil
}

// maybeConvertWOFF2 converts WOFF2 font data to SFNT format if needed.
func maybeConvertWOFF2(name string, data []byte) ([]byte, error) {
	if !isWOFF2(name, data) {
		return data, nil
	}
	sfnt, err := tdfont.ToSFNT(data)
	if err != nil {
		return nil, fmt.Errorf("convert woff2 to sfnt: %w", err)
	}
	return sfnt, nil
}

// isWOFF2 checks whether font data is WOFF2 by extension or magic bytes.
func isWOFF2(name string, data []byte) bool {
	if strings.HasSuffix(strings.ToLower(name), ".woff2") {
		return true
	}
	return len(data) >= 4 && string(data[:4]) == "wOF2"
}

// ///////////////////////////////////////////////
// FaceCache
// ///////////////////////////////////////////////

type faceKey struct {
	role Role
	size float64
}

// FaceCache creates faces on demand and keeps them for reuse. It belongs to
// one surface and must not be shared between goroutines.
type FaceCache struct {
	set   *Set
	faces map[faceKey]font.Face
}

// NewFaceCache returns an empty cache over s.
func (s *Set) NewFaceCache() *FaceCache {
	return &FaceCache{set: s, faces: make(map[faceKey]font.Face)}
}

// Face returns the face for role r at size pixels (72 DPI, so points equal
// pixels). Sizes are rounded to a quarter pixel to bound the cache.
func (c *FaceCache) Face(r Role, size float64) (font.Face, error) {
	key := faceKey{role: r, size: math.Round(size*4) / 4}
	if f, ok := c.faces[key]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(c.set.Font(r), &opentype.FaceOptions{
		Size:    key.size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s face at %.2f: %w", r, key.size, err)
	}
	c.faces[key] = f
	return f, nil
}

// Len returns the number of cached faces.
func (c *FaceCache) Len() int { return len(c.faces) }

// Close releases every face.
func (c *FaceCache) Close() error {
	var errs []error
	for k, f := range c.faces {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(c.faces, k)
	}
	return errors.Join(errs...)
}
