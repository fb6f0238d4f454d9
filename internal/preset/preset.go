// Package preset defines canvas size presets: pixel dimensions, platform safe
// zones and the layout paddings every layer derives its geometry from.
//
// A [SizeConfig] carries an explicit LargeFormat flag chosen when the preset is
// defined. Layers branch on that flag (through [SizeConfig.Pick]) rather than
// on a width threshold, so adding a preset cannot silently flip the scaling
// of existing ones.
package preset

import (
	"fmt"
	"sync"
)

// Built-in preset keys.
const (
	Personal = "personal"
	Company  = "company"

	// Default is used when a key is unknown.
	Default = Personal
)

// LargeFormatWidth is the width above which the built-in presets are large
// format. Custom presets set LargeFormat explicitly and are not bound to it.
const LargeFormatWidth = 2000

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// SafeZone is a rectangle reserved for a platform overlay such as the profile
// photo. Y is measured upward from the bottom edge of the canvas.
type SafeZone struct {
	// X is the left edge in canvas pixels.
	X float64 `json:"x" toml:"x"`
	// Y is the distance from the canvas bottom to the zone's bottom edge.
	Y float64 `json:"y" toml:"y"`
	// Width is the zone width in pixels.
	Width float64 `json:"width" toml:"width"`
	// Height is the zone height in pixels.
	Height float64 `json:"height" toml:"height"`
}

// CanvasY converts the bottom-up Y into the top-down canvas coordinate of the
// zone's top edge.
func (z SafeZone) CanvasY(canvasHeight float64) float64 {
	return canvasHeight - z.Y - z.Height
}

// FromCanvasY is the inverse of [SafeZone.CanvasY]: it recovers the bottom-up
// Y of a zone of the given height whose top edge sits at canvasY.
func FromCanvasY(canvasY, zoneHeight, canvasHeight float64) float64 {
	return canvasHeight - canvasY - zoneHeight
}

// SafeZones holds the per-device overlay rectangles.
type SafeZones struct {
	// Mobile is the avatar zone as rendered by mobile clients.
	Mobile SafeZone `json:"mobile" toml:"mobile"`
	// Desktop is the avatar zone as rendered by desktop clients.
	Desktop SafeZone `json:"desktop" toml:"desktop"`
}

// Layout holds the anchor values layers position content from.
type Layout struct {
	// LeftPadding is the x of the text column and social row anchor.
	LeftPadding float64 `json:"leftPadding" toml:"left_padding"`
	// TopPadding is the y of the text column.
	TopPadding float64 `json:"topPadding" toml:"top_padding"`
	// RightPadding is the gap between the card row and the right edge.
	RightPadding float64 `json:"rightPadding" toml:"right_padding"`
	// CardHeight is the base app card height with labels shown.
	CardHeight float64 `json:"cardHeight" toml:"card_height"`
	// SocialY is the vertical center line of the social links row.
	SocialY float64 `json:"socialY" toml:"social_y"`
}

// SizeConfig is an immutable canvas preset.
type SizeConfig struct {
	// Key is the registry key, e.g. "personal".
	Key string `json:"key"`
	// Name is the human-readable preset name.
	Name string `json:"name"`
	// Width is the canvas width in pixels.
	Width int `json:"width"`
	// Height is the canvas height in pixels.
	Height int `json:"height"`
	// LargeFormat selects the scaled-up decoration and typography constants.
	LargeFormat bool `json:"largeFormat"`
	// SafeZones are the avatar overlay rectangles.
	SafeZones SafeZones `json:"safeZones"`
	// Layout holds the paddings and anchors.
	Layout Layout `json:"layout"`
}

// Pick returns large for large-format presets and normal otherwise. Every
// size-dependent constant in the renderer goes through Pick.
func (s SizeConfig) Pick(normal, large float64) float64 {
	if s.LargeFormat {
		return large
	}
	return normal
}

// ScaleLabel returns the export option label for scale, e.g. "2x (3168×792)".
func (s SizeConfig) ScaleLabel(scale int) string {
	return fmt.Sprintf("%dx (%d×%d)", scale, s.Width*scale, s.Height*scale)
}

// Validate checks dimensions and that both safe zones fit inside the canvas.
func (s SizeConfig) Validate() error {
	if s.Key == "" {
		return fmt.Errorf("preset key is empty")
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("preset %q: dimensions must be positive, got %dx%d", s.Key, s.Width, s.Height)
	}
	for name, z := range map[string]SafeZone{"mobile": s.SafeZones.Mobile, "desktop": s.SafeZones.Desktop} {
		if z.X < 0 || z.Y < 0 || z.Width < 0 || z.Height < 0 ||
			z.X+z.Width > float64(s.Width) || z.Y+z.Height > float64(s.Height) {
			return fmt.Errorf("preset %q: %s safe zone lies outside the canvas", s.Key, name)
		}
	}
	if s.Layout.CardHeight <= 0 {
		return fmt.Errorf("preset %q: layout.card_height must be > 0", s.Key)
	}
	return nil
}

// ///////////////////////////////////////////////
// Built-ins
// ///////////////////////////////////////////////

// builtins returns fresh copies of the two shipped presets.
func builtins() []SizeConfig {
	return []SizeConfig{
		{
			Key:         Personal,
			Name:        "Personal Profile",
			Width:       1584,
			Height:      396,
			LargeFormat: false,
			SafeZones: SafeZones{
				Mobile:  SafeZone{X: 24, Y: 0, Width: 200, Height: 200},
				Desktop: SafeZone{X: 24, Y: 0, Width: 180, Height: 180},
			},
			Layout: Layout{
				LeftPadding:  240,
				TopPadding:   25,
				RightPadding: 60,
				CardHeight:   260,
				SocialY:      220,
			},
		},
		{
			Key:         Company,
			Name:        "Company Page",
			Width:       4200,
			Height:      700,
			LargeFormat: true,
			SafeZones: SafeZones{
				Mobile:  SafeZone{X: 40, Y: 0, Width: 360, Height: 360},
				Desktop: SafeZone{X: 40, Y: 0, Width: 320, Height: 320},
			},
			Layout: Layout{
				LeftPadding:  450,
				TopPadding:   60,
				RightPadding: 120,
				CardHeight:   480,
				SocialY:      520,
			},
		},
	}
}

// Builtins returns the shipped presets in display order.
func Builtins() []SizeConfig { return builtins() }

// ///////////////////////////////////////////////
// Registry
// ///////////////////////////////////////////////

// Registry maps preset keys to size configs. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	byKey   map[string]SizeConfig
	ordered []string
}

// NewRegistry returns a registry holding the built-ins followed by extra.
// Extra presets must validate and must not reuse a key.
func NewRegistry(extra ...SizeConfig) (*Registry, error) {
	r := &Registry{byKey: make(map[string]SizeConfig)}
	for _, s := range builtins() {
		r.add(s)
	}
	for _, s := range extra {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a custom preset.
func (r *Registry) Register(s SizeConfig) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byKey[s.Key]; dup {
		return fmt.Errorf("preset %q already registered", s.Key)
	}
	r.add(s)
	return nil
}

func (r *Registry) add(s SizeConfig) {
	r.byKey[s.Key] = s
	r.ordered = append(r.ordered, s.Key)
}

// Lookup returns the preset for key.
func (r *Registry) Lookup(key string) (SizeConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byKey[key]
	return s, ok
}

// Resolve returns the preset for key, or the default preset for unknown keys.
// It never fails.
func (r *Registry) Resolve(key string) SizeConfig {
	if s, ok := r.Lookup(key); ok {
		return s
	}
	s, _ := r.Lookup(Default)
	return s
}

// Keys returns the registered keys in registration order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.ordered...)
}

// All returns every preset in registration order.
func (r *Registry) All() []SizeConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SizeConfig, 0, len(r.ordered))
	for _, k := range r.ordered {
		out = append(out, r.byKey[k])
	}
	return out
}
