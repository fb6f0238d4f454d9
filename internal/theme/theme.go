// Package theme holds the cover color palettes.
//
// Five preset palettes ship with the binary. A document may carry a custom
// palette instead, which takes precedence over the preset key. Presets are
// values: editing a color on a document clones the active palette, so the
// registry itself is never mutated.
package theme

import (
	"errors"
	"fmt"
	"image/color"
)

// Theme keys.
const (
	Dark   = "dark"
	Light  = "light"
	Ocean  = "ocean"
	Sunset = "sunset"
	Forest = "forest"

	// Custom is the sentinel key of a user-edited palette.
	Custom = "custom"

	// Default is used when a key is unknown.
	Default = Dark
)

// Color field names, as they appear in the persisted document.
const (
	FieldBgStart       = "bgStart"
	FieldBgEnd         = "bgEnd"
	FieldPrimaryText   = "primaryText"
	FieldSecondaryText = "secondaryText"
	FieldAccent        = "accent"
)

// ErrUnknownColorField is returned for a color field name that does not exist.
var ErrUnknownColorField = errors.New("unknown theme color field")

// Theme is a five-color palette. Colors are CSS color strings.
type Theme struct {
	// Name is the display name.
	Name string `json:"name"`
	// BgStart is the top-left stop of the background gradient.
	BgStart string `json:"bgStart"`
	// BgEnd is the bottom-right stop of the background gradient.
	BgEnd string `json:"bgEnd"`
	// PrimaryText colors the title.
	PrimaryText string `json:"primaryText"`
	// SecondaryText colors the subtitle, social links and card labels.
	SecondaryText string `json:"secondaryText"`
	// Accent colors the tagline and experience badge.
	Accent string `json:"accent"`
}

// ///////////////////////////////////////////////
// Registry
// ///////////////////////////////////////////////

// order is the display order of the presets.
var order = []string{Dark, Light, Ocean, Sunset, Forest}

// presets is read-only after init; accessors return copies.
var presets = map[string]Theme{
	Dark: {
		Name:          "Dark",
		BgStart:       "#020617",
		BgEnd:         "#0f172a",
		PrimaryText:   "#ffffff",
		SecondaryText: "#94a3b8",
		Accent:        "#38bdf8",
	},
	Light: {
		Name:          "Light",
		BgStart:       "#f8fafc",
		BgEnd:         "#e2e8f0",
		PrimaryText:   "#0f172a",
		SecondaryText: "#475569",
		Accent:        "#0ea5e9",
	},
	Ocean: {
		Name:          "Ocean",
		BgStart:       "#0c4a6e",
		BgEnd:         "#075985",
		PrimaryText:   "#f0f9ff",
		SecondaryText: "#bae6fd",
		Accent:        "#7dd3fc",
	},
	Sunset: {
		Name:          "Sunset",
		BgStart:       "#7c2d12",
		BgEnd:         "#9a3412",
		PrimaryText:   "#fff7ed",
		SecondaryText: "#fed7aa",
		Accent:        "#fb923c",
	},
	Forest: {
		Name:          "Forest",
		BgStart:       "#14532d",
		BgEnd:         "#166534",
		PrimaryText:   "#f0fdf4",
		SecondaryText: "#bbf7d0",
		Accent:        "#4ade80",
	},
}

// Keys returns the preset keys in display order.
func Keys() []string {
	return append([]string(nil), order...)
}

// Lookup returns the preset palette for key.
func Lookup(key string) (Theme, bool) {
	t, ok := presets[key]
	return t, ok
}

// Resolve returns custom when non-nil, else the preset for key, else the
// default preset.
func Resolve(key string, custom *Theme) Theme {
	if custom != nil {
		return *custom
	}
	if t, ok := presets[key]; ok {
		return t
	}
	return presets[Default]
}

// ///////////////////////////////////////////////
// Editing
// ///////////////////////////////////////////////

// Color returns the value of a color field.
func (t Theme) Color(field string) (string, error) {
	switch field {
	case FieldBgStart:
		return t.BgStart, nil
	case FieldBgEnd:
		return t.BgEnd, nil
	case FieldPrimaryText:
		return t.PrimaryText, nil
	case FieldSecondaryText:
		return t.SecondaryText, nil
	case FieldAccent:
		return t.Accent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownColorField, field)
	}
}

// WithColor returns a copy of t with field set to value. The value must be a
// parseable CSS color.
func (t Theme) WithColor(field, value string) (Theme, error) {
	if _, err := ParseColor(value); err != nil {
		return t, err
	}
	switch field {
	case FieldBgStart:
		t.BgStart = value
	case FieldBgEnd:
		t.BgEnd = value
	case FieldPrimaryText:
		t.PrimaryText = value
	case FieldSecondaryText:
		t.SecondaryText = value
	case FieldAccent:
		t.Accent = value
	default:
		return t, fmt.Errorf("%w: %q", ErrUnknownColorField, field)
	}
	return t, nil
}

// ///////////////////////////////////////////////
// Parsed Palette
// ///////////////////////////////////////////////

// Palette is a Theme with its colors parsed for drawing.
type Palette struct {
	BgStart       color.NRGBA
	BgEnd         color.NRGBA
	PrimaryText   color.NRGBA
	SecondaryText color.NRGBA
	Accent        color.NRGBA
}

// Palette parses every color of t. Unparseable colors fall back to the
// matching color of the default preset so a bad custom value never blocks a
// render.
func (t Theme) Palette() Palette {
	def := presets[Default]
	pick := func(v, fallback string) color.NRGBA {
		if c, err := ParseColor(v); err == nil {
			return c
		}
		return MustParseColor(fallback)
	}
	return Palette{
		BgStart:       pick(t.BgStart, def.BgStart),
		BgEnd:         pick(t.BgEnd, def.BgEnd),
		PrimaryText:   pick(t.PrimaryText, def.PrimaryText),
		SecondaryText: pick(t.SecondaryText, def.SecondaryText),
		Accent:        pick(t.Accent, def.Accent),
	}
}
