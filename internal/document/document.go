// Package document defines the cover document, the single source of truth
// every layer renders from, and the [Store] that edits and persists it.
//
// The persisted form is one JSON object with camelCase keys. Loading merges
// the file over [Defaults]; keys this version does not know are carried in
// [Document.Extra] and written back verbatim.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"tools.zach/dev/coverkit/internal/theme"
)

// MaxAppCards bounds the number of app cards on a cover.
const MaxAppCards = 4

// Watermark styles.
const (
	StyleCode      = "code"
	StyleGeometric = "geometric"
	StyleDots      = "dots"
	StyleBlobs     = "blobs"
	StyleNone      = "none"
)

// Safe-zone views.
const (
	ViewMobile  = "mobile"
	ViewDesktop = "desktop"
	ViewBoth    = "both"
)

// Editor ranges for the numeric fields. Out-of-range values are clamped.
const (
	MinWatermarkDensity = 5
	MaxWatermarkDensity = 30
	MinWatermarkOpacity = 0.02
	MaxWatermarkOpacity = 0.15
	DefaultJPEGQuality  = 0.95
)

var (
	// ErrTooManyApps is returned when adding beyond [MaxAppCards].
	ErrTooManyApps = fmt.Errorf("maximum %d app cards allowed", MaxAppCards)
	// ErrIndexOutOfRange is returned for a list index that does not exist.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrUnknownField is returned by SetField for a key it cannot set.
	ErrUnknownField = errors.New("unknown document field")
)

// Choice is a labelled value shown by editors.
type Choice struct {
	// Value is the stored key.
	Value string `json:"value"`
	// Label is the display name.
	Label string `json:"label"`
}

// WatermarkStyles lists the watermark styles in display order.
var WatermarkStyles = []Choice{
	{StyleCode, "Code Symbols"},
	{StyleGeometric, "Geometric Shapes"},
	{StyleDots, "Dot Grid"},
	{StyleBlobs, "Gradient Blobs"},
	{StyleNone, "None"},
}

// SafeZoneViews lists the safe-zone overlay views in display order.
var SafeZoneViews = []Choice{
	{ViewBoth, "Both"},
	{ViewMobile, "Mobile"},
	{ViewDesktop, "Desktop"},
}

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Ref is an image reference: a bundled asset path, a remote URL or a data
// URL. The empty Ref means "no image" and is persisted as null.
type Ref string

// MarshalJSON encodes the empty Ref as null.
func (r Ref) MarshalJSON() ([]byte, error) {
	if r == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(r))
}

// UnmarshalJSON decodes null as the empty Ref.
func (r *Ref) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*r = Ref(s)
	return nil
}

// SocialLink is one icon and label in the social row.
type SocialLink struct {
	// Icon is a short label for the network, e.g. "github".
	Icon string `json:"icon"`
	// Text is the handle shown next to the icon.
	Text string `json:"text"`
	// IconURL references the icon image.
	IconURL Ref `json:"iconUrl"`
}

// AppCard is one screenshot card.
type AppCard struct {
	// ID is unique within the document and assigned at creation.
	ID int64 `json:"id"`
	// Name is the label under the card.
	Name string `json:"name"`
	// Screenshot references the card image.
	Screenshot Ref `json:"screenshot"`
	// Logo references the small logo drawn before the name.
	Logo Ref `json:"logo"`
}

// Document is the full cover description.
type Document struct {
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle"`
	Tagline    string `json:"tagline"`
	Experience string `json:"experience"`

	SocialLinks []SocialLink `json:"socialLinks"`
	Apps        []AppCard    `json:"apps"`

	// Theme is a preset key, or [theme.Custom] when CustomTheme is in use.
	Theme string `json:"theme"`
	// CustomTheme overrides Theme when non-nil.
	CustomTheme *theme.Theme `json:"customTheme"`

	WatermarkStyle   string  `json:"watermarkStyle"`
	WatermarkDensity int     `json:"watermarkDensity"`
	WatermarkOpacity float64 `json:"watermarkOpacity"`

	// CanvasSize is a size preset key.
	CanvasSize    string `json:"canvasSize"`
	ShowSafeZone  bool   `json:"showSafeZone"`
	SafeZoneView  string `json:"safeZoneView"`
	ShowAppLabels bool   `json:"showAppLabels"`

	ExportScale int     `json:"exportScale"`
	JPEGQuality float64 `json:"jpegQuality"`

	// Extra holds persisted keys this version does not interpret.
	Extra map[string]json.RawMessage `json:"-"`
}

// SimpleIcon returns the simpleicons.org URL for slug in the default icon gray.
func SimpleIcon(slug string) Ref {
	return Ref("https://cdn.simpleicons.org/" + slug + "/94a3b8")
}

// Defaults returns a fresh default document.
func Defaults() Document {
	return Document{
		Title:      "Software Developer",
		Subtitle:   "Cross-platform apps • Open source • Scalable products",
		Tagline:    "Building apps used by millions",
		Experience: "7+ Years Experience",
		SocialLinks: []SocialLink{
			{Icon: "instagram", Text: "ajitkumar.dev", IconURL: SimpleIcon("instagram")},
			{Icon: "github", Text: "deadlyjack", IconURL: SimpleIcon("github")},
			{Icon: "x", Text: "ajitkumar_dev", IconURL: SimpleIcon("x")},
			{Icon: "website", Text: "ajitkumar.dev", IconURL: SimpleIcon("safari")},
		},
		Apps: []AppCard{
			{ID: 1, Name: "Acode Editor", Screenshot: "acode.jpg", Logo: "acode-logo.png"},
			{ID: 2, Name: "Better Keep", Screenshot: "better-keep.jpg", Logo: "betterkeep-logo.png"},
		},
		Theme:            theme.Dark,
		CustomTheme:      nil,
		WatermarkStyle:   StyleCode,
		WatermarkDensity: 20,
		WatermarkOpacity: 0.10,
		CanvasSize:       "personal",
		ShowSafeZone:     true,
		SafeZoneView:     ViewBoth,
		ShowAppLabels:    true,
		ExportScale:      1,
		JPEGQuality:      DefaultJPEGQuality,
	}
}

// NewApp returns the entry the editor adds when asked for a new card.
func NewApp() AppCard {
	return AppCard{Name: "New App"}
}

// NewSocialLink returns the entry the editor adds when asked for a new link.
func NewSocialLink() SocialLink {
	return SocialLink{Icon: "website", Text: "yoursite.com", IconURL: SimpleIcon("safari")}
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	c := d
	c.SocialLinks = append([]SocialLink(nil), d.SocialLinks...)
	c.Apps = append([]AppCard(nil), d.Apps...)
	if d.CustomTheme != nil {
		t := *d.CustomTheme
		c.CustomTheme = &t
	}
	if d.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(d.Extra))
		for k, v := range d.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return c
}

// ResolvedTheme returns the palette the document renders with.
func (d Document) ResolvedTheme() theme.Theme {
	return theme.Resolve(d.Theme, d.CustomTheme)
}

// ImageRefs returns every image reference the document renders, in layer
// order: app screenshots and logos, then social icons. Empty refs are
// skipped.
func (d Document) ImageRefs() []string {
	refs := make([]string, 0, len(d.Apps)*2+len(d.SocialLinks))
	for _, a := range d.Apps {
		if a.Screenshot != "" {
			refs = append(refs, string(a.Screenshot))
		}
		if a.Logo != "" {
			refs = append(refs, string(a.Logo))
		}
	}
	for _, l := range d.SocialLinks {
		if l.IconURL != "" {
			refs = append(refs, string(l.IconURL))
		}
	}
	return refs
}

// ///////////////////////////////////////////////
// JSON
// ///////////////////////////////////////////////

// documentJSON has Document's fields without its methods.
type documentJSON Document

var (
	knownKeysOnce sync.Once
	knownKeys     map[string]bool
)

// jsonKeys returns the set of keys Document encodes.
func jsonKeys() map[string]bool {
	knownKeysOnce.Do(func() {
		knownKeys = make(map[string]bool)
		t := reflect.TypeOf(documentJSON{})
		for i := 0; i < t.NumField(); i++ {
			tag := t.Field(i).Tag.Get("json")
			name, _, _ := strings.Cut(tag, ",")
			if name != "" && name != "-" {
				knownKeys[name] = true
			}
		}
	})
	return knownKeys
}

// UnmarshalJSON decodes over the receiver's current values, so decoding into
// [Defaults] merges. Unknown keys are kept in Extra.
func (d *Document) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	// Lists replace the current ones instead of decoding into their elements.
	if _, ok := raw["socialLinks"]; ok {
		d.SocialLinks = nil
	}
	if _, ok := raw["apps"]; ok {
		d.Apps = nil
	}
	if _, ok := raw["customTheme"]; ok {
		d.CustomTheme = nil
	}
	if err := json.Unmarshal(b, (*documentJSON)(d)); err != nil {
		return err
	}
	known := jsonKeys()
	d.Extra = nil
	for k, v := range raw {
		if known[k] {
			continue
		}
		if d.Extra == nil {
			d.Extra = make(map[string]json.RawMessage)
		}
		d.Extra[k] = v
	}
	return nil
}

// MarshalJSON encodes the known fields plus Extra. Known fields win over an
// Extra entry with the same key.
func (d Document) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(documentJSON(d))
	if err != nil || len(d.Extra) == 0 {
		return known, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(known, &m); err != nil {
		return nil, err
	}
	for k, v := range d.Extra {
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
	return json.Marshal(m)
}

// Parse decodes a persisted document merged over [Defaults] and normalizes it.
func Parse(data []byte) (Document, error) {
	d := Defaults()
	if err := json.Unmarshal(data, &d); err != nil {
		return Defaults(), fmt.Errorf("parse document: %w", err)
	}
	d.Normalize()
	return d, nil
}

// Normalize clamps numeric fields into their editor ranges, repairs enum
// fields, trims the app list to [MaxAppCards] and assigns missing app IDs.
func (d *Document) Normalize() {
	d.WatermarkDensity = clampInt(d.WatermarkDensity, MinWatermarkDensity, MaxWatermarkDensity)
	d.WatermarkOpacity = clampFloat(d.WatermarkOpacity, MinWatermarkOpacity, MaxWatermarkOpacity)
	d.JPEGQuality = clampFloat(d.JPEGQuality, 0, 1)
	d.ExportScale = normalizeScale(d.ExportScale)
	if !validStyle(d.WatermarkStyle) {
		d.WatermarkStyle = StyleNone
	}
	if !validView(d.SafeZoneView) {
		d.SafeZoneView = ViewBoth
	}
	if d.Theme == theme.Custom && d.CustomTheme == nil {
		d.Theme = theme.Default
	}
	if len(d.Apps) > MaxAppCards {
		d.Apps = d.Apps[:MaxAppCards]
	}
	seen := make(map[int64]bool, len(d.Apps))
	var next int64
	for _, a := range d.Apps {
		next = max(next, a.ID)
	}
	for i := range d.Apps {
		if d.Apps[i].ID == 0 || seen[d.Apps[i].ID] {
			next++
			d.Apps[i].ID = next
		}
		seen[d.Apps[i].ID] = true
	}
}

func validStyle(s string) bool {
	for _, o := range WatermarkStyles {
		if o.Value == s {
			return true
		}
	}
	return false
}

func validView(v string) bool {
	switch v {
	case ViewMobile, ViewDesktop, ViewBoth:
		return true
	}
	return false
}

func normalizeScale(s int) int {
	if s >= 2 {
		return 2
	}
	return 1
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func clampFloat(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
