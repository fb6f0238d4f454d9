package document

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"tools.zach/dev/coverkit/internal/theme"
)

// Change describes what an edit touched.
type Change struct {
	// Field is the top-level JSON key that changed.
	Field string
	// ImagesChanged is set when an image reference was edited, so renderers
	// must reload images even if the ref list looks the same.
	ImagesChanged bool
}

// SocialLinkPatch holds the fields to replace on a social link. Nil fields
// are left unchanged.
type SocialLinkPatch struct {
	Icon    *string `json:"icon,omitempty"`
	Text    *string `json:"text,omitempty"`
	IconURL *Ref    `json:"iconUrl,omitempty"`
}

// AppPatch holds the fields to replace on an app card. Nil fields are left
// unchanged.
type AppPatch struct {
	Name       *string `json:"name,omitempty"`
	Screenshot *Ref    `json:"screenshot,omitempty"`
	Logo       *Ref    `json:"logo,omitempty"`
}

// ///////////////////////////////////////////////
// Fields
// ///////////////////////////////////////////////

// SetField decodes raw into the field named by its JSON key. Numeric fields
// are clamped to their editor ranges and enum fields are validated. Setting
// "theme" selects a preset and drops any custom palette.
func (d *Document) SetField(key string, raw json.RawMessage) (Change, error) {
	c := Change{Field: key}
	var err error
	switch key {
	case "title":
		err = json.Unmarshal(raw, &d.Title)
	case "subtitle":
		err = json.Unmarshal(raw, &d.Subtitle)
	case "tagline":
		err = json.Unmarshal(raw, &d.Tagline)
	case "experience":
		err = json.Unmarshal(raw, &d.Experience)
	case "theme":
		var k string
		if err = json.Unmarshal(raw, &k); err == nil {
			err = d.SelectTheme(k)
		}
	case "customTheme":
		var t *theme.Theme
		if err = json.Unmarshal(raw, &t); err == nil {
			d.CustomTheme = t
			if t != nil {
				d.Theme = theme.Custom
			} else if d.Theme == theme.Custom {
				d.Theme = theme.Default
			}
		}
	case "watermarkStyle":
		var s string
		if err = json.Unmarshal(raw, &s); err == nil {
			if !validStyle(s) {
				return c, fmt.Errorf("invalid watermark style %q", s)
			}
			d.WatermarkStyle = s
		}
	case "watermarkDensity":
		var v float64
		if err = json.Unmarshal(raw, &v); err == nil {
			d.WatermarkDensity = int(math.Round(clampFloat(v, MinWatermarkDensity, MaxWatermarkDensity)))
		}
	case "watermarkOpacity":
		var v float64
		if err = json.Unmarshal(raw, &v); err == nil {
			d.WatermarkOpacity = clampFloat(v, MinWatermarkOpacity, MaxWatermarkOpacity)
		}
	case "canvasSize":
		err = json.Unmarshal(raw, &d.CanvasSize)
	case "showSafeZone":
		err = json.Unmarshal(raw, &d.ShowSafeZone)
	case "safeZoneView":
		var v string
		if err = json.Unmarshal(raw, &v); err == nil {
			if !validView(v) {
				return c, fmt.Errorf("invalid safe zone view %q", v)
			}
			d.SafeZoneView = v
		}
	case "showAppLabels":
		err = json.Unmarshal(raw, &d.ShowAppLabels)
	case "exportScale":
		var v int
		if err = json.Unmarshal(raw, &v); err == nil {
			d.ExportScale = normalizeScale(v)
		}
	case "jpegQuality":
		var v float64
		if err = json.Unmarshal(raw, &v); err == nil {
			d.JPEGQuality = clampFloat(v, 0, 1)
		}
	case "socialLinks":
		var links []SocialLink
		if err = json.Unmarshal(raw, &links); err == nil {
			d.SocialLinks = links
			c.ImagesChanged = true
		}
	case "apps":
		var apps []AppCard
		if err = json.Unmarshal(raw, &apps); err == nil {
			if len(apps) > MaxAppCards {
				return c, ErrTooManyApps
			}
			d.Apps = apps
			d.Normalize()
			c.ImagesChanged = true
		}
	default:
		return c, fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	if err != nil {
		return c, fmt.Errorf("set %s: %w", key, err)
	}
	return c, nil
}

// ///////////////////////////////////////////////
// Theme
// ///////////////////////////////////////////////

// SelectTheme switches to a preset palette and drops any custom palette.
// Selecting [theme.Custom] keeps the existing custom palette, which must
// exist.
func (d *Document) SelectTheme(key string) error {
	if key == theme.Custom {
		if d.CustomTheme == nil {
			return fmt.Errorf("no custom theme to select")
		}
		d.Theme = theme.Custom
		return nil
	}
	if _, ok := theme.Lookup(key); !ok {
		return fmt.Errorf("unknown theme %q", key)
	}
	d.Theme = key
	d.CustomTheme = nil
	return nil
}

// SetThemeColor edits one color. The first edit clones the active palette
// into CustomTheme; later edits only touch the clone.
func (d *Document) SetThemeColor(field, value string) error {
	base := d.ResolvedTheme()
	edited, err := base.WithColor(field, value)
	if err != nil {
		return err
	}
	d.CustomTheme = &edited
	d.Theme = theme.Custom
	return nil
}

// ///////////////////////////////////////////////
// Social Links
// ///////////////////////////////////////////////

// UpdateSocialLink applies p to the link at i.
func (d *Document) UpdateSocialLink(i int, p SocialLinkPatch) (Change, error) {
	c := Change{Field: "socialLinks"}
	if i < 0 || i >= len(d.SocialLinks) {
		return c, fmt.Errorf("social link %d: %w", i, ErrIndexOutOfRange)
	}
	l := &d.SocialLinks[i]
	if p.Icon != nil {
		l.Icon = *p.Icon
	}
	if p.Text != nil {
		l.Text = *p.Text
	}
	if p.IconURL != nil {
		l.IconURL = *p.IconURL
		c.ImagesChanged = true
	}
	return c, nil
}

// AddSocialLink appends link.
func (d *Document) AddSocialLink(link SocialLink) Change {
	d.SocialLinks = append(d.SocialLinks, link)
	return Change{Field: "socialLinks", ImagesChanged: link.IconURL != ""}
}

// RemoveSocialLink removes the link at i.
func (d *Document) RemoveSocialLink(i int) (Change, error) {
	c := Change{Field: "socialLinks"}
	if i < 0 || i >= len(d.SocialLinks) {
		return c, fmt.Errorf("social link %d: %w", i, ErrIndexOutOfRange)
	}
	d.SocialLinks = append(d.SocialLinks[:i:i], d.SocialLinks[i+1:]...)
	return c, nil
}

// ///////////////////////////////////////////////
// Apps
// ///////////////////////////////////////////////

// UpdateApp applies p to the app at i.
func (d *Document) UpdateApp(i int, p AppPatch) (Change, error) {
	c := Change{Field: "apps"}
	if i < 0 || i >= len(d.Apps) {
		return c, fmt.Errorf("app %d: %w", i, ErrIndexOutOfRange)
	}
	a := &d.Apps[i]
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Screenshot != nil {
		a.Screenshot = *p.Screenshot
		c.ImagesChanged = true
	}
	if p.Logo != nil {
		a.Logo = *p.Logo
		c.ImagesChanged = true
	}
	return c, nil
}

// AddApp appends app with a fresh ID and returns the stored card. It fails
// with [ErrTooManyApps] when the document already holds [MaxAppCards].
func (d *Document) AddApp(app AppCard, now time.Time) (AppCard, Change, error) {
	c := Change{Field: "apps"}
	if len(d.Apps) >= MaxAppCards {
		return AppCard{}, c, ErrTooManyApps
	}
	id := now.UnixMilli()
	for _, a := range d.Apps {
		if a.ID >= id {
			id = a.ID + 1
		}
	}
	app.ID = id
	d.Apps = append(d.Apps, app)
	c.ImagesChanged = app.Screenshot != "" || app.Logo != ""
	return app, c, nil
}

// RemoveApp removes the app at i.
func (d *Document) RemoveApp(i int) (Change, error) {
	c := Change{Field: "apps"}
	if i < 0 || i >= len(d.Apps) {
		return c, fmt.Errorf("app %d: %w", i, ErrIndexOutOfRange)
	}
	d.Apps = append(d.Apps[:i:i], d.Apps[i+1:]...)
	return c, nil
}
