// Tests for the config package covering [Load] behavior (defaults, overrides,
// missing files, malformed input, migration, newer versions), validation
// ([Config.Validate]), derived values, serialization round-trips
// ([Config.Save]), custom presets and [ConfigDocs] completeness.

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
)

// ///////////////////////////////////////////////
// Load
// ///////////////////////////////////////////////

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		noFile  bool
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:   "defaults from minimal config",
			config: "version = 1\n",
			check: func(t *testing.T, cfg *Config) {
				t.Helper()
				def := DefaultConfig()
				if cfg.Export.Format != def.Export.Format {
					t.Errorf("Export.Format = %q, want %q", cfg.Export.Format, def.Export.Format)
				}
				if cfg.Editor.SaveDebounceMS != 500 {
					t.Errorf("SaveDebounceMS = %d, want 500", cfg.Editor.SaveDebounceMS)
				}
			},
		},
		{
			name: "user overrides applied",
			config: `
version = 1

[export]
format = "jpeg"
scale = 2
jpeg_quality = 0.8

[server]
listen = "0.0.0.0:9000"
`,
			check: func(t *testing.T, cfg *Config) {
				t.Helper()
				if cfg.Export.Format != "jpeg" {
					t.Errorf("Format = %q, want %q", cfg.Export.Format, "jpeg")
				}
				if cfg.Export.Scale != 2 {
					t.Errorf("Scale = %d, want 2", cfg.Export.Scale)
				}
				if cfg.Export.JPEGQuality != 0.8 {
					t.Errorf("JPEGQuality = %v, want 0.8", cfg.Export.JPEGQuality)
				}
				if cfg.Server.Listen != "0.0.0.0:9000" {
					t.Errorf("Listen = %q", cfg.Server.Listen)
				}
				if cfg.Images.TimeoutSeconds != 10 {
					t.Errorf("TimeoutSeconds = %d, want default 10", cfg.Images.TimeoutSeconds)
				}
			},
		},
		{
			name:   "missing file returns defaults",
			noFile: true,
			check: func(t *testing.T, cfg *Config) {
				t.Helper()
				if !reflect.DeepEqual(cfg, DefaultConfig()) {
					t.Errorf("got %+v, want defaults", cfg)
				}
			},
		},
		{
			name:    "malformed TOML",
			config:  "this is not [valid toml",
			wantErr: true,
		},
		{
			name:    "invalid value rejected",
			config:  "version = 1\n[export]\nscale = 3\n",
			wantErr: true,
		},
		{
			name:    "newer version rejected",
			config:  "version = 99\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if !tt.noFile {
				writeConfig(t, dir, tt.config)
			}
			cfg, err := Load(dir)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

// ///////////////////////////////////////////////
// Migration integration
// ///////////////////////////////////////////////

func TestLoad_Migration(t *testing.T) {
	tests := []struct {
		name        string
		config      string
		wantVersion int
	}{
		{
			name:        "missing version normalized",
			config:      "[export]\nformat = \"png\"\n",
			wantVersion: 1,
		},
		{
			name:        "current version untouched",
			config:      "version = 1",
			wantVersion: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.config)

			cfg, err := Load(dir)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.Version != tt.wantVersion {
				t.Errorf("Version = %d, want %d", cfg.Version, tt.wantVersion)
			}
		})
	}
}

// ///////////////////////////////////////////////
// PeekVersion
// ///////////////////////////////////////////////

func TestPeekVersion(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		{"reads version", "version = 3\n[log]\nlevel = \"info\"\n", 3},
		{"missing version returns 1", "[log]\nlevel = \"info\"\n", 1},
		{"garbage returns 1", "[[[", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PeekVersion([]byte(tt.data)); got != tt.want {
				t.Errorf("PeekVersion() = %d, want %d", got, tt.want)
			}
		})
	}
}

// ///////////////////////////////////////////////
// WriteDefault
// ///////////////////////////////////////////////

func TestWriteDefault(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	body := []byte("version = 1\n")

	wrote, err := WriteDefault(dir, body)
	if err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	if !wrote {
		t.Fatal("expected first call to write")
	}

	wrote, err = WriteDefault(dir, []byte("version = 2\n"))
	if err != nil {
		t.Fatalf("WriteDefault second: %v", err)
	}
	if wrote {
		t.Error("second call overwrote existing config")
	}
	got, _ := os.ReadFile(filepath.Join(dir, "config.toml"))
	if string(got) != string(body) {
		t.Errorf("got %q, want %q", got, body)
	}
}

// ///////////////////////////////////////////////
// ExampleConfig
// ///////////////////////////////////////////////

func TestExampleConfig(t *testing.T) {
	cfg := ExampleConfig()
	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("ExampleConfig does not validate: %v", err)
	}
	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		t.Fatalf("failed to marshal ExampleConfig: %v", err)
	}
}

// ///////////////////////////////////////////////
// ConfigDocs completeness
// ///////////////////////////////////////////////

func TestConfigDocsComplete(t *testing.T) {
	fields := collectTOMLFields(reflect.TypeOf(Config{}), "")
	for _, field := range fields {
		if _, ok := ConfigDocs[field]; !ok {
			t.Errorf("ConfigDocs missing entry for field %q", field)
		}
	}
}

// collectTOMLFields recursively walks a struct type and returns the
// dot-separated TOML key path for every tagged field.
func collectTOMLFields(typ reflect.Type, prefix string) []string {
	var fields []string
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("toml")
		if tag == "" || tag == "-" {
			continue
		}
		if idx := strings.Index(tag, ","); idx != -1 {
			tag = tag[:idx]
		}
		path := tag
		if prefix != "" {
			path = prefix + "." + tag
		}
		if f.Type.Kind() == reflect.Struct {
			fields = append(fields, collectTOMLFields(f.Type, path)...)
		} else {
			fields = append(fields, path)
		}
	}
	return fields
}

// ///////////////////////////////////////////////
// Marshal field order
// ///////////////////////////////////////////////

func TestConfigMarshalFieldOrder(t *testing.T) {
	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(DefaultConfig()); err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := buf.String()

	order := []string{"version", "[log]", "[fonts]", "[images]", "[export]", "[editor]", "[preview]", "[server]"}
	for i := 1; i < len(order); i++ {
		b, a := strings.Index(out, order[i-1]), strings.Index(out, order[i])
		if b < 0 || a < 0 || b > a {
			t.Errorf("expected %q before %q in marshaled output", order[i-1], order[i])
		}
	}
}

// ///////////////////////////////////////////////
// Config.Save round-trip
// ///////////////////////////////////////////////

func TestConfig_Save_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	orig := DefaultConfig()
	orig.Fonts.SansBold = "google:Inter:700"
	orig.Images.AssetDirs = []string{"assets", "more/**/img"}
	orig.Presets = []PresetConfig{twitterPreset()}

	if err := orig.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(loaded, orig) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", loaded, orig)
	}
}

// ///////////////////////////////////////////////
// Validate
// ///////////////////////////////////////////////

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(cfg *Config)
		wantErr bool
	}{
		{"default config passes", func(cfg *Config) {}, false},
		{"invalid log.level", func(cfg *Config) { cfg.Log.Level = "verbose" }, true},
		{"zero max_size_mb", func(cfg *Config) { cfg.Log.MaxSizeMB = 0 }, true},
		{"font file", func(cfg *Config) { cfg.Fonts.SansRegular = "/fonts/Inter.woff2" }, false},
		{"google font", func(cfg *Config) { cfg.Fonts.Mono = "google:JetBrains Mono:600" }, false},
		{"google font no weight", func(cfg *Config) { cfg.Fonts.Mono = "google:Inter" }, false},
		{"google font empty family", func(cfg *Config) { cfg.Fonts.Mono = "google:" }, true},
		{"font wrong extension", func(cfg *Config) { cfg.Fonts.SansBold = "font.png" }, true},
		{"zero timeout", func(cfg *Config) { cfg.Images.TimeoutSeconds = 0 }, true},
		{"negative retry_max", func(cfg *Config) { cfg.Images.RetryMax = -1 }, true},
		{"tiny svg size", func(cfg *Config) { cfg.Images.SVGSizePx = 4 }, true},
		{"bad asset glob", func(cfg *Config) { cfg.Images.AssetDirs = []string{"assets/[a-"} }, true},
		{"export.format gif", func(cfg *Config) { cfg.Export.Format = "gif" }, true},
		{"export.scale 3", func(cfg *Config) { cfg.Export.Scale = 3 }, true},
		{"jpeg_quality above 1", func(cfg *Config) { cfg.Export.JPEGQuality = 1.5 }, true},
		{"negative debounce", func(cfg *Config) { cfg.Editor.SaveDebounceMS = -1 }, true},
		{"document with dir", func(cfg *Config) { cfg.Editor.Document = "sub/cover.json" }, true},
		{"zero poll interval", func(cfg *Config) { cfg.Preview.PollIntervalSeconds = 0 }, true},
		{"server.mode bogus", func(cfg *Config) { cfg.Server.Mode = "prod" }, true},
		{"custom preset", func(cfg *Config) { cfg.Presets = []PresetConfig{twitterPreset()} }, false},
		{"preset shadows builtin", func(cfg *Config) {
			p := twitterPreset()
			p.Key = "personal"
			cfg.Presets = []PresetConfig{p}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.setup(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_EnumPositive(t *testing.T) {
	tests := []struct {
		name  string
		setup func(cfg *Config)
	}{
		{"export.format png", func(cfg *Config) { cfg.Export.Format = "png" }},
		{"export.format jpeg", func(cfg *Config) { cfg.Export.Format = "jpeg" }},
		{"export.scale 1", func(cfg *Config) { cfg.Export.Scale = 1 }},
		{"export.scale 2", func(cfg *Config) { cfg.Export.Scale = 2 }},
		{"server.mode debug", func(cfg *Config) { cfg.Server.Mode = "debug" }},
		{"server.mode release", func(cfg *Config) { cfg.Server.Mode = "release" }},
		{"server.mode test", func(cfg *Config) { cfg.Server.Mode = "test" }},
		{"log.level TRACE", func(cfg *Config) { cfg.Log.Level = "TRACE" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.setup(cfg)
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() returned error for valid enum: %v", err)
			}
		})
	}
}

// ///////////////////////////////////////////////
// Derived Values
// ///////////////////////////////////////////////

func TestDurations(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.ImageTimeout(); got != 10*time.Second {
		t.Errorf("ImageTimeout = %v", got)
	}
	if got := cfg.SaveDebounce(); got != 500*time.Millisecond {
		t.Errorf("SaveDebounce = %v", got)
	}
	if got := cfg.PollInterval(); got != 5*time.Second {
		t.Errorf("PollInterval = %v", got)
	}
	if got := cfg.ImageMaxBytes(); got != 20<<20 {
		t.Errorf("ImageMaxBytes = %d", got)
	}
}

func TestSizePresets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Presets = []PresetConfig{twitterPreset()}
	got := cfg.SizePresets()
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Key != "twitter" || got[0].Width != 1500 || got[0].Layout.CardHeight != 300 {
		t.Errorf("got %+v", got[0])
	}
}

func TestLoad_PresetTable(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
version = 1

[[presets]]
key = "twitter"
name = "Header"
width = 1500
height = 500

[presets.safe_zones.mobile]
x = 20
width = 200
height = 200

[presets.layout]
left_padding = 260
card_height = 300
social_y = 300
`)
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Presets) != 1 {
		t.Fatalf("Presets len = %d", len(cfg.Presets))
	}
	p := cfg.Presets[0]
	if p.SafeZones.Mobile.Width != 200 || p.Layout.LeftPadding != 260 {
		t.Errorf("preset decoded as %+v", p)
	}
}

func TestAssetDirs(t *testing.T) {
	dir := t.TempDir()
	for _, d := range []string{"assets", "packs/a/img", "packs/b/img"} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "packs", "file.img"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Images.AssetDirs = []string{"assets", "packs/**/img", "missing"}
	got := cfg.AssetDirs(dir)

	want := []string{
		filepath.Join(dir, "assets"),
		filepath.Join(dir, "packs", "a", "img"),
		filepath.Join(dir, "packs", "b", "img"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AssetDirs = %v, want %v", got, want)
	}
}

// ///////////////////////////////////////////////
// Helpers
// ///////////////////////////////////////////////

// writeConfig writes a TOML config string to config.toml in dir for use
// by [Load] in test cases.
func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
}

// twitterPreset returns a valid custom preset.
func twitterPreset() PresetConfig {
	p := PresetConfig{Key: "twitter", Name: "Header", Width: 1500, Height: 500}
	p.SafeZones.Mobile.X = 20
	p.SafeZones.Mobile.Width = 200
	p.SafeZones.Mobile.Height = 200
	p.SafeZones.Desktop = p.SafeZones.Mobile
	p.Layout.LeftPadding = 260
	p.Layout.TopPadding = 40
	p.Layout.RightPadding = 60
	p.Layout.CardHeight = 300
	p.Layout.SocialY = 300
	return p
}
