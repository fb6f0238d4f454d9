// Package config provides configuration loading and defaults for coverkit.
//
// Configuration is loaded from a TOML file in the user's data directory.
// The package covers logging, font sources, image loading, export defaults,
// the editor store, the preview loop, the HTTP server and custom size
// presets, each with sensible defaults.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"tools.zach/dev/coverkit/internal/atomicfile"
	"tools.zach/dev/coverkit/internal/migrate"
	"tools.zach/dev/coverkit/internal/paths"
	"tools.zach/dev/coverkit/internal/preset"
)

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level application configuration.
type Config struct {
	// Version is the config schema version used for migrations.
	Version int `toml:"version"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
	// Fonts holds the font source for each text role.
	Fonts FontsConfig `toml:"fonts"`
	// Images holds image loading settings.
	Images ImagesConfig `toml:"images"`
	// Export holds export defaults.
	Export ExportConfig `toml:"export"`
	// Editor holds document store settings.
	Editor EditorConfig `toml:"editor"`
	// Preview holds the file-watching preview loop settings.
	Preview PreviewConfig `toml:"preview"`
	// Server holds the HTTP editor settings.
	Server ServerConfig `toml:"server"`
	// Presets declares custom size presets in addition to the built-ins.
	Presets []PresetConfig `toml:"presets,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// FontsConfig holds one font source per text role. A source is empty for the
// embedded Go font, a path to a .ttf, .otf or .woff2 file, or
// "google:Family:Weight".
type FontsConfig struct {
	// SansRegular is used for subtitle, tagline, social links and card labels.
	SansRegular string `toml:"sans_regular"`
	// SansSemibold is used for the experience badge and safe-zone labels.
	SansSemibold string `toml:"sans_semibold"`
	// SansBold is used for the title.
	SansBold string `toml:"sans_bold"`
	// Mono is used for code watermark symbols.
	Mono string `toml:"mono"`
	// CacheDir holds downloaded font files. Relative paths resolve against the data directory.
	CacheDir string `toml:"cache_dir"`
}

// ImagesConfig holds image loading settings.
type ImagesConfig struct {
	// TimeoutSeconds bounds one remote fetch including retries.
	TimeoutSeconds int `toml:"timeout_seconds"`
	// RetryMax is the number of retries for a remote fetch.
	RetryMax int `toml:"retry_max"`
	// MaxBytesMB caps the size of one image.
	MaxBytesMB int `toml:"max_bytes_mb"`
	// SVGSizePx is the raster size for SVG images.
	SVGSizePx int `toml:"svg_size_px"`
	// AssetDirs are glob patterns for directories searched for bundled assets.
	AssetDirs []string `toml:"asset_dirs"`
	// CacheRemote keeps fetched bytes on disk for offline renders.
	CacheRemote bool `toml:"cache_remote"`
}

// ExportConfig holds export defaults used when a flag or request omits them.
type ExportConfig struct {
	// Format is "png" or "jpeg".
	Format string `toml:"format"`
	// Scale is 1 or 2.
	Scale int `toml:"scale"`
	// JPEGQuality is the JPEG quality in [0, 1].
	JPEGQuality float64 `toml:"jpeg_quality"`
	// OutDir is the export directory. Relative paths resolve against the data directory.
	OutDir string `toml:"out_dir"`
}

// EditorConfig holds document store settings.
type EditorConfig struct {
	// SaveDebounceMS delays persistence after the last edit.
	SaveDebounceMS int `toml:"save_debounce_ms"`
	// Document is the document file name inside the data directory.
	Document string `toml:"document"`
}

// PreviewConfig holds the preview loop settings.
type PreviewConfig struct {
	// Output is the preview PNG path. Relative paths resolve against the data directory.
	Output string `toml:"output"`
	// SafeZone draws the avatar safe-zone overlay on the preview.
	SafeZone bool `toml:"safe_zone"`
	// PollIntervalSeconds is the fallback polling interval for document changes.
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
}

// ServerConfig holds HTTP editor settings.
type ServerConfig struct {
	// Listen is the TCP address to bind.
	Listen string `toml:"listen"`
	// Mode is the gin mode: "debug", "release" or "test".
	Mode string `toml:"mode"`
}

// PresetConfig declares a custom size preset.
type PresetConfig struct {
	Key         string           `toml:"key"`
	Name        string           `toml:"name"`
	Width       int              `toml:"width"`
	Height      int              `toml:"height"`
	LargeFormat bool             `toml:"large_format"`
	SafeZones   preset.SafeZones `toml:"safe_zones"`
	Layout      preset.Layout    `toml:"layout"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: migrate.Config.CurrentVersion,
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
		Fonts: FontsConfig{
			CacheDir: paths.FontCacheDir,
		},
		Images: ImagesConfig{
			TimeoutSeconds: 10,
			RetryMax:       2,
			MaxBytesMB:     20,
			SVGSizePx:      128,
			AssetDirs:      []string{paths.AssetsDir},
			CacheRemote:    true,
		},
		Export: ExportConfig{
			Format:      "png",
			Scale:       1,
			JPEGQuality: 0.95,
			OutDir:      paths.ExportsDir,
		},
		Editor: EditorConfig{
			SaveDebounceMS: 500,
			Document:       paths.DocumentFile,
		},
		Preview: PreviewConfig{
			Output:              paths.PreviewFile,
			SafeZone:            true,
			PollIntervalSeconds: 5,
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:7373",
			Mode:   "release",
		},
	}
}

// ///////////////////////////////////////////////
// Example Configuration
// ///////////////////////////////////////////////

// ExampleConfig returns a Config suitable for generating config.default.toml.
func ExampleConfig() *Config {
	return DefaultConfig()
}

// ///////////////////////////////////////////////
// PeekVersion
// ///////////////////////////////////////////////

// PeekVersion reads just the version field from raw TOML bytes.
// Returns 1 if the version field is missing or zero.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil {
		return 1
	}
	if v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads and parses the configuration file from dataDir/config.toml.
// If the file doesn't exist, returns DefaultConfig.
func Load(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, paths.ConfigFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return parse(path, data)
}

// parse decodes data read from path, migrating older schema versions and
// re-saving the migrated file.
func parse(path string, data []byte) (*Config, error) {
	version := PeekVersion(data)
	shouldMigrate := migrate.Config.NeedsMigration(version)
	if shouldMigrate {
		if version < migrate.Config.CurrentVersion {
			if backupErr := os.WriteFile(path+".bak", data, 0o644); backupErr != nil {
				slog.Warn("failed to write config backup", "error", backupErr)
			}
		}
		var migrateErr error
		data, migrateErr = migrate.Config.Upgrade(data, version)
		if migrateErr != nil {
			return nil, fmt.Errorf("migrate config: %w", migrateErr)
		}
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Version = migrate.Config.CurrentVersion

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if shouldMigrate {
		if err := cfg.Save(path); err != nil {
			slog.Warn("failed to save migrated config", "error", err)
		}
	}
	return cfg, nil
}

// WriteDefault writes defaultTOML to dataDir/config.toml unless a config file
// already exists. It reports whether a file was written.
func WriteDefault(dataDir string, defaultTOML []byte) (bool, error) {
	path := filepath.Join(dataDir, paths.ConfigFile)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return false, fmt.Errorf("create data dir: %w", err)
	}
	if err := atomicfile.Write(path, defaultTOML, 0o644); err != nil {
		return false, fmt.Errorf("write default config: %w", err)
	}
	return true, nil
}

// Save writes the config to disk as TOML using atomic file write.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", c.Log.Level)
	}

	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}

	for role, src := range map[string]string{
		"sans_regular":  c.Fonts.SansRegular,
		"sans_semibold": c.Fonts.SansSemibold,
		"sans_bold":     c.Fonts.SansBold,
		"mono":          c.Fonts.Mono,
	} {
		if err := validateFontSource(src); err != nil {
			return fmt.Errorf("invalid fonts.%s: %w", role, err)
		}
	}

	if c.Images.TimeoutSeconds <= 0 {
		return fmt.Errorf("images.timeout_seconds must be > 0, got %d", c.Images.TimeoutSeconds)
	}

	if c.Images.RetryMax < 0 {
		return fmt.Errorf("images.retry_max must be >= 0, got %d", c.Images.RetryMax)
	}

	if c.Images.MaxBytesMB <= 0 {
		return fmt.Errorf("images.max_bytes_mb must be > 0, got %d", c.Images.MaxBytesMB)
	}

	if c.Images.SVGSizePx < 16 || c.Images.SVGSizePx > 2048 {
		return fmt.Errorf("images.svg_size_px must be in [16, 2048], got %d", c.Images.SVGSizePx)
	}

	for _, pattern := range c.Images.AssetDirs {
		if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
			return fmt.Errorf("invalid images.asset_dirs pattern %q", pattern)
		}
	}

	switch c.Export.Format {
	case "png", "jpeg":
	default:
		return fmt.Errorf("invalid export.format %q: must be png or jpeg", c.Export.Format)
	}

	switch c.Export.Scale {
	case 1, 2:
	default:
		return fmt.Errorf("invalid export.scale %d: must be 1 or 2", c.Export.Scale)
	}

	if c.Export.JPEGQuality < 0 || c.Export.JPEGQuality > 1 {
		return fmt.Errorf("export.jpeg_quality must be in [0, 1], got %v", c.Export.JPEGQuality)
	}

	if c.Editor.SaveDebounceMS < 0 {
		return fmt.Errorf("editor.save_debounce_ms must be >= 0, got %d", c.Editor.SaveDebounceMS)
	}

	if c.Editor.Document == "" || filepath.Base(c.Editor.Document) != c.Editor.Document {
		return fmt.Errorf("invalid editor.document %q: must be a plain file name", c.Editor.Document)
	}

	if c.Preview.PollIntervalSeconds <= 0 {
		return fmt.Errorf("preview.poll_interval_seconds must be > 0, got %d", c.Preview.PollIntervalSeconds)
	}

	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid server.mode %q: must be debug, release, or test", c.Server.Mode)
	}

	if _, err := preset.NewRegistry(c.SizePresets()...); err != nil {
		return fmt.Errorf("invalid presets: %w", err)
	}

	return nil
}

// validateFontSource accepts "", a font file path or "google:Family[:Weight]".
func validateFontSource(src string) error {
	switch {
	case src == "":
		return nil
	case strings.HasPrefix(src, "google:"):
		parts := strings.Split(src, ":")
		if len(parts) < 2 || len(parts) > 3 || parts[1] == "" {
			return fmt.Errorf("%q: want google:Family or google:Family:Weight", src)
		}
		return nil
	}
	switch strings.ToLower(filepath.Ext(src)) {
	case ".ttf", ".otf", ".woff2":
		return nil
	default:
		return fmt.Errorf("%q: must be a .ttf, .otf or .woff2 file", src)
	}
}

// ///////////////////////////////////////////////
// Derived Values
// ///////////////////////////////////////////////

// SizePresets converts the [[presets]] entries to [preset.SizeConfig]s.
func (c *Config) SizePresets() []preset.SizeConfig {
	out := make([]preset.SizeConfig, 0, len(c.Presets))
	for _, p := range c.Presets {
		out = append(out, preset.SizeConfig{
			Key:         p.Key,
			Name:        p.Name,
			Width:       p.Width,
			Height:      p.Height,
			LargeFormat: p.LargeFormat,
			SafeZones:   p.SafeZones,
			Layout:      p.Layout,
		})
	}
	return out
}

// ImageTimeout returns the remote image fetch timeout.
func (c *Config) ImageTimeout() time.Duration {
	return time.Duration(c.Images.TimeoutSeconds) * time.Second
}

// ImageMaxBytes returns the per-image size cap in bytes.
func (c *Config) ImageMaxBytes() int64 {
	return int64(c.Images.MaxBytesMB) << 20
}

// SaveDebounce returns the document save debounce.
func (c *Config) SaveDebounce() time.Duration {
	return time.Duration(c.Editor.SaveDebounceMS) * time.Millisecond
}

// PollInterval returns the preview fallback polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Preview.PollIntervalSeconds) * time.Second
}

// AssetDirs expands the asset directory globs. Relative patterns resolve
// against dataDir. Matches that are not directories are skipped.
func (c *Config) AssetDirs(dataDir string) []string {
	var dirs []string
	seen := map[string]bool{}
	for _, pattern := range c.Images.AssetDirs {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(dataDir, pattern)
		}
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			slog.Warn("invalid glob pattern", "pattern", pattern, "error", err)
			continue
		}
		for _, m := range matches {
			if fi, err := os.Stat(m); err != nil || !fi.IsDir() {
				continue
			}
			if !seen[m] {
				seen[m] = true
				dirs = append(dirs, m)
			}
		}
	}
	return dirs
}
