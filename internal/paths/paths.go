// Package paths centralizes file and directory names used across the project.
// All data directory file names are defined here as the single source of truth.
package paths

import "path/filepath"

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names.
const (
	PIDFile       = "preview.pid"
	ConfigFile    = "config.toml"
	LogFile       = "coverkit.log"
	DocumentFile  = "cover.json"
	PreviewFile   = "preview.png"
	ExportsDir    = "exports"
	ImageCacheDir = "image-cache"
	FontCacheDir  = "fonts"
	AssetsDir     = "assets"
)

// Binary and data directory names.
const (
	BinaryName = "coverkit"
	DataDirRel = ".coverkit" // relative to $HOME
)

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// PID returns the full path to the preview PID file.
func (d DataDir) PID() string { return filepath.Join(d.Root, PIDFile) }

// Config returns the full path to the config file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// Document returns the full path to the persisted cover document.
func (d DataDir) Document() string { return filepath.Join(d.Root, DocumentFile) }

// Preview returns the full path to the live preview image.
func (d DataDir) Preview() string { return filepath.Join(d.Root, PreviewFile) }

// Exports returns the default export directory.
func (d DataDir) Exports() string { return filepath.Join(d.Root, ExportsDir) }

// ImageCache returns the directory holding downloaded remote images.
func (d DataDir) ImageCache() string { return filepath.Join(d.Root, ImageCacheDir) }

// FontCache returns the directory holding downloaded and converted fonts.
func (d DataDir) FontCache() string { return filepath.Join(d.Root, FontCacheDir) }

// Assets returns the default bundled-asset directory.
func (d DataDir) Assets() string { return filepath.Join(d.Root, AssetsDir) }

// Resolve returns p unchanged when absolute, otherwise joined onto the root.
// An empty p yields the empty string.
func (d DataDir) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(d.Root, p)
}
