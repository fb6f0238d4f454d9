package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config field.
// The genconfig tool uses [FieldDoc] values to annotate the generated config.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field in the example config.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps TOML field paths (dot-separated, e.g. "export.format") to
// their [FieldDoc] entries.
var ConfigDocs = map[string]FieldDoc{
	// ── Root ──────────────────────────────────────────────────────
	"version": {
		Comment: "Config schema version. Do not edit.",
	},

	// ── Log ──────────────────────────────────────────────────────
	"log": {
		Comment: "Logging configuration",
	},
	"log.level": {
		Comment: "Minimum log level. Options: \"trace\", \"debug\", \"info\", \"warn\", \"error\"",
		Alternatives: []string{
			`level = "debug"`,
			`level = "warn"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Maximum log file size in megabytes before rotation.",
	},

	// ── Fonts ────────────────────────────────────────────────────
	"fonts": {
		Comment: "Font source per text role. Each value is one of:\n  \"\"                       embedded Go font\n  \"/path/to/Font.ttf\"      a .ttf, .otf or .woff2 file\n  \"google:Inter:700\"       downloaded from Google Fonts and cached",
	},
	"fonts.sans_regular": {
		Comment: "Subtitle, tagline, social links and card labels.",
		Alternatives: []string{
			`sans_regular = "google:Inter:400"`,
		},
	},
	"fonts.sans_semibold": {
		Comment: "Experience badge and safe-zone labels.",
	},
	"fonts.sans_bold": {
		Comment: "Title.",
		Alternatives: []string{
			`sans_bold = "google:Inter:700"`,
		},
	},
	"fonts.mono": {
		Comment: "Code watermark symbols.",
		Alternatives: []string{
			`mono = "google:JetBrains Mono:600"`,
		},
	},
	"fonts.cache_dir": {
		Comment: "Where downloaded fonts are kept. Relative to the data directory.",
	},

	// ── Images ───────────────────────────────────────────────────
	"images.timeout_seconds": {
		Comment: "Timeout for one remote image fetch, retries included.",
	},
	"images.retry_max": {
		Comment: "Retries for a failed remote fetch.",
	},
	"images.max_bytes_mb": {
		Comment: "Largest accepted image in megabytes.",
	},
	"images.svg_size_px": {
		Comment: "Raster size for SVG images such as simpleicons.org social icons.",
	},
	"images.asset_dirs": {
		Comment: "Directories searched for bundled assets like \"acode.jpg\".\nRelative to the data directory. Glob patterns supported.",
		Alternatives: []string{
			`# asset_dirs = ["assets", "/home/me/covers/**/img"]`,
		},
	},
	"images.cache_remote": {
		Comment: "Keep fetched images on disk so renders work offline.",
	},

	// ── Export ───────────────────────────────────────────────────
	"export.format": {
		Comment: "Default export format. Options: \"png\", \"jpeg\"",
		Alternatives: []string{
			`format = "jpeg"`,
		},
	},
	"export.scale": {
		Comment: "Default export scale. Options: 1, 2",
		Alternatives: []string{
			`scale = 2`,
		},
	},
	"export.jpeg_quality": {
		Comment: "JPEG quality between 0 and 1.",
	},
	"export.out_dir": {
		Comment: "Export directory. Relative to the data directory.",
	},

	// ── Editor ───────────────────────────────────────────────────
	"editor.save_debounce_ms": {
		Comment: "Milliseconds after the last edit before the document is saved.",
	},
	"editor.document": {
		Comment: "Document file name inside the data directory.",
	},

	// ── Preview ──────────────────────────────────────────────────
	"preview.output": {
		Comment: "Preview image written by `coverkit preview`. Relative to the data directory.",
	},
	"preview.safe_zone": {
		Comment: "Draw the avatar safe-zone overlay on the preview. Exports never include it.",
	},
	"preview.poll_interval_seconds": {
		Comment: "How often to poll the document for changes (seconds). fsnotify is primary,\nthis is the fallback interval.",
	},

	// ── Server ───────────────────────────────────────────────────
	"server.listen": {
		Comment: "Address of the `coverkit serve` editor.",
		Alternatives: []string{
			`listen = "0.0.0.0:7373"`,
		},
	},
	"server.mode": {
		Comment: "HTTP framework mode. Options: \"debug\", \"release\", \"test\"",
		Alternatives: []string{
			`mode = "debug"`,
		},
	},

	// ── Presets ──────────────────────────────────────────────────
	"presets": {
		Comment: "Custom size presets, added after the built-in \"personal\" and \"company\".\nSafe-zone y is measured up from the bottom edge.\n# [[presets]]\n# key = \"twitter\"\n# name = \"Header\"\n# width = 1500\n# height = 500\n# large_format = false\n# [presets.safe_zones.mobile]\n# x = 20\n# y = 0\n# width = 200\n# height = 200\n# [presets.safe_zones.desktop]\n# x = 20\n# y = 0\n# width = 200\n# height = 200\n# [presets.layout]\n# left_padding = 260\n# top_padding = 40\n# right_padding = 60\n# card_height = 300\n# social_y = 300",
	},
}
