package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	rootpkg "tools.zach/dev/coverkit"
	"tools.zach/dev/coverkit/internal/canvas"
	"tools.zach/dev/coverkit/internal/config"
	"tools.zach/dev/coverkit/internal/document"
	"tools.zach/dev/coverkit/internal/fonts"
	"tools.zach/dev/coverkit/internal/imagecache"
	"tools.zach/dev/coverkit/internal/logger"
	"tools.zach/dev/coverkit/internal/preset"
)

// ///////////////////////////////////////////////
// App
// ///////////////////////////////////////////////

// app holds everything a subcommand needs, built once from the data
// directory and its config.
type app struct {
	paths  DataPaths
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer

	presets *preset.Registry
	fonts   *fonts.Set
	images  *imagecache.Cache
	store   *document.Store

	logCloser io.Closer
}

// openApp prepares the data directory, writes the default config on first
// run, loads the config and wires logging, fonts, images, presets and the
// document store.
func openApp(dataDir string, stdout, stderr io.Writer, consoleLevel slog.Level) (*app, error) {
	p := DataPaths{Root: dataDir}
	if err := os.MkdirAll(p.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	wroteDefault, err := config.WriteDefault(p.Root, rootpkg.DefaultConfigTOML)
	if err != nil {
		fmt.Fprintf(stderr, "warning: %v\n", err)
	}

	cfg, err := config.Load(p.Root)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, logCloser, err := logger.NewTeeLogger(p.Log(), logger.ParseLevel(cfg.Log.Level), cfg.Log.MaxSizeMB, stderr, consoleLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(log)
	if wroteDefault {
		slog.Info("wrote default config", "path", p.Config())
	}

	presets, err := preset.NewRegistry(cfg.SizePresets()...)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("size presets: %w", err)
	}

	a := &app{
		paths:     p,
		cfg:       cfg,
		stdout:    stdout,
		stderr:    stderr,
		presets:   presets,
		fonts:     loadFonts(cfg, p),
		images:    imagecache.New(imageOptions(cfg, p)),
		logCloser: logCloser,
	}
	a.store = document.NewStore(
		document.FilePersister{Path: a.documentPath()},
		document.WithDebounce(cfg.SaveDebounce()),
	)
	return a, nil
}

// Close flushes the document and closes the log file.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Warn("failed to save document", "error", err)
		}
	}
	if a.logCloser != nil {
		a.logCloser.Close()
	}
}

// documentPath returns the persisted document file.
func (a *app) documentPath() string {
	return filepath.Join(a.paths.Root, a.cfg.Editor.Document)
}

// exportDir returns the configured export directory.
func (a *app) exportDir() string {
	return a.paths.Resolve(a.cfg.Export.OutDir)
}

// compositor returns a compositor over the shared image cache and fonts.
func (a *app) compositor(opts ...canvas.Option) *canvas.Compositor {
	return canvas.NewCompositor(a.images, a.fonts, a.presets, opts...)
}

// ///////////////////////////////////////////////
// Config Builders
// ///////////////////////////////////////////////

// imageOptions maps the [images] section onto [imagecache.Options].
func imageOptions(cfg *config.Config, p DataPaths) imagecache.Options {
	opts := imagecache.Options{
		Timeout:   cfg.ImageTimeout(),
		RetryMax:  cfg.Images.RetryMax,
		MaxBytes:  cfg.ImageMaxBytes(),
		SVGSize:   cfg.Images.SVGSizePx,
		AssetDirs: cfg.AssetDirs(p.Root),
	}
	if cfg.Images.CacheRemote {
		opts.CacheDir = p.ImageCache()
	}
	return opts
}

// fontSources maps the [fonts] section onto [fonts.Sources].
func fontSources(cfg *config.Config) fonts.Sources {
	return fonts.Sources{
		Regular:  cfg.Fonts.SansRegular,
		Semibold: cfg.Fonts.SansSemibold,
		Bold:     cfg.Fonts.SansBold,
		Mono:     cfg.Fonts.Mono,
	}
}

// loadFonts resolves the configured fonts. Roles that fail keep the embedded
// font; [fonts.Load] logs each failure.
func loadFonts(cfg *config.Config, p DataPaths) *fonts.Set {
	g := fonts.NewGoogleFetcher(p.Resolve(cfg.Fonts.CacheDir), cfg.ImageTimeout(), cfg.Images.RetryMax)
	set, err := fonts.Load(fontSources(cfg), g)
	if err != nil {
		slog.Warn("some fonts fell back to the embedded font", "error", err)
	}
	return set
}
