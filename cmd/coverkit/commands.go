package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"text/tabwriter"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
	"tools.zach/dev/coverkit/internal/canvas"
	"tools.zach/dev/coverkit/internal/config"
	"tools.zach/dev/coverkit/internal/document"
	"tools.zach/dev/coverkit/internal/export"
	"tools.zach/dev/coverkit/internal/logger"
	"tools.zach/dev/coverkit/internal/preview"
	"tools.zach/dev/coverkit/internal/server"
	"tools.zach/dev/coverkit/internal/theme"
	"tools.zach/dev/coverkit/internal/update"
	"tools.zach/dev/coverkit/internal/watch"
)

// ///////////////////////////////////////////////
// Export
// ///////////////////////////////////////////////

// exportOptions applies flag values over the [export] config section. An
// empty format, zero scale or negative quality keeps the config value.
func exportOptions(cfg config.ExportConfig, format string, scale int, quality float64) (export.Options, error) {
	if format == "" {
		format = cfg.Format
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return export.Options{}, err
	}
	opts := export.Options{Format: f, Scale: cfg.Scale, Quality: cfg.JPEGQuality}
	if scale != 0 {
		opts.Scale = scale
	}
	if quality >= 0 {
		opts.Quality = quality
	}
	return opts, nil
}

// seedOptions pins the watermark seed when seed is non-zero.
func seedOptions(seed uint64) []canvas.Option {
	if seed == 0 {
		return nil
	}
	return []canvas.Option{canvas.WithSeed(seed)}
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("export", a.stderr)
	format := fs.String("format", "", "Output format: png or jpeg (default from config)")
	scale := fs.Int("scale", 0, "Scale: 1 or 2 (default from config)")
	quality := fs.Float64("quality", -1, "JPEG quality in [0, 1]; negative uses the config value")
	out := fs.String("out", "", "Output directory (default from config)")
	seed := fs.Uint64("seed", 0, "Watermark seed for reproducible output; 0 varies per run")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts, err := exportOptions(a.cfg.Export, *format, *scale, *quality)
	if err != nil {
		return err
	}
	dir := *out
	if dir == "" {
		dir = a.exportDir()
	}

	exp := export.New(a.compositor(seedOptions(*seed)...), nil)
	path, err := exp.WriteFile(ctx, dir, a.store.Snapshot(), opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Exported %s\n", path)
	return nil
}

func runCopy(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("copy", a.stderr)
	seed := fs.Uint64("seed", 0, "Watermark seed for reproducible output; 0 varies per run")
	if err := fs.Parse(args); err != nil {
		return err
	}

	exp := export.New(a.compositor(seedOptions(*seed)...), &export.SystemClipboard{})
	if err := exp.CopyToClipboard(ctx, a.store.Snapshot()); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	fmt.Fprintln(a.stdout, "Copied to clipboard!")
	return nil
}

// ///////////////////////////////////////////////
// Preview
// ///////////////////////////////////////////////

// runPreview renders the document to the preview file and re-renders
// whenever the document file changes on disk, until interrupted.
func runPreview(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("preview", a.stderr)
	out := fs.String("out", a.paths.Resolve(a.cfg.Preview.Output), "Preview PNG path")
	safeZone := fs.Bool("safe-zone", a.cfg.Preview.SafeZone, "Draw the avatar safe-zone overlay")
	once := fs.Bool("once", false, "Render once and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	inst, err := acquireInstance(a.paths)
	if err != nil {
		return err
	}
	defer inst.release()

	var opts []preview.Option
	if !*safeZone {
		opts = append(opts, preview.WithoutSafeZone())
	}
	write := func(fr *canvas.Frame) {
		if err := preview.WritePNG(*out, fr); err != nil {
			slog.Warn("failed to write preview", "error", err)
			return
		}
		slog.Info("preview updated", "path", *out, "generation", fr.Generation, "duration", fr.Duration)
	}
	f := preview.Follow(ctx, a.store, a.compositor(), write, opts...)
	defer f.Stop()

	if !f.Render(a.store.Snapshot()) && *once {
		return errors.New("render failed, see log")
	}
	fmt.Fprintf(a.stdout, "Preview: %s\n", *out)
	if *once {
		return nil
	}

	w, err := watch.New([]string{a.documentPath()}, a.cfg.PollInterval())
	if err != nil {
		return fmt.Errorf("watch document: %w", err)
	}
	defer w.Close()
	if w.Polling() {
		slog.Info("using polling mode for file watching")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.Events():
			slog.Debug("document changed on disk")
			a.store.Reload()
		}
	}
}

// ///////////////////////////////////////////////
// Serve
// ///////////////////////////////////////////////

// editorURL returns the browser URL for a listen address. Wildcard hosts
// become localhost.
func editorURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen + "/"
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

func runServe(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("serve", a.stderr)
	listen := fs.String("listen", a.cfg.Server.Listen, "Address to listen on")
	baseURL := fs.String("url", "", "Editor URL shown and encoded in the QR code (default derived from -listen)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	gin.SetMode(a.cfg.Server.Mode)
	url := *baseURL
	if url == "" {
		url = editorURL(*listen)
	}

	comp := a.compositor()
	srv := server.New(ctx, a.store, comp, export.New(comp, &export.SystemClipboard{}), a.presets, server.Options{
		BaseURL:   url,
		ExportDir: a.exportDir(),
	})
	defer srv.Close()

	if q, err := qrcode.New(url, qrcode.Low); err == nil {
		fmt.Fprint(a.stdout, q.ToSmallString(false))
	}
	fmt.Fprintf(a.stdout, "Editor: %s\n", url)
	return srv.Run(ctx, *listen)
}

// ///////////////////////////////////////////////
// Document Edits
// ///////////////////////////////////////////////

// setValue sets key from a command-line value. Values that parse as JSON are
// used as-is; anything else, or JSON the field rejects, is set as a string.
func setValue(store *document.Store, key, value string) error {
	if json.Valid([]byte(value)) {
		err := store.SetField(key, json.RawMessage(value))
		if err == nil || errors.Is(err, document.ErrUnknownField) {
			return err
		}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return store.SetField(key, raw)
}

func runSet(_ context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: set key=value [key=value ...]")
	}
	for _, arg := range args {
		key, value, err := splitAssignment(arg)
		if err != nil {
			return err
		}
		if err := setValue(a.store, key, value); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Set %s\n", key)
	}
	return a.store.Flush()
}

func runReset(_ context.Context, a *app, _ []string) error {
	if err := a.store.Reset(); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Document reset to defaults")
	return nil
}

// ///////////////////////////////////////////////
// Listings
// ///////////////////////////////////////////////

func runThemes(_ context.Context, a *app, _ []string) error {
	current := a.store.Snapshot().Theme
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tKEY\tNAME\tBACKGROUND\tTEXT\tACCENT")
	for _, k := range theme.Keys() {
		t, _ := theme.Lookup(k)
		mark := ""
		if k == current {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s → %s\t%s\t%s\n", mark, k, t.Name, t.BgStart, t.BgEnd, t.PrimaryText, t.Accent)
	}
	if current == theme.Custom {
		fmt.Fprintf(tw, "*\t%s\tCustom\t\t\t\n", theme.Custom)
	}
	return tw.Flush()
}

func runPresets(_ context.Context, a *app, _ []string) error {
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tNAME\t1X\t2X\tLARGE")
	for _, p := range a.presets.All() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\n", p.Key, p.Name, p.ScaleLabel(1), p.ScaleLabel(2), p.LargeFormat)
	}
	return tw.Flush()
}

func runLogs(_ context.Context, a *app, args []string) error {
	fs := newFlagSet("logs", a.stderr)
	n := fs.Int("n", 50, "Number of lines")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tail, err := logger.ReadTail(a.paths.Log(), *n)
	if err != nil {
		return fmt.Errorf("read log: %w", err)
	}
	fmt.Fprintln(a.stdout, tail)
	return nil
}

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

func runVersion(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("version", a.stderr)
	check := fs.Bool("check", false, "Check the release manifest for a newer version")
	manifest := fs.String("manifest", "", "Release manifest URL (default set at build time)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ver := resolveVersion()
	fmt.Fprintf(a.stdout, "coverkit %s\n", ver)
	if !*check {
		return nil
	}

	res, err := update.Check(ctx, *manifest, ver)
	switch {
	case errors.Is(err, update.ErrNoManifest):
		fmt.Fprintln(a.stdout, "No release manifest configured")
		return nil
	case err != nil:
		return fmt.Errorf("version check: %w", err)
	case res.Newer:
		fmt.Fprintf(a.stdout, "New version available: %s %s\n", res.Latest, res.URL)
	default:
		fmt.Fprintln(a.stdout, "Up to date")
	}
	return nil
}
