// Package main implements the coverkit command, which edits, previews and
// exports layered social-media cover images.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"

	"tools.zach/dev/coverkit/internal/paths"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via ldflags:
//
//	-X main.version=0.1.0
//
// When ldflags are not set (bare go build), resolveVersion reads the VCS info
// that Go embeds automatically.
var version = "dev"

// resolveVersion returns the build version string. If [version] was set via
// ldflags it is returned as-is; otherwise the embedded VCS revision and dirty
// state produce a "dev+<hash>" tag.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// Default Data Directory
// ///////////////////////////////////////////////

// defaultDataDir returns ~/.coverkit, or ./.coverkit when the home directory
// cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", paths.DataDirRel)
	}
	return filepath.Join(home, paths.DataDirRel)
}

// ///////////////////////////////////////////////
// Commands
// ///////////////////////////////////////////////

// command is one subcommand. Commands with bare set run without loading the
// data directory.
type command struct {
	name    string
	summary string
	bare    bool
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"export":  {name: "export", summary: "Render the cover and write a PNG or JPEG file", run: runExport},
	"copy":    {name: "copy", summary: "Copy the cover to the clipboard as PNG", run: runCopy},
	"preview": {name: "preview", summary: "Keep a preview PNG in sync with the document", run: runPreview},
	"serve":   {name: "serve", summary: "Start the HTTP editor", run: runServe},
	"set":     {name: "set", summary: "Set document fields: set key=value ...", run: runSet},
	"reset":   {name: "reset", summary: "Restore the default document", run: runReset},
	"themes":  {name: "themes", summary: "List color themes", run: runThemes},
	"presets": {name: "presets", summary: "List canvas size presets", run: runPresets},
	"logs":    {name: "logs", summary: "Print the end of the log file", run: runLogs},
	"version": {name: "version", summary: "Print the version", bare: true, run: runVersion},
}

func usage(w io.Writer, global *flag.FlagSet) {
	fmt.Fprintf(w, "Usage: %s [flags] <command> [command flags]\n\nCommands:\n", paths.BinaryName)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-8s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w, "\nFlags:")
	global.SetOutput(w)
	global.PrintDefaults()
}

// newFlagSet returns a subcommand flag set that reports errors instead of
// exiting.
func newFlagSet(name string, w io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(paths.BinaryName+" "+name, flag.ContinueOnError)
	fs.SetOutput(w)
	return fs
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses global flags, dispatches the subcommand and returns the process
// exit code: 0 on success, 1 on failure, 2 on a usage error.
func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet(paths.BinaryName, flag.ContinueOnError)
	global.SetOutput(stderr)
	dataDir := global.String("data-dir", defaultDataDir(), "Data directory for config, document, exports and logs")
	verbose := global.Bool("v", false, "Mirror debug logs to stderr")
	global.Usage = func() { usage(stderr, global) }
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	rest := global.Args()
	if len(rest) == 0 {
		usage(stderr, global)
		return 2
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", rest[0])
		usage(stderr, global)
		return 2
	}

	consoleLevel := slog.LevelWarn
	if *verbose {
		consoleLevel = slog.LevelDebug
	}

	a := &app{paths: DataPaths{Root: *dataDir}, stdout: stdout, stderr: stderr}
	if !cmd.bare {
		var err error
		a, err = openApp(*dataDir, stdout, stderr, consoleLevel)
		if err != nil {
			fmt.Fprintf(stderr, "fatal: %v\n", err)
			return 1
		}
		defer a.Close()
		slog.Debug("coverkit starting", "version", resolveVersion(), "command", cmd.name, "data_dir", *dataDir)
	}

	ctx, stop := signalContext()
	defer stop()

	if err := cmd.run(ctx, a, rest[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "%s %s: %v\n", paths.BinaryName, cmd.name, err)
		return 1
	}
	return 0
}

// signalContext returns a context canceled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := signalChannel()
	go func() {
		select {
		case <-sigCh:
			slog.Info("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// splitAssignment splits "key=value". The value may be empty.
func splitAssignment(arg string) (key, value string, err error) {
	key, value, ok := strings.Cut(arg, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return "", "", fmt.Errorf("expected key=value, got %q", arg)
	}
	return strings.TrimSpace(key), value, nil
}
