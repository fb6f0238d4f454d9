package paths

import (
	"path/filepath"
	"testing"
)

// ///////////////////////////////////////////////
// Constant Value Tests
// ///////////////////////////////////////////////

func TestConstantValues(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"DataDirRel", DataDirRel, ".coverkit"},
		{"PIDFile", PIDFile, "preview.pid"},
		{"ConfigFile", ConfigFile, "config.toml"},
		{"LogFile", LogFile, "coverkit.log"},
		{"DocumentFile", DocumentFile, "cover.json"},
		{"PreviewFile", PreviewFile, "preview.png"},
		{"ExportsDir", ExportsDir, "exports"},
		{"ImageCacheDir", ImageCacheDir, "image-cache"},
		{"FontCacheDir", FontCacheDir, "fonts"},
		{"BinaryName", BinaryName, "coverkit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

// ///////////////////////////////////////////////
// DataDir Method Tests
// ///////////////////////////////////////////////

func TestDataDirMethods(t *testing.T) {
	root := filepath.Join("home", "user", ".coverkit")
	d := DataDir{Root: root}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"PID", d.PID(), filepath.Join(root, "preview.pid")},
		{"Config", d.Config(), filepath.Join(root, "config.toml")},
		{"Log", d.Log(), filepath.Join(root, "coverkit.log")},
		{"Document", d.Document(), filepath.Join(root, "cover.json")},
		{"Preview", d.Preview(), filepath.Join(root, "preview.png")},
		{"Exports", d.Exports(), filepath.Join(root, "exports")},
		{"ImageCache", d.ImageCache(), filepath.Join(root, "image-cache")},
		{"FontCache", d.FontCache(), filepath.Join(root, "fonts")},
		{"Assets", d.Assets(), filepath.Join(root, "assets")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s() = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestDataDirResolve(t *testing.T) {
	root := t.TempDir()
	d := DataDir{Root: root}
	abs := filepath.Join(root, "elsewhere", "out")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"relative", "exports", filepath.Join(root, "exports")},
		{"absolute", abs, abs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Resolve(tt.in); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
