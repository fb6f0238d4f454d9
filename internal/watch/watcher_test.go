// Tests for the file watcher: construction, event delivery for in-place
// writes and atomic replacement, filtering of unrelated files, close
// semantics and the polling fallback.
package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tools.zach/dev/coverkit/internal/atomicfile"
)

func expectEvent(t *testing.T, w *Watcher, within time.Duration) {
	t.Helper()
	select {
	case <-w.Events():
	case <-time.After(within):
		t.Fatal("timed out waiting for change event")
	}
}

func expectNoEvent(t *testing.T, w *Watcher, within time.Duration) {
	t.Helper()
	select {
	case <-w.Events():
		t.Fatal("unexpected change event")
	case <-time.After(within):
	}
}

// ///////////////////////////////////////////////
// Constructor Tests
// ///////////////////////////////////////////////

func TestNew(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "cover.json")
	os.WriteFile(existing, []byte(`{}`), 0o644)

	tests := []struct {
		name    string
		paths   []string
		wantErr bool
	}{
		{"existing file", []string{existing}, false},
		{"missing file in existing dir", []string{filepath.Join(dir, "later.json")}, false},
		{"two files one dir", []string{existing, filepath.Join(dir, "config.toml")}, false},
		{"no paths", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := New(tt.paths, 0)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer w.Close()
			if w.Events() == nil {
				t.Error("Events() channel is nil")
			}
			if w.pollInterval != DefaultPollInterval {
				t.Errorf("pollInterval = %v", w.pollInterval)
			}
		})
	}
}

func TestNewDedupesDirectories(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{filepath.Join(dir, "a.json"), filepath.Join(dir, "b.toml")}, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if len(w.dirs) != 1 || len(w.files) != 2 {
		t.Errorf("dirs = %v, files = %v", w.dirs, w.files)
	}
}

// ///////////////////////////////////////////////
// Event Tests
// ///////////////////////////////////////////////

func TestWriteTriggersEvent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow watcher test in short mode")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "cover.json")
	os.WriteFile(path, []byte(`{"title":"a"}`), 0o644)

	w, err := New([]string{path}, 100*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	time.Sleep(100 * time.Millisecond)

	os.WriteFile(path, []byte(`{"title":"b"}`), 0o644)
	expectEvent(t, w, 5*time.Second)
}

func TestAtomicReplaceTriggersEvent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow watcher test in short mode")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "cover.json")
	os.WriteFile(path, []byte(`{"title":"a"}`), 0o644)

	w, err := New([]string{path}, 100*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	time.Sleep(100 * time.Millisecond)

	// Two replacements: the second must fire even though the first swapped
	// the inode under the watch.
	for _, body := range []string{`{"title":"b"}`, `{"title":"c"}`} {
		if err := atomicfile.Write(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		expectEvent(t, w, 5*time.Second)
		time.Sleep(50 * time.Millisecond)
		// Drain anything the temp-file churn queued.
		select {
		case <-w.Events():
		default:
		}
	}
}

func TestUnrelatedFilesIgnored(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow watcher test in short mode")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "cover.json")
	os.WriteFile(path, []byte(`{}`), 0o644)

	w, err := New([]string{path}, 100*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if w.Polling() {
		t.Skip("polling mode watches by mod time only")
	}
	time.Sleep(100 * time.Millisecond)

	os.WriteFile(filepath.Join(dir, "coverkit.log"), []byte("noise"), 0o644)
	expectNoEvent(t, w, 300*time.Millisecond)
}

func TestMultipleWritesCoalesce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow watcher test in short mode")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "cover.json")
	os.WriteFile(path, []byte(`{}`), 0o644)

	w, err := New([]string{path}, 100*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 10; i++ {
		os.WriteFile(path, []byte{'{', '}', byte('0' + i)}, 0o644)
	}
	expectEvent(t, w, 5*time.Second)
	if n := len(w.events); n > 1 {
		t.Errorf("buffered events = %d, want at most 1", n)
	}
}

// ///////////////////////////////////////////////
// Close Tests
// ///////////////////////////////////////////////

func TestClose(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow watcher test in short mode")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "cover.json")
	os.WriteFile(path, []byte(`{}`), 0o644)

	w, err := New([]string{path}, 100*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	os.WriteFile(path, []byte(`{"v":2}`), 0o644)
	expectNoEvent(t, w, 500*time.Millisecond)
}

func TestCloseIdempotent(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{filepath.Join(dir, "cover.json")}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

// ///////////////////////////////////////////////
// Poll Tests
// ///////////////////////////////////////////////

// pollingWatcher builds a watcher in polling mode without fsnotify.
func pollingWatcher(paths ...string) *Watcher {
	w := &Watcher{
		files:        make(map[string]bool),
		events:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		pollInterval: 50 * time.Millisecond,
	}
	for _, p := range paths {
		w.files[p] = true
	}
	w.startPolling()
	return w
}

func TestPollDetectsModification(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow polling test in short mode")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "cover.json")
	other := filepath.Join(dir, "config.toml")
	os.WriteFile(path, []byte(`{}`), 0o644)
	os.WriteFile(other, []byte(``), 0o644)

	w := pollingWatcher(path, other)
	defer w.Close()
	if !w.Polling() {
		t.Fatal("Polling() = false")
	}
	time.Sleep(100 * time.Millisecond)

	future := time.Now().Add(time.Second)
	os.Chtimes(other, future, future)
	expectEvent(t, w, 3*time.Second)
}

func TestPollDetectsCreation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow polling test in short mode")
	}

	path := filepath.Join(t.TempDir(), "cover.json")
	w := pollingWatcher(path)
	defer w.Close()

	expectNoEvent(t, w, 200*time.Millisecond)
	os.WriteFile(path, []byte(`{}`), 0o644)
	expectEvent(t, w, 3*time.Second)
}

func TestPollStopsOnClose(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow polling test in short mode")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "cover.json")
	os.WriteFile(path, []byte(`{}`), 0o644)

	w := pollingWatcher(path)
	time.Sleep(100 * time.Millisecond)
	w.Close()
	time.Sleep(100 * time.Millisecond)

	future := time.Now().Add(time.Second)
	os.Chtimes(path, future, future)
	expectNoEvent(t, w, 300*time.Millisecond)
}
