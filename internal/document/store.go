package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"tools.zach/dev/coverkit/internal/atomicfile"
)

// ///////////////////////////////////////////////
// Events
// ///////////////////////////////////////////////

// EventKind classifies a store notification.
type EventKind int

const (
	// FieldChanged is sent after a top-level field was set.
	FieldChanged EventKind = iota
	// SocialLinksChanged is sent after a social link was added, edited or removed.
	SocialLinksChanged
	// AppsChanged is sent after an app card was added, edited or removed.
	AppsChanged
	// ThemeChanged is sent after a theme selection or color edit.
	ThemeChanged
	// Reloaded is sent after the document was replaced from disk.
	Reloaded
	// ResetDone is sent after the document was reset to defaults.
	ResetDone
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case FieldChanged:
		return "field"
	case SocialLinksChanged:
		return "social_links"
	case AppsChanged:
		return "apps"
	case ThemeChanged:
		return "theme"
	case Reloaded:
		return "reloaded"
	case ResetDone:
		return "reset"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is delivered to listeners after every successful mutation.
type Event struct {
	Kind EventKind
	// Field is the top-level JSON key that changed, if any.
	Field string
	// ImagesChanged tells renderers to force an image reload.
	ImagesChanged bool
	// Doc is a snapshot taken right after the mutation.
	Doc Document
}

// Listener receives store events. Listeners run synchronously on the
// mutating goroutine, in subscription order, after the store lock is
// released.
type Listener func(Event)

// ///////////////////////////////////////////////
// Persistence
// ///////////////////////////////////////////////

// Persister stores the encoded document.
type Persister interface {
	// Load returns the stored bytes, or nil when nothing is stored.
	Load() ([]byte, error)
	// Save replaces the stored bytes.
	Save(data []byte) error
	// Clear removes the stored bytes.
	Clear() error
}

// FilePersister keeps the document in one JSON file.
type FilePersister struct {
	Path string
}

// Load reads the file. A missing file is not an error.
func (p FilePersister) Load() ([]byte, error) {
	data, err := os.ReadFile(p.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// Save writes the file atomically.
func (p FilePersister) Save(data []byte) error {
	return atomicfile.Write(p.Path, data, 0o644)
}

// Clear removes the file. A missing file is not an error.
func (p FilePersister) Clear() error {
	if err := os.Remove(p.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ///////////////////////////////////////////////
// Store
// ///////////////////////////////////////////////

// DefaultDebounce is the delay between the last edit and the save.
const DefaultDebounce = 500 * time.Millisecond

// Store owns the current document. Every mutation works on a copy, commits
// it, notifies listeners and schedules a debounced save. Persistence
// failures are logged; the in-memory document stays authoritative.
type Store struct {
	mu        sync.Mutex
	doc       Document
	listeners []subscription
	nextSub   int
	timer     *time.Timer
	dirty     bool
	seq       uint64
	closed    bool

	saveMu   sync.Mutex
	savedSeq uint64

	persist  Persister
	debounce time.Duration
	now      func() time.Time
}

type subscription struct {
	id int
	fn Listener
}

// Option configures a [Store].
type Option func(*Store)

// WithDebounce sets the save debounce. Zero saves on the next tick.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) { s.debounce = d }
}

// WithClock sets the clock used for app IDs.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore loads the persisted document from p, merged over defaults. Load
// failures are logged and yield defaults.
func NewStore(p Persister, opts ...Option) *Store {
	s := &Store{
		persist:  p,
		debounce: DefaultDebounce,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.doc = s.load()
	return s
}

// load reads and parses the persisted document.
func (s *Store) load() Document {
	data, err := s.persist.Load()
	if err != nil {
		slog.Warn("failed to load document, using defaults", "error", err)
		return Defaults()
	}
	if data == nil {
		return Defaults()
	}
	d, err := Parse(data)
	if err != nil {
		slog.Warn("failed to parse document, using defaults", "error", err)
	}
	return d
}

// Snapshot returns a deep copy of the current document.
func (s *Store) Snapshot() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.listeners = append(s.listeners, subscription{id: id, fn: l})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// apply runs edit on a copy of the document, commits it on success,
// notifies listeners and schedules a save.
func (s *Store) apply(kind EventKind, edit func(d *Document) (Change, error)) error {
	s.mu.Lock()
	next := s.doc.Clone()
	c, err := edit(&next)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.doc = next
	ev := Event{Kind: kind, Field: c.Field, ImagesChanged: c.ImagesChanged, Doc: next.Clone()}
	listeners := append([]subscription(nil), s.listeners...)
	s.scheduleSaveLocked()
	s.mu.Unlock()

	slog.Debug("document changed", "kind", kind, "field", c.Field, "images_changed", c.ImagesChanged)
	for _, l := range listeners {
		l.fn(ev)
	}
	return nil
}

// scheduleSaveLocked (re)starts the debounce timer. s.mu must be held.
func (s *Store) scheduleSaveLocked() {
	s.dirty = true
	s.seq++
	if s.closed {
		return
	}
	if s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, func() { _ = s.Flush() })
		return
	}
	s.timer.Reset(s.debounce)
}

// SetField sets one top-level field from its JSON value.
func (s *Store) SetField(key string, raw json.RawMessage) error {
	kind := FieldChanged
	switch key {
	case "theme", "customTheme":
		kind = ThemeChanged
	case "socialLinks":
		kind = SocialLinksChanged
	case "apps":
		kind = AppsChanged
	}
	return s.apply(kind, func(d *Document) (Change, error) {
		return d.SetField(key, raw)
	})
}

// SelectTheme switches to a preset palette.
func (s *Store) SelectTheme(key string) error {
	return s.apply(ThemeChanged, func(d *Document) (Change, error) {
		return Change{Field: "theme"}, d.SelectTheme(key)
	})
}

// SetThemeColor edits one palette color, cloning the active preset on the
// first edit.
func (s *Store) SetThemeColor(field, value string) error {
	return s.apply(ThemeChanged, func(d *Document) (Change, error) {
		return Change{Field: "customTheme"}, d.SetThemeColor(field, value)
	})
}

// UpdateSocialLink patches the social link at i.
func (s *Store) UpdateSocialLink(i int, p SocialLinkPatch) error {
	return s.apply(SocialLinksChanged, func(d *Document) (Change, error) {
		return d.UpdateSocialLink(i, p)
	})
}

// AddSocialLink appends link.
func (s *Store) AddSocialLink(link SocialLink) error {
	return s.apply(SocialLinksChanged, func(d *Document) (Change, error) {
		return d.AddSocialLink(link), nil
	})
}

// RemoveSocialLink removes the social link at i.
func (s *Store) RemoveSocialLink(i int) error {
	return s.apply(SocialLinksChanged, func(d *Document) (Change, error) {
		return d.RemoveSocialLink(i)
	})
}

// UpdateApp patches the app card at i.
func (s *Store) UpdateApp(i int, p AppPatch) error {
	return s.apply(AppsChanged, func(d *Document) (Change, error) {
		return d.UpdateApp(i, p)
	})
}

// AddApp appends app with a fresh ID and returns the stored card.
func (s *Store) AddApp(app AppCard) (AppCard, error) {
	var added AppCard
	err := s.apply(AppsChanged, func(d *Document) (Change, error) {
		a, c, err := d.AddApp(app, s.now())
		added = a
		return c, err
	})
	return added, err
}

// RemoveApp removes the app card at i.
func (s *Store) RemoveApp(i int) error {
	return s.apply(AppsChanged, func(d *Document) (Change, error) {
		return d.RemoveApp(i)
	})
}

// Replace swaps in doc, for example after the file changed on disk. The
// replacement is not saved back.
func (s *Store) Replace(doc Document) {
	s.mu.Lock()
	s.doc = doc.Clone()
	ev := Event{Kind: Reloaded, ImagesChanged: true, Doc: doc.Clone()}
	listeners := append([]subscription(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l.fn(ev)
	}
}

// Reload re-reads the persisted document and replaces the current one.
func (s *Store) Reload() {
	s.Replace(s.load())
}

// Reset clears storage, restores defaults and notifies listeners. A pending
// save is dropped.
func (s *Store) Reset() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.dirty = false
	s.seq++
	seq := s.seq
	s.doc = Defaults()
	ev := Event{Kind: ResetDone, ImagesChanged: true, Doc: s.doc.Clone()}
	listeners := append([]subscription(nil), s.listeners...)
	s.mu.Unlock()

	// Saves queued before the reset must not resurrect the old document.
	s.saveMu.Lock()
	s.savedSeq = max(s.savedSeq, seq)
	err := s.persist.Clear()
	s.saveMu.Unlock()
	if err != nil {
		slog.Warn("failed to clear document", "error", err)
	}

	for _, l := range listeners {
		l.fn(ev)
	}
	if err != nil {
		return fmt.Errorf("clear document: %w", err)
	}
	return nil
}

// Flush saves the document now if it changed since the last save.
func (s *Store) Flush() error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.dirty = false
	seq := s.seq
	data, err := json.MarshalIndent(s.doc, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if seq <= s.savedSeq {
		return nil
	}
	if err := s.persist.Save(data); err != nil {
		slog.Warn("failed to save document", "error", err)
		s.mu.Lock()
		if s.seq == seq {
			s.dirty = true
		}
		s.mu.Unlock()
		return fmt.Errorf("save document: %w", err)
	}
	s.savedSeq = seq
	return nil
}

// Close flushes a pending save and stops scheduling new ones.
func (s *Store) Close() error {
	err := s.Flush()
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	return err
}
