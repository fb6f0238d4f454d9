package export

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	atotto "github.com/atotto/clipboard"
	"golang.design/x/clipboard"
)

// ErrNoClipboard is returned when no clipboard backend is configured.
var ErrNoClipboard = errors.New("no clipboard available")

// Clipboard receives PNG bytes.
type Clipboard interface {
	WriteImage(png []byte) error
}

// SystemClipboard writes to the desktop clipboard as an image. When the
// image clipboard cannot be initialised (headless sessions, missing X11) it
// falls back to a data URL as plain text.
type SystemClipboard struct {
	once    sync.Once
	initErr error
}

// WriteImage implements [Clipboard].
func (c *SystemClipboard) WriteImage(png []byte) error {
	c.once.Do(func() { c.initErr = clipboard.Init() })
	if c.initErr == nil {
		clipboard.Write(clipboard.FmtImage, png)
		return nil
	}

	slog.Warn("image clipboard unavailable, copying data URL", "error", c.initErr)
	text := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	if err := atotto.WriteAll(text); err != nil {
		return fmt.Errorf("image clipboard: %v; text clipboard: %w", c.initErr, err)
	}
	return nil
}
