package storage

import (
	"os"
	"path/filepath"
	"time"
)

// CooldownWindow is how long a trigger suppresses further triggers for the
// same session.
const CooldownWindow = 300 * time.Second

type marker struct {
	TS int64 `json:"ts"`
}

// CooldownGuard is a per-session debounce backed by a timestamp file.
//
// It is not a lock. Two processes can both observe "not triggered" and both
// fire; that duplicate is accepted. A missing or unreadable marker always
// reads as "not recently triggered" so a broken marker never blocks a
// session.
type CooldownGuard struct {
	dir  string
	opts options
}

// NewCooldownGuard creates a guard storing markers in dir.
func NewCooldownGuard(dir string, opts ...Option) *CooldownGuard {
	return &CooldownGuard{dir: dir, opts: buildOptions(opts)}
}

// MarkerPath returns the marker file for sessionID.
func (g *CooldownGuard) MarkerPath(sessionID string) string {
	return filepath.Join(g.dir, markerPrefix+SanitizeID(sessionID)+markerSuffix)
}

// WasRecentlyTriggered reports whether sessionID fired within the window.
func (g *CooldownGuard) WasRecentlyTriggered(sessionID string) bool {
	return g.Remaining(sessionID) > 0
}

// Remaining returns how much of the cooldown window is left, or 0.
func (g *CooldownGuard) Remaining(sessionID string) time.Duration {
	var m marker
	if err := ReadJSON(g.MarkerPath(sessionID), &m); err != nil {
		return 0
	}
	if m.TS <= 0 {
		return 0
	}
	elapsed := g.opts.now().Sub(time.UnixMilli(m.TS))
	if elapsed >= CooldownWindow {
		return 0
	}
	if elapsed < 0 {
		// marker from the future: treat as just written
		return CooldownWindow
	}
	return CooldownWindow - elapsed
}

// MarkTriggered overwrites the marker with the current time. Errors are
// returned for logging only; callers proceed either way.
func (g *CooldownGuard) MarkTriggered(sessionID string) error {
	return WriteJSON(g.MarkerPath(sessionID), marker{TS: nowMillis(g.opts.now())})
}

// Clear removes the marker for sessionID.
func (g *CooldownGuard) Clear(sessionID string) error {
	err := os.Remove(g.MarkerPath(sessionID))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
