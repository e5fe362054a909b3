// Package memory locates and reads the per-session memory artifacts written
// after a save trigger, and keeps the append-only observation log.
//
// Three layers exist per session, all under <root>/<project key>/:
//
//	session-<id8>.md       index: what the next session must read first
//	session-<id8>-full.md  detail: the long form the index points into
//	session-<id8>-obs.db   observations: every tool call, captured by hooks
package memory

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// sessionPrefixLen is how much of a session ID names its artifacts.
const sessionPrefixLen = 8

// CharsPerToken converts a token budget into a character cap when memory is
// injected back into a session.
const CharsPerToken = 4

// ErrEmptyMemory is returned when a memory file exists but has no content.
var ErrEmptyMemory = errors.New("memory file is empty")

// DefaultRoot returns ~/.claude/auto-handoff/memory.
func DefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".claude", "auto-handoff", "memory")
	}
	return filepath.Join(home, ".claude", "auto-handoff", "memory")
}

// Layout derives artifact paths from a project path and session ID. The
// mapping is deterministic so every hook process agrees on it.
type Layout struct {
	Root string
}

// Paths are the artifact locations for one session.
type Paths struct {
	Dir          string `json:"dir" yaml:"dir"`
	Index        string `json:"index" yaml:"index"`
	Detail       string `json:"detail" yaml:"detail"`
	Observations string `json:"observations" yaml:"observations"`
}

// ProjectKey flattens a project path into one directory name, the same way
// Claude Code names its per-project directories (/a/b.c -> -a-b-c).
func ProjectKey(projectPath string) string {
	projectPath = filepath.ToSlash(filepath.Clean(projectPath))
	var b strings.Builder
	for _, r := range projectPath {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "-"
	}
	return b.String()
}

// SessionPrefix returns the first eight filename-safe characters of a
// session ID, or "unknown".
func SessionPrefix(sessionID string) string {
	var b strings.Builder
	for _, r := range sessionID {
		if b.Len() == sessionPrefixLen {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}

// For returns the artifact paths for a project and session.
func (l Layout) For(projectPath, sessionID string) Paths {
	dir := filepath.Join(l.Root, ProjectKey(projectPath))
	base := "session-" + SessionPrefix(sessionID)
	return Paths{
		Dir:          dir,
		Index:        filepath.Join(dir, base+".md"),
		Detail:       filepath.Join(dir, base+"-full.md"),
		Observations: filepath.Join(dir, base+"-obs.db"),
	}
}

// ReadIndex reads a memory file for injection into a new session. Content is
// trimmed and capped at budgetTokens*CharsPerToken characters; budgetTokens
// <= 0 means no cap. A missing file returns fs.ErrNotExist and a blank one
// ErrEmptyMemory.
func ReadIndex(path string, budgetTokens int) (string, error) {
	if path == "" {
		return "", fs.ErrNotExist
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyMemory, path)
	}
	if budgetTokens > 0 {
		content = truncateChars(content, budgetTokens*CharsPerToken)
	}
	return content, nil
}

// truncateChars cuts s to at most limit runes, marking the cut.
func truncateChars(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + "\n\n[... truncated]"
		}
		n++
	}
	return s
}
