package handoff

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/zxyyang/claude-auto-handoff/internal/worker"
)

// Entry is one handoff document.
type Entry struct {
	Filename string `json:"filename" yaml:"filename"`
	Path     string `json:"path" yaml:"path"`
	Title    string `json:"title" yaml:"title"`

	// Todos counts unreplaced placeholders; 0 means the session filled the
	// document in.
	Todos int `json:"todos" yaml:"todos"`
}

var titleRe = regexp.MustCompile(`(?m)^#\s+(?:Handoff:\s*)?(.+)$`)

// parseEntry reads one document.
func parseEntry(path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	content := string(data)
	name := filepath.Base(path)

	e := Entry{Filename: name, Path: path, Title: name}
	if m := titleRe.FindStringSubmatch(content); m != nil {
		if title := strings.TrimSpace(m[1]); title != "" {
			e.Title = title
		}
	}
	e.Todos = strings.Count(content, TodoMarker)
	return e, nil
}

// List returns the project's handoff documents, newest first. A project
// without a handoff directory has none. Unreadable files are skipped.
func List(ctx context.Context, projectPath string) ([]Entry, error) {
	dir := Dir(projectPath)
	des, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read handoff directory: %w", err)
	}

	var paths []string
	for _, de := range des {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".md") {
			continue
		}
		paths = append(paths, filepath.Join(dir, de.Name()))
	}

	results := worker.NewPool[Entry](0).Process(ctx, paths, func(_ context.Context, p string) (Entry, error) {
		return parseEntry(p)
	})
	entries, _ := worker.Values(results)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// File names start with a sortable timestamp.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Filename > entries[j].Filename
	})
	return entries, nil
}
