// Package handoff writes and lists handoff documents: markdown skeletons
// under <project>/.claude/handoffs that the session fills in before its
// context runs out.
package handoff

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"time"
)

// DefaultSlug names documents created without a slug.
const DefaultSlug = "auto-handoff"

// TodoMarker opens every placeholder the session must replace.
const TodoMarker = "[TODO:"

// Dir returns the handoff directory for a project.
func Dir(projectPath string) string {
	return filepath.Join(projectPath, ".claude", "handoffs")
}

var slugStrip = regexp.MustCompile(`[^a-z0-9-]`)

// Slug lowercases s, drops everything outside [a-z0-9-] and trims hyphens.
// An empty result becomes DefaultSlug.
func Slug(s string) string {
	s = slugStrip.ReplaceAllString(strings.ToLower(s), "")
	s = strings.Trim(s, "-")
	if s == "" {
		return DefaultSlug
	}
	return s
}

// Generator writes handoff documents.
type Generator struct {
	// Git reads repository metadata; nil uses the git binary.
	Git GitRunner

	// Now defaults to time.Now.
	Now func() time.Time
}

type docData struct {
	Created  string
	Project  string
	Branch   string
	Commits  []string
	Modified []string
}

var docTmpl = template.Must(template.New("handoff").Parse(`# Handoff: [task title - replace me]

## Session metadata
- Created: {{.Created}}
- Project: {{.Project}}
- Git branch: {{.Branch}}

### Recent commits
{{- if .Commits}}
{{- range .Commits}}
  - {{.}}
{{- end}}
{{- else}}
  - [no recent commits]
{{- end}}

## Current state

[TODO: one paragraph on what is being done, how far it got and where it stopped]

## Important context

[TODO: what the next agent must know; this is the most important section]

## Completed work

### Completed tasks
- [ ] [TODO: list completed tasks]

### Modified files
| File | Change | Reason |
|------|--------|--------|
{{- if .Modified}}
{{- range .Modified}}
| {{.}} | [to fill in] | [to fill in] |
{{- end}}
{{- else}}
| [no modified files detected] | | |
{{- end}}

### Decisions
| Decision | Options considered | Why |
|----------|--------------------|-----|
| [TODO: record key decisions] | | |

## Remaining work

### Next steps (by priority)
1. [TODO: most important next step]
2. [TODO: second priority]
3. [TODO: third priority]

### Blockers and open questions
- [ ] [TODO: list blockers]

## Resuming

### Key files
| File | Purpose |
|------|---------|
| [TODO: add key files] | |

### Pitfalls
- [TODO: things that are easy to get wrong]

### Environment
- [TODO: relevant tools and configuration, no secrets]
`))

// Create writes a new handoff document for projectPath and returns its
// path. The file name is <YYYY-MM-DD-HHMMSS>-<slug>.md in local time.
func (g *Generator) Create(ctx context.Context, projectPath, slug string) (string, error) {
	if projectPath == "" {
		return "", ErrNoProject
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	t := now()

	data := docData{
		Created: t.UTC().Format("2006-01-02 15:04:05"),
		Project: projectPath,
		Branch:  "[not a git repository]",
	}
	if info := ReadGit(ctx, projectPath, g.Git); info != nil {
		data.Branch = info.Branch
		data.Commits = info.Commits
		data.Modified = info.Modified
	}

	var buf bytes.Buffer
	if err := docTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render handoff: %w", err)
	}

	dir := Dir(projectPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create handoff directory: %w", err)
	}
	path := filepath.Join(dir, t.Format("2006-01-02-150405")+"-"+Slug(slug)+".md")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("write handoff: %w", err)
	}
	return path, nil
}
