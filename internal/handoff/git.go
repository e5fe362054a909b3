package handoff

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// GitTimeout caps every git invocation.
const GitTimeout = 5 * time.Second

// GitInfo is the repository metadata written into a handoff document.
type GitInfo struct {
	Branch string `json:"branch" yaml:"branch"`

	// Commits are the last five one-line commit summaries, newest first.
	Commits []string `json:"commits,omitempty" yaml:"commits,omitempty"`

	// Modified is the union of unstaged and staged file names.
	Modified []string `json:"modified,omitempty" yaml:"modified,omitempty"`
}

// GitRunner runs git with args in dir and returns its stdout.
type GitRunner func(ctx context.Context, dir string, args ...string) (string, error)

// runGit is the default GitRunner.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, GitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.Output()
	return string(out), err
}

// ReadGit collects branch, recent commits and changed files for dir. It
// returns nil when dir is not a git repository, the branch is detached or
// git is unavailable. Failures of the later commands leave their fields
// empty.
func ReadGit(ctx context.Context, dir string, run GitRunner) *GitInfo {
	if run == nil {
		run = runGit
	}
	out := func(args ...string) string {
		s, err := run(ctx, dir, args...)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}

	branch := out("branch", "--show-current")
	if branch == "" {
		return nil
	}

	info := &GitInfo{Branch: branch}
	info.Commits = splitLines(out("log", "--oneline", "-5", "--no-decorate"))

	seen := make(map[string]bool)
	for _, f := range append(splitLines(out("diff", "--name-only")), splitLines(out("diff", "--name-only", "--cached"))...) {
		if !seen[f] {
			seen[f] = true
			info.Modified = append(info.Modified, f)
		}
	}
	return info
}

func splitLines(s string) []string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
