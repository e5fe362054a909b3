package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zxyyang/claude-auto-handoff/embedded"
)

func TestEmbeddedManifest(t *testing.T) {
	manifest, err := ReadHooksManifest(embedded.HooksJSON)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"SessionStart":     "auto-handoff hook session-start",
		"PostToolUse":      "auto-handoff hook post-tool-use",
		"UserPromptSubmit": "auto-handoff hook user-prompt-submit",
		"Stop":             "auto-handoff hook stop",
		"PreCompact":       "auto-handoff hook pre-compact",
	}
	for _, event := range AllEventNames() {
		groups := manifest.Hooks.GetEventGroups(event)
		if len(groups) != 1 || len(groups[0].Hooks) != 1 {
			t.Fatalf("%s: groups = %+v", event, groups)
		}
		if got := groups[0].Hooks[0].Command; got != want[event] {
			t.Errorf("%s command = %q, want %q", event, got, want[event])
		}
	}
	if manifest.StatusLine == nil || manifest.StatusLine.Command != "auto-handoff usage" {
		t.Errorf("statusLine = %+v", manifest.StatusLine)
	}
}

func TestReadHooksManifest_Errors(t *testing.T) {
	if _, err := ReadHooksManifest([]byte("{")); err == nil {
		t.Error("expected parse error")
	}
	if _, err := ReadHooksManifest([]byte(`{"statusLine":{}}`)); err == nil {
		t.Error("expected missing hooks error")
	}
}

func TestIsManagedHookCommand(t *testing.T) {
	tests := []struct {
		cmd  string
		want bool
	}{
		{"auto-handoff hook stop", true},
		{"/usr/local/bin/auto-handoff hook pre-compact", true},
		{"auto-handoff usage", true},
		{"auto-handoff status", false},
		{"ao inject --apply-decay", false},
		{"my-auto-handoff hook stop", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isManagedHookCommand(tt.cmd); got != tt.want {
			t.Errorf("isManagedHookCommand(%q) = %v, want %v", tt.cmd, got, tt.want)
		}
	}
}

func TestMergeStatusLine(t *testing.T) {
	sl := &StatusLine{Type: "command", Command: "auto-handoff usage"}

	settings := map[string]any{}
	if !mergeStatusLine(settings, sl, false) {
		t.Error("empty settings should receive the status line")
	}

	foreign := map[string]any{"statusLine": map[string]any{"type": "command", "command": "starship prompt"}}
	if mergeStatusLine(foreign, sl, false) {
		t.Error("foreign status line must be kept without force")
	}
	if !mergeStatusLine(foreign, sl, true) {
		t.Error("force should replace the status line")
	}
	if got := foreign["statusLine"].(map[string]any)["command"]; got != "auto-handoff usage" {
		t.Errorf("statusLine command = %v", got)
	}
}

func readSettings(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestRunHooksInstall(t *testing.T) {
	home := isolate(t)
	settingsPath := filepath.Join(home, ".claude", "settings.json")
	if err := os.MkdirAll(filepath.Dir(settingsPath), 0755); err != nil {
		t.Fatal(err)
	}
	existing := `{
  "model": "opus",
  "hooks": {
    "Stop": [{"hooks": [{"type": "command", "command": "notify-send done"}]}]
  }
}`
	if err := os.WriteFile(settingsPath, []byte(existing), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := captureStdoutWithError(func() error { return runHooksInstall(nil, nil) })
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Hooks installed: 5/5 events") || !strings.Contains(out, "Backed up") {
		t.Errorf("output = %q", out)
	}

	m := readSettings(t, settingsPath)
	if m["model"] != "opus" {
		t.Error("unrelated settings must be preserved")
	}
	hooks := m["hooks"].(map[string]any)
	stop := hooks["Stop"].([]any)
	if len(stop) != 2 {
		t.Fatalf("Stop groups = %d, want foreign + auto-handoff", len(stop))
	}
	for _, event := range AllEventNames() {
		if !hookGroupContainsManaged(hooks, event) {
			t.Errorf("%s not installed", event)
		}
	}
	if sl, _ := m["statusLine"].(map[string]any); sl["command"] != "auto-handoff usage" {
		t.Errorf("statusLine = %v", m["statusLine"])
	}

	backups, _ := filepath.Glob(settingsPath + ".backup.*")
	if len(backups) != 1 {
		t.Errorf("backups = %v", backups)
	}

	// Second install is refused without --force.
	out, _ = captureStdoutWithError(func() error { return runHooksInstall(nil, nil) })
	if !strings.Contains(out, "already installed") {
		t.Errorf("second install output = %q", out)
	}

	// --force replaces instead of duplicating.
	hooksForce = true
	t.Cleanup(func() { hooksForce = false })
	if _, err := captureStdoutWithError(func() error { return runHooksInstall(nil, nil) }); err != nil {
		t.Fatal(err)
	}
	stop = readSettings(t, settingsPath)["hooks"].(map[string]any)["Stop"].([]any)
	if len(stop) != 2 {
		t.Errorf("Stop groups after --force = %d, want 2", len(stop))
	}
}

func TestRunHooksInstall_DryRun(t *testing.T) {
	home := isolate(t)
	dryRun = true

	out, err := captureStdoutWithError(func() error { return runHooksInstall(nil, nil) })
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "[dry-run] Would write to") {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(home, ".claude", "settings.json")); !os.IsNotExist(err) {
		t.Error("dry run must not write settings")
	}
}

func TestRunHooksShow(t *testing.T) {
	isolate(t)

	out, err := captureStdoutWithError(func() error { return runHooksShow(nil, nil) })
	if err != nil || !strings.Contains(out, "No Claude settings found") {
		t.Fatalf("show before install = %q, %v", out, err)
	}

	if _, err := captureStdoutWithError(func() error { return runHooksInstall(nil, nil) }); err != nil {
		t.Fatal(err)
	}
	out, err = captureStdoutWithError(func() error { return runHooksShow(nil, nil) })
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "5/5 events installed") {
		t.Errorf("show = %q", out)
	}
}
