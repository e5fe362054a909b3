package instruct

import (
	"strings"
	"testing"
)

func TestSaveMessage(t *testing.T) {
	msg := SaveMessage(Save{
		Usage:        UsageLine("56%", "70%"),
		IndexPath:    "/mem/p/session-abc.md",
		DetailPath:   "/mem/p/session-abc-full.md",
		Observations: "/mem/p/session-abc-obs.db",
		BudgetTokens: 56000,
		ProjectPath:  "/work/p",
		SessionID:    "abc",
	})
	for _, want := range []string{
		"used 56%, threshold 70%",
		"/mem/p/session-abc.md",
		"/mem/p/session-abc-full.md",
		"/mem/p/session-abc-obs.db",
		"56000 tokens",
		"Project: /work/p",
		"Session: abc",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("SaveMessage() missing %q:\n%s", want, msg)
		}
	}
}

func TestRestoreContext(t *testing.T) {
	got := RestoreContext("\n# Memory\nstep 3\n")
	if !strings.HasPrefix(got, "[AUTO-HANDOFF RESTORE]") || !strings.HasSuffix(got, "# Memory\nstep 3") {
		t.Errorf("RestoreContext() = %q", got)
	}
}

func TestHandoffMessage(t *testing.T) {
	cmd := HandoffCommand("", "/work/p")
	if cmd != `auto-handoff handoff create --cwd "/work/p"` {
		t.Errorf("HandoffCommand() = %q", cmd)
	}
	msg := HandoffMessage(Handoff{SizeBytes: 1572864, Command: cmd})
	if !strings.Contains(msg, "1536KB") || !strings.Contains(msg, cmd) {
		t.Errorf("HandoffMessage() = %s", msg)
	}
}

func TestUpdateNotice(t *testing.T) {
	got := UpdateNotice("1.0.0", "1.2.0", "https://example.com/r")
	if !strings.Contains(got, "1.2.0 is available (installed: 1.0.0)") || !strings.Contains(got, "https://example.com/r") {
		t.Errorf("UpdateNotice() = %q", got)
	}
	if strings.Contains(UpdateNotice("1", "2", ""), "Release notes") {
		t.Error("empty URL should not render release notes")
	}
}
