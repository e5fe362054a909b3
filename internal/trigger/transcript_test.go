package trigger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zxyyang/claude-auto-handoff/internal/storage"
)

// writeTranscript creates a transcript of exactly size bytes.
func writeTranscript(t *testing.T, dir string, size int) string {
	t.Helper()
	path := filepath.Join(dir, "session.jsonl")
	if err := os.WriteFile(path, []byte(strings.Repeat("x", size)), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func transcriptInput(path string) Input {
	return Input{Event: EventStop, SessionID: "s", ProjectPath: "/work/proj", TranscriptPath: path}
}

func TestTranscript_TriggersOnSize(t *testing.T) {
	// 10k -> 10 * 1024 * 8.5 = 87040 bytes
	f := newFixture(t, "10k", storage.StrategyTranscript)
	e := NewTranscriptEngine(f.deps)

	small := writeTranscript(t, f.dir, 87039)
	d := mustEvaluate(t, e, transcriptInput(small))
	if d.Triggered() || d.Reason != ReasonBelowSize || d.TranscriptBytes != 87039 {
		t.Fatalf("below: %+v", d)
	}

	big := writeTranscript(t, f.dir, 87040)
	d = mustEvaluate(t, e, transcriptInput(big))
	if d.Action != ActionHandoff || d.Status != storage.StatusInProgress {
		t.Fatalf("at limit: %+v", d)
	}
	if !strings.Contains(d.Message, "85KB") || !strings.Contains(d.Message, `handoff create --cwd "/work/proj"`) {
		t.Errorf("message:\n%s", d.Message)
	}
	if st := f.deps.State.Read(); st.Status != storage.StatusInProgress || st.SessionID != "s" {
		t.Errorf("state = %+v", st)
	}

	// Second call inside the window: handoff is in progress.
	if d := mustEvaluate(t, e, transcriptInput(big)); d.Triggered() || d.Reason != ReasonInProgress {
		t.Errorf("repeat: %+v", d)
	}
}

func TestTranscript_LegacyMegabytes(t *testing.T) {
	f := newFixture(t, "1.5", storage.StrategyTranscript)
	e := NewTranscriptEngine(f.deps)

	if d := mustEvaluate(t, e, transcriptInput(writeTranscript(t, f.dir, 1572863))); d.Triggered() {
		t.Errorf("one byte short: %+v", d)
	}
	if d := mustEvaluate(t, e, transcriptInput(writeTranscript(t, f.dir, 1572864))); d.Action != ActionHandoff {
		t.Errorf("1.5MB: %+v", d)
	}
}

func TestTranscript_InProgressDemotedToFailed(t *testing.T) {
	f := newFixture(t, "10k", storage.StrategyTranscript)
	e := NewTranscriptEngine(f.deps)
	path := writeTranscript(t, f.dir, 100000)

	if d := mustEvaluate(t, e, transcriptInput(path)); d.Action != ActionHandoff {
		t.Fatal(d)
	}

	f.clock.Advance(storage.CooldownWindow)
	d := mustEvaluate(t, e, transcriptInput(path))
	if d.Triggered() || d.Reason != ReasonHandoffFailed || d.Status != storage.StatusFailed {
		t.Fatalf("expired in_progress: %+v", d)
	}
	if st := f.deps.State.Read(); st.Status != storage.StatusFailed {
		t.Errorf("state = %+v", st)
	}

	// failed resets to idle and the next cycle starts.
	d = mustEvaluate(t, e, transcriptInput(path))
	if d.Action != ActionHandoff {
		t.Errorf("after failed: %+v", d)
	}
}

func TestTranscript_InProgressOwnedByOtherSession(t *testing.T) {
	f := newFixture(t, "10k", storage.StrategyTranscript)
	e := NewTranscriptEngine(f.deps)
	path := writeTranscript(t, f.dir, 100000)

	if d := mustEvaluate(t, e, transcriptInput(path)); d.Action != ActionHandoff {
		t.Fatal(d)
	}

	// Another session, no marker of its own, seconds later.
	f.clock.Advance(10 * time.Second)
	other := transcriptInput(path)
	other.SessionID = "other"
	d := mustEvaluate(t, e, other)
	if d.Triggered() || d.Reason != ReasonInProgress || d.Status != storage.StatusInProgress {
		t.Fatalf("other session: %+v", d)
	}
	if st := f.deps.State.Read(); st.Status != storage.StatusInProgress || st.SessionID != "s" {
		t.Errorf("state = %+v", st)
	}

	// Once the owner's window lapses the handoff is demoted, whoever asks.
	f.clock.Advance(storage.CooldownWindow)
	if d := mustEvaluate(t, e, other); d.Reason != ReasonHandoffFailed {
		t.Errorf("expired owner: %+v", d)
	}
}

func TestTranscript_CompletedStartsNewCycle(t *testing.T) {
	f := newFixture(t, "10k", storage.StrategyTranscript)
	e := NewTranscriptEngine(f.deps)
	path := writeTranscript(t, f.dir, 100000)

	if d := mustEvaluate(t, e, transcriptInput(path)); d.Action != ActionHandoff {
		t.Fatal(d)
	}
	if done, err := Complete(f.deps.State); err != nil || !done {
		t.Fatalf("Complete() = %v, %v", done, err)
	}

	// Still inside the cooldown window: no new trigger.
	if d := mustEvaluate(t, e, transcriptInput(path)); d.Reason != ReasonCooldown || d.Status != storage.StatusIdle {
		t.Errorf("completed within window: %+v", d)
	}

	f.clock.Advance(6 * time.Minute)
	if d := mustEvaluate(t, e, transcriptInput(path)); d.Action != ActionHandoff {
		t.Errorf("completed after window: %+v", d)
	}
}

func TestTranscript_MissingTranscript(t *testing.T) {
	f := newFixture(t, "1k", storage.StrategyTranscript)
	e := NewTranscriptEngine(f.deps)
	d := mustEvaluate(t, e, transcriptInput(filepath.Join(f.dir, "nope.jsonl")))
	if d.Triggered() || d.Reason != ReasonBelowSize {
		t.Errorf("%+v", d)
	}
}

func TestTranscript_PreCompact(t *testing.T) {
	f := newFixture(t, "180k", storage.StrategyTranscript)
	e := NewTranscriptEngine(f.deps)
	path := writeTranscript(t, f.dir, 10)

	d, err := e.PreCompact(transcriptInput(path))
	if err != nil {
		t.Fatal(err)
	}
	if d.Action != ActionHandoff {
		t.Fatalf("pre-compact below size should still hand off: %+v", d)
	}

	d, err = e.PreCompact(transcriptInput(path))
	if err != nil {
		t.Fatal(err)
	}
	if d.Triggered() || d.Reason != ReasonInProgress {
		t.Errorf("second pre-compact: %+v", d)
	}
}

func TestTranscript_SessionStartResets(t *testing.T) {
	f := newFixture(t, "10k", storage.StrategyTranscript)
	e := NewTranscriptEngine(f.deps)
	if _, err := f.deps.State.Write(storage.SessionState{Status: storage.StatusInProgress, SessionID: "s"}); err != nil {
		t.Fatal(err)
	}
	d, err := e.SessionStart(Input{Event: EventSessionStart, SessionID: "s2"})
	if err != nil {
		t.Fatal(err)
	}
	if d.Triggered() || d.Status != storage.StatusIdle || f.deps.State.Read().Status != storage.StatusIdle {
		t.Errorf("%+v", d)
	}
}

func TestTranscript_Disabled(t *testing.T) {
	f := newFixture(t, "1k", storage.StrategyTranscript)
	cfg := f.deps.Config.Read()
	cfg.Enabled = false
	if err := f.deps.Config.Save(cfg); err != nil {
		t.Fatal(err)
	}
	e := NewTranscriptEngine(f.deps)
	path := writeTranscript(t, f.dir, 100000)
	if d := mustEvaluate(t, e, transcriptInput(path)); d.Reason != ReasonDisabled {
		t.Errorf("%+v", d)
	}
	if d, _ := e.PreCompact(transcriptInput(path)); d.Reason != ReasonDisabled {
		t.Errorf("%+v", d)
	}
}
