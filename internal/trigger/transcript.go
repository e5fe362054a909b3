package trigger

import (
	"go.uber.org/zap"

	"github.com/zxyyang/claude-auto-handoff/internal/budget"
	"github.com/zxyyang/claude-auto-handoff/internal/instruct"
	"github.com/zxyyang/claude-auto-handoff/internal/parser"
	"github.com/zxyyang/claude-auto-handoff/internal/storage"
)

// TranscriptEngine asks for a handoff document once the transcript file
// outgrows the threshold. Its cycle is idle -> in_progress -> completed or
// failed -> idle. Failure is inferred: a handoff still in progress after the
// cooldown window is assumed lost and demoted to failed.
type TranscriptEngine struct {
	deps Deps
}

// NewTranscriptEngine creates the transcript engine regardless of config.
func NewTranscriptEngine(d Deps) *TranscriptEngine {
	return &TranscriptEngine{deps: d}
}

// Evaluate implements Engine.
func (e *TranscriptEngine) Evaluate(in Input) (Decision, error) {
	cfg := e.deps.loadConfig()
	st := e.deps.loadState()

	if !cfg.Enabled {
		return none(ReasonDisabled, st, in), nil
	}
	if cfg.Mode == storage.ModeManual {
		return none(ReasonManual, st, in), nil
	}

	recent := e.deps.Cooldown.WasRecentlyTriggered(in.SessionID)

	switch st.Status {
	case storage.StatusInProgress:
		// The handoff belongs to the session that requested it.
		if e.deps.Cooldown.WasRecentlyTriggered(st.SessionID) {
			return none(ReasonInProgress, st, in), nil
		}
		failed, err := e.deps.State.Write(st.WithStatus(storage.StatusFailed))
		if err != nil {
			return none(ReasonInProgress, st, in), err
		}
		e.deps.logger().Warn("handoff never completed, marked failed", zap.String("session", st.SessionID))
		return none(ReasonHandoffFailed, failed, in), nil
	case storage.StatusCompleted, storage.StatusFailed, storage.StatusSaved:
		st = st.WithStatus(storage.StatusIdle)
	}

	if recent {
		return none(ReasonCooldown, st, in), nil
	}

	th := cfg.ParsedThreshold()
	limit := th.Bytes(e.deps.totalTokens(st))
	size := parser.Size(in.TranscriptPath)
	if size == 0 || size < limit {
		d := none(ReasonBelowSize, st, in)
		d.Threshold, d.TranscriptBytes = th, size
		return d, nil
	}

	return e.trigger(in, st, th, size)
}

// PreCompact implements Engine: request a handoff unless one is already
// running for this session.
func (e *TranscriptEngine) PreCompact(in Input) (Decision, error) {
	cfg := e.deps.loadConfig()
	st := e.deps.loadState()

	if !cfg.Enabled {
		return none(ReasonDisabled, st, in), nil
	}
	recent := e.deps.Cooldown.WasRecentlyTriggered(in.SessionID)
	if recent && st.Status == storage.StatusInProgress && st.SessionID == in.SessionID {
		return none(ReasonInProgress, st, in), nil
	}
	return e.trigger(in, st, cfg.ParsedThreshold(), parser.Size(in.TranscriptPath))
}

// SessionStart implements Engine. The transcript model has nothing to
// restore; the state is reset to idle and the old reading dropped.
func (e *TranscriptEngine) SessionStart(in Input) (Decision, error) {
	if _, err := e.deps.Config.Init(); err != nil {
		e.deps.logger().Warn("trigger config not initialized", zap.Error(err))
	}
	st := e.deps.loadState()
	next, err := e.deps.State.Write(st.Reset())
	if err != nil {
		return none(ReasonReset, st, in), err
	}
	return none(ReasonReset, next, in), nil
}

func (e *TranscriptEngine) trigger(in Input, st storage.SessionState, th budget.Threshold, size int64) (Decision, error) {
	e.deps.markCooldown(in.SessionID)

	next := st
	next.Status = storage.StatusInProgress
	next.SessionID = in.SessionID
	if _, err := e.deps.State.Write(next); err != nil {
		return none(ReasonWriteFailed, st, in), err
	}

	cmd := instruct.HandoffCommand(e.deps.Binary, in.ProjectPath)
	d := Decision{
		Action:          ActionHandoff,
		Status:          storage.StatusInProgress,
		SessionID:       in.SessionID,
		ProjectPath:     in.ProjectPath,
		Threshold:       th,
		TranscriptBytes: size,
		Message: instruct.HandoffMessage(instruct.Handoff{
			SizeBytes:   size,
			Command:     cmd,
			ProjectPath: in.ProjectPath,
		}),
	}
	e.deps.logger().Info("handoff triggered", zap.String("session", in.SessionID), zap.Int64("bytes", size))
	return d, nil
}
