// Package trigger decides, once per hook invocation, whether the session has
// reached the point where its memory must be saved or a handoff prepared.
//
// Every decision is derived from the persisted SessionState and a fresh
// usage reading; nothing is assumed about which hook ran before. The
// cooldown marker limits each session to one trigger per window. It is a
// debounce, not a lock: two racing processes may both trigger, which costs a
// duplicate instruction and nothing else.
package trigger

import (
	"errors"

	"go.uber.org/zap"

	"github.com/zxyyang/claude-auto-handoff/internal/budget"
	"github.com/zxyyang/claude-auto-handoff/internal/memory"
	"github.com/zxyyang/claude-auto-handoff/internal/storage"
	"github.com/zxyyang/claude-auto-handoff/internal/usage"
)

// Event is the host lifecycle event that caused an invocation.
type Event string

const (
	EventPostToolUse      Event = "PostToolUse"
	EventUserPromptSubmit Event = "UserPromptSubmit"
	EventStop             Event = "Stop"
	EventPreCompact       Event = "PreCompact"
	EventSessionStart     Event = "SessionStart"
)

// Action is what the engine asks the caller to do.
type Action string

const (
	// ActionNone: emit nothing.
	ActionNone Action = "none"

	// ActionSave: instruct the session to write its memory files.
	ActionSave Action = "save"

	// ActionRestore: inject the saved memory into the new session.
	ActionRestore Action = "restore"

	// ActionHandoff: instruct the session to produce a handoff document.
	ActionHandoff Action = "handoff"
)

// Reasons reported with ActionNone.
const (
	ReasonDisabled       = "disabled"
	ReasonManual         = "manual mode"
	ReasonCooldown       = "cooldown active"
	ReasonAlreadySaved   = "already saved"
	ReasonNoMeasurement  = "no usage measurement"
	ReasonBelowSavePoint = "below save point"
	ReasonInProgress     = "handoff in progress"
	ReasonHandoffFailed  = "previous handoff never completed"
	ReasonBelowSize      = "transcript below threshold"
	ReasonReset          = "state reset"
	ReasonWriteFailed    = "state write failed"
)

// Input is one invocation's view of the session.
type Input struct {
	Event          Event
	SessionID      string
	ProjectPath    string
	TranscriptPath string

	// Source is the SessionStart source (startup, resume, clear, compact).
	Source string
}

// Decision is the outcome of one invocation.
type Decision struct {
	Action  Action `json:"action" yaml:"action"`
	Reason  string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// Status is the session status after the invocation.
	Status storage.Status `json:"status" yaml:"status"`

	SessionID       string           `json:"session_id" yaml:"session_id"`
	ProjectPath     string           `json:"project_path" yaml:"project_path"`
	Threshold       budget.Threshold `json:"threshold" yaml:"threshold"`
	SavePoint       budget.SavePoint `json:"save_point" yaml:"save_point"`
	Usage           string           `json:"usage,omitempty" yaml:"usage,omitempty"`
	Memory          memory.Paths     `json:"memory,omitempty" yaml:"memory,omitempty"`
	Budget          int              `json:"budget,omitempty" yaml:"budget,omitempty"`
	TranscriptBytes int64            `json:"transcript_bytes,omitempty" yaml:"transcript_bytes,omitempty"`
}

// Triggered reports whether the decision asks the caller to emit something.
func (d Decision) Triggered() bool {
	return d.Action != ActionNone
}

// Engine is one trigger model. The two implementations encode different
// recovery semantics and are never mixed within a cycle.
type Engine interface {
	// Evaluate handles PostToolUse, UserPromptSubmit and Stop.
	Evaluate(in Input) (Decision, error)

	// PreCompact saves before the host compacts the context.
	PreCompact(in Input) (Decision, error)

	// SessionStart initializes configuration and resets or restores state.
	SessionStart(in Input) (Decision, error)
}

// Deps are the stores and settings an engine works with.
type Deps struct {
	Config   *storage.ConfigStore
	State    *storage.StateStore
	Cooldown *storage.CooldownGuard
	Layout   memory.Layout
	Logger   *zap.Logger

	// ContextWindow is the window size assumed when no measurement
	// reports one. Zero means budget.DefaultContextTokens.
	ContextWindow int

	// Binary is the command name used in handoff instructions.
	Binary string
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// New returns the engine selected by the trigger configuration.
func New(d Deps) Engine {
	if d.Config.Read().Strategy == storage.StrategyTranscript {
		return &TranscriptEngine{deps: d}
	}
	return &ThresholdEngine{deps: d}
}

// loadConfig reads the trigger configuration, logging anything other than a
// missing file.
func (d Deps) loadConfig() storage.TriggerConfig {
	cfg, err := d.Config.Load()
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		d.logger().Warn("trigger config unreadable, using defaults", zap.Error(err))
	}
	return cfg
}

// loadState reads the session state, logging anything other than a missing
// file.
func (d Deps) loadState() storage.SessionState {
	st, err := d.State.Load()
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		d.logger().Warn("session state unreadable, assuming idle", zap.Error(err))
	}
	return st
}

// markCooldown marks the session; failures only cost dedup, so they are
// logged and otherwise ignored.
func (d Deps) markCooldown(sessionID string) {
	if err := d.Cooldown.MarkTriggered(sessionID); err != nil {
		d.logger().Warn("cooldown marker not written", zap.String("session", sessionID), zap.Error(err))
	}
}

// reading returns the last recorded usage, or a reading taken from the
// transcript when nothing was recorded.
func (d Deps) reading(st storage.SessionState, transcriptPath string) budget.Reading {
	r := usage.FromState(st)
	if r.UsedTokens != nil || r.RemainingPct != nil || transcriptPath == "" {
		return r
	}
	fresh := usage.Measure(usage.Payload{TranscriptPath: transcriptPath}, d.ContextWindow)
	if fresh.TotalTokens == nil {
		fresh.TotalTokens = r.TotalTokens
	}
	return fresh
}

// totalTokens is the best known context window size.
func (d Deps) totalTokens(st storage.SessionState) int {
	if st.TotalTokens != nil && *st.TotalTokens > 0 {
		return *st.TotalTokens
	}
	return d.ContextWindow
}

func none(reason string, st storage.SessionState, in Input) Decision {
	return Decision{
		Action:      ActionNone,
		Reason:      reason,
		Status:      st.Status,
		SessionID:   in.SessionID,
		ProjectPath: in.ProjectPath,
	}
}

// Complete records that the handoff document was produced. Only an
// in-progress handoff moves to completed; it reports whether it did.
func Complete(store *storage.StateStore) (bool, error) {
	st := store.Read()
	if st.Status != storage.StatusInProgress {
		return false, nil
	}
	if _, err := store.Write(st.WithStatus(storage.StatusCompleted)); err != nil {
		return false, err
	}
	return true, nil
}
