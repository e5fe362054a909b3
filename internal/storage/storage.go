// Package storage persists the small amount of state auto-handoff keeps
// between hook invocations: the trigger configuration, the SessionState
// record and per-session cooldown markers.
//
// Every file lives under one per-user cache root and is shared by
// independent processes without locks. Writes go through a temp file and a
// rename so the last writer wins cleanly; readers treat a missing or corrupt
// file as the default value. Nothing here is authoritative: the files only
// reduce duplicate triggers, they never guard against data loss.
package storage

import (
	"encoding/json"
	"path/filepath"
)

// Status is the lifecycle status of a session.
type Status string

const (
	// StatusIdle means no save or handoff is pending.
	StatusIdle Status = "idle"

	// StatusSaved means memory was saved for the session (threshold engine).
	StatusSaved Status = "saved"

	// StatusInProgress means a handoff was requested (transcript engine).
	StatusInProgress Status = "in_progress"

	// StatusCompleted means the handoff document was produced.
	StatusCompleted Status = "completed"

	// StatusFailed means a handoff was requested but never completed.
	StatusFailed Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusSaved, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s ends a transcript handoff cycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// UnmarshalJSON maps unknown statuses to idle.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*s = StatusIdle
		return nil
	}
	*s = Status(raw)
	if !s.Valid() {
		*s = StatusIdle
	}
	return nil
}

// SessionState is the persisted status record. Callers always write a full
// replacement; the store does not merge.
type SessionState struct {
	Status Status `json:"status" yaml:"status"`

	// UsedTokens, TotalTokens and RemainingPct are the latest measurements
	// recorded by the usage reporter. Nil means never measured.
	UsedTokens   *int     `json:"usedTokens,omitempty" yaml:"used_tokens,omitempty"`
	TotalTokens  *int     `json:"totalTokens,omitempty" yaml:"total_tokens,omitempty"`
	RemainingPct *float64 `json:"remainingPct,omitempty" yaml:"remaining_pct,omitempty"`

	// MemoryPath and SessionID identify the memory written by the last trigger.
	MemoryPath string `json:"memoryPath,omitempty" yaml:"memory_path,omitempty"`
	SessionID  string `json:"sessionId,omitempty" yaml:"session_id,omitempty"`

	// TS is the last write in Unix milliseconds.
	TS int64 `json:"ts" yaml:"ts"`
}

// DefaultState is the state assumed when nothing usable is on disk.
func DefaultState() SessionState {
	return SessionState{Status: StatusIdle}
}

// WithStatus returns a copy of s with a new status.
func (s SessionState) WithStatus(status Status) SessionState {
	s.Status = status
	return s
}

// Reset returns s as idle with the usage measurements cleared, so the next
// session starts from its own reading. TotalTokens is kept as the last known
// window size.
func (s SessionState) Reset() SessionState {
	s.Status = StatusIdle
	s.UsedTokens = nil
	s.RemainingPct = nil
	return s
}

// StateStore reads and writes the SessionState file.
type StateStore struct {
	path string
	opts options
}

// NewStateStore creates a store for <dir>/auto-handoff-state.json.
func NewStateStore(dir string, opts ...Option) *StateStore {
	return &StateStore{path: filepath.Join(dir, StateFile), opts: buildOptions(opts)}
}

// Path returns the state file path.
func (s *StateStore) Path() string {
	return s.path
}

// Load returns the persisted state. On any failure it returns DefaultState
// together with the error so callers can log it.
func (s *StateStore) Load() (SessionState, error) {
	var st SessionState
	if err := ReadJSON(s.path, &st); err != nil {
		return DefaultState(), err
	}
	if !st.Status.Valid() {
		st.Status = StatusIdle
	}
	return st, nil
}

// Read is Load without the error.
func (s *StateStore) Read() SessionState {
	st, _ := s.Load() //nolint:errcheck // missing or corrupt state reads as idle
	return st
}

// Write replaces the state file with st, stamping TS with the current time.
// The stamped state is returned.
func (s *StateStore) Write(st SessionState) (SessionState, error) {
	if !st.Status.Valid() {
		st.Status = StatusIdle
	}
	st.TS = nowMillis(s.opts.now())
	return st, WriteJSON(s.path, st)
}
