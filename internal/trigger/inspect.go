package trigger

import (
	"github.com/zxyyang/claude-auto-handoff/internal/budget"
	"github.com/zxyyang/claude-auto-handoff/internal/memory"
	"github.com/zxyyang/claude-auto-handoff/internal/storage"
	"github.com/zxyyang/claude-auto-handoff/internal/usage"
)

// Snapshot is a read-only view of everything the engine would consult for
// a session. It never writes.
type Snapshot struct {
	Config    storage.TriggerConfig `json:"config" yaml:"config"`
	State     storage.SessionState  `json:"state" yaml:"state"`
	Threshold budget.Threshold      `json:"threshold" yaml:"threshold"`
	SavePoint budget.SavePoint      `json:"save_point" yaml:"save_point"`
	Budget    int                   `json:"budget" yaml:"budget"`

	// Usage is the last recorded usage line, empty when nothing was recorded.
	Usage string `json:"usage,omitempty" yaml:"usage,omitempty"`

	SessionID string `json:"session_id,omitempty" yaml:"session_id,omitempty"`

	// CooldownSeconds is how long this session stays suppressed.
	CooldownSeconds int `json:"cooldown_seconds" yaml:"cooldown_seconds"`

	Memory memory.Paths `json:"memory,omitempty" yaml:"memory,omitempty"`
}

// Inspect builds a Snapshot. sessionID and projectPath may be empty, in
// which case cooldown and memory paths are omitted.
func Inspect(d Deps, sessionID, projectPath string) Snapshot {
	cfg := d.loadConfig()
	st := d.loadState()
	th := cfg.ParsedThreshold()

	s := Snapshot{
		Config:    cfg,
		State:     st,
		Threshold: th,
		SavePoint: th.SavePoint(),
		Budget:    th.Budget(d.totalTokens(st)),
		SessionID: sessionID,
	}
	if r := usage.FromState(st); r.UsedTokens != nil || r.RemainingPct != nil {
		s.Usage = usage.Line(r, th)
	}
	if sessionID != "" {
		s.CooldownSeconds = int(d.Cooldown.Remaining(sessionID).Seconds())
		if projectPath != "" {
			s.Memory = d.Layout.For(projectPath, sessionID)
		}
	}
	return s
}
