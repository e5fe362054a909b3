// Package usage turns the status-line payload Claude Code sends on every
// refresh into a context usage reading and records it in SessionState,
// where the hooks pick it up.
package usage

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/zxyyang/claude-auto-handoff/internal/budget"
	"github.com/zxyyang/claude-auto-handoff/internal/parser"
	"github.com/zxyyang/claude-auto-handoff/internal/storage"
)

// Payload is the subset of the status-line JSON that carries usage.
type Payload struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	Cwd            string `json:"cwd"`
	Model          struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"model"`
	ContextWindow *ContextWindow `json:"context_window,omitempty"`
}

// ContextWindow is the context_window block of the status-line payload.
// Every field is optional.
type ContextWindow struct {
	Size                *int          `json:"context_window_size,omitempty"`
	UsedPercentage      *float64      `json:"used_percentage,omitempty"`
	RemainingPercentage *float64      `json:"remaining_percentage,omitempty"`
	CurrentUsage        *parser.Usage `json:"current_usage,omitempty"`
}

// Decode reads one payload. Empty input decodes to a zero payload.
func Decode(r io.Reader) (Payload, error) {
	var p Payload
	data, err := io.ReadAll(r)
	if err != nil {
		return p, fmt.Errorf("read payload: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return p, nil
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	return p, nil
}

// Measure derives a reading from p. defaultTotal, when > 0, is the window
// size assumed if the payload does not report one. When the payload has no
// usage at all, the last assistant usage in the transcript is used.
func Measure(p Payload, defaultTotal int) budget.Reading {
	var r budget.Reading

	total := 0
	if cw := p.ContextWindow; cw != nil && cw.Size != nil && *cw.Size > 0 {
		total = *cw.Size
	} else if defaultTotal > 0 {
		total = defaultTotal
	}
	if total > 0 {
		r.TotalTokens = intPtr(total)
	}

	if cw := p.ContextWindow; cw != nil {
		switch {
		case cw.CurrentUsage != nil:
			r.UsedTokens = intPtr(cw.CurrentUsage.ContextTokens())
		case cw.UsedPercentage != nil && total > 0:
			r.UsedTokens = intPtr(int(math.Round(*cw.UsedPercentage * float64(total) / 100)))
		}
		switch {
		case cw.RemainingPercentage != nil:
			r.RemainingPct = floatPtr(clampPct(*cw.RemainingPercentage))
		case cw.UsedPercentage != nil:
			r.RemainingPct = floatPtr(clampPct(100 - *cw.UsedPercentage))
		}
	}

	if r.UsedTokens == nil && p.TranscriptPath != "" {
		if u, err := parser.LastUsage(p.TranscriptPath); err == nil && u != nil {
			r.UsedTokens = intPtr(u.ContextTokens())
		}
	}

	if r.RemainingPct == nil && r.UsedTokens != nil && total > 0 {
		used := float64(*r.UsedTokens) / float64(total) * 100
		r.RemainingPct = floatPtr(clampPct(100 - used))
	}
	return r
}

// Record stores r in the state file, keeping every other field. Fields r
// does not carry keep their previous values.
func Record(store *storage.StateStore, r budget.Reading) (storage.SessionState, error) {
	st := store.Read()
	if r.UsedTokens != nil {
		st.UsedTokens = intPtr(*r.UsedTokens)
	}
	if r.TotalTokens != nil {
		st.TotalTokens = intPtr(*r.TotalTokens)
	}
	if r.RemainingPct != nil {
		st.RemainingPct = floatPtr(*r.RemainingPct)
	}
	return store.Write(st)
}

// FromState rebuilds the reading last recorded in st.
func FromState(st storage.SessionState) budget.Reading {
	return budget.Reading{
		UsedTokens:   st.UsedTokens,
		TotalTokens:  st.TotalTokens,
		RemainingPct: st.RemainingPct,
	}
}

// Line formats the status-bar line:
//
//	ctx 56% (112K/200K) | save 55% | limit 70%
func Line(r budget.Reading, th budget.Threshold) string {
	var parts []string

	ctx := "ctx ?"
	if r.RemainingPct != nil {
		ctx = fmt.Sprintf("ctx %d%%", int(math.Round(100-*r.RemainingPct)))
	}
	if r.UsedTokens != nil {
		k := fmt.Sprintf("%dK", int(math.Round(float64(*r.UsedTokens)/1000)))
		if r.TotalTokens != nil {
			k += fmt.Sprintf("/%dK", int(math.Round(float64(*r.TotalTokens)/1000)))
		}
		ctx += " (" + k + ")"
	}
	parts = append(parts, ctx)

	sp := th.SavePoint()
	mark := ""
	if _, crossed := sp.Crossed(r); crossed {
		mark = " !"
	}
	parts = append(parts, "save "+sp.String()+mark, "limit "+th.Label)
	return strings.Join(parts, " | ")
}

func clampPct(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
