// Package hook is the process boundary between Claude Code and the trigger
// engine: it decodes the hook payload from stdin into a typed event, runs
// the engine, and writes at most one JSON reply to stdout.
package hook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/zxyyang/claude-auto-handoff/internal/trigger"
)

// Kind names a hook entry point on the command line.
type Kind string

const (
	KindPostToolUse      Kind = "post-tool-use"
	KindUserPromptSubmit Kind = "user-prompt-submit"
	KindStop             Kind = "stop"
	KindPreCompact       Kind = "pre-compact"
	KindSessionStart     Kind = "session-start"
)

// Kinds lists every entry point in registration order.
var Kinds = []Kind{KindPostToolUse, KindUserPromptSubmit, KindStop, KindPreCompact, KindSessionStart}

// ParseKind accepts the command-line name or the host event name.
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds {
		if norm == string(k) || norm == strings.ToLower(string(k.Event())) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Event returns the host event name for k.
func (k Kind) Event() trigger.Event {
	switch k {
	case KindPostToolUse:
		return trigger.EventPostToolUse
	case KindUserPromptSubmit:
		return trigger.EventUserPromptSubmit
	case KindStop:
		return trigger.EventStop
	case KindPreCompact:
		return trigger.EventPreCompact
	case KindSessionStart:
		return trigger.EventSessionStart
	}
	return ""
}

// wireInput is the union of every field Claude Code sends to hooks.
type wireInput struct {
	SessionID      string          `json:"session_id"`
	TranscriptPath string          `json:"transcript_path"`
	Cwd            string          `json:"cwd"`
	HookEventName  string          `json:"hook_event_name"`
	ToolName       string          `json:"tool_name"`
	ToolInput      json.RawMessage `json:"tool_input"`
	ToolResponse   json.RawMessage `json:"tool_response"`
	Prompt         string          `json:"prompt"`
	StopHookActive bool            `json:"stop_hook_active"`
	Trigger        string          `json:"trigger"`
	Source         string          `json:"source"`
}

// Common holds the fields shared by every event.
type Common struct {
	SessionID      string
	TranscriptPath string
	Cwd            string
}

// Event is one decoded hook payload. The concrete type depends on the Kind.
type Event interface {
	Kind() Kind
	Base() Common
}

// ToolUse is a PostToolUse payload.
type ToolUse struct {
	Common
	ToolName     string
	ToolInput    json.RawMessage
	ToolResponse json.RawMessage
}

// PromptSubmit is a UserPromptSubmit payload.
type PromptSubmit struct {
	Common
	Prompt string
}

// Stop is a Stop payload.
type Stop struct {
	Common
	StopHookActive bool
}

// PreCompact is a PreCompact payload. Trigger is "manual" or "auto".
type PreCompact struct {
	Common
	Trigger string
}

// SessionStart is a SessionStart payload. Source is startup, resume, clear
// or compact.
type SessionStart struct {
	Common
	Source string
}

func (ToolUse) Kind() Kind      { return KindPostToolUse }
func (PromptSubmit) Kind() Kind { return KindUserPromptSubmit }
func (Stop) Kind() Kind         { return KindStop }
func (PreCompact) Kind() Kind   { return KindPreCompact }
func (SessionStart) Kind() Kind { return KindSessionStart }

func (e ToolUse) Base() Common      { return e.Common }
func (e PromptSubmit) Base() Common { return e.Common }
func (e Stop) Base() Common         { return e.Common }
func (e PreCompact) Base() Common   { return e.Common }
func (e SessionStart) Base() Common { return e.Common }

// Decode builds the event for kind from raw stdin. It never fails to return
// an event: empty or malformed input yields one with default fields, and the
// decode error is returned alongside for logging.
func Decode(kind Kind, data []byte, getwd func() (string, error)) (Event, error) {
	var in wireInput
	var decodeErr error
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &in); err != nil {
			in = wireInput{}
			decodeErr = fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
	}

	c := Common{
		SessionID:      strings.TrimSpace(in.SessionID),
		TranscriptPath: in.TranscriptPath,
		Cwd:            in.Cwd,
	}
	if c.SessionID == "" {
		c.SessionID = "unknown"
	}
	if c.Cwd == "" {
		if getwd == nil {
			getwd = os.Getwd
		}
		if wd, err := getwd(); err == nil {
			c.Cwd = wd
		}
	}

	switch kind {
	case KindPostToolUse:
		return ToolUse{Common: c, ToolName: in.ToolName, ToolInput: in.ToolInput, ToolResponse: in.ToolResponse}, decodeErr
	case KindUserPromptSubmit:
		return PromptSubmit{Common: c, Prompt: in.Prompt}, decodeErr
	case KindStop:
		return Stop{Common: c, StopHookActive: in.StopHookActive}, decodeErr
	case KindPreCompact:
		return PreCompact{Common: c, Trigger: in.Trigger}, decodeErr
	case KindSessionStart:
		return SessionStart{Common: c, Source: in.Source}, decodeErr
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// triggerInput converts an event into the engine's input.
func triggerInput(ev Event) trigger.Input {
	c := ev.Base()
	in := trigger.Input{
		Event:          ev.Kind().Event(),
		SessionID:      c.SessionID,
		ProjectPath:    c.Cwd,
		TranscriptPath: c.TranscriptPath,
	}
	if s, ok := ev.(SessionStart); ok {
		in.Source = s.Source
	}
	return in
}
