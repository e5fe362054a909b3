package hook

import (
	"encoding/json"
	"io"
)

// SpecificOutput is the hookSpecificOutput block.
type SpecificOutput struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext"`
}

// Output is the single JSON object a hook may print. Either
// HookSpecificOutput is set, or Continue and SystemMessage (PreCompact).
type Output struct {
	HookSpecificOutput *SpecificOutput `json:"hookSpecificOutput,omitempty"`
	Continue           *bool           `json:"continue,omitempty"`
	SystemMessage      string          `json:"systemMessage,omitempty"`
}

// ContextOutput injects text into the session for event.
func ContextOutput(event, text string) *Output {
	return &Output{HookSpecificOutput: &SpecificOutput{HookEventName: event, AdditionalContext: text}}
}

// SystemOutput is the PreCompact reply.
func SystemOutput(text string) *Output {
	cont := true
	return &Output{Continue: &cont, SystemMessage: text}
}

// Write encodes o as one line.
func (o *Output) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(o)
}
