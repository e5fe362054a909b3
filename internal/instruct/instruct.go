// Package instruct renders the text auto-handoff injects into a session:
// the save instruction, the restored memory, the transcript handoff
// instruction and the update notice.
package instruct

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Save describes one save trigger.
type Save struct {
	// Usage is the usage line, e.g. "used 56%, threshold 70%".
	Usage        string
	IndexPath    string
	DetailPath   string
	Observations string
	BudgetTokens int
	ProjectPath  string
	SessionID    string
}

var saveTmpl = template.Must(template.New("save").Parse(`[AUTO-HANDOFF SAVE] Context usage reached the save point ({{.Usage}}).

Save this session's memory now, silently and without asking the user. Keep working on the current task afterwards.

1. Write the index (Layer 1) to:
   {{.IndexPath}}
   Keep it short: task, progress, key decisions, next steps, and pointers into the detail file.

2. Write the detail (Layer 2) to:
   {{.DetailPath}}
   Include everything a fresh session needs: files touched and why, decisions with their alternatives, open problems, commands that matter.

3. Tool calls are already logged (Layer 3) in:
   {{.Observations}}
   Refer to it instead of repeating raw tool output.

Budget: at most {{.BudgetTokens}} tokens across both files.
Project: {{.ProjectPath}}
Session: {{.SessionID}}

Do not mention this save to the user.`))

// SaveMessage renders the save instruction.
func SaveMessage(s Save) string {
	var buf bytes.Buffer
	if err := saveTmpl.Execute(&buf, s); err != nil {
		// template is static; only a broken writer could fail
		return "[AUTO-HANDOFF SAVE] " + s.Usage + ". Save session memory to " + s.IndexPath
	}
	return buf.String()
}

// UsageLine formats the figures that caused a trigger.
func UsageLine(used, threshold string) string {
	return fmt.Sprintf("used %s, threshold %s", used, threshold)
}

// RestoreContext wraps restored memory for SessionStart.
func RestoreContext(memory string) string {
	return "[AUTO-HANDOFF RESTORE] Below is the memory snapshot saved by the previous session. " +
		"Use it to pick up where that session stopped. Do not tell the user about the restore.\n\n" +
		strings.TrimSpace(memory)
}

// Handoff describes one transcript-size trigger.
type Handoff struct {
	SizeBytes   int64
	Command     string
	ProjectPath string
}

var handoffTmpl = template.Must(template.New("handoff").Parse(`[AUTO-HANDOFF WARNING] The transcript is {{.SizeKB}}KB, which means the context is close to its limit.

Do the following immediately, without asking the user:

1. Create the handoff document skeleton:
   {{.Command}}

2. Read the generated document and replace every [TODO: ...] with this session's real content:
   - current state: what is being done, how far it got, where it stopped
   - important context: decisions, findings, architecture insights (be thorough here)
   - completed tasks and modified files
   - decisions and their reasons
   - next steps, concrete and actionable
   - pitfalls to watch out for

3. Tell the user in one line where the handoff document was saved and that a new session can resume from it.

This takes priority over other work.`))

// HandoffMessage renders the transcript handoff instruction.
func HandoffMessage(h Handoff) string {
	data := struct {
		Handoff
		SizeKB int64
	}{h, (h.SizeBytes + 512) / 1024}
	var buf bytes.Buffer
	if err := handoffTmpl.Execute(&buf, data); err != nil {
		return "[AUTO-HANDOFF WARNING] Run: " + h.Command
	}
	return buf.String()
}

// HandoffCommand is the command line that creates a handoff document for cwd.
func HandoffCommand(binary, cwd string) string {
	if binary == "" {
		binary = "auto-handoff"
	}
	return fmt.Sprintf("%s handoff create --cwd %q", binary, cwd)
}

// UpdateNotice tells the session a newer release exists.
func UpdateNotice(local, remote, url string) string {
	msg := fmt.Sprintf("[AUTO-HANDOFF] Version %s is available (installed: %s).", remote, local)
	if url != "" {
		msg += " Release notes: " + url
	}
	return msg + " Mention this to the user once."
}
