package hook

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"

	"github.com/zxyyang/claude-auto-handoff/internal/memory"
	"github.com/zxyyang/claude-auto-handoff/internal/trigger"
)

// maxInputBytes bounds how much of stdin a hook reads. Tool responses can
// be large; nothing beyond this is needed for a decision.
const maxInputBytes = 16 << 20

// Runner executes one hook invocation.
type Runner struct {
	Deps trigger.Deps

	// Notice returns an update notice for SessionStart, or "". It must
	// respect ctx and its own timeout.
	Notice func(ctx context.Context) string

	// Getwd resolves the project path when the payload has no cwd.
	Getwd func() (string, error)
}

func (r *Runner) logger() *zap.Logger {
	if r.Deps.Logger == nil {
		return zap.NewNop()
	}
	return r.Deps.Logger
}

// Run is the single failure policy for hooks: whatever happens inside
// Handle, including a panic, is logged and turned into "no output". The
// caller always exits 0.
func (r *Runner) Run(ctx context.Context, kind Kind, stdin io.Reader, stdout io.Writer) {
	log := r.logger().With(zap.String("hook", string(kind)))
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("hook panicked", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))
		}
	}()

	out, err := r.Handle(ctx, kind, stdin)
	if err != nil {
		log.Warn("hook failed, no action taken", zap.Error(err))
	}
	if out == nil {
		return
	}
	if werr := out.Write(stdout); werr != nil {
		log.Warn("hook output not written", zap.Error(werr))
	}
}

// Handle decodes stdin, runs the engine and returns the reply, if any. A
// non-nil reply may come with a non-nil error for problems that did not
// prevent the decision.
func (r *Runner) Handle(ctx context.Context, kind Kind, stdin io.Reader) (*Output, error) {
	data, err := io.ReadAll(io.LimitReader(stdin, maxInputBytes))
	if err != nil {
		r.logger().Warn("stdin not fully read", zap.Error(err))
	}

	ev, err := Decode(kind, data, r.Getwd)
	if ev == nil {
		return nil, err
	}
	if err != nil {
		r.logger().Warn("hook input decoded with defaults", zap.Error(err))
	}

	if tu, ok := ev.(ToolUse); ok {
		r.capture(ctx, tu)
	}

	engine := trigger.New(r.Deps)
	in := triggerInput(ev)

	switch kind {
	case KindPostToolUse, KindUserPromptSubmit, KindStop:
		d, err := engine.Evaluate(in)
		if err != nil || !d.Triggered() {
			r.logDecision(d)
			return nil, err
		}
		return ContextOutput(string(in.Event), d.Message), nil

	case KindPreCompact:
		d, err := engine.PreCompact(in)
		if err != nil || !d.Triggered() {
			r.logDecision(d)
			return nil, err
		}
		return SystemOutput(d.Message), nil

	case KindSessionStart:
		d, err := engine.SessionStart(in)
		var parts []string
		if d.Triggered() {
			parts = append(parts, d.Message)
		}
		if r.Notice != nil {
			if n := r.Notice(ctx); n != "" {
				parts = append(parts, n)
			}
		}
		if len(parts) == 0 {
			r.logDecision(d)
			return nil, err
		}
		return ContextOutput(string(in.Event), strings.Join(parts, "\n\n")), err
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// capture appends the tool call to the session's observation log when the
// plugin is enabled. Capture continues in manual mode.
func (r *Runner) capture(ctx context.Context, tu ToolUse) {
	if tu.ToolName == "" || !r.Deps.Config.Read().Enabled {
		return
	}
	path := r.Deps.Layout.For(tu.Cwd, tu.SessionID).Observations
	if err := memory.Capture(ctx, path, tu.SessionID, tu.ToolName, tu.ToolInput, tu.ToolResponse); err != nil {
		r.logger().Warn("observation not captured", zap.String("tool", tu.ToolName), zap.Error(err))
	}
}

func (r *Runner) logDecision(d trigger.Decision) {
	r.logger().Debug("no action",
		zap.String("session", d.SessionID),
		zap.String("reason", d.Reason),
		zap.String("status", string(d.Status)),
		zap.String("usage", d.Usage))
}
