package trigger

import (
	"errors"
	"io/fs"

	"go.uber.org/zap"

	"github.com/zxyyang/claude-auto-handoff/internal/instruct"
	"github.com/zxyyang/claude-auto-handoff/internal/memory"
	"github.com/zxyyang/claude-auto-handoff/internal/storage"
)

// ThresholdEngine saves memory once measured context usage crosses the save
// point. Its cycle is idle -> saved -> idle: a save holds until the next
// SessionStart restores and resets it.
type ThresholdEngine struct {
	deps Deps
}

// NewThresholdEngine creates the threshold engine regardless of config.
func NewThresholdEngine(d Deps) *ThresholdEngine {
	return &ThresholdEngine{deps: d}
}

// Evaluate implements Engine.
func (e *ThresholdEngine) Evaluate(in Input) (Decision, error) {
	log := e.deps.logger().With(zap.String("event", string(in.Event)), zap.String("session", in.SessionID))

	cfg := e.deps.loadConfig()
	st := e.deps.loadState()

	if !cfg.Enabled {
		return none(ReasonDisabled, st, in), nil
	}
	if cfg.Mode == storage.ModeManual {
		return none(ReasonManual, st, in), nil
	}
	if e.deps.Cooldown.WasRecentlyTriggered(in.SessionID) {
		return none(ReasonCooldown, st, in), nil
	}
	if st.Status == storage.StatusSaved {
		return none(ReasonAlreadySaved, st, in), nil
	}

	th := cfg.ParsedThreshold()
	sp := th.SavePoint()
	reading := e.deps.reading(st, in.TranscriptPath)
	used, crossed := sp.Crossed(reading)
	if !crossed {
		reason := ReasonBelowSavePoint
		if used == "" {
			reason = ReasonNoMeasurement
		}
		d := none(reason, st, in)
		d.Threshold, d.SavePoint, d.Usage = th, sp, used
		return d, nil
	}

	paths := e.deps.Layout.For(in.ProjectPath, in.SessionID)
	e.deps.markCooldown(in.SessionID)

	next := st
	next.Status = storage.StatusSaved
	next.MemoryPath = paths.Index
	next.SessionID = in.SessionID
	if _, err := e.deps.State.Write(next); err != nil {
		return none(ReasonWriteFailed, st, in), err
	}

	d := Decision{
		Action:      ActionSave,
		Status:      storage.StatusSaved,
		SessionID:   in.SessionID,
		ProjectPath: in.ProjectPath,
		Threshold:   th,
		SavePoint:   sp,
		Usage:       instruct.UsageLine(used, th.Label),
		Memory:      paths,
		Budget:      th.Budget(e.deps.totalTokens(st)),
	}
	d.Message = saveMessage(d)
	log.Info("save triggered", zap.String("usage", d.Usage), zap.String("memory", paths.Index), zap.Int("budget", d.Budget))
	return d, nil
}

// PreCompact implements Engine. It is the last chance to save before the
// host compacts, so it ignores mode and the save point and only skips when
// this session already saved within the cooldown window.
func (e *ThresholdEngine) PreCompact(in Input) (Decision, error) {
	cfg := e.deps.loadConfig()
	st := e.deps.loadState()

	if !cfg.Enabled {
		return none(ReasonDisabled, st, in), nil
	}

	recent := e.deps.Cooldown.WasRecentlyTriggered(in.SessionID)
	if recent && st.Status == storage.StatusSaved && st.SessionID == in.SessionID {
		return none(ReasonAlreadySaved, st, in), nil
	}
	if !recent {
		e.deps.markCooldown(in.SessionID)
	}

	th := cfg.ParsedThreshold()
	sp := th.SavePoint()
	paths := e.deps.Layout.For(in.ProjectPath, in.SessionID)

	next := st
	next.Status = storage.StatusSaved
	next.MemoryPath = paths.Index
	next.SessionID = in.SessionID
	if _, err := e.deps.State.Write(next); err != nil {
		return none(ReasonWriteFailed, st, in), err
	}

	usageLine := "context is about to be compacted"
	if used, _ := sp.Crossed(e.deps.reading(st, in.TranscriptPath)); used != "" {
		usageLine = instruct.UsageLine(used, th.Label) + ", compacting"
	}

	d := Decision{
		Action:      ActionSave,
		Status:      storage.StatusSaved,
		SessionID:   in.SessionID,
		ProjectPath: in.ProjectPath,
		Threshold:   th,
		SavePoint:   sp,
		Usage:       usageLine,
		Memory:      paths,
		Budget:      th.Budget(e.deps.totalTokens(st)),
	}
	d.Message = saveMessage(d)
	e.deps.logger().Info("pre-compact save", zap.String("session", in.SessionID), zap.String("memory", paths.Index))
	return d, nil
}

// SessionStart implements Engine. A saved session with a non-empty memory
// file is restored; every other state is reset to idle.
func (e *ThresholdEngine) SessionStart(in Input) (Decision, error) {
	log := e.deps.logger().With(zap.String("session", in.SessionID), zap.String("source", in.Source))

	if created, err := e.deps.Config.Init(); err != nil {
		log.Warn("trigger config not initialized", zap.Error(err))
	} else if created {
		log.Info("trigger config initialized", zap.String("path", e.deps.Config.Path()))
	}

	cfg := e.deps.loadConfig()
	st := e.deps.loadState()
	th := cfg.ParsedThreshold()

	if cfg.Enabled && st.Status == storage.StatusSaved && st.MemoryPath != "" {
		b := th.Budget(e.deps.totalTokens(st))
		content, err := memory.ReadIndex(st.MemoryPath, b)
		switch {
		case err == nil:
			if _, werr := e.deps.State.Write(st.Reset()); werr != nil {
				log.Warn("state not reset after restore", zap.Error(werr))
			}
			log.Info("memory restored", zap.String("memory", st.MemoryPath))
			return Decision{
				Action:      ActionRestore,
				Message:     instruct.RestoreContext(content),
				Status:      storage.StatusIdle,
				SessionID:   in.SessionID,
				ProjectPath: in.ProjectPath,
				Threshold:   th,
				SavePoint:   th.SavePoint(),
				Memory:      memory.Paths{Index: st.MemoryPath},
				Budget:      b,
			}, nil
		case errors.Is(err, fs.ErrNotExist), errors.Is(err, memory.ErrEmptyMemory):
			log.Info("saved memory missing or empty, resetting", zap.String("memory", st.MemoryPath))
		default:
			log.Warn("saved memory unreadable, resetting", zap.Error(err))
		}
	}

	next, err := e.deps.State.Write(st.Reset())
	if err != nil {
		return none(ReasonReset, st, in), err
	}
	return none(ReasonReset, next, in), nil
}

func saveMessage(d Decision) string {
	return instruct.SaveMessage(instruct.Save{
		Usage:        d.Usage,
		IndexPath:    d.Memory.Index,
		DetailPath:   d.Memory.Detail,
		Observations: d.Memory.Observations,
		BudgetTokens: d.Budget,
		ProjectPath:  d.ProjectPath,
		SessionID:    d.SessionID,
	})
}
