package budget

import (
	"fmt"
	"math"
)

const (
	// SaveMarginPct is how many percentage points before a percent threshold
	// the save fires.
	SaveMarginPct = 15

	// AbsoluteSaveRatio scales absolute thresholds down to their save point.
	AbsoluteSaveRatio = 0.75
)

// SavePoint is the usage level at which a save is triggered. It always sits
// at or before the user's threshold so the save can finish before the host
// starts compacting.
type SavePoint struct {
	Kind Kind `json:"kind" yaml:"kind"`

	// Pct is the percent save point (>= 1).
	Pct int `json:"pct,omitempty" yaml:"pct,omitempty"`

	// KTokens is the absolute save point in thousands of tokens. It is not
	// rounded: "30k" saves at 22.5K.
	KTokens float64 `json:"kTokens,omitempty" yaml:"ktokens,omitempty"`
}

// CalcSavePoint parses raw and derives its save point.
func CalcSavePoint(raw Value) SavePoint {
	return ParseThreshold(raw).SavePoint()
}

// SavePoint derives the save point for t.
func (t Threshold) SavePoint() SavePoint {
	if t.Kind == KindPercent {
		pct := t.Pct - SaveMarginPct
		if pct < 1 {
			pct = 1
		}
		return SavePoint{Kind: KindPercent, Pct: pct}
	}
	return SavePoint{Kind: KindAbsolute, KTokens: float64(t.KTokens) * AbsoluteSaveRatio}
}

// Tokens returns the absolute save point in tokens, or 0 for percent kinds.
func (sp SavePoint) Tokens() int {
	if sp.Kind != KindAbsolute {
		return 0
	}
	return int(math.Round(sp.KTokens * 1000))
}

// String implements fmt.Stringer.
func (sp SavePoint) String() string {
	if sp.Kind == KindPercent {
		return fmt.Sprintf("%d%%", sp.Pct)
	}
	return fmt.Sprintf("%gK", sp.KTokens)
}

// Reading is one external measurement of context usage. Nil fields mean
// the measurement is not available.
type Reading struct {
	UsedTokens   *int
	TotalTokens  *int
	RemainingPct *float64
}

// Crossed reports whether r is at or past sp. The returned string is the
// usage figure that was compared ("56%" or "23K"). A reading without the
// measurement sp needs never counts as a crossing.
func (sp SavePoint) Crossed(r Reading) (string, bool) {
	switch sp.Kind {
	case KindPercent:
		if r.RemainingPct == nil {
			return "", false
		}
		used := int(math.Round(100 - *r.RemainingPct))
		return fmt.Sprintf("%d%%", used), used >= sp.Pct
	case KindAbsolute:
		if r.UsedTokens == nil {
			return "", false
		}
		usedK := math.Round(float64(*r.UsedTokens) / 1000)
		return fmt.Sprintf("%dK", int(usedK)), usedK >= sp.KTokens
	default:
		return "", false
	}
}
