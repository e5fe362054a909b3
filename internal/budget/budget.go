package budget

import "math"

const (
	// DefaultContextTokens is the assumed context window when the host has
	// not reported one.
	DefaultContextTokens = 200000

	// MemoryShare is the fraction of the carried context the memory writer
	// may spend.
	MemoryShare = 0.40

	// MinBudget and MaxBudget bound every memory budget.
	MinBudget = 10000
	MaxBudget = 500000
)

// CalcBudget returns the token ceiling for the memory artifact written after
// a trigger. totalTokens <= 0 means the window is unknown and
// DefaultContextTokens is assumed.
func CalcBudget(totalTokens int, raw Value) int {
	return ParseThreshold(raw).Budget(totalTokens)
}

// Budget is CalcBudget for an already parsed threshold.
func (t Threshold) Budget(totalTokens int) int {
	if totalTokens <= 0 {
		totalTokens = DefaultContextTokens
	}

	var base float64
	switch t.Kind {
	case KindPercent:
		base = float64(totalTokens) * float64(t.Pct) / 100
	default:
		base = math.Min(float64(t.KTokens)*1000, float64(totalTokens))
	}

	b := int(math.Round(base * MemoryShare))
	if b < MinBudget {
		return MinBudget
	}
	if b > MaxBudget {
		return MaxBudget
	}
	return b
}
