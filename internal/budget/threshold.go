// Package budget turns a configured context threshold into the numbers the
// trigger engine works with: the parsed threshold, the earlier save point,
// and the token budget handed to the memory writer.
package budget

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind distinguishes relative thresholds from absolute ones.
type Kind string

const (
	// KindPercent is a share of the context window that has been consumed.
	KindPercent Kind = "percent"

	// KindAbsolute is a token count, expressed in thousands.
	KindAbsolute Kind = "absolute"
)

const (
	// BytesPerToken is the historical transcript bytes-per-token ratio used to
	// convert legacy megabyte thresholds.
	BytesPerToken = 8.5

	// DefaultKTokens is the threshold used when configuration is unusable.
	DefaultKTokens = 180
)

var (
	percentPattern = regexp.MustCompile(`^(\d+)%$`)
	kiloPattern    = regexp.MustCompile(`(?i)^(\d+)k$`)
)

// Value is a threshold exactly as written in configuration: "70%", "180k",
// or a bare number of megabytes (legacy). JSON numbers and strings are both
// accepted so older config files keep working.
type Value string

// UnmarshalJSON accepts a string or a number. Any other JSON type decodes to
// the empty value, which parses to the default threshold.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*v = ""
			return nil
		}
		*v = Value(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		*v = ""
		return nil
	}
	*v = Value(n.String())
	return nil
}

// MarshalJSON writes legacy numeric values back as JSON numbers.
func (v Value) MarshalJSON() ([]byte, error) {
	s := strings.TrimSpace(string(v))
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
	}
	return json.Marshal(string(v))
}

// Threshold is the canonical form of a configured threshold.
type Threshold struct {
	Kind Kind `json:"kind" yaml:"kind"`

	// Pct is set for KindPercent (1..100).
	Pct int `json:"pct,omitempty" yaml:"pct,omitempty"`

	// KTokens is set for KindAbsolute (thousands of tokens, > 0).
	KTokens int `json:"kTokens,omitempty" yaml:"ktokens,omitempty"`

	// LegacyMB keeps the original megabyte figure when the threshold came
	// from a bare number, so transcript-size checks can use it unconverted.
	LegacyMB float64 `json:"legacyMB,omitempty" yaml:"legacy_mb,omitempty"`

	// Label is the human form used in messages ("70%", "180K").
	Label string `json:"label" yaml:"label"`
}

// Default returns the fallback threshold used for malformed configuration.
func Default() Threshold {
	return absolute(DefaultKTokens)
}

func absolute(k int) Threshold {
	return Threshold{Kind: KindAbsolute, KTokens: k, Label: fmt.Sprintf("%dK", k)}
}

// ParseThreshold normalizes a configured threshold. It never fails: anything
// it cannot interpret (including zero, negative and out-of-range values)
// yields Default().
func ParseThreshold(raw Value) Threshold {
	if th, ok := Parse(raw); ok {
		return th
	}
	return Default()
}

// Parse is ParseThreshold that reports whether raw was understood instead of
// falling back.
func Parse(raw Value) (Threshold, bool) {
	s := strings.TrimSpace(string(raw))

	if m := percentPattern.FindStringSubmatch(s); m != nil {
		pct, err := strconv.Atoi(m[1])
		if err != nil || pct < 1 || pct > 100 {
			return Threshold{}, false
		}
		return Threshold{Kind: KindPercent, Pct: pct, Label: fmt.Sprintf("%d%%", pct)}, true
	}

	if m := kiloPattern.FindStringSubmatch(s); m != nil {
		k, err := strconv.Atoi(m[1])
		if err != nil || k < 1 {
			return Threshold{}, false
		}
		return absolute(k), true
	}

	mb, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(mb) || math.IsInf(mb, 0) || mb <= 0 {
		return Threshold{}, false
	}
	k := int(math.Round(mb * 1024 / BytesPerToken))
	if k < 1 {
		return Threshold{}, false
	}
	th := absolute(k)
	th.LegacyMB = mb
	return th, true
}

// Bytes expresses the threshold as a transcript size. Legacy thresholds use
// their megabyte figure directly; the others go through BytesPerToken.
// totalTokens <= 0 means the context window is unknown.
func (t Threshold) Bytes(totalTokens int) int64 {
	if t.LegacyMB > 0 {
		return int64(t.LegacyMB * 1024 * 1024)
	}
	switch t.Kind {
	case KindPercent:
		if totalTokens <= 0 {
			totalTokens = DefaultContextTokens
		}
		return int64(float64(totalTokens) * float64(t.Pct) / 100 * BytesPerToken)
	default:
		return int64(float64(t.KTokens) * 1024 * BytesPerToken)
	}
}

// String implements fmt.Stringer.
func (t Threshold) String() string {
	return t.Label
}
