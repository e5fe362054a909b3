package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zxyyang/claude-auto-handoff/internal/budget"
)

// Mode selects whether hooks trigger saves on their own.
type Mode string

const (
	// ModeAuto lets every hook evaluate the threshold.
	ModeAuto Mode = "auto"

	// ModeManual disables automatic triggers. Observations are still
	// captured and PreCompact still saves.
	ModeManual Mode = "manual"
)

// Strategy selects the trigger engine.
type Strategy string

const (
	// StrategyThreshold compares measured context usage with the save point.
	StrategyThreshold Strategy = "threshold"

	// StrategyTranscript compares transcript size on disk with the threshold.
	StrategyTranscript Strategy = "transcript"
)

// DefaultThreshold is written into new configuration files.
const DefaultThreshold budget.Value = "180k"

// Config keys accepted by Set.
const (
	KeyEnabled   = "enabled"
	KeyMode      = "mode"
	KeyThreshold = "threshold"
	KeyStrategy  = "strategy"
)

var (
	// ErrUnknownKey is returned by Set for keys it does not know.
	ErrUnknownKey = errors.New("unknown config key")

	// ErrInvalidValue is returned by Set for values that do not parse.
	ErrInvalidValue = errors.New("invalid config value")
)

// TriggerConfig is the content of auto-handoff-config.json. The file is
// shared with the host plugin, so it stays JSON.
type TriggerConfig struct {
	Enabled   bool         `json:"enabled" yaml:"enabled"`
	Mode      Mode         `json:"mode" yaml:"mode"`
	Threshold budget.Value `json:"threshold" yaml:"threshold"`
	Strategy  Strategy     `json:"strategy,omitempty" yaml:"strategy,omitempty"`
}

// DefaultTriggerConfig returns the configuration used when the file is
// missing or unreadable.
func DefaultTriggerConfig() TriggerConfig {
	return TriggerConfig{
		Enabled:   true,
		Mode:      ModeAuto,
		Threshold: DefaultThreshold,
		Strategy:  StrategyThreshold,
	}
}

// Normalize replaces unknown enum values with their defaults.
func (c TriggerConfig) Normalize() TriggerConfig {
	if c.Mode != ModeManual {
		c.Mode = ModeAuto
	}
	if c.Strategy != StrategyTranscript {
		c.Strategy = StrategyThreshold
	}
	return c
}

// Automatic reports whether hooks may trigger on their own.
func (c TriggerConfig) Automatic() bool {
	return c.Enabled && c.Mode != ModeManual
}

// ParsedThreshold parses the configured threshold.
func (c TriggerConfig) ParsedThreshold() budget.Threshold {
	return budget.ParseThreshold(c.Threshold)
}

// Get returns the string form of one key.
func (c TriggerConfig) Get(key string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case KeyEnabled:
		return strconv.FormatBool(c.Enabled), nil
	case KeyMode:
		return string(c.Mode), nil
	case KeyThreshold:
		return string(c.Threshold), nil
	case KeyStrategy:
		return string(c.Strategy), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

// Set returns a copy of c with key set to value.
func (c TriggerConfig) Set(key, value string) (TriggerConfig, error) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(strings.TrimSpace(key)) {
	case KeyEnabled:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return c, fmt.Errorf("%w: enabled must be true or false, got %q", ErrInvalidValue, value)
		}
		c.Enabled = b
	case KeyMode:
		m := Mode(strings.ToLower(value))
		if m != ModeAuto && m != ModeManual {
			return c, fmt.Errorf("%w: mode must be auto or manual, got %q", ErrInvalidValue, value)
		}
		c.Mode = m
	case KeyThreshold:
		v := budget.Value(value)
		if _, ok := budget.Parse(v); !ok {
			return c, fmt.Errorf("%w: threshold must look like 70%%, 180k or 1.5, got %q", ErrInvalidValue, value)
		}
		c.Threshold = v
	case KeyStrategy:
		s := Strategy(strings.ToLower(value))
		if s != StrategyThreshold && s != StrategyTranscript {
			return c, fmt.Errorf("%w: strategy must be threshold or transcript, got %q", ErrInvalidValue, value)
		}
		c.Strategy = s
	default:
		return c, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return c, nil
}

// ConfigStore reads and writes auto-handoff-config.json.
type ConfigStore struct {
	path string
}

// NewConfigStore creates a store for <dir>/auto-handoff-config.json.
func NewConfigStore(dir string) *ConfigStore {
	return &ConfigStore{path: filepath.Join(dir, ConfigFile)}
}

// Path returns the config file path.
func (s *ConfigStore) Path() string {
	return s.path
}

// Load decodes the file over DefaultTriggerConfig, so fields missing from
// the file keep their defaults. On failure the defaults are returned with
// the error.
func (s *ConfigStore) Load() (TriggerConfig, error) {
	cfg := DefaultTriggerConfig()
	if err := ReadJSON(s.path, &cfg); err != nil {
		return DefaultTriggerConfig(), err
	}
	return cfg.Normalize(), nil
}

// Read is Load without the error.
func (s *ConfigStore) Read() TriggerConfig {
	cfg, _ := s.Load() //nolint:errcheck // malformed config degrades to defaults
	return cfg
}

// Save replaces the config file.
func (s *ConfigStore) Save(cfg TriggerConfig) error {
	return WriteJSON(s.path, cfg.Normalize())
}

// Init writes the defaults when the file is missing or corrupt. It reports
// whether a file was written. An existing valid file is left untouched.
func (s *ConfigStore) Init() (bool, error) {
	_, err := s.Load()
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrCorrupt) {
		return false, err
	}
	if err := s.Save(DefaultTriggerConfig()); err != nil {
		return false, err
	}
	return true, nil
}
