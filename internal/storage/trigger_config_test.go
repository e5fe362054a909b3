package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zxyyang/claude-auto-handoff/internal/budget"
)

func TestConfigStore_Defaults(t *testing.T) {
	store := NewConfigStore(t.TempDir())
	cfg, err := store.Load()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
	if cfg != DefaultTriggerConfig() {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
	if !cfg.Automatic() {
		t.Error("defaults should be automatic")
	}
}

func TestConfigStore_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFile), []byte(`{"threshold":1.5}`), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := NewConfigStore(dir).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Enabled || cfg.Mode != ModeAuto || cfg.Strategy != StrategyThreshold {
		t.Errorf("Load() = %+v, want default enabled/mode/strategy", cfg)
	}
	if cfg.Threshold != "1.5" {
		t.Errorf("Threshold = %q, want 1.5", cfg.Threshold)
	}
	if th := cfg.ParsedThreshold(); th.Label != "181K" {
		t.Errorf("ParsedThreshold() = %+v, want 181K", th)
	}
}

func TestConfigStore_NormalizesUnknownEnums(t *testing.T) {
	dir := t.TempDir()
	data := `{"enabled":false,"mode":"sometimes","threshold":"70%","strategy":"vibes"}`
	if err := os.WriteFile(filepath.Join(dir, ConfigFile), []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
	cfg := NewConfigStore(dir).Read()
	if cfg.Enabled || cfg.Mode != ModeAuto || cfg.Strategy != StrategyThreshold || cfg.Threshold != "70%" {
		t.Errorf("Read() = %+v", cfg)
	}
}

func TestConfigStore_Init(t *testing.T) {
	dir := t.TempDir()
	store := NewConfigStore(dir)

	created, err := store.Init()
	if err != nil || !created {
		t.Fatalf("Init() = %v, %v; want true, nil", created, err)
	}

	cfg := DefaultTriggerConfig()
	cfg.Threshold = "70%"
	if err := store.Save(cfg); err != nil {
		t.Fatal(err)
	}
	created, err = store.Init()
	if err != nil || created {
		t.Fatalf("Init() on valid file = %v, %v; want false, nil", created, err)
	}
	if got := store.Read().Threshold; got != "70%" {
		t.Errorf("Init() overwrote existing config: threshold = %q", got)
	}

	if err := os.WriteFile(store.Path(), []byte("{{{"), 0600); err != nil {
		t.Fatal(err)
	}
	created, err = store.Init()
	if err != nil || !created {
		t.Fatalf("Init() on corrupt file = %v, %v; want true, nil", created, err)
	}
	if got := store.Read(); got != DefaultTriggerConfig() {
		t.Errorf("Init() on corrupt file wrote %+v", got)
	}
}

func TestConfigStore_LegacyNumberRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewConfigStore(dir)
	cfg := DefaultTriggerConfig()
	cfg.Threshold = budget.Value("1.5")
	if err := store.Save(cfg); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"threshold": 1.5`) {
		t.Errorf("legacy threshold should stay a JSON number: %s", data)
	}
}

func TestTriggerConfig_Set(t *testing.T) {
	tests := []struct {
		key, value string
		wantErr    error
		check      func(TriggerConfig) bool
	}{
		{"enabled", "false", nil, func(c TriggerConfig) bool { return !c.Enabled }},
		{"enabled", "maybe", ErrInvalidValue, nil},
		{"mode", "MANUAL", nil, func(c TriggerConfig) bool { return c.Mode == ModeManual && !c.Automatic() }},
		{"mode", "turbo", ErrInvalidValue, nil},
		{"threshold", "70%", nil, func(c TriggerConfig) bool { return c.Threshold == "70%" }},
		{"threshold", "180K", nil, func(c TriggerConfig) bool { return c.Threshold == "180K" }},
		{"threshold", "0180k", nil, func(c TriggerConfig) bool { return c.Threshold == "0180k" && c.ParsedThreshold().KTokens == 180 }},
		{"threshold", " 180k ", nil, func(c TriggerConfig) bool { return c.Threshold == "180k" }},
		{"threshold", "lots", ErrInvalidValue, nil},
		{"threshold", "0k", ErrInvalidValue, nil},
		{"threshold", "150%", ErrInvalidValue, nil},
		{"strategy", "transcript", nil, func(c TriggerConfig) bool { return c.Strategy == StrategyTranscript }},
		{"strategy", "random", ErrInvalidValue, nil},
		{"colour", "blue", ErrUnknownKey, nil},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			got, err := DefaultTriggerConfig().Set(tt.key, tt.value)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Set() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if !tt.check(got) {
				t.Errorf("Set(%q, %q) = %+v", tt.key, tt.value, got)
			}
		})
	}
}

func TestTriggerConfig_Get(t *testing.T) {
	cfg := DefaultTriggerConfig()
	for key, want := range map[string]string{
		"enabled":   "true",
		"mode":      "auto",
		"threshold": "180k",
		"strategy":  "threshold",
	} {
		got, err := cfg.Get(key)
		if err != nil || got != want {
			t.Errorf("Get(%q) = %q, %v; want %q", key, got, err, want)
		}
	}
	if _, err := cfg.Get("nope"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Get(nope) error = %v", err)
	}
}
