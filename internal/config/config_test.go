package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var allEnv = []string{
	EnvOutput, EnvCacheDir, EnvMemoryDir, EnvLogLevel, EnvLogFormat,
	EnvNoVersionCheck, EnvContextWindow,
}

// isolate points HOME at a temp dir, disables the project config and clears
// every AUTO_HANDOFF_* variable.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvConfig, filepath.Join(home, "no-such-project.yaml"))
	for _, key := range allEnv {
		t.Setenv(key, "")
	}
	return home
}

func writeYAML(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDefault(t *testing.T) {
	home := isolate(t)
	cfg := Default()

	if cfg.Output != "table" {
		t.Errorf("Default Output = %q, want %q", cfg.Output, "table")
	}
	if want := filepath.Join(home, ".claude", "cache"); cfg.CacheDir != want {
		t.Errorf("Default CacheDir = %q, want %q", cfg.CacheDir, want)
	}
	if want := filepath.Join(home, ".claude", "auto-handoff", "memory"); cfg.MemoryDir != want {
		t.Errorf("Default MemoryDir = %q, want %q", cfg.MemoryDir, want)
	}
	if cfg.Log.Level != "warn" || cfg.Log.Format != "json" {
		t.Errorf("Default Log = %+v", cfg.Log)
	}
	if cfg.VersionCheck.Disabled || cfg.VersionCheck.Repo != "zxyyang/claude-auto-handoff" {
		t.Errorf("Default VersionCheck = %+v", cfg.VersionCheck)
	}
	if cfg.LogPath() != filepath.Join(cfg.CacheDir, "auto-handoff.log") {
		t.Errorf("LogPath = %q", cfg.LogPath())
	}
}

func TestCheckInterval(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"24h", 24 * time.Hour},
		{"90m", 90 * time.Minute},
		{"", 24 * time.Hour},
		{"soon", 24 * time.Hour},
		{"-1h", 24 * time.Hour},
	}
	for _, tt := range tests {
		cfg := &Config{VersionCheck: VersionCheckConfig{Interval: tt.in}}
		if got := cfg.CheckInterval(); got != tt.want {
			t.Errorf("CheckInterval(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMerge(t *testing.T) {
	dst := Default()
	src := &Config{
		Output:   "json",
		CacheDir: "/custom/cache",
		Log:      LogConfig{Level: "debug"},
	}

	result := merge(dst, src)

	if result.Output != "json" {
		t.Errorf("merge Output = %q, want %q", result.Output, "json")
	}
	if result.CacheDir != "/custom/cache" {
		t.Errorf("merge CacheDir = %q, want %q", result.CacheDir, "/custom/cache")
	}
	if result.Log.Level != "debug" {
		t.Errorf("merge Log.Level = %q", result.Log.Level)
	}
	// Defaults should be preserved when not overridden
	if result.Log.Format != "json" || result.VersionCheck.Interval != "24h" {
		t.Errorf("merge lost defaults: %+v", result)
	}
}

func TestMerge_VersionCheckOnlyDisables(t *testing.T) {
	dst := Default()
	dst.VersionCheck.Disabled = true

	result := merge(dst, &Config{Output: "yaml"})
	if !result.VersionCheck.Disabled {
		t.Error("a layer without the setting must not re-enable the check")
	}
}

func TestApplyEnv(t *testing.T) {
	isolate(t)
	t.Setenv(EnvOutput, "yaml")
	t.Setenv(EnvCacheDir, "/env/cache")
	t.Setenv(EnvMemoryDir, "/env/memory")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvLogFormat, "console")
	t.Setenv(EnvNoVersionCheck, "1")
	t.Setenv(EnvContextWindow, "1000000")

	cfg := applyEnv(Default())

	if cfg.Output != "yaml" || cfg.CacheDir != "/env/cache" || cfg.MemoryDir != "/env/memory" {
		t.Errorf("applyEnv = %+v", cfg)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "console" {
		t.Errorf("applyEnv Log = %+v", cfg.Log)
	}
	if !cfg.VersionCheck.Disabled {
		t.Error("applyEnv should disable the version check")
	}
	if cfg.ContextWindow != 1000000 {
		t.Errorf("applyEnv ContextWindow = %d", cfg.ContextWindow)
	}
}

func TestApplyEnv_InvalidValuesIgnored(t *testing.T) {
	isolate(t)
	t.Setenv(EnvNoVersionCheck, "maybe")
	t.Setenv(EnvContextWindow, "-5")

	cfg := applyEnv(Default())
	if cfg.VersionCheck.Disabled {
		t.Error("unparseable bool should be ignored")
	}
	if cfg.ContextWindow != 0 {
		t.Errorf("ContextWindow = %d, want 0", cfg.ContextWindow)
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeYAML(t, path, `
output: json
cache_dir: /c
context_window: 1000000
log:
  level: debug
version_check:
  disabled: true
  interval: 1h
`)
	cfg, err := loadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Output != "json" || cfg.CacheDir != "/c" || cfg.ContextWindow != 1000000 {
		t.Errorf("loadFromPath = %+v", cfg)
	}
	if cfg.Log.Level != "debug" || !cfg.VersionCheck.Disabled || cfg.VersionCheck.Interval != "1h" {
		t.Errorf("loadFromPath nested = %+v", cfg)
	}
}

func TestLoadFromPath_Errors(t *testing.T) {
	if cfg, err := loadFromPath(""); cfg != nil || err != nil {
		t.Errorf("empty path = %v, %v", cfg, err)
	}
	if _, err := loadFromPath(filepath.Join(t.TempDir(), "missing.yaml")); !os.IsNotExist(err) {
		t.Errorf("missing file error = %v", err)
	}
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	writeYAML(t, bad, "output: [unclosed")
	if _, err := loadFromPath(bad); err == nil {
		t.Error("expected YAML error")
	}
}

func TestLoad_Precedence(t *testing.T) {
	home := isolate(t)
	writeYAML(t, filepath.Join(home, ".auto-handoff", "config.yaml"), `
output: yaml
memory_dir: ~/mem
log:
  level: info
`)
	project := filepath.Join(t.TempDir(), "project.yaml")
	writeYAML(t, project, `
output: json
`)
	t.Setenv(EnvConfig, project)
	t.Setenv(EnvLogLevel, "error")

	cfg, err := Load(&Config{CacheDir: "/flag/cache"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Output != "json" {
		t.Errorf("project should beat home: Output = %q", cfg.Output)
	}
	if cfg.MemoryDir != filepath.Join(home, "mem") {
		t.Errorf("home value with ~ should expand: MemoryDir = %q", cfg.MemoryDir)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("env should beat files: Log.Level = %q", cfg.Log.Level)
	}
	if cfg.CacheDir != "/flag/cache" {
		t.Errorf("flag should beat everything: CacheDir = %q", cfg.CacheDir)
	}
}

func TestLoad_BrokenProjectConfig(t *testing.T) {
	isolate(t)
	project := filepath.Join(t.TempDir(), "project.yaml")
	writeYAML(t, project, "log: [")
	t.Setenv(EnvConfig, project)

	cfg, err := Load(nil)
	if err == nil {
		t.Fatal("expected error for malformed project config")
	}
	if cfg == nil || cfg.Output != "table" {
		t.Errorf("Load should still return defaults, got %+v", cfg)
	}
}

func TestLoad_BrokenProjectConfigKeepsEnvAndFlags(t *testing.T) {
	isolate(t)
	project := filepath.Join(t.TempDir(), "project.yaml")
	writeYAML(t, project, "log: [")
	t.Setenv(EnvConfig, project)
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvOutput, "yaml")

	cfg, err := Load(&Config{CacheDir: "/flag/cache"})
	if err == nil {
		t.Fatal("expected error for malformed project config")
	}
	if cfg.CacheDir != "/flag/cache" {
		t.Errorf("CacheDir = %q, want flag value", cfg.CacheDir)
	}
	if cfg.Log.Level != "debug" || cfg.Output != "yaml" {
		t.Errorf("env not applied: level=%q output=%q", cfg.Log.Level, cfg.Output)
	}
	if cfg.LogPath() != filepath.Join("/flag/cache", "auto-handoff.log") {
		t.Errorf("LogPath = %q", cfg.LogPath())
	}
}

func TestProjectConfigPath(t *testing.T) {
	t.Setenv(EnvConfig, "  /explicit/config.yaml ")
	if got := projectConfigPath(); got != "/explicit/config.yaml" {
		t.Errorf("projectConfigPath = %q", got)
	}

	t.Setenv(EnvConfig, "")
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := projectConfigPath(), filepath.Join(cwd, ".auto-handoff", "config.yaml"); got != want {
		t.Errorf("projectConfigPath = %q, want %q", got, want)
	}
}

func TestResolveStringField(t *testing.T) {
	tests := []struct {
		name                     string
		home, project, env, flag string
		wantValue                string
		wantSource               Source
	}{
		{"default", "", "", "", "", "def", SourceDefault},
		{"home", "h", "", "", "", "h", SourceHome},
		{"project beats home", "h", "p", "", "", "p", SourceProject},
		{"env beats project", "h", "p", "e", "", "e", SourceEnv},
		{"flag beats env", "h", "p", "e", "f", "f", SourceFlag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveStringField(tt.home, tt.project, tt.env, tt.flag, "def")
			if got.Value != tt.wantValue || got.Source != tt.wantSource {
				t.Errorf("got %+v, want %s from %s", got, tt.wantValue, tt.wantSource)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	home := isolate(t)
	writeYAML(t, filepath.Join(home, ".auto-handoff", "config.yaml"), `
context_window: 1000000
version_check:
  disabled: true
`)
	t.Setenv(EnvLogFormat, "console")

	rc := Resolve("yaml", "")

	if rc.Output.Value != "yaml" || rc.Output.Source != SourceFlag {
		t.Errorf("Output = %+v", rc.Output)
	}
	if rc.CacheDir.Source != SourceDefault {
		t.Errorf("CacheDir = %+v", rc.CacheDir)
	}
	if rc.LogFormat.Value != "console" || rc.LogFormat.Source != SourceEnv {
		t.Errorf("LogFormat = %+v", rc.LogFormat)
	}
	if rc.ContextWindow.Value != 1000000 || rc.ContextWindow.Source != SourceHome {
		t.Errorf("ContextWindow = %+v", rc.ContextWindow)
	}
	if rc.VersionCheck.Value != false || rc.VersionCheck.Source != SourceHome {
		t.Errorf("VersionCheck = %+v", rc.VersionCheck)
	}

	fields := rc.Fields()
	if len(fields) != 9 || fields[0].Key != "output" || fields[6].Key != "version_check.enabled" {
		t.Errorf("Fields = %+v", fields)
	}
}
