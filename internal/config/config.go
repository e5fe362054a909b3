// Package config provides application settings for auto-handoff.
// Settings are loaded from (highest to lowest priority):
// 1. Command-line flags
// 2. Environment variables (AUTO_HANDOFF_*)
// 3. Project config (.auto-handoff/config.yaml in cwd)
// 4. Home config (~/.auto-handoff/config.yaml)
// 5. Defaults
//
// The trigger configuration (enabled, mode, threshold, strategy) is not part
// of these settings; it lives in the cache directory as JSON and is shared
// with the host plugin. See storage.ConfigStore.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zxyyang/claude-auto-handoff/internal/memory"
	"github.com/zxyyang/claude-auto-handoff/internal/storage"
)

// Config holds all auto-handoff application settings.
type Config struct {
	// Output controls the default output format (table, json, yaml).
	Output string `yaml:"output" json:"output"`

	// CacheDir holds trigger config, session state, cooldown markers and
	// the log (default: ~/.claude/cache).
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// MemoryDir is the memory artifact root
	// (default: ~/.claude/auto-handoff/memory).
	MemoryDir string `yaml:"memory_dir" json:"memory_dir"`

	// ContextWindow is the window size in tokens assumed when the host does
	// not report one. 0 means the built-in default.
	ContextWindow int `yaml:"context_window" json:"context_window"`

	Log LogConfig `yaml:"log" json:"log"`

	VersionCheck VersionCheckConfig `yaml:"version_check" json:"version_check"`
}

// LogConfig holds diagnostic log settings.
type LogConfig struct {
	// Level is debug, info, warn, error or off. Default: warn.
	Level string `yaml:"level" json:"level"`

	// Format is json or console. Default: json.
	Format string `yaml:"format" json:"format"`

	// Path overrides the log file. Default: <cache_dir>/auto-handoff.log.
	Path string `yaml:"path" json:"path"`
}

// VersionCheckConfig holds update check settings.
type VersionCheckConfig struct {
	// Disabled turns the check off. Stored inverted so the zero value of a
	// partial YAML file keeps the check on.
	Disabled bool `yaml:"disabled" json:"disabled"`

	// Repo is the GitHub owner/name probed for releases.
	Repo string `yaml:"repo" json:"repo"`

	// Interval is how long a probe result is reused, as a Go duration.
	// Default: 24h.
	Interval string `yaml:"interval" json:"interval"`
}

// Default config values (used in resolution and validation).
const (
	defaultOutput    = "table"
	defaultLogLevel  = "warn"
	defaultLogFormat = "json"
	defaultRepo      = "zxyyang/claude-auto-handoff"
	defaultInterval  = "24h"
)

// Environment variables.
const (
	EnvConfig         = "AUTO_HANDOFF_CONFIG"
	EnvOutput         = "AUTO_HANDOFF_OUTPUT"
	EnvCacheDir       = "AUTO_HANDOFF_CACHE_DIR"
	EnvMemoryDir      = "AUTO_HANDOFF_MEMORY_DIR"
	EnvLogLevel       = "AUTO_HANDOFF_LOG_LEVEL"
	EnvLogFormat      = "AUTO_HANDOFF_LOG_FORMAT"
	EnvNoVersionCheck = "AUTO_HANDOFF_NO_VERSION_CHECK"
	EnvContextWindow  = "AUTO_HANDOFF_CONTEXT_WINDOW"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Output:    defaultOutput,
		CacheDir:  storage.DefaultCacheDir(),
		MemoryDir: memory.DefaultRoot(),
		Log: LogConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		VersionCheck: VersionCheckConfig{
			Repo:     defaultRepo,
			Interval: defaultInterval,
		},
	}
}

// LogPath is the resolved diagnostic log file.
func (c *Config) LogPath() string {
	if c.Log.Path != "" {
		return c.Log.Path
	}
	return filepath.Join(c.CacheDir, storage.LogFile)
}

// CheckInterval parses VersionCheck.Interval, falling back to 24h.
func (c *Config) CheckInterval() time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(c.VersionCheck.Interval))
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// Load loads configuration with proper precedence.
// Priority: flags > env > project > home > defaults
func Load(flagOverrides *Config) (*Config, error) {
	cfg := Default()

	homeConfig, _ := loadFromPath(homeConfigPath())
	if homeConfig != nil {
		cfg = merge(cfg, homeConfig)
	}

	// A broken project file drops that layer only; env and flags still apply.
	projectConfig, projectErr := loadFromPath(projectConfigPath())
	if projectErr != nil && os.IsNotExist(projectErr) {
		projectErr = nil
	}
	if projectErr == nil && projectConfig != nil {
		cfg = merge(cfg, projectConfig)
	}

	cfg = applyEnv(cfg)

	if flagOverrides != nil {
		cfg = merge(cfg, flagOverrides)
	}

	cfg.CacheDir = expandHome(cfg.CacheDir)
	cfg.MemoryDir = expandHome(cfg.MemoryDir)
	cfg.Log.Path = expandHome(cfg.Log.Path)
	return cfg, projectErr
}

// homeConfigPath returns the home config path.
func homeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".auto-handoff", "config.yaml")
}

// projectConfigPath returns the project config path.
func projectConfigPath() string {
	if override := strings.TrimSpace(os.Getenv(EnvConfig)); override != "" {
		return override
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, ".auto-handoff", "config.yaml")
}

// loadFromPath loads config from a YAML file.
func loadFromPath(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// applyEnv applies environment variable overrides.
func applyEnv(cfg *Config) *Config {
	if v := os.Getenv(EnvOutput); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv(EnvMemoryDir); v != "" {
		cfg.MemoryDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Log.Format = v
	}
	if v, ok := getEnvBool(EnvNoVersionCheck); ok && v {
		cfg.VersionCheck.Disabled = true
	}
	if n, ok := getEnvInt(EnvContextWindow); ok {
		cfg.ContextWindow = n
	}
	return cfg
}

// mergeStr overwrites dst with src when src is non-empty.
func mergeStr(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// mergeInt overwrites dst with src when src is positive.
func mergeInt(dst *int, src int) {
	if src > 0 {
		*dst = src
	}
}

// merge merges src into dst, with src values taking precedence.
// Disabled only ever turns the version check off.
func merge(dst, src *Config) *Config {
	mergeStr(&dst.Output, src.Output)
	mergeStr(&dst.CacheDir, src.CacheDir)
	mergeStr(&dst.MemoryDir, src.MemoryDir)
	mergeInt(&dst.ContextWindow, src.ContextWindow)

	mergeStr(&dst.Log.Level, src.Log.Level)
	mergeStr(&dst.Log.Format, src.Log.Format)
	mergeStr(&dst.Log.Path, src.Log.Path)

	if src.VersionCheck.Disabled {
		dst.VersionCheck.Disabled = true
	}
	mergeStr(&dst.VersionCheck.Repo, src.VersionCheck.Repo)
	mergeStr(&dst.VersionCheck.Interval, src.VersionCheck.Interval)
	return dst
}

// Source represents where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceHome    Source = "~/.auto-handoff/config.yaml"
	SourceProject Source = ".auto-handoff/config.yaml"
	SourceEnv     Source = "environment"
	SourceFlag    Source = "flag"
)

// getEnvString returns the value and whether the env var was set.
func getEnvString(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

// getEnvBool returns the boolean value and whether the var held a
// recognizable boolean.
func getEnvBool(key string) (bool, bool) {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return false, false
	}
	return b, true
}

func getEnvInt(key string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// resolveStringField resolves a string through the precedence chain.
func resolveStringField(home, project, env, flag, def string) Resolved {
	result := Resolved{Value: def, Source: SourceDefault}
	if home != "" {
		result = Resolved{Value: home, Source: SourceHome}
	}
	if project != "" {
		result = Resolved{Value: project, Source: SourceProject}
	}
	if env != "" {
		result = Resolved{Value: env, Source: SourceEnv}
	}
	if flag != "" {
		result = Resolved{Value: flag, Source: SourceFlag}
	}
	return result
}

// Resolved is one setting with its source.
type Resolved struct {
	Value  any    `json:"value" yaml:"value"`
	Source Source `json:"source" yaml:"source"`
}

// ResolvedConfig shows config values with their sources.
type ResolvedConfig struct {
	Output            Resolved `json:"output" yaml:"output"`
	CacheDir          Resolved `json:"cache_dir" yaml:"cache_dir"`
	MemoryDir         Resolved `json:"memory_dir" yaml:"memory_dir"`
	ContextWindow     Resolved `json:"context_window" yaml:"context_window"`
	LogLevel          Resolved `json:"log_level" yaml:"log_level"`
	LogFormat         Resolved `json:"log_format" yaml:"log_format"`
	VersionCheck      Resolved `json:"version_check" yaml:"version_check"`
	VersionCheckRepo  Resolved `json:"version_check_repo" yaml:"version_check_repo"`
	VersionCheckEvery Resolved `json:"version_check_interval" yaml:"version_check_interval"`
}

// Fields returns the resolved settings in display order.
func (rc *ResolvedConfig) Fields() []struct {
	Key string
	Resolved
} {
	type field = struct {
		Key string
		Resolved
	}
	return []field{
		{"output", rc.Output},
		{"cache_dir", rc.CacheDir},
		{"memory_dir", rc.MemoryDir},
		{"context_window", rc.ContextWindow},
		{"log.level", rc.LogLevel},
		{"log.format", rc.LogFormat},
		{"version_check.enabled", rc.VersionCheck},
		{"version_check.repo", rc.VersionCheckRepo},
		{"version_check.interval", rc.VersionCheckEvery},
	}
}

// Resolve returns configuration with source tracking.
// Uses precedence chain: flags > env > project > home > defaults.
func Resolve(flagOutput, flagCacheDir string) *ResolvedConfig {
	home, _ := loadFromPath(homeConfigPath())
	project, _ := loadFromPath(projectConfigPath())
	if home == nil {
		home = &Config{}
	}
	if project == nil {
		project = &Config{}
	}
	def := Default()

	envOutput, _ := getEnvString(EnvOutput)
	envCache, _ := getEnvString(EnvCacheDir)
	envMemory, _ := getEnvString(EnvMemoryDir)
	envLevel, _ := getEnvString(EnvLogLevel)
	envFormat, _ := getEnvString(EnvLogFormat)

	rc := &ResolvedConfig{
		Output:            resolveStringField(home.Output, project.Output, envOutput, flagOutput, def.Output),
		CacheDir:          resolveStringField(home.CacheDir, project.CacheDir, envCache, flagCacheDir, def.CacheDir),
		MemoryDir:         resolveStringField(home.MemoryDir, project.MemoryDir, envMemory, "", def.MemoryDir),
		LogLevel:          resolveStringField(home.Log.Level, project.Log.Level, envLevel, "", def.Log.Level),
		LogFormat:         resolveStringField(home.Log.Format, project.Log.Format, envFormat, "", def.Log.Format),
		VersionCheckRepo:  resolveStringField(home.VersionCheck.Repo, project.VersionCheck.Repo, "", "", def.VersionCheck.Repo),
		VersionCheckEvery: resolveStringField(home.VersionCheck.Interval, project.VersionCheck.Interval, "", "", def.VersionCheck.Interval),
	}

	// Context window: 0 means "not set" at every layer.
	rc.ContextWindow = Resolved{Value: 0, Source: SourceDefault}
	if home.ContextWindow > 0 {
		rc.ContextWindow = Resolved{Value: home.ContextWindow, Source: SourceHome}
	}
	if project.ContextWindow > 0 {
		rc.ContextWindow = Resolved{Value: project.ContextWindow, Source: SourceProject}
	}
	if n, ok := getEnvInt(EnvContextWindow); ok {
		rc.ContextWindow = Resolved{Value: n, Source: SourceEnv}
	}

	// Version check: any layer may only disable it.
	rc.VersionCheck = Resolved{Value: true, Source: SourceDefault}
	if home.VersionCheck.Disabled {
		rc.VersionCheck = Resolved{Value: false, Source: SourceHome}
	}
	if project.VersionCheck.Disabled {
		rc.VersionCheck = Resolved{Value: false, Source: SourceProject}
	}
	if v, ok := getEnvBool(EnvNoVersionCheck); ok && v {
		rc.VersionCheck = Resolved{Value: false, Source: SourceEnv}
	}

	return rc
}
