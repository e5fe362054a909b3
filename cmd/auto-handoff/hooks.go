package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zxyyang/claude-auto-handoff/embedded"
)

var hooksForce bool

// HookEntry represents a single hook command (e.g., {"type": "command", "command": "..."}).
type HookEntry struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Timeout int    `json:"timeout,omitempty"`
}

// HookGroup represents a hook group with optional matcher and a hooks array.
type HookGroup struct {
	Matcher string      `json:"matcher,omitempty"`
	Hooks   []HookEntry `json:"hooks"`
}

// StatusLine is the settings.json statusLine block.
type StatusLine struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

// HooksConfig holds the hook groups for every event auto-handoff uses.
type HooksConfig struct {
	SessionStart     []HookGroup `json:"SessionStart,omitempty"`
	PostToolUse      []HookGroup `json:"PostToolUse,omitempty"`
	UserPromptSubmit []HookGroup `json:"UserPromptSubmit,omitempty"`
	Stop             []HookGroup `json:"Stop,omitempty"`
	PreCompact       []HookGroup `json:"PreCompact,omitempty"`
}

// HooksManifest is the embedded hooks.json: hook groups plus the status line.
type HooksManifest struct {
	Hooks      *HooksConfig `json:"hooks"`
	StatusLine *StatusLine  `json:"statusLine,omitempty"`
}

// AllEventNames returns the hook events auto-handoff installs, in canonical order.
func AllEventNames() []string {
	return []string{"SessionStart", "PostToolUse", "UserPromptSubmit", "Stop", "PreCompact"}
}

// GetEventGroups returns the hook groups for a given event name.
func (c *HooksConfig) GetEventGroups(event string) []HookGroup {
	switch event {
	case "SessionStart":
		return c.SessionStart
	case "PostToolUse":
		return c.PostToolUse
	case "UserPromptSubmit":
		return c.UserPromptSubmit
	case "Stop":
		return c.Stop
	case "PreCompact":
		return c.PreCompact
	}
	return nil
}

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "Manage the Claude Code hooks",
	Long: `The hooks command manages the Claude Code hooks that drive auto-handoff.

Subcommands:
  init      Print the hooks manifest
  install   Install hooks and the status line to ~/.claude/settings.json
  show      Display the installed hook configuration

Example workflow:
  auto-handoff hooks init          # Review the manifest
  auto-handoff hooks install       # Install to Claude Code
  auto-handoff hooks show          # Verify`,
}

var hooksInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Print the hooks manifest",
	RunE:  runHooksInit,
}

var hooksInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install hooks to Claude Code settings",
	Long: `Install auto-handoff hooks to ~/.claude/settings.json.

This command:
  1. Reads existing settings.json (if any)
  2. Replaces earlier auto-handoff entries and keeps every other hook
  3. Sets the status line unless another one is configured (--force replaces it)
  4. Creates a timestamped backup of the original settings
  5. Writes the updated configuration

Use --force to reinstall over existing auto-handoff hooks.`,
	RunE: runHooksInstall,
}

var hooksShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current hook configuration",
	Long:  `Display the auto-handoff hook coverage from ~/.claude/settings.json.`,
	RunE:  runHooksShow,
}

func init() {
	rootCmd.AddCommand(hooksCmd)
	hooksCmd.AddCommand(hooksInitCmd)
	hooksCmd.AddCommand(hooksInstallCmd)
	hooksCmd.AddCommand(hooksShowCmd)

	hooksInstallCmd.Flags().BoolVar(&hooksForce, "force", false, "Overwrite existing auto-handoff hooks and status line")
}

// ReadHooksManifest parses a hooks.json manifest from raw bytes.
func ReadHooksManifest(data []byte) (*HooksManifest, error) {
	var manifest HooksManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse hooks manifest: %w", err)
	}
	if manifest.Hooks == nil {
		return nil, fmt.Errorf("hooks manifest missing 'hooks' key")
	}
	return &manifest, nil
}

func claudeSettingsPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".claude", "settings.json"), nil
}

func runHooksInit(cmd *cobra.Command, args []string) error {
	manifest, err := ReadHooksManifest(embedded.HooksJSON)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal hooks: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func loadHooksSettings(settingsPath string) (map[string]any, error) {
	rawSettings := make(map[string]any)
	data, err := os.ReadFile(settingsPath)
	if err == nil {
		if err := json.Unmarshal(data, &rawSettings); err != nil {
			return nil, fmt.Errorf("parse existing settings: %w", err)
		}
		return rawSettings, nil
	}
	if os.IsNotExist(err) {
		return rawSettings, nil
	}
	return nil, fmt.Errorf("read settings: %w", err)
}

func cloneHooksMap(rawSettings map[string]any) map[string]any {
	hooksMap := make(map[string]any)
	if existing, ok := rawSettings["hooks"].(map[string]any); ok {
		for k, v := range existing {
			hooksMap[k] = v
		}
	}
	return hooksMap
}

// mergeHookEvents swaps earlier auto-handoff groups for the manifest's,
// keeping every foreign group in place. It returns the installed event count.
func mergeHookEvents(hooksMap map[string]any, newHooks *HooksConfig) int {
	installedEvents := 0
	for _, event := range AllEventNames() {
		newGroups := newHooks.GetEventGroups(event)
		if len(newGroups) == 0 {
			continue
		}
		groups := filterForeignHookGroups(hooksMap, event)
		for _, g := range newGroups {
			groups = append(groups, hookGroupToMap(g))
		}
		hooksMap[event] = groups
		installedEvents++
	}
	return installedEvents
}

// mergeStatusLine sets the status line unless a foreign one is configured
// and force is off. It reports whether the status line was set.
func mergeStatusLine(rawSettings map[string]any, sl *StatusLine, force bool) bool {
	if sl == nil {
		return false
	}
	if existing, ok := rawSettings["statusLine"].(map[string]any); ok && !force {
		if cmd, _ := existing["command"].(string); cmd != "" && !isManagedHookCommand(cmd) {
			return false
		}
	}
	rawSettings["statusLine"] = map[string]any{"type": sl.Type, "command": sl.Command}
	return true
}

func backupHooksSettings(settingsPath string) error {
	if _, err := os.Stat(settingsPath); err != nil {
		return nil
	}
	backupPath := fmt.Sprintf("%s.backup.%s", settingsPath, time.Now().Format("20060102-150405"))
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil
	}
	if err := os.WriteFile(backupPath, data, 0600); err != nil {
		return fmt.Errorf("create backup: %w", err)
	}
	fmt.Printf("Backed up existing settings to %s\n", backupPath)
	return nil
}

func writeHooksSettings(settingsPath string, rawSettings map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(settingsPath), 0755); err != nil {
		return fmt.Errorf("create .claude directory: %w", err)
	}
	data, err := json.MarshalIndent(rawSettings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(settingsPath, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// existingHooksBlock returns true if auto-handoff hooks are already installed
// and --force was not set.
func existingHooksBlock(rawSettings map[string]any) bool {
	if hooksForce {
		return false
	}
	existingHooks, ok := rawSettings["hooks"].(map[string]any)
	return ok && hookGroupContainsManaged(existingHooks, "SessionStart")
}

func runHooksInstall(cmd *cobra.Command, args []string) error {
	settingsPath, err := claudeSettingsPath()
	if err != nil {
		return err
	}
	rawSettings, err := loadHooksSettings(settingsPath)
	if err != nil {
		return err
	}
	manifest, err := ReadHooksManifest(embedded.HooksJSON)
	if err != nil {
		return err
	}

	if existingHooksBlock(rawSettings) {
		fmt.Println("auto-handoff hooks already installed. Use --force to overwrite.")
		return nil
	}

	hooksMap := cloneHooksMap(rawSettings)
	installedEvents := mergeHookEvents(hooksMap, manifest.Hooks)
	rawSettings["hooks"] = hooksMap
	statusLineSet := mergeStatusLine(rawSettings, manifest.StatusLine, hooksForce)

	if GetDryRun() {
		fmt.Println("[dry-run] Would write to", settingsPath)
		data, err := json.MarshalIndent(rawSettings, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal hooks settings: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if err := backupHooksSettings(settingsPath); err != nil {
		return err
	}
	if err := writeHooksSettings(settingsPath, rawSettings); err != nil {
		return err
	}

	fmt.Printf("✓ Installed auto-handoff hooks to %s\n", settingsPath)
	fmt.Printf("Hooks installed: %d/%d events\n", installedEvents, len(AllEventNames()))
	if statusLineSet {
		fmt.Println("Status line: auto-handoff usage")
	} else {
		fmt.Println("Status line: kept existing (use --force to replace)")
	}
	return nil
}

// loadHooksMap reads settings.json and extracts the hooks map.
// Returns (nil, nil) with a printed message when hooks are absent or invalid.
func loadHooksMap(settingsPath string) (map[string]any, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No Claude settings found at", settingsPath)
			fmt.Println("Run 'auto-handoff hooks install' to set up hooks.")
			return nil, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var settings map[string]any
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}

	hooksMap, ok := settings["hooks"].(map[string]any)
	if !ok {
		fmt.Println("No hooks configured in", settingsPath)
		fmt.Println("Run 'auto-handoff hooks install' to set up hooks.")
		return nil, nil
	}
	return hooksMap, nil
}

func runHooksShow(cmd *cobra.Command, args []string) error {
	settingsPath, err := claudeSettingsPath()
	if err != nil {
		return err
	}
	hooksMap, err := loadHooksMap(settingsPath)
	if err != nil || hooksMap == nil {
		return err
	}

	installed := 0
	fmt.Println("Hook Event Coverage:")
	fmt.Println()
	for _, event := range AllEventNames() {
		if hookGroupContainsManaged(hooksMap, event) {
			fmt.Printf("  ✓ %-20s installed\n", event)
			installed++
		} else {
			fmt.Printf("  - %-20s not installed\n", event)
		}
	}
	fmt.Println()
	fmt.Printf("%d/%d events installed\n", installed, len(AllEventNames()))
	if installed < len(AllEventNames()) {
		fmt.Println("Run 'auto-handoff hooks install --force' for complete coverage.")
	}
	return nil
}

// rawGroupIsManaged checks whether a raw hook group runs an auto-handoff command.
func rawGroupIsManaged(group map[string]any) bool {
	hooks, ok := group["hooks"].([]any)
	if !ok {
		return false
	}
	for _, h := range hooks {
		hook, ok := h.(map[string]any)
		if !ok {
			continue
		}
		if cmd, ok := hook["command"].(string); ok && isManagedHookCommand(cmd) {
			return true
		}
	}
	return false
}

// hookGroupContainsManaged checks if any hook group in the given event runs auto-handoff.
func hookGroupContainsManaged(hooksMap map[string]any, event string) bool {
	groups, ok := hooksMap[event].([]any)
	if !ok {
		return false
	}
	for _, g := range groups {
		if group, ok := g.(map[string]any); ok && rawGroupIsManaged(group) {
			return true
		}
	}
	return false
}

// filterForeignHookGroups returns the event's hook groups that do not run auto-handoff.
func filterForeignHookGroups(hooksMap map[string]any, event string) []any {
	result := make([]any, 0)
	groups, ok := hooksMap[event].([]any)
	if !ok {
		return result
	}
	for _, g := range groups {
		group, ok := g.(map[string]any)
		if !ok || !rawGroupIsManaged(group) {
			result = append(result, g)
		}
	}
	return result
}

func isManagedHookCommand(cmd string) bool {
	fields := strings.Fields(cmd)
	if len(fields) < 2 {
		return false
	}
	base := filepath.Base(fields[0])
	return base == binaryName && (fields[1] == "hook" || fields[1] == "usage")
}

// hookGroupToMap converts a HookGroup to a map for JSON serialization.
func hookGroupToMap(g HookGroup) map[string]any {
	hooks := make([]any, len(g.Hooks))
	for i, h := range g.Hooks {
		entry := map[string]any{
			"type":    h.Type,
			"command": h.Command,
		}
		if h.Timeout > 0 {
			entry["timeout"] = h.Timeout
		}
		hooks[i] = entry
	}
	result := map[string]any{
		"hooks": hooks,
	}
	if g.Matcher != "" {
		result["matcher"] = g.Matcher
	}
	return result
}
