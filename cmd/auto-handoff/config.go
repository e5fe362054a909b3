package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zxyyang/claude-auto-handoff/internal/config"
	"github.com/zxyyang/claude-auto-handoff/internal/storage"
)

var (
	configShow bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and manage auto-handoff configuration.

Application settings priority (highest to lowest):
  1. Command-line flags
  2. Environment variables (AUTO_HANDOFF_*)
  3. Project config (.auto-handoff/config.yaml)
  4. Home config (~/.auto-handoff/config.yaml)
  5. Defaults

Environment variables:
  AUTO_HANDOFF_CONFIG            - Explicit config file path (overrides the project config location)
  AUTO_HANDOFF_OUTPUT            - Default output format (table, json, yaml)
  AUTO_HANDOFF_CACHE_DIR         - Cache directory (state, trigger config, log)
  AUTO_HANDOFF_MEMORY_DIR        - Memory artifact root
  AUTO_HANDOFF_LOG_LEVEL         - debug, info, warn, error or off
  AUTO_HANDOFF_LOG_FORMAT        - json or console
  AUTO_HANDOFF_CONTEXT_WINDOW    - Assumed context window in tokens
  AUTO_HANDOFF_NO_VERSION_CHECK  - Disable the release check (true/1)

The trigger configuration (auto-handoff-config.json in the cache directory)
is shared with the Claude Code plugin and edited with get/set:
  enabled     true or false
  mode        auto or manual
  threshold   "70%", "180k" or a legacy size in MB (1.5)
  strategy    threshold or transcript

Examples:
  auto-handoff config --show             # Show resolved settings
  auto-handoff config --show -o json     # Output as JSON
  auto-handoff config get threshold
  auto-handoff config set threshold 70%`,
	RunE: runConfig,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print the trigger configuration or one key",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one trigger configuration key",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default trigger configuration if it is missing or corrupt",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.Flags().BoolVar(&configShow, "show", false, "Show resolved configuration with sources")
}

// encodeOutput writes v as JSON or YAML. It reports false for table output.
func encodeOutput(format string, v any) (bool, error) {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		defer func() { _ = enc.Close() }()
		return true, enc.Encode(v)
	}
	return false, nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	if !configShow {
		return cmd.Help()
	}

	resolved := config.Resolve(output, cacheDirFlag)
	if done, err := encodeOutput(GetOutput(), resolved); done {
		return err
	}

	fmt.Println("auto-handoff Configuration")
	fmt.Println("==========================")
	fmt.Println()
	fmt.Println("Resolved values:")
	for _, f := range resolved.Fields() {
		fmt.Printf("  %-24s %v  (from %s)\n", f.Key+":", f.Value, f.Source)
	}

	cfg, _ := loadSettings()
	fmt.Println()
	fmt.Println("Trigger configuration:")
	store := storage.NewConfigStore(cfg.CacheDir)
	if _, err := os.Stat(store.Path()); err == nil {
		fmt.Printf("  ✓ %s\n", store.Path())
	} else {
		fmt.Printf("  ✗ %s (not found, defaults apply)\n", store.Path())
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cfg, _ := loadSettings()
	store := storage.NewConfigStore(cfg.CacheDir)
	tc, err := store.Load()
	if err != nil {
		VerbosePrintf("Using defaults: %v\n", err)
	}

	if len(args) == 1 {
		v, err := tc.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	}

	if done, err := encodeOutput(GetOutput(), tc); done {
		return err
	}
	for _, key := range []string{storage.KeyEnabled, storage.KeyMode, storage.KeyThreshold, storage.KeyStrategy} {
		v, _ := tc.Get(key)
		fmt.Printf("%-10s %s\n", key, v)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cfg, _ := loadSettings()
	store := storage.NewConfigStore(cfg.CacheDir)

	updated, err := store.Read().Set(args[0], args[1])
	if err != nil {
		return err
	}
	v, _ := updated.Get(args[0])

	if GetDryRun() {
		fmt.Printf("[dry-run] Would set %s = %s in %s\n", args[0], v, store.Path())
		return nil
	}
	if err := store.Save(updated); err != nil {
		return fmt.Errorf("save trigger config: %w", err)
	}
	fmt.Printf("%s = %s\n", args[0], v)
	if args[0] == storage.KeyThreshold {
		th := updated.ParsedThreshold()
		fmt.Printf("Saves at %s (threshold %s)\n", th.SavePoint(), th)
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg, _ := loadSettings()
	store := storage.NewConfigStore(cfg.CacheDir)
	if GetDryRun() {
		fmt.Printf("[dry-run] Would initialize %s\n", store.Path())
		return nil
	}
	written, err := store.Init()
	if err != nil {
		return fmt.Errorf("init trigger config: %w", err)
	}
	if written {
		fmt.Printf("Wrote defaults to %s\n", store.Path())
	} else {
		fmt.Printf("%s already exists\n", store.Path())
	}
	return nil
}
