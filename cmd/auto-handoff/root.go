package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zxyyang/claude-auto-handoff/internal/config"
	"github.com/zxyyang/claude-auto-handoff/internal/logging"
	"github.com/zxyyang/claude-auto-handoff/internal/memory"
	"github.com/zxyyang/claude-auto-handoff/internal/storage"
	"github.com/zxyyang/claude-auto-handoff/internal/trigger"
)

// binaryName is the command written into hook manifests and instructions.
const binaryName = "auto-handoff"

var (
	// Global flags
	dryRun       bool
	verbose      bool
	output       string
	cfgFile      string
	cacheDirFlag string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   binaryName,
	Short: "Automatic session handoff for Claude Code",
	Long: `auto-handoff watches context usage from Claude Code hooks and asks the
session to save its working memory before the context window fills up.
The next session in the same project starts from that memory.

Hook entry points:
  hook         Run one hook (reads the event JSON on stdin)
  usage        Status line reporter; records context usage

Setup:
  hooks        Install the hooks into ~/.claude/settings.json
  config       Show settings, get or set the trigger configuration

Inspection:
  status       Show threshold, save point, budget and session state
  handoff      Create and list handoff documents
  mcp          Serve the handoff tools over MCP (stdio)
  version      Show version information`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		syncConfigFlagToEnv()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Show what would happen without executing")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "Output format (json, table, yaml)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: .auto-handoff/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&cacheDirFlag, "cache-dir", "", "Cache directory (default: ~/.claude/cache)")
}

// GetDryRun returns the dry-run flag value for use by subcommands.
func GetDryRun() bool {
	return dryRun
}

// GetVerbose returns the verbose flag value for use by subcommands.
func GetVerbose() bool {
	return verbose
}

// GetOutput returns the output format: the flag, then configuration, then table.
func GetOutput() string {
	if output != "" {
		return output
	}
	if cfg, _ := config.Load(nil); cfg != nil && cfg.Output != "" {
		return cfg.Output
	}
	return "table"
}

// GetConfigFile returns the config file path for use by subcommands.
func GetConfigFile() string {
	return cfgFile
}

// VerbosePrintf prints only when verbose mode is enabled.
func VerbosePrintf(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format, args...)
	}
}

func syncConfigFlagToEnv() {
	path := strings.TrimSpace(GetConfigFile())
	if path == "" {
		return
	}
	_ = os.Setenv(config.EnvConfig, path)
}

// cmdContext returns the command's context, or Background when the command
// runs outside Execute.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadSettings resolves application settings with flag overrides applied.
// A broken project config is reported and the remaining layers are used.
func loadSettings() (*config.Config, error) {
	return config.Load(&config.Config{CacheDir: cacheDirFlag, Output: output})
}

// openDeps builds the stores and logger every engine-facing command uses.
// cleanup flushes the log file and must always be called.
func openDeps() (cfg *config.Config, deps trigger.Deps, cleanup func()) {
	cfg, cfgErr := loadSettings()

	logger, cleanup, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Path:   cfg.LogPath(),
	})
	if err != nil {
		// Never stdout: hooks reply on it.
		fmt.Fprintf(os.Stderr, "auto-handoff: logging disabled: %v\n", err)
	}
	if cfgErr != nil {
		logger.Warn("project config unreadable, using other layers", zap.Error(cfgErr))
	}

	deps = trigger.Deps{
		Config:        storage.NewConfigStore(cfg.CacheDir),
		State:         storage.NewStateStore(cfg.CacheDir),
		Cooldown:      storage.NewCooldownGuard(cfg.CacheDir),
		Layout:        memory.Layout{Root: cfg.MemoryDir},
		Logger:        logger,
		ContextWindow: cfg.ContextWindow,
		Binary:        binaryName,
	}
	return cfg, deps, cleanup
}
