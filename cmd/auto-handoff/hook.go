package main

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zxyyang/claude-auto-handoff/internal/config"
	"github.com/zxyyang/claude-auto-handoff/internal/hook"
	"github.com/zxyyang/claude-auto-handoff/internal/instruct"
	"github.com/zxyyang/claude-auto-handoff/internal/updater"
)

var hookCmd = &cobra.Command{
	Use:   "hook <event>",
	Short: "Run a Claude Code hook",
	Long: `Run one Claude Code hook. The event JSON is read from stdin and at most
one JSON reply is written to stdout. The command always exits 0: failures
are logged to the diagnostic log and produce no reply.

Events:
  post-tool-use        Capture the tool call, then check the save point
  user-prompt-submit   Check the save point
  stop                 Check the save point
  pre-compact          Save before the context is compacted
  session-start        Restore saved memory and reset the state

Host event names (PostToolUse, SessionStart, ...) are accepted as well.`,
	Args: cobra.ExactArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, 0, len(hook.Kinds))
		for _, k := range hook.Kinds {
			if strings.HasPrefix(string(k), toComplete) {
				names = append(names, string(k))
			}
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: runHook,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, args []string) error {
	cfg, deps, cleanup := openDeps()
	defer cleanup()

	kind, err := hook.ParseKind(args[0])
	if err != nil {
		deps.Logger.Warn("hook ignored", zap.Error(err))
		return nil
	}

	r := &hook.Runner{Deps: deps, Getwd: os.Getwd}
	if !cfg.VersionCheck.Disabled {
		r.Notice = updateNotice(cfg)
	}
	r.Run(cmdContext(cmd), kind, cmd.InOrStdin(), cmd.OutOrStdout())
	return nil
}

// updateNotice returns the SessionStart notice source backed by the cached
// release check.
func updateNotice(cfg *config.Config) func(context.Context) string {
	checker := updater.New(version, cfg.VersionCheck.Repo, cfg.CacheDir, cfg.CheckInterval())
	return func(ctx context.Context) string {
		res, ok := checker.Cached(ctx)
		if !ok || !res.HasUpdate {
			return ""
		}
		return instruct.UpdateNotice(res.LocalVersion, res.RemoteVersion, res.ReleaseURL)
	}
}
