package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zxyyang/claude-auto-handoff/internal/trigger"
)

var (
	statusSession string
	statusCwd     string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show auto-handoff status",
	Long: `Display the trigger configuration, session state, parsed threshold,
save point and memory budget. With --session, also show the cooldown and
memory file locations for that session.

Examples:
  auto-handoff status
  auto-handoff status --session abc123 -o json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusSession, "session", "", "Session ID to inspect")
	statusCmd.Flags().StringVar(&statusCwd, "cwd", "", "Project directory (default: current directory)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	_, deps, cleanup := openDeps()
	defer cleanup()

	project := statusCwd
	if project == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		project = cwd
	}

	snap := trigger.Inspect(deps, statusSession, project)
	if done, err := encodeOutput(GetOutput(), snap); done {
		return err
	}
	return outputStatusTable(snap)
}

func outputStatusTable(s trigger.Snapshot) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	//nolint:errcheck // CLI tabwriter output to stdout, errors unlikely and non-recoverable
	fmt.Fprintf(w, "Enabled:\t%t\n", s.Config.Enabled)
	fmt.Fprintf(w, "Mode:\t%s\n", s.Config.Mode)
	fmt.Fprintf(w, "Strategy:\t%s\n", s.Config.Strategy)
	fmt.Fprintf(w, "Threshold:\t%s\n", s.Threshold)
	fmt.Fprintf(w, "Save point:\t%s\n", s.SavePoint)
	fmt.Fprintf(w, "Memory budget:\t%d tokens\n", s.Budget)
	fmt.Fprintf(w, "Status:\t%s\n", s.State.Status)
	if s.State.TS > 0 {
		fmt.Fprintf(w, "Updated:\t%s\n", time.UnixMilli(s.State.TS).Format(time.RFC3339))
	}
	if s.Usage != "" {
		fmt.Fprintf(w, "Usage:\t%s\n", s.Usage)
	}
	if s.State.MemoryPath != "" {
		fmt.Fprintf(w, "Saved memory:\t%s\n", s.State.MemoryPath)
	}
	if s.SessionID != "" {
		fmt.Fprintf(w, "Session:\t%s\n", s.SessionID)
		fmt.Fprintf(w, "Cooldown:\t%ds remaining\n", s.CooldownSeconds)
	}
	if s.Memory.Index != "" {
		fmt.Fprintf(w, "Index:\t%s\n", s.Memory.Index)
		fmt.Fprintf(w, "Detail:\t%s\n", s.Memory.Detail)
		fmt.Fprintf(w, "Observations:\t%s\n", s.Memory.Observations)
	}
	return w.Flush()
}
