package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zxyyang/claude-auto-handoff/internal/budget"
	"github.com/zxyyang/claude-auto-handoff/internal/usage"
)

var (
	usageUsed      int
	usageTotal     int
	usageRemaining float64
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Record context usage and print the status line",
	Long: `Read the Claude Code status-line JSON on stdin, record the measured
context usage in the session state and print a one-line summary:

  ctx 56% (112K/200K) | save 55% ! | limit 70%

"!" marks a crossed save point. When the payload carries no context-window
data, usage comes from the last assistant message in the transcript.
--used, --total and --remaining replace stdin.`,
	Args: cobra.NoArgs,
	RunE: runUsage,
}

func init() {
	rootCmd.AddCommand(usageCmd)
	usageCmd.Flags().IntVar(&usageUsed, "used", 0, "Used context tokens")
	usageCmd.Flags().IntVar(&usageTotal, "total", 0, "Context window size in tokens")
	usageCmd.Flags().Float64Var(&usageRemaining, "remaining", 0, "Remaining context percentage")
}

// flagReading builds a reading from the command-line flags, or reports
// false when none was given.
func flagReading(cmd *cobra.Command, defaultTotal int) (budget.Reading, bool) {
	f := cmd.Flags()
	if !f.Changed("used") && !f.Changed("total") && !f.Changed("remaining") {
		return budget.Reading{}, false
	}

	p := usage.Payload{ContextWindow: &usage.ContextWindow{}}
	if f.Changed("total") && usageTotal > 0 {
		p.ContextWindow.Size = &usageTotal
	}
	if f.Changed("remaining") {
		p.ContextWindow.RemainingPercentage = &usageRemaining
	}
	r := usage.Measure(p, defaultTotal)
	if f.Changed("used") && usageUsed >= 0 {
		used := usageUsed
		r.UsedTokens = &used
		if r.RemainingPct == nil && r.TotalTokens != nil && *r.TotalTokens > 0 {
			pct := max(0, 100-float64(used)/float64(*r.TotalTokens)*100)
			r.RemainingPct = &pct
		}
	}
	return r, true
}

func runUsage(cmd *cobra.Command, args []string) error {
	_, deps, cleanup := openDeps()
	defer cleanup()
	log := deps.Logger.With(zap.String("command", "usage"))

	r, ok := flagReading(cmd, deps.ContextWindow)
	if !ok {
		p, err := usage.Decode(cmd.InOrStdin())
		if err != nil {
			log.Warn("status line payload unreadable", zap.Error(err))
		}
		r = usage.Measure(p, deps.ContextWindow)
	}

	if r.UsedTokens == nil && r.RemainingPct == nil {
		// Nothing measured: show the last recorded reading.
		r = usage.FromState(deps.State.Read())
	} else if !GetDryRun() {
		if _, err := usage.Record(deps.State, r); err != nil {
			log.Warn("usage not recorded", zap.Error(err))
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), usage.Line(r, deps.Config.Read().ParsedThreshold()))
	return nil
}
