package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zxyyang/claude-auto-handoff/internal/handoff"
	"github.com/zxyyang/claude-auto-handoff/internal/trigger"
)

var handoffCwd string

var handoffCmd = &cobra.Command{
	Use:   "handoff",
	Short: "Create and list handoff documents",
	Long: `Handoff documents are Markdown files under <project>/.claude/handoffs
that the next session reads to pick up the work. create writes a skeleton
with git metadata and [TODO: ...] sections for the session to fill in.`,
}

var handoffCreateCmd = &cobra.Command{
	Use:   "create [slug]",
	Short: "Create a handoff document skeleton",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHandoffCreate,
}

var handoffListCmd = &cobra.Command{
	Use:   "list",
	Short: "List handoff documents, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHandoffList,
}

func init() {
	rootCmd.AddCommand(handoffCmd)
	handoffCmd.AddCommand(handoffCreateCmd)
	handoffCmd.AddCommand(handoffListCmd)
	handoffCmd.PersistentFlags().StringVar(&handoffCwd, "cwd", "", "Project directory (default: current directory)")
}

func handoffProject() (string, error) {
	if handoffCwd != "" {
		return handoffCwd, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return cwd, nil
}

func runHandoffCreate(cmd *cobra.Command, args []string) error {
	project, err := handoffProject()
	if err != nil {
		return err
	}
	slug := ""
	if len(args) == 1 {
		slug = args[0]
	}

	if GetDryRun() {
		fmt.Printf("[dry-run] Would create %s/<timestamp>-%s.md\n", handoff.Dir(project), handoff.Slug(slug))
		return nil
	}

	_, deps, cleanup := openDeps()
	defer cleanup()

	gen := &handoff.Generator{}
	path, err := gen.Create(cmdContext(cmd), project, slug)
	if err != nil {
		return fmt.Errorf("create handoff: %w", err)
	}
	done, err := trigger.Complete(deps.State)
	if err != nil {
		deps.Logger.Warn("handoff state not completed", zap.Error(err))
	}

	fmt.Printf("Created %s\n", path)
	fmt.Printf("Fill in every %s ...] section before ending the session.\n", handoff.TodoMarker)
	if done {
		VerbosePrintf("Handoff marked completed\n")
	}
	return nil
}

func runHandoffList(cmd *cobra.Command, args []string) error {
	project, err := handoffProject()
	if err != nil {
		return err
	}
	entries, err := handoff.List(cmdContext(cmd), project)
	if err != nil {
		return fmt.Errorf("list handoffs: %w", err)
	}
	if done, err := encodeOutput(GetOutput(), entries); done {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No handoff documents found")
		return nil
	}

	fmt.Printf("Handoff documents (%d)\n", len(entries))
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	//nolint:errcheck // CLI tabwriter output to stdout, errors unlikely and non-recoverable
	fmt.Fprintln(w, "FILE\tTITLE\tTODO")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\n", e.Filename, e.Title, e.Todos)
	}
	return w.Flush()
}
