package main

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/zxyyang/claude-auto-handoff/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the handoff tools over MCP (stdio)",
	Long: `Start an MCP server on stdin/stdout exposing:

  handoff_status        Threshold, save point, budget and session state
  handoff_list          Handoff documents with their open TODO count
  handoff_create        Create a handoff document skeleton
  handoff_observations  Recent tool calls captured for a session

Register it with: claude mcp add auto-handoff -- auto-handoff mcp`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, deps, cleanup := openDeps()
		defer cleanup()
		return server.ServeStdio(mcpserver.New(version, deps))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
