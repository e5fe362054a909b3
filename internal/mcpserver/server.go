// Package mcpserver exposes auto-handoff state to the session over MCP, so
// the assistant can check the save point, list and create handoff
// documents and read its own observation log without shelling out.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/zxyyang/claude-auto-handoff/internal/handoff"
	"github.com/zxyyang/claude-auto-handoff/internal/memory"
	"github.com/zxyyang/claude-auto-handoff/internal/trigger"
)

// Tools serves the auto-handoff MCP tools.
type Tools struct {
	deps      trigger.Deps
	generator *handoff.Generator
	getwd     func() (string, error)
}

// NewTools creates the tool set. gen may be nil.
func NewTools(deps trigger.Deps, gen *handoff.Generator) *Tools {
	if gen == nil {
		gen = &handoff.Generator{}
	}
	return &Tools{deps: deps, generator: gen, getwd: os.Getwd}
}

// New creates the MCP server with every tool registered.
func New(version string, deps trigger.Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"auto-handoff",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	NewTools(deps, nil).Register(s)
	return s
}

// Register adds the tools to s.
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(t.statusDefinition(), t.handleStatus)
	s.AddTool(t.listDefinition(), t.handleList)
	s.AddTool(t.createDefinition(), t.handleCreate)
	s.AddTool(t.observationsDefinition(), t.handleObservations)
}

func (t *Tools) logger() *zap.Logger {
	if t.deps.Logger == nil {
		return zap.NewNop()
	}
	return t.deps.Logger
}

// project returns the project argument or the working directory.
func (t *Tools) project(req mcp.CallToolRequest) (string, error) {
	if p := strings.TrimSpace(req.GetString("project", "")); p != "" {
		return p, nil
	}
	return t.getwd()
}

// intArg extracts an integer argument (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// --- handoff_status ---

func (t *Tools) statusDefinition() mcp.Tool {
	return mcp.NewTool("handoff_status",
		mcp.WithDescription(
			"Show the auto-handoff trigger configuration, session status, threshold, save point, "+
				"memory budget and, for a session, its cooldown and memory file paths.",
		),
		mcp.WithString("session_id",
			mcp.Description("Session to report cooldown and memory paths for"),
		),
		mcp.WithString("project",
			mcp.Description("Project directory (default: server working directory)"),
		),
		mcp.WithString("format",
			mcp.Description("text (default) or json"),
		),
	)
}

func (t *Tools) handleStatus(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := t.project(req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("resolve project: %v", err)), nil
	}
	snap := trigger.Inspect(t.deps, req.GetString("session_id", ""), project)
	if req.GetString("format", "") == "json" {
		return jsonText(snap), nil
	}

	var sb strings.Builder
	sb.WriteString("## Auto-handoff status\n\n")
	fmt.Fprintf(&sb, "- **Enabled**: %t\n", snap.Config.Enabled)
	fmt.Fprintf(&sb, "- **Mode**: %s\n", snap.Config.Mode)
	fmt.Fprintf(&sb, "- **Strategy**: %s\n", snap.Config.Strategy)
	fmt.Fprintf(&sb, "- **Threshold**: %s (save at %s)\n", snap.Threshold, snap.SavePoint)
	fmt.Fprintf(&sb, "- **Memory budget**: %d tokens\n", snap.Budget)
	fmt.Fprintf(&sb, "- **Status**: %s\n", snap.State.Status)
	if snap.Usage != "" {
		fmt.Fprintf(&sb, "- **Usage**: %s\n", snap.Usage)
	}
	if snap.State.MemoryPath != "" {
		fmt.Fprintf(&sb, "- **Saved memory**: %s\n", snap.State.MemoryPath)
	}
	if snap.SessionID != "" {
		fmt.Fprintf(&sb, "- **Cooldown**: %ds remaining\n", snap.CooldownSeconds)
	}
	if snap.Memory.Index != "" {
		fmt.Fprintf(&sb, "- **Index**: %s\n- **Detail**: %s\n- **Observations**: %s\n",
			snap.Memory.Index, snap.Memory.Detail, snap.Memory.Observations)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// --- handoff_list ---

func (t *Tools) listDefinition() mcp.Tool {
	return mcp.NewTool("handoff_list",
		mcp.WithDescription("List the project's handoff documents, newest first, with their open TODO count."),
		mcp.WithString("project",
			mcp.Description("Project directory (default: server working directory)"),
		),
	)
}

func (t *Tools) handleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := t.project(req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("resolve project: %v", err)), nil
	}
	entries, err := handoff.List(ctx, project)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list handoffs: %v", err)), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("No handoff documents found."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Handoff documents (%d)\n\n", len(entries))
	for _, e := range entries {
		state := "complete"
		if e.Todos > 0 {
			state = fmt.Sprintf("%d TODO", e.Todos)
		}
		fmt.Fprintf(&sb, "- **%s** (%s)\n  %s\n", e.Title, state, e.Path)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// --- handoff_create ---

func (t *Tools) createDefinition() mcp.Tool {
	return mcp.NewTool("handoff_create",
		mcp.WithDescription(
			"Create a handoff document skeleton with git metadata and TODO sections. "+
				"Fill in every [TODO: ...] afterwards.",
		),
		mcp.WithString("slug",
			mcp.Description("Short name for the file (default: auto-handoff)"),
		),
		mcp.WithString("project",
			mcp.Description("Project directory (default: server working directory)"),
		),
	)
}

func (t *Tools) handleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := t.project(req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("resolve project: %v", err)), nil
	}
	path, err := t.generator.Create(ctx, project, req.GetString("slug", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create handoff: %v", err)), nil
	}
	if done, err := trigger.Complete(t.deps.State); err != nil {
		t.logger().Warn("handoff state not completed", zap.Error(err))
	} else if done {
		t.logger().Info("handoff completed", zap.String("path", path))
	}
	return mcp.NewToolResultText("Handoff document created: " + path), nil
}

// --- handoff_observations ---

func (t *Tools) observationsDefinition() mcp.Tool {
	return mcp.NewTool("handoff_observations",
		mcp.WithDescription("Show the most recent tool calls captured for a session (Layer 3 of the memory)."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session whose observation log to read"),
		),
		mcp.WithString("project",
			mcp.Description("Project directory (default: server working directory)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max observations (default: 20, max: 100)"),
		),
	)
}

func (t *Tools) handleObservations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sid := strings.TrimSpace(req.GetString("session_id", ""))
	if sid == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}
	project, err := t.project(req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("resolve project: %v", err)), nil
	}
	limit := min(max(intArg(req, "limit", 20), 1), 100)

	path := t.deps.Layout.For(project, sid).Observations
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return mcp.NewToolResultText("No observations captured for this session."), nil
	}

	log, err := memory.OpenObservationLog(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to open observations: %v", err)), nil
	}
	defer func() { _ = log.Close() }()

	obs, err := log.Recent(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read observations: %v", err)), nil
	}
	if len(obs) == 0 {
		return mcp.NewToolResultText("No observations captured for this session."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Observations (%d most recent)\n\n", len(obs))
	for _, o := range obs {
		fmt.Fprintf(&sb, "### #%d %s (%s)\n", o.ID, o.ToolName, o.CreatedAt.Format("15:04:05"))
		if o.Input != "" {
			fmt.Fprintf(&sb, "- input: %s\n", o.Input)
		}
		if o.Response != "" {
			fmt.Fprintf(&sb, "- response: %s\n", o.Response)
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// jsonText renders v as an indented JSON tool result.
func jsonText(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}
