package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/phumblot-gs/notiondev/internal/runner"
)

// installHint is returned whenever the CLI binary cannot be found.
const installHint = "Install the notion-dev CLI and make sure it is on PATH. " +
	"Run the check_installation tool for detailed instructions."

// cliCall runs the CLI with --json and converts the error taxonomy into
// tool results.
func cliCall(ctx context.Context, r *runner.Runner, args ...string) (*mcp.CallToolResult, error) {
	out, err := r.Run(ctx, append(args, "--json")...)
	switch {
	case errors.Is(err, runner.ErrNotInstalled):
		return toolError("notion-dev is not installed", installHint), nil
	case errors.Is(err, runner.ErrTimeout):
		return toolError("command timed out", err.Error()), nil
	case err != nil:
		var cmdErr *runner.CommandError
		if errors.As(err, &cmdErr) {
			return toolError(fmt.Sprintf("notion-dev exited with code %d", cmdErr.ExitCode), cmdErr.Stderr), nil
		}
		return nil, err
	}
	return mcp.NewToolResultText(out), nil
}

// CheckInstallationTool reports whether the CLI is available.
type CheckInstallationTool struct {
	runner *runner.Runner
}

func NewCheckInstallationTool(r *runner.Runner) *CheckInstallationTool {
	return &CheckInstallationTool{runner: r}
}

func (t *CheckInstallationTool) Definition() mcp.Tool {
	return mcp.NewTool("check_installation",
		mcp.WithDescription(
			"Check whether the notion-dev CLI is installed and configured. "+
				"Run this first if other tools fail.",
		),
	)
}

func (t *CheckInstallationTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !t.runner.Installed() {
		return jsonResult(map[string]any{
			"installed":    false,
			"instructions": installInstructions,
		}), nil
	}

	out, err := t.runner.Run(ctx, "info", "--json")
	if err != nil {
		return jsonResult(map[string]any{
			"installed":  true,
			"configured": false,
			"error":      err.Error(),
		}), nil
	}
	return jsonResult(map[string]any{
		"installed":  true,
		"configured": true,
		"info":       out,
	}), nil
}

const installInstructions = `# Installing notion-dev

1. Download or build the notion-dev binary and place it on your PATH.
2. Create ~/.notion-dev/config.yml with your Notion and Asana credentials:

   notion:
     token: "secret_..."
     modules_database_id: "..."
     features_database_id: "..."
   asana:
     access_token: "1/..."
     workspace_gid: "..."
     user_gid: "..."

3. Verify the setup with: notion-dev info
`

// InstallInstructionsTool returns setup documentation.
type InstallInstructionsTool struct{}

func NewInstallInstructionsTool() *InstallInstructionsTool {
	return &InstallInstructionsTool{}
}

func (t *InstallInstructionsTool) Definition() mcp.Tool {
	return mcp.NewTool("install_instructions",
		mcp.WithDescription("Get step-by-step instructions for installing and configuring the notion-dev CLI."),
	)
}

func (t *InstallInstructionsTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(installInstructions), nil
}

// InfoTool shows configuration and connection status via the CLI.
type InfoTool struct {
	runner *runner.Runner
}

func NewInfoTool(r *runner.Runner) *InfoTool {
	return &InfoTool{runner: r}
}

func (t *InfoTool) Definition() mcp.Tool {
	return mcp.NewTool("notion_dev_info",
		mcp.WithDescription("Show notion-dev configuration status: Notion and Asana connectivity, current work session."),
	)
}

func (t *InfoTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return cliCall(ctx, t.runner, "info")
}

// TicketsTool lists the developer's Asana tickets via the CLI.
type TicketsTool struct {
	runner *runner.Runner
}

func NewTicketsTool(r *runner.Runner) *TicketsTool {
	return &TicketsTool{runner: r}
}

func (t *TicketsTool) Definition() mcp.Tool {
	return mcp.NewTool("notion_dev_tickets",
		mcp.WithDescription("List your open Asana tickets with their feature codes."),
	)
}

func (t *TicketsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return cliCall(ctx, t.runner, "tickets")
}

// WorkTool starts a work session on a ticket via the CLI.
type WorkTool struct {
	runner *runner.Runner
}

func NewWorkTool(r *runner.Runner) *WorkTool {
	return &WorkTool{runner: r}
}

func (t *WorkTool) Definition() mcp.Tool {
	return mcp.NewTool("notion_dev_work",
		mcp.WithDescription(
			"Start working on an Asana ticket. Loads the linked feature's "+
				"documentation from Notion and exports the context files to .cursor/.",
		),
		mcp.WithString("ticket_id",
			mcp.Required(),
			mcp.Description("Asana task GID to work on"),
		),
	)
}

func (t *WorkTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticketID := req.GetString("ticket_id", "")
	if ticketID == "" {
		return toolError("'ticket_id' is required", ""), nil
	}
	return cliCall(ctx, t.runner, "work", ticketID)
}

// CommentTool posts a comment on the active ticket via the CLI.
type CommentTool struct {
	runner *runner.Runner
}

func NewCommentTool(r *runner.Runner) *CommentTool {
	return &CommentTool{runner: r}
}

func (t *CommentTool) Definition() mcp.Tool {
	return mcp.NewTool("notion_dev_comment",
		mcp.WithDescription("Add a comment to the ticket of the current work session."),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("Comment text to post on the ticket"),
		),
	)
}

func (t *CommentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message := req.GetString("message", "")
	if message == "" {
		return toolError("'message' is required", ""), nil
	}
	return cliCall(ctx, t.runner, "comment", message)
}

// DoneTool completes the current work session via the CLI.
type DoneTool struct {
	runner *runner.Runner
}

func NewDoneTool(r *runner.Runner) *DoneTool {
	return &DoneTool{runner: r}
}

func (t *DoneTool) Definition() mcp.Tool {
	return mcp.NewTool("notion_dev_done",
		mcp.WithDescription("Mark the current ticket as completed and close the work session."),
	)
}

func (t *DoneTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return cliCall(ctx, t.runner, "done")
}
