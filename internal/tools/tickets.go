package tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/phumblot-gs/notiondev/internal/asana"
	"github.com/phumblot-gs/notiondev/internal/models"
	"github.com/phumblot-gs/notiondev/internal/remote"
)

// ticketPayload is the JSON view of a task returned by ticket tools.
func ticketPayload(task *models.Task) map[string]any {
	return map[string]any{
		"gid":          task.GID,
		"name":         task.Name,
		"notes":        task.Notes,
		"completed":    task.Completed,
		"due_on":       task.DueOn,
		"feature_code": task.FeatureCode(),
		"url":          task.URL(),
	}
}

// backendError maps backend identity errors to structured tool errors.
func backendError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, remote.ErrNoUser):
		return toolError("no authenticated user for this request", "the OAuth proxy did not forward an identity")
	case errors.Is(err, remote.ErrUserUnresolved):
		return toolError("your email has no matching Asana account", err.Error())
	case errors.Is(err, remote.ErrNotConfigured):
		return toolError("backend is not configured", err.Error())
	default:
		return toolError(err.Error(), "")
	}
}

// ListTicketsTool lists the requesting user's open tickets.
type ListTicketsTool struct {
	backend *remote.Backend
}

func NewListTicketsTool(b *remote.Backend) *ListTicketsTool {
	return &ListTicketsTool{backend: b}
}

func (t *ListTicketsTool) Definition() mcp.Tool {
	return mcp.NewTool("get_my_tickets",
		mcp.WithDescription("List your open Asana tickets, with the Notion feature code each one references."),
	)
}

func (t *ListTicketsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tasks, err := t.backend.GetUserTickets(ctx)
	if err != nil {
		return backendError(err), nil
	}

	payload := make([]map[string]any, 0, len(tasks))
	for _, task := range tasks {
		payload = append(payload, ticketPayload(task))
	}
	return jsonResult(map[string]any{"tickets": payload, "count": len(payload)}), nil
}

// GetTicketTool fetches one ticket by GID.
type GetTicketTool struct {
	backend *remote.Backend
}

func NewGetTicketTool(b *remote.Backend) *GetTicketTool {
	return &GetTicketTool{backend: b}
}

func (t *GetTicketTool) Definition() mcp.Tool {
	return mcp.NewTool("get_ticket",
		mcp.WithDescription("Get one Asana ticket by its GID."),
		mcp.WithString("ticket_id",
			mcp.Required(),
			mcp.Description("Asana task GID"),
		),
	)
}

func (t *GetTicketTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticketID := req.GetString("ticket_id", "")
	if ticketID == "" {
		return toolError("'ticket_id' is required", ""), nil
	}

	task, err := t.backend.GetTicket(ctx, ticketID)
	if err != nil {
		return backendError(err), nil
	}
	if task == nil {
		return toolError("ticket not found", ticketID), nil
	}
	return jsonResult(ticketPayload(task)), nil
}

// CreateTicketTool creates a ticket assigned to the requesting user.
type CreateTicketTool struct {
	backend *remote.Backend
}

func NewCreateTicketTool(b *remote.Backend) *CreateTicketTool {
	return &CreateTicketTool{backend: b}
}

func (t *CreateTicketTool) Definition() mcp.Tool {
	return mcp.NewTool("create_ticket",
		mcp.WithDescription(
			"Create an Asana ticket assigned to you. Without a project the "+
				"configured default project is used. Reference a feature by "+
				"starting the name with its code, e.g. 'CC01: fix login'.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Ticket title, ideally prefixed with a feature code"),
		),
		mcp.WithString("notes",
			mcp.Description("Ticket description"),
		),
		mcp.WithString("feature_code",
			mcp.Description("Feature the ticket implements (e.g. CC01); recorded in the notes"),
		),
		mcp.WithString("project_id",
			mcp.Description("Asana project GID; defaults to the configured project"),
		),
		mcp.WithString("due_on",
			mcp.Description("Due date, YYYY-MM-DD"),
		),
	)
}

// featureNotes prepends the feature reference the ticket carries in its
// body, matching what the work commands parse.
func featureNotes(code, notes string) string {
	if code == "" {
		return notes
	}
	return "**Feature**: " + code + "\n\n" + notes
}

func (t *CreateTicketTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return toolError("'name' is required", ""), nil
	}

	task, err := t.backend.CreateTicket(ctx, asana.CreateTaskParams{
		Name:       name,
		Notes:      featureNotes(req.GetString("feature_code", ""), req.GetString("notes", "")),
		ProjectGID: req.GetString("project_id", ""),
		DueOn:      req.GetString("due_on", ""),
	})
	if err != nil {
		return backendError(err), nil
	}
	if task == nil {
		return toolError("ticket creation failed", "Asana returned no task"), nil
	}
	return jsonResult(ticketPayload(task)), nil
}

// UpdateTicketTool applies a partial update to a ticket.
type UpdateTicketTool struct {
	backend *remote.Backend
}

func NewUpdateTicketTool(b *remote.Backend) *UpdateTicketTool {
	return &UpdateTicketTool{backend: b}
}

func (t *UpdateTicketTool) Definition() mcp.Tool {
	return mcp.NewTool("update_ticket",
		mcp.WithDescription("Update an Asana ticket: rename it, change notes, set a due date, or mark it complete."),
		mcp.WithString("ticket_id",
			mcp.Required(),
			mcp.Description("Asana task GID"),
		),
		mcp.WithString("name",
			mcp.Description("New ticket title"),
		),
		mcp.WithString("notes",
			mcp.Description("New notes; replaces existing notes unless append is true"),
		),
		mcp.WithString("append",
			mcp.Description("Set to 'true' to append notes instead of replacing"),
			mcp.DefaultString("false"),
			mcp.Enum("true", "false"),
		),
		mcp.WithString("due_on",
			mcp.Description("Due date, YYYY-MM-DD"),
		),
		mcp.WithString("completed",
			mcp.Description("Set to 'true' to complete the ticket"),
			mcp.Enum("true", "false"),
		),
	)
}

func (t *UpdateTicketTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticketID := req.GetString("ticket_id", "")
	if ticketID == "" {
		return toolError("'ticket_id' is required", ""), nil
	}

	var params asana.UpdateTaskParams
	if name := req.GetString("name", ""); name != "" {
		params.Name = &name
	}
	if notes := req.GetString("notes", ""); notes != "" {
		params.Notes = &notes
		params.AppendNotes = req.GetString("append", "false") == "true"
	}
	if due := req.GetString("due_on", ""); due != "" {
		params.DueOn = &due
	}
	if completed := req.GetString("completed", ""); completed != "" {
		done := completed == "true"
		params.Completed = &done
	}

	task, err := t.backend.UpdateTicket(ctx, ticketID, params)
	if err != nil {
		return backendError(err), nil
	}
	if task == nil {
		return toolError("ticket not found", ticketID), nil
	}
	return jsonResult(ticketPayload(task)), nil
}

// AddCommentTool posts a comment on a ticket.
type AddCommentTool struct {
	backend *remote.Backend
}

func NewAddCommentTool(b *remote.Backend) *AddCommentTool {
	return &AddCommentTool{backend: b}
}

func (t *AddCommentTool) Definition() mcp.Tool {
	return mcp.NewTool("add_comment",
		mcp.WithDescription("Add a comment to an Asana ticket."),
		mcp.WithString("ticket_id",
			mcp.Required(),
			mcp.Description("Asana task GID"),
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("Comment text"),
		),
	)
}

func (t *AddCommentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticketID := req.GetString("ticket_id", "")
	message := req.GetString("message", "")
	if ticketID == "" {
		return toolError("'ticket_id' is required", ""), nil
	}
	if message == "" {
		return toolError("'message' is required", ""), nil
	}

	if err := t.backend.AddComment(ctx, ticketID, message); err != nil {
		return backendError(err), nil
	}
	return jsonResult(map[string]any{"ok": true, "ticket_id": ticketID}), nil
}

// ListProjectsTool lists the projects of the configured portfolio.
type ListProjectsTool struct {
	backend *remote.Backend
}

func NewListProjectsTool(b *remote.Backend) *ListProjectsTool {
	return &ListProjectsTool{backend: b}
}

func (t *ListProjectsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_projects",
		mcp.WithDescription("List the Asana projects tickets can be created in."),
	)
}

func (t *ListProjectsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := t.backend.GetProjects(ctx)
	if err != nil {
		return backendError(err), nil
	}

	rows := make([]map[string]any, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, map[string]any{"gid": p.GID, "name": p.Name})
	}
	return jsonResult(map[string]any{"projects": rows, "count": len(rows)}), nil
}

// BackendInfoTool reports the backend's configuration state.
type BackendInfoTool struct {
	backend *remote.Backend
}

func NewBackendInfoTool(b *remote.Backend) *BackendInfoTool {
	return &BackendInfoTool{backend: b}
}

func (t *BackendInfoTool) Definition() mcp.Tool {
	return mcp.NewTool("notion_dev_info",
		mcp.WithDescription("Show backend configuration status and the identity this request is running as."),
	)
}

func (t *BackendInfoTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(t.backend.Info(ctx)), nil
}
