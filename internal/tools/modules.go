package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/phumblot-gs/notiondev/internal/models"
	"github.com/phumblot-gs/notiondev/internal/notion"
	"github.com/phumblot-gs/notiondev/internal/remote"
)

func modulePayload(m *models.Module, withContent bool) map[string]any {
	payload := map[string]any{
		"name":        m.Name,
		"description": m.Description,
		"code_prefix": m.CodePrefix,
		"application": m.Application,
		"status":      m.Status,
	}
	if withContent {
		payload["content"] = m.Content
	}
	return payload
}

// ListModulesTool lists the documented modules.
type ListModulesTool struct {
	backend *remote.Backend
}

func NewListModulesTool(b *remote.Backend) *ListModulesTool {
	return &ListModulesTool{backend: b}
}

func (t *ListModulesTool) Definition() mcp.Tool {
	return mcp.NewTool("list_modules",
		mcp.WithDescription("List all documented modules from Notion with their code prefixes."),
	)
}

func (t *ListModulesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	modules, err := t.backend.GetModules(ctx)
	if err != nil {
		return backendError(err), nil
	}

	payload := make([]map[string]any, 0, len(modules))
	for _, m := range modules {
		payload = append(payload, modulePayload(m, false))
	}
	return jsonResult(map[string]any{"modules": payload, "count": len(payload)}), nil
}

// GetModuleTool fetches one module with its documentation body.
type GetModuleTool struct {
	backend *remote.Backend
}

func NewGetModuleTool(b *remote.Backend) *GetModuleTool {
	return &GetModuleTool{backend: b}
}

func (t *GetModuleTool) Definition() mcp.Tool {
	return mcp.NewTool("get_module",
		mcp.WithDescription("Get one module by its code prefix, full documentation included."),
		mcp.WithString("code_prefix",
			mcp.Required(),
			mcp.Description("Module code prefix, 2-3 uppercase letters (e.g. CC)"),
		),
	)
}

func (t *GetModuleTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prefix := req.GetString("code_prefix", "")
	if prefix == "" {
		return toolError("'code_prefix' is required", ""), nil
	}

	module, err := t.backend.GetModule(ctx, prefix)
	if err != nil {
		return backendError(err), nil
	}
	if module == nil {
		return toolError("module not found", prefix), nil
	}
	return jsonResult(modulePayload(module, true)), nil
}

// CreateModuleTool creates a module page.
type CreateModuleTool struct {
	backend *remote.Backend
}

func NewCreateModuleTool(b *remote.Backend) *CreateModuleTool {
	return &CreateModuleTool{backend: b}
}

func (t *CreateModuleTool) Definition() mcp.Tool {
	return mcp.NewTool("create_module",
		mcp.WithDescription(
			"Create a new module in the Notion modules database. "+
				"Use the module_template prompt for the expected documentation structure.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Module name"),
		),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("One-line module description"),
		),
		mcp.WithString("code_prefix",
			mcp.Required(),
			mcp.Description("Unique 2-3 uppercase letter prefix (e.g. CC)"),
		),
		mcp.WithString("application",
			mcp.Required(),
			mcp.Description("Which application the module belongs to"),
			mcp.Enum("Backend", "Frontend", "Service"),
		),
		mcp.WithString("content",
			mcp.Description("Module documentation as markdown"),
		),
	)
}

func (t *CreateModuleTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	prefix := req.GetString("code_prefix", "")
	if name == "" {
		return toolError("'name' is required", ""), nil
	}
	if prefix == "" {
		return toolError("'code_prefix' is required", ""), nil
	}

	// Prefix collisions would orphan features, so reject them here.
	existing, err := t.backend.GetModule(ctx, prefix)
	if err != nil {
		return backendError(err), nil
	}
	if existing != nil {
		return toolError("module prefix already in use", prefix+" is "+existing.Name), nil
	}

	module, err := t.backend.CreateModule(ctx, notion.CreateModuleParams{
		Name:            name,
		Description:     req.GetString("description", ""),
		CodePrefix:      prefix,
		Application:     req.GetString("application", ""),
		ContentMarkdown: req.GetString("content", ""),
	})
	if err != nil {
		return backendError(err), nil
	}
	return jsonResult(modulePayload(module, false)), nil
}
