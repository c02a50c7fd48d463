package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/phumblot-gs/notiondev/internal/models"
	"github.com/phumblot-gs/notiondev/internal/notion"
	"github.com/phumblot-gs/notiondev/internal/remote"
)

func featurePayload(f *models.Feature, withContent bool) map[string]any {
	payload := map[string]any{
		"code":        f.Code,
		"name":        f.Name,
		"status":      f.Status,
		"plan":        f.Plan,
		"user_rights": f.UserRights,
		"module":      f.ModuleName(),
	}
	if withContent {
		payload["content"] = f.Content
		if f.Module != nil {
			payload["module_description"] = f.Module.Description
		}
	}
	return payload
}

// ListFeaturesTool lists features, optionally for one module.
type ListFeaturesTool struct {
	backend *remote.Backend
}

func NewListFeaturesTool(b *remote.Backend) *ListFeaturesTool {
	return &ListFeaturesTool{backend: b}
}

func (t *ListFeaturesTool) Definition() mcp.Tool {
	return mcp.NewTool("list_features",
		mcp.WithDescription("List documented features from Notion, optionally filtered by module prefix."),
		mcp.WithString("module_prefix",
			mcp.Description("Restrict to one module's features (e.g. CC)"),
		),
	)
}

func (t *ListFeaturesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	features, err := t.backend.GetFeatures(ctx, req.GetString("module_prefix", ""))
	if err != nil {
		return backendError(err), nil
	}

	payload := make([]map[string]any, 0, len(features))
	for _, f := range features {
		payload = append(payload, featurePayload(f, false))
	}
	return jsonResult(map[string]any{"features": payload, "count": len(payload)}), nil
}

// GetFeatureTool fetches one feature with its full documentation.
type GetFeatureTool struct {
	backend *remote.Backend
}

func NewGetFeatureTool(b *remote.Backend) *GetFeatureTool {
	return &GetFeatureTool{backend: b}
}

func (t *GetFeatureTool) Definition() mcp.Tool {
	return mcp.NewTool("get_feature",
		mcp.WithDescription("Get one feature by code (e.g. CC01), documentation and module context included."),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("Feature code"),
		),
	)
}

func (t *GetFeatureTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code := req.GetString("code", "")
	if code == "" {
		return toolError("'code' is required", ""), nil
	}

	feature, err := t.backend.GetFeature(ctx, code)
	if err != nil {
		return backendError(err), nil
	}
	if feature == nil {
		return toolError("feature not found", code), nil
	}
	return jsonResult(featurePayload(feature, true)), nil
}

// CreateFeatureTool creates a feature page, allocating the next code.
type CreateFeatureTool struct {
	backend *remote.Backend
}

func NewCreateFeatureTool(b *remote.Backend) *CreateFeatureTool {
	return &CreateFeatureTool{backend: b}
}

func (t *CreateFeatureTool) Definition() mcp.Tool {
	return mcp.NewTool("create_feature",
		mcp.WithDescription(
			"Create a new feature in a module. The next free code (e.g. CC03) "+
				"is allocated automatically. Use the feature_template prompt for "+
				"the expected documentation structure.",
		),
		mcp.WithString("module_prefix",
			mcp.Required(),
			mcp.Description("Module the feature belongs to (e.g. CC)"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Feature name"),
		),
		mcp.WithString("content",
			mcp.Description("Feature documentation as markdown"),
		),
		mcp.WithString("plan",
			mcp.Description("Comma-separated plans the feature applies to"),
		),
		mcp.WithString("user_rights",
			mcp.Description("Comma-separated user rights required"),
		),
	)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (t *CreateFeatureTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prefix := req.GetString("module_prefix", "")
	name := req.GetString("name", "")
	if prefix == "" {
		return toolError("'module_prefix' is required", ""), nil
	}
	if name == "" {
		return toolError("'name' is required", ""), nil
	}

	module, err := t.backend.GetModule(ctx, prefix)
	if err != nil {
		return backendError(err), nil
	}
	if module == nil {
		return toolError("module not found", prefix+": create the module first"), nil
	}

	notionClient, err := t.backend.Notion()
	if err != nil {
		return backendError(err), nil
	}
	code, err := notionClient.NextFeatureCode(ctx, prefix)
	if err != nil {
		return backendError(err), nil
	}

	feature, err := t.backend.CreateFeature(ctx, notion.CreateFeatureParams{
		Code:            code,
		Name:            name,
		ModuleID:        module.NotionID,
		Plan:            splitList(req.GetString("plan", "")),
		UserRights:      splitList(req.GetString("user_rights", "")),
		ContentMarkdown: req.GetString("content", ""),
	})
	if err != nil {
		return backendError(err), nil
	}
	return jsonResult(featurePayload(feature, false)), nil
}

// UpdateFeatureContentTool rewrites or appends a feature's documentation.
type UpdateFeatureContentTool struct {
	backend *remote.Backend
}

func NewUpdateFeatureContentTool(b *remote.Backend) *UpdateFeatureContentTool {
	return &UpdateFeatureContentTool{backend: b}
}

func (t *UpdateFeatureContentTool) Definition() mcp.Tool {
	return mcp.NewTool("update_feature_content",
		mcp.WithDescription("Replace or append to a feature's Notion documentation."),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("Feature code (e.g. CC01)"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Markdown content"),
		),
		mcp.WithString("mode",
			mcp.Description("'replace' rewrites the page, 'append' adds to the end"),
			mcp.DefaultString("replace"),
			mcp.Enum("replace", "append"),
		),
	)
}

func (t *UpdateFeatureContentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code := req.GetString("code", "")
	content := req.GetString("content", "")
	if code == "" {
		return toolError("'code' is required", ""), nil
	}
	if content == "" {
		return toolError("'content' is required", ""), nil
	}
	replace := req.GetString("mode", "replace") == "replace"

	feature, err := t.backend.UpdateFeatureContent(ctx, code, content, replace)
	if err != nil {
		return backendError(err), nil
	}
	if feature == nil {
		return toolError("feature not found", code), nil
	}
	return jsonResult(map[string]any{"ok": true, "code": code, "replaced": replace}), nil
}
