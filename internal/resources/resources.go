// Package resources implements the MCP resource handlers.
//
// Resources are read-only context the host can pull: the redacted
// configuration, the active work session, and the methodology document.
// URIs follow the notiondev:// scheme.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/phumblot-gs/notiondev/internal/config"
	"github.com/phumblot-gs/notiondev/internal/prompts"
	"github.com/phumblot-gs/notiondev/internal/remote"
	"github.com/phumblot-gs/notiondev/internal/state"
)

// Handler serves the resource endpoints. cfg and store back the local
// server; backend backs the remote one. Unset dependencies make the
// corresponding resource report its absence instead of failing.
type Handler struct {
	cfg     *config.Config
	store   *state.Store
	backend *remote.Backend
}

// NewLocalHandler creates the handler for a stdio server.
func NewLocalHandler(cfg *config.Config, store *state.Store) *Handler {
	return &Handler{cfg: cfg, store: store}
}

// NewRemoteHandler creates the handler for the hosted server.
func NewRemoteHandler(backend *remote.Backend) *Handler {
	return &Handler{backend: backend}
}

// ConfigResource describes notiondev://config.
func (h *Handler) ConfigResource() mcp.Resource {
	return mcp.NewResource(
		"notiondev://config",
		"NotionDev Configuration",
		mcp.WithResourceDescription("Current configuration with credentials redacted"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleConfig returns the configuration with every token replaced by a
// marker. Raw credentials never leave the process.
func (h *Handler) HandleConfig(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	var payload map[string]any

	switch {
	case h.backend != nil:
		payload = h.backend.Info(ctx)
	case h.cfg != nil:
		payload = map[string]any{
			"mode": "local",
			"notion": map[string]any{
				"token":                redact(h.cfg.Notion.Token),
				"modules_database_id":  h.cfg.Notion.DatabaseModulesID,
				"features_database_id": h.cfg.Notion.DatabaseFeaturesID,
			},
			"asana": map[string]any{
				"access_token":  redact(h.cfg.Asana.AccessToken),
				"workspace_gid": h.cfg.Asana.WorkspaceGID,
				"user_gid":      h.cfg.Asana.UserGID,
			},
		}
	default:
		return errorResource(req.Params.URI, "no configuration loaded"), nil
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// CurrentTaskResource describes notiondev://current-task.
func (h *Handler) CurrentTaskResource() mcp.Resource {
	return mcp.NewResource(
		"notiondev://current-task",
		"Current Work Session",
		mcp.WithResourceDescription("The ticket and feature currently being worked on"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleCurrentTask returns the open work session, if any.
func (h *Handler) HandleCurrentTask(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if h.store == nil {
		return errorResource(req.Params.URI, "work sessions are not tracked on this server"), nil
	}

	session, err := h.store.Current()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	var payload any
	if session == nil {
		payload = map[string]any{"active": false}
	} else {
		payload = map[string]any{"active": true, "session": session}
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling session: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// MethodologyResource describes notiondev://methodology.
func (h *Handler) MethodologyResource() mcp.Resource {
	return mcp.NewResource(
		"notiondev://methodology",
		"Development Methodology",
		mcp.WithResourceDescription("The feature-driven development workflow"),
		mcp.WithMIMEType("text/markdown"),
	)
}

// HandleMethodology returns the methodology document.
func (h *Handler) HandleMethodology(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     prompts.Methodology,
		},
	}, nil
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}

func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
