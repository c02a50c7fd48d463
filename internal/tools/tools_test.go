package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/phumblot-gs/notiondev/internal/config"
	"github.com/phumblot-gs/notiondev/internal/remote"
	"github.com/phumblot-gs/notiondev/internal/runner"
)

func newRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", result.Content[0])
	}
	return text.Text
}

func decodeError(t *testing.T, result *mcp.CallToolResult) map[string]string {
	t.Helper()
	if !result.IsError {
		t.Fatal("expected error result")
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(resultText(t, result)), &payload); err != nil {
		t.Fatalf("error payload is not JSON: %v", err)
	}
	return payload
}

func unconfiguredBackend() *remote.Backend {
	return remote.New(config.Remote{}, zap.NewNop())
}

func TestCheckInstallation_NotInstalled(t *testing.T) {
	tool := NewCheckInstallationTool(runner.New("definitely-not-a-binary-xyz", "", zap.NewNop()))

	result, err := tool.Handle(context.Background(), newRequest(nil))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, `"installed": false`) {
		t.Errorf("expected installed:false, got %s", text)
	}
	if !strings.Contains(text, "Installing notion-dev") {
		t.Error("expected install instructions in response")
	}
}

func TestWorkTool_RequiresTicketID(t *testing.T) {
	tool := NewWorkTool(runner.New("notion-dev", "", zap.NewNop()))

	result, err := tool.Handle(context.Background(), newRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	payload := decodeError(t, result)
	if payload["error"] != "'ticket_id' is required" {
		t.Errorf("error = %q", payload["error"])
	}
}

func TestCommentTool_RequiresMessage(t *testing.T) {
	tool := NewCommentTool(runner.New("notion-dev", "", zap.NewNop()))

	result, err := tool.Handle(context.Background(), newRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if payload := decodeError(t, result); payload["error"] != "'message' is required" {
		t.Errorf("error = %q", payload["error"])
	}
}

func TestTicketsTool_NotInstalledIsStructuredError(t *testing.T) {
	tool := NewTicketsTool(runner.New("definitely-not-a-binary-xyz", "", zap.NewNop()))

	result, err := tool.Handle(context.Background(), newRequest(nil))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	payload := decodeError(t, result)
	if payload["error"] != "notion-dev is not installed" {
		t.Errorf("error = %q", payload["error"])
	}
	if payload["details"] == "" {
		t.Error("expected install hint in details")
	}
}

func TestListTickets_UnconfiguredBackend(t *testing.T) {
	tool := NewListTicketsTool(unconfiguredBackend())

	ctx := remote.WithUser(context.Background(), &remote.User{
		Email:    "alice@example.com",
		AsanaGID: "gid-alice",
	})
	result, err := tool.Handle(ctx, newRequest(nil))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if payload := decodeError(t, result); payload["error"] != "backend is not configured" {
		t.Errorf("error = %q", payload["error"])
	}
}

func TestListTickets_NoUser(t *testing.T) {
	tool := NewListTicketsTool(unconfiguredBackend())

	result, err := tool.Handle(context.Background(), newRequest(nil))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if payload := decodeError(t, result); payload["error"] != "no authenticated user for this request" {
		t.Errorf("error = %q", payload["error"])
	}
}

func TestGetFeature_RequiresCode(t *testing.T) {
	tool := NewGetFeatureTool(unconfiguredBackend())

	result, err := tool.Handle(context.Background(), newRequest(map[string]any{"code": ""}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if payload := decodeError(t, result); payload["error"] != "'code' is required" {
		t.Errorf("error = %q", payload["error"])
	}
}

func TestSplitList(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"premium", 1},
		{"premium, basic", 2},
		{" a ,, b ", 2},
	}
	for _, tc := range cases {
		if got := splitList(tc.in); len(got) != tc.want {
			t.Errorf("splitList(%q) = %v, want %d items", tc.in, got, tc.want)
		}
	}
}

func TestFeatureNotes(t *testing.T) {
	if got := featureNotes("CC01", "build the form"); got != "**Feature**: CC01\n\nbuild the form" {
		t.Errorf("featureNotes = %q", got)
	}
	if got := featureNotes("", "build the form"); got != "build the form" {
		t.Errorf("featureNotes without code = %q", got)
	}
}

func TestToolDefinitionsHaveNames(t *testing.T) {
	b := unconfiguredBackend()
	r := runner.New("notion-dev", "", zap.NewNop())

	// The two sets are registered separately: local servers get the CLI
	// tools, remote servers the backend tools. Names must be unique
	// within each set.
	sets := map[string][]mcp.Tool{
		"local": {
			NewCheckInstallationTool(r).Definition(),
			NewInstallInstructionsTool().Definition(),
			NewInfoTool(r).Definition(),
			NewTicketsTool(r).Definition(),
			NewWorkTool(r).Definition(),
			NewCommentTool(r).Definition(),
			NewDoneTool(r).Definition(),
		},
		"remote": {
			NewListTicketsTool(b).Definition(),
			NewGetTicketTool(b).Definition(),
			NewCreateTicketTool(b).Definition(),
			NewUpdateTicketTool(b).Definition(),
			NewAddCommentTool(b).Definition(),
			NewListProjectsTool(b).Definition(),
			NewBackendInfoTool(b).Definition(),
			NewListModulesTool(b).Definition(),
			NewGetModuleTool(b).Definition(),
			NewCreateModuleTool(b).Definition(),
			NewListFeaturesTool(b).Definition(),
			NewGetFeatureTool(b).Definition(),
			NewCreateFeatureTool(b).Definition(),
			NewUpdateFeatureContentTool(b).Definition(),
		},
	}

	for mode, defs := range sets {
		seen := map[string]bool{}
		for _, def := range defs {
			if def.Name == "" {
				t.Errorf("%s: tool with empty name", mode)
			}
			if seen[def.Name] {
				t.Errorf("%s: duplicate tool name %q", mode, def.Name)
			}
			seen[def.Name] = true
			if def.Description == "" {
				t.Errorf("%s: tool %q has no description", mode, def.Name)
			}
		}
	}
}
