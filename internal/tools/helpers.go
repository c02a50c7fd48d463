// Package tools implements the MCP tool handlers.
//
// Each tool is a struct holding its dependencies and exposing a
// Definition for registration plus a Handle compatible with mcp-go's
// CallToolRequest signature. One file groups the tools sharing a
// dependency: cli.go for the subprocess-delegating tools, tickets.go
// for Asana, modules.go and features.go for Notion.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// jsonResult marshals v as indented JSON for the client.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encoding result: %v", err), "")
	}
	return mcp.NewToolResultText(string(data))
}

// toolError renders a structured error payload. Details are optional.
func toolError(msg, details string) *mcp.CallToolResult {
	payload := map[string]string{"error": msg}
	if details != "" {
		payload["details"] = details
	}
	data, _ := json.Marshal(payload)
	return mcp.NewToolResultError(string(data))
}
