package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jllopis/roundtable/pkg/core"
	rterrors "github.com/jllopis/roundtable/pkg/errors"
)

// ToolCaller abstracts MCP tool execution so adapters can be tested without
// a live server.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// ToolAdapter exposes one MCP tool as a core.Tool for the executor toolbox.
type ToolAdapter struct {
	tool   mcp.Tool
	caller ToolCaller
}

// NewToolAdapter builds a core.Tool backed by an MCP tool definition and caller.
func NewToolAdapter(tool mcp.Tool, caller ToolCaller) (*ToolAdapter, error) {
	if tool.Name == "" {
		return nil, rterrors.New(rterrors.CodeConfiguration, "mcp tool name is required", nil)
	}
	if caller == nil {
		return nil, rterrors.New(rterrors.CodeConfiguration, "mcp tool caller is required", nil)
	}
	return &ToolAdapter{tool: tool, caller: caller}, nil
}

// Name returns the MCP tool name.
func (t *ToolAdapter) Name() string {
	return t.tool.Name
}

// Description returns the MCP tool description.
func (t *ToolAdapter) Description() string {
	return t.tool.Description
}

// Call invokes the MCP tool after checking the schema's required fields.
func (t *ToolAdapter) Call(ctx context.Context, args map[string]any) (any, error) {
	if args == nil {
		args = map[string]any{}
	}
	if err := validateRequiredArgs(t.tool, args); err != nil {
		return nil, err
	}

	result, err := t.caller.CallTool(ctx, t.tool.Name, args)
	if err != nil {
		return nil, err
	}
	return toolResultToOutput(t.tool.Name, result)
}

// LoadTools lists the server's tools and adapts each into a core.Tool.
func LoadTools(ctx context.Context, client *Client) ([]core.Tool, error) {
	mcpTools, err := client.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	tools := make([]core.Tool, 0, len(mcpTools))
	for _, tool := range mcpTools {
		adapter, err := NewToolAdapter(tool, client)
		if err != nil {
			return nil, err
		}
		tools = append(tools, adapter)
	}
	return tools, nil
}

func validateRequiredArgs(tool mcp.Tool, args map[string]any) error {
	schema := tool.InputSchema
	if schema.Type != "" && schema.Type != "object" {
		return nil
	}
	for _, key := range schema.Required {
		if _, ok := args[key]; !ok {
			return fmt.Errorf("tool %s: missing required field %q", tool.Name, key)
		}
	}
	return nil
}

func toolResultToOutput(name string, result *mcp.CallToolResult) (any, error) {
	if result == nil {
		return nil, fmt.Errorf("tool %s: nil result", name)
	}

	if result.IsError {
		return nil, fmt.Errorf("tool %s returned error: %s", name, extractTextContent(result.Content))
	}

	if result.StructuredContent != nil {
		return result.StructuredContent, nil
	}

	if text := extractTextContent(result.Content); text != "" {
		return text, nil
	}

	return result, nil
}

func extractTextContent(items []mcp.Content) string {
	if len(items) == 0 {
		return ""
	}
	var parts []string
	for _, item := range items {
		switch content := item.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		}
	}
	return strings.Join(parts, "\n")
}

var (
	_ core.Tool  = (*ToolAdapter)(nil)
	_ ToolCaller = (*Client)(nil)
)
