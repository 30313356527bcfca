package mcptools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// GetParametersTool handles the get_parameters MCP tool.
type GetParametersTool struct {
	optimizer Optimizer
}

func NewGetParametersTool(optimizer Optimizer) *GetParametersTool {
	return &GetParametersTool{optimizer: optimizer}
}

func (t *GetParametersTool) Definition() mcp.Tool {
	return mcp.NewTool("get_parameters",
		mcp.WithDescription(
			"Return the parameter vector content production should use right now, "+
				"with its generation id and the vector ref to attach to engagement reports.",
		),
	)
}

func (t *GetParametersTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params, err := t.optimizer.CurrentParameters()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parameters unavailable: %v", err)), nil
	}
	return jsonResult(params)
}
