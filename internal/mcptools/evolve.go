package mcptools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"brandevo/internal/platform"
)

// EvolveTool handles the evolve MCP tool.
type EvolveTool struct {
	optimizer Optimizer
}

func NewEvolveTool(optimizer Optimizer) *EvolveTool {
	return &EvolveTool{optimizer: optimizer}
}

func (t *EvolveTool) Definition() mcp.Tool {
	return mcp.NewTool("evolve",
		mcp.WithDescription(
			"Score the active generation from recorded engagement and, when enough "+
				"data exists, commit a successor generation. Returns evolved, stalled or busy.",
		),
	)
}

func (t *EvolveTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := t.optimizer.Evolve(ctx)
	if errors.Is(err, platform.ErrEvolutionInProgress) {
		return jsonResult(map[string]string{"status": "busy"})
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("evolve failed: %v", err)), nil
	}
	return jsonResult(result)
}
