package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// GenerationHistoryTool handles the generation_history MCP tool.
type GenerationHistoryTool struct {
	optimizer Optimizer
}

func NewGenerationHistoryTool(optimizer Optimizer) *GenerationHistoryTool {
	return &GenerationHistoryTool{optimizer: optimizer}
}

func (t *GenerationHistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("generation_history",
		mcp.WithDescription("List recent generations, newest first, with their status and fitness summary."),
		mcp.WithNumber("limit",
			mcp.Description("Number of generations to return (default: 10)"),
		),
	)
}

func (t *GenerationHistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := intArg(req, "limit", 10)
	if limit <= 0 {
		limit = 10
	}
	generations, err := t.optimizer.History(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history failed: %v", err)), nil
	}
	if len(generations) == 0 {
		return mcp.NewToolResultText("No generations recorded yet."), nil
	}

	var b strings.Builder
	for _, g := range generations {
		fmt.Fprintf(&b, "#%d %s activated=%s", g.ID, g.Status, g.ActivatedRef)
		if g.Diagnostics != nil {
			fmt.Fprintf(&b, " best=%.4f mean=%.4f scored=%d",
				g.Diagnostics.BestFitness, g.Diagnostics.MeanFitness, g.Diagnostics.ScoredCount)
		}
		if g.StallCount > 0 {
			fmt.Fprintf(&b, " stalls=%d", g.StallCount)
		}
		if g.SuccessorID != nil {
			fmt.Fprintf(&b, " -> #%d", *g.SuccessorID)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}
