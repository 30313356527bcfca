package mcptools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"brandevo/internal/model"
)

// SubmitEngagementTool handles the submit_engagement MCP tool.
type SubmitEngagementTool struct {
	optimizer Optimizer
}

func NewSubmitEngagementTool(optimizer Optimizer) *SubmitEngagementTool {
	return &SubmitEngagementTool{optimizer: optimizer}
}

func (t *SubmitEngagementTool) Definition() mcp.Tool {
	return mcp.NewTool("submit_engagement",
		mcp.WithDescription(
			"Record one engagement observation for content rendered with the vector "+
				"identified by generation_id and index. Observations for superseded "+
				"generations are rejected.",
		),
		mcp.WithNumber("generation_id",
			mcp.Required(),
			mcp.Description("Generation the content was rendered from"),
		),
		mcp.WithNumber("index",
			mcp.Required(),
			mcp.Description("Individual slot within the generation"),
		),
		mcp.WithNumber("views", mcp.Required(), mcp.Description("View count, at least 0")),
		mcp.WithNumber("likes", mcp.Description("Like count (default: 0)")),
		mcp.WithNumber("shares", mcp.Description("Share count (default: 0)")),
		mcp.WithNumber("watch_fraction", mcp.Description("Mean fraction watched in [0, 1] (default: 0)")),
		mcp.WithNumber("render_cost", mcp.Description("Render cost in cost units (default: 0)")),
		mcp.WithString("id", mcp.Description("Idempotency id; generated when omitted")),
	)
}

func (t *SubmitEngagementTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	generationID := intArg(req, "generation_id", -1)
	index := intArg(req, "index", -1)
	if generationID < 0 || index < 0 {
		return mcp.NewToolResultError("'generation_id' and 'index' are required"), nil
	}
	if _, ok := req.GetArguments()["views"].(float64); !ok {
		return mcp.NewToolResultError("'views' is required"), nil
	}

	obs, err := t.optimizer.SubmitEngagement(ctx, model.EngagementObservation{
		ID:            req.GetString("id", ""),
		Ref:           model.VectorRef{GenerationID: generationID, Index: index},
		Views:         int64(intArg(req, "views", 0)),
		Likes:         int64(intArg(req, "likes", 0)),
		Shares:        int64(intArg(req, "shares", 0)),
		WatchFraction: floatArg(req, "watch_fraction", 0),
		RenderCost:    floatArg(req, "render_cost", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("observation rejected: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("recorded %s for %s", obs.ID, obs.Ref)), nil
}
