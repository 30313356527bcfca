package httpapi

import (
	"time"

	"brandevo/internal/model"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// EngagementRequest is the body of POST /v1/engagement.
type EngagementRequest struct {
	ID            string    `json:"id"`
	GenerationID  *int      `json:"generation_id" binding:"required,gte=0"`
	Index         *int      `json:"index" binding:"required,gte=0"`
	Views         int64     `json:"views"`
	Likes         int64     `json:"likes"`
	Shares        int64     `json:"shares"`
	WatchFraction float64   `json:"watch_fraction"`
	RenderCost    float64   `json:"render_cost"`
	Timestamp     time.Time `json:"timestamp"`
}

func (r EngagementRequest) Observation() model.EngagementObservation {
	return model.EngagementObservation{
		ID:            r.ID,
		Ref:           model.VectorRef{GenerationID: *r.GenerationID, Index: *r.Index},
		Views:         r.Views,
		Likes:         r.Likes,
		Shares:        r.Shares,
		WatchFraction: r.WatchFraction,
		RenderCost:    r.RenderCost,
		Timestamp:     r.Timestamp,
	}
}

type EngagementResponse struct {
	ID           string          `json:"id"`
	Ref          model.VectorRef `json:"ref"`
	AcceptedAt   time.Time       `json:"accepted_at"`
	PendingCount int             `json:"pending_count"`
}

// EvolveResponse mirrors platform.Result and adds the busy outcome.
type EvolveResponse struct {
	Status          string                       `json:"status"`
	GenerationID    int                          `json:"generation_id,omitempty"`
	NewGenerationID int                          `json:"new_generation_id,omitempty"`
	Reason          string                       `json:"reason,omitempty"`
	Diagnostics     *model.GenerationDiagnostics `json:"diagnostics,omitempty"`
}

// GenerationSummary is one row of GET /v1/generations.
type GenerationSummary struct {
	ID               int                          `json:"id"`
	Status           model.GenerationStatus       `json:"status"`
	ActivatedRef     model.VectorRef              `json:"activated_ref"`
	ActivatedVector  model.ParameterVector        `json:"activated_vector"`
	SuccessorID      *int                         `json:"successor_id,omitempty"`
	EliteIndices     []int                        `json:"elite_indices,omitempty"`
	StallCount       int                          `json:"stall_count"`
	TrendConditioned bool                         `json:"trend_conditioned,omitempty"`
	Diagnostics      *model.GenerationDiagnostics `json:"diagnostics,omitempty"`
	CreatedAt        time.Time                    `json:"created_at"`
}

func summarize(g model.Generation) GenerationSummary {
	return GenerationSummary{
		ID:               g.ID,
		Status:           g.Status,
		ActivatedRef:     g.ActivatedRef,
		ActivatedVector:  g.ActivatedVector,
		SuccessorID:      g.SuccessorID,
		EliteIndices:     g.EliteIndices,
		StallCount:       g.StallCount,
		TrendConditioned: g.TrendConditioned,
		Diagnostics:      g.Diagnostics,
		CreatedAt:        g.CreatedAt,
	}
}

type HistoryResponse struct {
	Generations []GenerationSummary `json:"generations"`
	Count       int                 `json:"count"`
}

type HealthResponse struct {
	Status       string `json:"status"`
	GenerationID int    `json:"generation_id"`
	Evolving     bool   `json:"evolving"`
	Pending      int    `json:"pending_observations"`
}
