// Package httpapi exposes the optimizer over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"brandevo/internal/engagement"
	"brandevo/internal/model"
	"brandevo/internal/platform"
)

// Optimizer is the slice of platform.Controller the handlers need.
type Optimizer interface {
	CurrentParameters() (platform.Parameters, error)
	Evolve(ctx context.Context) (platform.Result, error)
	SubmitEngagement(ctx context.Context, obs model.EngagementObservation) (model.EngagementObservation, error)
	Generation(ctx context.Context, id int) (model.Generation, bool, error)
	History(ctx context.Context, limit int) ([]model.Generation, error)
	PendingObservations() int
	Evolving() bool
}

const defaultHistoryLimit = 20

type Handlers struct {
	optimizer Optimizer
	now       func() time.Time
}

func NewHandlers(optimizer Optimizer) *Handlers {
	return &Handlers{optimizer: optimizer, now: time.Now}
}

// HandleParameters handles GET /v1/parameters.
//
// It serves the committed head and never waits on a running evolution.
func (h *Handlers) HandleParameters(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleParameters")

	params, err := h.optimizer.CurrentParameters()
	if err != nil {
		logger.Error("current parameters unavailable", "error", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, params)
}

// HandleEvolve handles POST /v1/evolve.
//
// A trigger that collides with a running evolution gets 409 with status
// "busy" instead of queueing.
func (h *Handlers) HandleEvolve(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleEvolve")

	result, err := h.optimizer.Evolve(c.Request.Context())
	if errors.Is(err, platform.ErrEvolutionInProgress) {
		logger.Info("evolve rejected, already running")
		c.JSON(http.StatusConflict, EvolveResponse{Status: "busy"})
		return
	}
	if err != nil {
		logger.Error("evolve failed", "error", err)
		writeError(c, err)
		return
	}

	logger.Info("evolve finished",
		"status", result.Status,
		"generation", result.GenerationID,
		"new_generation", result.NewGenerationID,
		"reason", result.Reason,
	)
	c.JSON(http.StatusOK, EvolveResponse{
		Status:          string(result.Status),
		GenerationID:    result.GenerationID,
		NewGenerationID: result.NewGenerationID,
		Reason:          string(result.Reason),
		Diagnostics:     result.Diagnostics,
	})
}

// HandleEngagement handles POST /v1/engagement.
func (h *Handlers) HandleEngagement(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleEngagement")

	var req EngagementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("invalid engagement body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid request body",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	obs, err := h.optimizer.SubmitEngagement(c.Request.Context(), req.Observation())
	if err != nil {
		logger.Warn("engagement rejected", "ref", req.Observation().Ref.String(), "error", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, EngagementResponse{
		ID:           obs.ID,
		Ref:          obs.Ref,
		AcceptedAt:   h.now().UTC(),
		PendingCount: h.optimizer.PendingObservations(),
	})
}

// HandleListGenerations handles GET /v1/generations?limit=N, newest first.
func (h *Handlers) HandleListGenerations(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleListGenerations")

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "limit must be a non-negative integer",
				Code:  "INVALID_LIMIT",
			})
			return
		}
		limit = parsed
	}

	generations, err := h.optimizer.History(c.Request.Context(), limit)
	if err != nil {
		logger.Error("list generations failed", "error", err)
		writeError(c, err)
		return
	}
	resp := HistoryResponse{Generations: make([]GenerationSummary, 0, len(generations))}
	for _, g := range generations {
		resp.Generations = append(resp.Generations, summarize(g))
	}
	resp.Count = len(resp.Generations)
	c.JSON(http.StatusOK, resp)
}

// HandleGetGeneration handles GET /v1/generations/:id and returns the full
// record including the scored population.
func (h *Handlers) HandleGetGeneration(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetGeneration")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "generation id must be a non-negative integer",
			Code:  "INVALID_ID",
		})
		return
	}
	g, ok, err := h.optimizer.Generation(c.Request.Context(), id)
	if err != nil {
		logger.Error("get generation failed", "id", id, "error", err)
		writeError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "generation not found",
			Code:  "NOT_FOUND",
		})
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *Handlers) HandleHealth(c *gin.Context) {
	params, err := h.optimizer.CurrentParameters()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "initializing"})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{
		Status:       "ok",
		GenerationID: params.GenerationID,
		Evolving:     h.optimizer.Evolving(),
		Pending:      h.optimizer.PendingObservations(),
	})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engagement.ErrMalformedObservation):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "malformed observation",
			Code:    "MALFORMED_OBSERVATION",
			Details: err.Error(),
		})
	case errors.Is(err, platform.ErrNotInitialized):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "optimizer not initialized",
			Code:  "NOT_INITIALIZED",
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "request cancelled",
			Code:    "CANCELLED",
			Details: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal error",
			Code:    "INTERNAL",
			Details: err.Error(),
		})
	}
}

func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
