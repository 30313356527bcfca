// Package trend keeps the latest trend embedding in memory. Fetching happens
// on a background task; readers only ever load a pointer.
package trend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"brandevo/internal/metrics"
	"brandevo/internal/model"
)

type Source interface {
	Fetch(ctx context.Context) (model.TrendContext, error)
}

// StaticSource always returns the same embedding.
type StaticSource struct {
	Embedding []float64
}

func (s StaticSource) Fetch(_ context.Context) (model.TrendContext, error) {
	return model.TrendContext{
		Embedding:  append([]float64(nil), s.Embedding...),
		CapturedAt: time.Now(),
	}, nil
}

// HTTPSource reads {"embedding": [...], "captured_at": "..."} from Endpoint.
type HTTPSource struct {
	Endpoint string
	Client   *http.Client
}

type httpPayload struct {
	Embedding  []float64 `json:"embedding"`
	CapturedAt time.Time `json:"captured_at"`
}

func (s HTTPSource) Fetch(ctx context.Context) (model.TrendContext, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Endpoint, nil)
	if err != nil {
		return model.TrendContext{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return model.TrendContext{}, fmt.Errorf("fetch trend: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return model.TrendContext{}, fmt.Errorf("fetch trend: unexpected status %d", resp.StatusCode)
	}

	var payload httpPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return model.TrendContext{}, fmt.Errorf("decode trend: %w", err)
	}
	if payload.CapturedAt.IsZero() {
		payload.CapturedAt = time.Now()
	}
	return model.TrendContext{Embedding: payload.Embedding, CapturedAt: payload.CapturedAt}, nil
}

var ErrDimensionMismatch = errors.New("trend embedding dimension mismatch")

// Cache holds the last good trend context. A failed refresh keeps the
// previous value.
type Cache struct {
	source Source
	dim    int
	ptr    atomic.Pointer[model.TrendContext]
	logger *slog.Logger
}

func NewCache(source Source, dim int, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{source: source, dim: dim, logger: logger.With("component", "trend")}
}

func (c *Cache) Latest() (model.TrendContext, bool) {
	latest := c.ptr.Load()
	if latest == nil {
		return model.TrendContext{}, false
	}
	return *latest, true
}

func (c *Cache) Refresh(ctx context.Context) error {
	next, err := c.source.Fetch(ctx)
	if err != nil {
		metrics.TrendRefreshTotal.WithLabelValues("error").Inc()
		return err
	}
	if c.dim > 0 && len(next.Embedding) != c.dim {
		metrics.TrendRefreshTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(next.Embedding), c.dim)
	}
	c.ptr.Store(&next)
	metrics.TrendRefreshTotal.WithLabelValues("ok").Inc()
	c.logger.Debug("trend refreshed", "captured_at", next.CapturedAt)
	return nil
}

// Loop refreshes immediately and then every interval until ctx ends.
// Refresh failures are logged and never end the loop.
func (c *Cache) Loop(interval time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
			c.logger.Warn("trend refresh failed", "error", err)
		}
		if interval <= 0 {
			<-ctx.Done()
			return ctx.Err()
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
					c.logger.Warn("trend refresh failed", "error", err)
				}
			}
		}
	}
}
