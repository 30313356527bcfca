package platform

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	TaskEvolutionCycle = "evolution-cycle"
	TaskTrendRefresh   = "trend-refresh"
)

// Evolver is the trigger surface the scheduler drives.
type Evolver interface {
	Evolve(ctx context.Context) (Result, error)
}

// Scheduler is the periodic trigger source. It never retries a failed
// evolution early; the next tick is the retry.
type Scheduler struct {
	evolver    Evolver
	interval   time.Duration
	supervisor *Supervisor
	logger     *slog.Logger
}

func NewScheduler(evolver Evolver, interval time.Duration, supervisor *Supervisor, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		evolver:    evolver,
		interval:   interval,
		supervisor: supervisor,
		logger:     logger.With("component", "scheduler"),
	}
}

// Start registers the evolution cycle with the supervisor. A non-positive
// interval disables scheduled evolution.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("scheduled evolution disabled")
		return nil
	}
	return s.supervisor.Start(TaskEvolutionCycle, s.run)
}

func (s *Scheduler) Stop() {
	s.supervisor.Stop(TaskEvolutionCycle)
}

func (s *Scheduler) run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	result, err := s.evolver.Evolve(ctx)
	switch {
	case errors.Is(err, ErrEvolutionInProgress):
		s.logger.Info("scheduled evolution skipped, evaluation in flight")
	case err != nil:
		if ctx.Err() == nil {
			s.logger.Error("scheduled evolution failed", "error", err)
		}
	default:
		s.logger.Info("scheduled evolution", "status", result.Status, "generation", result.GenerationID, "reason", result.Reason)
	}
}
