// Package engagement holds the in-memory observation ledger. Observations are
// appended against the active generation and handed to the scoring pass as
// a snapshot, so a generation can be re-scored without double counting.
package engagement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"brandevo/internal/metrics"
	"brandevo/internal/model"
)

// ErrMalformedObservation marks a record that was dropped at ingestion.
var ErrMalformedObservation = errors.New("malformed observation")

type window struct {
	generationID   int
	populationSize int
	openedAt       time.Time
	open           bool
}

type Ledger struct {
	mu     sync.Mutex
	window window
	// sealed is non-nil while a scoring pass owns the window and is closed
	// when the pass releases it.
	sealed       chan struct{}
	byGeneration map[int][]model.EngagementObservation
	ids          map[int]map[string]model.EngagementObservation

	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

func NewLedger(logger *slog.Logger, opts ...Option) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{
		byGeneration: make(map[int][]model.EngagementObservation),
		ids:          make(map[int]map[string]model.EngagementObservation),
		now:          time.Now,
		logger:       logger.With("component", "engagement"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open points the ledger at the active generation g, discards every
// observation recorded for earlier generations and releases a sealed window.
func (l *Ledger) Open(g model.Generation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.window = window{
		generationID:   g.ID,
		populationSize: len(g.Population),
		openedAt:       g.CreatedAt,
		open:           true,
	}
	pruned := 0
	for id, observations := range l.byGeneration {
		if id < g.ID {
			pruned += len(observations)
			delete(l.byGeneration, id)
		}
	}
	for id := range l.ids {
		if id < g.ID {
			delete(l.ids, id)
		}
	}
	if pruned > 0 {
		metrics.ObservationsPruned.Add(float64(pruned))
		l.logger.Info("pruned superseded observations", "generation", g.ID, "count", pruned)
	}
	l.releaseLocked()
}

// Seal snapshots the observations of generationID and holds the window
// until Release or Open. Submits arriving in between wait and are then
// validated against whichever window is current, so nothing is accepted
// after the snapshot and lost on commit.
func (l *Ledger) Seal(generationID int) []model.EngagementObservation {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sealed == nil {
		l.sealed = make(chan struct{})
	}
	return l.snapshotLocked(generationID)
}

// Release reopens a sealed window unchanged. It is a no-op when not sealed.
func (l *Ledger) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.releaseLocked()
}

func (l *Ledger) releaseLocked() {
	if l.sealed != nil {
		close(l.sealed)
		l.sealed = nil
	}
}

// Submit validates obs against the open window and appends it. Malformed
// records are logged and dropped; the returned error wraps
// ErrMalformedObservation. A repeated id within the window is a no-op that
// returns the observation recorded first. Submit waits while the window is
// sealed and returns ctx.Err() if ctx ends first.
func (l *Ledger) Submit(ctx context.Context, obs model.EngagementObservation) (model.EngagementObservation, error) {
	if err := l.lockUnsealed(ctx); err != nil {
		return obs, err
	}
	defer l.mu.Unlock()

	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	if obs.Timestamp.IsZero() {
		obs.Timestamp = l.now()
	}
	if err := l.validateLocked(obs); err != nil {
		metrics.ObservationsTotal.WithLabelValues("malformed").Inc()
		l.logger.Warn("dropped observation", "id", obs.ID, "ref", obs.Ref.String(), "error", err)
		return obs, err
	}
	generationID := obs.Ref.GenerationID
	if first, dup := l.ids[generationID][obs.ID]; dup {
		metrics.ObservationsTotal.WithLabelValues("duplicate").Inc()
		l.logger.Debug("duplicate observation ignored", "id", obs.ID, "ref", obs.Ref.String())
		return first, nil
	}
	if l.ids[generationID] == nil {
		l.ids[generationID] = make(map[string]model.EngagementObservation)
	}
	l.ids[generationID][obs.ID] = obs
	l.byGeneration[generationID] = append(l.byGeneration[generationID], obs)
	metrics.ObservationsTotal.WithLabelValues("accepted").Inc()
	l.logger.Debug("accepted observation", "id", obs.ID, "ref", obs.Ref.String(), "views", obs.Views)
	return obs, nil
}

// lockUnsealed acquires l.mu once no scoring pass holds the window.
func (l *Ledger) lockUnsealed(ctx context.Context) error {
	for {
		l.mu.Lock()
		sealed := l.sealed
		if sealed == nil {
			return nil
		}
		l.mu.Unlock()
		select {
		case <-sealed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Snapshot copies the observations recorded so far for generationID.
func (l *Ledger) Snapshot(generationID int) []model.EngagementObservation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked(generationID)
}

func (l *Ledger) snapshotLocked(generationID int) []model.EngagementObservation {
	observations := l.byGeneration[generationID]
	out := make([]model.EngagementObservation, len(observations))
	copy(out, observations)
	return out
}

func (l *Ledger) Count(generationID int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.byGeneration[generationID])
}

func (l *Ledger) validateLocked(obs model.EngagementObservation) error {
	if !l.window.open {
		return fmt.Errorf("%w: no active generation", ErrMalformedObservation)
	}
	ref := obs.Ref
	switch {
	case ref.GenerationID < l.window.generationID:
		return fmt.Errorf("%w: generation %d superseded by %d", ErrMalformedObservation, ref.GenerationID, l.window.generationID)
	case ref.GenerationID > l.window.generationID:
		return fmt.Errorf("%w: unknown generation %d", ErrMalformedObservation, ref.GenerationID)
	case ref.Index < 0 || ref.Index >= l.window.populationSize:
		return fmt.Errorf("%w: unknown individual %d", ErrMalformedObservation, ref.Index)
	case obs.Views < 0 || obs.Likes < 0 || obs.Shares < 0:
		return fmt.Errorf("%w: negative counts", ErrMalformedObservation)
	case math.IsNaN(obs.WatchFraction) || obs.WatchFraction < 0 || obs.WatchFraction > 1:
		return fmt.Errorf("%w: watch fraction %v outside [0, 1]", ErrMalformedObservation, obs.WatchFraction)
	case math.IsNaN(obs.RenderCost) || math.IsInf(obs.RenderCost, 0) || obs.RenderCost < 0:
		return fmt.Errorf("%w: invalid render cost %v", ErrMalformedObservation, obs.RenderCost)
	case obs.Timestamp.Before(l.window.openedAt):
		return fmt.Errorf("%w: timestamp %s precedes generation start", ErrMalformedObservation, obs.Timestamp.Format(time.RFC3339))
	}
	return nil
}
