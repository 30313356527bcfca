package engagement

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"brandevo/internal/model"
)

var (
	ctx    = context.Background()
	opened = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func activeGeneration(id, size int) model.Generation {
	population := make(model.Population, size)
	for i := range population {
		population[i].Index = i
	}
	return model.Generation{ID: id, Status: model.StatusActive, Population: population, CreatedAt: opened}
}

func newTestLedger() *Ledger {
	l := NewLedger(nil, WithClock(func() time.Time { return opened.Add(time.Hour) }))
	l.Open(activeGeneration(4, 10))
	return l
}

func TestSubmitAssignsIDAndTimestamp(t *testing.T) {
	l := newTestLedger()
	obs, err := l.Submit(ctx, model.EngagementObservation{Ref: model.VectorRef{GenerationID: 4, Index: 2}, Views: 10})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if obs.ID == "" {
		t.Fatal("expected generated observation id")
	}
	if !obs.Timestamp.Equal(opened.Add(time.Hour)) {
		t.Fatalf("expected clock timestamp, got=%v", obs.Timestamp)
	}
	if l.Count(4) != 1 {
		t.Fatalf("expected one recorded observation, got=%d", l.Count(4))
	}
}

func TestSubmitDropsMalformedObservations(t *testing.T) {
	cases := map[string]model.EngagementObservation{
		"superseded generation": {Ref: model.VectorRef{GenerationID: 3, Index: 0}, Views: 1},
		"unknown generation":    {Ref: model.VectorRef{GenerationID: 5, Index: 0}, Views: 1},
		"unknown individual":    {Ref: model.VectorRef{GenerationID: 4, Index: 10}, Views: 1},
		"negative index":        {Ref: model.VectorRef{GenerationID: 4, Index: -1}, Views: 1},
		"negative views":        {Ref: model.VectorRef{GenerationID: 4}, Views: -1},
		"watch above one":       {Ref: model.VectorRef{GenerationID: 4}, Views: 1, WatchFraction: 1.5},
		"nan watch":             {Ref: model.VectorRef{GenerationID: 4}, Views: 1, WatchFraction: math.NaN()},
		"negative cost":         {Ref: model.VectorRef{GenerationID: 4}, Views: 1, RenderCost: -2},
		"before window":         {Ref: model.VectorRef{GenerationID: 4}, Views: 1, Timestamp: opened.Add(-time.Minute)},
	}
	for name, obs := range cases {
		t.Run(name, func(t *testing.T) {
			l := newTestLedger()
			if _, err := l.Submit(ctx, obs); !errors.Is(err, ErrMalformedObservation) {
				t.Fatalf("expected ErrMalformedObservation, got=%v", err)
			}
			if l.Count(4) != 0 {
				t.Fatal("expected malformed observation to be dropped")
			}
		})
	}
}

func TestSubmitBeforeOpenIsMalformed(t *testing.T) {
	l := NewLedger(nil)
	if _, err := l.Submit(ctx, model.EngagementObservation{Views: 1}); !errors.Is(err, ErrMalformedObservation) {
		t.Fatalf("expected ErrMalformedObservation, got=%v", err)
	}
}

func TestSnapshotIsStableAndRepeatable(t *testing.T) {
	l := newTestLedger()
	for i := 0; i < 3; i++ {
		if _, err := l.Submit(ctx, model.EngagementObservation{Ref: model.VectorRef{GenerationID: 4, Index: i}, Views: 5}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	first := l.Snapshot(4)
	first[0].Views = 999
	if _, err := l.Submit(ctx, model.EngagementObservation{Ref: model.VectorRef{GenerationID: 4, Index: 3}, Views: 5}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	second := l.Snapshot(4)
	if len(first) != 3 || len(second) != 4 {
		t.Fatalf("unexpected snapshot sizes: first=%d second=%d", len(first), len(second))
	}
	if second[0].Views != 5 {
		t.Fatal("expected snapshot to be isolated from the ledger")
	}
}

func TestOpenPrunesSupersededGenerations(t *testing.T) {
	l := newTestLedger()
	if _, err := l.Submit(ctx, model.EngagementObservation{Ref: model.VectorRef{GenerationID: 4, Index: 1}, Views: 5}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	l.Open(activeGeneration(5, 10))
	if l.Count(4) != 0 {
		t.Fatal("expected generation 4 observations to be pruned")
	}
	if _, err := l.Submit(ctx, model.EngagementObservation{Ref: model.VectorRef{GenerationID: 5, Index: 1}, Views: 5}); err != nil {
		t.Fatalf("submit to new window: %v", err)
	}
}

func TestConcurrentSubmitAndSnapshot(t *testing.T) {
	l := newTestLedger()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, _ = l.Submit(ctx, model.EngagementObservation{Ref: model.VectorRef{GenerationID: 4, Index: w}, Views: 1})
				_ = l.Snapshot(4)
			}
		}(w)
	}
	wg.Wait()
	if got := l.Count(4); got != 400 {
		t.Fatalf("expected 400 observations, got=%d", got)
	}
}

func TestSubmitRepeatedIDIsNoop(t *testing.T) {
	l := newTestLedger()
	first, err := l.Submit(ctx, model.EngagementObservation{ID: "retry-1", Ref: model.VectorRef{GenerationID: 4, Index: 0}, Views: 100, Likes: 7})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	again, err := l.Submit(ctx, model.EngagementObservation{ID: "retry-1", Ref: model.VectorRef{GenerationID: 4, Index: 0}, Views: 100, Likes: 9})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if l.Count(4) != 1 {
		t.Fatalf("expected the retry to be ignored, got=%d observations", l.Count(4))
	}
	if again.Likes != first.Likes || !again.Timestamp.Equal(first.Timestamp) {
		t.Fatalf("expected the first recording back, got=%+v", again)
	}

	// ids are scoped to a window
	l.Open(activeGeneration(5, 10))
	if _, err := l.Submit(ctx, model.EngagementObservation{ID: "retry-1", Ref: model.VectorRef{GenerationID: 5, Index: 0}, Views: 1}); err != nil {
		t.Fatalf("submit to new window: %v", err)
	}
	if l.Count(5) != 1 {
		t.Fatalf("expected id reuse in a new window to record, got=%d", l.Count(5))
	}
}

func submitAsync(l *Ledger, obs model.EngagementObservation) <-chan error {
	done := make(chan error, 1)
	go func() {
		_, err := l.Submit(ctx, obs)
		done <- err
	}()
	return done
}

func TestSealedSubmitWaitsForRelease(t *testing.T) {
	l := newTestLedger()
	if _, err := l.Submit(ctx, model.EngagementObservation{Ref: model.VectorRef{GenerationID: 4, Index: 0}, Views: 10}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	snapshot := l.Seal(4)
	if len(snapshot) != 1 {
		t.Fatalf("expected one observation in the sealed snapshot, got=%d", len(snapshot))
	}

	done := submitAsync(l, model.EngagementObservation{Ref: model.VectorRef{GenerationID: 4, Index: 1}, Views: 10})
	select {
	case err := <-done:
		t.Fatalf("expected submit to wait while sealed, got err=%v", err)
	case <-time.After(50 * time.Millisecond):
	}

	l.Release()
	if err := <-done; err != nil {
		t.Fatalf("expected submit to land after release, got=%v", err)
	}
	if l.Count(4) != 2 {
		t.Fatalf("expected the waiting observation in the reopened window, got=%d", l.Count(4))
	}
}

func TestSealedSubmitRejectedAfterSuccessorOpens(t *testing.T) {
	l := newTestLedger()
	l.Seal(4)
	done := submitAsync(l, model.EngagementObservation{Ref: model.VectorRef{GenerationID: 4, Index: 1}, Views: 10})
	time.Sleep(20 * time.Millisecond)

	l.Open(activeGeneration(5, 10))
	if err := <-done; !errors.Is(err, ErrMalformedObservation) {
		t.Fatalf("expected superseded rejection, got=%v", err)
	}
	if l.Count(4) != 0 || l.Count(5) != 0 {
		t.Fatal("expected nothing recorded for the superseded submit")
	}
}

func TestSealedSubmitHonoursContext(t *testing.T) {
	l := newTestLedger()
	l.Seal(4)
	defer l.Release()

	cancelled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err := l.Submit(cancelled, model.EngagementObservation{Ref: model.VectorRef{GenerationID: 4, Index: 1}, Views: 10})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got=%v", err)
	}
}
