package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"brandevo/internal/model"
)

func testGeneration(id int) model.Generation {
	dims := model.DefaultDimensions()
	vector := dims.Defaults()
	return model.Generation{
		ID:     id,
		Status: model.StatusActive,
		Population: model.Population{
			{Index: 0, Vector: vector, Status: model.IndividualPending},
			{Index: 1, Vector: vector, Status: model.IndividualPending},
		},
		ActivatedRef:    model.VectorRef{GenerationID: id, Index: 0},
		ActivatedVector: vector,
		CreatedAt:       time.Date(2026, 1, 1, 0, id, 0, 0, time.UTC),
	}
}

func evolvedFrom(g model.Generation) (model.Generation, model.Generation) {
	successor := testGeneration(g.ID + 1)
	evaluated := g.Clone()
	evaluated.Status = model.StatusEvolved
	evaluated.SuccessorID = &successor.ID
	evaluated.Population[1].Status = model.IndividualScored
	evaluated.Population[1].Fitness = 0.42
	return evaluated, successor
}

// runStoreContract exercises the generation log semantics every backend
// must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("bootstrap is idempotent", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		head, created, err := store.Bootstrap(ctx, testGeneration(0))
		if err != nil || !created || head.ID != 0 {
			t.Fatalf("first bootstrap: head=%d created=%v err=%v", head.ID, created, err)
		}
		other := testGeneration(0)
		other.StallCount = 99
		head, created, err = store.Bootstrap(ctx, other)
		if err != nil || created || head.StallCount != 0 {
			t.Fatalf("second bootstrap should keep existing log: created=%v stall=%d err=%v", created, head.StallCount, err)
		}
	})

	t.Run("commit appends successor", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		genesis, _, err := store.Bootstrap(ctx, testGeneration(0))
		if err != nil {
			t.Fatalf("bootstrap: %v", err)
		}

		if head, ok := store.Current(); !ok || head.GenerationID != 0 || head.ActivatedRef != genesis.ActivatedRef {
			t.Fatalf("unexpected head after bootstrap: %+v ok=%v", head, ok)
		}

		evaluated, successor := evolvedFrom(genesis)
		if err := store.CommitEvolution(ctx, evaluated, successor); err != nil {
			t.Fatalf("commit: %v", err)
		}
		if head, ok := store.Current(); !ok || head.GenerationID != 1 || head.ActivatedRef.GenerationID != 1 {
			t.Fatalf("expected head swapped to generation 1: %+v ok=%v", head, ok)
		}

		latest, ok, err := store.LatestGeneration(ctx)
		if err != nil || !ok || latest.ID != 1 || latest.Status != model.StatusActive {
			t.Fatalf("unexpected latest: id=%d status=%s ok=%v err=%v", latest.ID, latest.Status, ok, err)
		}
		first, ok, err := store.GetGeneration(ctx, 0)
		if err != nil || !ok {
			t.Fatalf("get generation 0: ok=%v err=%v", ok, err)
		}
		if first.Status != model.StatusEvolved || first.SuccessorID == nil || *first.SuccessorID != 1 {
			t.Fatalf("expected generation 0 evolved into 1: %+v", first)
		}
		if first.Population[1].Fitness != 0.42 || !first.ActivatedVector.Equal(genesis.ActivatedVector) {
			t.Fatalf("expected scored population to persist: %+v", first.Population)
		}

		list, err := store.ListGenerations(ctx, 0)
		if err != nil || len(list) != 2 || list[0].ID != 1 || list[1].ID != 0 {
			t.Fatalf("unexpected history: len=%d err=%v", len(list), err)
		}
		list, err = store.ListGenerations(ctx, 1)
		if err != nil || len(list) != 1 || list[0].ID != 1 {
			t.Fatalf("unexpected limited history: len=%d err=%v", len(list), err)
		}
	})

	t.Run("stale commit is rejected", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		genesis, _, err := store.Bootstrap(ctx, testGeneration(0))
		if err != nil {
			t.Fatalf("bootstrap: %v", err)
		}
		evaluated, successor := evolvedFrom(genesis)
		if err := store.CommitEvolution(ctx, evaluated, successor); err != nil {
			t.Fatalf("commit: %v", err)
		}
		if err := store.CommitEvolution(ctx, evaluated, successor); !errors.Is(err, ErrStaleCommit) {
			t.Fatalf("expected ErrStaleCommit on replay, got=%v", err)
		}
		if err := store.RecordStall(ctx, genesis); !errors.Is(err, ErrStaleCommit) {
			t.Fatalf("expected ErrStaleCommit for stall on old generation, got=%v", err)
		}
		first, _, _ := store.GetGeneration(ctx, 0)
		if first.SuccessorID == nil || *first.SuccessorID != 1 {
			t.Fatal("expected committed successor link to stay intact")
		}
	})

	t.Run("stall keeps head", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		genesis, _, err := store.Bootstrap(ctx, testGeneration(0))
		if err != nil {
			t.Fatalf("bootstrap: %v", err)
		}
		genesis.StallCount = 2
		genesis.LastStalledAt = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
		if err := store.RecordStall(ctx, genesis); err != nil {
			t.Fatalf("record stall: %v", err)
		}
		latest, ok, err := store.LatestGeneration(ctx)
		if err != nil || !ok || latest.ID != 0 || latest.StallCount != 2 || latest.SuccessorID != nil {
			t.Fatalf("unexpected head after stall: %+v err=%v", latest, err)
		}
		if !latest.LastStalledAt.Equal(genesis.LastStalledAt) {
			t.Fatalf("unexpected stall time: %v", latest.LastStalledAt)
		}
	})

	t.Run("missing generation", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		if _, ok, err := store.LatestGeneration(ctx); err != nil || ok {
			t.Fatalf("expected empty log: ok=%v err=%v", ok, err)
		}
		if _, ok := store.Current(); ok {
			t.Fatal("expected no head before bootstrap")
		}
		if _, ok, err := store.GetGeneration(ctx, 7); err != nil || ok {
			t.Fatalf("expected missing generation: ok=%v err=%v", ok, err)
		}
	})
}
