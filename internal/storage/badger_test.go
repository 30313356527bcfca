package storage

import (
	"context"
	"testing"
)

func TestBadgerStoreContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		store := NewBadgerStore(BadgerOptions{InMemory: true})
		if err := store.Init(context.Background()); err != nil {
			t.Fatalf("init: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestBadgerStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store := NewBadgerStore(BadgerOptions{Path: dir, SyncWrites: true})
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	genesis, _, err := store.Bootstrap(ctx, testGeneration(0))
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	evaluated, successor := evolvedFrom(genesis)
	if err := store.CommitEvolution(ctx, evaluated, successor); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := NewBadgerStore(BadgerOptions{Path: dir})
	if err := reopened.Init(ctx); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	latest, ok, err := reopened.LatestGeneration(ctx)
	if err != nil || !ok || latest.ID != 1 {
		t.Fatalf("expected generation 1 after reopen: id=%d ok=%v err=%v", latest.ID, ok, err)
	}
	if head, ok := reopened.Current(); !ok || head.GenerationID != 1 {
		t.Fatalf("expected head loaded on init: %+v ok=%v", head, ok)
	}
	if !latest.ActivatedVector.Equal(successor.ActivatedVector) {
		t.Fatal("expected activated vector to survive reopen")
	}
}
