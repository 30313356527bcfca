package storage

import (
	"context"
	"errors"
	"sync/atomic"

	"brandevo/internal/model"
)

// ErrStaleCommit is returned when a write targets a generation that is no
// longer the head of the log.
var ErrStaleCommit = errors.New("stale commit: generation is not the log head")

// Store is the append-only generation log. Generations are never deleted and
// a committed successor is never rewritten.
type Store interface {
	// Init opens the backend and loads the head pointer.
	Init(ctx context.Context) error
	// Current returns the committed head without blocking on writers.
	Current() (model.Head, bool)
	// Bootstrap returns the latest generation, persisting genesis first when
	// the log is empty. created reports whether genesis was written.
	Bootstrap(ctx context.Context, genesis model.Generation) (head model.Generation, created bool, err error)
	// CommitEvolution atomically rewrites evaluated (now Evolved with its
	// successor id set) and appends successor as the new head.
	CommitEvolution(ctx context.Context, evaluated, successor model.Generation) error
	// RecordStall rewrites the head generation's stall bookkeeping in place.
	RecordStall(ctx context.Context, head model.Generation) error
	GetGeneration(ctx context.Context, id int) (model.Generation, bool, error)
	LatestGeneration(ctx context.Context) (model.Generation, bool, error)
	// ListGenerations returns up to limit generations, newest first. A
	// non-positive limit returns the whole log.
	ListGenerations(ctx context.Context, limit int) ([]model.Generation, error)
}

func validateCommit(latest model.Generation, hasLatest bool, evaluated, successor model.Generation) error {
	if !hasLatest || latest.ID != evaluated.ID || latest.SuccessorID != nil {
		return ErrStaleCommit
	}
	if successor.ID != evaluated.ID+1 || evaluated.SuccessorID == nil || *evaluated.SuccessorID != successor.ID {
		return ErrStaleCommit
	}
	return nil
}

func validateStall(latest model.Generation, hasLatest bool, head model.Generation) error {
	if !hasLatest || latest.ID != head.ID || latest.SuccessorID != nil || head.SuccessorID != nil {
		return ErrStaleCommit
	}
	return nil
}

// headCache is the atomically swapped serving pointer shared by backends.
type headCache struct {
	ptr atomic.Pointer[model.Head]
}

func (c *headCache) load() (model.Head, bool) {
	head := c.ptr.Load()
	if head == nil {
		return model.Head{}, false
	}
	return *head, true
}

func (c *headCache) set(g model.Generation) {
	head := model.HeadOf(g, g.CreatedAt)
	c.ptr.Store(&head)
}

func (c *headCache) reset() {
	c.ptr.Store(nil)
}
