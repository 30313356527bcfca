package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"brandevo/internal/model"
)

const (
	badgerGenerationPrefix = "generation/"
	badgerHeadKey          = "head"
)

type BadgerOptions struct {
	// Path is ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	// Logger receives badger's internal logs. Nil disables them.
	Logger *slog.Logger
}

// BadgerStore keeps one key per generation plus a head key naming the
// latest id. Commits run in a single badger transaction.
type BadgerStore struct {
	opts BadgerOptions

	mu   sync.RWMutex
	db   *badger.DB
	head headCache
}

func NewBadgerStore(opts BadgerOptions) *BadgerStore {
	return &BadgerStore{opts: opts}
}

func (s *BadgerStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	var opts badger.Options
	if s.opts.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if s.opts.Path == "" {
			return errors.New("badger path is required")
		}
		if err := os.MkdirAll(s.opts.Path, 0o750); err != nil {
			return fmt.Errorf("create badger directory %s: %w", s.opts.Path, err)
		}
		opts = badger.DefaultOptions(s.opts.Path)
	}
	opts = opts.WithSyncWrites(s.opts.SyncWrites).WithNumVersionsToKeep(1)
	if s.opts.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: s.opts.Logger.With("component", "badger")})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("open badger database: %w", err)
	}
	err = db.View(func(txn *badger.Txn) error {
		latest, ok, err := badgerLatest(txn)
		if ok {
			s.head.set(latest)
		}
		return err
	})
	if err != nil {
		_ = db.Close()
		return err
	}
	s.db = db
	return nil
}

func (s *BadgerStore) Current() (model.Head, bool) {
	return s.head.load()
}

func (s *BadgerStore) Bootstrap(_ context.Context, genesis model.Generation) (model.Generation, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.Generation{}, false, err
	}

	var (
		head    model.Generation
		created bool
	)
	err = db.Update(func(txn *badger.Txn) error {
		latest, ok, err := badgerLatest(txn)
		if err != nil {
			return err
		}
		if ok {
			head = latest
			return nil
		}
		if err := badgerPut(txn, genesis); err != nil {
			return err
		}
		if err := badgerSetHead(txn, genesis.ID); err != nil {
			return err
		}
		head = genesis.Clone()
		created = true
		return nil
	})
	if err != nil {
		return model.Generation{}, false, err
	}
	s.head.set(head)
	return head, created, nil
}

func (s *BadgerStore) CommitEvolution(_ context.Context, evaluated, successor model.Generation) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	err = db.Update(func(txn *badger.Txn) error {
		latest, ok, err := badgerLatest(txn)
		if err != nil {
			return err
		}
		if err := validateCommit(latest, ok, evaluated, successor); err != nil {
			return err
		}
		if err := badgerPut(txn, evaluated); err != nil {
			return err
		}
		if err := badgerPut(txn, successor); err != nil {
			return err
		}
		return badgerSetHead(txn, successor.ID)
	})
	if err != nil {
		return err
	}
	s.head.set(successor)
	return nil
}

func (s *BadgerStore) RecordStall(_ context.Context, head model.Generation) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	err = db.Update(func(txn *badger.Txn) error {
		latest, ok, err := badgerLatest(txn)
		if err != nil {
			return err
		}
		if err := validateStall(latest, ok, head); err != nil {
			return err
		}
		return badgerPut(txn, head)
	})
	if err != nil {
		return err
	}
	s.head.set(head)
	return nil
}

func (s *BadgerStore) GetGeneration(_ context.Context, id int) (model.Generation, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.Generation{}, false, err
	}

	var (
		generation model.Generation
		found      bool
	)
	err = db.View(func(txn *badger.Txn) error {
		var err error
		generation, found, err = badgerGet(txn, id)
		return err
	})
	return generation, found, err
}

func (s *BadgerStore) LatestGeneration(_ context.Context) (model.Generation, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.Generation{}, false, err
	}

	var (
		generation model.Generation
		found      bool
	)
	err = db.View(func(txn *badger.Txn) error {
		var err error
		generation, found, err = badgerLatest(txn)
		return err
	})
	return generation, found, err
}

func (s *BadgerStore) ListGenerations(_ context.Context, limit int) ([]model.Generation, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	var out []model.Generation
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(badgerGenerationPrefix)
		seekKey := append([]byte(badgerGenerationPrefix), 0xFF)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			payload, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			generation, err := DecodeGeneration(payload)
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, generation)
			if limit > 0 && len(out) >= limit {
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *BadgerStore) getDB() (*badger.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

// Zero-padded ids keep badger's byte ordering equal to numeric ordering.
func generationKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%010d", badgerGenerationPrefix, id))
}

func badgerPut(txn *badger.Txn, g model.Generation) error {
	payload, err := EncodeGeneration(g)
	if err != nil {
		return err
	}
	return txn.Set(generationKey(g.ID), payload)
}

func badgerSetHead(txn *badger.Txn, id int) error {
	return txn.Set([]byte(badgerHeadKey), []byte(strconv.Itoa(id)))
}

func badgerGet(txn *badger.Txn, id int) (model.Generation, bool, error) {
	item, err := txn.Get(generationKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.Generation{}, false, nil
	}
	if err != nil {
		return model.Generation{}, false, err
	}
	payload, err := item.ValueCopy(nil)
	if err != nil {
		return model.Generation{}, false, err
	}
	generation, err := DecodeGeneration(payload)
	if err != nil {
		return model.Generation{}, false, fmt.Errorf("decode generation %d: %w", id, err)
	}
	return generation, true, nil
}

func badgerLatest(txn *badger.Txn) (model.Generation, bool, error) {
	item, err := txn.Get([]byte(badgerHeadKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.Generation{}, false, nil
	}
	if err != nil {
		return model.Generation{}, false, err
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return model.Generation{}, false, err
	}
	id, err := strconv.Atoi(string(raw))
	if err != nil {
		return model.Generation{}, false, fmt.Errorf("parse head id %q: %w", raw, err)
	}
	generation, ok, err := badgerGet(txn, id)
	if err != nil {
		return model.Generation{}, false, err
	}
	if !ok {
		return model.Generation{}, false, fmt.Errorf("head names missing generation %d", id)
	}
	return generation, true, nil
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
