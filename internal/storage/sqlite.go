//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"brandevo/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu   sync.RWMutex
	db   *sql.DB
	head headCache
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func newSQLiteStore(path string) (Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	return NewSQLiteStore(path), nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	// Single writer keeps commit transactions serialized.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	latest, ok, err := latestGeneration(ctx, db)
	if err != nil {
		_ = db.Close()
		return err
	}
	if ok {
		s.head.set(latest)
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) Current() (model.Head, bool) {
	return s.head.load()
}

func (s *SQLiteStore) Bootstrap(ctx context.Context, genesis model.Generation) (model.Generation, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.Generation{}, false, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return model.Generation{}, false, err
	}
	defer func() { _ = tx.Rollback() }()

	latest, ok, err := latestGeneration(ctx, tx)
	if err != nil {
		return model.Generation{}, false, err
	}
	if ok {
		return latest, false, nil
	}
	if err := upsertGeneration(ctx, tx, genesis); err != nil {
		return model.Generation{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return model.Generation{}, false, err
	}
	s.head.set(genesis)
	return genesis.Clone(), true, nil
}

func (s *SQLiteStore) CommitEvolution(ctx context.Context, evaluated, successor model.Generation) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	latest, ok, err := latestGeneration(ctx, tx)
	if err != nil {
		return err
	}
	if err := validateCommit(latest, ok, evaluated, successor); err != nil {
		return err
	}
	if err := upsertGeneration(ctx, tx, evaluated); err != nil {
		return err
	}
	if err := upsertGeneration(ctx, tx, successor); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.head.set(successor)
	return nil
}

func (s *SQLiteStore) RecordStall(ctx context.Context, head model.Generation) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	latest, ok, err := latestGeneration(ctx, tx)
	if err != nil {
		return err
	}
	if err := validateStall(latest, ok, head); err != nil {
		return err
	}
	if err := upsertGeneration(ctx, tx, head); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.head.set(head)
	return nil
}

func (s *SQLiteStore) GetGeneration(ctx context.Context, id int) (model.Generation, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.Generation{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM generations WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Generation{}, false, nil
		}
		return model.Generation{}, false, err
	}

	generation, err := DecodeGeneration(payload)
	if err != nil {
		return model.Generation{}, false, fmt.Errorf("decode generation %d: %w", id, err)
	}
	return generation, true, nil
}

func (s *SQLiteStore) LatestGeneration(ctx context.Context) (model.Generation, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.Generation{}, false, err
	}
	return latestGeneration(ctx, db)
}

func (s *SQLiteStore) ListGenerations(ctx context.Context, limit int) ([]model.Generation, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := db.QueryContext(ctx, `SELECT id, payload FROM generations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Generation
	for rows.Next() {
		var (
			id      int
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		generation, err := DecodeGeneration(payload)
		if err != nil {
			return nil, fmt.Errorf("decode generation %d: %w", id, err)
		}
		out = append(out, generation)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func latestGeneration(ctx context.Context, q queryer) (model.Generation, bool, error) {
	var (
		id      int
		payload []byte
	)
	err := q.QueryRowContext(ctx, `SELECT id, payload FROM generations ORDER BY id DESC LIMIT 1`).Scan(&id, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Generation{}, false, nil
		}
		return model.Generation{}, false, err
	}
	generation, err := DecodeGeneration(payload)
	if err != nil {
		return model.Generation{}, false, fmt.Errorf("decode generation %d: %w", id, err)
	}
	return generation, true, nil
}

func upsertGeneration(ctx context.Context, e execer, g model.Generation) error {
	payload, err := EncodeGeneration(g)
	if err != nil {
		return err
	}
	_, err = e.ExecContext(ctx, `
		INSERT INTO generations (id, status, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, g.ID, string(g.Status), CurrentSchemaVersion, CurrentCodecVersion, payload)
	return err
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS generations (
			id INTEGER PRIMARY KEY,
			status TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}
