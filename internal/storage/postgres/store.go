// Package postgres stores the ledger snapshot as a JSONB document in
// PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"faturas/internal/core"
)

const schema = `
create table if not exists ledger_snapshots (
    id         smallint primary key,
    body       jsonb not null,
    version    bigint not null default 1,
    saved_at   timestamptz not null default now()
)`

// snapshotID is the single row holding the current ledger.
const snapshotID = 1

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string and
// makes sure the snapshot table exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Load(ctx context.Context) (core.State, bool, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `select body from ledger_snapshots where id = $1`, snapshotID).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.State{}, false, nil
	}
	if err != nil {
		return core.State{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	st, err := core.DecodeState(body)
	if err != nil {
		return core.State{}, false, err
	}
	return st, true, nil
}

func (s *Store) Persist(ctx context.Context, st core.State) error {
	body, err := core.EncodeState(st)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
        insert into ledger_snapshots (id, body) values ($1, $2)
        on conflict (id) do update
        set body = excluded.body,
            version = ledger_snapshots.version + 1,
            saved_at = now()
    `, snapshotID, body)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// SavedVersion returns how many times the snapshot has been written.
func (s *Store) SavedVersion(ctx context.Context) (int64, error) {
	var v int64
	err := s.pool.QueryRow(ctx, `select version from ledger_snapshots where id = $1`, snapshotID).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return v, err
}

// reset clears the snapshot; tests use it to start from a clean table.
func (s *Store) reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `delete from ledger_snapshots`)
	return err
}
