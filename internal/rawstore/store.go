// Package rawstore implements PrimaryStore (C2): the append-only raw
// hand-history store keyed by hand id, plus its hand-meta and
// partial-scores sidecars.
package rawstore

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lox/pokeretl/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps the PostgreSQL-backed PrimaryStore connection pool.
// Grounded on leanlp-BTC-coinjoin/internal/db/postgres.go's
// PostgresStore shape.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens the pool and verifies connectivity.
func Connect(ctx context.Context, connStr string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("rawstore: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("rawstore: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema executes the embedded schema.sql, idempotently.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("rawstore: init schema: %w", err)
	}
	return nil
}

// Pool exposes the underlying connection pool, for callers that need to
// run ad-hoc statements outside this package's API (e.g. archive export).
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// WipeAll truncates every PrimaryStore table, used by the hosted-mode
// first-deploy wipe (§6).
func (s *Store) WipeAll(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE hands, hand_meta, partial_scores`)
	if err != nil {
		return fmt.Errorf("rawstore: wipe all: %w", err)
	}
	return nil
}

// Exists reports whether a hand id is already present, used by the
// ingestion driver to dedupe before buffering (§4.4).
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM hands WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("rawstore: exists: %w", err)
	}
	return exists, nil
}

// InsertResult reports how many rows a batch insert actually wrote versus
// skipped as duplicates.
type InsertResult struct {
	Inserted  int
	Duplicate int
}

// InsertHands inserts a batch of raw hands using insert-or-ignore
// semantics keyed on id; duplicates are silently skipped and counted.
func (s *Store) InsertHands(ctx context.Context, batch []model.RawHand) (InsertResult, error) {
	var result InsertResult

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("rawstore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, h := range batch {
		tag, err := tx.Exec(ctx, `
			INSERT INTO hands (id, hand_date, seq, raw_json, chip_value)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING`,
			h.ID, h.HandDate, h.Seq, h.RawJSON, h.ChipValue)
		if err != nil {
			return result, fmt.Errorf("rawstore: insert hand %s: %w", h.ID, err)
		}
		if tag.RowsAffected() == 1 {
			result.Inserted++
		} else {
			result.Duplicate++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("rawstore: commit: %w", err)
	}
	return result, nil
}

// InsertMeta inserts the hand-meta sidecar batch, insert-or-ignore.
func (s *Store) InsertMeta(ctx context.Context, batch []model.HandMeta) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("rawstore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, m := range batch {
		_, err := tx.Exec(ctx, `
			INSERT INTO hand_meta (id, hand_date, is_cash, is_mtt, blinds_bb, pot_type, eff_stack_bb, chip_bb, has_partial_scores)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO NOTHING`,
			m.ID, m.HandDate, m.IsCash, m.IsMTT, m.BlindsBB, m.PotType, m.EffStackBB, m.ChipBB, m.HasPartialScores)
		if err != nil {
			return fmt.Errorf("rawstore: insert meta %s: %w", m.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// InsertPartialScores inserts the partial-scores sidecar batch.
func (s *Store) InsertPartialScores(ctx context.Context, batch []model.PartialScores) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("rawstore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, p := range batch {
		_, err := tx.Exec(ctx, `
			INSERT INTO partial_scores (id, json)
			VALUES ($1, $2)
			ON CONFLICT (id) DO NOTHING`,
			p.ID, p.JSON)
		if err != nil {
			return fmt.Errorf("rawstore: insert partial scores %s: %w", p.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// IterHands streams every raw hand matching a hand_date filter (empty
// means all hands) over a channel, closing it when exhausted or on error.
// Errors encountered mid-stream are sent on errc before the channel closes.
func (s *Store) IterHands(ctx context.Context, handDate string) (<-chan model.RawHand, <-chan error) {
	out := make(chan model.RawHand)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		var rows pgx.Rows
		var err error
		if handDate == "" {
			rows, err = s.pool.Query(ctx, `SELECT id, hand_date, seq, raw_json, chip_value FROM hands ORDER BY hand_date, seq`)
		} else {
			rows, err = s.pool.Query(ctx, `SELECT id, hand_date, seq, raw_json, chip_value FROM hands WHERE hand_date = $1 ORDER BY seq`, handDate)
		}
		if err != nil {
			errc <- fmt.Errorf("rawstore: iter hands: %w", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			var h model.RawHand
			if err := rows.Scan(&h.ID, &h.HandDate, &h.Seq, &h.RawJSON, &h.ChipValue); err != nil {
				errc <- fmt.Errorf("rawstore: scan hand: %w", err)
				return
			}
			select {
			case out <- h:
			case <-ctx.Done():
				return
			}
		}
		if err := rows.Err(); err != nil {
			errc <- fmt.Errorf("rawstore: rows: %w", err)
		}
	}()

	return out, errc
}
