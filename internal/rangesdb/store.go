// Package rangesdb wraps the prebuilt, read-only preflop solver reference
// database named by RANGES_PATH. It holds one table of
// (action_sequence, position, combo, action, frequency) rows keyed by
// (combo, position, action_sequence), queried by Stage 2.
package rangesdb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is a read-only handle onto the preflop reference database.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a small read-only pool. RANGES_PATH is a Postgres
// connection string, consistent with both PrimaryStore and AnalyticStore
// being pgx-backed.
func Connect(ctx context.Context, connStr string) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("rangesdb: parse config: %w", err)
	}
	poolCfg.MaxConns = 4
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("rangesdb: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("rangesdb: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// NodeFrequencies is one reference-node lookup result: the frequency of
// the actor's chosen action, and the max frequency across every action
// recorded at that node.
type NodeFrequencies struct {
	ActionFreq *float64
	MaxFreq    *float64
	NodeExists bool
}

// Lookup retrieves the frequency for (combo, position, seq, action) plus
// the node's max frequency, in one query.
func (s *Store) Lookup(ctx context.Context, combo, position, seq, action string) (NodeFrequencies, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT action, frequency FROM preflop_ranges
		WHERE combo = $1 AND position = $2 AND action_sequence = $3`, combo, position, seq)
	if err != nil {
		return NodeFrequencies{}, fmt.Errorf("rangesdb: lookup: %w", err)
	}
	defer rows.Close()

	var out NodeFrequencies
	var maxFreq float64
	var actionFreq float64
	var sawAction bool
	for rows.Next() {
		var a string
		var f float64
		if err := rows.Scan(&a, &f); err != nil {
			return NodeFrequencies{}, fmt.Errorf("rangesdb: scan: %w", err)
		}
		out.NodeExists = true
		if f > maxFreq {
			maxFreq = f
		}
		if a == action {
			actionFreq = f
			sawAction = true
		}
	}
	if err := rows.Err(); err != nil {
		return NodeFrequencies{}, err
	}
	if !out.NodeExists {
		return out, nil
	}
	out.MaxFreq = &maxFreq
	if sawAction {
		out.ActionFreq = &actionFreq
	} else {
		zero := 0.0
		out.ActionFreq = &zero
	}
	return out, nil
}
