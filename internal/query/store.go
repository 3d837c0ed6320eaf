// Package query implements the Query Contract (C13): read-only
// aggregation SQL over the analytic store, plus a thin health/progress
// HTTP surface the out-of-scope dashboard layer depends on.
package query

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lox/pokeretl/internal/model"
)

// Store wraps the AnalyticStore pool for read-only aggregation queries.
// Grounded on leanlp-BTC-coinjoin/internal/db/postgres.go's
// PostgresStore, a thin struct around *pgxpool.Pool with one method per
// query shape.
type Store struct {
	Pool *pgxpool.Pool
}

// New binds a query Store to an already-open analytic pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// IsReady reports whether the analytic store has completed at least one
// materialization pass: dashboard_summary has one row, and actions is
// non-empty, per spec.md §4.13.
func (s *Store) IsReady(ctx context.Context) (bool, error) {
	var dashboardRows, actionRows int
	err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM dashboard_summary`).Scan(&dashboardRows)
	if err != nil {
		return false, fmt.Errorf("query: count dashboard_summary: %w", err)
	}
	err = s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM actions`).Scan(&actionRows)
	if err != nil {
		return false, fmt.Errorf("query: count actions: %w", err)
	}
	return dashboardRows == 1 && actionRows > 0, nil
}

// Summary returns the single dashboard_summary row, or the zero value if
// materialization hasn't run yet.
func (s *Store) Summary(ctx context.Context) (model.DashboardSummary, error) {
	var d model.DashboardSummary
	err := s.Pool.QueryRow(ctx, `
		SELECT total_hands, total_actions, avg_j_score, avg_preflop, avg_postflop, built_at
		FROM dashboard_summary LIMIT 1`).
		Scan(&d.TotalHands, &d.TotalActions, &d.AvgJScore, &d.AvgPreflop, &d.AvgPostflop, &d.BuiltAt)
	if err != nil {
		return d, fmt.Errorf("query: summary: %w", err)
	}
	return d, nil
}

// TopPlayers returns the top25_players table, ordered by hands played.
func (s *Store) TopPlayers(ctx context.Context, limit int) ([]model.TopPlayerRow, error) {
	if limit <= 0 || limit > 25 {
		limit = 25
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT player_id, nickname, hands_played, vpip, pfr, avg_j_score, avg_preflop_score,
			avg_postflop_score, winrate_bb100, bet_deviance, tilt_factor, calldown_accuracy
		FROM top25_players
		ORDER BY hands_played DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query: top players: %w", err)
	}
	defer rows.Close()

	var out []model.TopPlayerRow
	for rows.Next() {
		var p model.TopPlayerRow
		if err := rows.Scan(&p.PlayerID, &p.Nickname, &p.HandsPlayed, &p.VPIP, &p.PFR,
			&p.AvgJScore, &p.AvgPreflopScore, &p.AvgPostflopScore, &p.WinrateBB100,
			&p.BetDeviance, &p.TiltFactor, &p.CalldownAccuracy); err != nil {
			return nil, fmt.Errorf("query: scan top player: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SegmentFilter narrows a segmented-aggregate query; zero-value fields
// are left unfiltered.
type SegmentFilter struct {
	Street      string
	ActionLabel string
	Position    string
	MinJScore   float64
	MaxJScore   float64
}

// SegmentAggregate is one (street, action_label) bucket's aggregate
// stats, per spec.md §4.13's "segmented aggregates with filter map".
type SegmentAggregate struct {
	Street      string
	ActionLabel string
	Count       int
	AvgJScore   float64
	AvgPreflop  float64
	AvgPostflop float64
}

// SegmentedAggregates groups actions by (street, action_label) under the
// given filter, returning one row per bucket.
func (s *Store) SegmentedAggregates(ctx context.Context, f SegmentFilter) ([]SegmentAggregate, error) {
	query := `
		SELECT street, COALESCE(action_label, ''), COUNT(*),
			COALESCE(AVG(j_score), 0), COALESCE(AVG(preflop_score), 0), COALESCE(AVG(postflop_score), 0)
		FROM actions
		WHERE ($1 = '' OR street = $1)
			AND ($2 = '' OR action_label = $2)
			AND ($3 = '' OR position = $3)
			AND ($4 = 0 OR j_score >= $4)
			AND ($5 = 0 OR j_score <= $5)
		GROUP BY street, action_label
		ORDER BY street, action_label`

	rows, err := s.Pool.Query(ctx, query, f.Street, f.ActionLabel, f.Position, f.MinJScore, f.MaxJScore)
	if err != nil {
		return nil, fmt.Errorf("query: segmented aggregates: %w", err)
	}
	defer rows.Close()

	var out []SegmentAggregate
	for rows.Next() {
		var a SegmentAggregate
		if err := rows.Scan(&a.Street, &a.ActionLabel, &a.Count, &a.AvgJScore, &a.AvgPreflop, &a.AvgPostflop); err != nil {
			return nil, fmt.Errorf("query: scan segment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// RecentHand is one row of the "recent hands for player" query.
type RecentHand struct {
	HandID    string
	HandDate  string
	Position  string
	MoneyWon  float64
	AvgJScore float64
}

// RecentHandsForPlayer returns a player's most recent hands, newest
// first.
func (s *Store) RecentHandsForPlayer(ctx context.Context, playerID string, limit int) ([]RecentHand, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT hi.hand_id, hi.hand_date, p.position, COALESCE(p.money_won, 0), COALESCE(AVG(a.j_score), 0)
		FROM (SELECT DISTINCT hand_id, position FROM actions WHERE player_id = $1) ap
		JOIN hand_info hi ON hi.hand_id = ap.hand_id
		JOIN players p ON p.hand_id = ap.hand_id AND p.position = ap.position
		LEFT JOIN actions a ON a.hand_id = ap.hand_id AND a.position = ap.position
		GROUP BY hi.hand_id, hi.hand_date, p.position, p.money_won
		ORDER BY hi.hand_date DESC
		LIMIT $2`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query: recent hands: %w", err)
	}
	defer rows.Close()

	var out []RecentHand
	for rows.Next() {
		var r RecentHand
		if err := rows.Scan(&r.HandID, &r.HandDate, &r.Position, &r.MoneyWon, &r.AvgJScore); err != nil {
			return nil, fmt.Errorf("query: scan recent hand: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SizeStrengthPoint is one scatter point of bet size vs hand strength.
type SizeStrengthPoint struct {
	SizeBucket string
	JScore     float64
	Street     string
}

// SizeVsStrength returns every sized action's (size_bucket, j_score)
// pair for a street, for the "betting size vs strength scatter" query.
func (s *Store) SizeVsStrength(ctx context.Context, street string, limit int) ([]SizeStrengthPoint, error) {
	if limit <= 0 || limit > 50000 {
		limit = 50000
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT COALESCE(size_cat, ''), COALESCE(j_score, 0), street
		FROM actions
		WHERE ($1 = '' OR street = $1) AND size_cat IS NOT NULL
		ORDER BY hand_id, action_order
		LIMIT $2`, street, limit)
	if err != nil {
		return nil, fmt.Errorf("query: size vs strength: %w", err)
	}
	defer rows.Close()

	var out []SizeStrengthPoint
	for rows.Next() {
		var p SizeStrengthPoint
		if err := rows.Scan(&p.SizeBucket, &p.JScore, &p.Street); err != nil {
			return nil, fmt.Errorf("query: scan scatter point: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
