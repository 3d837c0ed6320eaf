// Package analyticstore implements AnalyticStore: the derived, normalized
// tables built by the eight ETL stages (C5-C12), plus the index/pragma
// concerns of C14 that apply to this store.
package analyticstore

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

// Store wraps the AnalyticStore connection pool.
type Store struct {
	Pool *pgxpool.Pool
}

// Connect opens the pool, applying the session-level statement timeout
// (the equivalent of the busy-timeout pragma named in C14) to every pooled
// connection via pgxpool's AfterConnect hook, and verifies connectivity.
// Synchronous commit is left at the server's setting.
func Connect(ctx context.Context, connStr string) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("analyticstore: parse config: %w", err)
	}

	poolCfg.MaxConns = 8
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if _, err := conn.Exec(ctx, `SET statement_timeout = '30s'`); err != nil {
			return fmt.Errorf("analyticstore: set statement_timeout: %w", err)
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("analyticstore: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("analyticstore: ping: %w", err)
	}

	return &Store{Pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// InitSchema executes the embedded schema.sql, idempotently, and is also
// how C14's "ensure-indexes" step is satisfied: the same statements are
// safe to re-run before every pipeline run.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("analyticstore: init schema: %w", err)
	}
	return nil
}

// EnsureIndexes re-applies the CREATE INDEX IF NOT EXISTS statements. It is
// idempotent and cheap to call before every pipeline run, per C14.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	return s.InitSchema(ctx)
}

// WipeAll truncates every AnalyticStore table, used by the hosted-mode
// first-deploy wipe (§6).
func (s *Store) WipeAll(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `TRUNCATE hand_info, streets, players, actions,
		postflop_scores, preflop_scores, dashboard_summary, top25_players, player_summary CASCADE`)
	if err != nil {
		return fmt.Errorf("analyticstore: wipe all: %w", err)
	}
	return nil
}

// HasHandInfo reports whether a hand has already been processed by Stage 1.
func (s *Store) HasHandInfo(ctx context.Context, handID string) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM hand_info WHERE hand_id = $1)`, handID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("analyticstore: has hand info: %w", err)
	}
	return exists, nil
}

// WriteParsedHand persists one Stage 1 result (hand_info, streets, players,
// actions) in a single transaction, per spec.md §4.5's "hand is not
// partially inserted" requirement.
func (s *Store) WriteParsedHand(ctx context.Context, h model.HandInfo, streets []model.StreetRow, players []model.PlayerRow, actions []model.ActionRow) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("analyticstore: write parsed hand: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO hand_info (hand_id, hand_date, seq, is_mtt, is_cash, big_blind, small_blind, ante, players_cnt, pot_type)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (hand_id) DO NOTHING`,
		h.HandID, h.HandDate, h.Seq, h.IsMTT, h.IsCash, h.BigBlind, h.SmallBlind, h.Ante, h.PlayersCnt, h.PotType)
	if err != nil {
		return fmt.Errorf("analyticstore: insert hand_info: %w", err)
	}

	for _, st := range streets {
		_, err = tx.Exec(ctx, `
			INSERT INTO streets (hand_id, street, board) VALUES ($1,$2,$3)
			ON CONFLICT (hand_id, street) DO NOTHING`, st.HandID, string(st.Street), st.Board)
		if err != nil {
			return fmt.Errorf("analyticstore: insert streets: %w", err)
		}
	}

	for _, p := range players {
		_, err = tx.Exec(ctx, `
			INSERT INTO players (hand_id, position, nickname, stack0, holecards, money_won)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (hand_id, position) DO NOTHING`,
			p.HandID, p.Position, p.Nickname, p.Stack0, p.HoleCards, p.MoneyWon)
		if err != nil {
			return fmt.Errorf("analyticstore: insert players: %w", err)
		}
	}

	batch := &pgx.Batch{}
	for _, a := range actions {
		batch.Queue(`
			INSERT INTO actions (hand_id, action_order, street, street_index, position, player_id, nickname,
				action, amount_to, stack_before, stack_after, invested_this_action, pot_before, pot_after,
				players_left, is_allin, state_prefix, board_cards, holecards)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
			ON CONFLICT (hand_id, action_order) DO NOTHING`,
			a.HandID, a.ActionOrder, string(a.Street), a.StreetIndex, a.Position, a.PlayerID, a.Nickname,
			string(a.Action), a.AmountTo, a.StackBefore, a.StackAfter, a.InvestedThisAction, a.PotBefore,
			a.PotAfter, a.PlayersLeft, a.IsAllin, a.StatePrefix, a.BoardCards, a.HoleCards)
	}
	br := tx.SendBatch(ctx, batch)
	for range actions {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("analyticstore: insert actions: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("analyticstore: insert actions: close batch: %w", err)
	}

	return tx.Commit(ctx)
}

// WritePostflopScores persists one hand's partial_scores map, keyed by node
// string, ignoring duplicates.
func (s *Store) WritePostflopScores(ctx context.Context, rows []model.PostflopScoreRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO postflop_scores (hand_id, node_string, action_score, decision_difficulty)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (hand_id, node_string) DO NOTHING`,
			r.HandID, r.NodeString, r.ActionScore, r.DecisionDifficulty)
	}
	br := s.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("analyticstore: insert postflop scores: %w", err)
		}
	}
	return nil
}

// HandPostflopNodes returns every stored node string for a hand, used by
// Stage 1's action_score backfill and Stage 7's score join.
func (s *Store) HandPostflopNodes(ctx context.Context, handID string) ([]model.PostflopScoreRow, error) {
	rows, err := s.Pool.Query(ctx, `SELECT hand_id, node_string, action_score, decision_difficulty FROM postflop_scores WHERE hand_id = $1`, handID)
	if err != nil {
		return nil, fmt.Errorf("analyticstore: hand postflop nodes: %w", err)
	}
	defer rows.Close()
	var out []model.PostflopScoreRow
	for rows.Next() {
		var r model.PostflopScoreRow
		if err := rows.Scan(&r.HandID, &r.NodeString, &r.ActionScore, &r.DecisionDifficulty); err != nil {
			return nil, fmt.Errorf("analyticstore: scan postflop node: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateActionScore backfills action_score/decision_difficulty on one
// postflop action row (Stage 1's node-string match).
func (s *Store) UpdateActionScore(ctx context.Context, handID string, actionOrder int, score, difficulty *float64) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE actions SET action_score = $3, decision_difficulty = $4
		WHERE hand_id = $1 AND action_order = $2`, handID, actionOrder, score, difficulty)
	return err
}

// HandsNeedingStage returns the hand_ids of hands that still have at least
// one action row with the given column null, bounded to `limit` hands.
func (s *Store) HandsNeedingStage(ctx context.Context, column string, limit int) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT hand_id FROM actions WHERE %s IS NULL ORDER BY hand_id LIMIT $1`, pgx.Identifier{column}.Sanitize())
	rows, err := s.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("analyticstore: hands needing stage %s: %w", column, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// HandActions returns every action row for a hand in action_order.
func (s *Store) HandActions(ctx context.Context, handID string) ([]model.ActionRow, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT hand_id, action_order, street, street_index, position, player_id, nickname, action,
			amount_to, stack_before, stack_after, invested_this_action, pot_before, pot_after,
			players_left, is_allin, action_score, decision_difficulty, state_prefix, board_cards, holecards,
			size_frac, size_cat, action_label, ip_status, j_score, intention, preflop_score, postflop_score, solver_best
		FROM actions WHERE hand_id = $1 ORDER BY action_order`, handID)
	if err != nil {
		return nil, fmt.Errorf("analyticstore: hand actions: %w", err)
	}
	defer rows.Close()

	var out []model.ActionRow
	for rows.Next() {
		var a model.ActionRow
		var street, action string
		var ipStatus *string
		if err := rows.Scan(&a.HandID, &a.ActionOrder, &street, &a.StreetIndex, &a.Position, &a.PlayerID,
			&a.Nickname, &action, &a.AmountTo, &a.StackBefore, &a.StackAfter, &a.InvestedThisAction,
			&a.PotBefore, &a.PotAfter, &a.PlayersLeft, &a.IsAllin, &a.ActionScore, &a.DecisionDifficulty,
			&a.StatePrefix, &a.BoardCards, &a.HoleCards, &a.SizeFrac, &a.SizeCat, &a.ActionLabel, &ipStatus,
			&a.JScore, &a.Intention, &a.PreflopScore, &a.PostflopScore, &a.SolverBest); err != nil {
			return nil, fmt.Errorf("analyticstore: scan action: %w", err)
		}
		a.Street = model.Street(street)
		a.Action = model.ActionKind(action)
		if ipStatus != nil {
			v := model.IPStatus(*ipStatus)
			a.IPStatus = &v
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateActionFields writes back the mutable scoring columns for one
// action row. Stages only ever set columns that were previously null, so
// this always does a full-row overwrite of the scoring columns.
func (s *Store) UpdateActionFields(ctx context.Context, a model.ActionRow) error {
	var ipStatus *string
	if a.IPStatus != nil {
		v := string(*a.IPStatus)
		ipStatus = &v
	}
	_, err := s.Pool.Exec(ctx, `
		UPDATE actions SET size_frac = $3, size_cat = $4, action_label = $5, ip_status = $6,
			j_score = $7, intention = $8, preflop_score = $9, postflop_score = $10, solver_best = $11
		WHERE hand_id = $1 AND action_order = $2`,
		a.HandID, a.ActionOrder, a.SizeFrac, a.SizeCat, a.ActionLabel, ipStatus,
		a.JScore, a.Intention, a.PreflopScore, a.PostflopScore, a.SolverBest)
	return err
}

// UpdateActionFieldsBatch is UpdateActionFields fanned out as a single
// pipelined batch, used by stages that must flush ≥N rows at a time (C7,
// C9).
func (s *Store) UpdateActionFieldsBatch(ctx context.Context, rows []model.ActionRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, a := range rows {
		var ipStatus *string
		if a.IPStatus != nil {
			v := string(*a.IPStatus)
			ipStatus = &v
		}
		batch.Queue(`
			UPDATE actions SET size_frac = $3, size_cat = $4, action_label = $5, ip_status = $6,
				j_score = $7, intention = $8, preflop_score = $9, postflop_score = $10, solver_best = $11
			WHERE hand_id = $1 AND action_order = $2`,
			a.HandID, a.ActionOrder, a.SizeFrac, a.SizeCat, a.ActionLabel, ipStatus,
			a.JScore, a.Intention, a.PreflopScore, a.PostflopScore, a.SolverBest)
	}
	br := s.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("analyticstore: update action fields batch: %w", err)
		}
	}
	return nil
}

// WritePreflopScores inserts Stage 2's per-actor rows in one batch.
func (s *Store) WritePreflopScores(ctx context.Context, rows []model.PreflopScoreRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO preflop_scores (hand_id, position, player, combo, seq, freq, best)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (hand_id, position) DO NOTHING`,
			r.HandID, r.Position, r.Player, r.Combo, r.Seq, r.Freq, r.Best)
	}
	br := s.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("analyticstore: insert preflop scores: %w", err)
		}
	}
	return nil
}

// HasPreflopScores reports whether Stage 2 has already processed a hand.
func (s *Store) HasPreflopScores(ctx context.Context, handID string) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM preflop_scores WHERE hand_id = $1)`, handID).Scan(&exists)
	return exists, err
}

// PreflopScoreByPosition looks up a hand's Stage 2 row for a position,
// trying raw / stripped / "Hand"-prefixed variants as spec.md §4.11
// requires for Stage 7's join.
func (s *Store) PreflopScoreByPosition(ctx context.Context, handID, position string) (*model.PreflopScoreRow, error) {
	candidates := []string{position}
	if stripped, ok := trimPrefixHand(position); ok {
		candidates = append(candidates, stripped)
	} else {
		candidates = append(candidates, "Hand"+position)
	}
	for _, cand := range candidates {
		var r model.PreflopScoreRow
		err := s.Pool.QueryRow(ctx, `
			SELECT hand_id, position, player, combo, seq, freq, best FROM preflop_scores
			WHERE hand_id = $1 AND position = $2`, handID, cand).
			Scan(&r.HandID, &r.Position, &r.Player, &r.Combo, &r.Seq, &r.Freq, &r.Best)
		if err == nil {
			return &r, nil
		}
		if err != pgx.ErrNoRows {
			return nil, fmt.Errorf("analyticstore: preflop score by position: %w", err)
		}
	}
	return nil, nil
}

func trimPrefixHand(s string) (string, bool) {
	const prefix = "Hand"
	if len(s) > len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):], true
	}
	return "", false
}

// ListDistinctHandIDs returns hand_ids from hand_info in hand_id order, at
// most limit of them. With excludeWithPreflopScores, hands that already
// have preflop_scores rows are left out. Used by Stage 2.
func (s *Store) ListDistinctHandIDs(ctx context.Context, excludeWithPreflopScores bool, limit int) ([]string, error) {
	query := `SELECT hand_id FROM hand_info`
	if excludeWithPreflopScores {
		query += ` WHERE hand_id NOT IN (SELECT DISTINCT hand_id FROM preflop_scores)`
	}
	query += ` ORDER BY hand_id LIMIT $1`
	rows, err := s.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("analyticstore: list distinct hand ids: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
