package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lox/pokeretl/internal/analyticstore"
	"github.com/lox/pokeretl/internal/dblock"
)

// MaterializerStage implements Stage 8 (C12): drop-and-rebuild of the
// three summary tables, in one transaction, guarded by the build lock
// (C14) so a concurrent query-server rebuild request can't race it.
type MaterializerStage struct {
	// LockPath is the dashboard_materialize.lock file. Empty skips
	// locking (used by tests that don't have a data root).
	LockPath string

	coordOnce sync.Once
	coord     *dblock.MaterializeCoordinator
}

func (s *MaterializerStage) Name() string { return "materializer" }

func (s *MaterializerStage) Run(ctx context.Context, db *analyticstore.Store) error {
	build := func(ctx context.Context) error {
		return rebuildSummaries(ctx, db)
	}

	if s.LockPath == "" {
		return build(ctx)
	}

	s.coordOnce.Do(func() {
		s.coord = dblock.NewMaterializeCoordinator(s.LockPath)
	})
	status, err := s.coord.Materialize(ctx, build)
	if err != nil {
		return fmt.Errorf("materializer: %w", err)
	}
	if status == dblock.StatusMaterializing {
		return nil // another process is already rebuilding; not an error
	}
	return nil
}

func rebuildSummaries(ctx context.Context, db *analyticstore.Store) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `TRUNCATE dashboard_summary, top25_players, player_summary`); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO dashboard_summary (total_hands, total_actions, avg_j_score, avg_preflop, avg_postflop, built_at)
		SELECT
			(SELECT COUNT(*) FROM hand_info),
			COUNT(*),
			COALESCE(AVG(j_score), 0),
			COALESCE(AVG(preflop_score), 0),
			COALESCE(AVG(postflop_score), 0),
			$1
		FROM actions
		WHERE player_id <> ''`, time.Now().UTC()); err != nil {
		return fmt.Errorf("dashboard_summary: %w", err)
	}

	if _, err := tx.Exec(ctx, top25PlayersSQL); err != nil {
		return fmt.Errorf("top25_players: %w", err)
	}

	if _, err := tx.Exec(ctx, playerSummarySQL); err != nil {
		return fmt.Errorf("player_summary: %w", err)
	}

	return tx.Commit(ctx)
}

// top25PlayersSQL aggregates per-player stats via CTEs: VPIP/PFR from
// preflop action participation, winrate in BB/100 from summed money_won
// over average big_blind, and three derived metrics (bet-deviance,
// tilt-factor, calldown-accuracy) computed from the same action rows.
const top25PlayersSQL = `
INSERT INTO top25_players (player_id, nickname, hands_played, vpip, pfr, avg_j_score,
	avg_preflop_score, avg_postflop_score, winrate_bb100, bet_deviance, tilt_factor, calldown_accuracy)
WITH player_hands AS (
	SELECT a.player_id, MAX(a.nickname) AS nickname, COUNT(DISTINCT a.hand_id) AS hands_played
	FROM actions a
	WHERE a.player_id <> ''
	GROUP BY a.player_id
	HAVING COUNT(DISTINCT a.hand_id) > 10
),
vpip_pfr AS (
	SELECT a.player_id,
		COUNT(DISTINCT a.hand_id) FILTER (WHERE a.street = 'preflop' AND a.action IN ('c','r')) AS vpip_hands,
		COUNT(DISTINCT a.hand_id) FILTER (WHERE a.street = 'preflop' AND a.action = 'r') AS pfr_hands
	FROM actions a
	GROUP BY a.player_id
),
scores AS (
	SELECT a.player_id,
		AVG(a.j_score) AS avg_j_score,
		AVG(a.preflop_score) AS avg_preflop_score,
		AVG(a.postflop_score) AS avg_postflop_score,
		STDDEV_POP(a.j_score) AS j_score_stddev
	FROM actions a
	GROUP BY a.player_id
),
player_winrate AS (
	SELECT a.player_id, SUM(p.money_won) AS total_won, AVG(hi.big_blind) AS avg_bb, COUNT(DISTINCT a.hand_id) AS hands
	FROM actions a
	JOIN players p ON p.hand_id = a.hand_id AND p.position = a.position
	JOIN hand_info hi ON hi.hand_id = a.hand_id
	GROUP BY a.player_id
),
calldown AS (
	SELECT a.player_id,
		COUNT(*) FILTER (WHERE a.street = 'river' AND a.action = 'c') AS river_calls,
		COUNT(*) FILTER (WHERE a.street = 'river' AND a.action = 'c' AND a.j_score >= 50) AS good_river_calls
	FROM actions a
	GROUP BY a.player_id
)
SELECT
	ph.player_id,
	ph.nickname,
	ph.hands_played,
	COALESCE(vp.vpip_hands, 0)::float / NULLIF(ph.hands_played, 0) AS vpip,
	COALESCE(vp.pfr_hands, 0)::float / NULLIF(ph.hands_played, 0) AS pfr,
	COALESCE(sc.avg_j_score, 0),
	COALESCE(sc.avg_preflop_score, 0),
	COALESCE(sc.avg_postflop_score, 0),
	COALESCE(pw.total_won, 0) / NULLIF(pw.avg_bb, 0) / NULLIF(pw.hands, 0) * 100 AS winrate_bb100,
	COALESCE(sc.j_score_stddev, 0) AS bet_deviance,
	LEAST(1.0, COALESCE(sc.j_score_stddev, 0) / 50.0) AS tilt_factor,
	COALESCE(cd.good_river_calls, 0)::float / NULLIF(cd.river_calls, 0) AS calldown_accuracy
FROM player_hands ph
LEFT JOIN vpip_pfr vp ON vp.player_id = ph.player_id
LEFT JOIN scores sc ON sc.player_id = ph.player_id
LEFT JOIN player_winrate pw ON pw.player_id = ph.player_id
LEFT JOIN calldown cd ON cd.player_id = ph.player_id
ORDER BY ph.hands_played DESC
LIMIT 25
`

const playerSummarySQL = `
INSERT INTO player_summary (player_id, hands_played, vpip, pfr, avg_j_score, avg_preflop_score, avg_postflop_score, river_calls)
SELECT
	a.player_id,
	COUNT(DISTINCT a.hand_id),
	COUNT(DISTINCT a.hand_id) FILTER (WHERE a.street = 'preflop' AND a.action IN ('c','r'))::float / NULLIF(COUNT(DISTINCT a.hand_id), 0),
	COUNT(DISTINCT a.hand_id) FILTER (WHERE a.street = 'preflop' AND a.action = 'r')::float / NULLIF(COUNT(DISTINCT a.hand_id), 0),
	COALESCE(AVG(a.j_score), 0),
	COALESCE(AVG(a.preflop_score), 0),
	COALESCE(AVG(a.postflop_score), 0),
	COUNT(*) FILTER (WHERE a.street = 'river' AND a.action = 'c')
FROM actions a
WHERE a.player_id <> ''
GROUP BY a.player_id
`
