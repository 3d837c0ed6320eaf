// Package ingest implements the date-loop ingestion state machine (C4):
// pull hands for one date, dedupe and validate them, commit raw rows in
// batches, and invoke the ETL pipeline on each committed batch.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/pokeretl/internal/analyticstore"
	"github.com/lox/pokeretl/internal/dblock"
	"github.com/lox/pokeretl/internal/model"
	"github.com/lox/pokeretl/internal/pipeline"
	"github.com/lox/pokeretl/internal/rawstore"
	"github.com/lox/pokeretl/internal/upstream"
)

// Driver owns the single cooperative thread that scrapes dates, commits
// raw batches, and runs the ETL pipeline, per spec.md §4.4/§5.
type Driver struct {
	Raw          *rawstore.Store
	Analytic     *analyticstore.Store
	Upstream     *upstream.Client
	Organizer    string
	Event        string
	BatchSize    int
	Stages       []pipeline.Stage
	NormalizeCur bool
	Clock        quartz.Clock
	Logger       *log.Logger

	// WriteLockPath is the per-database <db>.lock file (C14) guarding a
	// batch commit + ETL run against a concurrent writer. Empty skips
	// locking.
	WriteLockPath string
}

// validatedHand is one raw hand that has passed validate() and dedup.
type validatedHand struct {
	raw  model.RawHand
	meta model.HandMeta
	decoded upstream.RawHand
	seq  int
}

// RunDate drives ScrapeDate for a single date: paginate, validate, dedupe,
// accumulate into BatchSize-sized batches, and commit+run-ETL on each
// full batch (and once more for a trailing partial batch at day end).
func (d *Driver) RunDate(ctx context.Context, date string) error {
	hands, errs := d.Upstream.IterHands(ctx, d.Organizer, d.Event, date)

	var batch []validatedHand
	seq := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := d.commitAndRun(ctx, batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for h := range hands {
		seq++
		vh, ok, err := d.validateAndDedupe(ctx, h, date, seq)
		if err != nil {
			d.logf("ingest: validate hand failed: %v", err)
			continue
		}
		if !ok {
			continue
		}
		batch = append(batch, vh)
		if len(batch) >= d.batchSize() {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	if err := <-errs; err != nil {
		if err == upstream.ErrNotFound {
			return flush()
		}
		d.logf("ingest: iterator error for %s: %v", date, err)
	}

	return flush()
}

func (d *Driver) validateAndDedupe(ctx context.Context, h upstream.RawHand, date string, seq int) (validatedHand, bool, error) {
	if !validate(h) {
		return validatedHand{}, false, nil
	}

	exists, err := d.Raw.Exists(ctx, h.Stub)
	if err != nil {
		return validatedHand{}, false, fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return validatedHand{}, false, nil
	}

	rawJSON, err := json.Marshal(h)
	if err != nil {
		return validatedHand{}, false, fmt.Errorf("marshal hand: %w", err)
	}

	var chipValue *float64
	if float64(h.ChipValue) != 0 {
		v := float64(h.ChipValue)
		chipValue = &v
	}

	return validatedHand{
		decoded: h,
		seq:     seq,
		raw: model.RawHand{
			ID:        h.Stub,
			HandDate:  date,
			Seq:       seq,
			RawJSON:   rawJSON,
			ChipValue: chipValue,
		},
		meta: model.HandMeta{
			ID:               h.Stub,
			HandDate:         date,
			IsCash:           bool(h.IsCash),
			IsMTT:            bool(h.IsMTT),
			BlindsBB:         float64(h.BigBlindAmount),
			PotType:          h.PotType,
			EffStackBB:       float64(h.EffectiveStack),
			ChipBB:           float64(h.ChipValue),
			HasPartialScores: len(h.PartialScores) > 0,
		},
	}, true, nil
}

// validate requires a non-empty id, non-empty blinds string, and exactly
// one of is_cash/is_mtt, per spec.md §4.4.
func validate(h upstream.RawHand) bool {
	if h.Stub == "" {
		return false
	}
	if h.Blinds == "" {
		return false
	}
	if bool(h.IsCash) == bool(h.IsMTT) {
		return false
	}
	return true
}

func (d *Driver) commitAndRun(ctx context.Context, batch []validatedHand) error {
	if d.WriteLockPath != "" {
		lock := dblock.New(d.WriteLockPath)
		if err := lock.Acquire(ctx, 10*time.Minute, 200*time.Millisecond); err != nil {
			return fmt.Errorf("ingest: acquire write lock: %w", err)
		}
		defer lock.Release()
	}

	rawRows := make([]model.RawHand, len(batch))
	metaRows := make([]model.HandMeta, len(batch))
	partialRows := make([]model.PartialScores, 0, len(batch))
	for i, vh := range batch {
		rawRows[i] = vh.raw
		metaRows[i] = vh.meta
		if vh.meta.HasPartialScores {
			partialJSON, err := json.Marshal(vh.decoded.PartialScores)
			if err != nil {
				return fmt.Errorf("ingest: marshal partial scores %s: %w", vh.raw.ID, err)
			}
			partialRows = append(partialRows, model.PartialScores{ID: vh.raw.ID, JSON: partialJSON})
		}
	}

	if _, err := d.Raw.InsertHands(ctx, rawRows); err != nil {
		return fmt.Errorf("ingest: insert hands: %w", err)
	}
	if err := d.Raw.InsertMeta(ctx, metaRows); err != nil {
		return fmt.Errorf("ingest: insert meta: %w", err)
	}
	if err := d.Raw.InsertPartialScores(ctx, partialRows); err != nil {
		return fmt.Errorf("ingest: insert partial scores: %w", err)
	}

	for _, vh := range batch {
		input := upstream.ToHandInput(vh.decoded, vh.seq, d.NormalizeCur)
		input.HandDate = vh.raw.HandDate
		partialJSON, _ := json.Marshal(vh.decoded.PartialScores)
		if err := pipeline.ProcessHand(ctx, d.Analytic, input, partialJSON); err != nil {
			d.logf("ingest: stage 1 failed for hand %s: %v", vh.raw.ID, err)
			continue
		}
	}

	if err := d.Analytic.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ingest: ensure indexes: %w", err)
	}
	if err := pipeline.Run(ctx, d.Analytic, d.Stages); err != nil {
		return fmt.Errorf("ingest: run etl: %w", err)
	}
	return nil
}

func (d *Driver) batchSize() int {
	if d.BatchSize <= 0 {
		return 500
	}
	return d.BatchSize
}

func (d *Driver) logf(format string, args ...any) {
	if d.Logger != nil {
		d.Logger.Errorf(format, args...)
	}
}

// Sleep blocks until d.Clock elapses sleepFor, or ctx is cancelled. Used
// between date iterations: 10 minutes when the day just finished is
// today, otherwise the configured --sleep duration.
func (d *Driver) Sleep(ctx context.Context, sleepFor time.Duration) error {
	clock := d.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	select {
	case <-clock.After(sleepFor):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
