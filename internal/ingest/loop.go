package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// todayTickInterval is the sleep applied when the day being processed is
// today's date (spec.md §4.4: "10 min if day == today").
const todayTickInterval = 10 * time.Minute

// LoopOptions configures the outer date loop.
type LoopOptions struct {
	StartDate    string
	SleepSeconds int
	Hosted       bool
	NoClean      bool
	DataRoot     string
}

// Loop advances the date cursor forward from StartDate, calling RunDate
// for each date, sleeping between iterations, and stopping when ctx is
// cancelled (SIGINT/SIGTERM are wired into ctx by the caller). A date whose
// RunDate fails is logged, slept on, and retried without advancing.
func (d *Driver) Loop(ctx context.Context, opts LoopOptions) error {
	if opts.Hosted && !opts.NoClean {
		if err := d.firstDeployWipe(ctx, opts.DataRoot); err != nil {
			return fmt.Errorf("ingest: first deploy wipe: %w", err)
		}
	}

	date, err := time.Parse("2006-01-02", opts.StartDate)
	if err != nil {
		return fmt.Errorf("ingest: invalid start date %q: %w", opts.StartDate, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		dateStr := date.Format("2006-01-02")
		isToday := dateStr == time.Now().UTC().Format("2006-01-02")

		if err := d.RunDate(ctx, dateStr); err != nil {
			d.logf("ingest: date %s failed: %v", dateStr, err)
			if err := d.Sleep(ctx, time.Duration(opts.SleepSeconds)*time.Second); err != nil {
				return nil
			}
			continue
		}

		if !isToday && opts.DataRoot != "" {
			if err := d.archiveDate(ctx, opts.DataRoot, dateStr); err != nil {
				d.logf("ingest: archive %s failed: %v", dateStr, err)
			}
		}

		sleepFor := time.Duration(opts.SleepSeconds) * time.Second
		if isToday {
			sleepFor = todayTickInterval
		}
		if err := d.Sleep(ctx, sleepFor); err != nil {
			return nil
		}

		date = date.AddDate(0, 0, 1)
	}
}

// firstDeployWipe truncates both stores exactly once, gated on the
// `.first_deploy_done` marker file, mirroring clean_start.py's behavior.
func (d *Driver) firstDeployWipe(ctx context.Context, dataRoot string) error {
	if dataRoot == "" {
		return nil
	}
	marker := filepath.Join(dataRoot, "database", ".first_deploy_done")
	if _, err := os.Stat(marker); err == nil {
		return nil // already performed
	}

	if err := d.Raw.WipeAll(ctx); err != nil {
		return fmt.Errorf("wipe primary store: %w", err)
	}
	if err := d.Analytic.WipeAll(ctx); err != nil {
		return fmt.Errorf("wipe analytic store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(marker), 0o755); err != nil {
		return err
	}
	return os.WriteFile(marker, []byte(time.Now().UTC().Format(time.RFC3339)), 0o644)
}

// archiveDate exports both stores' logical snapshot for a completed date
// via pg_dump-shaped COPY exports, once the date's batches have committed
// cleanly and it is no longer today, per db_rotation.py's rotation
// behavior adapted to a Postgres-backed store.
func (d *Driver) archiveDate(ctx context.Context, dataRoot, date string) error {
	dir := filepath.Join(dataRoot, "archive", date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("archive: mkdir: %w", err)
	}

	if err := exportTableSnapshot(ctx, d.Raw.Pool(), filepath.Join(dir, "poker.sql")); err != nil {
		return fmt.Errorf("archive: primary store: %w", err)
	}
	if err := exportTableSnapshot(ctx, d.Analytic.Pool, filepath.Join(dir, "heavy_analysis.sql")); err != nil {
		return fmt.Errorf("archive: analytic store: %w", err)
	}
	return nil
}
