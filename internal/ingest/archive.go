package ingest

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lox/pokeretl/internal/fileutil"
)

// archivedTables lists, per store, which tables get a COPY-shaped
// snapshot written to the daily archive directory.
var archivedTables = []string{
	"hands", "hand_meta", "partial_scores",
	"hand_info", "streets", "players", "actions", "preflop_scores", "postflop_scores",
}

// exportTableSnapshot writes a pg_dump-shaped logical snapshot of every
// table present in pool to path, one `COPY table TO STDOUT` block per
// table, skipping tables the store doesn't have. The snapshot is built in
// memory and written with fileutil.WriteFileAtomic so a concurrent reader
// of the archive directory never observes a partially-copied file.
func exportTableSnapshot(ctx context.Context, pool *pgxpool.Pool, path string) error {
	var buf bytes.Buffer

	for _, table := range archivedTables {
		var exists bool
		err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		if err != nil || !exists {
			continue
		}

		fmt.Fprintf(&buf, "-- table %s\n", table)
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquire conn for %s: %w", table, err)
		}
		_, err = conn.Conn().PgConn().CopyTo(ctx, &buf, fmt.Sprintf("COPY %s TO STDOUT", table))
		conn.Release()
		if err != nil {
			return fmt.Errorf("copy %s: %w", table, err)
		}
	}

	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}
	return nil
}
