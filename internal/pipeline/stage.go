package pipeline

import (
	"context"
	"fmt"

	"github.com/lox/pokeretl/internal/analyticstore"
)

// Stage is one of the eight ETL stages. Each stage is idempotent: it only
// touches rows whose own target columns are still null, except the
// Materializer, which drops and rebuilds its tables outright.
type Stage interface {
	Name() string
	Run(ctx context.Context, db *analyticstore.Store) error
}

// Run drives stages 1-8 in order against a single batch of newly ingested
// hands. Stage 1 is invoked directly by the ingestion driver (it needs the
// raw upstream payloads, not just a hand_id list), so Run only wires
// stages 2-8.
func Run(ctx context.Context, db *analyticstore.Store, stages []Stage) error {
	for _, st := range stages {
		if err := st.Run(ctx, db); err != nil {
			return fmt.Errorf("pipeline: stage %s: %w", st.Name(), err)
		}
	}
	return nil
}
