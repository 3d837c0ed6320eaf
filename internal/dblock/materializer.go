package dblock

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// MaterializeStatus is reported to callers (ultimately the HTTP health
// layer) when a rebuild is requested.
type MaterializeStatus string

const (
	StatusBuilt        MaterializeStatus = "built"
	StatusMaterializing MaterializeStatus = "materializing"
	StatusError        MaterializeStatus = "materializing_error"
)

// MaterializeCoordinator guards the dashboard_materialize.lock file and
// collapses concurrent in-process rebuild requests with singleflight
// before ever touching the lock, so a burst of callers inside one process
// only ever attempts one lock acquisition.
type MaterializeCoordinator struct {
	lock  *FileLock
	group singleflight.Group
}

// NewMaterializeCoordinator binds a coordinator to the lock file next to
// the analytic DB, e.g. "<dbdir>/dashboard_materialize.lock".
func NewMaterializeCoordinator(lockPath string) *MaterializeCoordinator {
	return &MaterializeCoordinator{lock: New(lockPath)}
}

// Materialize runs build exactly once per overlapping burst of callers. If
// another process already holds the lock file, it returns StatusMaterializing
// without invoking build at all.
func (m *MaterializeCoordinator) Materialize(ctx context.Context, build func(ctx context.Context) error) (MaterializeStatus, error) {
	v, err, _ := m.group.Do("materialize", func() (any, error) {
		acquired, lockErr := m.lock.TryAcquire()
		if lockErr != nil {
			return StatusError, lockErr
		}
		if !acquired {
			return StatusMaterializing, nil
		}
		defer m.lock.Release()

		if buildErr := build(ctx); buildErr != nil {
			return StatusError, fmt.Errorf("dblock: materialize: %w", buildErr)
		}
		return StatusBuilt, nil
	})

	status, _ := v.(MaterializeStatus)
	if status == "" {
		status = StatusError
	}
	return status, err
}
