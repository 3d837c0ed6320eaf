package dblock

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.lock")
	l := New(path)

	ok, err := l.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, l.Held())

	second := New(path)
	ok, err = second.TryAcquire()
	require.NoError(t, err)
	require.False(t, ok, "second acquire must fail while the first holds the lock")

	require.NoError(t, l.Release())
	require.False(t, l.Held())

	ok, err = second.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, second.Release())
}

func TestAcquireTimesOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.lock")
	holder := New(path)
	ok, err := holder.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
	defer holder.Release()

	waiter := New(path)
	err = waiter.Acquire(context.Background(), 50*time.Millisecond, 10*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestMaterializeCoordinatorReportsMaterializingWhenLockHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard_materialize.lock")

	external := New(path)
	ok, err := external.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
	defer external.Release()

	coord := NewMaterializeCoordinator(path)
	status, err := coord.Materialize(context.Background(), func(ctx context.Context) error {
		t.Fatal("build should not run while the lock is held externally")
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, StatusMaterializing, status)
}

func TestMaterializeCoordinatorBuildsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard_materialize.lock")
	coord := NewMaterializeCoordinator(path)

	calls := 0
	status, err := coord.Materialize(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, StatusBuilt, status)
	require.Equal(t, 1, calls)
	require.False(t, New(path).Held(), "lock must be released after a successful build")
}
