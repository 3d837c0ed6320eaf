package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokeretl/internal/upstream"
)

func TestValidateRequiresStubAndBlinds(t *testing.T) {
	require.False(t, validate(upstream.RawHand{}))
	require.False(t, validate(upstream.RawHand{Stub: "h1"}))
	require.False(t, validate(upstream.RawHand{Stub: "h1", Blinds: "1/2"}))
}

func TestValidateRequiresExactlyOneOfCashOrMTT(t *testing.T) {
	require.False(t, validate(upstream.RawHand{Stub: "h1", Blinds: "1/2", IsCash: true, IsMTT: true}))
	require.False(t, validate(upstream.RawHand{Stub: "h1", Blinds: "1/2", IsCash: false, IsMTT: false}))
	require.True(t, validate(upstream.RawHand{Stub: "h1", Blinds: "1/2", IsCash: true, IsMTT: false}))
	require.True(t, validate(upstream.RawHand{Stub: "h1", Blinds: "1/2", IsCash: false, IsMTT: true}))
}

func TestDriverSleepReturnsWhenClockElapses(t *testing.T) {
	mock := quartz.NewMock(t)
	d := &Driver{Clock: mock}

	done := make(chan error, 1)
	go func() {
		done <- d.Sleep(context.Background(), time.Minute)
	}()

	// Give Sleep a moment to arm clock.After before advancing it.
	time.Sleep(100 * time.Millisecond)

	advanceCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mock.Advance(time.Minute).MustWait(advanceCtx)

	require.NoError(t, <-done)
}

func TestDriverSleepReturnsOnContextCancel(t *testing.T) {
	mock := quartz.NewMock(t)
	d := &Driver{Clock: mock}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.Sleep(ctx, time.Hour)
	}()

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestBatchSizeDefaultsWhenUnset(t *testing.T) {
	d := &Driver{}
	require.Equal(t, 500, d.batchSize())

	d2 := &Driver{BatchSize: 50}
	require.Equal(t, 50, d2.batchSize())
}
