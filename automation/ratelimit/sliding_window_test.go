package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type SlidingWindowTestSuite struct {
	suite.Suite
	clock *fakeClock
	win   *SlidingWindow
}

func TestSlidingWindow(t *testing.T) {
	suite.Run(t, new(SlidingWindowTestSuite))
}

func (ts *SlidingWindowTestSuite) SetupTest() {
	ts.clock = newFakeClock()
	w, err := NewSlidingWindow("k", TierHour, 2, time.Hour, NewMemoryStore(), ts.clock)
	ts.Require().NoError(err)
	ts.win = w
}

func (ts *SlidingWindowTestSuite) TestDeniesAtLimit() {
	ctx := context.Background()

	_, d, err := ts.win.TryAcquire(ctx)
	ts.NoError(err)
	ts.True(d.Allowed)

	ts.clock.Advance(10 * time.Minute)
	_, d, err = ts.win.TryAcquire(ctx)
	ts.NoError(err)
	ts.True(d.Allowed)

	ts.clock.Advance(5 * time.Minute)
	_, d, err = ts.win.TryAcquire(ctx)
	ts.NoError(err)
	ts.False(d.Allowed)
	ts.Equal(TierHour, d.Tier)
	ts.Equal(45*time.Minute, d.RetryAfter)

	remaining, err := ts.win.Remaining(ctx)
	ts.NoError(err)
	ts.Zero(remaining)
}

func (ts *SlidingWindowTestSuite) TestEntryExpiresAtWindowBoundary() {
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, d, err := ts.win.TryAcquire(ctx)
		ts.NoError(err)
		ts.True(d.Allowed)
	}

	ts.clock.Advance(time.Hour - time.Nanosecond)
	_, d, err := ts.win.TryAcquire(ctx)
	ts.NoError(err)
	ts.False(d.Allowed)

	ts.clock.Advance(time.Nanosecond)
	_, d, err = ts.win.TryAcquire(ctx)
	ts.NoError(err)
	ts.True(d.Allowed)
}

func (ts *SlidingWindowTestSuite) TestReleaseFreesSlot() {
	ctx := context.Background()
	p1, _, err := ts.win.TryAcquire(ctx)
	ts.NoError(err)
	_, _, err = ts.win.TryAcquire(ctx)
	ts.NoError(err)

	ts.NoError(ts.win.Release(ctx, p1))
	remaining, err := ts.win.Remaining(ctx)
	ts.NoError(err)
	ts.Equal(1, remaining)

	ts.NoError(ts.win.Release(ctx, Permit{}))
}

func (ts *SlidingWindowTestSuite) TestInvalidLimit() {
	_, err := NewSlidingWindow("k", TierDay, 0, time.Hour, nil, nil)
	ts.ErrorIs(err, ErrInvalidRate)
}
