package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type RedisStoreTestSuite struct {
	suite.Suite
	ctx    context.Context
	server *miniredis.Miniredis
	client *redis.Client
	store  *RedisStore
	clock  *fakeClock
	win    *SlidingWindow
}

func TestRedisStore(t *testing.T) {
	suite.Run(t, new(RedisStoreTestSuite))
}

func (ts *RedisStoreTestSuite) SetupTest() {
	ts.ctx = context.Background()
	ts.server = miniredis.RunT(ts.T())
	ts.client = redis.NewClient(&redis.Options{Addr: ts.server.Addr()})
	ts.store = NewRedisStore(ts.client, "test:")
	ts.clock = newFakeClock()

	w, err := NewSlidingWindow("k", TierHour, 2, time.Hour, ts.store, ts.clock)
	ts.Require().NoError(err)
	ts.win = w
}

func (ts *RedisStoreTestSuite) TearDownTest() {
	_ = ts.client.Close()
}

func (ts *RedisStoreTestSuite) TestDeniesAtLimit() {
	_, d, err := ts.win.TryAcquire(ts.ctx)
	ts.Require().NoError(err)
	ts.True(d.Allowed)

	ts.clock.Advance(10 * time.Minute)
	_, d, err = ts.win.TryAcquire(ts.ctx)
	ts.Require().NoError(err)
	ts.True(d.Allowed)

	ts.clock.Advance(5 * time.Minute)
	_, d, err = ts.win.TryAcquire(ts.ctx)
	ts.Require().NoError(err)
	ts.False(d.Allowed)
	ts.Equal(TierHour, d.Tier)
	ts.Equal(45*time.Minute, d.RetryAfter)

	remaining, err := ts.win.Remaining(ts.ctx)
	ts.NoError(err)
	ts.Zero(remaining)

	n, err := ts.client.ZCard(ts.ctx, "test:k").Result()
	ts.NoError(err)
	ts.EqualValues(2, n)
}

// 分数精度为毫秒，恰好满一个窗口时过期
func (ts *RedisStoreTestSuite) TestEntryExpiresAtWindowBoundary() {
	for i := 0; i < 2; i++ {
		_, d, err := ts.win.TryAcquire(ts.ctx)
		ts.Require().NoError(err)
		ts.True(d.Allowed)
	}

	ts.clock.Advance(time.Hour - time.Millisecond)
	_, d, err := ts.win.TryAcquire(ts.ctx)
	ts.Require().NoError(err)
	ts.False(d.Allowed)
	ts.Equal(time.Millisecond, d.RetryAfter)

	ts.clock.Advance(time.Millisecond)
	_, d, err = ts.win.TryAcquire(ts.ctx)
	ts.Require().NoError(err)
	ts.True(d.Allowed)

	remaining, err := ts.win.Remaining(ts.ctx)
	ts.NoError(err)
	ts.Equal(1, remaining)
}

func (ts *RedisStoreTestSuite) TestReleaseFreesSlot() {
	p1, _, err := ts.win.TryAcquire(ts.ctx)
	ts.Require().NoError(err)
	ts.NotEmpty(p1.ID)
	_, _, err = ts.win.TryAcquire(ts.ctx)
	ts.Require().NoError(err)

	ts.NoError(ts.win.Release(ts.ctx, p1))
	remaining, err := ts.win.Remaining(ts.ctx)
	ts.NoError(err)
	ts.Equal(1, remaining)

	_, d, err := ts.win.TryAcquire(ts.ctx)
	ts.NoError(err)
	ts.True(d.Allowed)
}

// 两个存储实例共享同一个 key，模拟多进程
func (ts *RedisStoreTestSuite) TestSharedAcrossStores() {
	client := redis.NewClient(&redis.Options{Addr: ts.server.Addr()})
	defer client.Close()
	other := NewRedisStore(client, "test:")
	now := ts.clock.Now()

	_, _, ok, err := ts.store.Acquire(ts.ctx, "shared", now, time.Minute, 1)
	ts.Require().NoError(err)
	ts.True(ok)

	_, oldest, ok, err := other.Acquire(ts.ctx, "shared", now.Add(time.Second), time.Minute, 1)
	ts.Require().NoError(err)
	ts.False(ok)
	ts.Equal(now.UnixMilli(), oldest.UnixMilli())

	n, err := other.Count(ts.ctx, "shared", now.Add(time.Second), time.Minute)
	ts.NoError(err)
	ts.Equal(1, n)
}

func (ts *RedisStoreTestSuite) TestSetsKeyExpiry() {
	_, _, ok, err := ts.store.Acquire(ts.ctx, "ttl", ts.clock.Now(), time.Hour, 3)
	ts.Require().NoError(err)
	ts.True(ok)
	ts.Equal(time.Hour, ts.server.TTL("test:ttl"))
}

func (ts *RedisStoreTestSuite) TestDefaultPrefix() {
	s := NewRedisStore(ts.client, "")
	_, _, ok, err := s.Acquire(ts.ctx, "k", ts.clock.Now(), time.Hour, 1)
	ts.Require().NoError(err)
	ts.True(ok)
	ts.True(ts.server.Exists("throttle:k"))
}

func (ts *RedisStoreTestSuite) TestUnavailableServer() {
	ts.server.Close()
	_, _, _, err := ts.store.Acquire(ts.ctx, "k", ts.clock.Now(), time.Hour, 1)
	ts.Error(err)
}

func (ts *RedisStoreTestSuite) TestThrottlerHourDenialReleasesDayPermit() {
	cfg := DefaultConfig()
	cfg.PerDay = 5
	cfg.PerHour = 2
	cfg.PerMinute = 20
	cfg.Burst = 10
	t, err := NewThrottler(cfg, WithClock(ts.clock), WithStore(ts.store))
	ts.Require().NoError(err)

	for i := 0; i < 2; i++ {
		d, err := t.Acquire(ts.ctx)
		ts.Require().NoError(err)
		ts.True(d.Allowed)
	}
	d, err := t.Acquire(ts.ctx)
	ts.Require().NoError(err)
	ts.False(d.Allowed)
	ts.Equal(TierHour, d.Tier)

	stats, err := t.Stats(ts.ctx)
	ts.NoError(err)
	ts.Equal(3, stats.RemainingToday)
	ts.Equal(0, stats.RemainingHour)

	n, err := ts.client.ZCard(ts.ctx, "test:apply:day").Result()
	ts.NoError(err)
	ts.EqualValues(2, n)
}
