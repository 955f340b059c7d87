package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Tier 限流层级
type Tier string

const (
	TierDay    Tier = "day"
	TierHour   Tier = "hour"
	TierMinute Tier = "minute"
)

// Decision 一次获取许可的结果
type Decision struct {
	Allowed    bool          `json:"allowed"`
	Tier       Tier          `json:"tier,omitempty"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	Reason     string        `json:"reason,omitempty"`

	// 放行时记录的天、小时许可，供 Throttler.Release 撤销
	permits []heldPermit
}

type heldPermit struct {
	window *SlidingWindow
	permit Permit
}

// Permit 滑动窗口中的一条记录，可用于回滚
type Permit struct {
	ID string
	At time.Time
}

// WindowStore 滑动窗口时间戳存储。Acquire 必须原子地完成淘汰、计数与写入。
// 淘汰规则：now - at >= window 的记录过期。
type WindowStore interface {
	Acquire(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (permit Permit, oldest time.Time, ok bool, err error)
	Release(ctx context.Context, key string, permit Permit) error
	Count(ctx context.Context, key string, now time.Time, window time.Duration) (int, error)
}

// SlidingWindow 滑动窗口限流：任意长度为 window 的区间内最多 limit 次
type SlidingWindow struct {
	key    string
	tier   Tier
	limit  int
	window time.Duration
	store  WindowStore
	clock  Clock
}

// NewSlidingWindow 创建滑动窗口限流器
func NewSlidingWindow(key string, tier Tier, limit int, window time.Duration, store WindowStore, clock Clock) (*SlidingWindow, error) {
	if limit <= 0 || window <= 0 {
		return nil, fmt.Errorf("%w: %s limit=%d window=%s", ErrInvalidRate, tier, limit, window)
	}
	if store == nil {
		store = NewMemoryStore()
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &SlidingWindow{key: key, tier: tier, limit: limit, window: window, store: store, clock: clock}, nil
}

// TryAcquire 尝试记录一次；达到上限时返回拒绝及最早记录过期前的等待时间
func (w *SlidingWindow) TryAcquire(ctx context.Context) (Permit, Decision, error) {
	now := w.clock.Now()
	permit, oldest, ok, err := w.store.Acquire(ctx, w.key, now, w.window, w.limit)
	if err != nil {
		return Permit{}, Decision{}, fmt.Errorf("%s window acquire: %w", w.tier, err)
	}
	if !ok {
		retryAfter := w.window - now.Sub(oldest)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return Permit{}, Decision{
			Allowed:    false,
			Tier:       w.tier,
			RetryAfter: retryAfter,
			Reason:     fmt.Sprintf("%s limit %d reached", w.tier, w.limit),
		}, nil
	}
	return permit, Decision{Allowed: true}, nil
}

// Release 撤销一次已记录的许可
func (w *SlidingWindow) Release(ctx context.Context, permit Permit) error {
	if permit.ID == "" {
		return nil
	}
	return w.store.Release(ctx, w.key, permit)
}

// Remaining 当前窗口内剩余次数
func (w *SlidingWindow) Remaining(ctx context.Context) (int, error) {
	n, err := w.store.Count(ctx, w.key, w.clock.Now(), w.window)
	if err != nil {
		return 0, err
	}
	if n >= w.limit {
		return 0, nil
	}
	return w.limit - n, nil
}

// Limit 窗口容量
func (w *SlidingWindow) Limit() int {
	return w.limit
}
