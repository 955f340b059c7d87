package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"job_applier_go/metrics"
)

// ErrInvalidRate 速率或容量配置非法
var ErrInvalidRate = errors.New("ratelimit: rate, burst and window must be positive")

// TokenBucket 令牌桶：每个窗口补充 rate 个令牌，连续补充，最多 burst 个
type TokenBucket struct {
	mu      sync.RWMutex
	limiter *rate.Limiter
	rate    int
	burst   int
	window  time.Duration
	clock   Clock
}

// NewTokenBucket 创建令牌桶，初始为满桶
func NewTokenBucket(ratePerWindow, burst int, window time.Duration, clock Clock) (*TokenBucket, error) {
	if ratePerWindow <= 0 || burst <= 0 || window <= 0 {
		return nil, fmt.Errorf("%w: rate=%d burst=%d window=%s", ErrInvalidRate, ratePerWindow, burst, window)
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &TokenBucket{
		limiter: rate.NewLimiter(refillLimit(ratePerWindow, window), burst),
		rate:    ratePerWindow,
		burst:   burst,
		window:  window,
		clock:   clock,
	}, nil
}

func refillLimit(ratePerWindow int, window time.Duration) rate.Limit {
	return rate.Limit(float64(ratePerWindow) / window.Seconds())
}

// Wait 获取一个令牌，不足时等待补充；ctx 取消时归还预留的令牌
func (b *TokenBucket) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := b.clock.Now()
	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return fmt.Errorf("ratelimit: cannot reserve token with burst %d", b.limiter.Burst())
	}

	delay := r.DelayFrom(now)
	metrics.ThrottleWait.Observe(delay.Seconds())
	if delay <= 0 {
		return nil
	}

	select {
	case <-b.clock.After(delay):
		return nil
	case <-ctx.Done():
		r.CancelAt(b.clock.Now())
		return ctx.Err()
	}
}

// SetRate 调整补充速率，已积累的令牌保留
func (b *TokenBucket) SetRate(ratePerWindow int) {
	if ratePerWindow <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rate = ratePerWindow
	b.limiter.SetLimitAt(b.clock.Now(), refillLimit(ratePerWindow, b.window))
}

// Rate 当前每窗口速率
func (b *TokenBucket) Rate() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rate
}

// Tokens 当前可用令牌数
func (b *TokenBucket) Tokens() float64 {
	return b.limiter.TokensAt(b.clock.Now())
}

// Burst 桶容量
func (b *TokenBucket) Burst() int {
	return b.burst
}
