package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"job_applier_go/metrics"
)

// AdaptiveConfig 自适应限流配置
type AdaptiveConfig struct {
	InitialRate   int           `mapstructure:"initial_rate" yaml:"initial_rate"`
	MinRate       int           `mapstructure:"min_rate" yaml:"min_rate"`
	MaxRate       int           `mapstructure:"max_rate" yaml:"max_rate"`
	Step          int           `mapstructure:"step" yaml:"step"`
	Burst         int           `mapstructure:"burst" yaml:"burst"`
	Window        time.Duration `mapstructure:"window" yaml:"window"`
	EvaluateEvery int           `mapstructure:"evaluate_every" yaml:"evaluate_every"`
	SpeedUpAbove  float64       `mapstructure:"speed_up_above" yaml:"speed_up_above"`
	SlowDownBelow float64       `mapstructure:"slow_down_below" yaml:"slow_down_below"`
}

// DefaultAdaptiveConfig 默认：10/分钟，范围 3~20，步长 2，每 50 次评估
func DefaultAdaptiveConfig() AdaptiveConfig {
	return AdaptiveConfig{
		InitialRate:   10,
		MinRate:       3,
		MaxRate:       20,
		Step:          2,
		Burst:         3,
		Window:        time.Minute,
		EvaluateEvery: 50,
		SpeedUpAbove:  0.8,
		SlowDownBelow: 0.5,
	}
}

func (c AdaptiveConfig) validate() error {
	if c.MinRate <= 0 || c.MaxRate < c.MinRate {
		return fmt.Errorf("%w: min=%d max=%d", ErrInvalidRate, c.MinRate, c.MaxRate)
	}
	if c.Step <= 0 || c.EvaluateEvery <= 0 {
		return fmt.Errorf("ratelimit: step and evaluate_every must be positive")
	}
	if c.SlowDownBelow > c.SpeedUpAbove {
		return fmt.Errorf("ratelimit: slow_down_below %.2f above speed_up_above %.2f", c.SlowDownBelow, c.SpeedUpAbove)
	}
	return nil
}

// AdaptiveLimiter 根据成功率自动调整分钟速率的令牌桶
type AdaptiveLimiter struct {
	cfg    AdaptiveConfig
	bucket *TokenBucket

	mu        sync.Mutex
	rate      int
	successes int
	failures  int
}

// NewAdaptiveLimiter 创建自适应限流器，初始速率被夹到 [MinRate, MaxRate]
func NewAdaptiveLimiter(cfg AdaptiveConfig, clock Clock) (*AdaptiveLimiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	initial := clamp(cfg.InitialRate, cfg.MinRate, cfg.MaxRate)
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	bucket, err := NewTokenBucket(initial, burst, window, clock)
	if err != nil {
		return nil, err
	}
	metrics.ThrottleRate.Set(float64(initial))
	return &AdaptiveLimiter{cfg: cfg, bucket: bucket, rate: initial}, nil
}

// Wait 等待分钟层令牌
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.bucket.Wait(ctx)
}

// RecordSuccess 记录一次成功
func (a *AdaptiveLimiter) RecordSuccess() {
	a.record(true)
}

// RecordFailure 记录一次失败
func (a *AdaptiveLimiter) RecordFailure() {
	a.record(false)
}

func (a *AdaptiveLimiter) record(success bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if success {
		a.successes++
	} else {
		a.failures++
	}

	total := a.successes + a.failures
	if total < a.cfg.EvaluateEvery {
		return
	}

	ratio := float64(a.successes) / float64(total)
	old := a.rate
	switch {
	case ratio > a.cfg.SpeedUpAbove:
		a.rate = clamp(a.rate+a.cfg.Step, a.cfg.MinRate, a.cfg.MaxRate)
	case ratio < a.cfg.SlowDownBelow:
		a.rate = clamp(a.rate-a.cfg.Step, a.cfg.MinRate, a.cfg.MaxRate)
	}

	if a.rate != old {
		a.bucket.SetRate(a.rate)
		metrics.ThrottleRate.Set(float64(a.rate))
		log.WithFields(log.Fields{
			"success_rate": fmt.Sprintf("%.2f", ratio),
			"from":         old,
			"to":           a.rate,
		}).Info("自适应限流调整速率")
	}

	a.successes = 0
	a.failures = 0
}

// CurrentRate 当前每分钟速率
func (a *AdaptiveLimiter) CurrentRate() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rate
}

// Pending 当前评估批次里已记录的成功与失败数
func (a *AdaptiveLimiter) Pending() (successes, failures int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.successes, a.failures
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
