package ratelimit

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"job_applier_go/metrics"
)

// Config 三层节流配置
type Config struct {
	PerMinute int            `mapstructure:"per_minute" yaml:"per_minute"`
	PerHour   int            `mapstructure:"per_hour" yaml:"per_hour"`
	PerDay    int            `mapstructure:"per_day" yaml:"per_day"`
	Burst     int            `mapstructure:"burst" yaml:"burst"`
	Adaptive  bool           `mapstructure:"adaptive" yaml:"adaptive"`
	Tuning    AdaptiveConfig `mapstructure:"tuning" yaml:"tuning"`
	Key       string         `mapstructure:"key" yaml:"key"`
}

// DefaultConfig 默认 10/分钟、100/小时、500/天
func DefaultConfig() Config {
	return Config{
		PerMinute: 10,
		PerHour:   100,
		PerDay:    500,
		Burst:     3,
		Adaptive:  true,
		Tuning:    DefaultAdaptiveConfig(),
		Key:       "apply",
	}
}

// Stats 节流器状态
type Stats struct {
	RemainingToday int `json:"remaining_today"`
	RemainingHour  int `json:"remaining_hour"`
	CurrentRate    int `json:"current_rate"`
}

type minuteLimiter interface {
	Wait(ctx context.Context) error
}

// Throttler 按 天 -> 小时 -> 分钟 顺序检查的节流器
type Throttler struct {
	sem      chan struct{}
	day      *SlidingWindow
	hour     *SlidingWindow
	minute   minuteLimiter
	adaptive *AdaptiveLimiter
	bucket   *TokenBucket
}

// Option 节流器选项
type Option func(o *options)

type options struct {
	clock Clock
	store WindowStore
}

// WithClock 指定时间源
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithStore 指定滑动窗口存储，默认进程内存储
func WithStore(s WindowStore) Option {
	return func(o *options) {
		o.store = s
	}
}

// NewThrottler 创建节流器
func NewThrottler(cfg Config, opts ...Option) (*Throttler, error) {
	o := options{clock: SystemClock()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		o.store = NewMemoryStore()
	}
	if cfg.Key == "" {
		cfg.Key = "apply"
	}

	day, err := NewSlidingWindow(cfg.Key+":day", TierDay, cfg.PerDay, 24*time.Hour, o.store, o.clock)
	if err != nil {
		return nil, err
	}
	hour, err := NewSlidingWindow(cfg.Key+":hour", TierHour, cfg.PerHour, time.Hour, o.store, o.clock)
	if err != nil {
		return nil, err
	}

	t := &Throttler{
		sem:  make(chan struct{}, 1),
		day:  day,
		hour: hour,
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	if cfg.Adaptive {
		tuning := cfg.Tuning
		if tuning.MaxRate == 0 {
			tuning = DefaultAdaptiveConfig()
		}
		tuning.InitialRate = cfg.PerMinute
		tuning.Burst = burst
		tuning.Window = time.Minute
		a, err := NewAdaptiveLimiter(tuning, o.clock)
		if err != nil {
			return nil, err
		}
		t.adaptive = a
		t.minute = a
	} else {
		b, err := NewTokenBucket(cfg.PerMinute, burst, time.Minute, o.clock)
		if err != nil {
			return nil, err
		}
		t.bucket = b
		t.minute = b
	}
	return t, nil
}

// Acquire 依次检查天、小时、分钟三层。天或小时已满时立即返回拒绝且不消耗任何配额；
// 分钟层令牌不足时阻塞等待，等待失败会撤销已记录的天与小时许可。
func (t *Throttler) Acquire(ctx context.Context) (Decision, error) {
	select {
	case t.sem <- struct{}{}:
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	}
	defer func() { <-t.sem }()

	dayPermit, d, err := t.day.TryAcquire(ctx)
	if err != nil {
		return Decision{}, err
	}
	if !d.Allowed {
		t.deny(d)
		return d, nil
	}

	hourPermit, d, err := t.hour.TryAcquire(ctx)
	if err != nil {
		t.rollback(ctx, t.day, dayPermit)
		return Decision{}, err
	}
	if !d.Allowed {
		t.rollback(ctx, t.day, dayPermit)
		t.deny(d)
		return d, nil
	}

	if err := t.minute.Wait(ctx); err != nil {
		t.rollback(ctx, t.hour, hourPermit)
		t.rollback(ctx, t.day, dayPermit)
		return Decision{}, fmt.Errorf("wait minute token: %w", err)
	}
	return Decision{Allowed: true, permits: []heldPermit{
		{window: t.hour, permit: hourPermit},
		{window: t.day, permit: dayPermit},
	}}, nil
}

// Release 撤销一次已放行但最终未使用的许可，归还天与小时配额。分钟令牌不归还。
func (t *Throttler) Release(ctx context.Context, d Decision) {
	for _, h := range d.permits {
		t.rollback(ctx, h.window, h.permit)
	}
}

func (t *Throttler) deny(d Decision) {
	metrics.ThrottleDenials.WithLabelValues(string(d.Tier)).Inc()
	log.WithFields(log.Fields{
		"tier":        d.Tier,
		"retry_after": d.RetryAfter.Round(time.Second),
	}).Warn("已达到投递上限")
}

func (t *Throttler) rollback(ctx context.Context, w *SlidingWindow, p Permit) {
	if err := w.Release(context.WithoutCancel(ctx), p); err != nil {
		log.WithError(err).Errorf("撤销%s许可失败", w.tier)
	}
}

// RecordResult 记录投递结果，供自适应层调整速率
func (t *Throttler) RecordResult(success bool) {
	if t.adaptive == nil {
		return
	}
	if success {
		t.adaptive.RecordSuccess()
	} else {
		t.adaptive.RecordFailure()
	}
}

// Stats 返回剩余配额与当前速率，非自适应时 CurrentRate 为 0
func (t *Throttler) Stats(ctx context.Context) (Stats, error) {
	today, err := t.day.Remaining(ctx)
	if err != nil {
		return Stats{}, err
	}
	hour, err := t.hour.Remaining(ctx)
	if err != nil {
		return Stats{}, err
	}
	s := Stats{RemainingToday: today, RemainingHour: hour}
	if t.adaptive != nil {
		s.CurrentRate = t.adaptive.CurrentRate()
	}
	return s, nil
}
