package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"job_applier_go/metrics"
)

// Config 重试配置
type Config struct {
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	Multiplier float64       `mapstructure:"multiplier" yaml:"multiplier"`
	Jitter     bool          `mapstructure:"jitter" yaml:"jitter"`
}

// DefaultConfig 最多重试 3 次，1s 起步，翻倍，上限 60s，带抖动
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   time.Minute,
		Multiplier: 2,
		Jitter:     true,
	}
}

// Delay 第 attempt 次重试前的等待时间（attempt 从 0 开始）
func (c Config) Delay(attempt int) time.Duration {
	return c.delay(attempt, rand.Float64())
}

// delay 抖动系数为 0.5 + r，r ∈ [0, 1)
func (c Config) delay(attempt int, r float64) time.Duration {
	d := float64(c.BaseDelay) * math.Pow(c.Multiplier, float64(attempt))
	if c.MaxDelay > 0 && d > float64(c.MaxDelay) {
		d = float64(c.MaxDelay)
	}
	if c.Jitter {
		d *= 0.5 + r
	}
	return time.Duration(d)
}

// NewBackOff 按配置构造指数退避策略
func (c Config) NewBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.BaseDelay
	eb.Multiplier = c.Multiplier
	eb.MaxInterval = c.MaxDelay
	eb.MaxElapsedTime = 0
	eb.RandomizationFactor = 0
	if c.Jitter {
		eb.RandomizationFactor = 0.5
	}
	var b backoff.BackOff = eb
	if c.MaxRetries >= 0 {
		b = backoff.WithMaxRetries(eb, uint64(c.MaxRetries))
	}
	b.Reset()
	return b
}

// ShouldRetry attempt 为已失败次数减一（从 0 开始）
func (c Config) ShouldRetry(err error, attempt int) bool {
	if attempt >= c.MaxRetries {
		return false
	}
	return IsRetryable(err)
}

// Attempt 一次失败记录
type Attempt struct {
	Attempt   int       `json:"attempt"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Func 可重试的操作
type Func func(ctx context.Context) error

// 最多保留的放弃任务数，超出时淘汰最早放弃的
const maxFailedTasks = 500

// Manager 带历史记录的重试执行器。
// history 只保存每个任务最近一次运行的失败记录，failed 为最近一次运行放弃的任务及放弃时间。
type Manager struct {
	cfg       Config
	mu        sync.Mutex
	history   map[string][]Attempt
	failed    map[string]time.Time
	maxFailed int
}

// NewManager 创建重试管理器
func NewManager(cfg Config) *Manager {
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2
	}
	return &Manager{
		cfg:       cfg,
		history:   make(map[string][]Attempt),
		failed:    make(map[string]time.Time),
		maxFailed: maxFailedTasks,
	}
}

// Config 当前配置
func (m *Manager) Config() Config {
	return m.cfg
}

// Do 执行 fn，失败时按退避策略重试。成功后清空该任务的失败历史，放弃时记入 FailedTasks。
func (m *Manager) Do(ctx context.Context, taskID string, fn Func) error {
	m.resetHistory(taskID)
	b := backoff.WithContext(m.cfg.NewBackOff(), ctx)
	attempt := 0

	op := func() error {
		attempt++
		err := fn(b.Context())
		if err == nil {
			return nil
		}
		m.record(taskID, attempt, err)
		log.WithFields(log.Fields{"task": taskID, "attempt": attempt}).Warnf("任务执行失败: %v", err)
		if !m.cfg.ShouldRetry(err, attempt-1) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		metrics.Retries.WithLabelValues("retry").Inc()
		log.WithField("task", taskID).Infof("等待 %.2f 秒后重试...", next.Seconds())
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		metrics.Retries.WithLabelValues("gave_up").Inc()
		log.WithField("task", taskID).Errorf("任务失败，不再重试（共尝试 %d 次）", attempt)
		m.giveUp(taskID)
		return fmt.Errorf("task %s: %w", taskID, err)
	}

	if attempt > 1 {
		metrics.Retries.WithLabelValues("recovered").Inc()
	}
	m.clear(taskID)
	return nil
}

func (m *Manager) record(taskID string, attempt int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[taskID] = append(m.history[taskID], Attempt{
		Attempt:   attempt,
		Error:     err.Error(),
		Timestamp: time.Now(),
	})
}

// resetHistory 新一轮运行开始，只清空历史，放弃标记保留到本轮结束
func (m *Manager) resetHistory(taskID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.history, taskID)
}

func (m *Manager) clear(taskID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.history, taskID)
	delete(m.failed, taskID)
}

func (m *Manager) giveUp(taskID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[taskID] = time.Now()
	for len(m.failed) > m.maxFailed {
		oldest, first := "", true
		var at time.Time
		for id, t := range m.failed {
			if first || t.Before(at) || (t.Equal(at) && id < oldest) {
				oldest, at, first = id, t, false
			}
		}
		delete(m.failed, oldest)
		delete(m.history, oldest)
	}
}

// History 返回任务的失败历史副本
func (m *Manager) History(taskID string) []Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.history[taskID]
	out := make([]Attempt, len(h))
	copy(out, h)
	return out
}

// FailedTasks 最近一次运行放弃且之后未成功的任务，按任务 ID 排序
func (m *Manager) FailedTasks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.failed))
	for id := range m.failed {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
