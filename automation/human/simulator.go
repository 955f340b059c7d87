package human

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"job_applier_go/utils"
)

// Driver 模拟器依赖的最小浏览器操作集合
type Driver interface {
	MoveMouse(x, y float64) error
	MouseDown() error
	MouseUp() error
	Focus(selector string) error
	TypeChar(ch string) error
	ScrollBy(dy int) error
}

// ScrollDirection 滚动方向
type ScrollDirection int

const (
	ScrollDown ScrollDirection = iota
	ScrollUp
)

// SleepFunc 可被 ctx 打断的等待
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option 模拟器选项
type Option func(*Simulator)

// WithRand 指定随机源
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulator) { s.rng = rng }
}

// WithSleep 替换等待实现
func WithSleep(fn SleepFunc) Option {
	return func(s *Simulator) { s.sleep = fn }
}

// Simulator 人类行为模拟器
type Simulator struct {
	driver Driver
	sleep  SleepFunc

	mu  sync.Mutex
	rng *rand.Rand
	pos Point
}

// NewSimulator 创建模拟器
func NewSimulator(driver Driver, opts ...Option) *Simulator {
	s := &Simulator{
		driver: driver,
		sleep:  utils.SleepCtx,
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	// 鼠标初始位置假定在屏幕中部
	s.pos = Point{X: s.uniform(800, 1000), Y: s.uniform(400, 600)}
	return s
}

func (s *Simulator) uniform(lo, hi float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uniform(s.rng, lo, hi)
}

func (s *Simulator) intRange(lo, hi int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + s.rng.IntN(hi-lo+1)
}

func (s *Simulator) chance(p float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < p
}

func (s *Simulator) pause(ctx context.Context, lo, hi time.Duration) error {
	return s.sleep(ctx, time.Duration(s.uniform(float64(lo), float64(hi))))
}

// Position 当前鼠标位置
func (s *Simulator) Position() Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// MoveTo 沿贝塞尔曲线移动鼠标，总耗时与距离成正比
func (s *Simulator) MoveTo(ctx context.Context, x, y float64) error {
	start := s.Position()
	end := Point{X: x, Y: y}

	s.mu.Lock()
	path := BezierPath(start, end, 2, s.rng)
	s.mu.Unlock()

	duration := s.uniform(0.5, 1.5) * start.distance(end) / 1000 * float64(time.Second)
	stepDelay := duration / float64(len(path))

	for _, p := range path {
		if err := s.driver.MoveMouse(p.X, p.Y); err != nil {
			return err
		}
		s.mu.Lock()
		s.pos = p
		s.mu.Unlock()

		d := stepDelay + s.uniform(-0.01, 0.01)*float64(time.Second)
		if err := s.sleep(ctx, time.Duration(max(d, 0))); err != nil {
			return err
		}
	}
	log.Debugf("鼠标移动到 (%.0f, %.0f)", x, y)
	return nil
}

// Click 移动到目标附近（±5px）后按下再松开
func (s *Simulator) Click(ctx context.Context, x, y float64) error {
	tx := x + s.uniform(-5, 5)
	ty := y + s.uniform(-5, 5)
	if err := s.MoveTo(ctx, tx, ty); err != nil {
		return err
	}
	if err := s.pause(ctx, 100*time.Millisecond, 300*time.Millisecond); err != nil {
		return err
	}
	if err := s.driver.MouseDown(); err != nil {
		return err
	}
	if err := s.pause(ctx, 50*time.Millisecond, 150*time.Millisecond); err != nil {
		// 按下后被取消也要松开
		_ = s.driver.MouseUp()
		return err
	}
	if err := s.driver.MouseUp(); err != nil {
		return err
	}
	log.Debugf("点击 (%.0f, %.0f)", x, y)
	return nil
}

// Type 聚焦输入框后逐字输入，偶尔停顿
func (s *Simulator) Type(ctx context.Context, selector, text string) error {
	if err := s.driver.Focus(selector); err != nil {
		return err
	}
	if err := s.pause(ctx, 200*time.Millisecond, 500*time.Millisecond); err != nil {
		return err
	}
	for _, r := range text {
		if err := s.driver.TypeChar(string(r)); err != nil {
			return err
		}
		d := time.Duration(s.uniform(float64(50*time.Millisecond), float64(150*time.Millisecond)))
		if s.chance(0.1) {
			d += time.Duration(s.uniform(float64(300*time.Millisecond), float64(800*time.Millisecond)))
		}
		if err := s.sleep(ctx, d); err != nil {
			return err
		}
	}
	log.Debugf("输入文本: %s", truncate(text, 20))
	return nil
}

// Scroll 分 3~6 段滚动，每段带 ±50px 抖动；amount <= 0 时随机 300~800
func (s *Simulator) Scroll(ctx context.Context, dir ScrollDirection, amount int) error {
	if amount <= 0 {
		amount = s.intRange(300, 800)
	}
	segments := s.intRange(3, 6)
	seg := amount / segments
	if dir == ScrollUp {
		seg = -seg
	}
	for i := 0; i < segments; i++ {
		if err := s.driver.ScrollBy(seg + s.intRange(-50, 50)); err != nil {
			return err
		}
		if err := s.pause(ctx, 100*time.Millisecond, 300*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

// RandomMovement 浏览时随意晃动鼠标 2~4 次
func (s *Simulator) RandomMovement(ctx context.Context) error {
	n := s.intRange(2, 4)
	for i := 0; i < n; i++ {
		x := float64(s.intRange(200, 1700))
		y := float64(s.intRange(200, 900))
		if err := s.MoveTo(ctx, x, y); err != nil {
			return err
		}
		if err := s.pause(ctx, 500*time.Millisecond, 1500*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

// SimulateReading 边滚动边停顿，累计停顿达到 duration 为止；duration <= 0 时随机 2~5 秒
func (s *Simulator) SimulateReading(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		duration = time.Duration(s.uniform(float64(2*time.Second), float64(5*time.Second)))
	}
	var elapsed time.Duration
	for elapsed < duration {
		if err := s.Scroll(ctx, ScrollDown, s.intRange(100, 300)); err != nil {
			return err
		}
		p := time.Duration(s.uniform(float64(500*time.Millisecond), float64(2*time.Second)))
		if err := s.sleep(ctx, p); err != nil {
			return err
		}
		elapsed += p

		// 回看
		if s.chance(0.2) {
			if err := s.Scroll(ctx, ScrollUp, s.intRange(50, 150)); err != nil {
				return err
			}
			if err := s.pause(ctx, 300*time.Millisecond, 800*time.Millisecond); err != nil {
				return err
			}
		}
	}
	log.Debugf("模拟阅读 %.1f 秒", duration.Seconds())
	return nil
}

// SimulateHesitation 投递前在按钮附近徘徊，然后停顿 1~3 秒
func (s *Simulator) SimulateHesitation(ctx context.Context) error {
	n := s.intRange(2, 4)
	for i := 0; i < n; i++ {
		x := float64(s.intRange(800, 1000))
		y := float64(s.intRange(400, 600))
		if err := s.MoveTo(ctx, x, y); err != nil {
			return err
		}
		if err := s.pause(ctx, 300*time.Millisecond, 800*time.Millisecond); err != nil {
			return err
		}
	}
	return s.pause(ctx, time.Second, 3*time.Second)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
