package boss

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"job_applier_go/config"
	"job_applier_go/model"
)

// JobProgressMessage 任务进度消息
type JobProgressMessage struct {
	Platform  string `json:"platform"`
	Type      string `json:"type"` // info, warning, error, progress, success
	Message   string `json:"message"`
	Current   *int   `json:"current,omitempty"`
	Total     *int   `json:"total,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// BrowserSession 提供已登录的 Boss 页面
type BrowserSession interface {
	GetBossPage() playwright.Page
	IsLoggedIn(platform string) bool
	WaitForLogin(ctx context.Context) error
	PauseBossMonitoring()
	ResumeBossMonitoring()
}

// BossConfigProvider 合并后的 Boss 配置
type BossConfigProvider interface {
	GetBossConfig() (*config.BossConfig, error)
}

// BossJobService Boss直聘任务服务，同一时间只运行一个投递任务
type BossJobService struct {
	session      BrowserSession
	configs      BossConfigProvider
	bossProvider func() *Boss
	platform     string

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	last    *BatchResult
	lastErr string
}

func NewBossJobService(session BrowserSession, configs BossConfigProvider, bossProvider func() *Boss) *BossJobService {
	return &BossJobService{
		session:      session,
		configs:      configs,
		bossProvider: bossProvider,
		platform:     string(model.PlatformBoss),
	}
}

func (s *BossJobService) emit(cb func(JobProgressMessage), typ, msg string) {
	if cb == nil {
		return
	}
	cb(JobProgressMessage{Platform: s.platform, Type: typ, Message: msg, Timestamp: time.Now().UnixMilli()})
}

// ExecuteDelivery 执行投递任务直到完成、出错或 StopDelivery
func (s *BossJobService) ExecuteDelivery(ctx context.Context, progressCallback func(JobProgressMessage)) error {
	if !s.running.CompareAndSwap(false, true) {
		s.emit(progressCallback, "warning", "任务已在运行中")
		return fmt.Errorf("Boss投递任务已在运行中")
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
	}()

	result, err := s.execute(ctx, progressCallback)
	s.mu.Lock()
	s.last = result
	s.lastErr = ""
	if err != nil {
		s.lastErr = err.Error()
	}
	s.mu.Unlock()
	return err
}

func (s *BossJobService) execute(ctx context.Context, cb func(JobProgressMessage)) (*BatchResult, error) {
	page := s.session.GetBossPage()
	if page == nil {
		s.emit(cb, "error", "Boss页面未初始化")
		return nil, fmt.Errorf("Boss页面未初始化")
	}
	if !s.session.IsLoggedIn(s.platform) {
		s.emit(cb, "info", "请在浏览器中登录Boss直聘")
		if err := s.session.WaitForLogin(ctx); err != nil {
			s.emit(cb, "error", "等待登录失败: "+err.Error())
			return nil, err
		}
	}

	// 投递期间页面频繁跳转，暂停登录监控
	s.session.PauseBossMonitoring()
	defer s.session.ResumeBossMonitoring()

	bossConfig, err := s.configs.GetBossConfig()
	if err != nil {
		s.emit(cb, "error", "配置加载失败: "+err.Error())
		return nil, err
	}
	s.emit(cb, "info", "配置加载成功，开始投递任务...")

	worker := s.bossProvider()
	worker.SetPage(page)
	worker.SetConfig(bossConfig)
	worker.SetProgressCallback(func(message string, current, total int) {
		if cb == nil {
			return
		}
		msg := JobProgressMessage{Platform: s.platform, Type: "info", Message: message, Timestamp: time.Now().UnixMilli()}
		if total > 0 {
			msg.Type = "progress"
			msg.Current, msg.Total = &current, &total
		}
		cb(msg)
	})

	if err := worker.Prepare(); err != nil {
		s.emit(cb, "error", "任务准备失败: "+err.Error())
		return nil, err
	}

	result, err := worker.Execute(ctx)
	if err != nil {
		s.emit(cb, "error", "投递任务异常结束: "+err.Error())
		return &result, err
	}
	s.emit(cb, "success", fmt.Sprintf("投递任务完成，成功 %d，失败 %d，跳过 %d", result.Success, result.Failed, result.Skipped))
	return &result, nil
}

// StopDelivery 请求停止，当前岗位处理完后退出
func (s *BossJobService) StopDelivery() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	log.Info("收到停止Boss投递任务的请求")
	s.cancel()
	return true
}

// GetStatus 任务状态
func (s *BossJobService) GetStatus() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := map[string]any{
		"platform":   s.platform,
		"isRunning":  s.running.Load(),
		"isLoggedIn": s.session.IsLoggedIn(s.platform),
	}
	if s.last != nil {
		status["lastResult"] = *s.last
	}
	if s.lastErr != "" {
		status["lastError"] = s.lastErr
	}
	return status
}

func (s *BossJobService) GetPlatformName() string {
	return s.platform
}

func (s *BossJobService) IsRunning() bool {
	return s.running.Load()
}
