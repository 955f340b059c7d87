package boss

import (
	"context"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job_applier_go/config"
)

type stubPage struct {
	playwright.Page
}

type fakeSession struct {
	page     playwright.Page
	loggedIn bool
	waiting  chan struct{}
	paused   int
}

func (s *fakeSession) GetBossPage() playwright.Page { return s.page }

func (s *fakeSession) IsLoggedIn(string) bool { return s.loggedIn }

// WaitForLogin 阻塞到 ctx 结束
func (s *fakeSession) WaitForLogin(ctx context.Context) error {
	if s.waiting != nil {
		close(s.waiting)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *fakeSession) PauseBossMonitoring() { s.paused++ }

func (s *fakeSession) ResumeBossMonitoring() { s.paused-- }

type staticBossConfig struct{}

func (staticBossConfig) GetBossConfig() (*config.BossConfig, error) {
	return &config.BossConfig{Keywords: []string{"Go"}}, nil
}

func TestExecuteDeliveryWithoutPage(t *testing.T) {
	svc := NewBossJobService(&fakeSession{}, staticBossConfig{}, func() *Boss { return nil })

	var msgs []JobProgressMessage
	err := svc.ExecuteDelivery(context.Background(), func(m JobProgressMessage) { msgs = append(msgs, m) })
	require.Error(t, err)
	require.NotEmpty(t, msgs)
	assert.Equal(t, "error", msgs[0].Type)
	assert.Equal(t, "boss", msgs[0].Platform)

	status := svc.GetStatus()
	assert.Equal(t, false, status["isRunning"])
	assert.Equal(t, "Boss页面未初始化", status["lastError"])
	assert.False(t, svc.StopDelivery())
}

func TestExecuteDeliveryRejectsConcurrentRun(t *testing.T) {
	svc := NewBossJobService(&fakeSession{}, staticBossConfig{}, func() *Boss { return nil })
	svc.running.Store(true)

	var msgs []JobProgressMessage
	err := svc.ExecuteDelivery(context.Background(), func(m JobProgressMessage) { msgs = append(msgs, m) })
	require.Error(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "warning", msgs[0].Type)
	assert.True(t, svc.IsRunning())
}

func TestStopDeliveryWhileWaitingForLogin(t *testing.T) {
	session := &fakeSession{page: &stubPage{}, waiting: make(chan struct{})}
	svc := NewBossJobService(session, staticBossConfig{}, func() *Boss { return nil })

	done := make(chan error, 1)
	go func() { done <- svc.ExecuteDelivery(context.Background(), nil) }()

	select {
	case <-session.waiting:
	case <-time.After(time.Second):
		t.Fatal("未进入等待登录")
	}
	assert.True(t, svc.IsRunning())
	assert.True(t, svc.StopDelivery())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("停止后任务未退出")
	}
	assert.False(t, svc.IsRunning())
	assert.Equal(t, "boss", svc.GetPlatformName())
}
