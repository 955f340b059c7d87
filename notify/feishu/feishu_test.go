package feishu

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job_applier_go/config"
	"job_applier_go/model"
)

type capture struct {
	msgs []map[string]any
}

func (c *capture) server(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&m))
		c.msgs = append(c.msgs, m)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newNotifier(t *testing.T, url string, perMinute int) *Notifier {
	t.Helper()
	n, err := New(config.FeishuConfig{Enabled: true, Webhook: url, PerMinute: perMinute})
	require.NoError(t, err)
	require.NotNil(t, n)
	n.now = func() time.Time { return time.Date(2026, 5, 1, 9, 30, 0, 0, time.Local) }
	return n
}

func TestDisabledNotifierIsNoop(t *testing.T) {
	n, err := New(config.FeishuConfig{})
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.NoError(t, n.SendText(context.Background(), "hi"))
	assert.NoError(t, n.NotifySummary(context.Background(), Summary{}))

	_, err = New(config.FeishuConfig{Enabled: true})
	assert.ErrorIs(t, err, ErrNoWebhook)
}

func TestSendText(t *testing.T) {
	var c capture
	srv := c.server(t, `{"code":0,"msg":"success"}`)

	require.NoError(t, newNotifier(t, srv.URL, 0).SendText(context.Background(), "测试消息"))
	require.Len(t, c.msgs, 1)
	assert.Equal(t, "text", c.msgs[0]["msg_type"])
	assert.Equal(t, "测试消息", c.msgs[0]["content"].(map[string]any)["text"])
}

func TestNotifyApplicationCard(t *testing.T) {
	var c capture
	srv := c.server(t, `{"code":0}`)
	job := &model.Job{Title: "Go 开发", Company: "ACME", Salary: "20-30K"}

	require.NoError(t, newNotifier(t, srv.URL, 0).NotifyApplication(context.Background(), job, model.RecordFailed))
	require.Len(t, c.msgs, 1)
	assert.Equal(t, "interactive", c.msgs[0]["msg_type"])

	cardMsg := c.msgs[0]["card"].(map[string]any)
	header := cardMsg["header"].(map[string]any)
	assert.Equal(t, TemplateRed, header["template"])
	assert.Equal(t, "📮 投递通知", header["title"].(map[string]any)["content"])

	elem := cardMsg["elements"].([]any)[0].(map[string]any)["text"].(map[string]any)
	assert.Equal(t, "lark_md", elem["tag"])
	content := elem["content"].(string)
	assert.Contains(t, content, "**岗位：** Go 开发")
	assert.Contains(t, content, "**公司：** ACME")
	assert.Contains(t, content, "**状态：** failed")
	assert.Contains(t, content, "2026-05-01 09:30:00")
}

func TestNotifySummary(t *testing.T) {
	var c capture
	srv := c.server(t, `{"code":0}`)

	err := newNotifier(t, srv.URL, 0).NotifySummary(context.Background(), Summary{
		Platform: "boss", Total: 10, Success: 3, Failed: 1, Skipped: 2, Filtered: 4, Duration: 90 * time.Second,
	})
	require.NoError(t, err)
	content := c.msgs[0]["card"].(map[string]any)["elements"].([]any)[0].(map[string]any)["text"].(map[string]any)["content"].(string)
	assert.Contains(t, content, "**成功率：** 75.0%")
	assert.Contains(t, content, "**耗时：** 1m30s")
}

func TestBusinessError(t *testing.T) {
	var c capture
	srv := c.server(t, `{"code":19021,"msg":"sign match fail"}`)

	err := newNotifier(t, srv.URL, 0).SendText(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "19021")
}

func TestRateLimited(t *testing.T) {
	var c capture
	srv := c.server(t, `{"code":0}`)
	n := newNotifier(t, srv.URL, 2)

	require.NoError(t, n.SendText(context.Background(), "1"))
	require.NoError(t, n.SendText(context.Background(), "2"))
	assert.ErrorIs(t, n.SendText(context.Background(), "3"), ErrRateLimited)
	assert.Len(t, c.msgs, 2)
}
