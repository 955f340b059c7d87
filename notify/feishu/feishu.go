package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RussellLuo/slidingwindow"
	log "github.com/sirupsen/logrus"

	"job_applier_go/config"
	"job_applier_go/metrics"
	"job_applier_go/model"
)

// 飞书自定义机器人限额 100 次/分钟
const defaultPerMinute = 100

const timeLayout = "2006-01-02 15:04:05"

var (
	// ErrRateLimited 超出 webhook 配额，本条消息被丢弃
	ErrRateLimited = errors.New("飞书通知超出频率限制")
	// ErrNoWebhook 未配置 webhook
	ErrNoWebhook = errors.New("未配置飞书 webhook")
)

// 卡片标题颜色
const (
	TemplateBlue   = "blue"
	TemplateGreen  = "green"
	TemplateRed    = "red"
	TemplateOrange = "orange"
)

// Summary 一轮投递的汇总
type Summary struct {
	Platform string
	Total    int
	Success  int
	Failed   int
	Skipped  int
	Filtered int
	Duration time.Duration
}

// Notifier 飞书机器人 webhook
type Notifier struct {
	webhook string
	client  *http.Client
	limiter *slidingwindow.Limiter
	now     func() time.Time
}

// Option 可选项
type Option func(*Notifier)

// WithHTTPClient 替换 http.Client
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.client = c }
}

// New cfg.Enabled 为 false 时返回 nil，nil Notifier 的方法都是空操作
func New(cfg config.FeishuConfig, opts ...Option) (*Notifier, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if strings.TrimSpace(cfg.Webhook) == "" {
		return nil, ErrNoWebhook
	}
	perMinute := cfg.PerMinute
	if perMinute <= 0 || perMinute > defaultPerMinute {
		perMinute = defaultPerMinute
	}
	lim, _ := slidingwindow.NewLimiter(time.Minute, int64(perMinute), func() (slidingwindow.Window, slidingwindow.StopFunc) {
		return slidingwindow.NewLocalWindow()
	})
	n := &Notifier{
		webhook: cfg.Webhook,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: lim,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

type textContent struct {
	Text string `json:"text"`
}

type message struct {
	MsgType string       `json:"msg_type"`
	Content *textContent `json:"content,omitempty"`
	Card    *card        `json:"card,omitempty"`
}

type card struct {
	Header   cardHeader    `json:"header"`
	Elements []cardElement `json:"elements"`
}

type cardHeader struct {
	Title    cardText `json:"title"`
	Template string   `json:"template"`
}

type cardElement struct {
	Tag  string   `json:"tag"`
	Text cardText `json:"text"`
}

type cardText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type webhookResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// SendText 纯文本消息
func (n *Notifier) SendText(ctx context.Context, text string) error {
	if n == nil {
		return nil
	}
	return n.send(ctx, message{MsgType: "text", Content: &textContent{Text: text}})
}

// SendCard 交互卡片，content 为 lark_md
func (n *Notifier) SendCard(ctx context.Context, title, template, content string) error {
	if n == nil {
		return nil
	}
	if template == "" {
		template = TemplateBlue
	}
	return n.send(ctx, message{
		MsgType: "interactive",
		Card: &card{
			Header: cardHeader{
				Title:    cardText{Tag: "plain_text", Content: title},
				Template: template,
			},
			Elements: []cardElement{{
				Tag:  "div",
				Text: cardText{Tag: "lark_md", Content: content},
			}},
		},
	})
}

// NotifyApplication 单条投递结果
func (n *Notifier) NotifyApplication(ctx context.Context, job *model.Job, status string) error {
	if n == nil {
		return nil
	}
	template := TemplateGreen
	if status != model.RecordSuccess {
		template = TemplateRed
	}
	content := fmt.Sprintf("**岗位：** %s\n**公司：** %s\n**薪资：** %s\n**状态：** %s\n**时间：** %s",
		job.Title, job.Company, job.Salary, status, n.now().Format(timeLayout))
	return n.SendCard(ctx, "📮 投递通知", template, content)
}

// NotifySummary 一轮投递结束后的汇总
func (n *Notifier) NotifySummary(ctx context.Context, s Summary) error {
	if n == nil {
		return nil
	}
	rate := 0.0
	if attempted := s.Success + s.Failed; attempted > 0 {
		rate = float64(s.Success) / float64(attempted) * 100
	}
	content := fmt.Sprintf("**平台：** %s\n**岗位总数：** %d\n**投递成功：** %d\n**投递失败：** %d\n**跳过：** %d\n**过滤：** %d\n**成功率：** %.1f%%\n**耗时：** %s",
		s.Platform, s.Total, s.Success, s.Failed, s.Skipped, s.Filtered, rate, s.Duration.Round(time.Second))
	return n.SendCard(ctx, "📊 投递汇总", TemplateBlue, content)
}

func (n *Notifier) send(ctx context.Context, msg message) error {
	if !n.limiter.Allow() {
		metrics.Notifications.WithLabelValues("limited").Inc()
		log.Warn("飞书通知超出频率限制，丢弃本条消息")
		return ErrRateLimited
	}

	err := n.post(ctx, msg)
	result := "success"
	if err != nil {
		result = "failed"
		log.WithError(err).Warn("飞书通知发送失败")
	}
	metrics.Notifications.WithLabelValues(result).Inc()
	return err
}

func (n *Notifier) post(ctx context.Context, msg message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhook, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("请求飞书 webhook: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取飞书响应: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("飞书 webhook 状态码 %d: %s", resp.StatusCode, string(body))
	}
	// 签名错误等业务失败也返回 200，需看 code
	var res webhookResponse
	if len(body) > 0 && json.Unmarshal(body, &res) == nil && res.Code != 0 {
		return fmt.Errorf("飞书返回错误 %d: %s", res.Code, res.Msg)
	}
	return nil
}
