package service

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
	"unicode/utf8"

	goaway "github.com/TwiN/go-away"
	log "github.com/sirupsen/logrus"
	"github.com/throttled/throttled/v2"
	"github.com/throttled/throttled/v2/store/memstore"

	"job_applier_go/config"
	"job_applier_go/model"
	"job_applier_go/repository"
)

// ErrAiRateLimited AI 请求超出配额
var ErrAiRateLimited = errors.New("AI 请求过于频繁")

// AiConfigProvider 提供 BASE_URL、API_KEY、MODEL
type AiConfigProvider interface {
	GetAiConfigs() (map[string]string, error)
}

const defaultPrompt = `你是一个专业的求职顾问。请根据以下信息生成一段简洁的打招呼语（100-150字）：

岗位信息：
- 职位：{job_name}
- 公司：{company}
- 搜索关键词：{keyword}
- 要求：{job_desc}

我的介绍：
{introduce}

要求：
1. 突出匹配度
2. 表达求职意愿
3. 简洁专业
4. 不要使用"尊敬的"等客套话
5. 直接开始正文`

const maxGreetingRunes = 300

// AiService 调用 OpenAI 兼容接口生成打招呼语
type AiService struct {
	aiRepo          repository.AiRepository
	configs         AiConfigProvider
	httpClient      *http.Client
	limiter         *throttled.GCRARateLimiterCtx
	profanity       *goaway.ProfanityDetector
	defaultGreeting string
}

// NewAiService 按 cfg 设置请求配额（GCRA）与超时
func NewAiService(aiRepo repository.AiRepository, configs AiConfigProvider, cfg config.AIConfig) (*AiService, error) {
	perMinute := cfg.PerMinute
	if perMinute <= 0 {
		perMinute = 20
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	greeting := cfg.DefaultGreeting
	if greeting == "" {
		greeting = config.DefaultGreeting
	}

	store, err := memstore.NewCtx(16)
	if err != nil {
		return nil, fmt.Errorf("new GCRA store: %w", err)
	}
	limiter, err := throttled.NewGCRARateLimiterCtx(store, throttled.RateQuota{
		MaxRate:  throttled.PerMin(perMinute),
		MaxBurst: cfg.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("new GCRA rate limiter: %w", err)
	}

	return &AiService{
		aiRepo:          aiRepo,
		configs:         configs,
		httpClient:      &http.Client{Timeout: timeout},
		limiter:         limiter,
		profanity:       goaway.NewProfanityDetector(),
		defaultGreeting: greeting,
	}, nil
}

type aiRequest struct {
	Model       string      `json:"model"`
	Temperature float64     `json:"temperature,omitempty"`
	Input       string      `json:"input,omitempty"`
	Messages    []aiMessage `json:"messages,omitempty"`
}

type aiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type aiResponse struct {
	ID         string     `json:"id"`
	Model      string     `json:"model"`
	Choices    []aiChoice `json:"choices,omitempty"`
	Usage      aiUsage    `json:"usage,omitempty"`
	OutputText string     `json:"output_text,omitempty"` // Responses API
}

type aiChoice struct {
	Message aiMessage `json:"message"`
}

type aiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// SendRequest 发送一次请求并返回文本
func (s *AiService) SendRequest(ctx context.Context, content string) (string, error) {
	limited, res, err := s.limiter.RateLimitCtx(ctx, "ai", 1)
	if err != nil {
		return "", err
	}
	if limited {
		return "", fmt.Errorf("%w，%s 后重试", ErrAiRateLimited, res.RetryAfter.Round(time.Second))
	}

	cfg, err := s.configs.GetAiConfigs()
	if err != nil {
		return "", err
	}
	baseURL := normalizeBaseURL(cfg[KeyBaseURL])
	apiKey := cfg[KeyAPIKey]
	modelName := cfg[KeyModel]

	endpoint := chatEndpoint(baseURL)
	if isResponsesModel(modelName) {
		endpoint = responsesEndpoint(baseURL)
	}

	status, body, err := s.post(ctx, endpoint, apiKey, buildRequest(modelName, content, endpoint))
	if err != nil {
		return "", err
	}
	if status == http.StatusOK {
		return parseResponse(body, endpoint)
	}

	log.Warnf("AI请求失败: endpoint=%s, status=%d, body=%s", endpoint, status, string(body))
	// 部分推理模型只支持 Responses API
	if !strings.HasSuffix(endpoint, "/responses") && containsReasoningParamError(string(body)) {
		log.Info("检测到 reasoning 相关参数错误，切换到 Responses API 重试")
		endpoint = responsesEndpoint(baseURL)
		status, body, err = s.post(ctx, endpoint, apiKey, buildRequest(modelName, content, endpoint))
		if err != nil {
			return "", err
		}
		if status == http.StatusOK {
			return parseResponse(body, endpoint)
		}
	}
	return "", fmt.Errorf("AI请求失败，状态码 %d: %s", status, string(body))
}

func (s *AiService) post(ctx context.Context, endpoint, apiKey string, payload aiRequest) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("api-key", apiKey) // Azure OpenAI

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("AI请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("读取响应体失败: %w", err)
	}
	return resp.StatusCode, body, nil
}

func buildRequest(modelName, content, endpoint string) aiRequest {
	req := aiRequest{Model: modelName, Temperature: 0.7}
	if strings.HasSuffix(endpoint, "/responses") {
		req.Input = content
	} else {
		req.Messages = []aiMessage{{Role: "user", Content: content}}
	}
	return req
}

func parseResponse(body []byte, endpoint string) (string, error) {
	var resp aiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("解析响应JSON失败: %w", err)
	}
	log.Debugf("AI响应: id=%s, model=%s, totalTokens=%d", resp.ID, resp.Model, resp.Usage.TotalTokens)

	if strings.HasSuffix(endpoint, "/responses") && resp.OutputText != "" {
		return resp.OutputText, nil
	}
	if len(resp.Choices) > 0 {
		return resp.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("响应中没有可用内容")
}

func normalizeBaseURL(baseURL string) string {
	return strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
}

func chatEndpoint(baseURL string) string {
	if strings.Contains(baseURL, "/v1") {
		return baseURL + "/chat/completions"
	}
	return baseURL + "/v1/chat/completions"
}

func responsesEndpoint(baseURL string) string {
	if strings.Contains(baseURL, "/v1") {
		return baseURL + "/responses"
	}
	return baseURL + "/v1/responses"
}

func isResponsesModel(modelName string) bool {
	m := strings.ToLower(modelName)
	for _, marker := range []string{"o1", "o3", "o4", "4.1", "reasoner", "4o-mini"} {
		if strings.Contains(m, marker) {
			return true
		}
	}
	return false
}

func containsReasoningParamError(body string) bool {
	b := strings.ToLower(body)
	return (strings.Contains(b, "reasoning") && strings.Contains(b, "unsupported_value")) ||
		strings.Contains(b, "reasoning.summary")
}

// GetAiConfig 最新的介绍与提示词，没有时返回 nil
func (s *AiService) GetAiConfig() (*model.AiEntity, error) {
	return s.aiRepo.FindLatest()
}

// SaveAiConfig 覆盖最新一条
func (s *AiService) SaveAiConfig(introduce, prompt string) (*model.AiEntity, error) {
	entity, err := s.aiRepo.FindLatest()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if entity == nil {
		entity = &model.AiEntity{CreatedAt: now}
	}
	entity.Introduce = introduce
	entity.Prompt = prompt
	entity.UpdatedAt = now
	if err := s.aiRepo.Save(entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// BuildPrompt 用提示词模板填充岗位信息，模板为空时使用内置模板
func BuildPrompt(tmpl, introduce, keyword string, job *model.Job) string {
	if strings.TrimSpace(tmpl) == "" {
		tmpl = defaultPrompt
	}
	return strings.NewReplacer(
		"{introduce}", introduce,
		"{keyword}", keyword,
		"{job_name}", job.Title,
		"{company}", job.Company,
		"{job_desc}", job.Description,
	).Replace(tmpl)
}

// GenerateGreeting 生成打招呼语，任何失败都回落到 fallback（为空时用默认招呼语）
func (s *AiService) GenerateGreeting(ctx context.Context, job *model.Job, keyword, fallback string) string {
	if fallback == "" {
		fallback = s.defaultGreeting
	}
	if job.Description == "" {
		return fallback
	}

	var introduce, tmpl string
	if entity, err := s.aiRepo.FindLatest(); err != nil {
		log.Warnf("读取AI配置失败: %v", err)
	} else if entity != nil {
		introduce, tmpl = entity.Introduce, entity.Prompt
	}

	text, err := s.SendRequest(ctx, BuildPrompt(tmpl, introduce, keyword, job))
	if err != nil {
		log.Warnf("AI生成招呼语失败，使用默认招呼语: %v", err)
		return fallback
	}

	text = strings.TrimSpace(text)
	switch {
	case text == "", strings.EqualFold(text, "false"):
		// 提示词约定岗位不匹配时返回 false
		return fallback
	case s.profanity.IsProfane(text):
		log.Warnf("AI招呼语包含不当用语，使用默认招呼语")
		return fallback
	case utf8.RuneCountInString(text) > maxGreetingRunes:
		return string([]rune(text)[:maxGreetingRunes])
	}
	return text
}
