package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job_applier_go/config"
	"job_applier_go/model"
)

type staticAiConfigs map[string]string

func (c staticAiConfigs) GetAiConfigs() (map[string]string, error) { return c, nil }

func newTestAiService(t *testing.T, srv *httptest.Server, modelName string, cfg config.AIConfig) *AiService {
	t.Helper()
	svc, err := NewAiService(&memAiRepo{}, staticAiConfigs{
		KeyBaseURL: srv.URL + "/",
		KeyAPIKey:  "sk-test",
		KeyModel:   modelName,
	}, cfg)
	require.NoError(t, err)
	return svc
}

func chatReply(w http.ResponseWriter, text string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": text}}},
	})
}

func TestSendRequestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req aiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "chat-model", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "hello", req.Messages[0].Content)
		chatReply(w, "hi there")
	}))
	defer srv.Close()

	got, err := newTestAiService(t, srv, "chat-model", config.AIConfig{}).SendRequest(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", got)
}

func TestSendRequestFallsBackToResponses(t *testing.T) {
	var chatCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/chat/completions":
			atomic.AddInt32(&chatCalls, 1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"param":"reasoning.summary"}}`))
		case "/v1/responses":
			var req aiRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "hello", req.Input)
			_ = json.NewEncoder(w).Encode(map[string]string{"output_text": "from responses"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	got, err := newTestAiService(t, srv, "chat-model", config.AIConfig{}).SendRequest(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "from responses", got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&chatCalls))
}

func TestSendRequestError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestAiService(t, srv, "chat-model", config.AIConfig{}).SendRequest(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSendRequestRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(w, "ok")
	}))
	defer srv.Close()

	svc := newTestAiService(t, srv, "chat-model", config.AIConfig{PerMinute: 1})
	_, err := svc.SendRequest(context.Background(), "a")
	require.NoError(t, err)
	_, err = svc.SendRequest(context.Background(), "b")
	assert.ErrorIs(t, err, ErrAiRateLimited)
}

func TestGenerateGreetingFallbacks(t *testing.T) {
	reply := "false"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(w, reply)
	}))
	defer srv.Close()

	svc := newTestAiService(t, srv, "chat-model", config.AIConfig{PerMinute: 600, DefaultGreeting: "默认招呼"})
	job := &model.Job{Title: "Go", Company: "ACME", Description: "熟悉 Go"}
	ctx := context.Background()

	assert.Equal(t, "默认招呼", svc.GenerateGreeting(ctx, &model.Job{Title: "Go"}, "Go", ""))
	assert.Equal(t, "自定义", svc.GenerateGreeting(ctx, job, "Go", "自定义"))

	reply = "FALSE"
	assert.Equal(t, "默认招呼", svc.GenerateGreeting(ctx, job, "Go", ""))

	reply = "this is shit"
	assert.Equal(t, "默认招呼", svc.GenerateGreeting(ctx, job, "Go", ""))

	reply = "  您好，我有三年 Go 经验。  "
	assert.Equal(t, "您好，我有三年 Go 经验。", svc.GenerateGreeting(ctx, job, "Go", ""))

	reply = strings.Repeat("好", 400)
	assert.Equal(t, maxGreetingRunes, len([]rune(svc.GenerateGreeting(ctx, job, "Go", ""))))
}

func TestBuildPrompt(t *testing.T) {
	job := &model.Job{Title: "后端", Company: "ACME", Description: "Go"}
	got := BuildPrompt("{company}/{job_name}/{keyword}/{job_desc}/{introduce}", "我", "golang", job)
	assert.Equal(t, "ACME/后端/golang/Go/我", got)
	assert.Contains(t, BuildPrompt("", "我", "golang", job), "职位：后端")
}

func TestSaveAiConfig(t *testing.T) {
	repo := &memAiRepo{}
	svc, err := NewAiService(repo, staticAiConfigs{}, config.AIConfig{})
	require.NoError(t, err)

	_, err = svc.SaveAiConfig("三年 Go", "")
	require.NoError(t, err)
	first := repo.row
	_, err = svc.SaveAiConfig("五年 Go", "{introduce}")
	require.NoError(t, err)
	assert.Same(t, first, repo.row)
	assert.Equal(t, "五年 Go", repo.row.Introduce)
}
