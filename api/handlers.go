package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"job_applier_go/automation/jobfilter"
	"job_applier_go/model"
	"job_applier_go/notify/feishu"
)

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warnf("写入响应失败: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]any{"success": false, "message": msg})
}

func decode(r *http.Request, out any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return fmt.Errorf("请求体格式错误: %w", err)
	}
	return nil
}

// queryInt 缺省或非法时返回 def
func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := cast.ToIntE(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

// ---- records ----

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.Records.List(r.URL.Query().Get("status"), queryInt(r, "limit", 100), queryInt(r, "offset", 0))
	if err != nil {
		log.Errorf("获取记录失败: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"records": page.Records,
		"total":   page.Total,
	})
}

func (s *Server) addRecord(w http.ResponseWriter, r *http.Request) {
	var rec model.ApplicationRecordEntity
	if err := decode(r, &rec); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	saved, err := s.deps.Records.Add(&rec)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "记录添加成功", "record": saved})
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	ok, err := s.deps.Records.Delete(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "记录不存在")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "记录删除成功"})
}

func (s *Server) recordStats(w http.ResponseWriter, _ *http.Request) {
	st, err := s.deps.Records.Stats()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, st)
}

// ---- automation ----

func (s *Server) throttleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Throttle.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) filterStats(w http.ResponseWriter, _ *http.Request) {
	st, err := s.deps.Filter.Stats()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, st)
}

type blacklistRequest struct {
	Type   string `json:"type"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (s *Server) listBlacklist(w http.ResponseWriter, r *http.Request) {
	rows, err := s.deps.Blacklists.FindAll()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if typ := r.URL.Query().Get("type"); typ != "" {
		filtered := rows[:0:0]
		for _, row := range rows {
			if row.Type == typ {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "items": rows, "total": len(rows)})
}

func (s *Server) addBlacklist(w http.ResponseWriter, r *http.Request) {
	var req blacklistRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !jobfilter.ValidBlacklistType(req.Type) {
		respondError(w, http.StatusBadRequest, "不支持的黑名单类型: "+req.Type)
		return
	}
	added, err := s.deps.Blacklist.Add(req.Type, req.Value, req.Reason)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	msg := "添加成功"
	if !added {
		msg = "已存在"
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "added": added, "message": msg})
}

func (s *Server) removeBlacklist(w http.ResponseWriter, r *http.Request) {
	typ, value := r.URL.Query().Get("type"), strings.TrimSpace(r.URL.Query().Get("value"))
	if !jobfilter.ValidBlacklistType(typ) || value == "" {
		respondError(w, http.StatusBadRequest, "需要合法的 type 与 value")
		return
	}
	if err := s.deps.Blacklist.Remove(typ, value); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "删除成功"})
}

// ---- apply ----

func (s *Server) startApply(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Applier.IsRunning() {
		respondError(w, http.StatusConflict, "投递任务已在运行中")
		return
	}
	s.mu.Lock()
	s.progress = nil
	s.mu.Unlock()

	// 任务生命周期独立于请求
	go func() {
		if err := s.deps.Applier.ExecuteDelivery(context.Background(), s.pushProgress); err != nil {
			log.Errorf("投递任务结束: %v", err)
		}
	}()
	respondJSON(w, http.StatusAccepted, map[string]any{"success": true, "message": "投递任务已启动"})
}

func (s *Server) stopApply(w http.ResponseWriter, _ *http.Request) {
	if !s.deps.Applier.StopDelivery() {
		respondError(w, http.StatusConflict, "没有运行中的投递任务")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "已请求停止"})
}

func (s *Server) applyStatus(w http.ResponseWriter, _ *http.Request) {
	status := s.deps.Applier.GetStatus()
	status["progress"] = s.recentProgress()
	respondJSON(w, http.StatusOK, status)
}

// ---- feishu ----

type feishuRequest struct {
	Message     string `json:"message"`
	MessageType string `json:"message_type"`
	Title       string `json:"title"`
}

func (s *Server) sendFeishu(w http.ResponseWriter, r *http.Request) {
	if s.deps.Feishu == nil {
		respondError(w, http.StatusBadRequest, "飞书通知未启用")
		return
	}
	var req feishuRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "消息不能为空")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	var err error
	if req.MessageType == "card" {
		title := req.Title
		if title == "" {
			title = "通知"
		}
		err = s.deps.Feishu.SendCard(ctx, title, feishu.TemplateBlue, req.Message)
	} else {
		err = s.deps.Feishu.SendText(ctx, req.Message)
	}
	if err != nil {
		log.Errorf("发送飞书消息失败: %v", err)
		respondJSON(w, http.StatusBadGateway, map[string]any{"success": false, "message": "消息发送失败: " + err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "消息发送成功"})
}

func (s *Server) testFeishu(w http.ResponseWriter, r *http.Request) {
	if s.deps.Feishu == nil {
		respondError(w, http.StatusBadRequest, "飞书通知未启用")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	if err := s.deps.Feishu.SendText(ctx, "🎉 飞书 Webhook 测试成功！"); err != nil {
		respondJSON(w, http.StatusBadGateway, map[string]any{"success": false, "message": "测试失败: " + err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "测试成功"})
}
