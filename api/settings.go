package api

import (
	"net/http"
	"sort"
)

func (s *Server) listConfig(w http.ResponseWriter, _ *http.Request) {
	configs, err := s.deps.Settings.GetAllConfigsAsMap()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "configs": configs})
}

func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := req[""]; ok {
		respondError(w, http.StatusBadRequest, "配置键不能为空")
		return
	}
	n, err := s.deps.Settings.BatchUpdateConfigs(req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "updated": n})
}

type aiRequest struct {
	Introduce string `json:"introduce"`
	Prompt    string `json:"prompt"`
}

func (s *Server) getAiConfig(w http.ResponseWriter, _ *http.Request) {
	entity, err := s.deps.AI.GetAiConfig()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var out aiRequest
	if entity != nil {
		out = aiRequest{Introduce: entity.Introduce, Prompt: entity.Prompt}
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) saveAiConfig(w http.ResponseWriter, r *http.Request) {
	var req aiRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.deps.AI.SaveAiConfig(req.Introduce, req.Prompt); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "AI配置已保存"})
}

func (s *Server) deliveryStats(w http.ResponseWriter, _ *http.Request) {
	st, err := s.deps.Delivery.GetDeliveryStats()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, st)
}

// retryFailures 仍在重试历史中的任务，即最终失败且未再成功的岗位
func (s *Server) retryFailures(w http.ResponseWriter, _ *http.Request) {
	tasks := s.deps.Retry.FailedTasks()
	sort.Strings(tasks)
	history := make(map[string]any, len(tasks))
	for _, id := range tasks {
		history[id] = s.deps.Retry.History(id)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"max_retries": s.deps.Retry.Config().MaxRetries,
		"total":       len(tasks),
		"tasks":       history,
	})
}
