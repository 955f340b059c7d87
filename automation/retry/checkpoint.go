package retry

import (
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"job_applier_go/model"
)

// CheckpointStore 检查点持久化
type CheckpointStore interface {
	FindByTaskID(taskID string) (*model.CheckpointEntity, error)
	FindAll() ([]*model.CheckpointEntity, error)
	Upsert(cp *model.CheckpointEntity) error
	DeleteByTaskID(taskID string) error
}

// Checkpoint 检查点摘要
type Checkpoint struct {
	TaskID    string          `json:"task_id"`
	State     json.RawMessage `json:"state"`
	Timestamp time.Time       `json:"timestamp"`
}

// CheckpointManager 断点续传管理
type CheckpointManager struct {
	store CheckpointStore
}

func NewCheckpointManager(store CheckpointStore) *CheckpointManager {
	return &CheckpointManager{store: store}
}

// Save 保存任务状态，state 需可 JSON 序列化
func (m *CheckpointManager) Save(taskID string, state any) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("序列化检查点 %s 失败: %w", taskID, err)
	}
	if err := m.store.Upsert(&model.CheckpointEntity{TaskID: taskID, State: string(data)}); err != nil {
		return fmt.Errorf("保存检查点 %s 失败: %w", taskID, err)
	}
	log.WithField("task", taskID).Debug("检查点已保存")
	return nil
}

// Load 读取任务状态到 out，不存在时返回 false
func (m *CheckpointManager) Load(taskID string, out any) (bool, error) {
	cp, err := m.store.FindByTaskID(taskID)
	if err != nil {
		return false, fmt.Errorf("加载检查点 %s 失败: %w", taskID, err)
	}
	if cp == nil || cp.State == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(cp.State), out); err != nil {
		return false, fmt.Errorf("解析检查点 %s 失败: %w", taskID, err)
	}
	log.WithField("task", taskID).Info("检查点已加载")
	return true, nil
}

// Delete 删除检查点
func (m *CheckpointManager) Delete(taskID string) error {
	if err := m.store.DeleteByTaskID(taskID); err != nil {
		return fmt.Errorf("删除检查点 %s 失败: %w", taskID, err)
	}
	return nil
}

// List 列出全部检查点
func (m *CheckpointManager) List() ([]Checkpoint, error) {
	cps, err := m.store.FindAll()
	if err != nil {
		return nil, err
	}
	out := make([]Checkpoint, 0, len(cps))
	for _, cp := range cps {
		out = append(out, Checkpoint{
			TaskID:    cp.TaskID,
			State:     json.RawMessage(cp.State),
			Timestamp: cp.UpdatedAt,
		})
	}
	return out, nil
}
