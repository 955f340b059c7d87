package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"job_applier_go/model"
)

// CheckpointRepository 检查点仓储接口
type CheckpointRepository interface {
	FindByTaskID(taskID string) (*model.CheckpointEntity, error)
	FindAll() ([]*model.CheckpointEntity, error)
	Upsert(cp *model.CheckpointEntity) error
	DeleteByTaskID(taskID string) error
}

type checkpointRepository struct {
	db *gorm.DB
}

func NewCheckpointRepository(db *gorm.DB) CheckpointRepository {
	return &checkpointRepository{db: db}
}

func (r *checkpointRepository) FindByTaskID(taskID string) (*model.CheckpointEntity, error) {
	var cp model.CheckpointEntity
	err := r.db.Where("task_id = ?", taskID).First(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

func (r *checkpointRepository) FindAll() ([]*model.CheckpointEntity, error) {
	var cps []*model.CheckpointEntity
	err := r.db.Order("updated_at DESC").Find(&cps).Error
	return cps, err
}

// Upsert 按 task_id 覆盖
func (r *checkpointRepository) Upsert(cp *model.CheckpointEntity) error {
	now := time.Now()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "task_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
	}).Create(cp).Error
}

func (r *checkpointRepository) DeleteByTaskID(taskID string) error {
	return r.db.Where("task_id = ?", taskID).Delete(&model.CheckpointEntity{}).Error
}
