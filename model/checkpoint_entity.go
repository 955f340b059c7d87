package model

import (
	"time"
)

// CheckpointEntity 断点续传检查点，State 为 JSON
type CheckpointEntity struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	TaskID    string    `gorm:"column:task_id;size:128;uniqueIndex"`
	State     string    `gorm:"column:state;type:text"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (CheckpointEntity) TableName() string {
	return "checkpoint"
}
