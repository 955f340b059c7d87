package model

import (
	"time"
)

// AppliedJobEntity 已投递岗位（去重记录）
type AppliedJobEntity struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	JobKey    string    `gorm:"column:job_key;size:32;uniqueIndex"` // md5(job_id|company|title|location)
	JobID     string    `gorm:"column:job_id"`
	JobTitle  string    `gorm:"column:job_title"`
	Company   string    `gorm:"column:company;index"`
	Location  string    `gorm:"column:location"`
	JobURL    string    `gorm:"column:job_url"`
	Platform  string    `gorm:"column:platform"`
	AppliedAt time.Time `gorm:"column:applied_at;index"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (AppliedJobEntity) TableName() string {
	return "applied_job"
}
