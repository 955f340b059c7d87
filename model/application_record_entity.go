package model

import (
	"time"
)

// 投递记录状态
const (
	RecordSuccess = "success"
	RecordFailed  = "failed"
	RecordPending = "pending"
)

// ApplicationRecordEntity 投递记录，ID 为 uuid
type ApplicationRecordEntity struct {
	ID          string    `gorm:"primaryKey;size:36;column:id" json:"id"`
	JobID       string    `gorm:"column:job_id;size:128" json:"job_id"`
	JobTitle    string    `gorm:"column:job_title" json:"job_title"`
	Company     string    `gorm:"column:company" json:"company"`
	Salary      string    `gorm:"column:salary" json:"salary"`
	Location    string    `gorm:"column:location" json:"location"`
	Platform    string    `gorm:"column:platform;size:16" json:"platform"`
	Status      string    `gorm:"column:status;size:16;index" json:"status"`
	CoverLetter string    `gorm:"column:cover_letter;type:text" json:"cover_letter"`
	Response    string    `gorm:"column:response;type:text" json:"response,omitempty"`
	AppliedAt   time.Time `gorm:"column:applied_at;index" json:"applied_at"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"-"`
}

func (ApplicationRecordEntity) TableName() string {
	return "application_record"
}

// ValidRecordStatus 是否为合法状态
func ValidRecordStatus(s string) bool {
	return s == RecordSuccess || s == RecordFailed || s == RecordPending
}
