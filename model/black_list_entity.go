package model

import (
	"time"
)

// 黑名单类型
const (
	BlacklistCompany   = "company"   // 公司名，含 * 时按通配符匹配
	BlacklistRecruiter = "recruiter" // 招聘者职位/名称
	BlacklistJob       = "job"       // 岗位名称
	BlacklistKeyword   = "keyword"   // 岗位名称+描述中的关键词
)

// BlacklistEntity 黑名单实体类
type BlacklistEntity struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Type      string    `gorm:"column:type;size:16;index"`
	Value     string    `gorm:"column:value"`
	Reason    string    `gorm:"column:reason"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (BlacklistEntity) TableName() string {
	return "boss_blacklist"
}
