package model

import (
	"time"
)

// ConfigEntity 键值配置（AI 接口地址、密钥等），config_key 唯一
type ConfigEntity struct {
	ID          int64     `gorm:"primaryKey;autoIncrement;column:id"`
	ConfigKey   string    `gorm:"column:config_key;size:64;uniqueIndex"`
	ConfigValue string    `gorm:"column:config_value;type:text"`
	ConfigType  string    `gorm:"column:config_type"`
	Category    string    `gorm:"column:category;size:32;index"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (ConfigEntity) TableName() string {
	return "config"
}

// CookieEntity 平台登录 Cookie，CookieValue 为 JSON 数组
type CookieEntity struct {
	ID          int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Platform    string    `gorm:"column:platform;size:16;index"` // boss / zhilian
	CookieValue string    `gorm:"column:cookie_value;type:mediumtext"`
	Remark      string    `gorm:"column:remark"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (CookieEntity) TableName() string {
	return "cookie"
}

// AiEntity 打招呼语生成用的个人介绍与提示词模板
type AiEntity struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Introduce string    `gorm:"column:introduce;type:text"`
	Prompt    string    `gorm:"column:prompt;type:text"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (AiEntity) TableName() string {
	return "ai"
}
