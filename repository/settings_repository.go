package repository

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"job_applier_go/model"
)

// ConfigRepository 键值配置
type ConfigRepository interface {
	FindAll() ([]*model.ConfigEntity, error)
	FindByKey(configKey string) (*model.ConfigEntity, error)
	Upsert(config *model.ConfigEntity) error
}

type configRepository struct {
	db *gorm.DB
}

func NewConfigRepository(db *gorm.DB) ConfigRepository {
	return &configRepository{db: db}
}

func (r *configRepository) FindAll() ([]*model.ConfigEntity, error) {
	var configs []*model.ConfigEntity
	err := r.db.Order("category ASC, config_key ASC").Find(&configs).Error
	return configs, err
}

func (r *configRepository) FindByKey(configKey string) (*model.ConfigEntity, error) {
	var config model.ConfigEntity
	err := r.db.Where("config_key = ?", configKey).First(&config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// Upsert 按 config_key 写入
func (r *configRepository) Upsert(config *model.ConfigEntity) error {
	now := time.Now()
	if config.CreatedAt.IsZero() {
		config.CreatedAt = now
	}
	config.UpdatedAt = now
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "config_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"config_value", "updated_at"}),
	}).Create(config).Error
}

// CookieRepository 平台 Cookie
type CookieRepository interface {
	FindByPlatform(platform string) (*model.CookieEntity, error)
	FindAll() ([]*model.CookieEntity, error)
	Save(cookie *model.CookieEntity) error
	ClearCookieValue(platform, remark string) error
}

type cookieRepository struct {
	db *gorm.DB
}

func NewCookieRepository(db *gorm.DB) CookieRepository {
	return &cookieRepository{db: db}
}

// FindByPlatform 取最新的一条
func (r *cookieRepository) FindByPlatform(platform string) (*model.CookieEntity, error) {
	var cookie model.CookieEntity
	err := r.db.Where("platform = ?", platform).Order("updated_at DESC").First(&cookie).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cookie, nil
}

func (r *cookieRepository) FindAll() ([]*model.CookieEntity, error) {
	var cookies []*model.CookieEntity
	err := r.db.Find(&cookies).Error
	return cookies, err
}

// Save 无 ID 新建，否则更新
func (r *cookieRepository) Save(cookie *model.CookieEntity) error {
	var err error
	if cookie.ID == 0 {
		err = r.db.Create(cookie).Error
	} else {
		err = r.db.Save(cookie).Error
	}
	if err != nil {
		return err
	}
	log.Debugf("保存Cookie成功: platform=%s", cookie.Platform)
	return nil
}

func (r *cookieRepository) ClearCookieValue(platform, remark string) error {
	result := r.db.Model(&model.CookieEntity{}).
		Where("platform = ?", platform).
		Updates(map[string]interface{}{
			"cookie_value": "",
			"remark":       remark,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Infof("清空Cookie值成功: platform=%s", platform)
	}
	return nil
}

// AiRepository 打招呼语生成配置
type AiRepository interface {
	FindLatest() (*model.AiEntity, error)
	Save(ai *model.AiEntity) error
}

type aiRepository struct {
	db *gorm.DB
}

func NewAiRepository(db *gorm.DB) AiRepository {
	return &aiRepository{db: db}
}

func (r *aiRepository) FindLatest() (*model.AiEntity, error) {
	var ai model.AiEntity
	err := r.db.Order("id DESC").First(&ai).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ai, nil
}

func (r *aiRepository) Save(ai *model.AiEntity) error {
	if ai.ID == 0 {
		if err := r.db.Create(ai).Error; err != nil {
			return err
		}
		log.Infof("创建新的AI配置，ID: %d", ai.ID)
		return nil
	}
	return r.db.Save(ai).Error
}
