package repository

import (
	"gorm.io/gorm"

	"job_applier_go/model"
)

// BlacklistRepository 黑名单仓储接口
type BlacklistRepository interface {
	FindByType(typeStr string) ([]*model.BlacklistEntity, error)
	FindAll() ([]*model.BlacklistEntity, error)
	Save(blacklist *model.BlacklistEntity) error
	DeleteByTypeAndValue(typeStr, value string) error
	CountByTypeAndValue(typeStr, value string) (int64, error)
}

type blacklistRepository struct {
	db *gorm.DB
}

func NewBlacklistRepository(db *gorm.DB) BlacklistRepository {
	return &blacklistRepository{db: db}
}

func (r *blacklistRepository) FindByType(typeStr string) ([]*model.BlacklistEntity, error) {
	var rows []*model.BlacklistEntity
	err := r.db.Where("type = ?", typeStr).Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *blacklistRepository) FindAll() ([]*model.BlacklistEntity, error) {
	var rows []*model.BlacklistEntity
	err := r.db.Order("type ASC, id ASC").Find(&rows).Error
	return rows, err
}

func (r *blacklistRepository) Save(blacklist *model.BlacklistEntity) error {
	return r.db.Create(blacklist).Error
}

func (r *blacklistRepository) DeleteByTypeAndValue(typeStr, value string) error {
	return r.db.Where("type = ? AND value = ?", typeStr, value).Delete(&model.BlacklistEntity{}).Error
}

func (r *blacklistRepository) CountByTypeAndValue(typeStr, value string) (int64, error) {
	var count int64
	err := r.db.Model(&model.BlacklistEntity{}).Where("type = ? AND value = ?", typeStr, value).Count(&count).Error
	return count, err
}
