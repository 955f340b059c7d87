package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"job_applier_go/model"
)

// AppliedJobRepository 已投递记录仓储接口
type AppliedJobRepository interface {
	FindAllKeys() ([]string, error)
	Save(job *model.AppliedJobEntity) error
	CountAll() (int64, error)
	CountSince(t time.Time) (int64, error)
	DistinctCompanies() ([]string, error)
	DeleteBefore(t time.Time) (int64, error)
}

type appliedJobRepository struct {
	db *gorm.DB
}

func NewAppliedJobRepository(db *gorm.DB) AppliedJobRepository {
	return &appliedJobRepository{db: db}
}

func (r *appliedJobRepository) FindAllKeys() ([]string, error) {
	var keys []string
	err := r.db.Model(&model.AppliedJobEntity{}).Pluck("job_key", &keys).Error
	return keys, err
}

// Save 重复 key 忽略
func (r *appliedJobRepository) Save(job *model.AppliedJobEntity) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(job).Error
}

func (r *appliedJobRepository) CountAll() (int64, error) {
	var count int64
	err := r.db.Model(&model.AppliedJobEntity{}).Count(&count).Error
	return count, err
}

func (r *appliedJobRepository) CountSince(t time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.AppliedJobEntity{}).Where("applied_at >= ?", t).Count(&count).Error
	return count, err
}

func (r *appliedJobRepository) DistinctCompanies() ([]string, error) {
	var companies []string
	err := r.db.Model(&model.AppliedJobEntity{}).Distinct().Pluck("company", &companies).Error
	return companies, err
}

func (r *appliedJobRepository) DeleteBefore(t time.Time) (int64, error) {
	result := r.db.Where("applied_at < ?", t).Delete(&model.AppliedJobEntity{})
	return result.RowsAffected, result.Error
}
