package repository

import (
	"gorm.io/gorm"

	"job_applier_go/model"
)

// RecordQuery 投递记录查询条件，Status 为空表示全部
type RecordQuery struct {
	Status string
	Limit  int
	Offset int
}

// RecordRepository 投递记录
type RecordRepository interface {
	List(q RecordQuery) ([]*model.ApplicationRecordEntity, int64, error)
	Save(record *model.ApplicationRecordEntity) error
	Delete(id string) (bool, error)
	CountByStatus() (map[string]int64, error)
}

type recordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

// List 按投递时间倒序分页，同时返回过滤后的总数
func (r *recordRepository) List(q RecordQuery) ([]*model.ApplicationRecordEntity, int64, error) {
	tx := r.db.Model(&model.ApplicationRecordEntity{})
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*model.ApplicationRecordEntity
	err := tx.Order("applied_at DESC").Limit(q.Limit).Offset(q.Offset).Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *recordRepository) Save(record *model.ApplicationRecordEntity) error {
	return r.db.Create(record).Error
}

func (r *recordRepository) Delete(id string) (bool, error) {
	result := r.db.Where("id = ?", id).Delete(&model.ApplicationRecordEntity{})
	return result.RowsAffected > 0, result.Error
}

func (r *recordRepository) CountByStatus() (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.db.Model(&model.ApplicationRecordEntity{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}
