package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"job_applier_go/model"
)

// BossOptionRepository 搜索条件对照表
type BossOptionRepository interface {
	FindByType(typeStr string) ([]*model.BossOptionEntity, error)
	FindByTypeAndCode(typeStr, code string) (*model.BossOptionEntity, error)
	FindByTypeAndName(typeStr, name string) (*model.BossOptionEntity, error)
	Save(option *model.BossOptionEntity) error
}

type bossOptionRepository struct {
	db *gorm.DB
}

func NewBossOptionRepository(db *gorm.DB) BossOptionRepository {
	return &bossOptionRepository{db: db}
}

func (r *bossOptionRepository) FindByType(typeStr string) ([]*model.BossOptionEntity, error) {
	var options []*model.BossOptionEntity
	q := r.db.Where("type = ?", typeStr)
	// 城市与行业按人工排序
	if typeStr == "city" || typeStr == "industry" {
		q = q.Order("sort_order IS NULL, sort_order ASC, id ASC")
	} else {
		q = q.Order("id ASC")
	}
	if err := q.Find(&options).Error; err != nil {
		return nil, err
	}
	return options, nil
}

func (r *bossOptionRepository) FindByTypeAndCode(typeStr, code string) (*model.BossOptionEntity, error) {
	return firstOption(r.db.Where("type = ? AND code = ?", typeStr, code))
}

func (r *bossOptionRepository) FindByTypeAndName(typeStr, name string) (*model.BossOptionEntity, error) {
	return firstOption(r.db.Where("type = ? AND name = ?", typeStr, name))
}

func firstOption(q *gorm.DB) (*model.BossOptionEntity, error) {
	var option model.BossOptionEntity
	err := q.First(&option).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &option, nil
}

func (r *bossOptionRepository) Save(option *model.BossOptionEntity) error {
	return r.db.Create(option).Error
}

// BossConfigRepository 只使用第一条配置
type BossConfigRepository interface {
	FindFirst() (*model.BossConfigEntity, error)
	Save(config *model.BossConfigEntity) error
}

type bossConfigRepository struct {
	db *gorm.DB
}

func NewBossConfigRepository(db *gorm.DB) BossConfigRepository {
	return &bossConfigRepository{db: db}
}

func (r *bossConfigRepository) FindFirst() (*model.BossConfigEntity, error) {
	var config model.BossConfigEntity
	err := r.db.Order("id ASC").First(&config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// Save 无 ID 时新建，否则整行更新
func (r *bossConfigRepository) Save(config *model.BossConfigEntity) error {
	config.UpdatedAt = time.Now()
	if config.ID == 0 {
		config.CreatedAt = config.UpdatedAt
		return r.db.Create(config).Error
	}
	return r.db.Save(config).Error
}

// BossJobDataRepository 岗位数据
type BossJobDataRepository interface {
	FindByEncryptIdAndUserId(encryptId, encryptUserId string) (*model.BossJobDataEntity, error)
	Save(job *model.BossJobDataEntity) error
	UpdateDeliveryStatus(encryptId, encryptUserId, status, reason string) error
	CountByStatus() (map[string]int64, error)
}

type bossJobDataRepository struct {
	db *gorm.DB
}

func NewBossJobDataRepository(db *gorm.DB) BossJobDataRepository {
	return &bossJobDataRepository{db: db}
}

func (r *bossJobDataRepository) FindByEncryptIdAndUserId(encryptId, encryptUserId string) (*model.BossJobDataEntity, error) {
	var job model.BossJobDataEntity
	err := r.db.Where("encrypt_id = ? AND encrypt_user_id = ?", encryptId, encryptUserId).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *bossJobDataRepository) Save(job *model.BossJobDataEntity) error {
	return r.db.Create(job).Error
}

func (r *bossJobDataRepository) UpdateDeliveryStatus(encryptId, encryptUserId, status, reason string) error {
	return r.db.Model(&model.BossJobDataEntity{}).
		Where("encrypt_id = ? AND encrypt_user_id = ?", encryptId, encryptUserId).
		Updates(map[string]interface{}{
			"delivery_status": status,
			"filter_reason":   reason,
			"updated_at":      time.Now(),
		}).Error
}

func (r *bossJobDataRepository) CountByStatus() (map[string]int64, error) {
	var rows []struct {
		DeliveryStatus string
		Total          int64
	}
	err := r.db.Model(&model.BossJobDataEntity{}).
		Select("delivery_status, COUNT(*) AS total").
		Group("delivery_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.DeliveryStatus] = row.Total
	}
	return out, nil
}
