package service

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"job_applier_go/model"
	"job_applier_go/repository"
)

const (
	defaultRecordLimit = 100
	maxRecordLimit     = 1000
)

// RecordPage 分页结果
type RecordPage struct {
	Records []*model.ApplicationRecordEntity `json:"records"`
	Total   int64                            `json:"total"`
}

// RecordStats 投递记录统计，SuccessRate 为百分比保留两位小数
type RecordStats struct {
	Total       int64   `json:"total"`
	Success     int64   `json:"success"`
	Failed      int64   `json:"failed"`
	Pending     int64   `json:"pending"`
	SuccessRate float64 `json:"success_rate"`
}

// RecordService 投递记录
type RecordService struct {
	repo repository.RecordRepository
	now  func() time.Time
}

func NewRecordService(repo repository.RecordRepository) *RecordService {
	return &RecordService{repo: repo, now: time.Now}
}

// List 按状态过滤，最新的在前
func (s *RecordService) List(status string, limit, offset int) (*RecordPage, error) {
	if status != "" && !model.ValidRecordStatus(status) {
		return nil, fmt.Errorf("无效的状态: %s", status)
	}
	if limit <= 0 {
		limit = defaultRecordLimit
	}
	limit = min(limit, maxRecordLimit)
	offset = max(offset, 0)

	rows, total, err := s.repo.List(repository.RecordQuery{Status: status, Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &RecordPage{Records: rows, Total: total}, nil
}

// Add 补全 ID、状态与时间后保存
func (s *RecordService) Add(record *model.ApplicationRecordEntity) (*model.ApplicationRecordEntity, error) {
	if record.Status == "" {
		record.Status = model.RecordPending
	}
	if !model.ValidRecordStatus(record.Status) {
		return nil, fmt.Errorf("无效的状态: %s", record.Status)
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := s.now()
	if record.AppliedAt.IsZero() {
		record.AppliedAt = now
	}
	record.CreatedAt = now
	if err := s.repo.Save(record); err != nil {
		return nil, err
	}
	return record, nil
}

// RecordApplication 由投递结果生成记录
func (s *RecordService) RecordApplication(job *model.Job, status, coverLetter, response string) (*model.ApplicationRecordEntity, error) {
	return s.Add(&model.ApplicationRecordEntity{
		JobID:       job.JobID,
		JobTitle:    job.Title,
		Company:     job.Company,
		Salary:      job.Salary,
		Location:    job.Location,
		Platform:    string(job.Platform),
		Status:      status,
		CoverLetter: coverLetter,
		Response:    response,
	})
}

// Delete 删除，不存在时返回 false
func (s *RecordService) Delete(id string) (bool, error) {
	return s.repo.Delete(id)
}

// Stats 各状态数量与成功率
func (s *RecordService) Stats() (*RecordStats, error) {
	counts, err := s.repo.CountByStatus()
	if err != nil {
		return nil, err
	}
	st := &RecordStats{
		Success: counts[model.RecordSuccess],
		Failed:  counts[model.RecordFailed],
		Pending: counts[model.RecordPending],
	}
	for _, n := range counts {
		st.Total += n
	}
	if st.Total > 0 {
		st.SuccessRate = math.Round(float64(st.Success)/float64(st.Total)*10000) / 100
	}
	return st, nil
}
