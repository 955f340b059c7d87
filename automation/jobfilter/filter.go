package jobfilter

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"job_applier_go/metrics"
	"job_applier_go/model"
)

const (
	ReasonApplied = "已投递过"
	ReasonOK      = "可以投递"
)

// FilterStats 一次批量过滤的统计
type FilterStats struct {
	Total          int `json:"total"`
	AlreadyApplied int `json:"already_applied"`
	Blacklisted    int `json:"blacklisted"`
	Passed         int `json:"passed"`
}

// Summary 过滤器总体状态
type Summary struct {
	TotalApplied     int64          `json:"total_applied"`
	AppliedToday     int64          `json:"applied_today"`
	AppliedCompanies int            `json:"applied_companies"`
	Blacklist        map[string]int `json:"blacklist"`
	LastBatch        FilterStats    `json:"last_batch"`
}

// Filter 先去重再查黑名单
type Filter struct {
	dedup     *Deduplicator
	blacklist *Blacklist

	mu   sync.Mutex
	last FilterStats
}

func NewFilter(dedup *Deduplicator, blacklist *Blacklist) *Filter {
	return &Filter{dedup: dedup, blacklist: blacklist}
}

// Blacklist 黑名单
func (f *Filter) Blacklist() *Blacklist {
	return f.blacklist
}

// Deduplicator 去重器
func (f *Filter) Deduplicator() *Deduplicator {
	return f.dedup
}

// ShouldApply 判断是否投递，返回原因
func (f *Filter) ShouldApply(job *model.Job) (bool, string) {
	if f.dedup.IsApplied(job) {
		return false, ReasonApplied
	}
	if hit, reason := f.blacklist.IsBlacklisted(job); hit {
		return false, reason
	}
	return true, ReasonOK
}

// FilterJobs 批量过滤，保持原有顺序
func (f *Filter) FilterJobs(jobs []*model.Job) ([]*model.Job, FilterStats) {
	stats := FilterStats{Total: len(jobs)}
	passed := make([]*model.Job, 0, len(jobs))

	for _, job := range jobs {
		ok, reason := f.ShouldApply(job)
		switch {
		case ok:
			passed = append(passed, job)
			stats.Passed++
		case reason == ReasonApplied:
			stats.AlreadyApplied++
			metrics.FilteredJobs.WithLabelValues("applied").Inc()
		default:
			stats.Blacklisted++
			metrics.FilteredJobs.WithLabelValues("blacklist").Inc()
			log.Infof("被过滤：%s | 公司：%s | 岗位：%s", reason, job.Company, job.Title)
		}
	}

	f.mu.Lock()
	f.last = stats
	f.mu.Unlock()

	log.Infof("过滤完成: 总数 %d, 已投递 %d, 黑名单 %d, 通过 %d",
		stats.Total, stats.AlreadyApplied, stats.Blacklisted, stats.Passed)
	return passed, stats
}

// MarkApplied 标记已投递
func (f *Filter) MarkApplied(job *model.Job) error {
	return f.dedup.MarkApplied(job)
}

// Stats 汇总统计
func (f *Filter) Stats() (Summary, error) {
	total, err := f.dedup.AppliedCount()
	if err != nil {
		return Summary{}, err
	}
	today, err := f.dedup.AppliedToday()
	if err != nil {
		return Summary{}, err
	}
	companies, err := f.dedup.AppliedCompanies()
	if err != nil {
		return Summary{}, err
	}

	f.mu.Lock()
	last := f.last
	f.mu.Unlock()

	return Summary{
		TotalApplied:     total,
		AppliedToday:     today,
		AppliedCompanies: len(companies),
		Blacklist:        f.blacklist.Counts(),
		LastBatch:        last,
	}, nil
}
