package jobfilter

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"job_applier_go/model"
)

// AppliedStore 已投递记录持久化
type AppliedStore interface {
	FindAllKeys() ([]string, error)
	Save(job *model.AppliedJobEntity) error
	CountAll() (int64, error)
	CountSince(t time.Time) (int64, error)
	DistinctCompanies() ([]string, error)
	DeleteBefore(t time.Time) (int64, error)
}

// JobKey 岗位唯一标识 md5(job_id|company|title|location)
func JobKey(job *model.Job) string {
	sum := md5.Sum([]byte(job.JobID + "|" + job.Company + "|" + job.Title + "|" + job.Location))
	return hex.EncodeToString(sum[:])
}

// Deduplicator 投递去重，内存中缓存全部 key
type Deduplicator struct {
	store AppliedStore
	now   func() time.Time

	mu   sync.RWMutex
	keys map[string]struct{}
}

// NewDeduplicator 创建并从存储加载已投递 key
func NewDeduplicator(store AppliedStore) (*Deduplicator, error) {
	d := &Deduplicator{store: store, now: time.Now}
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// Reload 重新加载 key 缓存
func (d *Deduplicator) Reload() error {
	keys, err := d.store.FindAllKeys()
	if err != nil {
		return fmt.Errorf("加载投递记录失败: %w", err)
	}
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	d.mu.Lock()
	d.keys = set
	d.mu.Unlock()
	log.Infof("已加载 %d 条投递记录", len(set))
	return nil
}

// IsApplied 是否已投递
func (d *Deduplicator) IsApplied(job *model.Job) bool {
	key := JobKey(job)
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.keys[key]
	return ok
}

// MarkApplied 标记为已投递，重复标记无副作用
func (d *Deduplicator) MarkApplied(job *model.Job) error {
	key := JobKey(job)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.keys[key]; ok {
		return nil
	}

	now := d.now()
	entity := &model.AppliedJobEntity{
		JobKey:    key,
		JobID:     job.JobID,
		JobTitle:  job.Title,
		Company:   job.Company,
		Location:  job.Location,
		JobURL:    job.URL,
		Platform:  string(job.Platform),
		AppliedAt: now,
		CreatedAt: now,
	}
	if err := d.store.Save(entity); err != nil {
		return fmt.Errorf("保存投递记录失败: %w", err)
	}
	d.keys[key] = struct{}{}
	return nil
}

// AppliedCount 累计投递数
func (d *Deduplicator) AppliedCount() (int64, error) {
	return d.store.CountAll()
}

// AppliedToday 今日投递数（本地时区零点起）
func (d *Deduplicator) AppliedToday() (int64, error) {
	now := d.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return d.store.CountSince(midnight)
}

// AppliedCompanies 投递过的公司
func (d *Deduplicator) AppliedCompanies() ([]string, error) {
	return d.store.DistinctCompanies()
}

// ClearOld 删除 days 天前的记录，days <= 0 时使用 90
func (d *Deduplicator) ClearOld(days int) (int64, error) {
	if days <= 0 {
		days = 90
	}
	cutoff := d.now().AddDate(0, 0, -days)
	n, err := d.store.DeleteBefore(cutoff)
	if err != nil {
		return 0, fmt.Errorf("清理旧投递记录失败: %w", err)
	}
	if n > 0 {
		log.Infof("清理了 %d 条 %d 天前的投递记录", n, days)
	}
	return n, d.Reload()
}
