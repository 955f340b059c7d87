package jobfilter

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudflare/ahocorasick"
	"github.com/vasayxtx/go-glob"
	"golang.org/x/text/width"

	"job_applier_go/model"
)

// BlacklistStore 黑名单持久化
type BlacklistStore interface {
	FindAll() ([]*model.BlacklistEntity, error)
	Save(blacklist *model.BlacklistEntity) error
	DeleteByTypeAndValue(typeStr, value string) error
	CountByTypeAndValue(typeStr, value string) (int64, error)
}

var blacklistTypes = map[string]bool{
	model.BlacklistCompany:   true,
	model.BlacklistRecruiter: true,
	model.BlacklistJob:       true,
	model.BlacklistKeyword:   true,
}

// ValidBlacklistType 是否为支持的黑名单类型
func ValidBlacklistType(t string) bool {
	return blacklistTypes[t]
}

type entry struct {
	raw  string
	norm string
}

type companyEntry struct {
	entry
	match func(string) bool
}

// 编译后的黑名单快照
type compiled struct {
	companies  []companyEntry
	recruiters []entry
	jobs       []entry
	keywords   []entry
	matcher    *ahocorasick.Matcher
}

// Blacklist 黑名单匹配，大小写与全角半角不敏感
type Blacklist struct {
	store BlacklistStore
	mu    sync.RWMutex
	c     *compiled
}

// NewBlacklist 创建并加载黑名单
func NewBlacklist(store BlacklistStore) (*Blacklist, error) {
	b := &Blacklist{store: store, c: &compiled{}}
	if err := b.Reload(); err != nil {
		return nil, err
	}
	return b, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(width.Fold.String(s)))
}

// Reload 从存储重新加载并编译
func (b *Blacklist) Reload() error {
	rows, err := b.store.FindAll()
	if err != nil {
		return fmt.Errorf("加载黑名单失败: %w", err)
	}
	c := compile(rows)
	b.mu.Lock()
	b.c = c
	b.mu.Unlock()
	return nil
}

func compile(rows []*model.BlacklistEntity) *compiled {
	c := &compiled{}
	for _, r := range rows {
		e := entry{raw: r.Value, norm: normalize(r.Value)}
		if e.norm == "" {
			continue
		}
		switch r.Type {
		case model.BlacklistCompany:
			ce := companyEntry{entry: e}
			if strings.Contains(e.norm, "*") {
				ce.match = glob.Compile(e.norm)
			}
			c.companies = append(c.companies, ce)
		case model.BlacklistRecruiter:
			c.recruiters = append(c.recruiters, e)
		case model.BlacklistJob:
			c.jobs = append(c.jobs, e)
		case model.BlacklistKeyword:
			c.keywords = append(c.keywords, e)
		}
	}
	if len(c.keywords) > 0 {
		dict := make([]string, len(c.keywords))
		for i, k := range c.keywords {
			dict[i] = k.norm
		}
		c.matcher = ahocorasick.NewStringMatcher(dict)
	}
	return c
}

func containsAny(text string, list []entry) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, e := range list {
		if strings.Contains(text, e.norm) {
			return e.raw, true
		}
	}
	return "", false
}

// IsBlacklisted 检查岗位是否命中黑名单，命中时返回原因
func (b *Blacklist) IsBlacklisted(job *model.Job) (bool, string) {
	b.mu.RLock()
	c := b.c
	b.mu.RUnlock()

	company := normalize(job.Company)
	if company != "" {
		for _, e := range c.companies {
			if (e.match != nil && e.match(company)) || (e.match == nil && strings.Contains(company, e.norm)) {
				return true, "公司在黑名单: " + e.raw
			}
		}
	}

	if v, ok := containsAny(normalize(job.HRPosition+" "+job.Recruiter), c.recruiters); ok {
		return true, "招聘者在黑名单: " + v
	}

	title := normalize(job.Title)
	if v, ok := containsAny(title, c.jobs); ok {
		return true, "职位在黑名单: " + v
	}

	if c.matcher != nil {
		text := title + " " + normalize(job.Description)
		if hits := c.matcher.MatchThreadSafe([]byte(text)); len(hits) > 0 {
			return true, "包含黑名单关键词: " + c.keywords[hits[0]].raw
		}
	}
	return false, ""
}

// Add 添加黑名单，已存在时返回 false
func (b *Blacklist) Add(typ, value, reason string) (bool, error) {
	value = strings.TrimSpace(value)
	if !ValidBlacklistType(typ) {
		return false, fmt.Errorf("不支持的黑名单类型: %s", typ)
	}
	if value == "" {
		return false, fmt.Errorf("黑名单值不能为空")
	}
	count, err := b.store.CountByTypeAndValue(typ, value)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	now := time.Now()
	if err := b.store.Save(&model.BlacklistEntity{
		Type:      typ,
		Value:     value,
		Reason:    reason,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return false, err
	}
	return true, b.Reload()
}

// Remove 删除黑名单
func (b *Blacklist) Remove(typ, value string) error {
	if err := b.store.DeleteByTypeAndValue(typ, strings.TrimSpace(value)); err != nil {
		return err
	}
	return b.Reload()
}

// Counts 各类型黑名单数量
func (b *Blacklist) Counts() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return map[string]int{
		model.BlacklistCompany:   len(b.c.companies),
		model.BlacklistRecruiter: len(b.c.recruiters),
		model.BlacklistJob:       len(b.c.jobs),
		model.BlacklistKeyword:   len(b.c.keywords),
	}
}
