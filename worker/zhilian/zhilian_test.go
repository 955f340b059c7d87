package zhilian

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job_applier_go/automation/jobfilter"
	"job_applier_go/automation/ratelimit"
	"job_applier_go/config"
	"job_applier_go/model"
	"job_applier_go/service"
)

const listPage = `<div class="positionlist">
  <div class="joblist-box__item">
    <a class="jobinfo__name" href="https://www.zhaopin.com/jobdetail/CC1J001.htm?refcode=1">Golang 工程师</a>
    <p class="jobinfo__salary">1.5万-2.5万</p>
    <div class="jobinfo__other-info-item">上海·徐汇</div>
    <div class="jobinfo__other-info-item">3-5年</div>
    <div class="jobinfo__other-info-item">本科</div>
    <a class="companyinfo__name">甲公司</a>
    <div class="companyinfo__tag"><div class="joblist-box__item-tag">民营</div><div class="joblist-box__item-tag">100-299人</div></div>
  </div>
  <div class="joblist-box__item">
    <a class="jobinfo__name">无链接</a>
  </div>
  <div class="joblist-box__item">
    <a class="jobinfo__name" href="//www.zhaopin.com/jobdetail/CC1J002.htm">后端开发</a>
    <a class="companyinfo__name">乙公司</a>
  </div>
</div>`

func TestParseJobList(t *testing.T) {
	cards, err := ParseJobList(listPage)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	first := cards[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, "CC1J001", first.Job.JobID)
	assert.Equal(t, "Golang 工程师", first.Job.Title)
	assert.Equal(t, "甲公司", first.Job.Company)
	assert.Equal(t, "1.5万-2.5万", first.Job.Salary)
	assert.Equal(t, "上海·徐汇", first.Job.Location)
	assert.Equal(t, "3-5年", first.Job.Experience)
	assert.Equal(t, "本科", first.Job.Degree)
	assert.Equal(t, "民营 100-299人", first.Job.CompanyTag)
	assert.Equal(t, model.PlatformZhilian, first.Job.Platform)

	// 跳过的卡片仍占位置
	assert.Equal(t, 2, cards[1].Index)
	assert.Equal(t, "https://www.zhaopin.com/jobdetail/CC1J002.htm", cards[1].Job.URL)
	assert.Equal(t, "CC1J002", cards[1].Job.JobID)
}

func TestBuildSearchURL(t *testing.T) {
	cfg := config.ZhilianConfig{CityCode: "上海", Salary: "不限"}
	assert.Equal(t, "https://sou.zhaopin.com/?jl=538&kw=Go+%E5%BC%80%E5%8F%91&sl=0&p=2", BuildSearchURL(cfg, "Go 开发", 2))

	cfg = config.ZhilianConfig{CityCode: "489", Salary: "15001,25000"}
	assert.Equal(t, "https://sou.zhaopin.com/?jl=489&kw=Go&sl=15001,25000&p=1", BuildSearchURL(cfg, "Go", 1))
}

func TestIsLimitText(t *testing.T) {
	assert.True(t, IsLimitText("今日申请已达到上限"))
	assert.False(t, IsLimitText("申请成功"))
}

func TestCookieConversion(t *testing.T) {
	params := ToCookieParams([]service.Cookie{
		{Name: "at", Value: "1", Domain: ".zhaopin.com", Expires: 1893456000, HttpOnly: true, SameSite: "Lax"},
		{Name: "s", Value: "2", Domain: ".zhaopin.com", Path: "/x"},
	})
	require.Len(t, params, 2)
	assert.Equal(t, "/", params[0].Path)
	require.NotNil(t, params[0].Expires)
	assert.Equal(t, int64(1893456000), params[0].Expires.Time().Unix())
	assert.True(t, params[0].HTTPOnly)
	assert.Equal(t, network.CookieSameSiteLax, params[0].SameSite)
	assert.Nil(t, params[1].Expires)
	assert.Equal(t, "/x", params[1].Path)

	saved := FromNetworkCookies([]*network.Cookie{
		{Name: "at", Value: "1", Domain: ".zhaopin.com", Path: "/", Expires: 1893456000, Secure: true},
		{Name: "tmp", Value: "x", Domain: ".zhaopin.com", Path: "/", Expires: -1, Session: true},
	})
	require.Len(t, saved, 2)
	assert.Equal(t, float64(1893456000), saved[0].Expires)
	assert.True(t, saved[0].Secure)
	assert.Zero(t, saved[1].Expires)
}

// ---- plan / commit ----

type memAppliedStore struct {
	rows map[string]*model.AppliedJobEntity
}

func (s *memAppliedStore) FindAllKeys() ([]string, error) {
	keys := make([]string, 0, len(s.rows))
	for k := range s.rows {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *memAppliedStore) Save(job *model.AppliedJobEntity) error {
	s.rows[job.JobKey] = job
	return nil
}

func (s *memAppliedStore) CountAll() (int64, error)              { return int64(len(s.rows)), nil }
func (s *memAppliedStore) CountSince(time.Time) (int64, error)   { return 0, nil }
func (s *memAppliedStore) DistinctCompanies() ([]string, error)  { return nil, nil }
func (s *memAppliedStore) DeleteBefore(time.Time) (int64, error) { return 0, nil }

type memBlacklistStore struct {
	rows []*model.BlacklistEntity
}

func (s *memBlacklistStore) FindAll() ([]*model.BlacklistEntity, error) { return s.rows, nil }
func (s *memBlacklistStore) Save(b *model.BlacklistEntity) error {
	s.rows = append(s.rows, b)
	return nil
}
func (s *memBlacklistStore) DeleteByTypeAndValue(string, string) error         { return nil }
func (s *memBlacklistStore) CountByTypeAndValue(string, string) (int64, error) { return 0, nil }

type fakeThrottle struct {
	allow    int
	acquired int
	released int
	err      error
	results  []bool
}

func (t *fakeThrottle) Acquire(context.Context) (ratelimit.Decision, error) {
	if t.acquired >= t.allow && t.err != nil {
		return ratelimit.Decision{}, t.err
	}
	if t.acquired >= t.allow {
		return ratelimit.Decision{Tier: ratelimit.TierDay, Reason: "超过每日投递上限"}, nil
	}
	t.acquired++
	return ratelimit.Decision{Allowed: true}, nil
}

func (t *fakeThrottle) Release(context.Context, ratelimit.Decision) { t.released++ }

func (t *fakeThrottle) RecordResult(success bool) { t.results = append(t.results, success) }

type fakeRecorder struct {
	statuses []string
}

func (r *fakeRecorder) RecordApplication(_ *model.Job, status, _, _ string) (*model.ApplicationRecordEntity, error) {
	r.statuses = append(r.statuses, status)
	return &model.ApplicationRecordEntity{}, nil
}

func newTestZhiLian(t *testing.T, allow int) (*ZhiLian, *fakeThrottle, *fakeRecorder, *jobfilter.Blacklist) {
	t.Helper()
	dedup, err := jobfilter.NewDeduplicator(&memAppliedStore{rows: map[string]*model.AppliedJobEntity{}})
	require.NoError(t, err)
	bl, err := jobfilter.NewBlacklist(&memBlacklistStore{})
	require.NoError(t, err)

	th := &fakeThrottle{allow: allow}
	rec := &fakeRecorder{}
	z := New(config.ZhilianConfig{Keywords: []string{"Go"}}, config.BrowserConfig{Headless: true}, Deps{
		Throttle: th,
		Filter:   jobfilter.NewFilter(dedup, bl),
		Records:  rec,
	})
	return z, th, rec, bl
}

func cards(ids ...string) []Card {
	out := make([]Card, 0, len(ids))
	for i, id := range ids {
		out = append(out, Card{Index: i, Job: &model.Job{
			JobID: id, Title: "Go " + id, Company: "公司" + id, Platform: model.PlatformZhilian,
		}})
	}
	return out
}

func TestPlanFiltersAndStopsOnQuota(t *testing.T) {
	z, th, _, bl := newTestZhiLian(t, 2)
	_, err := bl.Add(model.BlacklistCompany, "公司b", "")
	require.NoError(t, err)

	var res Result
	selected, stopped, err := z.plan(context.Background(), cards("a", "b", "c", "d"), &res)
	require.NoError(t, err)
	assert.True(t, stopped)
	require.Len(t, selected, 2)
	assert.Equal(t, "a", selected[0].Job.JobID)
	assert.Equal(t, 2, selected[1].Index)
	assert.Equal(t, 2, th.acquired)
	assert.Equal(t, Result{Total: 4, Filtered: 1, Skipped: 1}, res)
}

func TestPlanReleasesPermitsOnAcquireError(t *testing.T) {
	z, th, _, _ := newTestZhiLian(t, 2)
	th.err = context.Canceled

	var res Result
	selected, stopped, err := z.plan(context.Background(), cards("a", "b", "c"), &res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, stopped)
	assert.Empty(t, selected)
	assert.Equal(t, 2, th.acquired)
	assert.Equal(t, 2, th.released)
}

func TestCommitMarksApplied(t *testing.T) {
	z, th, rec, _ := newTestZhiLian(t, 10)
	batch := cards("a", "b")

	var res Result
	z.commit(batch, nil, &res)
	assert.Equal(t, 2, res.Success)
	assert.Equal(t, []bool{true, true}, th.results)
	assert.Equal(t, []string{model.RecordSuccess, model.RecordSuccess}, rec.statuses)

	// 已投递的岗位下次被过滤
	selected, stopped, err := z.plan(context.Background(), batch, &res)
	require.NoError(t, err)
	assert.False(t, stopped)
	assert.Empty(t, selected)
}

func TestCommitFailure(t *testing.T) {
	z, th, rec, _ := newTestZhiLian(t, 10)
	var res Result
	z.commit(cards("a"), ErrLimit, &res)
	assert.Equal(t, Result{Failed: 1}, res)
	assert.Equal(t, []bool{false}, th.results)
	assert.Equal(t, []string{model.RecordFailed}, rec.statuses)
	ok, _ := z.deps.Filter.ShouldApply(cards("a")[0].Job)
	assert.True(t, ok)
}

func TestScheduleRunsUntilCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rounds := 0
	err := Schedule(ctx, func(context.Context) (Result, error) {
		rounds++
		if rounds == 3 {
			cancel()
		}
		if rounds == 2 {
			return Result{}, errors.New("boom")
		}
		return Result{Success: 1}, nil
	}, time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, rounds)
}

func TestScheduleOnce(t *testing.T) {
	calls := 0
	err := Schedule(context.Background(), func(context.Context) (Result, error) {
		calls++
		return Result{}, nil
	}, 0)
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}
