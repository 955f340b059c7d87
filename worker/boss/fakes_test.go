package boss

import (
	"context"
	"sync"
	"time"

	"job_applier_go/automation/jobfilter"
	"job_applier_go/automation/ratelimit"
	"job_applier_go/automation/retry"
	"job_applier_go/model"
	"job_applier_go/notify/feishu"
)

// ---- 存储 ----

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

func (s *memAppliedStore) CountAll() (int64, error) { return int64(len(s.rows)), nil }

func (s *memAppliedStore) CountSince(time.Time) (int64, error) { return int64(len(s.rows)), nil }

func (s *memAppliedStore) DistinctCompanies() ([]string, error) { return nil, nil }

func (s *memAppliedStore) DeleteBefore(time.Time) (int64, error) { return 0, nil }

type memBlacklistStore struct {
	rows []*model.BlacklistEntity
}

func (s *memBlacklistStore) FindAll() ([]*model.BlacklistEntity, error) { return s.rows, nil }

func (s *memBlacklistStore) Save(b *model.BlacklistEntity) error {
	s.rows = append(s.rows, b)
	return nil
}

func (s *memBlacklistStore) DeleteByTypeAndValue(string, string) error { return nil }

func (s *memBlacklistStore) CountByTypeAndValue(typ, value string) (int64, error) {
	var n int64
	for _, r := range s.rows {
		if r.Type == typ && r.Value == value {
			n++
		}
	}
	return n, nil
}

type memCheckpointStore struct {
	rows map[string]*model.CheckpointEntity
}

func (s *memCheckpointStore) FindByTaskID(taskID string) (*model.CheckpointEntity, error) {
	return s.rows[taskID], nil
}

func (s *memCheckpointStore) FindAll() ([]*model.CheckpointEntity, error) {
	out := make([]*model.CheckpointEntity, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	return out, nil
}

func (s *memCheckpointStore) Upsert(cp *model.CheckpointEntity) error {
	s.rows[cp.TaskID] = cp
	return nil
}

func (s *memCheckpointStore) DeleteByTaskID(taskID string) error {
	delete(s.rows, taskID)
	return nil
}

// ---- 依赖 ----

// fakeThrottle 前 allow 次放行，之后拒绝
type fakeThrottle struct {
	allow    int
	acquired int
	results  []bool
}

func (t *fakeThrottle) Acquire(context.Context) (ratelimit.Decision, error) {
	if t.acquired >= t.allow {
		return ratelimit.Decision{
			Tier:       ratelimit.TierHour,
			RetryAfter: 30 * time.Minute,
			Reason:     "超过每小时投递上限",
		}, nil
	}
	t.acquired++
	return ratelimit.Decision{Allowed: true}, nil
}

func (t *fakeThrottle) RecordResult(success bool) {
	t.results = append(t.results, success)
}

func (t *fakeThrottle) Stats(context.Context) (ratelimit.Stats, error) {
	return ratelimit.Stats{RemainingToday: t.allow - t.acquired, CurrentRate: 10}, nil
}

// fakePage 按 JobID 返回预设的错误
type fakePage struct {
	openErr   map[string]error
	applyErr  map[string]error
	hrStatus  map[string]string
	onApply   func(job *model.Job)
	opened    []string
	applied   []string
	greetings []string
}

func (p *fakePage) Open(_ context.Context, job *model.Job) error {
	p.opened = append(p.opened, job.JobID)
	if s, ok := p.hrStatus[job.JobID]; ok {
		job.HRActiveStatus = s
	}
	return p.openErr[job.JobID]
}

func (p *fakePage) Apply(_ context.Context, job *model.Job, greeting string) error {
	p.applied = append(p.applied, job.JobID)
	p.greetings = append(p.greetings, greeting)
	if p.onApply != nil {
		p.onApply(job)
	}
	return p.applyErr[job.JobID]
}

type fakeBehavior struct {
	reading, hesitation int
}

func (b *fakeBehavior) SimulateReading(context.Context, time.Duration) error {
	b.reading++
	return nil
}

func (b *fakeBehavior) SimulateHesitation(context.Context) error {
	b.hesitation++
	return nil
}

type fakeGreeter struct{}

func (fakeGreeter) GenerateGreeting(_ context.Context, job *model.Job, keyword, _ string) string {
	return "AI:" + keyword + ":" + job.Title
}

type recordCall struct {
	JobID, Status, Cover, Response string
}

type fakeRecorder struct {
	calls []recordCall
}

func (r *fakeRecorder) RecordApplication(job *model.Job, status, cover, response string) (*model.ApplicationRecordEntity, error) {
	r.calls = append(r.calls, recordCall{job.JobID, status, cover, response})
	return &model.ApplicationRecordEntity{}, nil
}

type fakeDelivery struct {
	mu      sync.Mutex
	saved   []string
	status  map[string]string
	reasons map[string]string
}

func newFakeDelivery() *fakeDelivery {
	return &fakeDelivery{status: map[string]string{}, reasons: map[string]string{}}
}

func (d *fakeDelivery) SaveBossJob(job *model.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.saved = append(d.saved, job.JobID)
	return nil
}

func (d *fakeDelivery) UpdateDeliveryStatus(job *model.Job, status, reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status[job.JobID] = status
	d.reasons[job.JobID] = reason
}

type fakeNotifier struct {
	apps      []string
	summaries []feishu.Summary
}

func (n *fakeNotifier) NotifyApplication(_ context.Context, job *model.Job, status string) error {
	n.apps = append(n.apps, job.JobID+":"+status)
	return nil
}

func (n *fakeNotifier) NotifySummary(_ context.Context, s feishu.Summary) error {
	n.summaries = append(n.summaries, s)
	return nil
}

// ---- 组装 ----

type harness struct {
	runner      *BatchRunner
	throttle    *fakeThrottle
	filter      *jobfilter.Filter
	blacklist   *jobfilter.Blacklist
	checkpoints *retry.CheckpointManager
	cpStore     *memCheckpointStore
	records     *fakeRecorder
	delivery    *fakeDelivery
	notifier    *fakeNotifier
}

func newHarness(allow int, opts BatchOptions) *harness {
	dedup, err := jobfilter.NewDeduplicator(&memAppliedStore{rows: map[string]*model.AppliedJobEntity{}})
	if err != nil {
		panic(err)
	}
	bl, err := jobfilter.NewBlacklist(&memBlacklistStore{})
	if err != nil {
		panic(err)
	}

	h := &harness{
		throttle:  &fakeThrottle{allow: allow},
		filter:    jobfilter.NewFilter(dedup, bl),
		blacklist: bl,
		cpStore:   &memCheckpointStore{rows: map[string]*model.CheckpointEntity{}},
		records:   &fakeRecorder{},
		delivery:  newFakeDelivery(),
		notifier:  &fakeNotifier{},
	}
	h.checkpoints = retry.NewCheckpointManager(h.cpStore)
	h.runner = NewBatchRunner(RunnerDeps{
		Throttle: h.throttle,
		Filter:   h.filter,
		Retry: retry.NewManager(retry.Config{
			MaxRetries: 2,
			BaseDelay:  time.Millisecond,
			MaxDelay:   time.Millisecond,
			Multiplier: 2,
		}),
		Checkpoints: h.checkpoints,
		Records:     h.records,
		Delivery:    h.delivery,
		Notifier:    h.notifier,
	}, opts)
	h.runner.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return h
}

func makeJobs(ids ...string) []*model.Job {
	jobs := make([]*model.Job, 0, len(ids))
	for _, id := range ids {
		jobs = append(jobs, &model.Job{
			JobID:    id,
			Title:    "Go 开发 " + id,
			Company:  "公司" + id,
			Location: "上海",
			Salary:   "20-30K",
			URL:      "https://www.zhipin.com/job_detail/" + id + ".html",
			Platform: model.PlatformBoss,
		})
	}
	return jobs
}
