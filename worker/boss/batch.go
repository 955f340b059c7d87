package boss

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	log "github.com/sirupsen/logrus"

	"job_applier_go/automation/jobfilter"
	"job_applier_go/automation/ratelimit"
	"job_applier_go/automation/retry"
	"job_applier_go/metrics"
	"job_applier_go/model"
	"job_applier_go/notify/feishu"
	"job_applier_go/service"
	"job_applier_go/utils"
)

const checkpointTask = "batch_apply"

var (
	// ErrDailyLimit 平台提示今日沟通人数已达上限，本轮投递结束
	ErrDailyLimit = errors.New("今日沟通人数已达上限")
	// ErrRejected 页面提示投递失败
	ErrRejected = errors.New("投递被拒绝")
)

// JobPage 单个岗位的页面操作
type JobPage interface {
	// Open 打开详情页并补全描述与 HR 信息
	Open(ctx context.Context, job *model.Job) error
	// Apply 在已打开的详情页上发起沟通并发送招呼语
	Apply(ctx context.Context, job *model.Job, greeting string) error
}

// Throttle 投递节流
type Throttle interface {
	Acquire(ctx context.Context) (ratelimit.Decision, error)
	RecordResult(success bool)
	Stats(ctx context.Context) (ratelimit.Stats, error)
}

// Behavior 人类行为模拟，可为 nil
type Behavior interface {
	SimulateReading(ctx context.Context, duration time.Duration) error
	SimulateHesitation(ctx context.Context) error
}

// Greeter 生成打招呼语
type Greeter interface {
	GenerateGreeting(ctx context.Context, job *model.Job, keyword, fallback string) string
}

// Recorder 投递记录
type Recorder interface {
	RecordApplication(job *model.Job, status, coverLetter, response string) (*model.ApplicationRecordEntity, error)
}

// DeliveryTracker boss_data 表的岗位与投递状态
type DeliveryTracker interface {
	SaveBossJob(job *model.Job) error
	UpdateDeliveryStatus(job *model.Job, status, reason string)
}

// Notifier 投递通知
type Notifier interface {
	NotifyApplication(ctx context.Context, job *model.Job, status string) error
	NotifySummary(ctx context.Context, s feishu.Summary) error
}

// BatchOptions 批量投递参数
type BatchOptions struct {
	Debugger     bool
	EnableAI     bool
	SayHi        string
	FilterDeadHR bool
	DeadStatus   []string
	Expected     []int // 期望薪资 [min, max]，单位 K
	ReadingFor   time.Duration
	MinDelay     time.Duration
	MaxDelay     time.Duration
}

// BatchResult 一批岗位的投递结果
type BatchResult struct {
	Total    int  `json:"total"`
	Success  int  `json:"success"`
	Failed   int  `json:"failed"`
	Skipped  int  `json:"skipped"`
	Filtered int  `json:"filtered"`
	Stopped  bool `json:"stopped"` // 达到平台上限或配额用尽
}

// Add 累加
func (r *BatchResult) Add(o BatchResult) {
	r.Total += o.Total
	r.Success += o.Success
	r.Failed += o.Failed
	r.Skipped += o.Skipped
	r.Filtered += o.Filtered
	r.Stopped = r.Stopped || o.Stopped
}

type batchCheckpoint struct {
	CurrentIndex int         `json:"current_index"`
	FirstJob     string      `json:"first_job"`
	Total        int         `json:"total"`
	Results      BatchResult `json:"results"`
}

// BatchRunner 批量投递：断点续传、节流、重试、记录
type BatchRunner struct {
	throttle    Throttle
	filter      *jobfilter.Filter
	retry       *retry.Manager
	checkpoints *retry.CheckpointManager
	greeter     Greeter
	records     Recorder
	delivery    DeliveryTracker
	notifier    Notifier
	behavior    Behavior

	opts  BatchOptions
	sleep func(ctx context.Context, d time.Duration) error
	rng   *rand.Rand
}

// RunnerDeps BatchRunner 依赖，Greeter 与 Notifier 可为 nil
type RunnerDeps struct {
	Throttle    Throttle
	Filter      *jobfilter.Filter
	Retry       *retry.Manager
	Checkpoints *retry.CheckpointManager
	Greeter     Greeter
	Records     Recorder
	Delivery    DeliveryTracker
	Notifier    Notifier
}

func NewBatchRunner(deps RunnerDeps, opts BatchOptions) *BatchRunner {
	return &BatchRunner{
		throttle:    deps.Throttle,
		filter:      deps.Filter,
		retry:       deps.Retry,
		checkpoints: deps.Checkpoints,
		greeter:     deps.Greeter,
		records:     deps.Records,
		delivery:    deps.Delivery,
		notifier:    deps.Notifier,
		opts:        opts,
		sleep:       utils.SleepCtx,
		rng:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
	}
}

// SetOptions 每轮投递前按最新配置更新
func (r *BatchRunner) SetOptions(opts BatchOptions) {
	r.opts = opts
}

// SetBehavior 设置页面上的行为模拟，nil 表示关闭
func (r *BatchRunner) SetBehavior(b Behavior) {
	r.behavior = b
}

// Screen 保存抓取到的岗位并过滤：去重、黑名单、期望薪资
func (r *BatchRunner) Screen(jobs []*model.Job) ([]*model.Job, int) {
	for _, job := range jobs {
		if err := r.delivery.SaveBossJob(job); err != nil {
			log.Warnf("保存岗位数据失败 %s: %v", job.JobID, err)
		}
	}

	passed, _ := r.filter.FilterJobs(jobs)
	kept := make(map[*model.Job]bool, len(passed))
	for _, job := range passed {
		kept[job] = true
	}
	for _, job := range jobs {
		if kept[job] {
			continue
		}
		_, reason := r.filter.ShouldApply(job)
		r.delivery.UpdateDeliveryStatus(job, model.DeliveryFiltered, reason)
	}

	out := make([]*model.Job, 0, len(passed))
	for _, job := range passed {
		if !service.SalaryMatches(job.Salary, r.opts.Expected) {
			log.Infof("被过滤：薪资不符合预期 | 公司：%s | 岗位：%s | 薪资：%s", job.Company, job.Title, job.Salary)
			r.delivery.UpdateDeliveryStatus(job, model.DeliveryFiltered, "薪资不符合预期")
			metrics.FilteredJobs.WithLabelValues("salary").Inc()
			continue
		}
		out = append(out, job)
	}
	return out, len(jobs) - len(out)
}

// Run 依次投递 jobs。ctx 取消时保留检查点，下次从断点继续
func (r *BatchRunner) Run(ctx context.Context, page JobPage, jobs []*model.Job, keyword string) (BatchResult, error) {
	res := BatchResult{Total: len(jobs)}
	if len(jobs) == 0 {
		return res, nil
	}
	log.Infof("开始批量投递: %d 个岗位", len(jobs))

	start := r.resume(jobs, &res)

	for i := start; i < len(jobs); i++ {
		job := jobs[i]
		logger := log.WithFields(log.Fields{"company": job.Company, "job": job.Title})

		if err := ctx.Err(); err != nil {
			return res, err
		}

		err := r.retry.Do(ctx, "detail_"+job.JobID, func(ctx context.Context) error {
			return page.Open(ctx, job)
		})
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			logger.Warnf("打开岗位详情失败: %v", err)
			res.Failed++
			r.delivery.UpdateDeliveryStatus(job, model.DeliveryFailed, err.Error())
			r.save(jobs, i+1, res)
			continue
		}

		if r.opts.FilterDeadHR && IsHRInactive(job.HRActiveStatus, r.opts.DeadStatus) {
			logger.Infof("被过滤：HR不活跃 | 活跃：%s", job.HRActiveStatus)
			res.Filtered++
			metrics.FilteredJobs.WithLabelValues("dead_hr").Inc()
			r.delivery.UpdateDeliveryStatus(job, model.DeliveryFiltered, "HR不活跃: "+job.HRActiveStatus)
			r.save(jobs, i+1, res)
			continue
		}

		if r.opts.Debugger {
			logger.Info("调试模式：仅遍历岗位，不投递")
			res.Skipped++
			r.delivery.UpdateDeliveryStatus(job, model.DeliverySkipped, "调试模式")
			r.save(jobs, i+1, res)
			continue
		}

		decision, err := r.throttle.Acquire(ctx)
		if err != nil {
			return res, err
		}
		if !decision.Allowed {
			log.Warnf("达到投递限额（%s），停止投递，%s 后恢复", decision.Tier, decision.RetryAfter.Round(time.Second))
			for _, rest := range jobs[i:] {
				r.delivery.UpdateDeliveryStatus(rest, model.DeliverySkipped, decision.Reason)
			}
			res.Skipped += len(jobs) - i
			res.Stopped = true
			metrics.Applications.WithLabelValues(string(model.PlatformBoss), "skipped").Add(float64(len(jobs) - i))
			break
		}

		greeting, err := r.prepare(ctx, job, keyword)
		if err != nil {
			return res, err
		}

		err = r.retry.Do(ctx, "apply_"+job.JobID, func(ctx context.Context) error {
			return page.Apply(ctx, job, greeting)
		})
		if err != nil && ctx.Err() != nil {
			return res, ctx.Err()
		}
		r.finish(ctx, job, greeting, err, &res)
		r.save(jobs, i+1, res)

		if errors.Is(err, ErrDailyLimit) {
			log.Warn("今日沟通人数已达上限，结束本轮投递")
			res.Skipped += len(jobs) - i - 1
			res.Stopped = true
			break
		}

		if i < len(jobs)-1 {
			if err := r.sleep(ctx, r.randomDelay()); err != nil {
				return res, err
			}
		}
	}

	if err := r.checkpoints.Delete(checkpointTask); err != nil {
		log.Warnf("删除检查点失败: %v", err)
	}
	r.logSummary(ctx, res)
	return res, nil
}

// prepare 阅读、生成招呼语、犹豫
func (r *BatchRunner) prepare(ctx context.Context, job *model.Job, keyword string) (string, error) {
	if r.behavior != nil {
		if err := r.behavior.SimulateReading(ctx, r.opts.ReadingFor); err != nil {
			return "", err
		}
	}

	greeting := r.opts.SayHi
	if r.opts.EnableAI && r.greeter != nil {
		greeting = r.greeter.GenerateGreeting(ctx, job, keyword, r.opts.SayHi)
	}

	if r.behavior != nil {
		if err := r.behavior.SimulateHesitation(ctx); err != nil {
			return "", err
		}
	}
	return greeting, nil
}

func (r *BatchRunner) finish(ctx context.Context, job *model.Job, greeting string, err error, res *BatchResult) {
	success := err == nil
	r.throttle.RecordResult(success)

	status, response := model.RecordSuccess, ""
	if success {
		res.Success++
		if markErr := r.filter.MarkApplied(job); markErr != nil {
			log.Warnf("标记已投递失败: %v", markErr)
		}
		r.delivery.UpdateDeliveryStatus(job, model.DeliveryDone, "")
		log.Infof("✅ 投递成功: %s - %s", job.Company, job.Title)
	} else {
		res.Failed++
		status, response = model.RecordFailed, err.Error()
		r.delivery.UpdateDeliveryStatus(job, model.DeliveryFailed, response)
		log.Warnf("❌ 投递失败: %s - %s: %v", job.Company, job.Title, err)
	}
	metrics.Applications.WithLabelValues(string(model.PlatformBoss), status).Inc()

	if _, recErr := r.records.RecordApplication(job, status, greeting, response); recErr != nil {
		log.Warnf("保存投递记录失败: %v", recErr)
	}
	if r.notifier != nil {
		_ = r.notifier.NotifyApplication(ctx, job, status)
	}
}

// resume 检查点属于同一批岗位时返回续投位置
func (r *BatchRunner) resume(jobs []*model.Job, res *BatchResult) int {
	var cp batchCheckpoint
	found, err := r.checkpoints.Load(checkpointTask, &cp)
	if err != nil {
		log.Warnf("读取检查点失败，从头开始: %v", err)
		return 0
	}
	if !found || cp.Total != len(jobs) || cp.FirstJob != jobfilter.JobKey(jobs[0]) {
		return 0
	}
	if cp.CurrentIndex <= 0 || cp.CurrentIndex >= len(jobs) {
		return 0
	}
	log.Infof("从断点继续: 第 %d 个岗位", cp.CurrentIndex+1)
	*res = cp.Results
	res.Total = len(jobs)
	return cp.CurrentIndex
}

func (r *BatchRunner) save(jobs []*model.Job, next int, res BatchResult) {
	err := r.checkpoints.Save(checkpointTask, batchCheckpoint{
		CurrentIndex: next,
		FirstJob:     jobfilter.JobKey(jobs[0]),
		Total:        len(jobs),
		Results:      res,
	})
	if err != nil {
		log.Warnf("保存检查点失败: %v", err)
	}
}

func (r *BatchRunner) randomDelay() time.Duration {
	lo, hi := r.opts.MinDelay, r.opts.MaxDelay
	if lo <= 0 {
		lo = 3 * time.Second
	}
	if hi < lo {
		hi = lo
	}
	return lo + time.Duration(r.rng.Int64N(int64(hi-lo)+1))
}

func (r *BatchRunner) logSummary(ctx context.Context, res BatchResult) {
	rate := 0.0
	if res.Total > 0 {
		rate = float64(res.Success) / float64(res.Total) * 100
	}
	fields := log.Fields{
		"total":   res.Total,
		"success": res.Success,
		"failed":  res.Failed,
		"skipped": res.Skipped,
	}
	if stats, err := r.throttle.Stats(ctx); err == nil {
		fields["remaining_today"] = stats.RemainingToday
		fields["rate"] = stats.CurrentRate
	}
	log.WithFields(fields).Info(fmt.Sprintf("投递完成，成功率 %.1f%%", rate))
}
