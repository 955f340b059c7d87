package boss

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"time"

	"github.com/playwright-community/playwright-go"
	log "github.com/sirupsen/logrus"

	locators "job_applier_go/Locators"
	"job_applier_go/automation/human"
	"job_applier_go/config"
	"job_applier_go/model"
	"job_applier_go/notify/feishu"
	"job_applier_go/utils"
)

// 城市为空时搜索全国
const nationwideCityCode = "100010000"

// ProgressFunc 进度回调，total 为 0 时只是普通消息
type ProgressFunc func(message string, current, total int)

// Boss Boss直聘投递：按 城市 x 关键词 搜索并批量投递
type Boss struct {
	page     playwright.Page
	cfg      *config.BossConfig
	humanCfg config.HumanConfig
	runner   *BatchRunner
	notifier Notifier
	progress ProgressFunc

	applier *pageApplier
}

func NewBoss(runner *BatchRunner, notifier Notifier, humanCfg config.HumanConfig) *Boss {
	return &Boss{
		runner:   runner,
		notifier: notifier,
		humanCfg: humanCfg,
		progress: func(string, int, int) {},
	}
}

func (b *Boss) SetPage(page playwright.Page) {
	b.page = page
}

func (b *Boss) SetConfig(cfg *config.BossConfig) {
	b.cfg = cfg
}

func (b *Boss) SetProgressCallback(fn ProgressFunc) {
	if fn != nil {
		b.progress = fn
	}
}

// Prepare 校验配置并准备页面操作与行为模拟
func (b *Boss) Prepare() error {
	if b.page == nil {
		return fmt.Errorf("Boss页面未初始化")
	}
	if b.cfg == nil || len(b.cfg.Keywords) == 0 {
		return fmt.Errorf("未配置搜索关键词")
	}

	b.applier = &pageApplier{page: b.page}
	if b.humanCfg.Enabled {
		b.applier.sim = human.NewSimulator(human.NewPageDriver(b.page),
			human.WithRand(rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))))
		b.runner.SetBehavior(b.applier.sim)
	} else {
		b.runner.SetBehavior(nil)
	}

	if b.cfg.SendImgResume {
		path, err := utils.ResolveFile(b.cfg.ResumeImage, "./resume.jpg", "./resources/resume.jpg", "./static/resume.jpg")
		if err != nil {
			log.Warnf("图片简历文件不存在，跳过发送: %v", err)
		} else {
			b.applier.resumeImage = path
		}
	}

	b.runner.SetOptions(BatchOptions{
		Debugger:     b.cfg.Debugger,
		EnableAI:     b.cfg.EnableAI,
		SayHi:        b.cfg.SayHi,
		FilterDeadHR: b.cfg.FilterDeadHR,
		DeadStatus:   b.cfg.DeadStatus,
		Expected:     b.cfg.ExpectedSalary,
		ReadingFor:   b.humanCfg.ReadingFor,
		MinDelay:     b.humanCfg.MinDelay,
		MaxDelay:     b.humanCfg.MaxDelay,
	})

	log.Infof("投递准备完成: 关键词 %v, 城市 %v, AI %v, 调试 %v",
		b.cfg.Keywords, b.cfg.CityCode, b.cfg.EnableAI, b.cfg.Debugger)
	return nil
}

// Execute 主执行入口，ctx 取消视为用户停止
func (b *Boss) Execute(ctx context.Context) (BatchResult, error) {
	started := time.Now()
	var total BatchResult

	cities := b.cfg.CityCode
	if len(cities) == 0 {
		cities = []string{nationwideCityCode}
	}

	err := b.run(ctx, cities, &total)
	if errors.Is(err, context.Canceled) {
		b.progress("用户取消投递", 0, 0)
		err = nil
	}

	elapsed := time.Since(started)
	log.Infof("Boss投递结束: 岗位 %d, 成功 %d, 失败 %d, 跳过 %d, 过滤 %d, 用时 %s",
		total.Total, total.Success, total.Failed, total.Skipped, total.Filtered, utils.FormatDuration(elapsed))

	if b.notifier != nil {
		// 通知不受停止影响
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		_ = b.notifier.NotifySummary(nctx, feishu.Summary{
			Platform: string(model.PlatformBoss),
			Total:    total.Total,
			Success:  total.Success,
			Failed:   total.Failed,
			Skipped:  total.Skipped,
			Filtered: total.Filtered,
			Duration: elapsed,
		})
		cancel()
	}
	return total, err
}

func (b *Boss) run(ctx context.Context, cities []string, total *BatchResult) error {
	for _, city := range cities {
		for _, keyword := range b.cfg.Keywords {
			if err := ctx.Err(); err != nil {
				return err
			}

			jobs, err := b.searchJobs(ctx, city, keyword)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warnf("【%s】搜索失败: %v", keyword, err)
				b.progress(fmt.Sprintf("搜索失败：%s", keyword), 0, 0)
				continue
			}

			passed, filtered := b.runner.Screen(jobs)
			b.progress(fmt.Sprintf("岗位加载完成：%s，待投递 %d", keyword, len(passed)), 0, len(jobs))

			res, err := b.runner.Run(ctx, b.applier, passed, keyword)
			res.Total += filtered
			res.Filtered += filtered
			total.Add(res)
			b.progress(fmt.Sprintf("【%s】投递完成，成功 %d", keyword, res.Success), total.Success, total.Total)
			if err != nil {
				return err
			}
			if res.Stopped {
				log.Warn("已达投递上限，结束全部投递")
				return nil
			}
		}
	}
	return nil
}

func (b *Boss) searchJobs(ctx context.Context, city, keyword string) ([]*model.Job, error) {
	if _, err := b.page.Goto(BuildSearchURL(b.cfg, city, keyword), playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return nil, fmt.Errorf("导航到搜索页面失败: %w", err)
	}
	if _, err := b.page.WaitForSelector(locators.JOB_LIST, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(60000),
	}); err != nil {
		return nil, fmt.Errorf("等待职位列表超时: %w", err)
	}
	if err := b.scrollToLoadAllJobs(ctx); err != nil {
		return nil, err
	}

	html, err := b.page.Content()
	if err != nil {
		return nil, err
	}
	jobs, err := ParseJobCards(html)
	if err != nil {
		return nil, fmt.Errorf("解析职位卡片失败: %w", err)
	}
	log.Infof("【%s】岗位已全部加载，总数:%d", keyword, len(jobs))
	return jobs, nil
}

// scrollToLoadAllJobs 滚动到出现页脚，或连续多次没有新卡片
func (b *Boss) scrollToLoadAllJobs(ctx context.Context) error {
	lastCount, stableTries := -1, 0
	for i := 0; i < 120; i++ {
		if visible, _ := b.page.Locator(locators.PAGE_FOOTER).First().IsVisible(); visible {
			return nil
		}

		if _, err := b.page.Evaluate("() => window.scrollBy(0, Math.floor(window.innerHeight * 1.5))"); err != nil {
			log.Debugf("滚动页面失败: %v", err)
		}

		count, err := b.page.Locator(locators.JOB_LIST_CARDS).Count()
		if err != nil {
			return err
		}
		if count == lastCount {
			stableTries++
		} else {
			stableTries = 0
		}
		lastCount = count

		if stableTries >= 3 {
			_, _ = b.page.Evaluate("() => window.scrollTo(0, document.body.scrollHeight)")
		}
		if stableTries >= 6 {
			return nil
		}

		if err := utils.SleepCtx(ctx, 500*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

// BuildSearchURL 搜索页地址，不限的条件不带参数
func BuildSearchURL(cfg *config.BossConfig, city, keyword string) string {
	return "https://www.zhipin.com/web/geek/job?query=" + url.QueryEscape(keyword) +
		utils.AppendParam("city", city) +
		utils.AppendParam("jobType", cfg.JobType) +
		utils.AppendListParam("salary", cfg.Salary) +
		utils.AppendListParam("experience", cfg.Experience) +
		utils.AppendListParam("degree", cfg.Degree) +
		utils.AppendListParam("scale", cfg.Scale) +
		utils.AppendListParam("industry", cfg.Industry) +
		utils.AppendListParam("stage", cfg.Stage)
}
