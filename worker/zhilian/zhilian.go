package zhilian

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	log "github.com/sirupsen/logrus"

	locators "job_applier_go/Locators"
	"job_applier_go/automation/jobfilter"
	"job_applier_go/automation/ratelimit"
	"job_applier_go/automation/retry"
	"job_applier_go/config"
	"job_applier_go/metrics"
	"job_applier_go/model"
	"job_applier_go/notify/feishu"
	"job_applier_go/service"
	"job_applier_go/utils"
)

const (
	loginURL       = "https://passport.zhaopin.com/login"
	searchURL      = "https://sou.zhaopin.com/?"
	defaultMaxPage = 50
)

// ErrLimit 智联提示今日投递已达上限
var ErrLimit = errors.New("智联今日投递已达上限")

// Throttle 投递节流
type Throttle interface {
	Acquire(ctx context.Context) (ratelimit.Decision, error)
	Release(ctx context.Context, d ratelimit.Decision)
	RecordResult(success bool)
}

// Recorder 投递记录
type Recorder interface {
	RecordApplication(job *model.Job, status, coverLetter, response string) (*model.ApplicationRecordEntity, error)
}

// CookieStore 登录态持久化
type CookieStore interface {
	LoadCookies(platform string) ([]service.Cookie, error)
	SaveCookies(platform string, cookies []service.Cookie, remark string) error
}

// Notifier 投递汇总通知
type Notifier interface {
	NotifySummary(ctx context.Context, s feishu.Summary) error
}

// Deps 投递依赖，Notifier 可为 nil
type Deps struct {
	Throttle Throttle
	Filter   *jobfilter.Filter
	Retry    *retry.Manager
	Records  Recorder
	Cookies  CookieStore
	Notifier Notifier
}

// Result 一次运行的统计
type Result struct {
	Total    int  `json:"total"`
	Success  int  `json:"success"`
	Failed   int  `json:"failed"`
	Filtered int  `json:"filtered"`
	Skipped  int  `json:"skipped"`
	Stopped  bool `json:"stopped"`
}

// Card 列表页上的一个岗位，Index 从 0 开始
type Card struct {
	Index int
	Job   *model.Job
}

type ZhiLian struct {
	cfg      config.ZhilianConfig
	headless bool
	deps     Deps
	sleep    func(ctx context.Context, d time.Duration) error
}

func New(cfg config.ZhilianConfig, browser config.BrowserConfig, deps Deps) *ZhiLian {
	if cfg.MaxPage <= 0 {
		cfg.MaxPage = defaultMaxPage
	}
	return &ZhiLian{
		cfg:      cfg,
		headless: browser.Headless,
		deps:     deps,
		sleep:    utils.SleepCtx,
	}
}

// Run 登录后按关键词逐页勾选并批量申请，返回统计
func (z *ZhiLian) Run(ctx context.Context) (Result, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", z.headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
		)...)
	defer cancelAlloc()
	bctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	started := time.Now()
	var res Result
	if err := z.login(bctx); err != nil {
		return res, fmt.Errorf("登录失败: %w", err)
	}

	for _, keyword := range z.cfg.Keywords {
		err := z.applyKeyword(bctx, keyword, &res)
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if err != nil {
			log.Errorf("关键词【%s】投递失败: %v", keyword, err)
			continue
		}
		if res.Stopped {
			break
		}
	}

	z.summary(ctx, res, time.Since(started))
	return res, nil
}

func (z *ZhiLian) login(ctx context.Context) error {
	if err := chromedp.Run(ctx, chromedp.Navigate(loginURL)); err != nil {
		return err
	}

	if cookies, err := z.deps.Cookies.LoadCookies(string(model.PlatformZhilian)); err != nil {
		log.Warnf("加载智联Cookie失败: %v", err)
	} else if len(cookies) > 0 {
		if err := chromedp.Run(ctx, network.SetCookies(ToCookieParams(cookies)), chromedp.Reload()); err != nil {
			return err
		}
		if err := z.sleep(ctx, time.Second); err != nil {
			return err
		}
	}

	var currentURL string
	if err := chromedp.Run(ctx, chromedp.Location(&currentURL)); err != nil {
		return err
	}
	if strings.Contains(currentURL, "i.zhaopin.com") {
		log.Info("智联Cookie有效，已登录")
		return nil
	}
	return z.scanLogin(ctx)
}

func (z *ZhiLian) scanLogin(ctx context.Context) error {
	log.Info("等待扫码登录中...")
	if err := chromedp.Run(ctx,
		chromedp.Click(locators.ZL_QR_LOGIN_TAB),
		chromedp.WaitVisible(locators.ZL_PERSONAL),
	); err != nil {
		return fmt.Errorf("扫码登录失败: %w", err)
	}
	log.Info("扫码登录成功！")

	var cookies []*network.Cookie
	if err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	})); err != nil {
		return fmt.Errorf("获取Cookie失败: %w", err)
	}
	return z.deps.Cookies.SaveCookies(string(model.PlatformZhilian), FromNetworkCookies(cookies), "扫码登录")
}

func (z *ZhiLian) applyKeyword(ctx context.Context, keyword string, res *Result) error {
	for page := 1; page <= z.cfg.MaxPage; page++ {
		log.Infof("开始投递【%s】关键词，第【%d】页...", keyword, page)

		cards, err := z.loadPage(ctx, keyword, page)
		if err != nil {
			return err
		}
		if len(cards) == 0 {
			log.Infof("【%s】没有更多岗位", keyword)
			return nil
		}

		selected, stopped, err := z.plan(ctx, cards, res)
		if err != nil {
			return err
		}
		if len(selected) > 0 {
			applyErr := z.submit(ctx, selected)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			z.commit(selected, applyErr, res)
			if errors.Is(applyErr, ErrLimit) {
				res.Stopped = true
				return nil
			}
		}
		if stopped {
			res.Stopped = true
			return nil
		}

		if err := z.sleep(ctx, utils.RandomDuration(3*time.Second, 6*time.Second)); err != nil {
			return err
		}
	}
	return nil
}

func (z *ZhiLian) loadPage(ctx context.Context, keyword string, page int) ([]Card, error) {
	target := BuildSearchURL(z.cfg, keyword, page)
	var html string
	err := z.deps.Retry.Do(ctx, fmt.Sprintf("zhilian_%s_%d", keyword, page), func(ctx context.Context) error {
		tctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		return chromedp.Run(tctx,
			chromedp.Navigate(target),
			chromedp.WaitVisible(locators.ZL_JOB_LIST, chromedp.ByQuery),
			chromedp.OuterHTML(locators.ZL_JOB_LIST, &html, chromedp.ByQuery),
		)
	})
	if err != nil {
		return nil, err
	}
	return ParseJobList(html)
}

// plan 过滤并逐个申请配额，配额用尽时 stopped 为 true。
// 申请出错时归还本轮已拿到的配额，不提交任何岗位。
func (z *ZhiLian) plan(ctx context.Context, cards []Card, res *Result) ([]Card, bool, error) {
	jobs := make([]*model.Job, len(cards))
	for i, c := range cards {
		jobs[i] = c.Job
	}
	passed, stats := z.deps.Filter.FilterJobs(jobs)
	res.Total += len(cards)
	res.Filtered += len(cards) - stats.Passed

	keep := make(map[*model.Job]bool, len(passed))
	for _, job := range passed {
		keep[job] = true
	}

	var (
		selected []Card
		granted  []ratelimit.Decision
	)
	for _, c := range cards {
		if !keep[c.Job] {
			continue
		}
		decision, err := z.deps.Throttle.Acquire(ctx)
		if err != nil {
			for _, d := range granted {
				z.deps.Throttle.Release(ctx, d)
			}
			return nil, false, err
		}
		if !decision.Allowed {
			rest := len(passed) - len(selected)
			log.Warnf("达到投递限额（%s），%d 个岗位本轮跳过", decision.Tier, rest)
			res.Skipped += rest
			metrics.Applications.WithLabelValues(string(model.PlatformZhilian), "skipped").Add(float64(rest))
			return selected, true, nil
		}
		selected = append(selected, c)
		granted = append(granted, decision)
	}
	return selected, false, nil
}

// submit 勾选岗位并点击批量申请
func (z *ZhiLian) submit(ctx context.Context, selected []Card) error {
	actions := make([]chromedp.Action, 0, len(selected)+1)
	for _, c := range selected {
		actions = append(actions, chromedp.Click(fmt.Sprintf(locators.ZL_ITEM_CHECKBOX, c.Index+1), chromedp.ByQuery))
	}
	actions = append(actions, chromedp.Click(locators.ZL_BATCH_BUTTON, chromedp.ByQuery))

	tctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := chromedp.Run(tctx, actions...); err != nil {
		return fmt.Errorf("批量申请失败: %w", err)
	}

	if text, ok := z.textWithin(ctx, locators.ZL_APPLY_WORKFLOW, 2*time.Second); ok && IsLimitText(text) {
		return ErrLimit
	}
	if text, ok := z.textWithin(ctx, locators.ZL_DELIVER_DIALOG, 3*time.Second); ok && strings.Contains(text, "申请成功") {
		log.Info("岗位申请成功！")
	}

	// 相似职位推荐不投，直接关闭
	cctx, ccancel := context.WithTimeout(ctx, 2*time.Second)
	defer ccancel()
	if err := chromedp.Run(cctx, chromedp.Click(locators.ZL_DIALOG_CLOSE, chromedp.ByQuery)); err != nil {
		if text, ok := z.textWithin(ctx, locators.ZL_APPLY_WORKFLOW, time.Second); ok && IsLimitText(text) {
			return ErrLimit
		}
	}
	return nil
}

// textWithin 元素不存在时 chromedp 会一直等，这里限时读取
func (z *ZhiLian) textWithin(ctx context.Context, sel string, d time.Duration) (string, bool) {
	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	var text string
	if err := chromedp.Run(tctx, chromedp.Text(sel, &text, chromedp.ByQuery)); err != nil {
		return "", false
	}
	return text, true
}

// commit 写回节流、去重与投递记录
func (z *ZhiLian) commit(selected []Card, applyErr error, res *Result) {
	status, response := model.RecordSuccess, ""
	if applyErr != nil {
		status, response = model.RecordFailed, applyErr.Error()
	}
	for _, c := range selected {
		z.deps.Throttle.RecordResult(applyErr == nil)
		if applyErr == nil {
			res.Success++
			if err := z.deps.Filter.MarkApplied(c.Job); err != nil {
				log.Warnf("标记已投递失败: %v", err)
			}
			log.Infof("投递【%s】公司【%s】岗位，薪资【%s】", c.Job.Company, c.Job.Title, c.Job.Salary)
		} else {
			res.Failed++
		}
		metrics.Applications.WithLabelValues(string(model.PlatformZhilian), status).Inc()
		if _, err := z.deps.Records.RecordApplication(c.Job, status, "", response); err != nil {
			log.Warnf("保存投递记录失败: %v", err)
		}
	}
}

func (z *ZhiLian) summary(ctx context.Context, res Result, elapsed time.Duration) {
	log.Infof("智联招聘投递完成，共投递%d个岗位，过滤%d个，用时%s",
		res.Success, res.Filtered, utils.FormatDuration(elapsed))
	if z.deps.Notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	_ = z.deps.Notifier.NotifySummary(nctx, feishu.Summary{
		Platform: string(model.PlatformZhilian),
		Total:    res.Total,
		Success:  res.Success,
		Failed:   res.Failed,
		Skipped:  res.Skipped,
		Filtered: res.Filtered,
		Duration: elapsed,
	})
}

// BuildSearchURL 搜索页地址
func BuildSearchURL(cfg config.ZhilianConfig, keyword string, page int) string {
	params := []string{
		"jl=" + cfg.ResolveCity(),
		"kw=" + url.QueryEscape(keyword),
		"sl=" + cfg.ResolveSalary(),
		"p=" + strconv.Itoa(page),
	}
	return searchURL + strings.Join(params, "&")
}

// IsLimitText 申请流程提示是否为达到上限
func IsLimitText(text string) bool {
	return strings.Contains(text, "达到上限")
}

// ParseJobList 解析列表 HTML，Index 为岗位在列表中的位置
func ParseJobList(html string) ([]Card, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var cards []Card
	doc.Find(locators.ZL_JOB_ITEM).Each(func(i int, item *goquery.Selection) {
		link := item.Find(locators.ZL_JOB_NAME).First()
		href, _ := link.Attr("href")
		if href == "" {
			return
		}
		if strings.HasPrefix(href, "//") {
			href = "https:" + href
		}

		var info []string
		item.Find(locators.ZL_JOB_INFO).Each(func(_ int, s *goquery.Selection) {
			if t := cleanText(s.Text()); t != "" {
				info = append(info, t)
			}
		})
		var tags []string
		item.Find(locators.ZL_COMPANY_TAG).Each(func(_ int, s *goquery.Selection) {
			if t := cleanText(s.Text()); t != "" {
				tags = append(tags, t)
			}
		})

		job := &model.Job{
			JobID:      jobIDFromURL(href),
			Title:      cleanText(link.Text()),
			Company:    cleanText(item.Find(locators.ZL_COMPANY_NAME).First().Text()),
			Salary:     cleanText(item.Find(locators.ZL_JOB_SALARY).First().Text()),
			URL:        href,
			CompanyTag: strings.Join(tags, " "),
			Platform:   model.PlatformZhilian,
		}
		// 依次为 地点、经验、学历
		if len(info) > 0 {
			job.Location = info[0]
		}
		if len(info) > 1 {
			job.Experience = info[1]
		}
		if len(info) > 2 {
			job.Degree = info[2]
		}
		cards = append(cards, Card{Index: i, Job: job})
	})
	return cards, nil
}

func jobIDFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if ext := path.Ext(base); ext == ".htm" || ext == ".html" {
		return strings.TrimSuffix(base, ext)
	}
	return ""
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ToCookieParams 已保存的 Cookie 转为 CDP 参数
func ToCookieParams(cookies []service.Cookie) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		}
		if p.Path == "" {
			p.Path = "/"
		}
		if c.Expires > 0 {
			sec := int64(c.Expires)
			t := cdp.TimeSinceEpoch(time.Unix(sec, 0))
			p.Expires = &t
		}
		if c.SameSite != "" {
			p.SameSite = network.CookieSameSite(c.SameSite)
		}
		params = append(params, p)
	}
	return params
}

// FromNetworkCookies 浏览器 Cookie 转为持久化形式，会话 Cookie 的 Expires 为 0
func FromNetworkCookies(cookies []*network.Cookie) []service.Cookie {
	out := make([]service.Cookie, 0, len(cookies))
	for _, c := range cookies {
		sc := service.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HttpOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		}
		if !c.Session && c.Expires > 0 {
			sc.Expires = c.Expires
		}
		out = append(out, sc)
	}
	return out
}
