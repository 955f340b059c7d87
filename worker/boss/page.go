package boss

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	log "github.com/sirupsen/logrus"

	locators "job_applier_go/Locators"
	"job_applier_go/automation/human"
	"job_applier_go/automation/retry"
	"job_applier_go/model"
	"job_applier_go/utils"
)

// pageApplier 在 Boss 详情页上完成一次投递
type pageApplier struct {
	page        playwright.Page
	sim         *human.Simulator // nil 时直接点击、填充
	resumeImage string           // 为空时不发图片简历
}

func (p *pageApplier) Open(ctx context.Context, job *model.Job) error {
	if job.URL == "" {
		return retry.Permanent(fmt.Errorf("岗位 URL 为空"))
	}
	if _, err := p.page.Goto(job.URL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(30000),
	}); err != nil {
		return fmt.Errorf("打开详情页失败: %w", err)
	}
	if p.sim != nil {
		if err := p.sim.RandomMovement(ctx); err != nil {
			return err
		}
	} else if err := utils.RandomSleep(ctx, time.Second, 2*time.Second); err != nil {
		return err
	}

	if visible, _ := p.page.Locator(locators.ERROR_CONTENT).First().IsVisible(); visible {
		text, _ := p.page.Locator(locators.ERROR_CONTENT).First().InnerText()
		return retry.Permanent(fmt.Errorf("%w: %s", ErrRejected, strings.TrimSpace(text)))
	}

	html, err := p.page.Content()
	if err != nil {
		return err
	}
	detail, err := ParseJobDetail(html)
	if err != nil {
		return err
	}
	detail.Apply(job)
	return nil
}

func (p *pageApplier) Apply(ctx context.Context, job *model.Job, greeting string) error {
	if err := p.clickChatButton(ctx); err != nil {
		return err
	}
	if err := p.waitForChatInput(ctx); err != nil {
		return err
	}
	if err := p.sendGreeting(ctx, greeting); err != nil {
		return err
	}
	if p.resumeImage != "" {
		if err := p.sendImageResume(); err != nil {
			log.Warnf("发送图片简历失败: %v", err)
		}
	}
	return p.checkResult()
}

func (p *pageApplier) clickChatButton(ctx context.Context) error {
	btn := p.page.Locator(locators.CHAT_BUTTON).First()
	if err := btn.WaitFor(playwright.LocatorWaitForOptions{Timeout: playwright.Float(5000)}); err != nil {
		return fmt.Errorf("未找到立即沟通按钮: %w", err)
	}
	text, err := btn.TextContent()
	if err != nil {
		return err
	}
	if strings.Contains(text, "继续沟通") {
		return retry.Permanent(fmt.Errorf("%w: 已投递过", ErrRejected))
	}
	if !strings.Contains(text, "立即沟通") {
		return retry.Permanent(fmt.Errorf("%w: 按钮文本为 %q", ErrRejected, strings.TrimSpace(text)))
	}

	if p.sim != nil {
		x, y, err := human.Center(btn)
		if err == nil {
			return p.sim.Click(ctx, x, y)
		}
		log.Debugf("获取按钮坐标失败，直接点击: %v", err)
	}
	return btn.Click()
}

func (p *pageApplier) waitForChatInput(ctx context.Context) error {
	input := p.page.Locator(locators.CHAT_INPUT).First()
	for i := 0; i < 10; i++ {
		if visible, _ := input.IsVisible(); visible {
			return nil
		}
		// 沟通次数用完时不会出现输入框
		if err := p.failureFromPage(); err != nil {
			return err
		}
		if err := utils.SleepCtx(ctx, time.Second); err != nil {
			return err
		}
	}
	return fmt.Errorf("聊天输入框未在指定时间内出现")
}

func (p *pageApplier) sendGreeting(ctx context.Context, greeting string) error {
	input := p.page.Locator(locators.CHAT_INPUT).First()
	tagName, err := input.Evaluate("el => el.tagName.toLowerCase()", nil)
	if err != nil {
		return fmt.Errorf("获取输入框类型失败: %w", err)
	}

	switch {
	case p.sim != nil:
		if err := p.sim.Type(ctx, locators.CHAT_INPUT, greeting); err != nil {
			return fmt.Errorf("输入招呼语失败: %w", err)
		}
	case tagName == "textarea":
		if err := input.Fill(greeting); err != nil {
			return fmt.Errorf("填写消息失败: %w", err)
		}
	default:
		if _, err := input.Evaluate(`(el, msg) => { el.innerText = msg; el.dispatchEvent(new Event('input')); }`, greeting); err != nil {
			return fmt.Errorf("设置contenteditable内容失败: %w", err)
		}
	}

	send := p.page.Locator(locators.SEND_BUTTON).First()
	if n, err := send.Count(); err != nil || n == 0 {
		return fmt.Errorf("未找到发送按钮")
	}
	if err := send.Click(); err != nil {
		return fmt.Errorf("点击发送按钮失败: %w", err)
	}
	return utils.SleepCtx(ctx, time.Second)
}

func (p *pageApplier) sendImageResume() error {
	input := p.page.Locator(locators.IMAGE_SEND).Locator(locators.IMAGE_INPUT).First()
	if n, err := input.Count(); err != nil || n == 0 {
		return fmt.Errorf("未找到图片上传入口")
	}
	if err := input.SetInputFiles([]string{p.resumeImage}); err != nil {
		return err
	}
	log.Info("图片简历发送成功")
	return nil
}

// checkResult 先找成功提示，再找失败提示，都没有时视为成功
func (p *pageApplier) checkResult() error {
	for _, indicator := range locators.SUCCESS_INDICATORS {
		if err := p.page.Locator(indicator).First().WaitFor(playwright.LocatorWaitForOptions{
			Timeout: playwright.Float(2000),
		}); err == nil {
			p.closeDialog()
			return nil
		}
	}
	if err := p.failureFromPage(); err != nil {
		return err
	}
	p.closeDialog()
	return nil
}

func (p *pageApplier) failureFromPage() error {
	for _, indicator := range locators.FAILURE_INDICATORS {
		loc := p.page.Locator(indicator).First()
		if visible, _ := loc.IsVisible(); !visible {
			continue
		}
		text, _ := loc.InnerText()
		return ClassifyFailure(text)
	}
	return nil
}

func (p *pageApplier) closeDialog() {
	closeBtn := p.page.Locator(locators.DIALOG_CLOSE).First()
	if visible, _ := closeBtn.IsVisible(); visible {
		_ = closeBtn.Click()
	}
}

// ClassifyFailure 页面失败提示转为错误，均不重试
func ClassifyFailure(text string) error {
	text = strings.TrimSpace(text)
	if strings.Contains(text, "今日沟通人数已达上限") {
		return retry.Permanent(ErrDailyLimit)
	}
	if text == "" {
		text = "未知原因"
	}
	return retry.Permanent(fmt.Errorf("%w: %s", ErrRejected, text))
}
