package playwright_manager

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	locators "job_applier_go/Locators"
	"job_applier_go/automation/human"
	"job_applier_go/config"
	"job_applier_go/model"
	"job_applier_go/service"
)

const bossHome = "https://www.zhipin.com"

// LoginStatusChange 登录状态变化
type LoginStatusChange struct {
	Platform   string `json:"platform"`
	IsLoggedIn bool   `json:"isLoggedIn"`
	Timestamp  int64  `json:"timestamp"`
}

// LoginStatusListener 登录状态监听器
type LoginStatusListener func(change LoginStatusChange)

// CookieStore 登录态持久化
type CookieStore interface {
	LoadCookies(platform string) ([]service.Cookie, error)
	SaveCookies(platform string, cookies []service.Cookie, remark string) error
}

// PlaywrightManager 浏览器与 Boss 页面的生命周期、登录态监控
type PlaywrightManager struct {
	cfg config.BrowserConfig

	playwright *playwright.Playwright
	browser    playwright.Browser
	context    playwright.BrowserContext
	bossPage   playwright.Page

	loginStatus      map[string]bool
	loginStatusMutex sync.RWMutex

	listeners      []LoginStatusListener
	listenersMutex sync.RWMutex

	bossMonitoringPaused atomic.Bool

	cookies CookieStore
}

func NewPlaywrightManager(cfg config.BrowserConfig, cookies CookieStore) *PlaywrightManager {
	return &PlaywrightManager{
		cfg:         cfg,
		loginStatus: make(map[string]bool),
		cookies:     cookies,
	}
}

// Init 启动浏览器，注入反检测脚本并打开 Boss 首页
func (pm *PlaywrightManager) Init() error {
	log.Info("初始化浏览器自动化引擎")

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("启动Playwright失败: %w", err)
	}
	pm.playwright = pw

	args := []string{"--start-maximized", "--disable-blink-features=AutomationControlled"}
	if pm.cfg.DebugPort > 0 {
		args = append(args, fmt.Sprintf("--remote-debugging-port=%d", pm.cfg.DebugPort))
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(pm.cfg.Headless),
		Args:     args,
	})
	if err != nil {
		return fmt.Errorf("启动浏览器失败: %w", err)
	}
	pm.browser = browser

	bctx, err := browser.NewContext()
	if err != nil {
		return fmt.Errorf("创建浏览器上下文失败: %w", err)
	}
	pm.context = bctx

	if err := human.InjectStealth(bctx); err != nil {
		return fmt.Errorf("注入反检测脚本失败: %w", err)
	}

	if err := pm.createBossPage(); err != nil {
		return err
	}
	pm.setupBossPlatform()

	log.Info("✓ 浏览器自动化引擎初始化完成")
	return nil
}

func (pm *PlaywrightManager) createBossPage() error {
	page, err := pm.context.NewPage()
	if err != nil {
		return fmt.Errorf("创建Boss页面失败: %w", err)
	}
	page.SetDefaultTimeout(30000)
	if pm.cfg.RandomizeViewport {
		if err := human.RandomizeViewport(page, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))); err != nil {
			log.Warnf("设置随机视口失败: %v", err)
		}
	}
	pm.bossPage = page
	return nil
}

func (pm *PlaywrightManager) setupBossPlatform() {
	platform := string(model.PlatformBoss)
	if err := pm.loadCookiesForPlatform(platform); err != nil {
		log.Warnf("加载Boss Cookie失败: %v", err)
	}

	if _, err := pm.bossPage.Goto(bossHome, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(60000),
	}); err != nil {
		log.Warnf("Boss页面导航失败: %v", err)
	}

	pm.setLoginStatus(platform, pm.checkBossLoginStatus())
	pm.setupLoginMonitoring(pm.bossPage, platform)
}

func (pm *PlaywrightManager) loadCookiesForPlatform(platform string) error {
	cookies, err := pm.cookies.LoadCookies(platform)
	if err != nil {
		return err
	}
	if len(cookies) == 0 {
		log.Infof("数据库未找到%s Cookie，跳过加载", platform)
		return nil
	}
	if err := pm.context.AddCookies(ToOptionalCookies(cookies)); err != nil {
		return fmt.Errorf("添加%s Cookie到浏览器失败: %w", platform, err)
	}
	log.Infof("已从数据库加载%s Cookie，共%d条", platform, len(cookies))
	return nil
}

func (pm *PlaywrightManager) checkBossLoginStatus() bool {
	if visible, _ := pm.bossPage.Locator(locators.NAV_USER_NAME).First().IsVisible(); visible {
		return true
	}
	if visible, _ := pm.bossPage.Locator(locators.NAV_FIGURE).First().IsVisible(); visible {
		return true
	}
	loginAnchor := pm.bossPage.Locator(locators.LOGIN_ENTRY).First()
	if visible, _ := loginAnchor.IsVisible(); visible {
		if text, _ := loginAnchor.TextContent(); strings.Contains(text, "登录") {
			return false
		}
	}
	return false
}

func (pm *PlaywrightManager) setupLoginMonitoring(page playwright.Page, platform string) {
	page.On("framenavigated", func(frame playwright.Frame) {
		if frame != page.MainFrame() || pm.bossMonitoringPaused.Load() {
			return
		}
		pm.refreshLoginStatus(platform)
	})
}

func (pm *PlaywrightManager) refreshLoginStatus(platform string) bool {
	isLoggedIn := pm.checkBossLoginStatus()
	if isLoggedIn && !pm.getLoginStatus(platform) {
		log.Infof("%s平台登录成功", platform)
		pm.saveCookiesForPlatform(platform, "login success")
	}
	pm.setLoginStatus(platform, isLoggedIn)
	return isLoggedIn
}

// WaitForLogin 等待用户在浏览器中扫码登录
func (pm *PlaywrightManager) WaitForLogin(ctx context.Context) error {
	platform := string(model.PlatformBoss)
	if pm.getLoginStatus(platform) {
		return nil
	}
	every := pm.cfg.LoginCheckEvery
	if every <= 0 {
		every = 3 * time.Second
	}
	log.Info("Boss未登录，请在浏览器中完成登录")

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if pm.refreshLoginStatus(platform) {
				return nil
			}
		}
	}
}

func (pm *PlaywrightManager) saveCookiesForPlatform(platform, remark string) {
	cookies, err := pm.context.Cookies()
	if err != nil {
		log.Warnf("获取%s Cookie失败: %v", platform, err)
		return
	}
	if err := pm.cookies.SaveCookies(platform, FromPlaywrightCookies(cookies), remark); err != nil {
		log.Warnf("保存%s Cookie失败: %v", platform, err)
		return
	}
	log.Infof("保存%s Cookie成功，共%d条", platform, len(cookies))
}

func (pm *PlaywrightManager) setLoginStatus(platform string, isLoggedIn bool) {
	pm.loginStatusMutex.Lock()
	changed := pm.loginStatus[platform] != isLoggedIn
	pm.loginStatus[platform] = isLoggedIn
	pm.loginStatusMutex.Unlock()

	if !changed {
		return
	}
	log.WithFields(log.Fields{"platform": platform, "loggedIn": isLoggedIn}).Info("登录状态更新")
	pm.notifyListeners(LoginStatusChange{
		Platform:   platform,
		IsLoggedIn: isLoggedIn,
		Timestamp:  time.Now().UnixMilli(),
	})
}

func (pm *PlaywrightManager) getLoginStatus(platform string) bool {
	pm.loginStatusMutex.RLock()
	defer pm.loginStatusMutex.RUnlock()
	return pm.loginStatus[platform]
}

// AddLoginStatusListener 注册监听器，回调在独立 goroutine 中执行
func (pm *PlaywrightManager) AddLoginStatusListener(listener LoginStatusListener) {
	pm.listenersMutex.Lock()
	defer pm.listenersMutex.Unlock()
	pm.listeners = append(pm.listeners, listener)
}

func (pm *PlaywrightManager) notifyListeners(change LoginStatusChange) {
	pm.listenersMutex.RLock()
	defer pm.listenersMutex.RUnlock()

	for _, listener := range pm.listeners {
		go func(l LoginStatusListener) {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("通知登录状态监听器时发生panic: %v", r)
				}
			}()
			l(change)
		}(listener)
	}
}

func (pm *PlaywrightManager) GetBossPage() playwright.Page {
	return pm.bossPage
}

func (pm *PlaywrightManager) IsLoggedIn(platform string) bool {
	return pm.getLoginStatus(platform)
}

// PauseBossMonitoring 投递期间页面频繁跳转，暂停登录检查
func (pm *PlaywrightManager) PauseBossMonitoring() {
	pm.bossMonitoringPaused.Store(true)
	log.Debug("Boss登录监控已暂停")
}

func (pm *PlaywrightManager) ResumeBossMonitoring() {
	pm.bossMonitoringPaused.Store(false)
	log.Debug("Boss登录监控已恢复")
}

// Close 按页面、上下文、浏览器、驱动的顺序释放
func (pm *PlaywrightManager) Close() {
	if pm.bossPage != nil {
		_ = pm.bossPage.Close()
	}
	if pm.context != nil {
		_ = pm.context.Close()
	}
	if pm.browser != nil {
		_ = pm.browser.Close()
	}
	if pm.playwright != nil {
		_ = pm.playwright.Stop()
	}
	log.Info("Playwright管理器关闭完成")
}

// ToOptionalCookies 持久化 Cookie 转为 playwright 可写入的形式
func ToOptionalCookies(cookies []service.Cookie) []playwright.OptionalCookie {
	out := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		oc := playwright.OptionalCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   playwright.String(c.Domain),
			Path:     playwright.String(c.Path),
			HttpOnly: playwright.Bool(c.HttpOnly),
			Secure:   playwright.Bool(c.Secure),
		}
		if c.Path == "" {
			oc.Path = playwright.String("/")
		}
		if c.Expires > 0 {
			oc.Expires = playwright.Float(c.Expires)
		}
		if c.SameSite != "" {
			ss := playwright.SameSiteAttribute(c.SameSite)
			oc.SameSite = &ss
		}
		out = append(out, oc)
	}
	return out
}

// FromPlaywrightCookies 浏览器 Cookie 转为持久化形式
func FromPlaywrightCookies(cookies []playwright.Cookie) []service.Cookie {
	out := make([]service.Cookie, 0, len(cookies))
	for _, c := range cookies {
		sc := service.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HttpOnly: c.HttpOnly,
			Secure:   c.Secure,
		}
		if c.SameSite != nil {
			sc.SameSite = string(*c.SameSite)
		}
		out = append(out, sc)
	}
	return out
}
