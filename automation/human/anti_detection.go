package human

import (
	"math/rand/v2"

	"github.com/playwright-community/playwright-go"
	log "github.com/sirupsen/logrus"
)

// 注入顺序与浏览器原生属性的覆盖顺序一致
var stealthScripts = []string{
	// webdriver 标记
	`Object.defineProperty(navigator, 'webdriver', { get: () => undefined });`,
	// 浏览器插件
	`Object.defineProperty(navigator, 'plugins', {
		get: () => [
			{ name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer', description: 'Portable Document Format' },
			{ name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai', description: '' }
		]
	});`,
	`Object.defineProperty(navigator, 'languages', { get: () => ['zh-CN', 'zh', 'en-US', 'en'] });`,
	`Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => 8 });`,
	`Object.defineProperty(navigator, 'deviceMemory', { get: () => 8 });`,
	`const originalQuery = window.navigator.permissions.query;
	window.navigator.permissions.query = (parameters) => (
		parameters.name === 'notifications' ?
			Promise.resolve({ state: Notification.permission }) :
			originalQuery(parameters)
	);`,
}

var (
	viewportWidths  = []int{1366, 1440, 1536, 1920}
	viewportHeights = []int{768, 900, 864, 1080}
)

// ScriptTarget 可注入初始化脚本的对象（BrowserContext 或 Page）
type ScriptTarget interface {
	AddInitScript(script playwright.Script) error
}

// ViewportSetter 可设置视口的页面
type ViewportSetter interface {
	SetViewportSize(width, height int) error
}

// StealthScripts 反检测脚本列表
func StealthScripts() []string {
	out := make([]string, len(stealthScripts))
	copy(out, stealthScripts)
	return out
}

// InjectStealth 注入全部反检测脚本
func InjectStealth(target ScriptTarget) error {
	for _, s := range stealthScripts {
		if err := target.AddInitScript(playwright.Script{Content: playwright.String(s)}); err != nil {
			return err
		}
	}
	log.Info("反检测脚本已注入")
	return nil
}

// RandomViewport 从常见分辨率中随机挑选
func RandomViewport(rng *rand.Rand) (int, int) {
	return viewportWidths[rng.IntN(len(viewportWidths))], viewportHeights[rng.IntN(len(viewportHeights))]
}

// RandomizeViewport 随机设置视口大小
func RandomizeViewport(page ViewportSetter, rng *rand.Rand) error {
	w, h := RandomViewport(rng)
	if err := page.SetViewportSize(w, h); err != nil {
		return err
	}
	log.Debugf("视口大小: %dx%d", w, h)
	return nil
}
