package human

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// PageDriver 基于 playwright 页面的 Driver 实现
type PageDriver struct {
	page playwright.Page
}

func NewPageDriver(page playwright.Page) *PageDriver {
	return &PageDriver{page: page}
}

func (d *PageDriver) MoveMouse(x, y float64) error {
	return d.page.Mouse().Move(x, y)
}

func (d *PageDriver) MouseDown() error {
	return d.page.Mouse().Down()
}

func (d *PageDriver) MouseUp() error {
	return d.page.Mouse().Up()
}

func (d *PageDriver) Focus(selector string) error {
	return d.page.Locator(selector).First().Click()
}

func (d *PageDriver) TypeChar(ch string) error {
	return d.page.Keyboard().Type(ch)
}

func (d *PageDriver) ScrollBy(dy int) error {
	_, err := d.page.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", dy))
	return err
}

// Center 返回元素中心坐标，元素不可见时返回错误
func Center(loc playwright.Locator) (float64, float64, error) {
	box, err := loc.BoundingBox()
	if err != nil {
		return 0, 0, err
	}
	if box == nil {
		return 0, 0, fmt.Errorf("元素不可见")
	}
	return box.X + box.Width/2, box.Y + box.Height/2, nil
}
