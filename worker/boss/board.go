package boss

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	locators "auto_resume_go/Locators"
)

// CardInfo 从卡片上读到的原始信息
type CardInfo struct {
	Href      string
	DataJobID string
	Name      string
	Company   string
}

// Board 投递循环需要的页面操作
type Board interface {
	// ListVisible 等待列表容器出现
	ListVisible(ctx context.Context, timeout time.Duration) bool
	Cards(ctx context.Context) ([]CardInfo, error)
	CardVisible(ctx context.Context, index int, timeout time.Duration) bool
	ClickCard(ctx context.Context, index int) error
	// ClickIfVisible 元素在超时内可见时点击它，不可见返回 false
	ClickIfVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	// ScrollList 把列表向下滚动 fraction 个可视高度，返回滚动前后的位置
	ScrollList(ctx context.Context, fraction float64) (before, after float64, err error)
	GoBack(ctx context.Context) error
	Reload(ctx context.Context) error
	LoggedIn(ctx context.Context) bool
}

// PlaywrightBoard 基于 playwright 页面的实现
type PlaywrightBoard struct {
	page playwright.Page
}

func NewPlaywrightBoard(page playwright.Page) *PlaywrightBoard {
	return &PlaywrightBoard{page: page}
}

func ms(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

func (b *PlaywrightBoard) waitVisible(loc playwright.Locator, timeout time.Duration) bool {
	err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: ms(timeout),
	})
	return err == nil
}

func (b *PlaywrightBoard) ListVisible(ctx context.Context, timeout time.Duration) bool {
	return b.waitVisible(b.page.Locator(locators.JOB_LIST_CONTAINER).First(), timeout)
}

func (b *PlaywrightBoard) Cards(ctx context.Context) ([]CardInfo, error) {
	cards, err := b.page.Locator(locators.JOB_CARD).All()
	if err != nil {
		return nil, fmt.Errorf("获取卡片列表失败: %w", err)
	}
	out := make([]CardInfo, 0, len(cards))
	for _, card := range cards {
		var info CardInfo
		if link := card.Locator(locators.JOB_DETAIL_LINK).First(); count(link) > 0 {
			info.Href, _ = link.GetAttribute("href", playwright.LocatorGetAttributeOptions{Timeout: ms(time.Second)})
		}
		info.DataJobID, _ = card.GetAttribute("data-job-id", playwright.LocatorGetAttributeOptions{Timeout: ms(time.Second)})
		info.Name = textOf(card.Locator(locators.JOB_NAME).First())
		info.Company = textOf(card.Locator(locators.COMPANY_NAME).First())
		out = append(out, info)
	}
	return out, nil
}

func count(loc playwright.Locator) int {
	n, err := loc.Count()
	if err != nil {
		return 0
	}
	return n
}

func textOf(loc playwright.Locator) string {
	if count(loc) == 0 {
		return ""
	}
	text, err := loc.TextContent(playwright.LocatorTextContentOptions{Timeout: ms(time.Second)})
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func (b *PlaywrightBoard) CardVisible(ctx context.Context, index int, timeout time.Duration) bool {
	return b.waitVisible(b.page.Locator(locators.JobCardAt(index)), timeout)
}

func (b *PlaywrightBoard) ClickCard(ctx context.Context, index int) error {
	card := b.page.Locator(locators.JobCardAt(index))
	if err := card.ScrollIntoViewIfNeeded(); err != nil {
		return fmt.Errorf("滚动到卡片失败: %w", err)
	}
	if err := card.Click(); err != nil {
		return fmt.Errorf("点击卡片失败: %w", err)
	}
	return nil
}

func (b *PlaywrightBoard) ClickIfVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	loc := b.page.Locator(selector).First()
	if !b.waitVisible(loc, timeout) {
		return false, nil
	}
	if err := loc.Click(); err != nil {
		return true, fmt.Errorf("点击 %s 失败: %w", selector, err)
	}
	return true, nil
}

func (b *PlaywrightBoard) ScrollList(ctx context.Context, fraction float64) (float64, float64, error) {
	list := b.page.Locator(locators.JOB_LIST_CONTAINER).First()
	before, err := list.Evaluate(`el => el.scrollTop`, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("读取滚动位置失败: %w", err)
	}
	if _, err := list.Evaluate(`(el, f) => { el.scrollTop += el.clientHeight * f }`, fraction); err != nil {
		return 0, 0, fmt.Errorf("滚动列表失败: %w", err)
	}
	after, err := list.Evaluate(`el => el.scrollTop`, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("读取滚动位置失败: %w", err)
	}
	return toFloat(before), toFloat(after), nil
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func (b *PlaywrightBoard) GoBack(ctx context.Context) error {
	_, err := b.page.GoBack(playwright.PageGoBackOptions{WaitUntil: playwright.WaitUntilStateDomcontentloaded})
	return err
}

func (b *PlaywrightBoard) Reload(ctx context.Context) error {
	_, err := b.page.Reload(playwright.PageReloadOptions{WaitUntil: playwright.WaitUntilStateDomcontentloaded})
	return err
}

// LoggedIn 导航栏出现用户头像视为已登录
func (b *PlaywrightBoard) LoggedIn(ctx context.Context) bool {
	if visible, _ := b.page.Locator(locators.LOGIN_USER_LABEL).First().IsVisible(); visible {
		return true
	}
	if visible, _ := b.page.Locator(locators.LOGIN_NAV_FIGURE).First().IsVisible(); visible {
		return true
	}
	return false
}
