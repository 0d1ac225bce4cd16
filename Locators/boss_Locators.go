package locators

import "strconv"

/**
 * Boss直聘网页元素定位器
 * 集中管理自动投递用到的定位表达式
 */

// 登录状态
const LOGIN_USER_LABEL = "li.nav-figure span.label-text"
const LOGIN_NAV_FIGURE = "li.nav-figure"
const LOGIN_ENTRY = "li.nav-sign a, .btns"

/**
 * 推荐职位列表
 */
// 可滚动的列表容器，找不到说明页面已跳转
const JOB_LIST_CONTAINER = "ul.rec-job-list"
// 列表中的岗位卡片
const JOB_CARD = "ul.rec-job-list > div.card-area"
// 卡片里指向详情页的链接，href 中带职位ID
const JOB_DETAIL_LINK = "a[href*='/job_detail/']"
// 岗位名称
const JOB_NAME = ".job-name"
// 公司名称
const COMPANY_NAME = ".boss-name, .company-name"

// 详情侧栏
const CHAT_BUTTON = "a.op-btn.op-btn-chat"
const DETAIL_CLOSE = ".detail-panel-close-btn"

// 沟通弹窗
const STAY_BUTTON = "a.default-btn.cancel-btn"
const CHAT_DIALOG_CLOSE = ".chat-dialog-close"

// JobCardAt 第 index 张卡片，从 0 开始
func JobCardAt(index int) string {
	return JOB_CARD + ":nth-child(" + strconv.Itoa(index+1) + ")"
}
