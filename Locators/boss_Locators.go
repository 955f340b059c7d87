package locators

/**
 * Boss直聘网页元素定位器
 * 集中管理页面元素的 CSS 选择器，playwright 与 goquery 共用
 */

// 主页
const (
	NAV_FIGURE    = "li.nav-figure"
	NAV_USER_NAME = "li.nav-figure span.label-text"
	LOGIN_ENTRY   = "li.nav-sign a, .btns"
)

/**
 * 搜索结果页
 */
const (
	JOB_LIST       = "ul.rec-job-list"
	JOB_CARD       = "li.job-card-box"
	JOB_LIST_CARDS = JOB_LIST + " " + JOB_CARD
	JOB_NAME       = "a.job-name"
	JOB_SALARY     = "span.job-salary"
	COMPANY_NAME   = "span.boss-name"
	JOB_AREA       = "span.company-location"
	TAG_LIST       = "ul.tag-list li"
	PAGE_FOOTER    = "div#footer, #footer"
)

// 职位详情页
const (
	CHAT_BUTTON     = "a.btn-startchat, a.op-btn-chat"
	JOB_DESCRIPTION = "div.job-sec-text"
	HR_NAME         = "div.job-boss-info h2.name"
	RECRUITER_INFO  = "div.boss-info-attr"
	HR_ACTIVE_TIME  = "span.boss-active-time"
	ERROR_CONTENT   = "div.error-content"
)

// 聊天
const (
	CHAT_INPUT   = "div#chat-input.chat-input[contenteditable='true'], textarea.input-area"
	SEND_BUTTON  = "div.send-message, button[type='send'].btn-send, button.btn-send"
	DIALOG_CLOSE = "i.icon-close"
	IMAGE_SEND   = "div.btn-sendimg[aria-label='发送图片'], div[aria-label='发送图片'].btn-sendimg"
	IMAGE_INPUT  = "input[type='file'][accept*='image']"
)

// 投递结果提示，按顺序检查
var (
	SUCCESS_INDICATORS = []string{"text=已发送", "text=发送成功", "text=投递成功", ".success-toast"}
	FAILURE_INDICATORS = []string{"text=今日沟通人数已达上限", "text=该职位已关闭", "text=已投递过", ".error-toast"}
)
