package locators

// 智联招聘页面元素，列表页用 CSS，登录页沿用 XPath
const (
	ZL_QR_LOGIN_TAB = `//div[@class='zppp-panel-normal-bar__img']`
	ZL_PERSONAL     = `//div[@class='zp-main__personal']`

	ZL_JOB_LIST      = "div.positionlist"
	ZL_JOB_ITEM      = "div.joblist-box__item"
	ZL_JOB_NAME      = "a.jobinfo__name"
	ZL_JOB_SALARY    = "p.jobinfo__salary"
	ZL_COMPANY_NAME  = "a.companyinfo__name"
	ZL_JOB_INFO      = "div.jobinfo__other-info-item"
	ZL_COMPANY_TAG   = "div.companyinfo__tag div.joblist-box__item-tag"
	ZL_ITEM_CHECKBOX = "div.positionlist div.joblist-box__item:nth-of-type(%d) i.betch__checkbox"
	ZL_BATCH_BUTTON  = "button.betch__button"

	ZL_APPLY_WORKFLOW = "div.a-job-apply-workflow"
	ZL_DELIVER_DIALOG = "div.deliver-dialog"
	ZL_DIALOG_CLOSE   = "img[title='close-icon']"
)
