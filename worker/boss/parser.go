package boss

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	locators "job_applier_go/Locators"
	"job_applier_go/model"
)

const bossHost = "https://www.zhipin.com"

// ParseJobCards 从搜索结果页 HTML 中解析岗位卡片，缺少链接的卡片跳过
func ParseJobCards(html string) ([]*model.Job, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var jobs []*model.Job
	doc.Find(locators.JOB_LIST_CARDS).Each(func(_ int, card *goquery.Selection) {
		link := card.Find(locators.JOB_NAME).First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}
		jobURL := absoluteURL(href)

		var tags []string
		card.Find(locators.TAG_LIST).Each(func(_ int, tag *goquery.Selection) {
			if t := cleanText(tag.Text()); t != "" {
				tags = append(tags, t)
			}
		})

		job := &model.Job{
			JobID:    JobIDFromURL(jobURL),
			Title:    cleanText(link.Text()),
			Company:  cleanText(card.Find(locators.COMPANY_NAME).First().Text()),
			Location: cleanText(card.Find(locators.JOB_AREA).First().Text()),
			Salary:   cleanText(card.Find(locators.JOB_SALARY).First().Text()),
			URL:      jobURL,
			Platform: model.PlatformBoss,
		}
		// 标签依次为 经验、学历、其他
		if len(tags) > 0 {
			job.Experience = tags[0]
		}
		if len(tags) > 1 {
			job.Degree = tags[1]
		}
		if len(tags) > 2 {
			job.CompanyTag = strings.Join(tags[2:], ",")
		}
		jobs = append(jobs, job)
	})
	return jobs, nil
}

// JobDetail 详情页补充信息
type JobDetail struct {
	Description    string
	Recruiter      string
	HRPosition     string
	HRActiveStatus string
}

// ParseJobDetail 解析详情页 HTML
func ParseJobDetail(html string) (*JobDetail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	// h2.name 中混有活跃状态等子元素，只取首个文本节点
	name := doc.Find(locators.HR_NAME).First().Contents().FilterFunction(func(_ int, s *goquery.Selection) bool {
		return goquery.NodeName(s) == "#text"
	}).First().Text()

	return &JobDetail{
		Description:    strings.TrimSpace(doc.Find(locators.JOB_DESCRIPTION).First().Text()),
		Recruiter:      cleanText(name),
		HRPosition:     cleanText(doc.Find(locators.RECRUITER_INFO).First().Text()),
		HRActiveStatus: cleanText(doc.Find(locators.HR_ACTIVE_TIME).First().Text()),
	}, nil
}

// Apply 写回岗位，空字段不覆盖
func (d *JobDetail) Apply(job *model.Job) {
	if d.Description != "" {
		job.Description = d.Description
	}
	if d.Recruiter != "" {
		job.Recruiter = d.Recruiter
	}
	if d.HRPosition != "" {
		job.HRPosition = d.HRPosition
	}
	if d.HRActiveStatus != "" {
		job.HRActiveStatus = d.HRActiveStatus
	}
}

// JobIDFromURL /job_detail/{id}.html 中的 id
func JobIDFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if !strings.HasSuffix(base, ".html") {
		return ""
	}
	return strings.TrimSuffix(base, ".html")
}

// IsHRInactive HR 活跃状态命中 deadStatus 任一项，或包含“年”时视为不活跃
func IsHRInactive(activeStatus string, deadStatus []string) bool {
	if activeStatus == "" {
		return false
	}
	if strings.Contains(activeStatus, "年") {
		return true
	}
	for _, s := range deadStatus {
		if s != "" && strings.Contains(activeStatus, s) {
			return true
		}
	}
	return false
}

func absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return bossHost + href
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
