package model

import (
	"fmt"
)

// Platform 招聘平台
type Platform string

const (
	PlatformBoss    Platform = "boss"
	PlatformZhilian Platform = "zhilian"
)

// Job 列表页/详情页解析出的岗位，过滤与投递流程的统一输入
type Job struct {
	JobID          string   `json:"jobId"`          //岗位ID（Boss 为 encryptJobId）
	EncryptUserID  string   `json:"encryptUserId"`  //招聘者ID
	Title          string   `json:"title"`          //岗位名称
	Company        string   `json:"company"`        //公司名字
	Location       string   `json:"location"`       //岗位地区
	Salary         string   `json:"salary"`         //岗位薪水
	Description    string   `json:"description"`    //岗位描述
	URL            string   `json:"url"`            //岗位链接
	Recruiter      string   `json:"recruiter"`      //HR名称
	HRPosition     string   `json:"hrPosition"`     //HR职位
	HRActiveStatus string   `json:"hrActiveStatus"` //HR活跃状态
	Experience     string   `json:"experience"`
	Degree         string   `json:"degree"`
	CompanyTag     string   `json:"companyTag"` //公司标签
	Platform       Platform `json:"platform"`
}

func (j *Job) String() string {
	switch j.Platform {
	case PlatformZhilian:
		return fmt.Sprintf("【%s, %s, %s, %s, %s, %s】",
			j.Company, j.Title, j.Location, j.CompanyTag, j.Salary, j.URL)
	default:
		return fmt.Sprintf("【%s, %s, %s, %s, %s】",
			j.Company, j.Title, j.Location, j.Salary, j.Recruiter)
	}
}
