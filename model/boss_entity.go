package model

import (
	"time"
)

// 投递状态（boss_data.delivery_status）
const (
	DeliveryPending  = "未投递"
	DeliveryDone     = "已投递"
	DeliveryFiltered = "已过滤"
	DeliveryFailed   = "投递失败"
	DeliverySkipped  = "已跳过"
)

// BossConfigEntity Boss 搜索与投递配置，列表字段存为 [a,b] 形式
type BossConfigEntity struct {
	ID                int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Debugger          int       `gorm:"column:debugger"` // 1 只遍历不投递
	WaitTime          int       `gorm:"column:wait_time"`
	Keywords          string    `gorm:"column:keywords"`
	CityCode          string    `gorm:"column:city_code"`
	Industry          string    `gorm:"column:industry"`
	JobType           string    `gorm:"column:job_type"` // 只取第一项
	Experience        string    `gorm:"column:experience"`
	Degree            string    `gorm:"column:degree"`
	Salary            string    `gorm:"column:salary"`
	Scale             string    `gorm:"column:scale"`
	Stage             string    `gorm:"column:stage"`
	SayHi             string    `gorm:"column:say_hi;type:text"`
	ExpectedSalaryMin int       `gorm:"column:expected_salary_min"` // K
	ExpectedSalaryMax int       `gorm:"column:expected_salary_max"`
	EnableAi          int       `gorm:"column:enable_ai"`
	SendImgResume     int       `gorm:"column:send_img_resume"`
	FilterDeadHr      int       `gorm:"column:filter_dead_hr"`
	DeadStatus        string    `gorm:"column:dead_status"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (BossConfigEntity) TableName() string {
	return "boss_config"
}

// BossOptionEntity 搜索条件名称与代码对照：city, industry, experience, jobType, salary, degree, scale, stage
type BossOptionEntity struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Type      string    `gorm:"column:type;size:16;index:idx_option_type_code"`
	Name      string    `gorm:"column:name"`
	Code      string    `gorm:"column:code;size:32;index:idx_option_type_code"`
	SortOrder int       `gorm:"column:sort_order"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (BossOptionEntity) TableName() string {
	return "boss_option"
}

// BossJobDataEntity 抓取到的 Boss 岗位及其投递状态
type BossJobDataEntity struct {
	ID             int64     `gorm:"primaryKey;autoIncrement;column:id"`
	EncryptId      string    `gorm:"column:encrypt_id;size:128;index:idx_boss_job"`
	EncryptUserId  string    `gorm:"column:encrypt_user_id;size:128;index:idx_boss_job"`
	CompanyName    string    `gorm:"column:company_name"`
	JobName        string    `gorm:"column:job_name"`
	Salary         string    `gorm:"column:salary"`
	Location       string    `gorm:"column:location"`
	Experience     string    `gorm:"column:experience"`
	Degree         string    `gorm:"column:degree"`
	HrName         string    `gorm:"column:hr_name"`
	HrPosition     string    `gorm:"column:hr_position"`
	HrActiveStatus string    `gorm:"column:hr_active_status"`
	DeliveryStatus string    `gorm:"column:delivery_status;size:16;index"`
	FilterReason   string    `gorm:"column:filter_reason"`
	JobDescription string    `gorm:"column:job_description;type:text"`
	JobUrl         string    `gorm:"column:job_url"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (BossJobDataEntity) TableName() string {
	return "boss_data"
}

// NewBossJobData 由解析出的岗位构造
func NewBossJobData(job *Job) *BossJobDataEntity {
	now := time.Now()
	return &BossJobDataEntity{
		EncryptId:      job.JobID,
		EncryptUserId:  job.EncryptUserID,
		CompanyName:    job.Company,
		JobName:        job.Title,
		Salary:         job.Salary,
		Location:       job.Location,
		Experience:     job.Experience,
		Degree:         job.Degree,
		HrName:         job.Recruiter,
		HrPosition:     job.HRPosition,
		HrActiveStatus: job.HRActiveStatus,
		DeliveryStatus: DeliveryPending,
		JobDescription: job.Description,
		JobUrl:         job.URL,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
