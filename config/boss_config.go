package config

// BossConfig Boss直聘搜索与投递配置
// YAML 中的值作为默认值，数据库 boss_config 表有记录时以数据库为准
type BossConfig struct {
	SayHi          string   `mapstructure:"say_hi" yaml:"say_hi" json:"sayHi"`
	Debugger       bool     `mapstructure:"debugger" yaml:"debugger" json:"debugger"`
	Keywords       []string `mapstructure:"keywords" yaml:"keywords" json:"keywords"`
	CityCode       []string `mapstructure:"city_code" yaml:"city_code" json:"cityCode"`
	Industry       []string `mapstructure:"industry" yaml:"industry" json:"industry"`
	Experience     []string `mapstructure:"experience" yaml:"experience" json:"experience"`
	JobType        string   `mapstructure:"job_type" yaml:"job_type" json:"jobType"`
	Salary         []string `mapstructure:"salary" yaml:"salary" json:"salary"`
	Degree         []string `mapstructure:"degree" yaml:"degree" json:"degree"`
	Scale          []string `mapstructure:"scale" yaml:"scale" json:"scale"`
	Stage          []string `mapstructure:"stage" yaml:"stage" json:"stage"`
	EnableAI       bool     `mapstructure:"enable_ai" yaml:"enable_ai" json:"enableAI"`
	FilterDeadHR   bool     `mapstructure:"filter_dead_hr" yaml:"filter_dead_hr" json:"filterDeadHR"`
	SendImgResume  bool     `mapstructure:"send_img_resume" yaml:"send_img_resume" json:"sendImgResume"`
	ResumeImage    string   `mapstructure:"resume_image" yaml:"resume_image" json:"resumeImage"`
	ExpectedSalary []int    `mapstructure:"expected_salary" yaml:"expected_salary" json:"expectedSalary"` // [min, max]，单位 K
	WaitTime       int      `mapstructure:"wait_time" yaml:"wait_time" json:"waitTime"`                   // 秒
	DeadStatus     []string `mapstructure:"dead_status" yaml:"dead_status" json:"deadStatus"`
}

// ZhilianConfig 智联招聘配置
type ZhilianConfig struct {
	Enabled  bool     `mapstructure:"enabled" yaml:"enabled"`
	CityCode string   `mapstructure:"city_code" yaml:"city_code"` // 城市名或代码
	Salary   string   `mapstructure:"salary" yaml:"salary"`
	Keywords []string `mapstructure:"keywords" yaml:"keywords"`
	MaxPage  int      `mapstructure:"max_page" yaml:"max_page"`
}

// CityCode 城市代码
type CityCode struct {
	Name string
	Code string
}

// ZhilianCityCodes 智联城市代码
var ZhilianCityCodes = map[string]CityCode{
	"不限": {"不限", "0"},
	"北京": {"北京", "530"},
	"上海": {"上海", "538"},
	"广州": {"广州", "763"},
	"深圳": {"深圳", "765"},
	"成都": {"成都", "801"},
}

// ResolveCity 城市名转代码，已是代码或未知时原样返回，空为不限
func (c ZhilianConfig) ResolveCity() string {
	if c.CityCode == "" {
		return "0"
	}
	if code, ok := ZhilianCityCodes[c.CityCode]; ok {
		return code.Code
	}
	return c.CityCode
}

// ResolveSalary 薪资“不限”转为 0
func (c ZhilianConfig) ResolveSalary() string {
	if c.Salary == "" || c.Salary == "不限" {
		return "0"
	}
	return c.Salary
}
