package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"job_applier_go/config"
	"job_applier_go/model"
	"job_applier_go/repository"
)

// UnlimitedCode 搜索条件“不限”
const UnlimitedCode = "0"

// SalaryInfo 薪资解析结果，单位 K
type SalaryInfo struct {
	MinK        int     `json:"minK"`
	MaxK        int     `json:"maxK"`
	Months      int     `json:"months"`
	MedianK     float64 `json:"medianK"`
	AnnualTotal int64   `json:"annualTotal"`
}

// DeliveryStats boss_data 各投递状态数量
type DeliveryStats struct {
	Total     int64 `json:"total"`
	Delivered int64 `json:"delivered"`
	Pending   int64 `json:"pending"`
	Filtered  int64 `json:"filtered"`
	Failed    int64 `json:"failed"`
	Skipped   int64 `json:"skipped"`
}

// BossService Boss 配置解析与岗位数据
type BossService struct {
	optionRepo  repository.BossOptionRepository
	configRepo  repository.BossConfigRepository
	jobDataRepo repository.BossJobDataRepository
}

func NewBossService(
	optionRepo repository.BossOptionRepository,
	configRepo repository.BossConfigRepository,
	jobDataRepo repository.BossJobDataRepository,
) *BossService {
	return &BossService{
		optionRepo:  optionRepo,
		configRepo:  configRepo,
		jobDataRepo: jobDataRepo,
	}
}

// GetOptionsByType 某类搜索条件，不存在“不限”时补上
func (s *BossService) GetOptionsByType(typeStr string) ([]*model.BossOptionEntity, error) {
	unlimited, err := s.optionRepo.FindByTypeAndCode(typeStr, UnlimitedCode)
	if err != nil {
		return nil, err
	}
	if unlimited == nil {
		now := time.Now()
		if err := s.optionRepo.Save(&model.BossOptionEntity{
			Type:      typeStr,
			Name:      "不限",
			Code:      UnlimitedCode,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return nil, err
		}
	}
	return s.optionRepo.FindByType(typeStr)
}

// GetCodeByTypeAndName 名称或代码转代码，找不到时为不限
func (s *BossService) GetCodeByTypeAndName(typeStr, name string) string {
	if option, err := s.optionRepo.FindByTypeAndCode(typeStr, name); err == nil && option != nil {
		return option.Code
	}
	option, err := s.optionRepo.FindByTypeAndName(typeStr, name)
	if err != nil || option == nil {
		return UnlimitedCode
	}
	return option.Code
}

// ToCodes 批量转换
func (s *BossService) ToCodes(typeStr string, items []string) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		result = append(result, s.GetCodeByTypeAndName(typeStr, item))
	}
	return result
}

// ParseListString 解析 "[a, b]" 或 "a,b"
func ParseListString(raw string) []string {
	str := strings.TrimSpace(raw)
	str = strings.TrimPrefix(str, "[")
	str = strings.TrimSuffix(str, "]")
	if strings.TrimSpace(str) == "" {
		return []string{}
	}

	items := strings.Split(str, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.Trim(strings.TrimSpace(item), "\"")
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}

// ToBracketListString 与 ParseListString 互逆
func ToBracketListString(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return "[" + strings.Join(list, ",") + "]"
}

// LoadBossConfig 数据库有配置时覆盖 defaults 中的对应字段
func (s *BossService) LoadBossConfig(defaults config.BossConfig) (*config.BossConfig, error) {
	cfg := defaults
	entity, err := s.configRepo.FindFirst()
	if err != nil {
		return nil, err
	}
	if entity == nil {
		cfg.CityCode = s.ToCodes("city", cfg.CityCode)
		if cfg.JobType == "" {
			cfg.JobType = UnlimitedCode
		}
		return &cfg, nil
	}

	if entity.SayHi != "" {
		cfg.SayHi = entity.SayHi
	}
	cfg.Debugger = entity.Debugger == 1
	cfg.EnableAI = entity.EnableAi == 1
	cfg.FilterDeadHR = entity.FilterDeadHr == 1
	cfg.SendImgResume = entity.SendImgResume == 1
	if entity.WaitTime > 0 {
		cfg.WaitTime = entity.WaitTime
	}

	override := func(dst *[]string, raw, typeStr string) {
		list := ParseListString(raw)
		if len(list) == 0 {
			return
		}
		if typeStr == "" {
			*dst = list
			return
		}
		*dst = s.ToCodes(typeStr, list)
	}
	override(&cfg.Keywords, entity.Keywords, "")
	override(&cfg.CityCode, entity.CityCode, "city")
	override(&cfg.Industry, entity.Industry, "industry")
	override(&cfg.Experience, entity.Experience, "experience")
	override(&cfg.Degree, entity.Degree, "degree")
	override(&cfg.Scale, entity.Scale, "scale")
	override(&cfg.Stage, entity.Stage, "stage")
	override(&cfg.Salary, entity.Salary, "salary")
	override(&cfg.DeadStatus, entity.DeadStatus, "")

	if codes := s.ToCodes("jobType", ParseListString(entity.JobType)); len(codes) > 0 {
		cfg.JobType = codes[0]
	}
	if cfg.JobType == "" {
		cfg.JobType = UnlimitedCode
	}

	if entity.ExpectedSalaryMin != 0 || entity.ExpectedSalaryMax != 0 {
		cfg.ExpectedSalary = []int{entity.ExpectedSalaryMin, entity.ExpectedSalaryMax}
	}
	return &cfg, nil
}

// SaveBossJob 记录抓取到的岗位，已存在则跳过
func (s *BossService) SaveBossJob(job *model.Job) error {
	if job.JobID == "" {
		return nil
	}
	existing, err := s.jobDataRepo.FindByEncryptIdAndUserId(job.JobID, job.EncryptUserID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return s.jobDataRepo.Save(model.NewBossJobData(job))
}

// UpdateDeliveryStatus 更新投递状态，reason 为过滤或失败原因
func (s *BossService) UpdateDeliveryStatus(job *model.Job, status, reason string) {
	if err := s.jobDataRepo.UpdateDeliveryStatus(job.JobID, job.EncryptUserID, status, reason); err != nil {
		log.Warnf("更新投递状态失败 %s: %v", job.JobID, err)
	}
}

// GetDeliveryStats 投递状态统计
func (s *BossService) GetDeliveryStats() (*DeliveryStats, error) {
	counts, err := s.jobDataRepo.CountByStatus()
	if err != nil {
		return nil, err
	}
	stats := &DeliveryStats{
		Delivered: counts[model.DeliveryDone],
		Pending:   counts[model.DeliveryPending],
		Filtered:  counts[model.DeliveryFiltered],
		Failed:    counts[model.DeliveryFailed],
		Skipped:   counts[model.DeliverySkipped],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

var (
	monthsRe = regexp.MustCompile(`[·.\-]?(\d+)薪`)
	rangeRe  = regexp.MustCompile(`^(\d+)-(\d+)[Kk]$`)
	singleRe = regexp.MustCompile(`^(\d+)[Kk]$`)
	noiseRe  = regexp.MustCompile(`[^0-9Kk\-]`)
)

// ParseSalary 解析 "15-25K·14薪" 之类的薪资，面议或无法识别时返回 nil
func ParseSalary(salary string) *SalaryInfo {
	str := strings.ReplaceAll(strings.TrimSpace(salary), " ", "")
	if str == "" || strings.Contains(str, "面议") {
		return nil
	}

	months := 12
	if loc := monthsRe.FindStringSubmatchIndex(str); loc != nil {
		if m, err := strconv.Atoi(str[loc[2]:loc[3]]); err == nil {
			months = m
		}
		str = str[:loc[0]]
	}

	minK, maxK, ok := parseSalaryRange(str)
	if !ok {
		minK, maxK, ok = parseSalaryRange(noiseRe.ReplaceAllString(str, ""))
	}
	if !ok {
		return nil
	}

	median := float64(minK+maxK) / 2
	return &SalaryInfo{
		MinK:        minK,
		MaxK:        maxK,
		Months:      months,
		MedianK:     median,
		AnnualTotal: int64(median * 1000 * float64(months)),
	}
}

func parseSalaryRange(s string) (int, int, bool) {
	if m := rangeRe.FindStringSubmatch(s); m != nil {
		lo, err1 := strconv.Atoi(m[1])
		hi, err2 := strconv.Atoi(m[2])
		return lo, hi, err1 == nil && err2 == nil
	}
	if m := singleRe.FindStringSubmatch(s); m != nil {
		v, err := strconv.Atoi(m[1])
		return v, v, err == nil
	}
	return 0, 0, false
}

// SalaryMatches 薪资区间与期望 [min, max] 有交集；无期望或无法解析时视为匹配
func SalaryMatches(salary string, expected []int) bool {
	if len(expected) == 0 {
		return true
	}
	info := ParseSalary(salary)
	if info == nil {
		return true
	}
	lo := expected[0]
	hi := lo
	if len(expected) > 1 {
		hi = expected[1]
	}
	if hi > 0 && info.MinK > hi {
		return false
	}
	return info.MaxK >= lo
}
