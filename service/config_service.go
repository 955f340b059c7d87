package service

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"job_applier_go/config"
	"job_applier_go/model"
	"job_applier_go/repository"
)

// AI 接口配置键
const (
	KeyBaseURL = "BASE_URL"
	KeyAPIKey  = "API_KEY"
	KeyModel   = "MODEL"
)

// ConfigRequiredError 配置缺失
type ConfigRequiredError struct {
	ConfigKey string
}

func (e *ConfigRequiredError) Error() string {
	return "缺少必要配置: " + e.ConfigKey
}

// ConfigService 数据库键值配置，未配置的键回落到配置文件
type ConfigService struct {
	configRepo  repository.ConfigRepository
	bossService *BossService
	global      *config.GlobalConfig
}

func NewConfigService(
	configRepo repository.ConfigRepository,
	bossService *BossService,
	global *config.GlobalConfig,
) *ConfigService {
	return &ConfigService{
		configRepo:  configRepo,
		bossService: bossService,
		global:      global,
	}
}

// GetAllConfigsAsMap 全部键值
func (s *ConfigService) GetAllConfigsAsMap() (map[string]string, error) {
	configs, err := s.configRepo.FindAll()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(configs))
	for _, c := range configs {
		out[c.ConfigKey] = c.ConfigValue
	}
	return out, nil
}

// GetConfigValue 不存在时返回空串
func (s *ConfigService) GetConfigValue(configKey string) (string, error) {
	entity, err := s.configRepo.FindByKey(configKey)
	if err != nil || entity == nil {
		return "", err
	}
	return entity.ConfigValue, nil
}

// GetInt 整数配置，缺失或格式错误时返回 def
func (s *ConfigService) GetInt(configKey string, def int) int {
	v, err := s.GetConfigValue(configKey)
	if err != nil || v == "" {
		return def
	}
	n, err := cast.ToIntE(strings.TrimSpace(v))
	if err != nil {
		log.Warnf("配置 %s=%q 不是整数，使用默认值 %d", configKey, v, def)
		return def
	}
	return n
}

// GetBool 布尔配置，支持 1/0、true/false
func (s *ConfigService) GetBool(configKey string, def bool) bool {
	v, err := s.GetConfigValue(configKey)
	if err != nil || v == "" {
		return def
	}
	b, err := cast.ToBoolE(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// GetDuration 时长配置，支持 "30s" 或纯数字（纳秒）
func (s *ConfigService) GetDuration(configKey string, def time.Duration) time.Duration {
	v, err := s.GetConfigValue(configKey)
	if err != nil || v == "" {
		return def
	}
	d, err := cast.ToDurationE(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return d
}

// RequireConfigValue 缺失或为空时返回 ConfigRequiredError
func (s *ConfigService) RequireConfigValue(configKey string) (string, error) {
	value, err := s.GetConfigValue(configKey)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(value) == "" {
		return "", &ConfigRequiredError{ConfigKey: configKey}
	}
	return value, nil
}

// GetAiConfigs AI 调用所需的 BASE_URL、API_KEY、MODEL，数据库优先
func (s *ConfigService) GetAiConfigs() (map[string]string, error) {
	var fallback config.AIConfig
	if s.global != nil {
		fallback = s.global.AI
	}
	defaults := map[string]string{
		KeyBaseURL: fallback.BaseURL,
		KeyAPIKey:  fallback.APIKey,
		KeyModel:   fallback.Model,
	}

	result := make(map[string]string, len(defaults))
	for key, def := range defaults {
		value, err := s.GetConfigValue(key)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(value) == "" {
			value = def
		}
		if strings.TrimSpace(value) == "" {
			return nil, &ConfigRequiredError{ConfigKey: key}
		}
		result[key] = value
	}
	return result, nil
}

// SetConfig 写入单个配置
func (s *ConfigService) SetConfig(configKey, configValue, category string) error {
	if configKey == "" {
		return fmt.Errorf("配置键不能为空")
	}
	err := s.configRepo.Upsert(&model.ConfigEntity{
		ConfigKey:   configKey,
		ConfigValue: configValue,
		Category:    category,
	})
	if err != nil {
		return err
	}
	log.Infof("更新配置成功: %s", configKey)
	return nil
}

// BatchUpdateConfigs 批量写入，返回成功数
func (s *ConfigService) BatchUpdateConfigs(configMap map[string]string) (int, error) {
	n := 0
	for key, value := range configMap {
		if err := s.SetConfig(key, value, ""); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// GetBossConfig 合并配置文件与数据库后的 Boss 配置
func (s *ConfigService) GetBossConfig() (*config.BossConfig, error) {
	var defaults config.BossConfig
	if s.global != nil {
		defaults = s.global.Boss
	}
	return s.bossService.LoadBossConfig(defaults)
}
