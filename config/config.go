package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"job_applier_go/automation/ratelimit"
	"job_applier_go/automation/retry"
)

// GlobalConfig 全局配置
type GlobalConfig struct {
	Database DatabaseConfig   `mapstructure:"database"`
	Redis    RedisConfig      `mapstructure:"redis"`
	Browser  BrowserConfig    `mapstructure:"browser"`
	Boss     BossConfig       `mapstructure:"boss"`
	Zhilian  ZhilianConfig    `mapstructure:"zhilian"`
	Throttle ratelimit.Config `mapstructure:"throttle"`
	Retry    retry.Config     `mapstructure:"retry"`
	Filter   FilterConfig     `mapstructure:"filter"`
	Human    HumanConfig      `mapstructure:"human"`
	AI       AIConfig         `mapstructure:"ai"`
	Feishu   FeishuConfig     `mapstructure:"feishu"`
	Log      LogConfig        `mapstructure:"log"`
	Server   ServerConfig     `mapstructure:"server"`
}

// DatabaseConfig MySQL 连接
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig 地址为空时限流窗口使用内存存储
type RedisConfig struct {
	Addrs     []string `mapstructure:"addrs"`
	Password  string   `mapstructure:"password"`
	DB        int      `mapstructure:"db"`
	KeyPrefix string   `mapstructure:"key_prefix"`
}

// BrowserConfig 浏览器启动参数
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless"`
	DebugPort         int           `mapstructure:"debug_port"`
	LoginCheckEvery   time.Duration `mapstructure:"login_check_every"`
	RandomizeViewport bool          `mapstructure:"randomize_viewport"`
}

// FilterConfig 去重与黑名单
type FilterConfig struct {
	RetentionDays int `mapstructure:"retention_days"` // 已投递记录保留天数
}

// HumanConfig 人类行为模拟
type HumanConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	ReadingFor time.Duration `mapstructure:"reading_for"`
	MinDelay   time.Duration `mapstructure:"min_delay"` // 两次投递之间的随机间隔
	MaxDelay   time.Duration `mapstructure:"max_delay"`
}

// AIConfig 打招呼语生成
type AIConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"`
	Timeout         time.Duration `mapstructure:"timeout"`
	PerMinute       int           `mapstructure:"per_minute"`
	Burst           int           `mapstructure:"burst"`
	DefaultGreeting string        `mapstructure:"default_greeting"`
}

// FeishuConfig 飞书机器人
type FeishuConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Webhook   string `mapstructure:"webhook"`
	PerMinute int    `mapstructure:"per_minute"`
}

// LogConfig 日志
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // text / json
	File       string `mapstructure:"file"`   // 为空只输出到控制台
	MaxSize    string `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// ServerConfig HTTP 接口
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// DefaultGreeting AI 不可用时的打招呼语
const DefaultGreeting = "您好，我对这个岗位很感兴趣，希望能有机会加入贵公司。"

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.dsn", "root:123@tcp(localhost:3306)/jobs?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("redis.key_prefix", "throttle:")

	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.debug_port", 7866)
	v.SetDefault("browser.login_check_every", 2*time.Second)
	v.SetDefault("browser.randomize_viewport", true)

	v.SetDefault("boss.say_hi", DefaultGreeting)
	v.SetDefault("boss.wait_time", 10)
	v.SetDefault("boss.job_type", "0")
	v.SetDefault("boss.dead_status", []string{"2周内活跃", "本月活跃", "2月内活跃", "半年前活跃"})

	v.SetDefault("zhilian.max_page", 50)

	throttle := ratelimit.DefaultConfig()
	v.SetDefault("throttle.per_minute", throttle.PerMinute)
	v.SetDefault("throttle.per_hour", throttle.PerHour)
	v.SetDefault("throttle.per_day", throttle.PerDay)
	v.SetDefault("throttle.burst", throttle.Burst)
	v.SetDefault("throttle.adaptive", throttle.Adaptive)
	v.SetDefault("throttle.key", throttle.Key)
	v.SetDefault("throttle.tuning.initial_rate", throttle.Tuning.InitialRate)
	v.SetDefault("throttle.tuning.min_rate", throttle.Tuning.MinRate)
	v.SetDefault("throttle.tuning.max_rate", throttle.Tuning.MaxRate)
	v.SetDefault("throttle.tuning.step", throttle.Tuning.Step)
	v.SetDefault("throttle.tuning.burst", throttle.Tuning.Burst)
	v.SetDefault("throttle.tuning.window", throttle.Tuning.Window)
	v.SetDefault("throttle.tuning.evaluate_every", throttle.Tuning.EvaluateEvery)
	v.SetDefault("throttle.tuning.speed_up_above", throttle.Tuning.SpeedUpAbove)
	v.SetDefault("throttle.tuning.slow_down_below", throttle.Tuning.SlowDownBelow)

	rc := retry.DefaultConfig()
	v.SetDefault("retry.max_retries", rc.MaxRetries)
	v.SetDefault("retry.base_delay", rc.BaseDelay)
	v.SetDefault("retry.max_delay", rc.MaxDelay)
	v.SetDefault("retry.multiplier", rc.Multiplier)
	v.SetDefault("retry.jitter", rc.Jitter)

	v.SetDefault("filter.retention_days", 90)

	v.SetDefault("human.enabled", true)
	v.SetDefault("human.reading_for", 3*time.Second)
	v.SetDefault("human.min_delay", 3*time.Second)
	v.SetDefault("human.max_delay", 6*time.Second)

	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.per_minute", 20)
	v.SetDefault("ai.burst", 2)
	v.SetDefault("ai.default_greeting", DefaultGreeting)

	v.SetDefault("feishu.per_minute", 100)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.max_size", "100MB")
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("server.addr", ":8000")
}

// Load 读取配置：默认值 < 配置文件 < JOBS_ 前缀环境变量
// path 为空时依次查找 ./config/config.yaml 与 ./config.yaml，找不到文件时只用默认值
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("JOBS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg GlobalConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	return &cfg, cfg.Validate()
}

// Validate 检查明显错误的配置
func (c *GlobalConfig) Validate() error {
	t := c.Throttle
	if t.PerMinute <= 0 || t.PerHour <= 0 || t.PerDay <= 0 {
		return fmt.Errorf("throttle 限额必须大于 0")
	}
	if t.PerHour > t.PerDay {
		return fmt.Errorf("throttle.per_hour(%d) 不能大于 per_day(%d)", t.PerHour, t.PerDay)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries 不能为负数")
	}
	if c.Human.MaxDelay < c.Human.MinDelay {
		return fmt.Errorf("human.max_delay 不能小于 min_delay")
	}
	if c.Feishu.Enabled && c.Feishu.Webhook == "" {
		return fmt.Errorf("启用飞书通知时必须配置 feishu.webhook")
	}
	return nil
}
