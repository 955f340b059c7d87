package application

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"job_applier_go/api"
	"job_applier_go/automation/jobfilter"
	"job_applier_go/automation/ratelimit"
	"job_applier_go/automation/retry"
	"job_applier_go/config"
	"job_applier_go/logging"
	"job_applier_go/metrics"
	"job_applier_go/model"
	"job_applier_go/notify/feishu"
	"job_applier_go/repository"
	"job_applier_go/service"
	"job_applier_go/worker/boss"
	"job_applier_go/worker/playwright_manager"
	"job_applier_go/worker/zhilian"
)

// Application 组装数据库、服务与投递组件
type Application struct {
	Config *config.GlobalConfig

	db        *gorm.DB
	redis     redis.UniversalClient
	logCloser io.Closer
	registry  *prometheus.Registry

	BlacklistRepo repository.BlacklistRepository
	Records       *service.RecordService
	Configs       *service.ConfigService
	Cookies       *service.CookieService
	Boss          *service.BossService
	AI            *service.AiService

	Throttler   *ratelimit.Throttler
	Filter      *jobfilter.Filter
	Retry       *retry.Manager
	Checkpoints *retry.CheckpointManager
	Feishu      *feishu.Notifier

	browser  *playwright_manager.PlaywrightManager
	BossJobs *boss.BossJobService
}

// New 初始化日志、数据库与各服务，不启动浏览器
func New(cfg *config.GlobalConfig) (*Application, error) {
	closer, err := logging.Setup(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("日志初始化失败: %w", err)
	}
	app := &Application{Config: cfg, logCloser: closer}

	if err := app.initDatabase(); err != nil {
		app.Close()
		return nil, fmt.Errorf("数据库初始化失败: %w", err)
	}
	if err := app.initServices(); err != nil {
		app.Close()
		return nil, err
	}
	log.Info("✓ 所有服务初始化完成")
	return app, nil
}

func (app *Application) initDatabase() error {
	log.Info("初始化数据库连接...")
	db, err := gorm.Open(mysql.Open(app.Config.Database.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("数据库连接失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取数据库连接失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(app.Config.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(app.Config.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(app.Config.Database.ConnMaxLifetime)
	app.db = db
	log.Info("✓ MySQL 数据库连接成功")

	if err := db.AutoMigrate(
		&model.ConfigEntity{},
		&model.CookieEntity{},
		&model.AiEntity{},
		&model.BossConfigEntity{},
		&model.BossOptionEntity{},
		&model.BossJobDataEntity{},
		&model.BlacklistEntity{},
		&model.AppliedJobEntity{},
		&model.ApplicationRecordEntity{},
		&model.CheckpointEntity{},
	); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	log.Info("✓ 数据库表迁移完成")
	return nil
}

// windowStore 配置了 Redis 时多进程共享限额，否则使用内存
func (app *Application) windowStore() ratelimit.WindowStore {
	rc := app.Config.Redis
	if len(rc.Addrs) == 0 {
		return ratelimit.NewMemoryStore()
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    rc.Addrs,
		Password: rc.Password,
		DB:       rc.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warnf("Redis 不可用，限流窗口改用内存存储: %v", err)
		_ = client.Close()
		return ratelimit.NewMemoryStore()
	}
	app.redis = client
	log.Infof("✓ 限流窗口使用 Redis %v", rc.Addrs)
	return ratelimit.NewRedisStore(client, rc.KeyPrefix)
}

func (app *Application) initServices() error {
	cfg := app.Config

	configRepo := repository.NewConfigRepository(app.db)
	cookieRepo := repository.NewCookieRepository(app.db)
	aiRepo := repository.NewAiRepository(app.db)
	app.BlacklistRepo = repository.NewBlacklistRepository(app.db)

	app.Boss = service.NewBossService(
		repository.NewBossOptionRepository(app.db),
		repository.NewBossConfigRepository(app.db),
		repository.NewBossJobDataRepository(app.db),
	)
	app.Configs = service.NewConfigService(configRepo, app.Boss, cfg)
	app.Cookies = service.NewCookieService(cookieRepo)
	app.Records = service.NewRecordService(repository.NewRecordRepository(app.db))

	ai, err := service.NewAiService(aiRepo, app.Configs, cfg.AI)
	if err != nil {
		return fmt.Errorf("AI服务初始化失败: %w", err)
	}
	app.AI = ai

	app.Throttler, err = ratelimit.NewThrottler(cfg.Throttle, ratelimit.WithStore(app.windowStore()))
	if err != nil {
		return fmt.Errorf("节流器初始化失败: %w", err)
	}

	dedup, err := jobfilter.NewDeduplicator(repository.NewAppliedJobRepository(app.db))
	if err != nil {
		return fmt.Errorf("去重器初始化失败: %w", err)
	}
	blacklist, err := jobfilter.NewBlacklist(app.BlacklistRepo)
	if err != nil {
		return fmt.Errorf("黑名单初始化失败: %w", err)
	}
	app.Filter = jobfilter.NewFilter(dedup, blacklist)
	if _, err := dedup.ClearOld(app.Configs.GetInt("FILTER_RETENTION_DAYS", cfg.Filter.RetentionDays)); err != nil {
		log.Warn(err)
	}

	app.Retry = retry.NewManager(cfg.Retry)
	app.Checkpoints = retry.NewCheckpointManager(repository.NewCheckpointRepository(app.db))

	app.Feishu, err = feishu.New(cfg.Feishu)
	if err != nil {
		return fmt.Errorf("飞书通知初始化失败: %w", err)
	}

	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.MustRegister(app.registry)
	return nil
}

// InitBrowser 启动浏览器并创建 Boss 投递任务服务
func (app *Application) InitBrowser() error {
	if app.BossJobs != nil {
		return nil
	}
	app.browser = playwright_manager.NewPlaywrightManager(app.Config.Browser, app.Cookies)
	if err := app.browser.Init(); err != nil {
		return fmt.Errorf("Playwright管理器初始化失败: %w", err)
	}
	app.BossJobs = boss.NewBossJobService(app.browser, app.Configs, app.newBoss)
	return nil
}

// OnLoginChange 登录状态变化回调，掉线时同时发送飞书提醒
func (app *Application) OnLoginChange(fn playwright_manager.LoginStatusListener) {
	if app.browser == nil {
		return
	}
	app.browser.AddLoginStatusListener(func(change playwright_manager.LoginStatusChange) {
		fn(change)
		if !change.IsLoggedIn && app.Feishu != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := app.Feishu.SendCard(ctx, "登录已失效", feishu.TemplateOrange, change.Platform+" 需要重新扫码登录"); err != nil {
				log.Warnf("发送登录提醒失败: %v", err)
			}
		}
	})
}

func (app *Application) newBoss() *boss.Boss {
	runner := boss.NewBatchRunner(boss.RunnerDeps{
		Throttle:    app.Throttler,
		Filter:      app.Filter,
		Retry:       app.Retry,
		Checkpoints: app.Checkpoints,
		Greeter:     app.AI,
		Records:     app.Records,
		Delivery:    app.Boss,
		Notifier:    app.Feishu,
	}, boss.BatchOptions{})
	return boss.NewBoss(runner, app.Feishu, app.humanConfig())
}

// humanConfig 数据库中的 HUMAN_* 键覆盖配置文件
func (app *Application) humanConfig() config.HumanConfig {
	h := app.Config.Human
	h.Enabled = app.Configs.GetBool("HUMAN_ENABLED", h.Enabled)
	h.ReadingFor = app.Configs.GetDuration("HUMAN_READING_FOR", h.ReadingFor)
	h.MinDelay = app.Configs.GetDuration("HUMAN_MIN_DELAY", h.MinDelay)
	h.MaxDelay = app.Configs.GetDuration("HUMAN_MAX_DELAY", h.MaxDelay)
	return h
}

// Zhilian 智联投递，独立的 chromedp 浏览器
func (app *Application) Zhilian() *zhilian.ZhiLian {
	return zhilian.New(app.Config.Zhilian, app.Config.Browser, zhilian.Deps{
		Throttle: app.Throttler,
		Filter:   app.Filter,
		Retry:    app.Retry,
		Records:  app.Records,
		Cookies:  app.Cookies,
		Notifier: app.Feishu,
	})
}

// Server HTTP 接口，未启动浏览器时投递接口不可用
func (app *Application) Server() *api.Server {
	deps := api.Deps{
		Records:    app.Records,
		Throttle:   app.Throttler,
		Filter:     app.Filter,
		Blacklist:  app.Filter.Blacklist(),
		Blacklists: app.BlacklistRepo,
		Gatherer:   app.registry,
		Settings:   app.Configs,
		AI:         app.AI,
		Delivery:   app.Boss,
		Retry:      app.Retry,
	}
	if app.BossJobs != nil {
		deps.Applier = app.BossJobs
	}
	if app.Feishu != nil {
		deps.Feishu = app.Feishu
	}
	return api.NewServer(deps)
}

// Close 依次停止投递、关闭浏览器、Redis、数据库与日志文件
func (app *Application) Close() {
	if app.BossJobs != nil {
		app.BossJobs.StopDelivery()
	}
	if app.browser != nil {
		log.Info("关闭Playwright管理器...")
		app.browser.Close()
	}
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.db != nil {
		if sqlDB, err := app.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	log.Info("✓ 应用程序已安全停止")
	if app.logCloser != nil {
		_ = app.logCloser.Close()
	}
}
