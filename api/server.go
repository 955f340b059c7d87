package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"job_applier_go/automation/jobfilter"
	"job_applier_go/automation/ratelimit"
	"job_applier_go/automation/retry"
	"job_applier_go/model"
	"job_applier_go/service"
	"job_applier_go/worker/boss"
)

// RecordStore 投递记录
type RecordStore interface {
	List(status string, limit, offset int) (*service.RecordPage, error)
	Add(record *model.ApplicationRecordEntity) (*model.ApplicationRecordEntity, error)
	Delete(id string) (bool, error)
	Stats() (*service.RecordStats, error)
}

// ThrottleStats 节流器状态
type ThrottleStats interface {
	Stats(ctx context.Context) (ratelimit.Stats, error)
}

// FilterStats 过滤器状态
type FilterStats interface {
	Stats() (jobfilter.Summary, error)
}

// BlacklistManager 黑名单增删
type BlacklistManager interface {
	Add(typ, value, reason string) (bool, error)
	Remove(typ, value string) error
}

// BlacklistLister 黑名单列表
type BlacklistLister interface {
	FindAll() ([]*model.BlacklistEntity, error)
}

// Applier 投递任务
type Applier interface {
	ExecuteDelivery(ctx context.Context, progressCallback func(boss.JobProgressMessage)) error
	StopDelivery() bool
	GetStatus() map[string]any
	IsRunning() bool
}

// FeishuSender 飞书消息，未启用时为 nil
type FeishuSender interface {
	SendText(ctx context.Context, text string) error
	SendCard(ctx context.Context, title, template, content string) error
}

// Settings 数据库键值配置
type Settings interface {
	GetAllConfigsAsMap() (map[string]string, error)
	BatchUpdateConfigs(configMap map[string]string) (int, error)
}

// AiSettings 打招呼语的自我介绍与提示词
type AiSettings interface {
	GetAiConfig() (*model.AiEntity, error)
	SaveAiConfig(introduce, prompt string) (*model.AiEntity, error)
}

// DeliveryStats boss_data 投递状态统计
type DeliveryStats interface {
	GetDeliveryStats() (*service.DeliveryStats, error)
}

// RetryHistory 重试失败记录
type RetryHistory interface {
	Config() retry.Config
	FailedTasks() []string
	History(taskID string) []retry.Attempt
}

// Deps 各接口依赖，Feishu 与 Gatherer 可为 nil，
// Applier、Settings、AI、Delivery、Retry 为 nil 时不注册对应路由
type Deps struct {
	Records    RecordStore
	Throttle   ThrottleStats
	Filter     FilterStats
	Blacklist  BlacklistManager
	Blacklists BlacklistLister
	Applier    Applier
	Feishu     FeishuSender
	Gatherer   prometheus.Gatherer

	Settings Settings
	AI       AiSettings
	Delivery DeliveryStats
	Retry    RetryHistory
}

const maxProgress = 50

// Server HTTP 接口
type Server struct {
	deps Deps

	mu       sync.Mutex
	progress []boss.JobProgressMessage
}

func NewServer(deps Deps) *Server {
	return &Server{deps: deps}
}

// Router 路由
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	gatherer := s.deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/records", func(r chi.Router) {
			r.Get("/", s.listRecords)
			r.Post("/", s.addRecord)
			r.Get("/stats", s.recordStats)
			r.Delete("/{id}", s.deleteRecord)
		})
		r.Get("/throttle/stats", s.throttleStats)
		r.Get("/filter/stats", s.filterStats)
		r.Route("/blacklist", func(r chi.Router) {
			r.Get("/", s.listBlacklist)
			r.Post("/", s.addBlacklist)
			r.Delete("/", s.removeBlacklist)
		})
		if s.deps.Applier != nil {
			r.Route("/apply", func(r chi.Router) {
				r.Post("/start", s.startApply)
				r.Post("/stop", s.stopApply)
				r.Get("/status", s.applyStatus)
			})
		}
		r.Route("/feishu", func(r chi.Router) {
			r.Post("/send", s.sendFeishu)
			r.Post("/test", s.testFeishu)
		})
		if s.deps.Settings != nil {
			r.Get("/config", s.listConfig)
			r.Put("/config", s.updateConfig)
		}
		if s.deps.AI != nil {
			r.Get("/ai", s.getAiConfig)
			r.Put("/ai", s.saveAiConfig)
		}
		if s.deps.Delivery != nil {
			r.Get("/boss/stats", s.deliveryStats)
		}
		if s.deps.Retry != nil {
			r.Get("/retry/failures", s.retryFailures)
		}
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("http request")
	})
}

func (s *Server) pushProgress(msg boss.JobProgressMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, msg)
	if len(s.progress) > maxProgress {
		s.progress = s.progress[len(s.progress)-maxProgress:]
	}
}

func (s *Server) recentProgress() []boss.JobProgressMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]boss.JobProgressMessage, len(s.progress))
	copy(out, s.progress)
	return out
}

// Serve 监听 addr，ctx 结束时优雅关闭
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP 服务监听 %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if s.deps.Applier != nil {
			s.deps.Applier.StopDelivery()
		}
		return srv.Shutdown(shutdownCtx)
	}
}
