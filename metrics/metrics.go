package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "job_applier"

var (
	// Applications 投递结果计数，result: success / failed / skipped / filtered
	Applications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "applications_total",
		Help:      "Number of job applications by platform and result.",
	}, []string{"platform", "result"})

	// ThrottleDenials 各层级限流拒绝次数
	ThrottleDenials = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "throttle_denials_total",
		Help:      "Number of acquisitions denied by a throttle tier.",
	}, []string{"tier"})

	// ThrottleRate 自适应分钟速率
	ThrottleRate = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "throttle_rate_per_minute",
		Help:      "Current per-minute rate of the adaptive throttle tier.",
	})

	// ThrottleWait 分钟层令牌等待时长
	ThrottleWait = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "throttle_wait_seconds",
		Help:      "Time spent waiting for a per-minute token.",
		Buckets:   []float64{0, 0.5, 1, 2, 5, 10, 30, 60},
	})

	// Retries 重试次数
	Retries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retries_total",
		Help:      "Number of retry attempts by outcome.",
	}, []string{"outcome"})

	// FilteredJobs 过滤原因计数
	FilteredJobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "filtered_jobs_total",
		Help:      "Number of jobs rejected by the job filter.",
	}, []string{"reason"})

	// Notifications 飞书通知
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Number of webhook notifications by result.",
	}, []string{"result"})
)

// Collectors 返回全部采集器
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		Applications,
		ThrottleDenials,
		ThrottleRate,
		ThrottleWait,
		Retries,
		FilteredJobs,
		Notifications,
	}
}

// MustRegister 注册到指定 registerer，nil 时使用默认注册表
func MustRegister(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(Collectors()...)
}
