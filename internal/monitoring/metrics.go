package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 摄取指标
	IngestTotal    *prometheus.CounterVec
	IngestDuration prometheus.Histogram
	IngestRetries  prometheus.Counter
	IngestBlocked  prometheus.Counter
	IngestDedup    prometheus.Counter

	// 分类指标
	ClassifyDuration  prometheus.Histogram
	ClassifyFailures  *prometheus.CounterVec
	ClassifyPriority  *prometheus.CounterVec
	ClassifyFallbacks prometheus.Counter

	// 服务商拉取指标
	ProviderFetchTotal *prometheus.CounterVec

	// 检索与生命周期指标
	SearchFanoutDuration prometheus.Histogram
	EmailsSwept          prometheus.Counter

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aomail_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aomail_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		IngestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aomail_ingest_total",
				Help: "Total number of ingestion units by outcome",
			},
			[]string{"provider", "outcome"},
		),

		IngestDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "aomail_ingest_duration_seconds",
				Help:    "End to end ingestion unit duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
		),

		IngestRetries: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "aomail_ingest_retries_total",
				Help: "Total number of ingestion attempt retries",
			},
		),

		IngestBlocked: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "aomail_ingest_blocked_total",
				Help: "Total number of messages discarded by sender block rules",
			},
		),

		IngestDedup: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "aomail_ingest_dedup_total",
				Help: "Total number of duplicate notifications suppressed",
			},
		),

		ClassifyDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "aomail_classify_duration_seconds",
				Help:    "LLM classification call duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
			},
		),

		ClassifyFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aomail_classify_failures_total",
				Help: "Total number of classification failures by kind",
			},
			[]string{"kind"},
		),

		ClassifyPriority: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aomail_classify_priority_total",
				Help: "Total number of classified emails by resolved priority",
			},
			[]string{"priority"},
		),

		ClassifyFallbacks: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "aomail_classify_topic_fallback_total",
				Help: "Total number of unknown topics mapped to the default category",
			},
		),

		ProviderFetchTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aomail_provider_fetch_total",
				Help: "Total number of provider API fetches by outcome",
			},
			[]string{"provider", "outcome"},
		),

		SearchFanoutDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "aomail_search_fanout_duration_seconds",
				Help:    "Multi mailbox search fan-out duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		EmailsSwept: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "aomail_emails_swept_total",
				Help: "Total number of read emails removed by the retention sweep",
			},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aomail_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "aomail_panics_total",
				Help: "Total number of panics",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordIngest 记录一次摄取单元的结局与耗时
func (m *Metrics) RecordIngest(provider, outcome string, duration time.Duration) {
	m.IngestTotal.WithLabelValues(provider, outcome).Inc()
	m.IngestDuration.Observe(duration.Seconds())
}

// RecordClassify 记录一次分类调用
func (m *Metrics) RecordClassify(priority string, duration time.Duration) {
	m.ClassifyPriority.WithLabelValues(priority).Inc()
	m.ClassifyDuration.Observe(duration.Seconds())
}

// RecordClassifyFailure 记录分类失败，kind 为 "malformed" 或 "transport"
func (m *Metrics) RecordClassifyFailure(kind string) {
	m.ClassifyFailures.WithLabelValues(kind).Inc()
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
