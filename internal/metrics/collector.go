package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Parse outcomes used as the "outcome" label.
const (
	OutcomeComplete = "complete"
	OutcomePartial  = "partial"
	OutcomeError    = "error"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器. A nil *Collector records nothing.
type Collector struct {
	// 解析指标
	parsesTotal   *prometheus.CounterVec
	parseBytes    prometheus.Histogram
	parseDuration *prometheus.HistogramVec

	// 转换与校验指标
	coercionFailures *prometheus.CounterVec
	violations       *prometheus.CounterVec

	// 流式指标
	snapshotsTotal prometheus.Counter
	activeStreams  prometheus.Gauge

	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// Option configures a Collector.
type Option func(*options)

type options struct {
	registerer prometheus.Registerer
}

// WithRegisterer registers the collector's metrics with reg instead of the
// default Prometheus registerer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger, opts ...Option) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(&o)
	}
	factory := promauto.With(o.registerer)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 解析指标
	c.parsesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parses_total",
			Help:      "Total number of parsed texts by outcome",
		},
		[]string{"outcome"},
	)

	c.parseBytes = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_bytes",
			Help:      "Size of parsed texts in bytes",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 8),
		},
	)

	c.parseDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_duration_seconds",
			Help:      "Parse duration in seconds",
			Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		},
		[]string{"outcome"},
	)

	// 转换与校验指标
	c.coercionFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coercion_failures_total",
			Help:      "Total number of values that failed to coerce, by target type",
		},
		[]string{"type"},
	)

	c.violations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "constraint_violations_total",
			Help:      "Total number of constraint violations, by constraint kind",
		},
		[]string{"constraint"},
	)

	// 流式指标
	c.snapshotsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Total number of partial snapshots taken",
		},
	)

	c.activeStreams = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "Number of streams currently being received over WebSocket",
		},
	)

	// HTTP 指标
	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🧩 解析指标记录
// =============================================================================

// RecordParse 记录一次解析
func (c *Collector) RecordParse(outcome string, size int, duration time.Duration) {
	if c == nil {
		return
	}
	c.parsesTotal.WithLabelValues(outcome).Inc()
	c.parseBytes.Observe(float64(size))
	c.parseDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordSnapshot 记录一次流式快照
func (c *Collector) RecordSnapshot() {
	if c == nil {
		return
	}
	c.snapshotsTotal.Inc()
}

// StreamOpened 记录一个 WebSocket 流开始，返回的函数在流结束时调用
func (c *Collector) StreamOpened() func() {
	if c == nil {
		return func() {}
	}
	c.activeStreams.Inc()
	return c.activeStreams.Dec
}

// =============================================================================
// 🌐 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录一次 HTTP 请求. path must already be normalized.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// =============================================================================
// ✅ 转换与校验指标记录
// =============================================================================

// RecordCoercionFailure 记录类型转换失败
func (c *Collector) RecordCoercionFailure(typeName string) {
	if c == nil {
		return
	}
	c.coercionFailures.WithLabelValues(typeName).Inc()
}

// RecordViolation 记录约束违规. The label is the constraint kind, e.g.
// "range" for "range(0, 120)", to keep cardinality bounded.
func (c *Collector) RecordViolation(constraint string) {
	if c == nil {
		return
	}
	c.violations.WithLabelValues(constraintKind(constraint)).Inc()
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// constraintKind 提取约束名称
func constraintKind(constraint string) string {
	if i := strings.IndexByte(constraint, '('); i >= 0 {
		constraint = constraint[:i]
	}
	if constraint == "" {
		return "unknown"
	}
	return constraint
}
