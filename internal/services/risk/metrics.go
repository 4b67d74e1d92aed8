package risk

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector defines the instrumentation hooks of the engine.
type MetricsCollector interface {
	// Verdict metrics
	RecordVerdict(level RiskLevel, score int, duration time.Duration)
	RecordValidationFailure()
	RecordDegradation(signal Signal)

	// Cache metrics
	RecordCacheHit(key string)
	RecordCacheMiss(key string)
	RecordStoreError(operation string)

	// Oracle metrics
	RecordOracleLookup(result string, duration time.Duration)
	RecordBreakerTransition(from, to string, openCircuits int)

	// Recorder metrics
	RecordRecorderDrop(reason string)
	RecordPersistResult(result string)
	RecordQueueDepth(depth int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordVerdict(RiskLevel, int, time.Duration) {}
func (n *NoopMetricsCollector) RecordValidationFailure()                    {}
func (n *NoopMetricsCollector) RecordDegradation(Signal)                    {}
func (n *NoopMetricsCollector) RecordCacheHit(string)                       {}
func (n *NoopMetricsCollector) RecordCacheMiss(string)                      {}
func (n *NoopMetricsCollector) RecordStoreError(string)                     {}
func (n *NoopMetricsCollector) RecordOracleLookup(string, time.Duration)    {}
func (n *NoopMetricsCollector) RecordBreakerTransition(string, string, int) {}
func (n *NoopMetricsCollector) RecordRecorderDrop(string)                   {}
func (n *NoopMetricsCollector) RecordPersistResult(string)                  {}
func (n *NoopMetricsCollector) RecordQueueDepth(int)                        {}

// PrometheusCollector exports engine metrics to Prometheus.
type PrometheusCollector struct {
	verdicts       *prometheus.CounterVec
	scores         prometheus.Histogram
	latency        prometheus.Histogram
	validation     prometheus.Counter
	degradations   *prometheus.CounterVec
	cache          *prometheus.CounterVec
	storeErrors    *prometheus.CounterVec
	oracle         *prometheus.HistogramVec
	breakerMoves   *prometheus.CounterVec
	openCircuits   prometheus.Gauge
	recorderDrops  *prometheus.CounterVec
	persistResults *prometheus.CounterVec
	queueDepth     prometheus.Gauge
}

// NewPrometheusCollector creates the collectors and registers them on reg.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orus",
			Subsystem: "risk",
			Name:      "verdicts_total",
			Help:      "Risk verdicts by risk level.",
		}, []string{"level"}),
		scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "orus",
			Subsystem: "risk",
			Name:      "overall_score",
			Help:      "Distribution of overall risk scores.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "orus",
			Subsystem: "risk",
			Name:      "score_duration_seconds",
			Help:      "Time spent scoring one transaction.",
			Buckets:   prometheus.DefBuckets,
		}),
		validation: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orus",
			Subsystem: "risk",
			Name:      "validation_failures_total",
			Help:      "Descriptors rejected before scoring.",
		}),
		degradations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orus",
			Subsystem: "risk",
			Name:      "degradations_total",
			Help:      "Verdicts computed without a signal source, by signal.",
		}, []string{"signal"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orus",
			Subsystem: "risk",
			Name:      "cache_lookups_total",
			Help:      "Signal cache lookups by key family and result.",
		}, []string{"family", "result"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orus",
			Subsystem: "risk",
			Name:      "store_errors_total",
			Help:      "Signal store failures by operation.",
		}, []string{"operation"}),
		oracle: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "orus",
			Subsystem: "risk",
			Name:      "oracle_lookup_seconds",
			Help:      "Reputation oracle lookups by result.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.2, 0.3, 0.5, 1},
		}, []string{"result"}),
		breakerMoves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orus",
			Subsystem: "risk",
			Name:      "oracle_breaker_transitions_total",
			Help:      "Reputation oracle circuit breaker transitions.",
		}, []string{"from_state", "to_state"}),
		openCircuits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "orus",
			Subsystem: "risk",
			Name:      "oracle_breaker_open",
			Help:      "Oracle circuits currently open or half-open.",
		}),
		recorderDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orus",
			Subsystem: "risk",
			Name:      "recorder_dropped_total",
			Help:      "Verdicts dropped before persistence, by reason.",
		}, []string{"reason"}),
		persistResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orus",
			Subsystem: "risk",
			Name:      "recorder_persist_total",
			Help:      "Fraud check persistence attempts by result.",
		}, []string{"result"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "orus",
			Subsystem: "risk",
			Name:      "recorder_queue_depth",
			Help:      "Verdicts waiting to be persisted.",
		}),
	}

	reg.MustRegister(
		c.verdicts, c.scores, c.latency, c.validation, c.degradations, c.cache,
		c.storeErrors, c.oracle, c.breakerMoves, c.openCircuits,
		c.recorderDrops, c.persistResults, c.queueDepth,
	)
	return c
}

func (c *PrometheusCollector) RecordVerdict(level RiskLevel, score int, duration time.Duration) {
	c.verdicts.WithLabelValues(string(level)).Inc()
	c.scores.Observe(float64(score))
	c.latency.Observe(duration.Seconds())
}

func (c *PrometheusCollector) RecordValidationFailure() {
	c.validation.Inc()
}

func (c *PrometheusCollector) RecordDegradation(signal Signal) {
	c.degradations.WithLabelValues(string(signal)).Inc()
}

func (c *PrometheusCollector) RecordCacheHit(key string) {
	c.cache.WithLabelValues(keyFamily(key), "hit").Inc()
}

func (c *PrometheusCollector) RecordCacheMiss(key string) {
	c.cache.WithLabelValues(keyFamily(key), "miss").Inc()
}

func (c *PrometheusCollector) RecordStoreError(operation string) {
	c.storeErrors.WithLabelValues(operation).Inc()
}

func (c *PrometheusCollector) RecordOracleLookup(result string, duration time.Duration) {
	c.oracle.WithLabelValues(result).Observe(duration.Seconds())
}

func (c *PrometheusCollector) RecordBreakerTransition(from, to string, openCircuits int) {
	c.breakerMoves.WithLabelValues(from, to).Inc()
	c.openCircuits.Set(float64(openCircuits))
}

func (c *PrometheusCollector) RecordRecorderDrop(reason string) {
	c.recorderDrops.WithLabelValues(reason).Inc()
}

func (c *PrometheusCollector) RecordPersistResult(result string) {
	c.persistResults.WithLabelValues(result).Inc()
}

func (c *PrometheusCollector) RecordQueueDepth(depth int) {
	c.queueDepth.Set(float64(depth))
}

// keyFamily keeps label cardinality bounded: "reputation:ip:1.2.3.4" -> "reputation".
func keyFamily(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
