package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "riftcoach_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec

	pollCycles  *prometheus.CounterVec
	pollLatency *prometheus.HistogramVec

	identityAttempts *prometheus.CounterVec
	enrichFailures   *prometheus.CounterVec

	tipsEmitted   *prometheus.CounterVec
	tipsThrottled *prometheus.CounterVec
	clockResets   prometheus.Counter
	ruleErrors    *prometheus.CounterVec

	ruleReloads *prometheus.CounterVec
	rulesLoaded prometheus.Gauge

	streamSubscribers *prometheus.GaugeVec
	sinkErrors        *prometheus.CounterVec
)

// Init registers metrics with the default registry.
func Init() {
	registerOnce.Do(func() {
		upstreamRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "upstream_requests_total",
				Help: "Total live client requests by endpoint and result",
			},
			[]string{"endpoint", "result"},
		)
		upstreamLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "upstream_latency_seconds",
				Help:    "Live client request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		)

		pollCycles = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "poll_cycles_total",
				Help: "Total aggregation cycles by result",
			},
			[]string{"result"},
		)
		pollLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "poll_latency_seconds",
				Help:    "Aggregation cycle latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		identityAttempts = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "identity_attempts_total",
				Help: "Identity candidate attempts against identity-keyed endpoints",
			},
			[]string{"endpoint", "result"},
		)
		enrichFailures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "asset_enrich_failures_total",
				Help: "Asset icon lookups that failed by kind",
			},
			[]string{"kind"},
		)

		tipsEmitted = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "tips_emitted_total",
				Help: "Total tips emitted by rule and severity",
			},
			[]string{"rule", "severity"},
		)
		tipsThrottled = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "tips_throttled_total",
				Help: "Tips suppressed by throttling by rule",
			},
			[]string{"rule"},
		)
		clockResets = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "clock_resets_total",
				Help: "Game clock regressions that cleared the fired set",
			},
		)
		ruleErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rule_evaluation_errors_total",
				Help: "Rule evaluation errors by rule",
			},
			[]string{"rule"},
		)

		ruleReloads = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rule_reloads_total",
				Help: "Rule set reloads by result",
			},
			[]string{"result"},
		)
		rulesLoaded = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "rules_loaded",
				Help: "Number of rules in the active rule set",
			},
		)

		streamSubscribers = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "stream_subscribers",
				Help: "Connected stream subscribers by transport",
			},
			[]string{"transport"},
		)
		sinkErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sink_errors_total",
				Help: "Event sink delivery errors by sink",
			},
			[]string{"sink"},
		)

		prometheus.MustRegister(
			upstreamRequests,
			upstreamLatency,
			pollCycles,
			pollLatency,
			identityAttempts,
			enrichFailures,
			tipsEmitted,
			tipsThrottled,
			clockResets,
			ruleErrors,
			ruleReloads,
			rulesLoaded,
			streamSubscribers,
			sinkErrors,
		)
	})
}

// ObserveUpstream records one live client request.
func ObserveUpstream(endpoint, result string, duration time.Duration) {
	if endpoint == "" {
		endpoint = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if upstreamRequests != nil {
		upstreamRequests.WithLabelValues(endpoint, result).Inc()
	}
	if upstreamLatency != nil {
		upstreamLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
	}
}

// ObservePoll records an aggregation cycle.
func ObservePoll(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if pollCycles != nil {
		pollCycles.WithLabelValues(result).Inc()
	}
	if pollLatency != nil {
		pollLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncIdentityAttempt counts one identity candidate attempt.
func IncIdentityAttempt(endpoint, result string) {
	if identityAttempts != nil {
		identityAttempts.WithLabelValues(endpoint, result).Inc()
	}
}

// IncEnrichFailure counts a failed icon lookup.
func IncEnrichFailure(kind string) {
	if enrichFailures != nil {
		enrichFailures.WithLabelValues(kind).Inc()
	}
}

// IncTipEmitted counts an emitted tip.
func IncTipEmitted(rule, severity string) {
	if tipsEmitted != nil {
		tipsEmitted.WithLabelValues(rule, severity).Inc()
	}
}

// IncTipThrottled counts a throttled tip.
func IncTipThrottled(rule string) {
	if tipsThrottled != nil {
		tipsThrottled.WithLabelValues(rule).Inc()
	}
}

// IncClockReset counts a fired-set reset.
func IncClockReset() {
	if clockResets != nil {
		clockResets.Inc()
	}
}

// IncRuleError counts a rule evaluation error.
func IncRuleError(rule string) {
	if ruleErrors != nil {
		ruleErrors.WithLabelValues(rule).Inc()
	}
}

// ObserveRuleReload records a reload and the resulting rule count.
func ObserveRuleReload(result string, rules int) {
	if result == "" {
		result = resultSuccess
	}
	if ruleReloads != nil {
		ruleReloads.WithLabelValues(result).Inc()
	}
	if rulesLoaded != nil && result == resultSuccess {
		rulesLoaded.Set(float64(rules))
	}
}

// AddStreamSubscribers adjusts the subscriber gauge for a transport.
func AddStreamSubscribers(transport string, delta int) {
	if streamSubscribers != nil {
		streamSubscribers.WithLabelValues(transport).Add(float64(delta))
	}
}

// IncSinkError counts a sink delivery error.
func IncSinkError(sink string) {
	if sinkErrors != nil {
		sinkErrors.WithLabelValues(sink).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
