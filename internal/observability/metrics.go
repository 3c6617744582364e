package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adreports_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adreports_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// platform insight fetches labelled by platform, period (current/previous) and outcome
	PlatformFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adreports_platform_fetches_total",
			Help: "Total ad platform insight fetches",
		},
		[]string{"platform", "period", "outcome"},
	)

	PlatformFetchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adreports_platform_fetch_duration_seconds",
			Help:    "Duration of ad platform insight fetches",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"platform"},
	)

	// completion requests labelled by provider and outcome
	CompletionRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adreports_completion_requests_total",
			Help: "Total completion provider requests",
		},
		[]string{"provider", "outcome"},
	)

	CompletionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adreports_completion_duration_seconds",
			Help:    "Duration of completion provider requests",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		},
		[]string{"provider"},
	)

	// tokens consumed, kind is prompt or completion
	CompletionTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adreports_completion_tokens_total",
			Help: "Total tokens consumed by completion requests",
		},
		[]string{"provider", "kind"},
	)

	// reports reaching a terminal status
	ReportCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adreports_reports_total",
			Help: "Total reports by terminal status",
		},
		[]string{"status"},
	)

	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adreports_pipeline_duration_seconds",
			Help:    "Duration of report generation pipelines",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 60, 120, 300},
		},
		[]string{"status"},
	)

	// number of errors persisting per-campaign rows
	CampaignPersistErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adreports_campaign_persist_errors_total",
			Help: "Total campaign row persistence errors",
		},
	)

	// platform calls delayed by the outbound rate limiter
	PlatformThrottled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adreports_platform_throttled_total",
			Help: "Total ad platform calls delayed by rate limiting",
		},
		[]string{"platform"},
	)

	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adreports_notifications_total",
			Help: "Total report notifications dispatched",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		PlatformFetches,
		PlatformFetchLatency,
		PlatformThrottled,
		CompletionRequests,
		CompletionLatency,
		CompletionTokens,
		ReportCount,
		PipelineDuration,
		CampaignPersistErrors,
		Notifications,
	)
}
