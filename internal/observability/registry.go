package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics.
// Components receive it by injection instead of touching the global collectors.
type MetricsRegistry interface {
	// HTTP Request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Ad platform metrics
	IncrementPlatformFetches(platform, period, outcome string)
	RecordPlatformFetchLatency(platform string, duration time.Duration)
	IncrementPlatformThrottled(platform string)

	// Completion provider metrics
	IncrementCompletionRequests(provider, outcome string)
	RecordCompletionLatency(provider string, duration time.Duration)
	AddCompletionTokens(provider, kind string, tokens int)

	// Report pipeline metrics
	IncrementReports(status string)
	RecordPipelineDuration(status string, duration time.Duration)
	IncrementCampaignPersistErrors()
	IncrementNotifications(outcome string)
}

// PrometheusRegistry implements MetricsRegistry using the global Prometheus collectors
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementPlatformFetches(platform, period, outcome string) {
	PlatformFetches.WithLabelValues(platform, period, outcome).Inc()
}

func (r *PrometheusRegistry) RecordPlatformFetchLatency(platform string, duration time.Duration) {
	PlatformFetchLatency.WithLabelValues(platform).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementPlatformThrottled(platform string) {
	PlatformThrottled.WithLabelValues(platform).Inc()
}

func (r *PrometheusRegistry) IncrementCompletionRequests(provider, outcome string) {
	CompletionRequests.WithLabelValues(provider, outcome).Inc()
}

func (r *PrometheusRegistry) RecordCompletionLatency(provider string, duration time.Duration) {
	CompletionLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) AddCompletionTokens(provider, kind string, tokens int) {
	if tokens <= 0 {
		return
	}
	CompletionTokens.WithLabelValues(provider, kind).Add(float64(tokens))
}

func (r *PrometheusRegistry) IncrementReports(status string) {
	ReportCount.WithLabelValues(status).Inc()
}

func (r *PrometheusRegistry) RecordPipelineDuration(status string, duration time.Duration) {
	PipelineDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementCampaignPersistErrors() {
	CampaignPersistErrors.Inc()
}

func (r *PrometheusRegistry) IncrementNotifications(outcome string) {
	Notifications.WithLabelValues(outcome).Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (r *NoOpRegistry) IncrementPlatformFetches(platform, period, outcome string)            {}
func (r *NoOpRegistry) RecordPlatformFetchLatency(platform string, duration time.Duration)   {}
func (r *NoOpRegistry) IncrementPlatformThrottled(platform string)                           {}
func (r *NoOpRegistry) IncrementCompletionRequests(provider, outcome string)                 {}
func (r *NoOpRegistry) RecordCompletionLatency(provider string, duration time.Duration)      {}
func (r *NoOpRegistry) AddCompletionTokens(provider, kind string, tokens int)                {}
func (r *NoOpRegistry) IncrementReports(status string)                                       {}
func (r *NoOpRegistry) RecordPipelineDuration(status string, duration time.Duration)         {}
func (r *NoOpRegistry) IncrementCampaignPersistErrors()                                      {}
func (r *NoOpRegistry) IncrementNotifications(outcome string)                                {}
