package observability

import (
	"sync"
	"time"
)

// MockMetricsRegistry counts calls so tests can assert on recorded metrics.
type MockMetricsRegistry struct {
	mu                    sync.Mutex
	Requests              map[string]int
	PlatformFetches       map[string]int
	Throttled             map[string]int
	CompletionRequests    map[string]int
	CompletionTokens      map[string]int
	Reports               map[string]int
	Notifications         map[string]int
	CampaignPersistErrors int
}

// NewMockMetricsRegistry returns an empty MockMetricsRegistry.
func NewMockMetricsRegistry() *MockMetricsRegistry {
	return &MockMetricsRegistry{
		Requests:           make(map[string]int),
		PlatformFetches:    make(map[string]int),
		Throttled:          make(map[string]int),
		CompletionRequests: make(map[string]int),
		CompletionTokens:   make(map[string]int),
		Reports:            make(map[string]int),
		Notifications:      make(map[string]int),
	}
}

func (m *MockMetricsRegistry) IncrementRequests(endpoint, method, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests[endpoint+"|"+method+"|"+status]++
}

func (m *MockMetricsRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}

// PlatformFetches keys are "platform|period|outcome".
func (m *MockMetricsRegistry) IncrementPlatformFetches(platform, period, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PlatformFetches[platform+"|"+period+"|"+outcome]++
}

func (m *MockMetricsRegistry) RecordPlatformFetchLatency(platform string, duration time.Duration) {}

func (m *MockMetricsRegistry) IncrementPlatformThrottled(platform string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Throttled[platform]++
}

// ThrottleCount returns how often calls for platform were delayed.
func (m *MockMetricsRegistry) ThrottleCount(platform string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Throttled[platform]
}

func (m *MockMetricsRegistry) IncrementCompletionRequests(provider, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompletionRequests[provider+"|"+outcome]++
}

func (m *MockMetricsRegistry) RecordCompletionLatency(provider string, duration time.Duration) {}

func (m *MockMetricsRegistry) AddCompletionTokens(provider, kind string, tokens int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompletionTokens[provider+"|"+kind] += tokens
}

func (m *MockMetricsRegistry) IncrementReports(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reports[status]++
}

func (m *MockMetricsRegistry) RecordPipelineDuration(status string, duration time.Duration) {}

func (m *MockMetricsRegistry) IncrementCampaignPersistErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CampaignPersistErrors++
}

func (m *MockMetricsRegistry) IncrementNotifications(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Notifications[outcome]++
}

// ReportCount returns the number of reports recorded with status.
func (m *MockMetricsRegistry) ReportCount(status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Reports[status]
}

// PersistErrors returns the number of campaign persistence errors recorded.
func (m *MockMetricsRegistry) PersistErrors() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CampaignPersistErrors
}

// FetchCount returns the fetch counter for platform, period and outcome.
func (m *MockMetricsRegistry) FetchCount(platform, period, outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PlatformFetches[platform+"|"+period+"|"+outcome]
}
