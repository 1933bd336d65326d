package api

import (
	"sync"
	"time"
)

// httpMetrics tracks request counts, error counts, and last-seen response
// times per endpoint, independent of the scheduler's own job metrics —
// this is purely "how is the admin API itself behaving".
type httpMetrics struct {
	mu           sync.RWMutex
	requestCount map[string]int64
	errorCount   map[string]int64
	responseTime map[string]time.Duration
}

func newHTTPMetrics() *httpMetrics {
	return &httpMetrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		responseTime: make(map[string]time.Duration),
	}
}

func (m *httpMetrics) incrementRequestCount(endpoint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[endpoint]++
}

func (m *httpMetrics) recordResponseTime(endpoint string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responseTime[endpoint] = d
}

func (m *httpMetrics) incrementErrorCount(endpoint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[endpoint]++
}

func (m *httpMetrics) snapshot() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	responseMs := make(map[string]float64, len(m.responseTime))
	for k, v := range m.responseTime {
		responseMs[k] = float64(v.Nanoseconds()) / 1e6
	}

	return map[string]any{
		"request_count":    m.requestCount,
		"error_count":      m.errorCount,
		"response_time_ms": responseMs,
	}
}
