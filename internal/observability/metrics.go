package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	notifySent    int64
	notifyFailed  int64
	notifyDropped int64
	totalLatency  time.Duration
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Requests       map[string]int64 `json:"requests"`
	Errors         map[string]int64 `json:"errors"`
	NotifySent     int64            `json:"notify_sent"`
	NotifyFailed   int64            `json:"notify_failed"`
	NotifyDropped  int64            `json:"notify_dropped"`
	AvgLatencyMsec float64          `json:"avg_latency_ms"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.totalLatency += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordNotification tracks push outcomes; dropped means the queue was full.
func (m *Metrics) RecordNotification(sent int, failed, dropped bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifySent += int64(sent)
	if failed {
		m.notifyFailed++
	}
	if dropped {
		m.notifyDropped++
	}
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{
		Requests:      make(map[string]int64, len(m.requestCount)),
		Errors:        make(map[string]int64, len(m.errorCount)),
		NotifySent:    m.notifySent,
		NotifyFailed:  m.notifyFailed,
		NotifyDropped: m.notifyDropped,
	}
	var total int64
	for k, v := range m.requestCount {
		s.Requests[k] = v
		total += v
	}
	for k, v := range m.errorCount {
		s.Errors[k] = v
	}
	if total > 0 {
		s.AvgLatencyMsec = float64(m.totalLatency.Milliseconds()) / float64(total)
	}
	return s
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
