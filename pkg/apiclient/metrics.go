package apiclient

import "sync"

// Metric event names recorded by the client.
const (
	MetricRequestSent          = "request.sent"
	MetricRequestUnauthorized  = "request.unauthorized"
	MetricRequestRetried       = "request.retried"
	MetricRefreshStarted       = "refresh.started"
	MetricRefreshSucceeded     = "refresh.succeeded"
	MetricRefreshFailed        = "refresh.failed"
	MetricRefreshJoined        = "refresh.joined"
	MetricRefreshSkipped       = "refresh.skipped_stale"
	MetricRefreshReusedFailure = "refresh.reused_failure"
	MetricLogout               = "logout"
)

// MetricsRecorder increments counters for client events.
type MetricsRecorder interface {
	Increment(event string)
}

// CounterMetrics implements MetricsRecorder with in-memory counts.
type CounterMetrics struct {
	mutex  sync.Mutex
	counts map[string]int64
}

// NewCounterMetrics constructs an in-memory metrics recorder.
func NewCounterMetrics() *CounterMetrics {
	return &CounterMetrics{counts: make(map[string]int64)}
}

// Increment increases the counter for the given event.
func (recorder *CounterMetrics) Increment(event string) {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	recorder.counts[event]++
}

// Count returns the current value for the given event.
func (recorder *CounterMetrics) Count(event string) int64 {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	return recorder.counts[event]
}

// Snapshot returns a copy of all recorded counters.
func (recorder *CounterMetrics) Snapshot() map[string]int64 {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	clone := make(map[string]int64, len(recorder.counts))
	for key, value := range recorder.counts {
		clone[key] = value
	}
	return clone
}

type nopMetrics struct{}

func (nopMetrics) Increment(string) {}
