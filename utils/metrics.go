package utils

import (
	"sync"
	"time"
)

// Metrics holds in-process application counters.
type Metrics struct {
	mu sync.RWMutex

	TotalRequests   int64
	FailedRequests  int64
	RequestLatency  time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time

	AssetOperations    int64
	BankOperations     int64
	SnapshotsRecorded  int64
	BackupsCreated     int64
	SyncOperations     int64
	LastDomainActivity time.Time

	DecryptFailures    int64
	CorruptionDetected int64
	LastCorruptionTime time.Time

	ErrorCount    int64
	LastErrorTime time.Time
	ErrorTypes    map[string]int64
}

var (
	metrics     *Metrics
	metricsOnce sync.Once
)

// GetMetrics returns the process-wide metrics instance.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = &Metrics{
			ErrorTypes: make(map[string]int64),
		}
	})
	return metrics
}

// RecordRequest records an HTTP request outcome.
func (m *Metrics) RecordRequest(duration time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests++
	m.RequestLatency += duration
	m.AverageLatency = m.RequestLatency / time.Duration(m.TotalRequests)
	m.LastRequestTime = time.Now()
	if failed {
		m.FailedRequests++
	}
}

// RecordDomainOperation tracks create/update/delete activity per entity kind.
func (m *Metrics) RecordDomainOperation(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastDomainActivity = time.Now()
	switch kind {
	case "asset":
		m.AssetOperations++
	case "bank", "account":
		m.BankOperations++
	case "snapshot":
		m.SnapshotsRecorded++
	case "backup":
		m.BackupsCreated++
	case "sync":
		m.SyncOperations++
	}
}

// RecordDecryptFailure counts a failed field decryption; corrupted marks the
// distinguished corruption signal rather than a transient error.
func (m *Metrics) RecordDecryptFailure(corrupted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DecryptFailures++
	if corrupted {
		m.CorruptionDetected++
		m.LastCorruptionTime = time.Now()
	}
}

// RecordError counts an application error under a short classification label.
func (m *Metrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ErrorCount++
	m.LastErrorTime = time.Now()
	if kind == "" {
		kind = "unknown"
	}
	m.ErrorTypes[kind]++
}

// Snapshot returns a copy of the current counters for the ops endpoint.
func (m *Metrics) Snapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	errorTypes := make(map[string]int64, len(m.ErrorTypes))
	for k, v := range m.ErrorTypes {
		errorTypes[k] = v
	}

	return map[string]interface{}{
		"total_requests":      m.TotalRequests,
		"failed_requests":     m.FailedRequests,
		"average_latency":     m.AverageLatency.String(),
		"asset_operations":    m.AssetOperations,
		"bank_operations":     m.BankOperations,
		"snapshots_recorded":  m.SnapshotsRecorded,
		"backups_created":     m.BackupsCreated,
		"sync_operations":     m.SyncOperations,
		"decrypt_failures":    m.DecryptFailures,
		"corruption_detected": m.CorruptionDetected,
		"error_count":         m.ErrorCount,
		"error_types":         errorTypes,
	}
}

// Reset clears all counters.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests = 0
	m.FailedRequests = 0
	m.RequestLatency = 0
	m.AverageLatency = 0
	m.AssetOperations = 0
	m.BankOperations = 0
	m.SnapshotsRecorded = 0
	m.BackupsCreated = 0
	m.SyncOperations = 0
	m.DecryptFailures = 0
	m.CorruptionDetected = 0
	m.ErrorCount = 0
	m.ErrorTypes = make(map[string]int64)
}
