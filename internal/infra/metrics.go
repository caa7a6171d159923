package infra

import (
	"sync/atomic"
	"time"
)

// Metrics counts cache activity. Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	ordersAdded    atomic.Uint64
	cancelRequests atomic.Uint64
	matchRuns      atomic.Uint64
	matchedQty     atomic.Uint64
	ordersPurged   atomic.Uint64
	journalErrors  atomic.Uint64

	// Match latency
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	residentOrders    atomic.Int64
	activeConnections atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

func (m *Metrics) RecordAdd() {
	m.ordersAdded.Add(1)
}

func (m *Metrics) RecordCancel() {
	m.cancelRequests.Add(1)
}

// RecordMatch records one matching run with its total and latency.
func (m *Metrics) RecordMatch(qty uint64, latencyNs int64) {
	m.matchRuns.Add(1)
	m.matchedQty.Add(qty)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

func (m *Metrics) RecordPurge(n int) {
	m.ordersPurged.Add(uint64(n))
}

// RecordJournalError records a failed match-report write.
func (m *Metrics) RecordJournalError() {
	m.journalErrors.Add(1)
}

// SetResident sets the resident order gauge.
func (m *Metrics) SetResident(n int) {
	m.residentOrders.Store(int64(n))
}

// IncrementConnections increments active feed connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active feed connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	OrdersAdded       uint64    `json:"orders_added"`
	CancelRequests    uint64    `json:"cancel_requests"`
	MatchRuns         uint64    `json:"match_runs"`
	MatchedQty        uint64    `json:"matched_qty"`
	OrdersPurged      uint64    `json:"orders_purged"`
	JournalErrors     uint64    `json:"journal_errors"`
	AvgMatchLatencyNs int64     `json:"avg_match_latency_ns"`
	ResidentOrders    int64     `json:"resident_orders"`
	ActiveConnections int32     `json:"active_connections"`
	Timestamp         time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		OrdersAdded:       m.ordersAdded.Load(),
		CancelRequests:    m.cancelRequests.Load(),
		MatchRuns:         m.matchRuns.Load(),
		MatchedQty:        m.matchedQty.Load(),
		OrdersPurged:      m.ordersPurged.Load(),
		JournalErrors:     m.journalErrors.Load(),
		AvgMatchLatencyNs: avgLatency,
		ResidentOrders:    m.residentOrders.Load(),
		ActiveConnections: m.activeConnections.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.ordersAdded.Store(0)
	m.cancelRequests.Store(0)
	m.matchRuns.Store(0)
	m.matchedQty.Store(0)
	m.ordersPurged.Store(0)
	m.journalErrors.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.residentOrders.Store(0)
	m.activeConnections.Store(0)
}
