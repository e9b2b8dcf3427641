package monitor

import (
	"errors"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"backtest-core/internal/backtest"
	"backtest-core/internal/events"
)

// Metrics tracks backtest throughput and API latency.
type Metrics struct {
	APILatency *LatencyHistogram

	runsCompleted atomic.Uint64
	runsNoTrades  atomic.Uint64
	runsFailed    atomic.Uint64
	tradesClosed  atomic.Uint64
	apiRequests   atomic.Uint64
	apiErrors     atomic.Uint64
	startedAt     time.Time
}

// LatencyHistogram tracks latency samples over a sliding window. Stats are
// recomputed lazily when samples change.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	maxSize     int
	dirty       bool
	cachedStats LatencyStats
}

// LatencyStats holds computed latency statistics in milliseconds.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

// Snapshot is a point-in-time view of Metrics.
type Snapshot struct {
	RunsCompleted  uint64       `json:"runs_completed"`
	RunsNoTrades   uint64       `json:"runs_no_trades"`
	RunsFailed     uint64       `json:"runs_failed"`
	TradesClosed   uint64       `json:"trades_closed"`
	APIRequests    uint64       `json:"api_requests"`
	APIErrors      uint64       `json:"api_errors"`
	APILatency     LatencyStats `json:"api_latency"`
	GoroutineCount int          `json:"goroutine_count"`
	HeapAlloc      uint64       `json:"heap_alloc_bytes"`
	Uptime         string       `json:"uptime"`
	Timestamp      time.Time    `json:"timestamp"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		APILatency: NewLatencyHistogram(1000),
		startedAt:  time.Now(),
	}
}

func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{
		samples: make([]float64, 0, size),
		maxSize: size,
		dirty:   true,
	}
}

// Record adds a latency sample in milliseconds.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) >= h.maxSize {
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, latencyMs)
	h.dirty = true
}

func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty {
		return h.cachedStats
	}
	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	h.cachedStats = LatencyStats{
		Min:   sorted[0],
		Max:   sorted[n-1],
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false
	return h.cachedStats
}

// ObserveRequest records one API call.
func (m *Metrics) ObserveRequest(latency time.Duration, status int) {
	m.apiRequests.Add(1)
	if status >= 400 {
		m.apiErrors.Add(1)
	}
	m.APILatency.RecordDuration(latency)
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(ev events.RunCompleted) {
	switch {
	case ev.Err == nil:
		m.runsCompleted.Add(1)
	case errors.Is(ev.Err, backtest.ErrInsufficientData):
		m.runsNoTrades.Add(1)
	default:
		m.runsFailed.Add(1)
	}
}

func (m *Metrics) Snapshot() Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return Snapshot{
		RunsCompleted:  m.runsCompleted.Load(),
		RunsNoTrades:   m.runsNoTrades.Load(),
		RunsFailed:     m.runsFailed.Load(),
		TradesClosed:   m.tradesClosed.Load(),
		APIRequests:    m.apiRequests.Load(),
		APIErrors:      m.apiErrors.Load(),
		APILatency:     m.APILatency.Stats(),
		GoroutineCount: runtime.NumGoroutine(),
		HeapAlloc:      mem.HeapAlloc,
		Uptime:         time.Since(m.startedAt).Round(time.Second).String(),
		Timestamp:      time.Now(),
	}
}

// Watch feeds bus events into m until the returned func is called.
func (m *Metrics) Watch(bus *events.Bus) func() {
	completed, unsubCompleted := bus.Subscribe(events.EventRunCompleted, 256)
	closed, unsubClosed := bus.Subscribe(events.EventTradeClosed, 1024)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for ev := range completed {
			m.ObserveRun(ev.(events.RunCompleted))
		}
	}()
	go func() {
		defer wg.Done()
		for range closed {
			m.tradesClosed.Add(1)
		}
	}()

	return func() {
		unsubCompleted()
		unsubClosed()
		wg.Wait()
	}
}
