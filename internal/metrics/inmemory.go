package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	HTTPRequests        uint64
	HTTPDurationTotalNs int64
	RateLimited         map[string]uint64
	AuthSuccess         map[string]uint64
	AuthFailure         map[string]uint64
	ExpensesCreated     uint64
	ExpensesUpdated     uint64
	ExpensesDeleted     uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	httpRequests        uint64
	httpDurationTotalNs int64
	expensesCreated     uint64
	expensesUpdated     uint64
	expensesDeleted     uint64

	mu          sync.Mutex
	rateLimited map[string]uint64
	authSuccess map[string]uint64
	authFailure map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		rateLimited: make(map[string]uint64),
		authSuccess: make(map[string]uint64),
		authFailure: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		HTTPRequests:        atomic.LoadUint64(&m.httpRequests),
		HTTPDurationTotalNs: atomic.LoadInt64(&m.httpDurationTotalNs),
		RateLimited:         copyCounts(m.rateLimited),
		AuthSuccess:         copyCounts(m.authSuccess),
		AuthFailure:         copyCounts(m.authFailure),
		ExpensesCreated:     atomic.LoadUint64(&m.expensesCreated),
		ExpensesUpdated:     atomic.LoadUint64(&m.expensesUpdated),
		ExpensesDeleted:     atomic.LoadUint64(&m.expensesDeleted),
	}
}

// ObserveHTTPRequest records a served request.
func (m *InMemoryRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	atomic.AddUint64(&m.httpRequests, 1)
	atomic.AddInt64(&m.httpDurationTotalNs, duration.Nanoseconds())
}

// IncRateLimited increments the rejected-request counter for scope.
func (m *InMemoryRecorder) IncRateLimited(scope string) {
	m.mu.Lock()
	m.rateLimited[scope]++
	m.mu.Unlock()
}

// IncAuthEvent increments the auth outcome counter for event.
func (m *InMemoryRecorder) IncAuthEvent(event string, success bool) {
	m.mu.Lock()
	if success {
		m.authSuccess[event]++
	} else {
		m.authFailure[event]++
	}
	m.mu.Unlock()
}

// IncExpenseCreated increments expense created counter.
func (m *InMemoryRecorder) IncExpenseCreated() {
	atomic.AddUint64(&m.expensesCreated, 1)
}

// IncExpenseUpdated increments expense updated counter.
func (m *InMemoryRecorder) IncExpenseUpdated() {
	atomic.AddUint64(&m.expensesUpdated, 1)
}

// IncExpenseDeleted increments expense deleted counter.
func (m *InMemoryRecorder) IncExpenseDeleted() {
	atomic.AddUint64(&m.expensesDeleted, 1)
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
