package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInMemoryRecorder_Counts(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncExpenseCreated()
	m.IncExpenseCreated()
	m.IncExpenseUpdated()
	m.IncExpenseDeleted()
	m.IncAuthEvent("login", true)
	m.IncAuthEvent("login", false)
	m.IncAuthEvent("login", false)
	m.IncRateLimited("auth")
	m.ObserveHTTPRequest("GET", "/api/expense", 200, 10*time.Millisecond)

	snap := m.Snapshot()
	if snap.ExpensesCreated != 2 || snap.ExpensesUpdated != 1 || snap.ExpensesDeleted != 1 {
		t.Errorf("unexpected expense counters: %+v", snap)
	}
	if snap.AuthSuccess["login"] != 1 || snap.AuthFailure["login"] != 2 {
		t.Errorf("unexpected auth counters: %+v", snap)
	}
	if snap.RateLimited["auth"] != 1 {
		t.Errorf("unexpected rate limit counter: %+v", snap.RateLimited)
	}
	if snap.HTTPRequests != 1 || snap.HTTPDurationTotalNs != int64(10*time.Millisecond) {
		t.Errorf("unexpected http counters: %+v", snap)
	}
}

func TestInMemoryRecorder_SnapshotIsCopy(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncRateLimited("api")

	snap := m.Snapshot()
	snap.RateLimited["api"] = 99

	if m.Snapshot().RateLimited["api"] != 1 {
		t.Error("mutating a snapshot should not affect the recorder")
	}
}

func TestPrometheusRecorder_Counters(t *testing.T) {
	t.Parallel()

	p := NewPrometheus()
	p.IncExpenseCreated()
	p.IncExpenseCreated()
	p.IncAuthEvent("refresh", false)

	if got := testutil.ToFloat64(p.expenseOps.WithLabelValues("create")); got != 2 {
		t.Errorf("create counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(p.authEvents.WithLabelValues("refresh", "false")); got != 1 {
		t.Errorf("refresh failure counter = %v, want 1", got)
	}
}

func TestPrometheusRecorder_Handler(t *testing.T) {
	t.Parallel()

	p := NewPrometheus()
	p.ObserveHTTPRequest(http.MethodPost, "/api/expense", http.StatusCreated, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "expensetrack_http_request_duration_seconds") {
		t.Error("expected request duration histogram in exposition output")
	}
}

func TestNoopRecorder(t *testing.T) {
	t.Parallel()

	r := NewNoop()
	r.IncExpenseCreated()
	r.IncAuthEvent("login", true)
	r.ObserveHTTPRequest("GET", "/", 200, time.Second)
}
