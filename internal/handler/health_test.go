package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

var (
	healthy     = pingFunc(func(context.Context) error { return nil })
	refused     = pingFunc(func(context.Context) error { return errors.New("dial tcp 10.0.0.5:5432: connection refused") })

	hangs = pingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return fmt.Errorf("ping: %w", ctx.Err())
	})
)

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	NewHealthHandler(refused, refused).Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 regardless of dependencies", rec.Code)
	}
	if resp := decodeHealth(t, rec); resp.Status != "ok" || resp.Checks != nil {
		t.Errorf("unexpected body %+v", resp)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		db       HealthChecker
		cache    HealthChecker
		code     int
		status   string
		postgres string
		redis    string
	}{
		{"all healthy", healthy, healthy, http.StatusOK, "ok", checkOK, checkOK},
		{"database down", refused, healthy, http.StatusServiceUnavailable, "unhealthy", checkUnavailable, checkOK},
		{"cache down", healthy, refused, http.StatusServiceUnavailable, "unhealthy", checkOK, checkUnavailable},
		{"nothing configured", nil, nil, http.StatusOK, "ok", checkNotConfigured, checkNotConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			NewHealthHandler(tt.db, tt.cache).Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.code {
				t.Errorf("status code = %d, want %d", rec.Code, tt.code)
			}
			body := rec.Body.String()
			if strings.Contains(body, "10.0.0.5") {
				t.Errorf("readiness body leaks error detail: %s", body)
			}
			resp := decodeHealth(t, rec)
			if resp.Status != tt.status || resp.Checks["postgres"] != tt.postgres || resp.Checks["redis"] != tt.redis {
				t.Errorf("got %+v", resp)
			}
		})
	}
}

func TestReadyz_Timeout(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// An already-expired request context must not block the probe.
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	NewHealthHandler(hangs, healthy).Readyz(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status code = %d, want 503", rec.Code)
	}
	if got := decodeHealth(t, rec).Checks["postgres"]; got != checkUnavailable {
		t.Errorf("postgres = %q, want %q for a cancelled probe", got, checkUnavailable)
	}
}

func TestMetricsHandler(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	NewMetricsHandler(nil).Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled metrics status = %d, want 503", rec.Code)
	}

	exporter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("expensetrack_up 1\n"))
	})
	rec = httptest.NewRecorder()
	NewMetricsHandler(exporter).Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "expensetrack_up 1\n" {
		t.Errorf("unexpected exporter response: %d %q", rec.Code, rec.Body.String())
	}
}
