package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// readyTimeout bounds all dependency checks of one readiness probe.
const readyTimeout = 3 * time.Second

// Check states reported by /readyz.
const (
	checkOK            = "ok"
	checkTimeout       = "timeout"
	checkUnavailable   = "unavailable"
	checkNotConfigured = "not configured"
)

// HealthChecker is satisfied by the repository and the cache.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	checks map[string]HealthChecker
}

// NewHealthHandler probes PostgreSQL and Redis. A nil checker is reported
// as not configured and does not fail readiness.
func NewHealthHandler(db, cache HealthChecker) *HealthHandler {
	return &HealthHandler{
		checks: map[string]HealthChecker{
			"postgres": db,
			"redis":    cache,
		},
	}
}

// HealthResponse is the body of both probes.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is the liveness probe. It never touches dependencies.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz pings every dependency concurrently and answers 503 if any fails.
// Error details stay out of the body since the endpoint is unauthenticated.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		g       errgroup.Group
		results = make(map[string]string, len(h.checks))
	)
	set := func(name, state string) {
		mu.Lock()
		results[name] = state
		mu.Unlock()
	}

	for name, checker := range h.checks {
		if checker == nil {
			set(name, checkNotConfigured)
			continue
		}
		g.Go(func() error {
			set(name, probe(ctx, checker))
			return nil
		})
	}
	_ = g.Wait()

	status, code := "ok", http.StatusOK
	for _, state := range results {
		if state != checkOK && state != checkNotConfigured {
			status, code = "unhealthy", http.StatusServiceUnavailable
			break
		}
	}
	writeJSON(w, code, HealthResponse{Status: status, Checks: results})
}

func probe(ctx context.Context, checker HealthChecker) string {
	err := checker.Ping(ctx)
	switch {
	case err == nil:
		return checkOK
	case errors.Is(err, context.DeadlineExceeded):
		return checkTimeout
	default:
		return checkUnavailable
	}
}
