package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/expensetrack/expensetrack/internal/config"
	"github.com/expensetrack/expensetrack/internal/handler"
	"github.com/expensetrack/expensetrack/internal/metrics"
	"github.com/expensetrack/expensetrack/internal/middleware"
	"github.com/expensetrack/expensetrack/internal/model"
	"github.com/expensetrack/expensetrack/internal/service"
)

func TestRedactURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"postgres://app:s3cret@db:5432/expenses", "postgres://app@db:5432/expenses"},
		{"redis://:s3cret@cache:6379/0", "redis://redacted@cache:6379/0"},
		{"redis://cache:6379", "redis://cache:6379"},
	}
	for _, tt := range tests {
		if got := redactURL(tt.in); got != tt.want {
			t.Errorf("redactURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeError(t *testing.T) {
	dsn := "postgres://app:s3cret@db:5432/expenses"
	err := errors.New("connect " + dsn + " failed: password=s3cret rejected")

	got := sanitizeError(err, dsn)
	if strings.Contains(got, "s3cret") {
		t.Errorf("secret leaked: %s", got)
	}
	if !strings.Contains(got, "password=redacted") {
		t.Errorf("password pattern not redacted: %s", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
	} {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		AppEnv:             "development",
		CORSAllowedOrigins: "http://localhost:5173",
		MaxRequestBodySize: 1 << 20,
	}
	authn := middleware.AuthenticatorFunc(func(context.Context, string) (*model.AuthContext, error) {
		return nil, service.ErrUnauthenticated
	})
	return setupRouter(routerDeps{
		base:     handler.New(),
		health:   handler.NewHealthHandler(nil, nil),
		metrics:  handler.NewMetricsHandler(nil),
		auth:     handler.NewAuthHandler(nil, logger),
		expenses: handler.NewExpenseHandler(nil, logger),
		authn:    authn,
		recorder: metrics.NewNoop(),
	}, cfg, logger)
}

func TestRouter(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/api/expense", http.StatusUnauthorized},
		{http.MethodPost, "/api/expense", http.StatusUnauthorized},
		{http.MethodDelete, "/api/expense/abc", http.StatusUnauthorized},
		{http.MethodGet, "/api/auth/me", http.StatusUnauthorized},
		{http.MethodPut, "/api/user", http.StatusUnauthorized},
		{http.MethodGet, "/nope", http.StatusNotFound},
		{http.MethodGet, "/api/auth/login", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s %s: missing request id", tt.method, tt.path)
		}
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/expense", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow origin = %q", got)
	}
}
