package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/expensetrack/expensetrack/internal/auth"
	"github.com/expensetrack/expensetrack/internal/model"
	"github.com/expensetrack/expensetrack/internal/service"
)

// Authenticator resolves a bearer access token to the caller identity.
// Unknown or expired tokens are reported as service.ErrUnauthenticated.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*model.AuthContext, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, accessToken string) (*model.AuthContext, error)

// Authenticate calls f.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, accessToken string) (*model.AuthContext, error) {
	return f(ctx, accessToken)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger        *slog.Logger
	Authenticator Authenticator
}

// Auth returns a middleware that requires a valid bearer access token and
// injects the caller identity into the request context.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				logAuthFailure(cfg.Logger, r, "missing_token")
				writeAuthError(w)
				return
			}

			authCtx, err := cfg.Authenticator.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrUnauthenticated) {
					logAuthFailure(cfg.Logger, r, "invalid_token")
					writeAuthError(w)
					return
				}
				cfg.Logger.Error("session lookup failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
				return
			}

			noteCaller(r.Context(), authCtx.UserID.String())
			ctx := auth.ContextWithAuth(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken returns the token from "Authorization: Bearer <token>".
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing access token")
}
