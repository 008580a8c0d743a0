package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/expensetrack/expensetrack/internal/model"
)

type callerKey struct{}

// ContextWithAuth attaches the resolved caller to ctx.
func ContextWithAuth(ctx context.Context, caller *model.AuthContext) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// AuthFromContext returns the caller, or nil on unauthenticated routes.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	caller, _ := ctx.Value(callerKey{}).(*model.AuthContext)
	return caller
}

// MustAuthFromContext is AuthFromContext for handlers mounted behind the
// auth middleware. A missing caller is a routing bug and panics.
func MustAuthFromContext(ctx context.Context) *model.AuthContext {
	if caller := AuthFromContext(ctx); caller != nil {
		return caller
	}
	panic("auth: no caller in context; route is not behind the auth middleware")
}

// UserIDFromContext returns the caller's user id, or uuid.Nil. Expense
// ownership checks treat uuid.Nil as owning nothing.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	if caller := AuthFromContext(ctx); caller != nil {
		return caller.UserID
	}
	return uuid.Nil
}
