package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/expensetrack/expensetrack/internal/auth"
	"github.com/expensetrack/expensetrack/internal/model"
	"github.com/expensetrack/expensetrack/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// withCaller stands in for the auth middleware.
func withCaller(userID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := auth.ContextWithAuth(r.Context(), &model.AuthContext{UserID: userID, RefreshTokenID: "rt-1"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type fakeAuthService struct {
	registerErr error
	loginErr    error
	refreshErr  error
	updateErr   error

	lastRegister   service.RegisterInput
	lastUpdate     service.UpdateProfileInput
	loggedOut      *model.AuthContext
	logoutToken    string
	refreshedToken string
}

func (f *fakeAuthService) result(username, email string) *service.AuthResult {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &service.AuthResult{
		User:   model.PublicUser{ID: uuid.New(), Username: username, Email: email, CreatedAt: now, UpdatedAt: now},
		Tokens: model.TokenPair{AccessToken: "at_new", RefreshToken: "rt_new"},
	}
}

func (f *fakeAuthService) Register(_ context.Context, in service.RegisterInput) (*service.AuthResult, error) {
	f.lastRegister = in
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return f.result(in.Username, in.Email), nil
}

func (f *fakeAuthService) Login(_ context.Context, in service.LoginInput) (*service.AuthResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.result("someone", in.Email), nil
}

func (f *fakeAuthService) Refresh(_ context.Context, token string) (string, error) {
	f.refreshedToken = token
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	return "at_fresh", nil
}

func (f *fakeAuthService) Logout(_ context.Context, ac *model.AuthContext, token string) {
	f.loggedOut = ac
	f.logoutToken = token
}

func (f *fakeAuthService) Me(_ context.Context, id uuid.UUID) (*model.PublicUser, error) {
	return &model.PublicUser{ID: id, Username: "me", Email: "me@example.com"}, nil
}

func (f *fakeAuthService) UpdateProfile(_ context.Context, id uuid.UUID, in service.UpdateProfileInput) (*model.PublicUser, error) {
	f.lastUpdate = in
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &model.PublicUser{ID: id, Username: in.Username, Email: in.Email}, nil
}

type fakeExpenseService struct {
	expenses   []*model.Expense
	err        error
	lastCreate service.CreateExpenseInput
	lastUpdate service.UpdateExpenseInput
	lastID     string
	lastCaller uuid.UUID
}

func (f *fakeExpenseService) List(_ context.Context, callerID uuid.UUID) ([]*model.Expense, error) {
	f.lastCaller = callerID
	return f.expenses, f.err
}

func (f *fakeExpenseService) Create(_ context.Context, callerID uuid.UUID, in service.CreateExpenseInput) (*model.Expense, error) {
	f.lastCaller = callerID
	f.lastCreate = in
	if f.err != nil {
		return nil, f.err
	}
	amount := decimal.Zero
	if in.Amount != nil {
		amount = *in.Amount
	}
	return &model.Expense{ID: uuid.New(), UserID: callerID, Title: in.Title, Amount: amount, Category: in.Category}, nil
}

func (f *fakeExpenseService) Update(_ context.Context, callerID uuid.UUID, id string, in service.UpdateExpenseInput) (*model.Expense, error) {
	f.lastCaller = callerID
	f.lastID = id
	f.lastUpdate = in
	if f.err != nil {
		return nil, f.err
	}
	return &model.Expense{ID: uuid.MustParse(id), UserID: callerID, Title: *in.Title}, nil
}

func (f *fakeExpenseService) Delete(_ context.Context, callerID uuid.UUID, id string) error {
	f.lastCaller = callerID
	f.lastID = id
	return f.err
}

func newExpenseRouter(svc ExpenseService, caller uuid.UUID) http.Handler {
	h := NewExpenseHandler(svc, testLogger())
	r := chi.NewRouter()
	r.Use(withCaller(caller))
	r.Get("/api/expense", h.List)
	r.Post("/api/expense", h.Create)
	r.Put("/api/expense/{id}", h.Update)
	r.Delete("/api/expense/{id}", h.Delete)
	return r
}
