package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/expensetrack/expensetrack/internal/cache"
	"github.com/expensetrack/expensetrack/internal/model"
	"github.com/expensetrack/expensetrack/internal/repository"
)

type fakeUsers struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.User
	err  error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[uuid.UUID]*model.User)}
}

func (f *fakeUsers) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrEmailExists
		}
	}
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUsers) GetUserByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUsers) UpdateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	for id, u := range f.byID {
		if id != user.ID && strings.EqualFold(u.Email, user.Email) {
			return repository.ErrEmailExists
		}
	}
	user.UpdatedAt = time.Now().UTC()
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

type fakeTokens struct {
	mu     sync.Mutex
	byHash map[string]*model.RefreshToken
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{byHash: make(map[string]*model.RefreshToken)}
}

func (f *fakeTokens) CreateRefreshToken(_ context.Context, token *model.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *token
	f.byHash[token.TokenHash] = &cp
	return nil
}

func (f *fakeTokens) GetRefreshTokenByHash(_ context.Context, hash string) (*model.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byHash[hash]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTokens) RevokeRefreshToken(_ context.Context, id string, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.byHash {
		if t.ID == id && t.UserID == userID && t.RevokedAt == nil {
			now := time.Now()
			t.RevokedAt = &now
			return nil
		}
	}
	return repository.ErrRefreshTokenNotFound
}

func (f *fakeTokens) revoked(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.byHash {
		if t.ID == id {
			return t.RevokedAt != nil
		}
	}
	return false
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]model.AuthContext
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[string]model.AuthContext)}
}

func (f *fakeSessions) SetAccessSession(_ context.Context, tokenHash string, userID uuid.UUID, refreshTokenID string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[tokenHash] = model.AuthContext{UserID: userID, RefreshTokenID: refreshTokenID, TokenKey: tokenHash}
	return nil
}

func (f *fakeSessions) GetAccessSession(_ context.Context, tokenHash string) (*model.AuthContext, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[tokenHash]
	if !ok {
		return nil, cache.ErrSessionNotFound
	}
	return &s, nil
}

func (f *fakeSessions) DeleteAccessSession(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, tokenHash)
	return nil
}

type fakeExpenses struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*model.Expense
	mutations int
}

func newFakeExpenses() *fakeExpenses {
	return &fakeExpenses{byID: make(map[uuid.UUID]*model.Expense)}
}

func (f *fakeExpenses) CreateExpense(_ context.Context, exp *model.Expense) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *exp
	f.byID[exp.ID] = &cp
	f.mutations++
	return nil
}

func (f *fakeExpenses) GetExpenseByID(_ context.Context, id uuid.UUID) (*model.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrExpenseNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeExpenses) ListExpensesByUser(_ context.Context, userID uuid.UUID) ([]*model.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Expense, 0)
	for _, e := range f.byID {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeExpenses) UpdateExpense(_ context.Context, id, userID uuid.UUID, patch repository.ExpensePatch) (*model.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byID[id]
	if !ok || e.UserID != userID {
		return nil, repository.ErrExpenseNotFound
	}
	if patch.Title != nil {
		e.Title = *patch.Title
	}
	if patch.Amount != nil {
		e.Amount = *patch.Amount
	}
	if patch.Category != nil {
		e.Category = *patch.Category
	}
	if patch.Description != nil {
		if *patch.Description == "" {
			e.Description = nil
		} else {
			d := *patch.Description
			e.Description = &d
		}
	}
	f.mutations++
	cp := *e
	return &cp, nil
}

func (f *fakeExpenses) DeleteExpense(_ context.Context, id, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byID[id]
	if !ok || e.UserID != userID {
		return repository.ErrExpenseNotFound
	}
	delete(f.byID, id)
	f.mutations++
	return nil
}

func (f *fakeExpenses) mutationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mutations
}
