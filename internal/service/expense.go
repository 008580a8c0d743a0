package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/expensetrack/expensetrack/internal/metrics"
	"github.com/expensetrack/expensetrack/internal/model"
	"github.com/expensetrack/expensetrack/internal/repository"
)

// ExpenseStore persists expenses.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, exp *model.Expense) error
	GetExpenseByID(ctx context.Context, id uuid.UUID) (*model.Expense, error)
	ListExpensesByUser(ctx context.Context, userID uuid.UUID) ([]*model.Expense, error)
	UpdateExpense(ctx context.Context, id, userID uuid.UUID, patch repository.ExpensePatch) (*model.Expense, error)
	DeleteExpense(ctx context.Context, id, userID uuid.UUID) error
}

// ExpenseService handles expense business logic. Every operation is scoped
// to the calling user.
type ExpenseService struct {
	repo    ExpenseStore
	metrics metrics.Recorder
	now     func() time.Time
}

// NewExpenseService creates a new ExpenseService.
func NewExpenseService(repo ExpenseStore, recorder metrics.Recorder) *ExpenseService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ExpenseService{
		repo:    repo,
		metrics: recorder,
		now:     time.Now,
	}
}

// storedTime drops what PostgreSQL timestamptz cannot hold, so a created
// record reads back unchanged.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// CreateExpenseInput defines input for creating an expense.
type CreateExpenseInput struct {
	Title       string
	Description *string
	Amount      *decimal.Decimal
	Category    string
}

// UpdateExpenseInput defines a partial update. Nil fields are left untouched.
type UpdateExpenseInput struct {
	Title       *string
	Description *string
	Amount      *decimal.Decimal
	Category    *string
}

// List returns the caller's expenses, newest first.
func (s *ExpenseService) List(ctx context.Context, callerID uuid.UUID) ([]*model.Expense, error) {
	expenses, err := s.repo.ListExpensesByUser(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// Create validates input and stores a new expense owned by the caller.
func (s *ExpenseService) Create(ctx context.Context, callerID uuid.UUID, input CreateExpenseInput) (*model.Expense, error) {
	title, err := validateTitle(input.Title)
	if err != nil {
		return nil, err
	}
	if input.Amount == nil {
		return nil, invalid("amount", "is required")
	}
	amount, err := validateAmount(*input.Amount)
	if err != nil {
		return nil, err
	}
	category, err := validateCategory(input.Category)
	if err != nil {
		return nil, err
	}

	now := storedTime(s.now())
	exp := &model.Expense{
		ID:          uuid.New(),
		UserID:      callerID,
		Title:       title,
		Description: normalizeDescription(input.Description),
		Amount:      amount,
		Category:    category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateExpense(ctx, exp); err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}

	s.metrics.IncExpenseCreated()
	return exp, nil
}

// Update applies a validated partial update. A missing record, a malformed id
// and a record owned by someone else are all reported as ErrForbidden.
func (s *ExpenseService) Update(ctx context.Context, callerID uuid.UUID, rawID string, input UpdateExpenseInput) (*model.Expense, error) {
	patch, err := buildPatch(input)
	if err != nil {
		return nil, err
	}

	id, err := s.authorize(ctx, callerID, rawID)
	if err != nil {
		return nil, err
	}

	exp, err := s.repo.UpdateExpense(ctx, id, callerID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrExpenseNotFound) {
			return nil, ErrForbidden
		}
		return nil, fmt.Errorf("update expense: %w", err)
	}

	s.metrics.IncExpenseUpdated()
	return exp, nil
}

// Delete removes an expense owned by the caller.
func (s *ExpenseService) Delete(ctx context.Context, callerID uuid.UUID, rawID string) error {
	id, err := s.authorize(ctx, callerID, rawID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteExpense(ctx, id, callerID); err != nil {
		if errors.Is(err, repository.ErrExpenseNotFound) {
			return ErrForbidden
		}
		return fmt.Errorf("delete expense: %w", err)
	}

	s.metrics.IncExpenseDeleted()
	return nil
}

// authorize parses the id and checks that the caller owns the record.
func (s *ExpenseService) authorize(ctx context.Context, callerID uuid.UUID, rawID string) (uuid.UUID, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, ErrForbidden
	}

	exp, err := s.repo.GetExpenseByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrExpenseNotFound) {
			return uuid.Nil, ErrForbidden
		}
		return uuid.Nil, fmt.Errorf("load expense: %w", err)
	}

	if !exp.OwnedBy(callerID) {
		return uuid.Nil, ErrForbidden
	}
	return id, nil
}

func buildPatch(input UpdateExpenseInput) (repository.ExpensePatch, error) {
	var patch repository.ExpensePatch

	if input.Title != nil {
		title, err := validateTitle(*input.Title)
		if err != nil {
			return patch, err
		}
		patch.Title = &title
	}
	if input.Amount != nil {
		amount, err := validateAmount(*input.Amount)
		if err != nil {
			return patch, err
		}
		patch.Amount = &amount
	}
	if input.Category != nil {
		category, err := validateCategory(*input.Category)
		if err != nil {
			return patch, err
		}
		patch.Category = &category
	}
	if input.Description != nil {
		desc := ""
		if d := normalizeDescription(input.Description); d != nil {
			desc = *d
		}
		patch.Description = &desc
	}

	return patch, nil
}
