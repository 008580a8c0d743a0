package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/expensetrack/expensetrack/internal/model"
)

// ErrExpenseNotFound is returned when no expense matches the lookup.
var ErrExpenseNotFound = errors.New("expense not found")

var expenseColumns = []string{
	"id", "user_id", "title", "description", "amount", "category", "created_at", "updated_at",
}

// ExpensePatch holds the fields of a partial expense update. Nil fields are
// left untouched; an empty Description clears it.
type ExpensePatch struct {
	Title       *string
	Description *string
	Amount      *decimal.Decimal
	Category    *string
}

// IsEmpty reports whether the patch changes nothing.
func (p ExpensePatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Amount == nil && p.Category == nil
}

// CreateExpense inserts a new expense.
func (r *Repository) CreateExpense(ctx context.Context, exp *model.Expense) error {
	query, args, err := psql.Insert("expenses").
		Columns(expenseColumns...).
		Values(exp.ID, exp.UserID, exp.Title, exp.Description, exp.Amount, exp.Category, exp.CreatedAt, exp.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert expense: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// GetExpenseByID retrieves an expense by its ID regardless of owner.
func (r *Repository) GetExpenseByID(ctx context.Context, id uuid.UUID) (*model.Expense, error) {
	query, args, err := psql.Select(expenseColumns...).
		From("expenses").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get expense: %w", err)
	}

	exp, err := scanExpense(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("get expense by ID: %w", err)
	}
	return exp, nil
}

// ListExpensesByUser returns all expenses owned by userID, newest first.
func (r *Repository) ListExpensesByUser(ctx context.Context, userID uuid.UUID) ([]*model.Expense, error) {
	query, args, err := psql.Select(expenseColumns...).
		From("expenses").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list expenses: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]*model.Expense, 0)
	for rows.Next() {
		exp, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, exp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}

	return expenses, nil
}

// UpdateExpense applies patch to the expense identified by id and owned by
// userID, returning the updated row. A row owned by someone else is reported
// as ErrExpenseNotFound and left unchanged.
func (r *Repository) UpdateExpense(ctx context.Context, id, userID uuid.UUID, patch ExpensePatch) (*model.Expense, error) {
	if patch.IsEmpty() {
		exp, err := r.GetExpenseByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !exp.OwnedBy(userID) {
			return nil, ErrExpenseNotFound
		}
		return exp, nil
	}

	set := sq.Eq{"updated_at": sq.Expr("NOW()")}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		if *patch.Description == "" {
			set["description"] = nil
		} else {
			set["description"] = *patch.Description
		}
	}
	if patch.Amount != nil {
		set["amount"] = *patch.Amount
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}

	query, args, err := psql.Update("expenses").
		SetMap(set).
		Where(sq.Eq{"id": id, "user_id": userID}).
		Suffix("RETURNING " + strings.Join(expenseColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update expense: %w", err)
	}

	exp, err := scanExpense(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}
	return exp, nil
}

// DeleteExpense removes the expense identified by id and owned by userID.
func (r *Repository) DeleteExpense(ctx context.Context, id, userID uuid.UUID) error {
	query, args, err := psql.Delete("expenses").
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete expense: %w", err)
	}

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrExpenseNotFound
	}

	return nil
}

func scanExpense(row pgx.Row) (*model.Expense, error) {
	var exp model.Expense
	err := row.Scan(
		&exp.ID,
		&exp.UserID,
		&exp.Title,
		&exp.Description,
		&exp.Amount,
		&exp.Category,
		&exp.CreatedAt,
		&exp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExpenseNotFound
		}
		return nil, err
	}
	return &exp, nil
}
