package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/expensetrack/expensetrack/internal/model"
)

// Errors returned by the user queries.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
)

var userColumns = []string{
	"id", "username", "email", "password_hash", "created_at", "updated_at",
}

// CreateUser inserts a user. A duplicate email (case-insensitive) yields
// ErrEmailExists.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query, args, err := psql.Insert("users").
		Columns(userColumns...).
		Values(user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := r.getUser(ctx, sq.Eq{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get user by ID: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email, ignoring case.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := r.getUser(ctx, sq.Expr("LOWER(email) = LOWER(?)", email))
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// UpdateUser writes the username and email and stores the new updated_at on
// user.
func (r *Repository) UpdateUser(ctx context.Context, user *model.User) error {
	query, args, err := psql.Update("users").
		Set("username", user.Username).
		Set("email", user.Email).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": user.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user: %w", err)
	}

	err = r.pool.QueryRow(ctx, query, args...).Scan(&user.UpdatedAt)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return ErrUserNotFound
	case isUniqueViolation(err):
		return ErrEmailExists
	default:
		return fmt.Errorf("failed to update user: %w", err)
	}
}

func (r *Repository) getUser(ctx context.Context, where sq.Sqlizer) (*model.User, error) {
	query, args, err := psql.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user: %w", err)
	}

	var u model.User
	err = r.pool.QueryRow(ctx, query, args...).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
