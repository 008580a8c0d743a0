package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/expensetrack/expensetrack/internal/auth"
	"github.com/expensetrack/expensetrack/internal/model"
	"github.com/expensetrack/expensetrack/internal/repository"
)

type output struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Expenses int    `json:"expenses"`
}

type demoExpense struct {
	title    string
	category string
	amount   string
	daysAgo  int
}

var demoExpenses = []demoExpense{
	{"Groceries", "food", "42.18", 0},
	{"Fuel", "transport", "55.00", 1},
	{"Lunch", "food", "12.50", 2},
	{"Cinema", "leisure", "18.00", 9},
	{"Electricity", "utilities", "74.30", 35},
	{"Train ticket", "transport", "23.90", 200},
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		username    = flag.String("username", "demo", "Username")
		email       = flag.String("email", "demo@example.com", "User email")
		password    = flag.String("password", "demo123", "User password (6-18 characters)")
		withData    = flag.Bool("expenses", true, "Insert demo expenses for a newly created user")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	user, created, err := ensureUser(ctx, repo, *username, *email, *password)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	inserted := 0
	if created && *withData {
		inserted, err = seedExpenses(ctx, repo, user.ID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "seed expenses:", err)
			os.Exit(1)
		}
	}

	out := output{UserID: user.ID.String(), Email: user.Email, Expenses: inserted}
	switch strings.ToLower(*format) {
	case "plain":
		fmt.Printf("%s %s (%d expenses)\n", out.UserID, out.Email, out.Expenses)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

// ensureUser returns the user with email, creating it when missing.
func ensureUser(ctx context.Context, repo *repository.Repository, username, email, password string) (*model.User, bool, error) {
	existing, err := repo.GetUserByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, false, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return user, true, nil
}

func seedExpenses(ctx context.Context, repo *repository.Repository, userID uuid.UUID) (int, error) {
	now := time.Now().UTC()
	for i, d := range demoExpenses {
		at := now.AddDate(0, 0, -d.daysAgo)
		exp := &model.Expense{
			ID:        uuid.New(),
			UserID:    userID,
			Title:     d.title,
			Amount:    decimal.RequireFromString(d.amount),
			Category:  d.category,
			CreatedAt: at,
			UpdatedAt: at,
		}
		if err := repo.CreateExpense(ctx, exp); err != nil {
			return i, err
		}
	}
	return len(demoExpenses), nil
}
