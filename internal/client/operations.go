package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/expensetrack/expensetrack/internal/handler/dto"
	"github.com/expensetrack/expensetrack/internal/model"
)

// Register creates an account. The returned tokens are not stored; hand
// them to the session.
func (c *Client) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	var resp dto.AuthResponse
	if err := c.do(ctx, http.MethodPost, PathRegister, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login exchanges credentials for a token pair. The returned tokens are not
// stored; hand them to the session.
func (c *Client) Login(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	var resp dto.AuthResponse
	if err := c.do(ctx, http.MethodPost, PathLogin, dto.LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh obtains and stores a new access token. It shares the in-flight
// refresh with any request currently recovering from a 401.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	return awaitRefresh(ctx, c.joinRefresh(ctx))
}

// Logout asks the server to end the session and revoke refreshToken.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.do(ctx, http.MethodPost, PathLogout, dto.LogoutRequest{RefreshToken: refreshToken}, nil)
}

// Me returns the current user. It doubles as the session probe.
func (c *Client) Me(ctx context.Context) (*model.PublicUser, error) {
	var user model.PublicUser
	if err := c.do(ctx, http.MethodGet, PathMe, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile changes the current user's username and email.
func (c *Client) UpdateProfile(ctx context.Context, req dto.UpdateProfileRequest) (*model.PublicUser, error) {
	var user model.PublicUser
	if err := c.do(ctx, http.MethodPut, PathUser, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListExpenses returns the caller's expenses, newest first.
func (c *Client) ListExpenses(ctx context.Context) ([]*model.Expense, error) {
	var expenses []*model.Expense
	if err := c.do(ctx, http.MethodGet, PathExpense, nil, &expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

// CreateExpense records a new expense owned by the caller.
func (c *Client) CreateExpense(ctx context.Context, req dto.CreateExpenseRequest) (*model.Expense, error) {
	var expense model.Expense
	if err := c.do(ctx, http.MethodPost, PathExpense, req, &expense); err != nil {
		return nil, err
	}
	return &expense, nil
}

// UpdateExpense applies a partial update.
func (c *Client) UpdateExpense(ctx context.Context, id string, req dto.UpdateExpenseRequest) (*model.Expense, error) {
	var expense model.Expense
	if err := c.do(ctx, http.MethodPut, expensePath(id), req, &expense); err != nil {
		return nil, err
	}
	return &expense, nil
}

// DeleteExpense removes an expense.
func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, expensePath(id), nil, nil)
}

func expensePath(id string) string {
	return PathExpense + "/" + url.PathEscape(id)
}
