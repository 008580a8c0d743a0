package dto

import (
	"github.com/expensetrack/expensetrack/internal/model"
)

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /api/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LogoutRequest is the optional body of POST /api/auth/logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// UpdateProfileRequest is the body of PUT /api/user.
type UpdateProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User         model.PublicUser `json:"user"`
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
}

// RefreshResponse is returned by refresh.
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// ToAuthResponse flattens a user and token pair.
func ToAuthResponse(user model.PublicUser, tokens model.TokenPair) *AuthResponse {
	return &AuthResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}
}

// Tokens returns the pair carried by the response.
func (r *AuthResponse) Tokens() model.TokenPair {
	return model.TokenPair{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken}
}
