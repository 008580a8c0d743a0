package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/expensetrack/expensetrack/internal/auth"
	"github.com/expensetrack/expensetrack/internal/handler/dto"
	"github.com/expensetrack/expensetrack/internal/model"
	"github.com/expensetrack/expensetrack/internal/service"
)

// AuthService is the account and token API the handlers call.
type AuthService interface {
	Register(ctx context.Context, input service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, input service.LoginInput) (*service.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, ac *model.AuthContext, refreshToken string)
	Me(ctx context.Context, userID uuid.UUID) (*model.PublicUser, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input service.UpdateProfileInput) (*model.PublicUser, error)
}

var _ AuthService = (*service.AuthService)(nil)

// AuthHandler handles account and token endpoints.
type AuthHandler struct {
	svc    AuthService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:    svc,
		logger: logger,
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("user_registered", "user_id", result.User.ID)
	writeJSON(w, http.StatusCreated, dto.ToAuthResponse(result.User, result.Tokens))
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToAuthResponse(result.User, result.Tokens))
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	access, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RefreshResponse{AccessToken: access})
}

// Logout handles POST /api/auth/logout. It always answers 204.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req dto.LogoutRequest
	// Optional body; a malformed one is treated as absent.
	_ = json.NewDecoder(r.Body).Decode(&req)

	h.svc.Logout(r.Context(), auth.MustAuthFromContext(r.Context()), req.RefreshToken)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Me(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateProfile handles PUT /api/user.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), auth.UserIDFromContext(r.Context()), service.UpdateProfileInput{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
