package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/expensetrack/expensetrack/internal/auth"
	"github.com/expensetrack/expensetrack/internal/cache"
	"github.com/expensetrack/expensetrack/internal/metrics"
	"github.com/expensetrack/expensetrack/internal/model"
	"github.com/expensetrack/expensetrack/internal/repository"
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
}

// RefreshTokenStore persists hashed refresh tokens.
type RefreshTokenStore interface {
	CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, hash string) (*model.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, userID uuid.UUID) error
}

// SessionStore holds short-lived access sessions.
type SessionStore interface {
	SetAccessSession(ctx context.Context, tokenHash string, userID uuid.UUID, refreshTokenID string, ttl time.Duration) error
	GetAccessSession(ctx context.Context, tokenHash string) (*model.AuthContext, error)
	DeleteAccessSession(ctx context.Context, tokenHash string) error
}

// AuthConfig holds token lifetimes.
type AuthConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// AuthService handles registration, login and token lifecycle.
type AuthService struct {
	users    UserStore
	tokens   RefreshTokenStore
	sessions SessionStore
	cfg      AuthConfig
	metrics  metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, tokens RefreshTokenStore, sessions SessionStore, cfg AuthConfig, recorder metrics.Recorder, logger *slog.Logger) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 15 * time.Minute
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		cfg:      cfg,
		metrics:  recorder,
		logger:   logger.With("component", "auth_service"),
		now:      time.Now,
	}
}

// RegisterInput defines input for registration.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginInput defines input for login.
type LoginInput struct {
	Email    string
	Password string
}

// UpdateProfileInput defines input for a profile update.
type UpdateProfileInput struct {
	Username string
	Email    string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User   model.PublicUser
	Tokens model.TokenPair
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	username, err := validateUsername(input.Username)
	if err != nil {
		return nil, err
	}
	email, err := validateEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := storedTime(s.now())
	user := &model.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		s.metrics.IncAuthEvent("register", false)
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	tokens, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.IncAuthEvent("register", true)
	return &AuthResult{User: user.Public(), Tokens: *tokens}, nil
}

// Login verifies credentials and issues a token pair.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := input.Email
	if trimmed, err := validateEmail(email); err == nil {
		email = trimmed
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			auth.BurnVerify(input.Password)
			s.metrics.IncAuthEvent("login", false)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	ok, err := auth.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.metrics.IncAuthEvent("login", false)
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.IncAuthEvent("login", true)
	return &AuthResult{User: user.Public(), Tokens: *tokens}, nil
}

// Refresh exchanges a live refresh token for a new access token.
// The refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if !auth.ValidateRefreshToken(refreshToken) {
		s.metrics.IncAuthEvent("refresh", false)
		return "", ErrInvalidRefreshToken
	}

	stored, err := s.tokens.GetRefreshTokenByHash(ctx, auth.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			s.metrics.IncAuthEvent("refresh", false)
			return "", ErrInvalidRefreshToken
		}
		return "", fmt.Errorf("load refresh token: %w", err)
	}

	if !stored.IsUsable(s.now()) {
		s.metrics.IncAuthEvent("refresh", false)
		return "", ErrInvalidRefreshToken
	}

	access, err := s.startAccessSession(ctx, stored.UserID, stored.ID)
	if err != nil {
		return "", err
	}

	s.metrics.IncAuthEvent("refresh", true)
	return access, nil
}

// Authenticate resolves a bearer access token to the caller identity.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*model.AuthContext, error) {
	if !auth.ValidateAccessToken(accessToken) {
		return nil, ErrUnauthenticated
	}

	ac, err := s.sessions.GetAccessSession(ctx, auth.HashToken(accessToken))
	if err != nil {
		if errors.Is(err, cache.ErrSessionNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("load access session: %w", err)
	}
	return ac, nil
}

// Logout ends the caller's access session and revokes the refresh token,
// either the one supplied or the one the session was issued from. Failures
// are logged, never returned: logout always succeeds from the caller's view.
func (s *AuthService) Logout(ctx context.Context, ac *model.AuthContext, refreshToken string) {
	if ac.TokenKey != "" {
		if err := s.sessions.DeleteAccessSession(ctx, ac.TokenKey); err != nil {
			s.logger.Warn("failed to delete access session", "user_id", ac.UserID, "error", err)
		}
	}

	tokenID := ac.RefreshTokenID
	if auth.ValidateRefreshToken(refreshToken) {
		stored, err := s.tokens.GetRefreshTokenByHash(ctx, auth.HashToken(refreshToken))
		switch {
		case err == nil && stored.UserID == ac.UserID:
			tokenID = stored.ID
		case err != nil && !errors.Is(err, repository.ErrRefreshTokenNotFound):
			s.logger.Warn("failed to load refresh token on logout", "user_id", ac.UserID, "error", err)
		}
	}

	if tokenID != "" {
		err := s.tokens.RevokeRefreshToken(ctx, tokenID, ac.UserID)
		if err != nil && !errors.Is(err, repository.ErrRefreshTokenNotFound) {
			s.logger.Warn("failed to revoke refresh token", "user_id", ac.UserID, "error", err)
		}
	}

	s.metrics.IncAuthEvent("logout", true)
}

// Me returns the public profile of the caller.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*model.PublicUser, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	pub := user.Public()
	return &pub, nil
}

// UpdateProfile changes the caller's username and email.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*model.PublicUser, error) {
	username, err := validateUsername(input.Username)
	if err != nil {
		return nil, err
	}
	email, err := validateEmail(input.Email)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	user.Username = username
	user.Email = email
	if err := s.users.UpdateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	pub := user.Public()
	return &pub, nil
}

func (s *AuthService) issueTokens(ctx context.Context, userID uuid.UUID) (*model.TokenPair, error) {
	refresh, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	now := storedTime(s.now())
	stored := &model.RefreshToken{
		ID:        ulid.Make().String(),
		UserID:    userID,
		TokenHash: auth.HashToken(refresh),
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
		CreatedAt: now,
	}
	if err := s.tokens.CreateRefreshToken(ctx, stored); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	access, err := s.startAccessSession(ctx, userID, stored.ID)
	if err != nil {
		return nil, err
	}

	return &model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) startAccessSession(ctx context.Context, userID uuid.UUID, refreshTokenID string) (string, error) {
	access, err := auth.GenerateAccessToken()
	if err != nil {
		return "", err
	}
	if err := s.sessions.SetAccessSession(ctx, auth.HashToken(access), userID, refreshTokenID, s.cfg.AccessTokenTTL); err != nil {
		return "", fmt.Errorf("store access session: %w", err)
	}
	return access, nil
}
