package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenPair is the credential pair handed to a client after login or registration.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken is the stored (hashed) form of a refresh token.
type RefreshToken struct {
	ID        string
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// IsRevoked returns true if the token has been revoked.
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsExpired returns true if the token is past its expiry.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsUsable returns true if the token can still be exchanged for an access token.
func (t *RefreshToken) IsUsable(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}

// AuthContext holds authenticated request context.
// This is injected into the request context by auth middleware.
type AuthContext struct {
	UserID         uuid.UUID
	RefreshTokenID string
	// TokenKey is the cache key of the access session, used to end it on logout.
	TokenKey string
}
