package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

// Token format: {at|rt}_{64 hex chars}
const (
	AccessTokenPrefix  = "at_"
	RefreshTokenPrefix = "rt_"
	tokenSecretBytes   = 32
)

var (
	// ErrInvalidTokenFormat indicates the token format is invalid.
	ErrInvalidTokenFormat = errors.New("invalid token format")

	accessTokenRegex  = regexp.MustCompile(`^at_[a-f0-9]{64}$`)
	refreshTokenRegex = regexp.MustCompile(`^rt_[a-f0-9]{64}$`)
)

// GenerateAccessToken returns a new opaque access token.
func GenerateAccessToken() (string, error) {
	return generateToken(AccessTokenPrefix)
}

// GenerateRefreshToken returns a new opaque refresh token.
func GenerateRefreshToken() (string, error) {
	return generateToken(RefreshTokenPrefix)
}

func generateToken(prefix string) (string, error) {
	secret := make([]byte, tokenSecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return prefix + hex.EncodeToString(secret), nil
}

// ValidateAccessToken checks if the token matches the access token format.
func ValidateAccessToken(token string) bool {
	return accessTokenRegex.MatchString(token)
}

// ValidateRefreshToken checks if the token matches the refresh token format.
func ValidateRefreshToken(token string) bool {
	return refreshTokenRegex.MatchString(token)
}

// HashToken returns the SHA-256 hex digest of a token.
// Tokens carry 256 bits of entropy, so a fast hash is sufficient for storage
// and lookup.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
