package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/expensetrack/expensetrack/internal/model"
)

// accessSessionPrefix is the Redis key prefix for access token sessions.
const accessSessionPrefix = "auth:access:"

// ErrSessionNotFound is returned when an access token has no live session.
var ErrSessionNotFound = errors.New("access session not found")

// accessSession is the JSON value stored per access token.
type accessSession struct {
	UserID         string `json:"user_id"`
	RefreshTokenID string `json:"refresh_token_id"`
}

// SetAccessSession stores the session behind an access token hash for ttl.
func (c *Cache) SetAccessSession(ctx context.Context, tokenHash string, userID uuid.UUID, refreshTokenID string, ttl time.Duration) error {
	data, err := json.Marshal(accessSession{
		UserID:         userID.String(),
		RefreshTokenID: refreshTokenID,
	})
	if err != nil {
		return fmt.Errorf("marshal access session: %w", err)
	}

	if err := c.client.Set(ctx, accessSessionPrefix+tokenHash, data, ttl).Err(); err != nil {
		return fmt.Errorf("store access session: %w", err)
	}
	return nil
}

// GetAccessSession resolves an access token hash to the caller identity.
func (c *Cache) GetAccessSession(ctx context.Context, tokenHash string) (*model.AuthContext, error) {
	data, err := c.client.Get(ctx, accessSessionPrefix+tokenHash).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load access session: %w", err)
	}

	var stored accessSession
	if err := json.Unmarshal(data, &stored); err != nil {
		// Corrupted entry - treat as missing
		return nil, ErrSessionNotFound
	}

	userID, err := uuid.Parse(stored.UserID)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	return &model.AuthContext{
		UserID:         userID,
		RefreshTokenID: stored.RefreshTokenID,
		TokenKey:       tokenHash,
	}, nil
}

// DeleteAccessSession ends the session behind an access token hash.
func (c *Cache) DeleteAccessSession(ctx context.Context, tokenHash string) error {
	return c.client.Del(ctx, accessSessionPrefix+tokenHash).Err()
}
