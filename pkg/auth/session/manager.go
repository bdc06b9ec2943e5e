// Package session keeps the server side half of a signed-in till: one Redis
// entry per issued access token, keyed by its jti.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/pos-backend/pkg/config"
	redisclient "github.com/angelmondragon/pos-backend/pkg/redis"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

// ErrMissingAccessID is returned when a token carries no jti.
var ErrMissingAccessID = errors.New("session: access id is required")

type backend interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// Manager records which access tokens are still signed in. Logout deletes the
// entry, which locks the token out even though its signature stays valid.
type Manager struct {
	backend backend
	ttl     time.Duration
}

// AccessSessionChecker is what the auth middleware asks on every request.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// NewManager expires entries together with the access token.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("session: redis client is nil")
	}
	ttl := cfg.AccessTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("session: access ttl %s is not positive", ttl)
	}
	return &Manager{backend: client, ttl: ttl}, nil
}

// Create marks accessID as signed in for the cashier or admin userID.
func (m *Manager) Create(ctx context.Context, accessID string, userID uuid.UUID) error {
	key, err := m.key(accessID)
	if err != nil {
		return err
	}
	return m.backend.Set(ctx, key, userID.String(), m.ttl)
}

// Revoke signs accessID out. Revoking an unknown id is not an error.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	key, err := m.key(accessID)
	if err != nil {
		return err
	}
	return m.backend.Del(ctx, key)
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	key, err := m.key(accessID)
	if err != nil {
		return false, err
	}
	_, err = m.backend.Get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redislib.Nil):
		return false, nil
	default:
		return false, err
	}
}

func (m *Manager) key(accessID string) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", ErrMissingAccessID
	}
	return m.backend.AccessSessionKey(accessID), nil
}

// NewAccessID mints the jti for a fresh login.
func NewAccessID() string {
	return uuid.NewString()
}
