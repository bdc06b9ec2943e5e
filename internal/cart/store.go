package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/pos-backend/pkg/redis"
	"github.com/google/uuid"
)

type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(userID string) string
}

type storedCart struct {
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store keeps one open cart per user as JSON in Redis.
type Store struct {
	kv  kvStore
	ttl time.Duration
}

// NewStore builds a Redis-backed cart store. Carts idle longer than ttl expire.
func NewStore(kv kvStore, ttl time.Duration) (*Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("cart store backend required")
	}
	return &Store{kv: kv, ttl: ttl}, nil
}

// Load returns the user's cart, or an empty cart when none is stored.
func (s *Store) Load(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	raw, err := s.kv.Get(ctx, s.kv.CartKey(userID.String()))
	if err != nil {
		if redis.IsNil(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	var stored storedCart
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return New(stored.Lines...), nil
}

// Save writes the cart and refreshes its TTL. An empty cart deletes the key.
func (s *Store) Save(ctx context.Context, userID uuid.UUID, c *Cart) error {
	if c == nil || c.IsEmpty() {
		return s.Delete(ctx, userID)
	}
	payload, err := json.Marshal(storedCart{Lines: c.Lines(), UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.kv.Set(ctx, s.kv.CartKey(userID.String()), string(payload), s.ttl); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.kv.Del(ctx, s.kv.CartKey(userID.String())); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
