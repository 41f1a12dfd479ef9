package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore persists the open cart of each register in Redis. Carts are
// working state, not records, so a TTL bounds abandoned sessions.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(registerID string) string {
	return "cart:register:" + registerID
}

// Load returns the cart for a register, or a fresh empty cart when none is
// stored.
func (s *SessionStore) Load(ctx context.Context, registerID string) (*Cart, error) {
	data, err := s.client.Get(ctx, sessionKey(registerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return New(registerID), nil
		}
		return nil, err
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	c.RegisterID = registerID
	return &c, nil
}

// Save writes the cart back, refreshing the session TTL.
func (s *SessionStore) Save(ctx context.Context, c *Cart) error {
	c.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(c.RegisterID), data, s.ttl).Err()
}

// Delete drops the stored cart, typically after checkout or cancel.
func (s *SessionStore) Delete(ctx context.Context, registerID string) error {
	return s.client.Del(ctx, sessionKey(registerID)).Err()
}
