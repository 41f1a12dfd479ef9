package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seekweb/pos-api/internal/common"
)

// SessionStore persists the open collector of each register in Redis, next
// to the cart session it pays for.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(registerID string) string {
	return "payment:register:" + registerID
}

// Load returns the open collector for a register.
func (s *SessionStore) Load(ctx context.Context, registerID string) (*Collector, error) {
	data, err := s.client.Get(ctx, sessionKey(registerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.NewAppError("NO_OPEN_PAYMENT", "no open payment collection for register", http.StatusNotFound, nil)
		}
		return nil, err
	}
	var c Collector
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	c.RegisterID = registerID
	return &c, nil
}

// Save writes the collector back, refreshing the session TTL.
func (s *SessionStore) Save(ctx context.Context, c *Collector) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(c.RegisterID), data, s.ttl).Err()
}

// Delete drops the stored collector after commit or cancel.
func (s *SessionStore) Delete(ctx context.Context, registerID string) error {
	return s.client.Del(ctx, sessionKey(registerID)).Err()
}
