package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"audio-commerce/internal/domain/ports/repository"
)

var _ repository.CheckoutStateRepository = (*CheckoutStateRepo)(nil)

// CheckoutStateRepo keeps at most one in-flight checkout context per user.
// Set overwrites the previous attempt and the TTL expires abandoned ones.
type CheckoutStateRepo struct {
	client Client
	ttl    time.Duration
}

func NewCheckoutStateRepo(client Client, ttl time.Duration) *CheckoutStateRepo {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CheckoutStateRepo{client: client, ttl: ttl}
}

func (s *CheckoutStateRepo) stateKey(userID string) string {
	return fmt.Sprintf("checkout_ctx:%s", userID)
}

func (s *CheckoutStateRepo) Set(ctx context.Context, userID string, state *repository.CheckoutContext) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.stateKey(userID), data, s.ttl)
}

// Get returns (nil, nil) on a missing or expired context; callers treat that
// the same as an ownership mismatch.
func (s *CheckoutStateRepo) Get(ctx context.Context, userID string) (*repository.CheckoutContext, error) {
	data, err := s.client.Get(ctx, s.stateKey(userID))
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var state repository.CheckoutContext
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *CheckoutStateRepo) Clear(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.stateKey(userID))
}
