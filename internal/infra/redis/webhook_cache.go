package redis

import (
	"context"
	"fmt"
	"time"
)

// WebhookCache is the fast-path replay guard for provider event ids. It sits
// in front of the durable webhook_events table; a cache miss is never treated
// as proof of novelty, only a hit short-circuits early.
type WebhookCache struct {
	client Client
	ttl    time.Duration
}

func NewWebhookCache(client Client, ttl time.Duration) *WebhookCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &WebhookCache{client: client, ttl: ttl}
}

func eventKey(eventID string) string {
	return fmt.Sprintf("webhook_event:%s", eventID)
}

// FirstDelivery reports whether this event id has not been seen before.
// Errors degrade to "first": the durable table behind us still dedupes.
func (c *WebhookCache) FirstDelivery(ctx context.Context, eventID string) bool {
	count, err := c.client.Incr(ctx, eventKey(eventID))
	if err != nil {
		return true
	}
	if count == 1 {
		_ = c.client.Expire(ctx, eventKey(eventID), c.ttl)
	}
	return count == 1
}

// Forget drops the event id so a redelivery passes the fast path again. Called
// when handling failed after the id was counted; errors are ignored because
// the durable table is cleared alongside and stays authoritative.
func (c *WebhookCache) Forget(ctx context.Context, eventID string) {
	_ = c.client.Del(ctx, eventKey(eventID))
}
