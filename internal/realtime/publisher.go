package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sjd-portal/grievance-api/internal/models"
)

// Publisher pushes events onto the shared Redis channel so every API
// instance can fan them out to its connected clients.
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher constructs a publisher for the named channel.
func NewPublisher(client *redis.Client, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

// Publish serializes and emits one event. Delivery is best-effort.
func (p *Publisher) Publish(ctx context.Context, event models.Event) error {
	if event.EmittedAt.IsZero() {
		event.EmittedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Name, err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event %s: %w", event.Name, err)
	}
	return nil
}
