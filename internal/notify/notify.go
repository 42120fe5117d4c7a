// Package notify publishes item change events to external listeners.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"
)

// EventType names a change.
type EventType string

const (
	ItemSaved   EventType = "item.saved"
	ItemRemoved EventType = "item.removed"
)

// Event is the published message body.
type Event struct {
	Type       EventType `json:"type"`
	OwnerID    uuid.UUID `json:"owner_id"`
	ItemID     uuid.UUID `json:"item_id"`
	Identifier string    `json:"identifier,omitempty"`
	At         time.Time `json:"at"`
}

// Notifier delivers change events. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Event) error { return nil }

// Redis publishes events as JSON on a pub/sub channel.
type Redis struct {
	rdb     *redis.Client
	channel string
}

// NewRedis returns a publisher on channel.
func NewRedis(rdb *redis.Client, channel string) *Redis {
	return &Redis{rdb: rdb, channel: channel}
}

// Dial parses a redis:// URL and checks the server is reachable.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Notify implements Notifier.
func (r *Redis) Notify(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel, data).Err()
}
