package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	NOTIFICATION_CHANNEL_PREFIX = "ledger:notifications:"
	NOTIFICATION_CHANNEL_ALL    = "ledger:notifications:all"
)

// Notifier delivers a message to an affiliate. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, affiliateID, title, message string) error
}

type Notification struct {
	AffiliateID string    `json:"affiliate_id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	SentAt      time.Time `json:"sent_at"`
}

// RedisNotifier publishes notifications on the affiliate's channel and on
// the shared channel consumed by the storefront.
type RedisNotifier struct {
	redis *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{redis: client}
}

func (n *RedisNotifier) Notify(ctx context.Context, affiliateID, title, message string) error {
	payload, err := json.Marshal(Notification{
		AffiliateID: affiliateID,
		Title:       title,
		Message:     message,
		SentAt:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := n.redis.Publish(ctx, NOTIFICATION_CHANNEL_PREFIX+affiliateID, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	if err := n.redis.Publish(ctx, NOTIFICATION_CHANNEL_ALL, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to all channel: %w", err)
	}
	return nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, string, string) error { return nil }
