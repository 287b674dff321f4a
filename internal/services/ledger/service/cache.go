package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	AFFILIATE_SUMMARY_CACHE_PREFIX = "ledger:affiliate:"
	AFFILIATE_SUMMARY_CACHE_TTL    = 5 * time.Minute
)

// SummaryCache is a read-through cache of affiliate summaries. Cache errors
// never fail a ledger operation.
type SummaryCache interface {
	Get(ctx context.Context, affiliateID string) (*AffiliateSummary, bool)
	Set(ctx context.Context, summary *AffiliateSummary)
	Invalidate(ctx context.Context, affiliateIDs ...string)
}

type RedisSummaryCache struct {
	redis *redis.Client
	ttl   time.Duration
	log   *slog.Logger
}

func NewRedisSummaryCache(client *redis.Client, log *slog.Logger) *RedisSummaryCache {
	if log == nil {
		log = slog.Default()
	}
	return &RedisSummaryCache{redis: client, ttl: AFFILIATE_SUMMARY_CACHE_TTL, log: log}
}

func (c *RedisSummaryCache) Get(ctx context.Context, affiliateID string) (*AffiliateSummary, bool) {
	val, err := c.redis.Get(ctx, AFFILIATE_SUMMARY_CACHE_PREFIX+affiliateID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("redis GET failed, falling back to DB", "affiliate_id", affiliateID, "error", err)
		}
		return nil, false
	}

	var s AffiliateSummary
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return nil, false
	}
	return &s, true
}

func (c *RedisSummaryCache) Set(ctx context.Context, summary *AffiliateSummary) {
	data, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, AFFILIATE_SUMMARY_CACHE_PREFIX+summary.ID, data, c.ttl).Err(); err != nil {
		c.log.Warn("failed to cache affiliate summary", "affiliate_id", summary.ID, "error", err)
	}
}

func (c *RedisSummaryCache) Invalidate(ctx context.Context, affiliateIDs ...string) {
	for _, id := range affiliateIDs {
		_ = c.redis.Del(ctx, AFFILIATE_SUMMARY_CACHE_PREFIX+id)
	}
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) (*AffiliateSummary, bool) { return nil, false }
func (nopCache) Set(context.Context, *AffiliateSummary)                {}
func (nopCache) Invalidate(context.Context, ...string)                 {}
