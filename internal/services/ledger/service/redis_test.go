package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affiliate-ledger/internal/database/models"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisNotifierPublishes(t *testing.T) {
	_, client := newRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, NOTIFICATION_CHANNEL_PREFIX+"aff-1", NOTIFICATION_CHANNEL_ALL)
	defer sub.Close()
	for i := 0; i < 2; i++ {
		_, err := sub.Receive(ctx)
		require.NoError(t, err)
	}

	require.NoError(t, NewRedisNotifier(client).Notify(ctx, "aff-1", "New Partnership Sale!", "hello"))

	channels := map[string]bool{}
	for i := 0; i < 2; i++ {
		msg, err := sub.ReceiveMessage(ctx)
		require.NoError(t, err)
		channels[msg.Channel] = true

		var n Notification
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &n))
		assert.Equal(t, "aff-1", n.AffiliateID)
		assert.Equal(t, "New Partnership Sale!", n.Title)
	}
	assert.True(t, channels[NOTIFICATION_CHANNEL_PREFIX+"aff-1"])
	assert.True(t, channels[NOTIFICATION_CHANNEL_ALL])
}

func TestRedisOverrideQueueFIFO(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	q := NewRedisOverrideQueue(client)

	job, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Nil(t, job)

	require.NoError(t, q.Push(ctx, OverrideJob{ChildAffiliateID: "c", OrderID: "1"}))
	require.NoError(t, q.Push(ctx, OverrideJob{ChildAffiliateID: "c", OrderID: "2"}))
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	job, err = q.Pop(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "1", job.OrderID)

	require.NoError(t, q.DeadLetter(ctx, *job))
	dead, err := mr.List(OVERRIDE_DEAD_LETTER_QUEUE)
	require.NoError(t, err)
	assert.Len(t, dead, 1)
}

func TestRedisSummaryCache(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	cache := NewRedisSummaryCache(client, nil)

	_, ok := cache.Get(ctx, "aff-1")
	assert.False(t, ok)

	cache.Set(ctx, &AffiliateSummary{
		ID:             "aff-1",
		Status:         models.StatusApproved,
		Balance:        decimal.RequireFromString("51.50"),
		CommissionRate: decimal.NewFromInt(15),
	})
	got, ok := cache.Get(ctx, "aff-1")
	require.True(t, ok)
	assert.Equal(t, models.StatusApproved, got.Status)
	assertDec(t, "51.50", got.Balance)
	assert.Equal(t, AFFILIATE_SUMMARY_CACHE_TTL, mr.TTL(AFFILIATE_SUMMARY_CACHE_PREFIX+"aff-1"))

	cache.Invalidate(ctx, "aff-1")
	_, ok = cache.Get(ctx, "aff-1")
	assert.False(t, ok)

	cache.Set(ctx, &AffiliateSummary{ID: "aff-2"})
	mr.FastForward(AFFILIATE_SUMMARY_CACHE_TTL + time.Second)
	_, ok = cache.Get(ctx, "aff-2")
	assert.False(t, ok, "entries expire")
}

func TestLedgerWithRedisAdapters(t *testing.T) {
	_, client := newRedis(t)
	f := newFixture(t,
		WithSummaryCache(NewRedisSummaryCache(client, nil)),
		WithNotifier(NewRedisNotifier(client)),
		WithOverrideQueue(NewRedisOverrideQueue(client)))
	aff := f.affiliate("VIP-AAAAAA", models.StatusApproved, nil)
	ctx := context.Background()

	_, err := f.ledger.GetAffiliate(ctx, aff.ID)
	require.NoError(t, err)

	res := f.submit(order("o-1", "VIP-AAAAAA", standard("a", "500", 1)))
	assert.Equal(t, OutcomeCredited, res.Outcome)

	s, err := f.ledger.GetAffiliate(ctx, aff.ID)
	require.NoError(t, err)
	assertDec(t, "50", s.Balance, "stale summary was invalidated")
}
