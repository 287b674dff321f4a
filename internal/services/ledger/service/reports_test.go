package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affiliate-ledger/internal/database/models"
)

func TestAuditBalanceReconstructsFromLog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	parent := f.affiliate("VIP-PARENT", models.StatusApproved, nil)
	f.affiliate("VIP-CHILD0", models.StatusApproved, func(a *models.Affiliate) {
		a.ParentAffiliateID = &parent.ID
	})

	f.submit(order("p-1", "VIP-PARENT", clearance("v", "100", 5)))
	f.submit(order("c-1", "VIP-CHILD0", standard("tv", "1000", 1)))

	audit, err := f.ledger.AuditBalance(ctx, parent.ID)
	require.NoError(t, err)
	assertDec(t, "5", audit.Commissions)
	assertDec(t, "1", audit.OverridesEarned)
	assertDec(t, "50", audit.MilestoneBonuses)
	assertDec(t, "56", audit.Expected)
	assert.True(t, audit.Consistent(), "drift %s", audit.Drift)

	// Simulate an out-of-band write.
	p := f.reload(parent.ID)
	p.Balance = p.Balance.Add(decimal.NewFromInt(3))
	require.NoError(t, f.repo.SaveAffiliate(ctx, p))

	audit, err = f.ledger.AuditBalance(ctx, parent.ID)
	require.NoError(t, err)
	assert.False(t, audit.Consistent())
	assertDec(t, "3", audit.Drift)

	_, err = f.ledger.AuditBalance(ctx, "missing")
	assert.ErrorIs(t, err, ErrAffiliateNotFound)
}

func TestListRecordsPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	aff := f.affiliate("VIP-AAAAAA", models.StatusApproved, nil)

	f.submit(order("o-1", "VIP-AAAAAA", standard("a", "10", 1), standard("b", "10", 1), standard("c", "10", 1)))

	page, err := f.ledger.ListRecords(ctx, aff.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Records, 2)

	page, err = f.ledger.ListRecords(ctx, aff.ID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page.Records, 1)

	page, err = f.ledger.ListRecords(ctx, aff.ID, 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, maxPageSize, page.PageSize)

	_, err = f.ledger.ListRecords(ctx, "missing", 1, 10)
	assert.ErrorIs(t, err, ErrAffiliateNotFound)
}

func TestLeaderboardOrdersBySalesValue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	small := f.affiliate("VIP-SMALL0", models.StatusApproved, nil)
	big := f.affiliate("VIP-BIG000", models.StatusApproved, nil)
	f.affiliate("VIP-PENDIN", models.StatusPending, nil)

	f.submit(order("s", "VIP-SMALL0", standard("a", "10", 1)))
	f.submit(order("b", "VIP-BIG000", standard("a", "900", 1)))

	top, err := f.ledger.Leaderboard(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, big.ID, top[0].ID)
	assert.Equal(t, small.ID, top[1].ID)
}

func TestGetAffiliateUsesCache(t *testing.T) {
	cache := &memCache{items: map[string]*AffiliateSummary{}}
	f := newFixture(t, WithSummaryCache(cache))
	ctx := context.Background()
	aff := f.affiliate("VIP-AAAAAA", models.StatusApproved, nil)

	s, err := f.ledger.GetAffiliate(ctx, aff.ID)
	require.NoError(t, err)
	assert.Equal(t, "VIP-AAAAAA", s.ReferralCode)
	assert.Contains(t, cache.items, aff.ID)

	f.submit(order("o-1", "VIP-AAAAAA", standard("a", "500", 1)))
	assert.NotContains(t, cache.items, aff.ID, "credit invalidates the summary")

	s, err = f.ledger.GetAffiliate(ctx, aff.ID)
	require.NoError(t, err)
	assertDec(t, "50", s.Balance)

	byCode, err := f.ledger.GetAffiliateByCode(ctx, "VIP-AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, aff.ID, byCode.ID)

	_, err = f.ledger.GetAffiliate(ctx, "missing")
	assert.ErrorIs(t, err, ErrAffiliateNotFound)
}

type memCache struct {
	items map[string]*AffiliateSummary
}

func (c *memCache) Get(_ context.Context, id string) (*AffiliateSummary, bool) {
	s, ok := c.items[id]
	return s, ok
}

func (c *memCache) Set(_ context.Context, s *AffiliateSummary) { c.items[s.ID] = s }

func (c *memCache) Invalidate(_ context.Context, ids ...string) {
	for _, id := range ids {
		delete(c.items, id)
	}
}
