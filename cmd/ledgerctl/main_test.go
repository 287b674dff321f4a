package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"affiliate-ledger/internal/services/ledger/rules"
	"affiliate-ledger/internal/services/ledger/service"
	"affiliate-ledger/internal/testutil"
	"affiliate-ledger/internal/utils"
)

func newTestApp(t *testing.T, withRedis bool) (*app, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	a := &app{
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		openDB: func(context.Context) (*gorm.DB, error) { return db, nil },
		openRedis: func(context.Context) (*redis.Client, error) {
			return nil, errors.New("connection refused")
		},
	}
	a.cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	if withRedis {
		mr := miniredis.RunT(t)
		a.openRedis = func(context.Context) (*redis.Client, error) {
			return redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil
		}
	}
	return a, db
}

func run(t *testing.T, a *app, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func approved(t *testing.T, db *gorm.DB, userID string) *service.AffiliateSummary {
	t.Helper()
	ctx := context.Background()
	l := service.New(db, rules.DefaultConfig(), service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	applied, err := l.Apply(ctx, userID, "")
	require.NoError(t, err)
	aff, err := l.Review(ctx, applied.ID, true, "")
	require.NoError(t, err)
	return aff
}

func TestMigrate(t *testing.T) {
	a, _ := newTestApp(t, false)
	out, err := run(t, a, "", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "up to date")
}

func TestSubmitThenAudit(t *testing.T) {
	a, db := newTestApp(t, true)
	aff := approved(t, db, "user-1")

	order := `{"order_id":"order-1","referral_code":"` + aff.ReferralCode + `","currency":"usd",
		"items":[{"item_id":"tv","unit_price":"500","quantity":1},{"item_id":"cable","unit_price":"100","quantity":1,"clearance":true}]}`
	out, err := run(t, a, order, "submit", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "order order-1: credited")
	assert.Contains(t, out, "commission USD 51.00, balance 51.00")

	out, err = run(t, a, order, "submit", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "order order-1: duplicate")

	out, err = run(t, a, "", "audit", "--strict", aff.ID)
	require.NoError(t, err)
	assert.Contains(t, out, aff.ID)
	assert.Contains(t, out, "51.00")

	_, err = run(t, a, "", "audit", "missing")
	assert.ErrorIs(t, err, service.ErrAffiliateNotFound)
}

func TestAuditStrictFailsOnDrift(t *testing.T) {
	a, db := newTestApp(t, false)
	aff := approved(t, db, "user-1")
	require.NoError(t, db.Exec("UPDATE affiliates SET balance = 7 WHERE id = ?", aff.ID).Error)

	out, err := run(t, a, "", "audit", aff.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "7.00")

	_, err = run(t, a, "", "audit", "--strict", aff.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 balances drifted")
}

func TestSubmitRejectsBadJSON(t *testing.T) {
	a, _ := newTestApp(t, false)
	_, err := run(t, a, "{not json", "submit", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode order")
}

func TestLeaderboardJSON(t *testing.T) {
	a, db := newTestApp(t, false)
	aff := approved(t, db, "user-1")

	out, err := run(t, a, "", "leaderboard", "--json")
	require.NoError(t, err)
	var top []service.AffiliateSummary
	require.NoError(t, json.Unmarshal([]byte(out), &top))
	require.Len(t, top, 1)
	assert.Equal(t, aff.ReferralCode, top[0].ReferralCode)

	out, err = run(t, a, "", "leaderboard")
	require.NoError(t, err)
	assert.Contains(t, out, "RANK")
	assert.Contains(t, out, aff.ReferralCode)
}

func TestAutoApproveNothingPending(t *testing.T) {
	a, _ := newTestApp(t, false)
	out, err := run(t, a, "", "auto-approve")
	require.NoError(t, err)
	assert.Contains(t, out, "approved 0 application(s)")
}

func TestRetryOverridesNeedsRedis(t *testing.T) {
	a, _ := newTestApp(t, false)
	_, err := run(t, a, "", "retry-overrides")
	assert.ErrorIs(t, err, errRedisRequired)

	a, _ = newTestApp(t, true)
	out, err := run(t, a, "", "retry-overrides", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "processed 0 job(s), 0 still queued")
}

func TestTokenRoundTrip(t *testing.T) {
	a, _ := newTestApp(t, false)
	out, err := run(t, a, "", "token", "--user", "admin-1", "--role", utils.RoleAdmin)
	require.NoError(t, err)

	issuer, err := utils.NewTokenIssuer(a.cfg.Auth.JWTSecret)
	require.NoError(t, err)
	claims, err := issuer.ParseToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.True(t, claims.IsAdmin())

	_, err = run(t, a, "", "token", "--user", "x", "--role", "root")
	assert.Error(t, err)

	_, err = run(t, a, "", "token")
	assert.Error(t, err, "--user is required")
}
