package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"affiliate-ledger/internal/database/models"
	"affiliate-ledger/internal/services/ledger/repository"
	"affiliate-ledger/internal/services/ledger/rules"
	"affiliate-ledger/internal/testutil"
)

// Wednesday.
var testStart = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

type fixture struct {
	t      *testing.T
	db     *gorm.DB
	ledger *Ledger
	repo   *repository.Repository
	clock  *testutil.ManualClock
	notes  *recordingNotifier
	queue  *memQueue
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	f := &fixture{
		t:     t,
		db:    db,
		repo:  repository.New(db),
		clock: testutil.NewManualClock(testStart),
		notes: &recordingNotifier{},
		queue: &memQueue{},
	}
	base := []Option{
		WithClock(f.clock.Now),
		WithNotifier(f.notes),
		WithOverrideQueue(f.queue),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRetry(5, time.Millisecond),
	}
	f.ledger = New(db, rules.DefaultConfig(), append(base, opts...)...)
	return f
}

// affiliate inserts an affiliate row directly. mutate may adjust it first.
func (f *fixture) affiliate(code string, status models.AffiliateStatus, mutate func(a *models.Affiliate)) *models.Affiliate {
	f.t.Helper()
	c := code
	a := &models.Affiliate{
		ID:              uuid.NewString(),
		UserID:          "user-" + code,
		ReferralCode:    &c,
		Status:          status,
		CommissionRate:  decimal.NewFromInt(10),
		Balance:         decimal.Zero,
		TotalSalesValue: decimal.Zero,
		Week:            models.WeeklyMilestones{SalesValue: decimal.Zero},
	}
	if mutate != nil {
		mutate(a)
	}
	require.NoError(f.t, f.repo.CreateAffiliate(context.Background(), a))
	return a
}

func (f *fixture) reload(id string) *models.Affiliate {
	f.t.Helper()
	a, err := f.repo.AffiliateByID(context.Background(), id)
	require.NoError(f.t, err)
	return a
}

func (f *fixture) submit(order rules.OrderAttribution) *Result {
	f.t.Helper()
	res, err := f.ledger.SubmitOrderForCommission(context.Background(), order)
	require.NoError(f.t, err)
	return res
}

// failInserts makes the next n inserts into table fail, or every insert
// when n is negative.
func (f *fixture) failInserts(table string, n int) {
	f.t.Helper()
	var mu sync.Mutex
	err := f.db.Callback().Create().Before("gorm:create").Register("test:fail_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table != table {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if n == 0 {
			return
		}
		n--
		tx.AddError(errors.New("disk I/O error"))
	})
	require.NoError(f.t, err)
}

func order(id, code string, items ...rules.LineItem) rules.OrderAttribution {
	return rules.OrderAttribution{OrderID: id, ReferralCode: code, Currency: "ZAR", Items: items}
}

func standard(id, price string, qty int64) rules.LineItem {
	return rules.LineItem{ItemID: id, UnitPrice: decimal.RequireFromString(price), Quantity: qty}
}

func clearance(id, price string, qty int64) rules.LineItem {
	li := standard(id, price, qty)
	li.Clearance = true
	return li
}

func requireDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

type note struct {
	AffiliateID, Title, Message string
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []note
	fail  bool
}

func (n *recordingNotifier) Notify(_ context.Context, affiliateID, title, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("sink unavailable")
	}
	n.notes = append(n.notes, note{affiliateID, title, message})
	return nil
}

func (n *recordingNotifier) titlesFor(affiliateID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, x := range n.notes {
		if x.AffiliateID == affiliateID {
			out = append(out, x.Title)
		}
	}
	return out
}

type memQueue struct {
	mu   sync.Mutex
	jobs []OverrideJob
	dead []OverrideJob
}

func (q *memQueue) Push(_ context.Context, job OverrideJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *memQueue) Pop(context.Context) (*OverrideJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return nil, nil
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return &job, nil
}

func (q *memQueue) DeadLetter(_ context.Context, job OverrideJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead = append(q.dead, job)
	return nil
}
