// Package service implements the affiliate commission ledger: crediting
// orders, one-hop override propagation, weekly milestone bonuses and the
// affiliate application lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"affiliate-ledger/internal/database/models"
	"affiliate-ledger/internal/services/ledger/repository"
	"affiliate-ledger/internal/services/ledger/rules"
	"affiliate-ledger/internal/utils"
)

const (
	DefaultMaxAttempts      = 5
	DefaultBaseDelay        = 20 * time.Millisecond
	DefaultAutoApproveAfter = time.Hour
)

type Outcome string

const (
	OutcomeCredited           Outcome = "credited"
	OutcomeDuplicate          Outcome = "duplicate"
	OutcomeSkippedNotFound    Outcome = "skipped_not_found"
	OutcomeSkippedNotEligible Outcome = "skipped_not_eligible"
)

type OverrideResult struct {
	ParentAffiliateID string
	Amount            decimal.Decimal
	// Credited is false when the override was already on the books.
	Credited bool
	Err      error
}

// Result describes what SubmitOrderForCommission did with an order. For a
// duplicate delivery the commission fields are rebuilt from the stored
// records.
type Result struct {
	Outcome             Outcome
	OrderID             string
	AffiliateID         string
	Currency            string
	Rate                decimal.Decimal
	Items               []rules.ItemCommission
	StandardCommission  decimal.Decimal
	ClearanceCommission decimal.Decimal
	TotalCommission     decimal.Decimal
	GrossValue          decimal.Decimal
	Balance             decimal.Decimal
	Override            *OverrideResult
	Milestones          []models.MilestoneAward
}

type Ledger struct {
	repo     *repository.Repository
	rules    rules.Config
	notifier Notifier
	queue    OverrideQueue
	cache    SummaryCache
	log      *slog.Logger
	validate *validator.Validate

	now              func() time.Time
	newCode          func() (string, error)
	maxAttempts      int
	baseDelay        time.Duration
	autoApproveAfter time.Duration
}

type Option func(*Ledger)

func WithNotifier(n Notifier) Option           { return func(l *Ledger) { l.notifier = n } }
func WithOverrideQueue(q OverrideQueue) Option { return func(l *Ledger) { l.queue = q } }
func WithSummaryCache(c SummaryCache) Option   { return func(l *Ledger) { l.cache = c } }
func WithLogger(log *slog.Logger) Option       { return func(l *Ledger) { l.log = log } }
func WithClock(now func() time.Time) Option    { return func(l *Ledger) { l.now = now } }

func WithCodeGenerator(gen func() (string, error)) Option {
	return func(l *Ledger) { l.newCode = gen }
}

func WithRetry(attempts int, base time.Duration) Option {
	return func(l *Ledger) {
		if attempts > 0 {
			l.maxAttempts = attempts
		}
		if base > 0 {
			l.baseDelay = base
		}
	}
}

func WithAutoApproveAfter(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.autoApproveAfter = d
		}
	}
}

func New(db *gorm.DB, cfg rules.Config, opts ...Option) *Ledger {
	l := &Ledger{
		repo:             repository.New(db),
		rules:            cfg,
		notifier:         nopNotifier{},
		queue:            nopQueue{},
		cache:            nopCache{},
		log:              slog.Default(),
		validate:         validator.New(),
		now:              func() time.Time { return time.Now().UTC() },
		newCode:          utils.GenerateReferralCode,
		maxAttempts:      DefaultMaxAttempts,
		baseDelay:        DefaultBaseDelay,
		autoApproveAfter: DefaultAutoApproveAfter,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.With("component", "ledger")
	return l
}

func (l *Ledger) Rules() rules.Config { return l.rules }

// SubmitOrderForCommission credits a paid order to the affiliate owning its
// referral code. Redelivering the same order is safe: the second call
// reports OutcomeDuplicate and leaves balances untouched, while still
// finishing an override an earlier delivery missed. Milestone awards commit
// with the credit, so a failed award fails the whole delivery.
//
// Unknown or unapproved affiliates are reported through Outcome, not as
// errors. ErrPersistenceConflict means the caller should redeliver later.
func (l *Ledger) SubmitOrderForCommission(ctx context.Context, order rules.OrderAttribution) (*Result, error) {
	order, err := l.normalizeOrder(order)
	if err != nil {
		return nil, err
	}
	log := l.log.With("order_id", order.OrderID, "referral_code", order.ReferralCode)

	res, aff, err := l.credit(ctx, order)
	switch {
	case errors.Is(err, ErrAffiliateNotFound):
		log.Info("no affiliate for referral code, skipping")
		return &Result{Outcome: OutcomeSkippedNotFound, OrderID: order.OrderID, Currency: order.Currency}, nil
	case errors.Is(err, ErrAffiliateNotEligible):
		log.Info("affiliate not approved, skipping", "affiliate_id", aff.ID, "status", aff.Status)
		return &Result{Outcome: OutcomeSkippedNotEligible, OrderID: order.OrderID, AffiliateID: aff.ID, Currency: order.Currency}, nil
	case errors.Is(err, ErrDuplicateOrder):
		log.Info("order already credited", "affiliate_id", aff.ID)
		res.Outcome = OutcomeDuplicate
	case err != nil:
		log.Error("failed to credit order", "error", err)
		return nil, err
	default:
		res.Outcome = OutcomeCredited
		log.Info("order credited",
			"affiliate_id", aff.ID,
			"rate", res.Rate.String(),
			"commission", res.TotalCommission.StringFixed(2))
		l.notify(ctx, aff.ID, "New Partnership Sale!",
			fmt.Sprintf("You earned %s %s commission on order %s.", res.Currency, res.TotalCommission.StringFixed(2), order.OrderID))
		l.announceMilestones(ctx, aff.ID, res.Milestones)
	}

	res.Override = l.propagateAndQueue(ctx, aff, order.OrderID, res.TotalCommission, res.Currency)

	l.cache.Invalidate(ctx, aff.ID)
	if current, err := l.repo.AffiliateByID(ctx, aff.ID); err == nil {
		res.Balance = current.Balance
	}
	return res, nil
}

// notify is best-effort; failures are logged and swallowed.
func (l *Ledger) notify(ctx context.Context, affiliateID, title, message string) {
	if err := l.notifier.Notify(ctx, affiliateID, title, message); err != nil {
		l.log.Warn("notification not delivered",
			"affiliate_id", affiliateID,
			"title", title,
			"error", errors.Join(ErrNotificationFailed, err))
	}
}
