package service

import "errors"

var (
	// ErrAffiliateNotFound: the referral code or id matches no affiliate.
	ErrAffiliateNotFound = errors.New("affiliate not found")
	// ErrAffiliateNotEligible: the affiliate exists but is not approved.
	ErrAffiliateNotEligible = errors.New("affiliate not eligible")
	// ErrDuplicateOrder: commission for the order was already recorded.
	ErrDuplicateOrder = errors.New("order already credited")
	// ErrPersistenceConflict: a concurrent write won and the retry budget ran out.
	ErrPersistenceConflict = errors.New("concurrent ledger update")
	ErrOverridePropagationFailed = errors.New("override propagation failed")
	ErrNotificationFailed        = errors.New("notification failed")
	// ErrOrderConflict: the order id was already credited to another affiliate.
	ErrOrderConflict     = errors.New("order id already credited to a different affiliate")
	ErrInvalidOrder      = errors.New("invalid order")
	ErrInvalidTransition = errors.New("invalid affiliate state transition")
)
