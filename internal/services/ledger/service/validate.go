package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"affiliate-ledger/internal/services/ledger/rules"
)

// normalizeOrder validates an incoming order and returns a trimmed copy
// with the currency upper-cased.
func (l *Ledger) normalizeOrder(order rules.OrderAttribution) (rules.OrderAttribution, error) {
	order.OrderID = strings.TrimSpace(order.OrderID)
	order.ReferralCode = strings.TrimSpace(order.ReferralCode)
	order.Currency = strings.ToUpper(strings.TrimSpace(order.Currency))

	items := make([]rules.LineItem, len(order.Items))
	copy(items, order.Items)
	for i := range items {
		items[i].ItemID = strings.TrimSpace(items[i].ItemID)
	}
	order.Items = items

	if err := l.validate.Struct(order); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return order, fmt.Errorf("%w: field %s failed %q", ErrInvalidOrder, f.Namespace(), f.Tag())
		}
		return order, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.UnitPrice.IsNegative() {
			return order, fmt.Errorf("%w: item %s has negative unit price", ErrInvalidOrder, item.ItemID)
		}
		if item.Clearance && item.Membership {
			return order, fmt.Errorf("%w: item %s cannot be both clearance and membership", ErrInvalidOrder, item.ItemID)
		}
		if _, dup := seen[item.ItemID]; dup {
			return order, fmt.Errorf("%w: item %s appears twice", ErrInvalidOrder, item.ItemID)
		}
		seen[item.ItemID] = struct{}{}
	}
	return order, nil
}
