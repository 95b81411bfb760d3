package pricing

import (
	"github.com/shopspring/decimal"
)

// Fields carries the raw price and discount state a line item arrived with.
// Pointer fields distinguish "absent" from zero.
type Fields struct {
	// MerchandiseTotal is the explicit pre-discount merchandise total.
	MerchandiseTotal *decimal.Decimal
	// TotalBeforeDiscount is the stored "total before discount" value.
	TotalBeforeDiscount *decimal.Decimal
	// StoredDiscountAmount is a discount amount already baked into the item.
	StoredDiscountAmount *decimal.Decimal
	// StoredAfterDiscount is the stored after-discount total.
	StoredAfterDiscount *decimal.Decimal
	// StoredRate is the rate recorded when the discount was first applied.
	StoredRate *decimal.Decimal
	// StoredClaimed marks an item that already claimed the discount upstream.
	StoredClaimed bool
}

// Context is the decision-point input: whether the caller claims the discount
// now, and the configured default rate.
type Context struct {
	DiscountClaimed bool
	DefaultRate     decimal.Decimal
}

// Snapshot is the reconciled discount state for one line item.
type Snapshot struct {
	SubtotalBefore  decimal.Decimal `json:"subtotal_before"`
	SubtotalAfter   decimal.Decimal `json:"subtotal_after"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	DiscountRate    decimal.Decimal `json:"discount_rate"`
	DiscountApplied bool            `json:"discount_applied"`
}

// Derive reconciles a line item's stored discount state with the caller's
// claim. It is idempotent under repeated calls with identical input and never
// double-applies a discount already baked into the stored totals: applying
// always recomputes from the pre-discount subtotal, never from the stored
// after-discount value.
//
// Note: a positive stored discount amount keeps the discount alive even when
// the caller no longer claims it. That stickiness matches how the storefront
// has always behaved and is kept on purpose; clearing it silently would
// reprice orders that were already quoted.
func Derive(fields Fields, ctx Context) Snapshot {
	subtotalBefore := resolveSubtotalBefore(fields)

	storedAmount := valueOrZero(fields.StoredDiscountAmount)
	shouldApply := ctx.DiscountClaimed || storedAmount.IsPositive() || fields.StoredClaimed

	rate := ctx.DefaultRate
	if fields.StoredRate != nil && fields.StoredRate.IsPositive() {
		rate = *fields.StoredRate
	}

	var amount, after decimal.Decimal
	if shouldApply && subtotalBefore.IsPositive() {
		amount = decimal.Min(subtotalBefore.Mul(rate), subtotalBefore).Round(2)
		after = decimal.Max(subtotalBefore.Sub(amount), decimal.Zero)
	} else {
		amount = decimal.Max(storedAmount, decimal.Zero)
		if fields.StoredAfterDiscount != nil {
			after = decimal.Max(*fields.StoredAfterDiscount, decimal.Zero)
		} else {
			after = decimal.Max(subtotalBefore.Sub(amount), decimal.Zero)
		}
	}

	applied := amount.IsPositive()
	if !applied {
		rate = decimal.Zero
	}

	return Snapshot{
		SubtotalBefore:  subtotalBefore,
		SubtotalAfter:   after,
		DiscountAmount:  amount,
		DiscountRate:    rate,
		DiscountApplied: applied,
	}
}

// resolveSubtotalBefore picks the pre-discount subtotal with the priority:
// merchandise total, stored total-before-discount, stored after + stored
// amount when that sum is positive, then the stored after-discount total.
func resolveSubtotalBefore(fields Fields) decimal.Decimal {
	if fields.MerchandiseTotal != nil && fields.MerchandiseTotal.IsPositive() {
		return *fields.MerchandiseTotal
	}
	if fields.TotalBeforeDiscount != nil && fields.TotalBeforeDiscount.IsPositive() {
		return *fields.TotalBeforeDiscount
	}
	if fields.StoredAfterDiscount != nil {
		sum := fields.StoredAfterDiscount.Add(valueOrZero(fields.StoredDiscountAmount))
		if sum.IsPositive() {
			return sum
		}
		return decimal.Max(*fields.StoredAfterDiscount, decimal.Zero)
	}
	return decimal.Zero
}

func valueOrZero(value *decimal.Decimal) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return *value
}
