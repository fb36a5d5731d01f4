package domain

import "github.com/shopspring/decimal"

// The aggregate functions below are pure: they take a cart value and return a
// result, with no dependency on live engine state. A cart without a context
// still totals its lines; an empty cart totals to zero.

// ItemModifiersTotal sums the price adjustments of every selected option
// across all of the item's modifier groups, per single unit.
func ItemModifiersTotal(it CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, m := range it.Modifiers {
		for _, o := range m.Options {
			total = total.Add(o.PriceAdjustment)
		}
	}
	return total
}

// ItemTotal is (base price + per-unit modifier total) multiplied by quantity.
func ItemTotal(it CartItem) decimal.Decimal {
	unit := it.PriceAtAdd.Add(ItemModifiersTotal(it))
	return unit.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Subtotal sums base prices times quantities across all lines, modifiers
// excluded.
func Subtotal(c Cart) decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.PriceAtAdd.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// ModifiersTotal sums per-unit modifier totals times quantities across all
// lines.
func ModifiersTotal(c Cart) decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(ItemModifiersTotal(it).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// Total is Subtotal + ModifiersTotal. It always equals the sum of ItemTotal
// over all lines.
func Total(c Cart) decimal.Decimal {
	return Subtotal(c).Add(ModifiersTotal(c))
}

// ItemCount sums quantities across all lines.
func ItemCount(c Cart) int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// UniqueItemCount is the number of distinct lines.
func UniqueItemCount(c Cart) int {
	return len(c.Items)
}

// IsEmpty reports whether the cart has no lines.
func IsEmpty(c Cart) bool {
	return len(c.Items) == 0
}
