package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CartContext identifies the selling context of a cart: which restaurant the
// customer is ordering from and, for dine-in, which table. TableID nil means
// takeaway.
type CartContext struct {
	OrganizationID   string  `json:"organization_id"`
	OrganizationSlug string  `json:"organization_slug"`
	OrganizationName string  `json:"organization_name"`
	TableID          *string `json:"table_id,omitempty"`
	TableName        *string `json:"table_name,omitempty"`
	Currency         string  `json:"currency"`
}

// SelectedModifierOption is one chosen option inside a modifier group.
// PriceAdjustment is added to the item's base price per unit and may be
// negative.
type SelectedModifierOption struct {
	OptionID        string          `json:"option_id"`
	Name            string          `json:"name"`
	PriceAdjustment decimal.Decimal `json:"price_adjustment"`
}

// SelectedModifier is a modifier group instance attached to a cart item. It
// carries the group's selection rules as they were at selection time, so
// validation at checkout uses the rules the customer actually saw.
// MaxSelect 0 means unbounded.
type SelectedModifier struct {
	GroupID   string                   `json:"group_id"`
	GroupName string                   `json:"group_name"`
	Required  bool                     `json:"required"`
	MinSelect int                      `json:"min_select"`
	MaxSelect int                      `json:"max_select"`
	Options   []SelectedModifierOption `json:"options"`
}

// CartItem is one distinguishable line in the cart. PriceAtAdd is the unit
// base price locked at the moment of addition; it never changes afterwards,
// even if the same product is added again at a different price.
// PriceLedgerID references the historical price record that was current at
// add time.
type CartItem struct {
	ID                  string             `json:"id"`
	MenuItemID          string             `json:"menu_item_id"`
	Name                string             `json:"name"`
	Description         *string            `json:"description,omitempty"`
	ImageURL            *string            `json:"image_url,omitempty"`
	PriceAtAdd          decimal.Decimal    `json:"price_at_add"`
	PriceLedgerID       *string            `json:"price_ledger_id,omitempty"`
	Currency            string             `json:"currency"`
	Quantity            int                `json:"quantity"`
	Modifiers           []SelectedModifier `json:"modifiers,omitempty"`
	SpecialInstructions *string            `json:"special_instructions,omitempty"`
	AddedAt             time.Time          `json:"added_at"`
}

// Cart is the whole persisted cart state: the line items, the selling
// context, free-text customer fields and the UI visibility flag.
type Cart struct {
	Items         []CartItem   `json:"items"`
	Context       *CartContext `json:"context,omitempty"`
	CustomerName  string       `json:"customer_name"`
	CustomerPhone string       `json:"customer_phone"`
	CustomerNotes string       `json:"customer_notes"`
	Open          bool         `json:"open"`
}

// LineID derives the deterministic identifier of a cart line from the product
// and the full set of selected option ids across all modifier groups. The
// option ids are sorted before joining; the same product with the same
// selections always maps to the same line, regardless of selection order.
// This rule is load-bearing for line merging: do not replace it with an
// unsorted or hashed scheme.
func LineID(menuItemID string, modifiers []SelectedModifier) string {
	var optionIDs []string
	for _, m := range modifiers {
		for _, o := range m.Options {
			optionIDs = append(optionIDs, o.OptionID)
		}
	}
	if len(optionIDs) == 0 {
		return menuItemID
	}
	sort.Strings(optionIDs)
	return menuItemID + "-" + strings.Join(optionIDs, "-")
}

// FindItem returns the index of the line with the given id, or -1.
func (c *Cart) FindItem(id string) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the cart. Engine snapshots hand out clones so
// subscribers and callers can never alias the engine's internal state.
func (c Cart) Clone() Cart {
	out := c
	if c.Context != nil {
		ctx := *c.Context
		ctx.TableID = cloneStringPtr(c.Context.TableID)
		ctx.TableName = cloneStringPtr(c.Context.TableName)
		out.Context = &ctx
	}
	if c.Items != nil {
		out.Items = make([]CartItem, len(c.Items))
		for i, it := range c.Items {
			out.Items[i] = it.clone()
		}
	}
	return out
}

func (it CartItem) clone() CartItem {
	out := it
	out.Description = cloneStringPtr(it.Description)
	out.ImageURL = cloneStringPtr(it.ImageURL)
	out.PriceLedgerID = cloneStringPtr(it.PriceLedgerID)
	out.SpecialInstructions = cloneStringPtr(it.SpecialInstructions)
	out.Modifiers = CloneModifiers(it.Modifiers)
	return out
}

// CloneModifiers deep-copies a modifier selection list.
func CloneModifiers(mods []SelectedModifier) []SelectedModifier {
	if mods == nil {
		return nil
	}
	out := make([]SelectedModifier, len(mods))
	for i, m := range mods {
		cp := m
		if m.Options != nil {
			cp.Options = make([]SelectedModifierOption, len(m.Options))
			copy(cp.Options, m.Options)
		}
		out[i] = cp
	}
	return out
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
