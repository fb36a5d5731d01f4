package domain

import "github.com/shopspring/decimal"

// OrderType is inferred from the cart context: a table id means dine-in,
// no table means takeaway. There is deliberately no third state.
type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypeTakeaway OrderType = "takeaway"
)

// SubmissionItem is the immutable per-line record handed to order creation.
// Amounts are computed with the same functions as the live cart aggregates,
// so the submitted numbers always match what the customer saw.
type SubmissionItem struct {
	MenuItemID          string             `json:"menu_item_id"`
	Name                string             `json:"name"`
	Description         *string            `json:"description,omitempty"`
	ImageURL            *string            `json:"image_url,omitempty"`
	Quantity            int                `json:"quantity"`
	UnitPrice           decimal.Decimal    `json:"unit_price"`
	ModifiersTotal      decimal.Decimal    `json:"modifiers_total"`
	ItemTotal           decimal.Decimal    `json:"item_total"`
	Currency            string             `json:"currency"`
	PriceLedgerID       *string            `json:"price_ledger_id,omitempty"`
	Modifiers           []SelectedModifier `json:"modifiers,omitempty"`
	SpecialInstructions *string            `json:"special_instructions,omitempty"`
}

// OrderSubmission is the snapshot of a cart at checkout, in the exact shape
// the order-creation collaborator consumes.
type OrderSubmission struct {
	OrganizationID string           `json:"organization_id"`
	TableID        *string          `json:"table_id,omitempty"`
	TableName      *string          `json:"table_name,omitempty"`
	CustomerName   string           `json:"customer_name"`
	CustomerPhone  string           `json:"customer_phone"`
	CustomerNotes  string           `json:"customer_notes"`
	OrderType      OrderType        `json:"order_type"`
	Subtotal       decimal.Decimal  `json:"subtotal"`
	TotalAmount    decimal.Decimal  `json:"total_amount"`
	Currency       string           `json:"currency"`
	Items          []SubmissionItem `json:"items"`
}

// BuildSubmission turns a cart into an order submission. It returns nil when
// the cart has no context or no items; callers are expected to have checked
// already, this is the engine guarding itself. The cart itself is not
// modified, so a failed submission leaves the customer free to retry.
func BuildSubmission(c Cart) *OrderSubmission {
	if c.Context == nil || len(c.Items) == 0 {
		return nil
	}

	orderType := OrderTypeTakeaway
	if c.Context.TableID != nil {
		orderType = OrderTypeDineIn
	}

	items := make([]SubmissionItem, len(c.Items))
	for i, it := range c.Items {
		items[i] = SubmissionItem{
			MenuItemID:          it.MenuItemID,
			Name:                it.Name,
			Description:         it.Description,
			ImageURL:            it.ImageURL,
			Quantity:            it.Quantity,
			UnitPrice:           it.PriceAtAdd,
			ModifiersTotal:      ItemModifiersTotal(it),
			ItemTotal:           ItemTotal(it),
			Currency:            it.Currency,
			PriceLedgerID:       it.PriceLedgerID,
			Modifiers:           CloneModifiers(it.Modifiers),
			SpecialInstructions: it.SpecialInstructions,
		}
	}

	return &OrderSubmission{
		OrganizationID: c.Context.OrganizationID,
		TableID:        c.Context.TableID,
		TableName:      c.Context.TableName,
		CustomerName:   c.CustomerName,
		CustomerPhone:  c.CustomerPhone,
		CustomerNotes:  c.CustomerNotes,
		OrderType:      orderType,
		Subtotal:       Subtotal(c),
		TotalAmount:    Total(c),
		Currency:       c.Context.Currency,
		Items:          items,
	}
}
