package menu

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrItemNotFound  = errors.New("menu item not found")
	ErrPriceNotFound = errors.New("no current price for menu item")
)

// MenuItem is a sellable product on a restaurant's menu.
type MenuItem struct {
	ID          string
	Name        string
	Description *string
	ImageURL    *string
	Category    string
	Available   bool
}

// PriceQuote is the current unit price of a menu item together with the
// ledger row it came from. The ledger id travels into the cart line as its
// price-ledger reference, so every locked price can be traced to the
// historical price record that produced it.
type PriceQuote struct {
	LedgerID string          `json:"ledger_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// ModifierOption is one selectable option in a modifier group.
type ModifierOption struct {
	ID              string
	Name            string
	PriceAdjustment decimal.Decimal
}

// ModifierGroup carries the selection rules the cart captures at selection
// time. MaxSelect 0 means unbounded.
type ModifierGroup struct {
	ID        string
	Name      string
	Required  bool
	MinSelect int
	MaxSelect int
	Options   []ModifierOption
}

// Repository defines the catalog reads the ordering flow needs.
// Consumers define this interface, not the sqlite implementation.
type Repository interface {
	GetItem(ctx context.Context, itemID string) (*MenuItem, error)
	CurrentPrice(ctx context.Context, itemID string) (*PriceQuote, error)
	ModifierGroups(ctx context.Context, itemID string) ([]ModifierGroup, error)
	Close() error
}
