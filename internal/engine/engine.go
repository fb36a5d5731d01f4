package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/oznkts/E-menum-V8-sub001/internal/domain"
	"github.com/oznkts/E-menum-V8-sub001/internal/store"
)

// DefaultCurrency is used when neither the add-item input nor the cart
// context carries a currency.
const DefaultCurrency = "TRY"

const defaultPersistTimeout = 2 * time.Second

// Persister is what the engine needs from the persistence collaborator.
// Consumers define this interface, not the storage implementation.
type Persister interface {
	Save(ctx context.Context, key string, cart *domain.Cart) error
	Load(ctx context.Context, key string) (*domain.Cart, error)
}

// Subscriber receives the full new cart state after every mutation.
type Subscriber func(domain.Cart)

// Engine owns one cart's state. Every mutation is a synchronous
// read-modify-write under a single mutex, so two mutations can never
// interleave partial updates; observers only ever see complete states.
// Persistence is a best-effort side effect of each mutation: a failed save
// never rolls back the in-memory state.
type Engine struct {
	key            string
	store          Persister
	logger         *zap.Logger
	persistTimeout time.Duration

	mu    sync.Mutex
	state domain.Cart

	saveMu  sync.Mutex
	pending *domain.Cart
	saving  bool

	subMu   sync.Mutex
	subs    map[int]Subscriber
	nextSub int
}

// New creates an engine for the cart stored under key. A nil store disables
// persistence (session-only cart); a nil logger is replaced with a no-op.
func New(key string, store Persister, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		key:            key,
		store:          store,
		logger:         logger,
		persistTimeout: defaultPersistTimeout,
		subs:           make(map[int]Subscriber),
	}
}

// Rehydrate loads the persisted cart snapshot, falling back to an empty cart
// when nothing is stored or the stored blob cannot be read.
func (e *Engine) Rehydrate(ctx context.Context) {
	if e.store == nil {
		return
	}
	cart, err := e.store.Load(ctx, e.key)
	if errors.Is(err, store.ErrCartNotFound) {
		return
	}
	if err != nil {
		e.logger.Warn("cart rehydration failed, starting empty",
			zap.String("cart_key", e.key), zap.Error(err))
		return
	}
	if cart == nil {
		return
	}
	e.mu.Lock()
	e.state = cart.Clone()
	e.mu.Unlock()
}

// Subscribe registers a subscriber and returns an unsubscribe function.
// Subscribers are called after each mutation with a cloned snapshot.
func (e *Engine) Subscribe(fn Subscriber) func() {
	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.subMu.Unlock()
	return func() {
		e.subMu.Lock()
		delete(e.subs, id)
		e.subMu.Unlock()
	}
}

// Snapshot returns a deep copy of the current cart state.
func (e *Engine) Snapshot() domain.Cart {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// mutate runs fn on the state under the mutex, then persists and notifies
// subscribers with the resulting snapshot.
func (e *Engine) mutate(fn func(*domain.Cart)) domain.Cart {
	e.mu.Lock()
	fn(&e.state)
	snapshot := e.state.Clone()
	e.mu.Unlock()

	e.persist(snapshot)
	e.notify(snapshot)
	return snapshot
}

// persist hands the snapshot to the engine's single save worker. Saves are
// serialized per cart key and coalesced: a snapshot queued while a save is in
// flight replaces any earlier queued one, so the last durable write is always
// the newest state no matter how quickly mutations arrive.
func (e *Engine) persist(snapshot domain.Cart) {
	if e.store == nil {
		return
	}
	e.saveMu.Lock()
	e.pending = &snapshot
	if e.saving {
		e.saveMu.Unlock()
		return
	}
	e.saving = true
	e.saveMu.Unlock()
	go e.drainSaves()
}

func (e *Engine) drainSaves() {
	for {
		e.saveMu.Lock()
		next := e.pending
		e.pending = nil
		if next == nil {
			e.saving = false
			e.saveMu.Unlock()
			return
		}
		e.saveMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), e.persistTimeout)
		if err := e.store.Save(ctx, e.key, next); err != nil {
			e.logger.Warn("cart persist failed",
				zap.String("cart_key", e.key), zap.Error(err))
		}
		cancel()
	}
}

func (e *Engine) notify(snapshot domain.Cart) {
	e.subMu.Lock()
	subs := make([]Subscriber, 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.subMu.Unlock()
	for _, fn := range subs {
		fn(snapshot.Clone())
	}
}

// SetContext replaces the selling context unconditionally. Items are kept:
// updating the table or currency display must not cost the customer their
// cart. Callers switching to a different organization clear first.
func (e *Engine) SetContext(ctx domain.CartContext) domain.Cart {
	return e.mutate(func(c *domain.Cart) {
		c.Context = &ctx
	})
}

// ClearContext drops the context and empties all items. Used when the
// customer leaves the restaurant's page entirely.
func (e *Engine) ClearContext() domain.Cart {
	return e.mutate(func(c *domain.Cart) {
		c.Context = nil
		c.Items = nil
	})
}

// UpdateTableContext patches only the table sub-fields of an existing
// context, e.g. after scanning a different table's QR code in the same
// restaurant. No-op without a context; items are untouched.
func (e *Engine) UpdateTableContext(tableID, tableName *string) domain.Cart {
	return e.mutate(func(c *domain.Cart) {
		if c.Context == nil {
			return
		}
		c.Context.TableID = tableID
		c.Context.TableName = tableName
	})
}

// AddItemInput carries everything needed to add a line. UnitPrice and
// PriceLedgerID come from the price source at add time; Modifiers come from
// the modifier catalog packaged with the rules in force at selection time.
type AddItemInput struct {
	MenuItemID          string
	Name                string
	Description         *string
	ImageURL            *string
	UnitPrice           decimal.Decimal
	PriceLedgerID       *string
	Currency            string
	Quantity            int
	Modifiers           []domain.SelectedModifier
	SpecialInstructions *string
}

// AddItem adds a product to the cart. Identical product+selection pairs
// collapse into one line with summed quantity, keeping the existing line's
// locked price; a new selection set becomes a new line priced at the input's
// unit price.
func (e *Engine) AddItem(in AddItemInput) domain.Cart {
	qty := in.Quantity
	if qty <= 0 {
		qty = 1
	}
	return e.mutate(func(c *domain.Cart) {
		id := domain.LineID(in.MenuItemID, in.Modifiers)
		if i := c.FindItem(id); i >= 0 {
			// Existing line keeps its price-at-add; a later add never
			// re-locks the price.
			c.Items[i].Quantity += qty
			return
		}

		currency := in.Currency
		if currency == "" && c.Context != nil {
			currency = c.Context.Currency
		}
		if currency == "" {
			currency = DefaultCurrency
		}

		c.Items = append(c.Items, domain.CartItem{
			ID:                  id,
			MenuItemID:          in.MenuItemID,
			Name:                in.Name,
			Description:         in.Description,
			ImageURL:            in.ImageURL,
			PriceAtAdd:          in.UnitPrice,
			PriceLedgerID:       in.PriceLedgerID,
			Currency:            currency,
			Quantity:            qty,
			Modifiers:           domain.CloneModifiers(in.Modifiers),
			SpecialInstructions: in.SpecialInstructions,
			AddedAt:             time.Now(),
		})
	})
}

// RemoveItem deletes the line with the given id; no-op if absent.
func (e *Engine) RemoveItem(itemID string) domain.Cart {
	return e.mutate(func(c *domain.Cart) {
		removeAt(c, c.FindItem(itemID))
	})
}

// IncrementQuantity adds one unit to the line.
func (e *Engine) IncrementQuantity(itemID string) domain.Cart {
	return e.mutate(func(c *domain.Cart) {
		if i := c.FindItem(itemID); i >= 0 {
			c.Items[i].Quantity++
		}
	})
}

// DecrementQuantity removes one unit; a line at quantity 1 is removed
// entirely, a line never exists with quantity zero.
func (e *Engine) DecrementQuantity(itemID string) domain.Cart {
	return e.mutate(func(c *domain.Cart) {
		i := c.FindItem(itemID)
		if i < 0 {
			return
		}
		if c.Items[i].Quantity <= 1 {
			removeAt(c, i)
			return
		}
		c.Items[i].Quantity--
	})
}

// UpdateItemQuantity sets the quantity directly; zero or negative removes
// the line.
func (e *Engine) UpdateItemQuantity(itemID string, quantity int) domain.Cart {
	return e.mutate(func(c *domain.Cart) {
		i := c.FindItem(itemID)
		if i < 0 {
			return
		}
		if quantity <= 0 {
			removeAt(c, i)
			return
		}
		c.Items[i].Quantity = quantity
	})
}

// UpdateItemModifiers replaces a line's modifier selections. The line's
// identity is recomputed from the new selections: when the new id is free
// the line is renamed in place, keeping its locked price and added-at; when
// another line already owns the new id the two merge, quantities summed into
// the surviving line.
func (e *Engine) UpdateItemModifiers(itemID string, modifiers []domain.SelectedModifier) domain.Cart {
	return e.mutate(func(c *domain.Cart) {
		i := c.FindItem(itemID)
		if i < 0 {
			return
		}
		newID := domain.LineID(c.Items[i].MenuItemID, modifiers)
		if newID == itemID {
			c.Items[i].Modifiers = domain.CloneModifiers(modifiers)
			return
		}
		if j := c.FindItem(newID); j >= 0 {
			c.Items[j].Quantity += c.Items[i].Quantity
			removeAt(c, i)
			return
		}
		c.Items[i].ID = newID
		c.Items[i].Modifiers = domain.CloneModifiers(modifiers)
	})
}

// UpdateItemSpecialInstructions patches the free-text instructions; no
// identity implications.
func (e *Engine) UpdateItemSpecialInstructions(itemID string, text *string) domain.Cart {
	return e.mutate(func(c *domain.Cart) {
		if i := c.FindItem(itemID); i >= 0 {
			c.Items[i].SpecialInstructions = text
		}
	})
}

// SetCustomerName sets the customer display name. No validation here; the
// checkout form owns that.
func (e *Engine) SetCustomerName(name string) domain.Cart {
	return e.mutate(func(c *domain.Cart) { c.CustomerName = name })
}

// SetCustomerPhone sets the customer phone field.
func (e *Engine) SetCustomerPhone(phone string) domain.Cart {
	return e.mutate(func(c *domain.Cart) { c.CustomerPhone = phone })
}

// SetCustomerNotes sets the customer notes field.
func (e *Engine) SetCustomerNotes(notes string) domain.Cart {
	return e.mutate(func(c *domain.Cart) { c.CustomerNotes = notes })
}

// SetCartOpen sets the UI visibility flag.
func (e *Engine) SetCartOpen(open bool) domain.Cart {
	return e.mutate(func(c *domain.Cart) { c.Open = open })
}

// ToggleCart flips the UI visibility flag.
func (e *Engine) ToggleCart() domain.Cart {
	return e.mutate(func(c *domain.Cart) { c.Open = !c.Open })
}

// ClearCart empties items and customer fields, keeping the context.
func (e *Engine) ClearCart() domain.Cart {
	return e.mutate(clearForNextOrder)
}

// ResetForNewOrder is ClearCart under its checkout-time name: called after a
// successful submission so the customer can order again at the same table
// without re-scanning.
func (e *Engine) ResetForNewOrder() domain.Cart {
	return e.mutate(clearForNextOrder)
}

func clearForNextOrder(c *domain.Cart) {
	c.Items = nil
	c.CustomerName = ""
	c.CustomerPhone = ""
	c.CustomerNotes = ""
}

// Validate runs the modifier cardinality rules on the current state.
func (e *Engine) Validate() domain.ValidationResult {
	return domain.Validate(e.Snapshot())
}

// PrepareForSubmission builds the immutable order payload, or nil when there
// is no context or no items.
func (e *Engine) PrepareForSubmission() *domain.OrderSubmission {
	return domain.BuildSubmission(e.Snapshot())
}

func removeAt(c *domain.Cart, i int) {
	if i < 0 || i >= len(c.Items) {
		return
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}
