package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/oznkts/E-menum-V8-sub001/internal/domain"
	"github.com/oznkts/E-menum-V8-sub001/internal/engine"
	"github.com/oznkts/E-menum-V8-sub001/internal/menu"
)

// Catalog is what the cart handler needs from the menu service: item
// identity, the ledger price to lock, and the modifier rules to capture.
type Catalog interface {
	GetItem(ctx context.Context, itemID string) (*menu.MenuItem, error)
	CurrentPrice(ctx context.Context, itemID string) (*menu.PriceQuote, error)
	ModifierGroups(ctx context.Context, itemID string) ([]menu.ModifierGroup, error)
}

type CartHandler struct {
	manager *Manager
	catalog Catalog
	logger  *zap.Logger
	timeout time.Duration
}

func NewCartHandler(manager *Manager, catalog Catalog, logger *zap.Logger, timeout time.Duration) *CartHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartHandler{
		manager: manager,
		catalog: catalog,
		logger:  logger,
		timeout: timeout,
	}
}

type ContextRequestDTO struct {
	OrganizationID   string  `json:"organization_id"`
	OrganizationSlug string  `json:"organization_slug"`
	OrganizationName string  `json:"organization_name"`
	TableID          *string `json:"table_id"`
	TableName        *string `json:"table_name"`
	Currency         string  `json:"currency"`
}

type TableRequestDTO struct {
	TableID   *string `json:"table_id"`
	TableName *string `json:"table_name"`
}

type ModifierSelectionDTO struct {
	GroupID   string   `json:"group_id"`
	OptionIDs []string `json:"option_ids"`
}

type AddItemRequestDTO struct {
	MenuItemID          string                 `json:"menu_item_id"`
	Quantity            int                    `json:"quantity"`
	Modifiers           []ModifierSelectionDTO `json:"modifiers"`
	SpecialInstructions *string                `json:"special_instructions"`
}

type UpdateItemRequestDTO struct {
	Quantity            *int                    `json:"quantity"`
	Modifiers           *[]ModifierSelectionDTO `json:"modifiers"`
	SpecialInstructions *string                 `json:"special_instructions"`
}

type CustomerRequestDTO struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
	Notes *string `json:"notes"`
}

// CartViewDTO is the cart state plus the derived aggregates, recomputed on
// every response so they are always consistent with the items.
type CartViewDTO struct {
	Cart            domain.Cart     `json:"cart"`
	ItemCount       int             `json:"item_count"`
	UniqueItemCount int             `json:"unique_item_count"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	ModifiersTotal  decimal.Decimal `json:"modifiers_total"`
	Total           decimal.Decimal `json:"total"`
	IsEmpty         bool            `json:"is_empty"`
}

func cartView(c domain.Cart) CartViewDTO {
	return CartViewDTO{
		Cart:            c,
		ItemCount:       domain.ItemCount(c),
		UniqueItemCount: domain.UniqueItemCount(c),
		Subtotal:        domain.Subtotal(c),
		ModifiersTotal:  domain.ModifiersTotal(c),
		Total:           domain.Total(c),
		IsEmpty:         domain.IsEmpty(c),
	}
}

func cartKeyFromRequest(r *http.Request) string {
	return chi.URLParam(r, "cartKey")
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	eng := h.manager.Engine(r.Context(), cartKeyFromRequest(r))
	respondJSON(w, http.StatusOK, cartView(eng.Snapshot()))
}

// SetContext replaces the selling context. Entering a different restaurant
// clears the cart first; updating table or currency within the same
// restaurant keeps the items.
func (h *CartHandler) SetContext(w http.ResponseWriter, r *http.Request) {
	var req ContextRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.OrganizationID == "" {
		respondError(w, http.StatusBadRequest, "invalid_organization", "organization_id is required")
		return
	}

	eng := h.manager.Engine(r.Context(), cartKeyFromRequest(r))

	if current := eng.Snapshot().Context; current != nil && current.OrganizationID != req.OrganizationID {
		eng.ClearContext()
	}

	cart := eng.SetContext(domain.CartContext{
		OrganizationID:   req.OrganizationID,
		OrganizationSlug: req.OrganizationSlug,
		OrganizationName: req.OrganizationName,
		TableID:          req.TableID,
		TableName:        req.TableName,
		Currency:         req.Currency,
	})
	respondJSON(w, http.StatusOK, cartView(cart))
}

// UpdateTable patches only the table sub-fields, e.g. after scanning a
// different table's QR code at the same restaurant.
func (h *CartHandler) UpdateTable(w http.ResponseWriter, r *http.Request) {
	var req TableRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	eng := h.manager.Engine(r.Context(), cartKeyFromRequest(r))
	if eng.Snapshot().Context == nil {
		respondError(w, http.StatusConflict, "no_context", "cart has no restaurant context")
		return
	}

	cart := eng.UpdateTableContext(req.TableID, req.TableName)
	respondJSON(w, http.StatusOK, cartView(cart))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.MenuItemID == "" {
		respondError(w, http.StatusBadRequest, "invalid_menu_item_id", "menu_item_id is required")
		return
	}
	// Zero means the field was omitted; the cart defaults it to one.
	if req.Quantity < 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 0 and 99")
		return
	}

	item, err := h.catalog.GetItem(ctx, req.MenuItemID)
	if err != nil {
		if errors.Is(err, menu.ErrItemNotFound) {
			respondError(w, http.StatusNotFound, "item_not_found", "menu item not found")
			return
		}
		h.logger.Error("menu item lookup failed", zap.String("menu_item_id", req.MenuItemID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "catalog_error", "failed to look up menu item")
		return
	}
	if !item.Available {
		respondError(w, http.StatusConflict, "item_unavailable", "menu item is not available")
		return
	}

	quote, err := h.catalog.CurrentPrice(ctx, req.MenuItemID)
	if err != nil {
		h.logger.Error("price lookup failed", zap.String("menu_item_id", req.MenuItemID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "price_error", "failed to look up current price")
		return
	}

	groups, err := h.catalog.ModifierGroups(ctx, req.MenuItemID)
	if err != nil {
		h.logger.Error("modifier lookup failed", zap.String("menu_item_id", req.MenuItemID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "catalog_error", "failed to look up modifiers")
		return
	}

	modifiers, err := packageModifiers(groups, req.Modifiers)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_modifiers", err.Error())
		return
	}

	ledgerID := quote.LedgerID
	eng := h.manager.Engine(r.Context(), cartKeyFromRequest(r))
	cart := eng.AddItem(engine.AddItemInput{
		MenuItemID:          item.ID,
		Name:                item.Name,
		Description:         item.Description,
		ImageURL:            item.ImageURL,
		UnitPrice:           quote.Amount,
		PriceLedgerID:       &ledgerID,
		Currency:            quote.Currency,
		Quantity:            req.Quantity,
		Modifiers:           modifiers,
		SpecialInstructions: req.SpecialInstructions,
	})
	respondJSON(w, http.StatusCreated, cartView(cart))
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	itemID := chi.URLParam(r, "itemID")

	var req UpdateItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	eng := h.manager.Engine(r.Context(), cartKeyFromRequest(r))
	snapshot := eng.Snapshot()
	idx := snapshot.FindItem(itemID)
	if idx < 0 {
		respondError(w, http.StatusNotFound, "line_not_found", "cart line not found")
		return
	}

	cart := snapshot
	if req.Modifiers != nil {
		groups, err := h.catalog.ModifierGroups(ctx, snapshot.Items[idx].MenuItemID)
		if err != nil {
			h.logger.Error("modifier lookup failed",
				zap.String("menu_item_id", snapshot.Items[idx].MenuItemID), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "catalog_error", "failed to look up modifiers")
			return
		}
		modifiers, err := packageModifiers(groups, *req.Modifiers)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_modifiers", err.Error())
			return
		}
		cart = eng.UpdateItemModifiers(itemID, modifiers)
		// Modifier changes may have renamed or merged the line. A quantity in
		// the same request applies to the resulting line, so it overrides a
		// merged sum.
		itemID = domain.LineID(snapshot.Items[idx].MenuItemID, modifiers)
	}
	if req.Quantity != nil {
		cart = eng.UpdateItemQuantity(itemID, *req.Quantity)
	}
	if req.SpecialInstructions != nil {
		cart = eng.UpdateItemSpecialInstructions(itemID, req.SpecialInstructions)
	}

	respondJSON(w, http.StatusOK, cartView(cart))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	eng := h.manager.Engine(r.Context(), cartKeyFromRequest(r))
	cart := eng.RemoveItem(chi.URLParam(r, "itemID"))
	respondJSON(w, http.StatusOK, cartView(cart))
}

func (h *CartHandler) SetCustomer(w http.ResponseWriter, r *http.Request) {
	var req CustomerRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	eng := h.manager.Engine(r.Context(), cartKeyFromRequest(r))
	cart := eng.Snapshot()
	if req.Name != nil {
		cart = eng.SetCustomerName(*req.Name)
	}
	if req.Phone != nil {
		cart = eng.SetCustomerPhone(*req.Phone)
	}
	if req.Notes != nil {
		cart = eng.SetCustomerNotes(*req.Notes)
	}
	respondJSON(w, http.StatusOK, cartView(cart))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	eng := h.manager.Engine(r.Context(), cartKeyFromRequest(r))
	respondJSON(w, http.StatusOK, cartView(eng.ClearCart()))
}

func (h *CartHandler) Validate(w http.ResponseWriter, r *http.Request) {
	eng := h.manager.Engine(r.Context(), cartKeyFromRequest(r))
	respondJSON(w, http.StatusOK, eng.Validate())
}

// packageModifiers combines the catalog's selection rules with the chosen
// option ids into the SelectedModifier shape the engine stores. Every group
// of the item is attached, including ones with no selections, so checkout
// validation can flag required-but-empty groups. Unknown group or option ids
// are rejected here, before anything reaches the cart.
func packageModifiers(groups []menu.ModifierGroup, selections []ModifierSelectionDTO) ([]domain.SelectedModifier, error) {
	chosen := make(map[string][]string, len(selections))
	for _, sel := range selections {
		chosen[sel.GroupID] = sel.OptionIDs
	}

	known := make(map[string]bool, len(groups))
	result := make([]domain.SelectedModifier, 0, len(groups))
	for _, g := range groups {
		known[g.ID] = true
		byID := make(map[string]menu.ModifierOption, len(g.Options))
		for _, o := range g.Options {
			byID[o.ID] = o
		}

		var options []domain.SelectedModifierOption
		for _, optionID := range chosen[g.ID] {
			opt, ok := byID[optionID]
			if !ok {
				return nil, errors.New("unknown option " + optionID + " for modifier group " + g.ID)
			}
			options = append(options, domain.SelectedModifierOption{
				OptionID:        opt.ID,
				Name:            opt.Name,
				PriceAdjustment: opt.PriceAdjustment,
			})
		}

		result = append(result, domain.SelectedModifier{
			GroupID:   g.ID,
			GroupName: g.Name,
			Required:  g.Required,
			MinSelect: g.MinSelect,
			MaxSelect: g.MaxSelect,
			Options:   options,
		})
	}

	for groupID := range chosen {
		if !known[groupID] {
			return nil, errors.New("unknown modifier group " + groupID)
		}
	}
	return result, nil
}
