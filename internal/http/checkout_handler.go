package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oznkts/E-menum-V8-sub001/internal/orders"
)

type CheckoutHandler struct {
	manager *Manager
	creator orders.Creator
	logger  *zap.Logger
	timeout time.Duration
}

func NewCheckoutHandler(manager *Manager, creator orders.Creator, logger *zap.Logger, timeout time.Duration) *CheckoutHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutHandler{
		manager: manager,
		creator: creator,
		logger:  logger,
		timeout: timeout,
	}
}

type CheckoutResponseDTO struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
}

// Checkout validates the cart, builds the immutable submission and hands it
// to order creation. The cart is reset only after the order exists; any
// failure leaves the cart untouched so the customer retries without
// re-entering anything.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	eng := h.manager.Engine(r.Context(), cartKeyFromRequest(r))

	if result := eng.Validate(); !result.Valid {
		respondJSON(w, http.StatusUnprocessableEntity, result)
		return
	}

	submission := eng.PrepareForSubmission()
	if submission == nil {
		respondError(w, http.StatusBadRequest, "cart_not_ready", "cart is empty or has no restaurant context")
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	order, err := h.creator.Create(ctx, idempotencyKey, submission)
	if err != nil {
		h.logger.Error("order creation failed",
			zap.String("request_id", getRequestID(r.Context())),
			zap.String("organization_id", submission.OrganizationID),
			zap.Error(err))
		respondError(w, http.StatusBadGateway, "order_creation_failed", "failed to create order, cart unchanged")
		return
	}

	eng.ResetForNewOrder()

	respondJSON(w, http.StatusCreated, CheckoutResponseDTO{
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		Status:      order.Status.String(),
	})
}
