package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/oznkts/E-menum-V8-sub001/internal/domain"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrDuplicateOrder = errors.New("duplicate order for idempotency key")
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) String() string {
	return string(s)
}

// CreatedOrder is what checkout hands back to the customer: the order id and
// the human-facing order number shown on the confirmation screen.
type CreatedOrder struct {
	ID          uuid.UUID   `json:"id"`
	OrderNumber string      `json:"order_number"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Creator accepts a cart submission and produces an order. Consumers define
// this interface, not the postgres implementation.
type Creator interface {
	Create(ctx context.Context, idempotencyKey string, sub *domain.OrderSubmission) (*CreatedOrder, error)
}

// OutboxEvent is one unpublished order event row, written in the same
// transaction as its order.
type OutboxEvent struct {
	ID        int64
	OrderID   uuid.UUID
	EventType string
	Payload   []byte
	CreatedAt time.Time
}
