package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oznkts/E-menum-V8-sub001/internal/domain"
)

type mockCreator struct {
	order *CreatedOrder
	err   error
	calls int
}

func (m *mockCreator) Create(context.Context, string, *domain.OrderSubmission) (*CreatedOrder, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

func testSubmission() *domain.OrderSubmission {
	return &domain.OrderSubmission{
		OrganizationID: "org-1",
		OrderType:      domain.OrderTypeTakeaway,
		Subtotal:       decimal.RequireFromString("100.00"),
		TotalAmount:    decimal.RequireFromString("110.00"),
		Currency:       "TRY",
		Items: []domain.SubmissionItem{
			{MenuItemID: "kebab-1", Quantity: 1,
				UnitPrice: decimal.RequireFromString("100.00"),
				ItemTotal: decimal.RequireFromString("110.00")},
		},
	}
}

func TestBreakerCreator_PassesThrough(t *testing.T) {
	next := &mockCreator{order: &CreatedOrder{OrderNumber: "EM-AB12CD34", Status: OrderStatusPending}}
	creator := NewBreakerCreator(next)

	order, err := creator.Create(context.Background(), "key-1", testSubmission())
	require.NoError(t, err)
	assert.Equal(t, "EM-AB12CD34", order.OrderNumber)
	assert.Equal(t, 1, next.calls)
}

func TestBreakerCreator_OpensAfterConsecutiveFailures(t *testing.T) {
	next := &mockCreator{err: errors.New("postgres down")}
	creator := NewBreakerCreator(next)

	for i := 0; i < 5; i++ {
		_, err := creator.Create(context.Background(), "key-1", testSubmission())
		assert.Error(t, err)
	}

	// Breaker is open now: the next call fails fast without reaching postgres.
	_, err := creator.Create(context.Background(), "key-1", testSubmission())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, next.calls)
}

func TestOrderNumber_DerivedFromID(t *testing.T) {
	order1 := orderNumber(uuid.New())
	order2 := orderNumber(uuid.New())

	assert.Len(t, order1, len("EM-")+8)
	assert.NotEqual(t, order1, order2)

	fixed := uuid.MustParse("a1b2c3d4-0000-0000-0000-000000000000")
	assert.Equal(t, "EM-A1B2C3D4", orderNumber(fixed))
}
