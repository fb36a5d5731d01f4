package orders

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/oznkts/E-menum-V8-sub001/internal/domain"
)

// BreakerCreator wraps a Creator with a circuit breaker so a struggling
// database fails checkout fast instead of piling up requests. The cart engine
// state is untouched on failure, so the customer can retry.
type BreakerCreator struct {
	next Creator
	cb   *gobreaker.CircuitBreaker[*CreatedOrder]
}

func NewBreakerCreator(next Creator) *BreakerCreator {
	settings := gobreaker.Settings{
		Name:    "order-creation",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &BreakerCreator{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[*CreatedOrder](settings),
	}
}

func (b *BreakerCreator) Create(ctx context.Context, idempotencyKey string, sub *domain.OrderSubmission) (*CreatedOrder, error) {
	return b.cb.Execute(func() (*CreatedOrder, error) {
		return b.next.Create(ctx, idempotencyKey, sub)
	})
}
