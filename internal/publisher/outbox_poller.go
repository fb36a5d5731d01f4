package publisher

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/oznkts/E-menum-V8-sub001/internal/orders"
)

const topic = "order-events"

// EventSource is what the poller needs from the orders repository.
type EventSource interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*orders.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

// MessageWriter abstracts the kafka writer for tests.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// OutboxPoller drains unpublished order events to kafka. Events are marked
// processed only after the write succeeds, so consumers see at-least-once
// delivery.
type OutboxPoller struct {
	tick   time.Duration
	batch  int
	repo   EventSource
	writer MessageWriter
	logger *zap.Logger
}

func NewOutboxPoller(repo EventSource, logger *zap.Logger, brokers ...string) *OutboxPoller {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{
		tick:   time.Second,
		batch:  100,
		repo:   repo,
		writer: w,
		logger: logger,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() {
	if w, ok := p.writer.(*kafka.Writer); ok {
		if err := w.Close(); err != nil {
			p.logger.Warn("error closing kafka writer", zap.Error(err))
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batch)
	if err != nil {
		p.logger.Warn("failed to fetch outbox events", zap.Error(err))
		return
	}

	for _, event := range events {
		msg := kafka.Message{
			Key:   []byte(event.OrderID.String()),
			Value: event.Payload,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(event.EventType)},
			},
		}
		if errPublish := p.writer.WriteMessages(ctx, msg); errPublish != nil {
			p.logger.Warn("failed to publish event",
				zap.Int64("event_id", event.ID), zap.Error(errPublish))
			continue
		}
		if errMark := p.repo.MarkEventAsProcessed(ctx, event.ID); errMark != nil {
			p.logger.Warn("failed to mark event processed",
				zap.Int64("event_id", event.ID), zap.Error(errMark))
		}
	}
}
