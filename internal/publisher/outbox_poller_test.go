package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oznkts/E-menum-V8-sub001/internal/orders"
)

type mockEventSource struct {
	mu        sync.Mutex
	events    []*orders.OutboxEvent
	fetchErr  error
	processed []int64
}

func (m *mockEventSource) GetUnprocessedEvents(_ context.Context, _ int) ([]*orders.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	out := m.events
	m.events = nil
	return out, nil
}

func (m *mockEventSource) MarkEventAsProcessed(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed = append(m.processed, id)
	return nil
}

type mockWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func newTestPoller(repo EventSource, writer MessageWriter) *OutboxPoller {
	return &OutboxPoller{
		tick:   10 * time.Millisecond,
		batch:  100,
		repo:   repo,
		writer: writer,
		logger: zap.NewNop(),
	}
}

func event(id int64) *orders.OutboxEvent {
	return &orders.OutboxEvent{
		ID:        id,
		OrderID:   uuid.New(),
		EventType: "order.created",
		Payload:   []byte(`{"order_number":"EM-AB12CD34"}`),
		CreatedAt: time.Now(),
	}
}

func TestProcessUnpublishedEvents_PublishesAndMarks(t *testing.T) {
	repo := &mockEventSource{events: []*orders.OutboxEvent{event(1), event(2)}}
	writer := &mockWriter{}
	p := newTestPoller(repo, writer)

	p.processUnpublishedEvents(context.Background())

	require.Len(t, writer.messages, 2)
	assert.Equal(t, []byte(`{"order_number":"EM-AB12CD34"}`), writer.messages[0].Value)
	require.Len(t, writer.messages[0].Headers, 1)
	assert.Equal(t, "event-type", writer.messages[0].Headers[0].Key)
	assert.Equal(t, []int64{1, 2}, repo.processed)
}

func TestProcessUnpublishedEvents_PublishFailureKeepsEventUnprocessed(t *testing.T) {
	repo := &mockEventSource{events: []*orders.OutboxEvent{event(1)}}
	writer := &mockWriter{err: errors.New("kafka down")}
	p := newTestPoller(repo, writer)

	p.processUnpublishedEvents(context.Background())

	assert.Empty(t, repo.processed)
}

func TestProcessUnpublishedEvents_FetchFailureIsTolerated(t *testing.T) {
	repo := &mockEventSource{fetchErr: errors.New("postgres down")}
	writer := &mockWriter{}
	p := newTestPoller(repo, writer)

	p.processUnpublishedEvents(context.Background())

	assert.Empty(t, writer.messages)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	repo := &mockEventSource{events: []*orders.OutboxEvent{event(1)}}
	writer := &mockWriter{}
	p := newTestPoller(repo, writer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	// Let at least one tick fire, then stop.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}

	writer.mu.Lock()
	defer writer.mu.Unlock()
	assert.NotEmpty(t, writer.messages)
}
