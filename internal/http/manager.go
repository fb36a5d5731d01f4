package http

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/oznkts/E-menum-V8-sub001/internal/engine"
)

// Manager owns one engine per cart key. All mutations for a key funnel
// through its single engine, which preserves the engine's single-writer
// guarantee across concurrent HTTP requests.
type Manager struct {
	store  engine.Persister
	logger *zap.Logger

	mu      sync.Mutex
	engines map[string]*engine.Engine
}

func NewManager(store engine.Persister, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:   store,
		logger:  logger,
		engines: make(map[string]*engine.Engine),
	}
}

// Engine returns the engine for the cart key, creating and rehydrating it on
// first touch.
func (m *Manager) Engine(ctx context.Context, key string) *engine.Engine {
	m.mu.Lock()
	defer m.mu.Unlock()
	eng, ok := m.engines[key]
	if !ok {
		eng = engine.New(key, m.store, m.logger)
		eng.Rehydrate(ctx)
		m.engines[key] = eng
	}
	return eng
}
