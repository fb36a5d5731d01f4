package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oznkts/E-menum-V8-sub001/internal/domain"
)

type mockStore struct {
	mu      sync.Mutex
	carts   map[string]*domain.Cart
	saveErr error
	loadErr error
	loads   int
	saves   int
	saved   chan struct{}
}

func newMockStore() *mockStore {
	return &mockStore{
		carts: make(map[string]*domain.Cart),
		saved: make(chan struct{}, 16),
	}
}

func (m *mockStore) Save(_ context.Context, key string, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		select {
		case m.saved <- struct{}{}:
		default:
		}
		return m.saveErr
	}
	c := cart.Clone()
	m.carts[key] = &c
	select {
	case m.saved <- struct{}{}:
	default:
	}
	return nil
}

func (m *mockStore) Load(_ context.Context, key string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	cart, ok := m.carts[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	out := cart.Clone()
	return &out, nil
}

func (m *mockStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, key)
	return nil
}

type mockDurable struct {
	*mockStore
}

func (m *mockDurable) Load(ctx context.Context, key string) (*domain.Cart, error) {
	cart, err := m.mockStore.Load(ctx, key)
	if errors.Is(err, ErrCacheMiss) {
		return nil, ErrCartNotFound
	}
	return cart, err
}

func waitSaved(t *testing.T, m *mockStore) {
	t.Helper()
	select {
	case <-m.saved:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for save")
	}
}

func TestLayeredStore_CacheHitSkipsDurable(t *testing.T) {
	durable := &mockDurable{newMockStore()}
	cache := newMockStore()
	layered := NewLayeredStore(durable, cache, nil)

	ctx := context.Background()
	require.NoError(t, cache.Save(ctx, "s1", sampleCart()))

	cart, err := layered.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ayse", cart.CustomerName)
	assert.Equal(t, 0, durable.loads)
}

func TestLayeredStore_CacheMissFallsBackAndFills(t *testing.T) {
	durable := &mockDurable{newMockStore()}
	cache := newMockStore()
	layered := NewLayeredStore(durable, cache, nil)

	ctx := context.Background()
	require.NoError(t, durable.Save(ctx, "s1", sampleCart()))
	<-durable.saved

	cart, err := layered.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ayse", cart.CustomerName)

	// async cache fill
	waitSaved(t, cache)
	cached, err := cache.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ayse", cached.CustomerName)
}

func TestLayeredStore_MissingEverywhere(t *testing.T) {
	durable := &mockDurable{newMockStore()}
	layered := NewLayeredStore(durable, newMockStore(), nil)

	_, err := layered.Load(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestLayeredStore_CacheFailureDegrades(t *testing.T) {
	durable := &mockDurable{newMockStore()}
	cache := newMockStore()
	cache.loadErr = errors.New("redis down")
	cache.saveErr = errors.New("redis down")
	layered := NewLayeredStore(durable, cache, nil)

	ctx := context.Background()
	require.NoError(t, durable.Save(ctx, "s1", sampleCart()))
	<-durable.saved

	cart, err := layered.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ayse", cart.CustomerName)

	// Save still succeeds against the durable store.
	assert.NoError(t, layered.Save(ctx, "s1", cart))
}

func TestLayeredStore_SaveWritesBothLayers(t *testing.T) {
	durable := &mockDurable{newMockStore()}
	cache := newMockStore()
	layered := NewLayeredStore(durable, cache, nil)

	ctx := context.Background()
	require.NoError(t, layered.Save(ctx, "s1", sampleCart()))

	_, err := durable.Load(ctx, "s1")
	assert.NoError(t, err)
	_, err = cache.Load(ctx, "s1")
	assert.NoError(t, err)
}

func TestLayeredStore_DurableFailureSurfaced(t *testing.T) {
	durable := &mockDurable{newMockStore()}
	durable.saveErr = errors.New("mongo down")
	layered := NewLayeredStore(durable, newMockStore(), nil)

	err := layered.Save(context.Background(), "s1", sampleCart())
	assert.Error(t, err)
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrCartNotFound)

	require.NoError(t, store.Save(ctx, "s1", sampleCart()))
	cart, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ayse", cart.CustomerName)

	// The store never aliases caller memory.
	cart.CustomerName = "changed"
	again, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ayse", again.CustomerName)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrCartNotFound)
}
