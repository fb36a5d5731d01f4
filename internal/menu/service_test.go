package menu

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mu         sync.Mutex
	item       *MenuItem
	quote      *PriceQuote
	groups     []ModifierGroup
	err        error
	priceCalls int
}

func (m *mockRepository) GetItem(context.Context, string) (*MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.item, nil
}

func (m *mockRepository) CurrentPrice(context.Context, string) (*PriceQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priceCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.quote, nil
}

func (m *mockRepository) ModifierGroups(context.Context, string) ([]ModifierGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.groups, nil
}

func (m *mockRepository) Close() error { return nil }

type mockQuoteCache struct {
	mu     sync.Mutex
	quotes map[string]*PriceQuote
	err    error
	set    chan struct{}
}

func newMockQuoteCache() *mockQuoteCache {
	return &mockQuoteCache{
		quotes: make(map[string]*PriceQuote),
		set:    make(chan struct{}, 16),
	}
}

func (m *mockQuoteCache) Get(_ context.Context, itemID string) (*PriceQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	quote, ok := m.quotes[itemID]
	if !ok {
		return nil, ErrQuoteNotCached
	}
	return quote, nil
}

func (m *mockQuoteCache) Set(_ context.Context, itemID string, quote *PriceQuote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err == nil {
		m.quotes[itemID] = quote
	}
	select {
	case m.set <- struct{}{}:
	default:
	}
	return m.err
}

func testQuote() *PriceQuote {
	return &PriceQuote{
		LedgerID: "ledger-42",
		Amount:   decimal.RequireFromString("185.50"),
		Currency: "TRY",
	}
}

func TestCurrentPrice_CacheMissFetchesAndFills(t *testing.T) {
	repo := &mockRepository{quote: testQuote()}
	cache := newMockQuoteCache()
	svc := NewService(repo, cache, nil)

	quote, err := svc.CurrentPrice(context.Background(), "kebab-1")
	require.NoError(t, err)
	assert.Equal(t, "ledger-42", quote.LedgerID)
	assert.True(t, quote.Amount.Equal(decimal.RequireFromString("185.50")))

	select {
	case <-cache.set:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for cache fill")
	}
	cached, err := cache.Get(context.Background(), "kebab-1")
	require.NoError(t, err)
	assert.Equal(t, "ledger-42", cached.LedgerID)
}

func TestCurrentPrice_CacheHitSkipsRepo(t *testing.T) {
	repo := &mockRepository{quote: testQuote()}
	cache := newMockQuoteCache()
	cache.quotes["kebab-1"] = testQuote()
	svc := NewService(repo, cache, nil)

	quote, err := svc.CurrentPrice(context.Background(), "kebab-1")
	require.NoError(t, err)
	assert.Equal(t, "ledger-42", quote.LedgerID)
	assert.Equal(t, 0, repo.priceCalls)
}

func TestCurrentPrice_CacheFailureDegrades(t *testing.T) {
	repo := &mockRepository{quote: testQuote()}
	cache := newMockQuoteCache()
	cache.err = errors.New("redis down")
	svc := NewService(repo, cache, nil)

	quote, err := svc.CurrentPrice(context.Background(), "kebab-1")
	require.NoError(t, err)
	assert.Equal(t, "ledger-42", quote.LedgerID)
}

func TestCurrentPrice_NoCache(t *testing.T) {
	repo := &mockRepository{quote: testQuote()}
	svc := NewService(repo, nil, nil)

	quote, err := svc.CurrentPrice(context.Background(), "kebab-1")
	require.NoError(t, err)
	assert.Equal(t, "ledger-42", quote.LedgerID)
}

func TestCurrentPrice_RepoErrorPropagates(t *testing.T) {
	repo := &mockRepository{err: ErrPriceNotFound}
	svc := NewService(repo, newMockQuoteCache(), nil)

	_, err := svc.CurrentPrice(context.Background(), "kebab-1")
	assert.ErrorIs(t, err, ErrPriceNotFound)
}

func TestGetItemAndModifierGroups_PassThrough(t *testing.T) {
	repo := &mockRepository{
		item: &MenuItem{ID: "kebab-1", Name: "Adana Kebab", Available: true},
		groups: []ModifierGroup{
			{ID: "extras", Name: "Extras", MaxSelect: 3},
		},
	}
	svc := NewService(repo, nil, nil)

	item, err := svc.GetItem(context.Background(), "kebab-1")
	require.NoError(t, err)
	assert.Equal(t, "Adana Kebab", item.Name)

	groups, err := svc.ModifierGroups(context.Background(), "kebab-1")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Extras", groups[0].Name)
}
