package menu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrQuoteNotCached is returned by a QuoteCache on a miss.
var ErrQuoteNotCached = errors.New("price quote not cached")

// QuoteCache caches price quotes. Consumers define this interface, not the
// redis implementation.
type QuoteCache interface {
	Get(ctx context.Context, itemID string) (*PriceQuote, error)
	Set(ctx context.Context, itemID string, quote *PriceQuote) error
}

// Service fronts the catalog repository for the hot ordering path. Current
// price reads go through the cache with singleflight collapsing concurrent
// misses; a cache failure degrades to a repository read, never to an error.
type Service struct {
	repo   Repository
	cache  QuoteCache
	logger *zap.Logger
	sfg    singleflight.Group
}

func NewService(repo Repository, cache QuoteCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// GetItem returns the menu item, uncached.
func (s *Service) GetItem(ctx context.Context, itemID string) (*MenuItem, error) {
	return s.repo.GetItem(ctx, itemID)
}

// ModifierGroups returns the item's modifier groups with their selection
// rules, uncached.
func (s *Service) ModifierGroups(ctx context.Context, itemID string) ([]ModifierGroup, error) {
	return s.repo.ModifierGroups(ctx, itemID)
}

// CurrentPrice returns the item's current ledger price. This is the value the
// cart locks at add time, so it must come from the ledger, not from a stale
// menu render; the cache TTL is kept short for that reason.
func (s *Service) CurrentPrice(ctx context.Context, itemID string) (*PriceQuote, error) {
	v, err, _ := s.sfg.Do(itemID, func() (interface{}, error) {
		if s.cache != nil {
			quote, err := s.cache.Get(ctx, itemID)
			if err == nil {
				return quote, nil
			}
			if !errors.Is(err, ErrQuoteNotCached) {
				s.logger.Warn("price cache get error", zap.String("menu_item_id", itemID), zap.Error(err))
			}
		}

		quote, err := s.repo.CurrentPrice(ctx, itemID)
		if err != nil {
			return nil, err
		}

		if s.cache != nil {
			go func() {
				fillCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if errSet := s.cache.Set(fillCtx, itemID, quote); errSet != nil {
					s.logger.Warn("price cache set error", zap.String("menu_item_id", itemID), zap.Error(errSet))
				}
			}()
		}

		return quote, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*PriceQuote), nil
}

// RedisQuoteCache stores price quotes as JSON blobs with a short TTL.
type RedisQuoteCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisQuoteCache(client *redis.Client) *RedisQuoteCache {
	return &RedisQuoteCache{client: client, ttl: 2 * time.Minute}
}

func (c *RedisQuoteCache) Get(ctx context.Context, itemID string) (*PriceQuote, error) {
	data, err := c.client.Get(ctx, quoteKey(itemID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrQuoteNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var quote PriceQuote
	if err := json.Unmarshal(data, &quote); err != nil {
		return nil, fmt.Errorf("unmarshal quote failed: %w", err)
	}
	return &quote, nil
}

func (c *RedisQuoteCache) Set(ctx context.Context, itemID string, quote *PriceQuote) error {
	data, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("marshal quote failed: %w", err)
	}
	if err := c.client.Set(ctx, quoteKey(itemID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func quoteKey(itemID string) string {
	return fmt.Sprintf("price:%s", itemID)
}
