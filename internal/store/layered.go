package store

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/oznkts/E-menum-V8-sub001/internal/domain"
)

// LayeredStore reads through a cache in front of a durable store. Loads for
// the same key are collapsed with singleflight to prevent a cache stampede;
// cache fills and invalidations are best-effort and logged, never fatal.
type LayeredStore struct {
	durable Store
	cache   Store
	logger  *zap.Logger
	sfg     singleflight.Group
}

func NewLayeredStore(durable, cache Store, logger *zap.Logger) *LayeredStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LayeredStore{durable: durable, cache: cache, logger: logger}
}

func (s *LayeredStore) Load(ctx context.Context, key string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		cart, err := s.cache.Load(ctx, key)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("cart cache load error", zap.String("cart_key", key), zap.Error(err))
		}

		cart, err = s.durable.Load(ctx, key)
		if err != nil {
			return nil, err
		}

		go func() {
			fillCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if errSet := s.cache.Save(fillCtx, key, cart); errSet != nil {
				s.logger.Warn("cart cache fill error", zap.String("cart_key", key), zap.Error(errSet))
			}
		}()

		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

func (s *LayeredStore) Save(ctx context.Context, key string, cart *domain.Cart) error {
	if err := s.durable.Save(ctx, key, cart); err != nil {
		return err
	}
	if err := s.cache.Save(ctx, key, cart); err != nil {
		s.logger.Warn("cart cache save error", zap.String("cart_key", key), zap.Error(err))
	}
	return nil
}

func (s *LayeredStore) Delete(ctx context.Context, key string) error {
	if err := s.durable.Delete(ctx, key); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("cart cache invalidate error", zap.String("cart_key", key), zap.Error(err))
	}
	return nil
}
