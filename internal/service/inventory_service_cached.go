package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/namoruso/inventory/internal/domain"
	"github.com/namoruso/inventory/pkg/mylogger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type cachedInventoryService struct {
	next        InventoryService
	redisClient *redis.Client
	cacheTTL    time.Duration
	logger      *zap.Logger
}

var errStaleRead = errors.New("product changed during read")

// NewCachedInventoryService caches FindByID results. Every mutation of a
// product drops its key and bumps the product's generation; a read only
// fills the cache if the generation it started with is still current.
// Redis failures fall through to next.
func NewCachedInventoryService(
	next InventoryService,
	redisClient *redis.Client,
	cacheTTL time.Duration,
	logger *zap.Logger,
) InventoryService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}

	return &cachedInventoryService{
		next:        next,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

func productKey(id int64) string {
	return fmt.Sprintf("inventory:%d", id)
}

func generationKey(id int64) string {
	return fmt.Sprintf("inventory:%d:gen", id)
}

func (s *cachedInventoryService) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	key := productKey(id)

	val, err := s.redisClient.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var product domain.Product
		if err := json.Unmarshal(val, &product); err == nil && product.Active {
			return &product, nil
		}
	case !errors.Is(err, redis.Nil):
		mylogger.Warn(ctx, s.logger, "Cache read failed", zap.String("key", key), zap.Error(err))
	}

	gen, genErr := s.generation(ctx, id)

	product, err := s.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !product.Active || genErr != nil {
		return product, nil
	}

	data, err := json.Marshal(product)
	if err != nil {
		return product, nil
	}

	s.store(ctx, id, gen, data)

	return product, nil
}

func (s *cachedInventoryService) generation(ctx context.Context, id int64) (int64, error) {
	gen, err := s.redisClient.Get(ctx, generationKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	return gen, err
}

// store writes data unless a mutation bumped the generation after gen was read.
func (s *cachedInventoryService) store(ctx context.Context, id, gen int64, data []byte) {
	key := productKey(id)
	genKey := generationKey(id)

	err := s.redisClient.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleRead
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.cacheTTL)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleRead), errors.Is(err, redis.TxFailedErr):
		mylogger.Debug(ctx, s.logger, "Skipped caching stale product", zap.String("key", key))
	default:
		mylogger.Warn(ctx, s.logger, "Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *cachedInventoryService) Create(ctx context.Context, payload *domain.InventoryPayload) (*domain.CreatedProduct, error) {
	return s.next.Create(ctx, payload)
}

func (s *cachedInventoryService) FindBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	return s.next.FindBySKU(ctx, sku)
}

func (s *cachedInventoryService) ListActive(ctx context.Context) ([]domain.Product, error) {
	return s.next.ListActive(ctx)
}

func (s *cachedInventoryService) Update(ctx context.Context, id int64, payload *domain.InventoryPayload) (*domain.Product, error) {
	res, err := s.next.Update(ctx, id, payload)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	return res, nil
}

func (s *cachedInventoryService) AdjustStock(ctx context.Context, id int64, mode string, quantity int64) (*domain.StockChange, error) {
	res, err := s.next.AdjustStock(ctx, id, mode, quantity)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	return res, nil
}

func (s *cachedInventoryService) Delete(ctx context.Context, id int64) error {
	if err := s.next.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, id)
	return nil
}

func (s *cachedInventoryService) invalidate(ctx context.Context, id int64) {
	key := productKey(id)
	genKey := generationKey(id)

	_, err := s.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, s.cacheTTL)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		mylogger.Warn(ctx, s.logger, "Cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}
