package repository

import (
	"context"
	"errors"

	"github.com/Dhoini/Orders-microservice/internal/models"
	"github.com/Dhoini/Orders-microservice/pkg/logger"
	"github.com/google/uuid"
)

// CachedOrderRepository декоратор над OrderRepository с кешированием чтений.
// Горячие чтения дашборда (детали заказа и агрегаты) идут через Redis,
// любая запись инвалидирует соответствующие ключи. Ошибки кеша не фатальны:
// при недоступном Redis просто идем в базу.
type CachedOrderRepository struct {
	base  OrderRepository
	cache *RedisCacheRepository
	log   *logger.Logger
}

// NewCachedOrderRepository создает кеширующий репозиторий заказов
func NewCachedOrderRepository(base OrderRepository, cache *RedisCacheRepository, log *logger.Logger) *CachedOrderRepository {
	return &CachedOrderRepository{
		base:  base,
		cache: cache,
		log:   log,
	}
}

// CreateIfAbsent делегирует базе и сбрасывает агрегаты при новой записи
func (r *CachedOrderRepository) CreateIfAbsent(ctx context.Context, order models.Order) (models.Order, bool, error) {
	created, isNew, err := r.base.CreateIfAbsent(ctx, order)
	if err != nil {
		return models.Order{}, false, err
	}
	if isNew {
		if cacheErr := r.cache.InvalidateStats(ctx); cacheErr != nil {
			r.log.Warnw("Failed to invalidate stats cache", "error", cacheErr)
		}
	}
	return created, isNew, nil
}

// GetByID сначала пробует кеш, затем базу
func (r *CachedOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Order, error) {
	cached, err := r.cache.GetCachedOrder(ctx, id.String())
	if err == nil {
		r.log.Debugw("Order cache hit", "orderID", id)
		return *cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		r.log.Warnw("Order cache read failed, falling back to database", "error", err)
	}

	order, err := r.base.GetByID(ctx, id)
	if err != nil {
		return models.Order{}, err
	}

	if cacheErr := r.cache.CacheOrder(ctx, &order); cacheErr != nil {
		r.log.Warnw("Failed to cache order", "error", cacheErr, "orderID", id)
	}
	return order, nil
}

// List всегда идет в базу: выборки с фильтрами кешировать невыгодно
func (r *CachedOrderRepository) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	return r.base.List(ctx, filter)
}

// UpdateStatus делегирует базе и инвалидирует заказ с агрегатами
func (r *CachedOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, notes *string) (models.Order, error) {
	order, err := r.base.UpdateStatus(ctx, id, status, notes)
	if err != nil {
		return models.Order{}, err
	}
	r.invalidate(ctx, id)
	return order, nil
}

// MarkWhatsAppSent делегирует базе и инвалидирует заказ с агрегатами
func (r *CachedOrderRepository) MarkWhatsAppSent(ctx context.Context, id uuid.UUID, success bool) error {
	if err := r.base.MarkWhatsAppSent(ctx, id, success); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

// Stats сначала пробует кеш, затем базу
func (r *CachedOrderRepository) Stats(ctx context.Context) (models.DashboardStats, error) {
	cached, err := r.cache.GetCachedStats(ctx)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		r.log.Warnw("Stats cache read failed, falling back to database", "error", err)
	}

	stats, err := r.base.Stats(ctx)
	if err != nil {
		return models.DashboardStats{}, err
	}

	if cacheErr := r.cache.CacheStats(ctx, stats); cacheErr != nil {
		r.log.Warnw("Failed to cache stats", "error", cacheErr)
	}
	return stats, nil
}

func (r *CachedOrderRepository) invalidate(ctx context.Context, id uuid.UUID) {
	if err := r.cache.InvalidateOrder(ctx, id.String()); err != nil {
		r.log.Warnw("Failed to invalidate order cache", "error", err, "orderID", id)
	}
	if err := r.cache.InvalidateStats(ctx); err != nil {
		r.log.Warnw("Failed to invalidate stats cache", "error", err)
	}
}
