package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/Orders-microservice/internal/models"
	"github.com/Dhoini/Orders-microservice/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	// Префиксы ключей для различных типов данных
	orderKeyPrefix = "order:"
	statsKey       = "dashboard_stats"

	// TTL для кэша
	orderCacheTTL = 15 * time.Minute
	statsCacheTTL = 60 * time.Second
)

// ErrCacheMiss значение отсутствует в кеше
var ErrCacheMiss = errors.New("cache miss")

// RedisCacheRepository реализует кеширование чтений CRM через Redis
type RedisCacheRepository struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisCacheRepository создает новый экземпляр Redis репозитория
func NewRedisCacheRepository(redisAddr, redisPassword string, redisDB int, log *logger.Logger) (*RedisCacheRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	// Проверяем соединение с Redis
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Errorw("Failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Infow("Connected to Redis successfully", "addr", redisAddr)
	return &RedisCacheRepository{
		client: client,
		log:    log,
	}, nil
}

// Close закрывает соединение с Redis
func (r *RedisCacheRepository) Close() error {
	return r.client.Close()
}

// CacheOrder кеширует заказ
func (r *RedisCacheRepository) CacheOrder(ctx context.Context, order *models.Order) error {
	key := orderKeyPrefix + order.ID.String()

	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	if err := r.client.Set(ctx, key, data, orderCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache order: %w", err)
	}

	r.log.Debugw("Order cached", "orderID", order.ID)
	return nil
}

// GetCachedOrder получает заказ из кеша
func (r *RedisCacheRepository) GetCachedOrder(ctx context.Context, orderID string) (*models.Order, error) {
	key := orderKeyPrefix + orderID

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cached order: %w", err)
	}

	var order models.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached order: %w", err)
	}
	return &order, nil
}

// InvalidateOrder удаляет заказ из кеша
func (r *RedisCacheRepository) InvalidateOrder(ctx context.Context, orderID string) error {
	return r.client.Del(ctx, orderKeyPrefix+orderID).Err()
}

// CacheStats кеширует агрегаты дашборда
func (r *RedisCacheRepository) CacheStats(ctx context.Context, stats models.DashboardStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	if err := r.client.Set(ctx, statsKey, data, statsCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache stats: %w", err)
	}
	return nil
}

// GetCachedStats получает агрегаты из кеша
func (r *RedisCacheRepository) GetCachedStats(ctx context.Context) (models.DashboardStats, error) {
	data, err := r.client.Get(ctx, statsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.DashboardStats{}, ErrCacheMiss
		}
		return models.DashboardStats{}, fmt.Errorf("failed to get cached stats: %w", err)
	}

	var stats models.DashboardStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return models.DashboardStats{}, fmt.Errorf("failed to unmarshal cached stats: %w", err)
	}
	return stats, nil
}

// InvalidateStats сбрасывает кеш агрегатов
func (r *RedisCacheRepository) InvalidateStats(ctx context.Context) error {
	return r.client.Del(ctx, statsKey).Err()
}
