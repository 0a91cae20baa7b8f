package repository

import (
	"context"

	"github.com/Dhoini/Orders-microservice/internal/models"
	"github.com/google/uuid"
)

// OrderRepository определяет операции над заказами.
type OrderRepository interface {
	// CreateIfAbsent вставляет заказ, если заказа с таким shopify_order_id
	// еще нет. Возвращает (заказ, isNew). При конфликте уникальности
	// проигравший перечитывает строку победителя: поля существующего заказа
	// не перезаписываются никогда.
	CreateIfAbsent(ctx context.Context, order models.Order) (models.Order, bool, error)

	// GetByID возвращает заказ по внутреннему ID.
	GetByID(ctx context.Context, id uuid.UUID) (models.Order, error)

	// List возвращает заказы по фильтру, новые первыми.
	List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)

	// UpdateStatus меняет CRM статус заказа и обновляет updated_at.
	// Ненулевой notes ЗАМЕНЯЕТ прежнюю заметку, nil оставляет её как есть.
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, notes *string) (models.Order, error)

	// MarkWhatsAppSent фиксирует итог отправки на самом заказе:
	// whatsapp_sent = success, при успехе также проставляется whatsapp_sent_at.
	MarkWhatsAppSent(ctx context.Context, id uuid.UUID, success bool) error

	// Stats возвращает агрегаты для дашборда.
	Stats(ctx context.Context) (models.DashboardStats, error)
}
