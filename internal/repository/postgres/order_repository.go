package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/Orders-microservice/internal/models"
	"github.com/Dhoini/Orders-microservice/internal/repository"
	"github.com/Dhoini/Orders-microservice/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `id, shopify_order_id, order_number, customer_id,
		customer_name, customer_email, customer_phone,
		shipping_address, line_items, total_price, currency,
		financial_status, fulfillment_status, status,
		whatsapp_sent, whatsapp_sent_at, notes, tags,
		created_at, updated_at`

// PostgresOrderRepository реализация репозитория заказов через PostgreSQL
type PostgresOrderRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresOrderRepository создает новый репозиторий заказов через PostgreSQL
func NewPostgresOrderRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		db:  db,
		log: log,
	}
}

// rowScanner покрывает pgx.Row и pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (models.Order, error) {
	var order models.Order
	var shippingBytes, lineItemsBytes []byte

	err := row.Scan(
		&order.ID,
		&order.ShopifyOrderID,
		&order.OrderNumber,
		&order.CustomerID,
		&order.CustomerName,
		&order.CustomerEmail,
		&order.CustomerPhone,
		&shippingBytes,
		&lineItemsBytes,
		&order.TotalPrice,
		&order.Currency,
		&order.FinancialStatus,
		&order.FulfillmentStatus,
		&order.Status,
		&order.WhatsAppSent,
		&order.WhatsAppSentAt,
		&order.Notes,
		&order.Tags,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return models.Order{}, err
	}

	if len(shippingBytes) > 0 {
		var addr models.ShippingAddress
		if err := json.Unmarshal(shippingBytes, &addr); err != nil {
			return models.Order{}, fmt.Errorf("failed to unmarshal shipping address: %w", err)
		}
		order.ShippingAddress = &addr
	}
	if len(lineItemsBytes) > 0 {
		if err := json.Unmarshal(lineItemsBytes, &order.LineItems); err != nil {
			return models.Order{}, fmt.Errorf("failed to unmarshal line items: %w", err)
		}
	}

	return order, nil
}

// CreateIfAbsent вставляет заказ с ON CONFLICT DO NOTHING по shopify_order_id.
// При конкурентной доставке одного вебхука ровно один INSERT выигрывает,
// проигравший перечитывает строку победителя. Существующий заказ никогда
// не перезаписывается.
func (r *PostgresOrderRepository) CreateIfAbsent(ctx context.Context, order models.Order) (models.Order, bool, error) {
	shippingBytes, err := marshalShipping(order.ShippingAddress)
	if err != nil {
		return models.Order{}, false, err
	}
	lineItemsBytes, err := json.Marshal(order.LineItems)
	if err != nil {
		return models.Order{}, false, fmt.Errorf("failed to marshal line items: %w", err)
	}

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (shopify_order_id) DO NOTHING
		RETURNING ` + orderColumns

	row := r.db.QueryRow(ctx, query,
		order.ID,
		order.ShopifyOrderID,
		order.OrderNumber,
		order.CustomerID,
		order.CustomerName,
		order.CustomerEmail,
		order.CustomerPhone,
		shippingBytes,
		lineItemsBytes,
		order.TotalPrice,
		order.Currency,
		order.FinancialStatus,
		order.FulfillmentStatus,
		order.Status,
		order.WhatsAppSent,
		order.WhatsAppSentAt,
		order.Notes,
		order.Tags,
		order.CreatedAt,
		order.UpdatedAt,
	)

	inserted, err := scanOrder(row)
	if err == nil {
		return inserted, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Уникальность нарушена вне ON CONFLICT-ветки (гонка по первичному
			// ключу): читаем победителя ниже, как и при DO NOTHING.
			r.log.Warnw("Unique violation on order insert, re-reading winner", "shopifyOrderID", order.ShopifyOrderID)
		} else {
			return models.Order{}, false, fmt.Errorf("failed to insert order: %w", err)
		}
	}

	// DO NOTHING не вернул строку: заказ уже существует
	existing, err := r.getByShopifyID(ctx, order.ShopifyOrderID)
	if err != nil {
		return models.Order{}, false, err
	}
	return existing, false, nil
}

func marshalShipping(addr *models.ShippingAddress) ([]byte, error) {
	if addr == nil {
		return nil, nil
	}
	b, err := json.Marshal(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal shipping address: %w", err)
	}
	return b, nil
}

func (r *PostgresOrderRepository) getByShopifyID(ctx context.Context, shopifyOrderID string) (models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE shopify_order_id = $1`

	order, err := scanOrder(r.db.QueryRow(ctx, query, shopifyOrderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, repository.ErrNotFound
		}
		return models.Order{}, fmt.Errorf("failed to get order by shopify id: %w", err)
	}
	return order, nil
}

// GetByID возвращает заказ по внутреннему ID
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, repository.ErrNotFound
		}
		return models.Order{}, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// List возвращает заказы по фильтру, новые первыми
func (r *PostgresOrderRepository) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`

	var args []any
	argCount := 0

	// Собираем WHERE по заданным фильтрам
	if filter.Status != nil {
		argCount++
		query += fmt.Sprintf(" WHERE status = $%d", argCount)
		args = append(args, *filter.Status)
	}
	if filter.WhatsAppSent != nil {
		argCount++
		if argCount == 1 {
			query += fmt.Sprintf(" WHERE whatsapp_sent = $%d", argCount)
		} else {
			query += fmt.Sprintf(" AND whatsapp_sent = $%d", argCount)
		}
		args = append(args, *filter.WhatsAppSent)
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	argCount++
	query += fmt.Sprintf(" LIMIT $%d", argCount)
	args = append(args, limit)

	if filter.Offset > 0 {
		argCount++
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// UpdateStatus меняет CRM статус; ненулевой notes заменяет заметку целиком
func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, notes *string) (models.Order, error) {
	query := `
		UPDATE orders
		SET status = $2,
			notes = COALESCE($3, notes),
			updated_at = $4
		WHERE id = $1
		RETURNING ` + orderColumns

	order, err := scanOrder(r.db.QueryRow(ctx, query, id, status, notes, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, repository.ErrNotFound
		}
		return models.Order{}, fmt.Errorf("failed to update order status: %w", err)
	}
	return order, nil
}

// MarkWhatsAppSent фиксирует итог последней попытки отправки на заказе
func (r *PostgresOrderRepository) MarkWhatsAppSent(ctx context.Context, id uuid.UUID, success bool) error {
	query := `
		UPDATE orders
		SET whatsapp_sent = $2,
			whatsapp_sent_at = CASE WHEN $2 THEN $3 ELSE whatsapp_sent_at END,
			updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, success, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark whatsapp sent: %w", err)
	}
	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Stats возвращает агрегаты для дашборда одним запросом
func (r *PostgresOrderRepository) Stats(ctx context.Context) (models.DashboardStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'nuevo'),
			COUNT(*) FILTER (WHERE status = 'enviado'),
			COUNT(*) FILTER (WHERE whatsapp_sent = FALSE)
		FROM orders
	`

	var stats models.DashboardStats
	err := r.db.QueryRow(ctx, query).Scan(
		&stats.TotalOrders,
		&stats.NewOrders,
		&stats.ShippedOrders,
		&stats.PendingWhatsApp,
	)
	if err != nil {
		return models.DashboardStats{}, fmt.Errorf("failed to query stats: %w", err)
	}
	return stats, nil
}
