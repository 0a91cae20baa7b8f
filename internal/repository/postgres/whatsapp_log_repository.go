package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Dhoini/Orders-microservice/internal/models"
	"github.com/Dhoini/Orders-microservice/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresWhatsAppLogRepository реализация журнала отправок через PostgreSQL
type PostgresWhatsAppLogRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresWhatsAppLogRepository создает новый репозиторий журнала отправок
func NewPostgresWhatsAppLogRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresWhatsAppLogRepository {
	return &PostgresWhatsAppLogRepository{
		db:  db,
		log: log,
	}
}

// Record добавляет запись о попытке отправки. Журнал только дописывается,
// UPDATE/DELETE по нему не существует в принципе.
func (r *PostgresWhatsAppLogRepository) Record(ctx context.Context, entry models.WhatsAppLog) (models.WhatsAppLog, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now().UTC()
	}

	query := `
		INSERT INTO whatsapp_logs (id, order_id, success, message_id, error_message, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, order_id, success, message_id, error_message, sent_at
	`

	var saved models.WhatsAppLog
	err := r.db.QueryRow(ctx, query,
		entry.ID,
		entry.OrderID,
		entry.Success,
		entry.MessageID,
		entry.ErrorMessage,
		entry.SentAt,
	).Scan(
		&saved.ID,
		&saved.OrderID,
		&saved.Success,
		&saved.MessageID,
		&saved.ErrorMessage,
		&saved.SentAt,
	)
	if err != nil {
		return models.WhatsAppLog{}, fmt.Errorf("failed to record whatsapp log: %w", err)
	}

	return saved, nil
}

// History возвращает все попытки по заказу в хронологическом порядке
func (r *PostgresWhatsAppLogRepository) History(ctx context.Context, orderID uuid.UUID) ([]models.WhatsAppLog, error) {
	query := `
		SELECT id, order_id, success, message_id, error_message, sent_at
		FROM whatsapp_logs
		WHERE order_id = $1
		ORDER BY sent_at ASC
	`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query whatsapp logs: %w", err)
	}
	defer rows.Close()

	var entries []models.WhatsAppLog
	for rows.Next() {
		var entry models.WhatsAppLog
		err := rows.Scan(
			&entry.ID,
			&entry.OrderID,
			&entry.Success,
			&entry.MessageID,
			&entry.ErrorMessage,
			&entry.SentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan whatsapp log: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating whatsapp logs: %w", err)
	}

	return entries, nil
}
