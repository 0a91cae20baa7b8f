package repository

import (
	"context"

	"github.com/Dhoini/Orders-microservice/internal/models"
	"github.com/google/uuid"
)

// WhatsAppLogRepository журнал попыток отправки WhatsApp.
// Строго append-only: записи не редактируются и не удаляются.
type WhatsAppLogRepository interface {
	// Record добавляет запись о попытке отправки.
	Record(ctx context.Context, entry models.WhatsAppLog) (models.WhatsAppLog, error)

	// History возвращает все попытки по заказу, старые первыми.
	// Хронологический порядок хранения канонический, презентация может
	// разворачивать его сама.
	History(ctx context.Context, orderID uuid.UUID) ([]models.WhatsAppLog, error)
}
