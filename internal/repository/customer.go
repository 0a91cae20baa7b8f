package repository

import (
	"context"

	"github.com/Dhoini/Orders-microservice/internal/models"
)

// CustomerRepository определяет операции над клиентами CRM.
type CustomerRepository interface {
	// Upsert создает клиента по email или обновляет name/phone существующего
	// последними непустыми значениями. Вставка условная (ON CONFLICT),
	// а не read-then-write: параллельные вебхуки с одним email не должны
	// создать две строки.
	Upsert(ctx context.Context, name string, email string, phone string) (models.Customer, error)

	// GetByEmail возвращает клиента по точному совпадению email.
	GetByEmail(ctx context.Context, email string) (models.Customer, error)
}
