package models

import (
	"time"

	"github.com/google/uuid"
)

// WhatsAppLog одна попытка отправки сообщения по заказу.
// Журнал только дописывается: записи никогда не редактируются и не удаляются,
// повторная отправка добавляет новую строку.
type WhatsAppLog struct {
	ID           uuid.UUID `db:"id" json:"id"`
	OrderID      uuid.UUID `db:"order_id" json:"order_id"`
	Success      bool      `db:"success" json:"success"`
	MessageID    *string   `db:"message_id" json:"message_id,omitempty"`       // Только при успехе
	ErrorMessage *string   `db:"error_message" json:"error_message,omitempty"` // Только при ошибке
	SentAt       time.Time `db:"sent_at" json:"sent_at"`
}
