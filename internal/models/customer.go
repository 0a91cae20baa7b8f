package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer представляет клиента CRM.
// Email является ключом дедупликации: клиент без email не персистится.
type Customer struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     *string   `db:"email" json:"email,omitempty"` // Уникален, если задан
	Phone     string    `db:"phone" json:"phone,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NewCustomer создает нового Customer с заданными параметрами
func NewCustomer(name string, email *string, phone string) *Customer {
	now := time.Now().UTC()
	return &Customer{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Phone:     phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
