package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/Orders-microservice/internal/models"
	"github.com/Dhoini/Orders-microservice/internal/repository"
	"github.com/Dhoini/Orders-microservice/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCustomerRepository реализация репозитория клиентов через PostgreSQL
type PostgresCustomerRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresCustomerRepository создает новый репозиторий клиентов через PostgreSQL
func NewPostgresCustomerRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresCustomerRepository {
	return &PostgresCustomerRepository{
		db:  db,
		log: log,
	}
}

// Upsert создает или обновляет клиента по email.
// Вся дедупликация выполняется одним условным INSERT: при конфликте по email
// обновляются только непустые name/phone. Read-then-write здесь недопустим,
// два одновременных вебхука с новым email создали бы две строки.
func (r *PostgresCustomerRepository) Upsert(ctx context.Context, name string, email string, phone string) (models.Customer, error) {
	query := `
		INSERT INTO customers (id, name, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (email) DO UPDATE SET
			name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE customers.name END,
			phone = CASE WHEN EXCLUDED.phone <> '' THEN EXCLUDED.phone ELSE customers.phone END,
			updated_at = EXCLUDED.updated_at
		RETURNING id, name, email, phone, created_at, updated_at
	`

	var customer models.Customer
	now := time.Now().UTC()

	err := r.db.QueryRow(ctx, query, uuid.New(), name, email, phone, now).Scan(
		&customer.ID,
		&customer.Name,
		&customer.Email,
		&customer.Phone,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		return models.Customer{}, fmt.Errorf("failed to upsert customer: %w", err)
	}

	return customer, nil
}

// GetByEmail возвращает клиента по точному совпадению email
func (r *PostgresCustomerRepository) GetByEmail(ctx context.Context, email string) (models.Customer, error) {
	query := `
		SELECT id, name, email, phone, created_at, updated_at
		FROM customers
		WHERE email = $1
	`

	var customer models.Customer

	err := r.db.QueryRow(ctx, query, email).Scan(
		&customer.ID,
		&customer.Name,
		&customer.Email,
		&customer.Phone,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Customer{}, repository.ErrNotFound
		}
		return models.Customer{}, fmt.Errorf("failed to get customer: %w", err)
	}

	return customer, nil
}
