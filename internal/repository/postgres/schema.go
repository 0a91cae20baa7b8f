package postgres

import (
	"context"
	"fmt"

	"github.com/Dhoini/Orders-microservice/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Схема создается при старте сервиса. Supabase-инстанс обычно уже содержит
// таблицы, IF NOT EXISTS делает повторный прогон безопасным.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT UNIQUE,
		phone TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		shopify_order_id TEXT NOT NULL UNIQUE,
		order_number TEXT NOT NULL,
		customer_id UUID REFERENCES customers(id) ON DELETE SET NULL,
		customer_name TEXT NOT NULL DEFAULT '',
		customer_email TEXT NOT NULL DEFAULT '',
		customer_phone TEXT NOT NULL DEFAULT '',
		shipping_address JSONB,
		line_items JSONB NOT NULL DEFAULT '[]'::jsonb,
		total_price TEXT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'COP',
		financial_status TEXT NOT NULL DEFAULT '',
		fulfillment_status TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'nuevo'
			CHECK (status IN ('nuevo', 'en_proceso', 'enviado', 'completado', 'cancelado')),
		whatsapp_sent BOOLEAN NOT NULL DEFAULT FALSE,
		whatsapp_sent_at TIMESTAMPTZ,
		notes TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS whatsapp_logs (
		id UUID PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		success BOOLEAN NOT NULL,
		message_id TEXT,
		error_message TEXT,
		sent_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_whatsapp_sent ON orders(whatsapp_sent)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_whatsapp_logs_order_id ON whatsapp_logs(order_id, sent_at)`,
}

// EnsureSchema приводит базу к актуальной схеме CRM.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	log.Infow("Database schema ensured")
	return nil
}
