package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы заказа в CRM. Отдельны от financial/fulfillment статусов Shopify,
// которые хранятся как есть.
const (
	StatusNuevo      = "nuevo"
	StatusEnProceso  = "en_proceso"
	StatusEnviado    = "enviado"
	StatusCompletado = "completado"
	StatusCancelado  = "cancelado"
)

// ValidStatuses полный список допустимых CRM статусов.
var ValidStatuses = []string{
	StatusNuevo,
	StatusEnProceso,
	StatusEnviado,
	StatusCompletado,
	StatusCancelado,
}

// IsValidStatus проверяет, что статус входит в перечисление.
// Последовательность переходов не ограничивается: оператор может вернуть
// заказ даже из cancelado.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ShippingAddress адрес доставки из Shopify. Для ядра непрозрачен,
// кроме телефона, который участвует в fallback-резолвинге контакта.
type ShippingAddress struct {
	Address1 string `json:"address1,omitempty"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city,omitempty"`
	Province string `json:"province,omitempty"`
	Country  string `json:"country,omitempty"`
	Zip      string `json:"zip,omitempty"`
	Phone    string `json:"phone,omitempty"` // Fallback, если customer.phone пуст
}

// LineItem позиция заказа.
type LineItem struct {
	Name         string `json:"name" validate:"required"`
	Quantity     int    `json:"quantity" validate:"gt=0"`
	Price        string `json:"price,omitempty"`
	SKU          string `json:"sku,omitempty"`
	VariantTitle string `json:"variant_title,omitempty"`
}

// Order представляет заказ в CRM.
// ShopifyOrderID уникален и неизменяем: это ключ идемпотентности вебхука.
type Order struct {
	ID                uuid.UUID        `db:"id" json:"id"`
	ShopifyOrderID    string           `db:"shopify_order_id" json:"shopify_order_id"`
	OrderNumber       string           `db:"order_number" json:"order_number"`
	CustomerID        *uuid.UUID       `db:"customer_id" json:"customer_id,omitempty"` // NULL при удалении клиента
	CustomerName      string           `db:"customer_name" json:"customer_name"`
	CustomerEmail     string           `db:"customer_email" json:"customer_email,omitempty"`
	CustomerPhone     string           `db:"customer_phone" json:"customer_phone,omitempty"`
	ShippingAddress   *ShippingAddress `db:"shipping_address" json:"shipping_address,omitempty"`
	LineItems         []LineItem       `db:"line_items" json:"line_items"`
	TotalPrice        string           `db:"total_price" json:"total_price"`
	Currency          string           `db:"currency" json:"currency"`
	FinancialStatus   string           `db:"financial_status" json:"financial_status,omitempty"`
	FulfillmentStatus string           `db:"fulfillment_status" json:"fulfillment_status,omitempty"`
	Status            string           `db:"status" json:"status"`
	WhatsAppSent      bool             `db:"whatsapp_sent" json:"whatsapp_sent"`
	WhatsAppSentAt    *time.Time       `db:"whatsapp_sent_at" json:"whatsapp_sent_at,omitempty"`
	Notes             string           `db:"notes" json:"notes,omitempty"`
	Tags              string           `db:"tags" json:"tags,omitempty"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
}

// OrderFilter параметры выборки заказов для management-границы.
// Nil-поля означают "без фильтра".
type OrderFilter struct {
	Status       *string
	WhatsAppSent *bool
	Limit        int
	Offset       int
}

// DashboardStats агрегаты для дашборда CRM.
type DashboardStats struct {
	TotalOrders     int64 `json:"total_orders"`
	NewOrders       int64 `json:"new_orders"`
	ShippedOrders   int64 `json:"shipped_orders"`
	PendingWhatsApp int64 `json:"pending_whatsapp"`
}
