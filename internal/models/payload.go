package models

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// CustomerData блок клиента во входящем payload.
type CustomerData struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// ShopifyOrderPayload payload, который Make отправляет на /webhook/shopify.
// Make маппит поля вебхука Shopify в этот формат, поэтому форма строгая:
// всё, что не разобралось в эти поля, отбрасывается на границе.
type ShopifyOrderPayload struct {
	ShopifyOrderID    string           `json:"shopify_order_id" validate:"required"`
	OrderNumber       string           `json:"order_number" validate:"required"`
	Customer          *CustomerData    `json:"customer,omitempty"`
	ShippingAddress   *ShippingAddress `json:"shipping_address,omitempty"`
	LineItems         []LineItem       `json:"line_items,omitempty" validate:"dive"`
	TotalPrice        string           `json:"total_price" validate:"required"`
	Currency          string           `json:"currency,omitempty"`
	FinancialStatus   string           `json:"financial_status,omitempty"`
	FulfillmentStatus string           `json:"fulfillment_status,omitempty"`
	Note              string           `json:"note,omitempty"`
	Tags              string           `json:"tags,omitempty"`
}

var payloadValidator = validator.New()

// Validate выполняет структурную и семантическую проверку payload.
// При любом нарушении возвращается ошибка с именем поля; частичная
// персистенция невозможна, т.к. валидация идет до любых записей.
func (p *ShopifyOrderPayload) Validate() error {
	if err := payloadValidator.Struct(p); err != nil {
		return err
	}

	if strings.TrimSpace(p.ShopifyOrderID) == "" {
		return fmt.Errorf("field shopify_order_id: must not be blank")
	}

	total, err := decimal.NewFromString(strings.TrimSpace(p.TotalPrice))
	if err != nil {
		return fmt.Errorf("field total_price: %q is not a decimal amount", p.TotalPrice)
	}
	if total.IsNegative() {
		return fmt.Errorf("field total_price: amount must not be negative")
	}

	// Если блок клиента присутствует, после fallback на телефон из адреса
	// должен остаться хотя бы один канал связи.
	if p.Customer != nil {
		phone := p.Customer.Phone
		if strings.TrimSpace(phone) == "" && p.ShippingAddress != nil {
			phone = p.ShippingAddress.Phone
		}
		if strings.TrimSpace(p.Customer.Email) == "" && strings.TrimSpace(phone) == "" {
			return fmt.Errorf("field customer: either email or phone is required")
		}
	}

	return nil
}

// CustomerFullName собирает отображаемое имя клиента.
// Пустое имя заменяется на "Cliente", чтобы шаблон WhatsApp не получал
// пустой параметр.
func (p *ShopifyOrderPayload) CustomerFullName() string {
	if p.Customer == nil {
		return "Cliente"
	}
	name := strings.TrimSpace(strings.TrimSpace(p.Customer.FirstName) + " " + strings.TrimSpace(p.Customer.LastName))
	if name == "" {
		return "Cliente"
	}
	return name
}
