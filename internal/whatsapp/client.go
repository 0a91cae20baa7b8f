package whatsapp

import (
	"context"
	"fmt"
	"time"

	"github.com/Dhoini/Orders-microservice/internal/config"
	"github.com/Dhoini/Orders-microservice/pkg/logger"
	"github.com/go-resty/resty/v2"
)

// SendResult классифицированный итог попытки отправки.
// Провайдерские сбои не превращаются в error: вызывающий всегда получает
// результат и сам решает, что с ним делать (записать в журнал).
type SendResult struct {
	Success   bool
	MessageID string // Задан только при успехе
	Error     string // Задан только при ошибке
}

// Client определяет отправку шаблонного сообщения через Meta Cloud API.
type Client interface {
	// SendOrderConfirmation отправляет утвержденный шаблон подтверждения
	// заказа. Параметры шаблона: {{1}} имя клиента, {{2}} номер заказа,
	// {{3}} сумма с валютой.
	SendOrderConfirmation(ctx context.Context, phone, customerName, orderNumber, total, currency string) SendResult
}

// templateRequest тело запроса Meta Cloud API для шаблонного сообщения.
type templateRequest struct {
	MessagingProduct string          `json:"messaging_product"`
	To               string          `json:"to"`
	Type             string          `json:"type"`
	Template         templatePayload `json:"template"`
}

type templatePayload struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters"`
}

type templateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// messagesResponse успешный ответ Meta Cloud API.
type messagesResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// apiErrorResponse ответ Meta Cloud API при ошибке.
type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// metaClient реализует интерфейс Client поверх Meta Cloud API.
type metaClient struct {
	http             *resty.Client
	phoneNumberID    string
	templateName     string
	templateLanguage string
	log              *logger.Logger
}

// NewClient создает новый клиент Meta Cloud API.
func NewClient(cfg *config.Config, log *logger.Logger) Client {
	httpClient := resty.New().
		SetBaseURL(cfg.WhatsApp.APIURL).
		SetAuthToken(cfg.WhatsApp.AccessToken).
		SetTimeout(time.Duration(cfg.WhatsApp.TimeoutSeconds) * time.Second).
		SetHeader("Content-Type", "application/json")

	return &metaClient{
		http:             httpClient,
		phoneNumberID:    cfg.WhatsApp.PhoneNumberID,
		templateName:     cfg.WhatsApp.TemplateName,
		templateLanguage: cfg.WhatsApp.TemplateLanguage,
		log:              log,
	}
}

// SendOrderConfirmation отправляет шаблон подтверждения заказа.
func (c *metaClient) SendOrderConfirmation(ctx context.Context, phone, customerName, orderNumber, total, currency string) SendResult {
	if c.phoneNumberID == "" || c.http.Token == "" {
		return SendResult{
			Success: false,
			Error:   "WhatsApp is not configured: WHATSAPP_PHONE_NUMBER_ID or WHATSAPP_ACCESS_TOKEN is missing",
		}
	}

	normalized := NormalizePhone(phone)
	if len(normalized) < 10 {
		return SendResult{
			Success: false,
			Error:   fmt.Sprintf("invalid phone number: %q", phone),
		}
	}

	payload := templateRequest{
		MessagingProduct: "whatsapp",
		To:               normalized,
		Type:             "template",
		Template: templatePayload{
			Name:     c.templateName,
			Language: templateLanguage{Code: c.templateLanguage},
			Components: []templateComponent{
				{
					Type: "body",
					Parameters: []templateParameter{
						{Type: "text", Text: customerName},
						{Type: "text", Text: orderNumber},
						{Type: "text", Text: currency + " " + total},
					},
				},
			},
		},
	}

	var success messagesResponse
	var apiErr apiErrorResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&success).
		SetError(&apiErr).
		Post(fmt.Sprintf("/%s/messages", c.phoneNumberID))

	if err != nil {
		// Сетевые ошибки и таймауты классифицируются так же, как
		// провайдерские: наружу уходит только SendResult
		c.log.Errorw("WhatsApp request failed", "error", err, "to", normalized)
		return SendResult{Success: false, Error: err.Error()}
	}

	if resp.IsError() {
		detail := apiErr.Error.Message
		if detail == "" {
			detail = resp.Status()
		}
		c.log.Warnw("WhatsApp API returned error", "status", resp.StatusCode(), "detail", detail, "to", normalized)
		return SendResult{
			Success: false,
			Error:   fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), detail),
		}
	}

	var messageID string
	if len(success.Messages) > 0 {
		messageID = success.Messages[0].ID
	}

	c.log.Infow("WhatsApp template sent", "to", normalized, "messageID", messageID)
	return SendResult{Success: true, MessageID: messageID}
}
