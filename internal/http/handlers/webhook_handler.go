package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Dhoini/Orders-microservice/internal/models"
	"github.com/Dhoini/Orders-microservice/internal/services"
	"github.com/Dhoini/Orders-microservice/pkg/logger"
	"github.com/Dhoini/Orders-microservice/pkg/req"
	"github.com/Dhoini/Orders-microservice/pkg/res"
)

const (
	// Ограничение на размер тела вебхука (типичный заказ Shopify - единицы килобайт)
	maxRequestBodySize = int64(262144)
)

// WebhookHandler обрабатывает входящие вебхуки о заказах Shopify.
type WebhookHandler struct {
	service *services.OrderService
	log     *logger.Logger
}

// NewWebhookHandler создает новый экземпляр WebhookHandler.
func NewWebhookHandler(service *services.OrderService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		log:     log,
	}
}

// WebhookResponse - ответ Make/Shopify на доставку вебхука.
type WebhookResponse struct {
	Success       bool   `json:"success"`
	OrderID       string `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	IsNew         bool   `json:"is_new"`
	WhatsAppSent  bool   `json:"whatsapp_sent"`
	WhatsAppError string `json:"whatsapp_error,omitempty"`
	Message       string `json:"message,omitempty"`
}

// HandleShopifyWebhook обрабатывает POST /api/v1/webhook/shopify.
// Токен уже проверен middleware. Повторная доставка того же заказа
// отвечает 200 с существующим order_id, без побочных эффектов.
func (h *WebhookHandler) HandleShopifyWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	// Читаем тело ОДИН РАЗ, с ограничением размера
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBodySize)

	payload, err := req.Decode[models.ShopifyOrderPayload](c.Request.Body)
	if err != nil {
		h.log.Errorw("Failed to decode webhook body", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid request format"}, http.StatusUnprocessableEntity)
		c.Abort()
		return
	}

	result, err := h.service.IngestOrder(ctx, &payload)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			h.log.Warnw("Webhook payload validation failed", "error", err, "shopify_order_id", payload.ShopifyOrderID)
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid order payload", Details: err.Error()}, http.StatusUnprocessableEntity)
		} else {
			h.log.Errorw("Service failed to ingest order", "error", err, "shopify_order_id", payload.ShopifyOrderID)
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to process order"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	response := WebhookResponse{
		Success:       true,
		OrderID:       result.Order.ID.String(),
		OrderNumber:   result.Order.OrderNumber,
		IsNew:         result.IsNew,
		WhatsAppSent:  result.WhatsAppSent,
		WhatsAppError: result.WhatsAppError,
	}
	if !result.IsNew {
		response.Message = "Order already processed"
	}

	res.JsonResponse(c.Writer, response, http.StatusOK)
	h.log.Infow("Webhook processed",
		"order_id", result.Order.ID.String(),
		"order_number", result.Order.OrderNumber,
		"is_new", result.IsNew,
		"whatsapp_sent", result.WhatsAppSent,
	)
}
