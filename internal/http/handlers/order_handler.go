package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Dhoini/Orders-microservice/internal/models"
	"github.com/Dhoini/Orders-microservice/internal/services"
	"github.com/Dhoini/Orders-microservice/pkg/logger"
	"github.com/Dhoini/Orders-microservice/pkg/req"
	"github.com/Dhoini/Orders-microservice/pkg/res"
)

// OrderHandler обрабатывает HTTP запросы панели управления заказами (для Gin).
type OrderHandler struct {
	service *services.OrderService
	log     *logger.Logger
}

// NewOrderHandler создает новый экземпляр OrderHandler.
func NewOrderHandler(service *services.OrderService, log *logger.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		log:     log,
	}
}

// --- DTO ---

type UpdateStatusRequest struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes"`
}

type OrderDetailResponse struct {
	models.Order
	WhatsAppLogs []models.WhatsAppLog `json:"whatsapp_logs"`
}

type ResendResponse struct {
	Success   bool   `json:"success"`
	OrderID   string `json:"order_id"`
	MessageID string `json:"message_id,omitempty"`
}

// --- Обработчики ---

// ListOrders обрабатывает GET /orders.
// Фильтры: ?status=, ?whatsapp_sent=, пагинация ?limit=&offset=.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	ctx := c.Request.Context()

	var filter models.OrderFilter

	if status := c.Query("status"); status != "" {
		if !models.IsValidStatus(status) {
			res.JsonResponse(c.Writer, res.ErrorResponse{
				Error:   "Invalid status filter",
				Details: models.ValidStatuses,
			}, http.StatusBadRequest)
			c.Abort()
			return
		}
		filter.Status = &status
	}

	if sentParam := c.Query("whatsapp_sent"); sentParam != "" {
		sent, err := strconv.ParseBool(sentParam)
		if err != nil {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid whatsapp_sent filter"}, http.StatusBadRequest)
			c.Abort()
			return
		}
		filter.WhatsAppSent = &sent
	}

	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, err := h.service.ListOrders(ctx, filter)
	if err != nil {
		h.log.Errorw("Service failed to list orders", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to retrieve orders"}, http.StatusInternalServerError)
		c.Abort()
		return
	}

	res.JsonResponse(c.Writer, orders, http.StatusOK)
}

// GetOrder обрабатывает GET /orders/:order_id.
// Возвращает заказ вместе с историей отправок WhatsApp.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	order, history, err := h.service.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Order not found"}, http.StatusNotFound)
		} else {
			h.log.Errorw("Service failed to get order", "error", err, "order_id", orderID.String())
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to retrieve order"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	res.JsonResponse(c.Writer, OrderDetailResponse{Order: order, WhatsAppLogs: history}, http.StatusOK)
}

// UpdateStatus обрабатывает PATCH /orders/:order_id/status.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	body, err := req.Decode[UpdateStatusRequest](c.Request.Body)
	if err != nil {
		h.log.Errorw("Failed to decode status update body", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid request format"}, http.StatusUnprocessableEntity)
		c.Abort()
		return
	}

	if err := req.IsValid(body); err != nil {
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid request data", Details: err.Error()}, http.StatusUnprocessableEntity)
		c.Abort()
		return
	}

	order, err := h.service.UpdateStatus(ctx, orderID, body.Status, body.Notes)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidStatus):
			res.JsonResponse(c.Writer, res.ErrorResponse{
				Error:   "Invalid status value",
				Details: models.ValidStatuses,
			}, http.StatusBadRequest)
		case errors.Is(err, services.ErrOrderNotFound):
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Order not found"}, http.StatusNotFound)
		default:
			h.log.Errorw("Service failed to update status", "error", err, "order_id", orderID.String())
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to update order status"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	res.JsonResponse(c.Writer, order, http.StatusOK)
	h.log.Infow("Order status updated", "order_id", orderID.String(), "status", body.Status)
}

// ResendWhatsApp обрабатывает POST /orders/:order_id/resend-whatsapp.
// Ручная отправка не зависит от текущего флага whatsapp_sent.
func (h *OrderHandler) ResendWhatsApp(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	outcome, err := h.service.ResendWhatsApp(ctx, orderID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Order not found"}, http.StatusNotFound)
		case errors.Is(err, services.ErrNoPhone):
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Order has no contact phone"}, http.StatusBadRequest)
		case errors.Is(err, services.ErrWhatsAppSend):
			// Провайдер вернул ошибку; попытка уже записана в историю
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "WhatsApp delivery failed", Details: outcome.Error}, http.StatusBadGateway)
		default:
			h.log.Errorw("Service failed to resend WhatsApp", "error", err, "order_id", orderID.String())
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to resend WhatsApp message"}, http.StatusInternalServerError)
		}
		c.Abort()
		return
	}

	res.JsonResponse(c.Writer, ResendResponse{
		Success:   true,
		OrderID:   orderID.String(),
		MessageID: outcome.MessageID,
	}, http.StatusOK)
	h.log.Infow("WhatsApp message resent", "order_id", orderID.String(), "message_id", outcome.MessageID)
}

// GetStats обрабатывает GET /stats.
func (h *OrderHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := h.service.Stats(ctx)
	if err != nil {
		h.log.Errorw("Service failed to get stats", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to retrieve stats"}, http.StatusInternalServerError)
		c.Abort()
		return
	}

	res.JsonResponse(c.Writer, stats, http.StatusOK)
}

// parseOrderID извлекает и разбирает :order_id из пути.
func (h *OrderHandler) parseOrderID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.Param("order_id")
	orderID, err := uuid.Parse(raw)
	if err != nil {
		h.log.Warnw("Invalid order ID in request path", "order_id", raw)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid order ID"}, http.StatusBadRequest)
		c.Abort()
		return uuid.Nil, false
	}
	return orderID, true
}
