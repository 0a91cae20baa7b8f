package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhoini/Orders-microservice/internal/config"
	"github.com/Dhoini/Orders-microservice/internal/models"
	"github.com/Dhoini/Orders-microservice/internal/repository"
	"github.com/Dhoini/Orders-microservice/internal/services"
	"github.com/Dhoini/Orders-microservice/internal/whatsapp"
	"github.com/Dhoini/Orders-microservice/pkg/logger"
)

// --- Минимальные in-memory реализации для сборки сервиса ---

type memOrderRepo struct {
	byID        map[uuid.UUID]models.Order
	byShopifyID map[string]uuid.UUID
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{byID: map[uuid.UUID]models.Order{}, byShopifyID: map[string]uuid.UUID{}}
}

func (r *memOrderRepo) CreateIfAbsent(_ context.Context, order models.Order) (models.Order, bool, error) {
	if id, ok := r.byShopifyID[order.ShopifyOrderID]; ok {
		return r.byID[id], false, nil
	}
	r.byID[order.ID] = order
	r.byShopifyID[order.ShopifyOrderID] = order.ID
	return order, true, nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id uuid.UUID) (models.Order, error) {
	order, ok := r.byID[id]
	if !ok {
		return models.Order{}, repository.ErrNotFound
	}
	return order, nil
}

func (r *memOrderRepo) List(_ context.Context, filter models.OrderFilter) ([]models.Order, error) {
	out := []models.Order{}
	for _, order := range r.byID {
		if filter.Status != nil && order.Status != *filter.Status {
			continue
		}
		if filter.WhatsAppSent != nil && order.WhatsAppSent != *filter.WhatsAppSent {
			continue
		}
		out = append(out, order)
	}
	return out, nil
}

func (r *memOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string, notes *string) (models.Order, error) {
	order, ok := r.byID[id]
	if !ok {
		return models.Order{}, repository.ErrNotFound
	}
	order.Status = status
	if notes != nil {
		order.Notes = *notes
	}
	r.byID[id] = order
	return order, nil
}

func (r *memOrderRepo) MarkWhatsAppSent(_ context.Context, id uuid.UUID, success bool) error {
	order, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	order.WhatsAppSent = success
	r.byID[id] = order
	return nil
}

func (r *memOrderRepo) Stats(_ context.Context) (models.DashboardStats, error) {
	stats := models.DashboardStats{}
	for _, order := range r.byID {
		stats.TotalOrders++
		if order.Status == models.StatusNuevo {
			stats.NewOrders++
		}
		if order.Status == models.StatusEnviado {
			stats.ShippedOrders++
		}
		if !order.WhatsAppSent {
			stats.PendingWhatsApp++
		}
	}
	return stats, nil
}

type memCustomerRepo struct {
	byEmail map[string]models.Customer
}

func (r *memCustomerRepo) Upsert(_ context.Context, name, email, phone string) (models.Customer, error) {
	customer, ok := r.byEmail[email]
	if !ok {
		emailCopy := email
		customer = models.Customer{ID: uuid.New(), Name: name, Email: &emailCopy, Phone: phone}
	}
	r.byEmail[email] = customer
	return customer, nil
}

func (r *memCustomerRepo) GetByEmail(_ context.Context, email string) (models.Customer, error) {
	customer, ok := r.byEmail[email]
	if !ok {
		return models.Customer{}, repository.ErrNotFound
	}
	return customer, nil
}

type memLogRepo struct {
	entries []models.WhatsAppLog
}

func (r *memLogRepo) Record(_ context.Context, entry models.WhatsAppLog) (models.WhatsAppLog, error) {
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *memLogRepo) History(_ context.Context, orderID uuid.UUID) ([]models.WhatsAppLog, error) {
	out := []models.WhatsAppLog{}
	for _, entry := range r.entries {
		if entry.OrderID == orderID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type stubWAClient struct {
	result whatsapp.SendResult
}

func (c *stubWAClient) SendOrderConfirmation(context.Context, string, string, string, string, string) whatsapp.SendResult {
	return c.result
}

type noopMetrics struct{}

func (noopMetrics) IncOrderIngested(string)  {}
func (noopMetrics) IncOrderReplayed()        {}
func (noopMetrics) IncWhatsAppSent(string)   {}
func (noopMetrics) IncWhatsAppFailed(string) {}
func (noopMetrics) IncStatusUpdated(string)  {}

type handlerFixture struct {
	router *gin.Engine
	orders *memOrderRepo
	wa     *stubWAClient
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.WhatsApp.TimeoutSeconds = 5

	log := logger.New(logger.ERROR)
	orders := newMemOrderRepo()
	wa := &stubWAClient{result: whatsapp.SendResult{Success: true, MessageID: "wamid.OK"}}

	service := services.NewOrderService(cfg, orders, &memCustomerRepo{byEmail: map[string]models.Customer{}}, &memLogRepo{}, wa, nil, noopMetrics{}, log)

	webhookHandler := NewWebhookHandler(service, log)
	orderHandler := NewOrderHandler(service, log)

	router := gin.New()
	api := router.Group("/api/v1")
	api.POST("/webhook/shopify", webhookHandler.HandleShopifyWebhook)
	api.GET("/orders", orderHandler.ListOrders)
	api.GET("/orders/:order_id", orderHandler.GetOrder)
	api.PATCH("/orders/:order_id/status", orderHandler.UpdateStatus)
	api.POST("/orders/:order_id/resend-whatsapp", orderHandler.ResendWhatsApp)
	api.GET("/stats", orderHandler.GetStats)

	return &handlerFixture{router: router, orders: orders, wa: wa}
}

func (f *handlerFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func webhookBody() map[string]any {
	return map[string]any{
		"shopify_order_id": "5678901234",
		"order_number":     "#1001",
		"customer": map[string]any{
			"first_name": "Maria",
			"last_name":  "Lopez",
			"email":      "maria@example.com",
			"phone":      "+573001234567",
		},
		"line_items": []map[string]any{
			{"name": "Camiseta", "quantity": 2, "price": "44950.00"},
		},
		"total_price": "89900.00",
		"currency":    "COP",
	}
}

func (f *handlerFixture) ingest(t *testing.T) uuid.UUID {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/webhook/shopify", webhookBody())
	require.Equal(t, http.StatusOK, rec.Code)

	var resp WebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	id, err := uuid.Parse(resp.OrderID)
	require.NoError(t, err)
	return id
}

// --- Вебхук ---

func TestHandleShopifyWebhook(t *testing.T) {
	t.Run("новый заказ", func(t *testing.T) {
		f := newHandlerFixture(t)

		rec := f.do(t, http.MethodPost, "/api/v1/webhook/shopify", webhookBody())
		require.Equal(t, http.StatusOK, rec.Code)

		var resp WebhookResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.True(t, resp.IsNew)
		assert.True(t, resp.WhatsAppSent)
		assert.Equal(t, "#1001", resp.OrderNumber)
	})

	t.Run("повторная доставка отвечает 200 с тем же заказом", func(t *testing.T) {
		f := newHandlerFixture(t)
		orderID := f.ingest(t)

		rec := f.do(t, http.MethodPost, "/api/v1/webhook/shopify", webhookBody())
		require.Equal(t, http.StatusOK, rec.Code)

		var resp WebhookResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.IsNew)
		assert.Equal(t, orderID.String(), resp.OrderID)
	})

	t.Run("невалидный payload отклоняется 422", func(t *testing.T) {
		f := newHandlerFixture(t)

		body := webhookBody()
		delete(body, "total_price")

		rec := f.do(t, http.MethodPost, "/api/v1/webhook/shopify", body)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("битый JSON отклоняется 422", func(t *testing.T) {
		f := newHandlerFixture(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/shopify", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("ошибка провайдера не ломает инжест", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.wa.result = whatsapp.SendResult{Success: false, Error: "HTTP 500: provider down"}

		rec := f.do(t, http.MethodPost, "/api/v1/webhook/shopify", webhookBody())
		require.Equal(t, http.StatusOK, rec.Code)

		var resp WebhookResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.False(t, resp.WhatsAppSent)
		assert.Contains(t, resp.WhatsAppError, "provider down")
	})
}

// --- Заказы ---

func TestGetOrder(t *testing.T) {
	f := newHandlerFixture(t)
	orderID := f.ingest(t)

	rec := f.do(t, http.MethodGet, "/api/v1/orders/"+orderID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp OrderDetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, orderID, resp.ID)
	assert.Len(t, resp.WhatsAppLogs, 1)

	t.Run("несуществующий заказ", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("невалидный ID", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/orders/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListOrders(t *testing.T) {
	f := newHandlerFixture(t)
	f.ingest(t)

	rec := f.do(t, http.MethodGet, "/api/v1/orders?status=nuevo&whatsapp_sent=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var orders []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	assert.Len(t, orders, 1)

	t.Run("невалидный фильтр статуса", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/orders?status=pendiente", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("невалидный фильтр whatsapp_sent", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/orders?whatsapp_sent=maybe", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdateStatusHandler(t *testing.T) {
	f := newHandlerFixture(t)
	orderID := f.ingest(t)

	t.Run("валидный переход", func(t *testing.T) {
		rec := f.do(t, http.MethodPatch, "/api/v1/orders/"+orderID.String()+"/status", map[string]any{"status": "enviado"})
		require.Equal(t, http.StatusOK, rec.Code)

		var order models.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
		assert.Equal(t, models.StatusEnviado, order.Status)
	})

	t.Run("статус вне перечисления", func(t *testing.T) {
		rec := f.do(t, http.MethodPatch, "/api/v1/orders/"+orderID.String()+"/status", map[string]any{"status": "pendiente"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("тело без статуса", func(t *testing.T) {
		rec := f.do(t, http.MethodPatch, "/api/v1/orders/"+orderID.String()+"/status", map[string]any{"notes": "solo nota"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("несуществующий заказ", func(t *testing.T) {
		rec := f.do(t, http.MethodPatch, "/api/v1/orders/"+uuid.NewString()+"/status", map[string]any{"status": "enviado"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestResendWhatsAppHandler(t *testing.T) {
	t.Run("успешная переотправка", func(t *testing.T) {
		f := newHandlerFixture(t)
		orderID := f.ingest(t)

		rec := f.do(t, http.MethodPost, "/api/v1/orders/"+orderID.String()+"/resend-whatsapp", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ResendResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "wamid.OK", resp.MessageID)
	})

	t.Run("несуществующий заказ", func(t *testing.T) {
		f := newHandlerFixture(t)

		rec := f.do(t, http.MethodPost, "/api/v1/orders/"+uuid.NewString()+"/resend-whatsapp", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("заказ без телефона", func(t *testing.T) {
		f := newHandlerFixture(t)

		body := webhookBody()
		body["customer"] = map[string]any{"email": "maria@example.com"}
		rec := f.do(t, http.MethodPost, "/api/v1/webhook/shopify", body)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp WebhookResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		rec = f.do(t, http.MethodPost, "/api/v1/orders/"+resp.OrderID+"/resend-whatsapp", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ошибка провайдера дает 502", func(t *testing.T) {
		f := newHandlerFixture(t)
		orderID := f.ingest(t)

		f.wa.result = whatsapp.SendResult{Success: false, Error: "HTTP 429: rate limited"}

		rec := f.do(t, http.MethodPost, "/api/v1/orders/"+orderID.String()+"/resend-whatsapp", nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestGetStats(t *testing.T) {
	f := newHandlerFixture(t)
	f.ingest(t)

	rec := f.do(t, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats models.DashboardStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalOrders)
	assert.Equal(t, int64(1), stats.NewOrders)
	assert.Equal(t, int64(0), stats.PendingWhatsApp)
}
