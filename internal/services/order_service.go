package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dhoini/Orders-microservice/internal/config"
	"github.com/Dhoini/Orders-microservice/internal/kafka"
	"github.com/Dhoini/Orders-microservice/internal/metrics"
	"github.com/Dhoini/Orders-microservice/internal/models"
	"github.com/Dhoini/Orders-microservice/internal/repository"
	"github.com/Dhoini/Orders-microservice/internal/whatsapp"
	"github.com/Dhoini/Orders-microservice/pkg/logger"
	"github.com/google/uuid"
)

// --- Определения кастомных ошибок сервиса ---
var (
	ErrInvalidInput  = errors.New("invalid order payload")   // Ошибка валидации входных данных
	ErrOrderNotFound = errors.New("order not found")         // Заказ не найден
	ErrInvalidStatus = errors.New("invalid order status")    // Статус вне перечисления
	ErrNoPhone       = errors.New("order has no phone")      // У заказа нет контактного номера
	ErrWhatsAppSend  = errors.New("whatsapp delivery failed") // Провайдер вернул ошибку (ручная отправка)
)

// Триггеры отправки для метрик и логов.
const (
	triggerAuto   = "auto"
	triggerResend = "resend"
)

// noPhoneNote внутренняя пометка для заказов без контактного номера.
const noPhoneNote = "Sin número de contacto, WhatsApp omitido"

// IngestResult итог обработки вебхука.
type IngestResult struct {
	Order         models.Order
	IsNew         bool
	WhatsAppSent  bool
	WhatsAppError string
}

// OrderService оркестратор пайплайна: валидация → клиент → телефон →
// идемпотентный заказ → WhatsApp → журнал.
type OrderService struct {
	cfg          *config.Config
	orderRepo    repository.OrderRepository
	customerRepo repository.CustomerRepository
	logRepo      repository.WhatsAppLogRepository
	waClient     whatsapp.Client
	producer     kafka.OrderProducer // Может быть nil, если Kafka недоступен
	metrics      metrics.OrderMetrics
	log          *logger.Logger
}

// NewOrderService конструктор сервиса
func NewOrderService(
	cfg *config.Config,
	orderRepo repository.OrderRepository,
	customerRepo repository.CustomerRepository,
	logRepo repository.WhatsAppLogRepository,
	waClient whatsapp.Client,
	producer kafka.OrderProducer, // Принимаем интерфейс, может быть nil
	m metrics.OrderMetrics,
	log *logger.Logger,
) *OrderService {
	if producer == nil {
		log.Warnw("Kafka producer is nil, event publishing will be skipped")
	}
	return &OrderService{
		cfg:          cfg,
		orderRepo:    orderRepo,
		customerRepo: customerRepo,
		logRepo:      logRepo,
		waClient:     waClient,
		producer:     producer,
		metrics:      m,
		log:          log,
	}
}

// IngestOrder обрабатывает вебхук Shopify.
//
// Повторная доставка того же shopify_order_id это полный no-op: существующий
// заказ возвращается как есть, без отправки и без записи в журнал.
// Ошибка провайдера НЕ является ошибкой инжеста: заказ уже сохранен,
// итог отправки фиксируется в журнале, оператор может переотправить вручную.
func (s *OrderService) IngestOrder(ctx context.Context, payload *models.ShopifyOrderPayload) (*IngestResult, error) {
	if err := payload.Validate(); err != nil {
		s.log.Warnw("Order payload rejected", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	customerName := payload.CustomerFullName()

	var customerEmail, customerPhone string
	if payload.Customer != nil {
		customerEmail = strings.TrimSpace(payload.Customer.Email)
		customerPhone = payload.Customer.Phone
	}
	var shippingPhone string
	if payload.ShippingAddress != nil {
		shippingPhone = payload.ShippingAddress.Phone
	}

	// Единственный источник истины для "можем ли мы написать клиенту"
	phone := whatsapp.ResolvePhone(customerPhone, shippingPhone)

	// Клиент персистится только при наличии email: без него дедупликация
	// невозможна, ссылка остается пустой
	var customerID *uuid.UUID
	if customerEmail != "" {
		customer, err := s.customerRepo.Upsert(ctx, customerName, customerEmail, phone)
		if err != nil {
			s.log.Errorw("Failed to upsert customer", "error", err, "email", customerEmail)
			return nil, fmt.Errorf("failed to upsert customer: %w", err)
		}
		customerID = &customer.ID
	}

	notes := payload.Note
	if phone == "" {
		// Пометка для оператора: заказ пришел без контактного номера
		if notes != "" {
			notes = notes + "\n" + noPhoneNote
		} else {
			notes = noPhoneNote
		}
	}

	now := time.Now().UTC()
	order := models.Order{
		ID:                uuid.New(),
		ShopifyOrderID:    payload.ShopifyOrderID,
		OrderNumber:       payload.OrderNumber,
		CustomerID:        customerID,
		CustomerName:      customerName,
		CustomerEmail:     customerEmail,
		CustomerPhone:     phone,
		ShippingAddress:   payload.ShippingAddress,
		LineItems:         payload.LineItems,
		TotalPrice:        payload.TotalPrice,
		Currency:          currencyOrDefault(payload.Currency),
		FinancialStatus:   payload.FinancialStatus,
		FulfillmentStatus: payload.FulfillmentStatus,
		Status:            models.StatusNuevo,
		WhatsAppSent:      false,
		Notes:             notes,
		Tags:              payload.Tags,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	saved, isNew, err := s.orderRepo.CreateIfAbsent(ctx, order)
	if err != nil {
		s.log.Errorw("Failed to upsert order", "error", err, "shopifyOrderID", payload.ShopifyOrderID)
		return nil, fmt.Errorf("failed to upsert order: %w", err)
	}

	if !isNew {
		s.log.Infow("Duplicate webhook delivery, order already exists",
			"shopifyOrderID", saved.ShopifyOrderID, "orderID", saved.ID)
		s.metrics.IncOrderReplayed()
		return &IngestResult{Order: saved, IsNew: false}, nil
	}

	s.metrics.IncOrderIngested(saved.Currency)
	s.publishEvent(ctx, kafka.TopicOrderCreated, saved)

	result := &IngestResult{Order: saved, IsNew: true}

	if phone == "" {
		s.log.Warnw("Order has no contact number, WhatsApp skipped",
			"orderNumber", saved.OrderNumber, "orderID", saved.ID)
		return result, nil
	}

	outcome := s.dispatch(ctx, &saved, phone, triggerAuto)
	result.Order = saved
	result.WhatsAppSent = outcome.Success
	if !outcome.Success {
		result.WhatsAppError = outcome.Error
	}

	return result, nil
}

// ResendWhatsApp вручную переотправляет подтверждение по уже сохраненному
// заказу. Выполняется независимо от флага whatsapp_sent и прежней истории,
// всегда добавляя новую запись в журнал.
func (s *OrderService) ResendWhatsApp(ctx context.Context, orderID uuid.UUID) (whatsapp.SendResult, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return whatsapp.SendResult{}, ErrOrderNotFound
		}
		return whatsapp.SendResult{}, fmt.Errorf("failed to load order: %w", err)
	}

	// Телефон восстанавливается из сохраненных полей заказа, не из upstream
	var shippingPhone string
	if order.ShippingAddress != nil {
		shippingPhone = order.ShippingAddress.Phone
	}
	phone := whatsapp.ResolvePhone(order.CustomerPhone, shippingPhone)
	if phone == "" {
		return whatsapp.SendResult{}, ErrNoPhone
	}

	outcome := s.dispatch(ctx, &order, phone, triggerResend)
	if !outcome.Success {
		return outcome, fmt.Errorf("%w: %s", ErrWhatsAppSend, outcome.Error)
	}
	return outcome, nil
}

// dispatch отправляет шаблон и фиксирует итог: запись в журнал, флаг на
// заказе, метрики, событие. Ошибки персистенции итога не поднимаются выше:
// заказ уже существует, а история доступна оператору для ручной реакции.
func (s *OrderService) dispatch(ctx context.Context, order *models.Order, phone, trigger string) whatsapp.SendResult {
	customerName := order.CustomerName
	if customerName == "" {
		customerName = "Cliente"
	}

	// Ограничиваем ожидание провайдера: истечение контекста
	// классифицируется как failure, а не как зависание
	sendCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.WhatsApp.TimeoutSeconds)*time.Second)
	defer cancel()

	outcome := s.waClient.SendOrderConfirmation(sendCtx, phone, customerName, order.OrderNumber, order.TotalPrice, order.Currency)

	if outcome.Success {
		s.log.Infow("WhatsApp sent", "orderID", order.ID, "messageID", outcome.MessageID, "trigger", trigger)
		s.metrics.IncWhatsAppSent(trigger)
	} else {
		s.log.Warnw("WhatsApp dispatch failed", "orderID", order.ID, "error", outcome.Error, "trigger", trigger)
		s.metrics.IncWhatsAppFailed(trigger)
	}

	entry := buildLogEntry(order.ID, outcome)
	if _, err := s.logRepo.Record(ctx, entry); err != nil {
		s.log.Errorw("Failed to record whatsapp log entry", "error", err, "orderID", order.ID)
	}

	if err := s.orderRepo.MarkWhatsAppSent(ctx, order.ID, outcome.Success); err != nil {
		s.log.Errorw("Failed to mark whatsapp result on order", "error", err, "orderID", order.ID)
	} else {
		order.WhatsAppSent = outcome.Success
		if outcome.Success {
			now := time.Now().UTC()
			order.WhatsAppSentAt = &now
		}
	}

	if outcome.Success {
		s.publishEvent(ctx, kafka.TopicOrderWhatsAppSent, *order)
	}

	return outcome
}

// UpdateStatus меняет CRM статус заказа; notes заменяет заметку целиком.
// Единственный жесткий инвариант: членство статуса в перечислении,
// последовательность переходов остается на усмотрение оператора.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string, notes *string) (models.Order, error) {
	if !models.IsValidStatus(status) {
		return models.Order{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	order, err := s.orderRepo.UpdateStatus(ctx, orderID, status, notes)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Order{}, ErrOrderNotFound
		}
		return models.Order{}, fmt.Errorf("failed to update order status: %w", err)
	}

	s.metrics.IncStatusUpdated(status)
	s.publishEvent(ctx, kafka.TopicOrderStatusChanged, order)

	s.log.Infow("Order status updated", "orderID", orderID, "status", status)
	return order, nil
}

// GetOrder возвращает заказ вместе с полной историей отправок.
func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (models.Order, []models.WhatsAppLog, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Order{}, nil, ErrOrderNotFound
		}
		return models.Order{}, nil, fmt.Errorf("failed to load order: %w", err)
	}

	history, err := s.logRepo.History(ctx, orderID)
	if err != nil {
		return models.Order{}, nil, fmt.Errorf("failed to load whatsapp history: %w", err)
	}

	return order, history, nil
}

// ListOrders возвращает заказы по фильтру, новые первыми.
func (s *OrderService) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	return s.orderRepo.List(ctx, filter)
}

// Stats возвращает агрегаты для дашборда.
func (s *OrderService) Stats(ctx context.Context) (models.DashboardStats, error) {
	return s.orderRepo.Stats(ctx)
}

// publishEvent отправляет событие в Kafka, если продюсер доступен.
// Сбой публикации не влияет на итог запроса.
func (s *OrderService) publishEvent(ctx context.Context, topic string, order models.Order) {
	if s.producer == nil {
		return
	}

	var err error
	switch topic {
	case kafka.TopicOrderCreated:
		err = s.producer.PublishOrderCreated(ctx, order)
	case kafka.TopicOrderStatusChanged:
		err = s.producer.PublishOrderStatusChanged(ctx, order)
	case kafka.TopicOrderWhatsAppSent:
		err = s.producer.PublishOrderWhatsAppSent(ctx, order)
	}
	if err != nil {
		s.log.Errorw("Failed to publish order event", "error", err, "topic", topic, "orderID", order.ID)
	}
}

func buildLogEntry(orderID uuid.UUID, outcome whatsapp.SendResult) models.WhatsAppLog {
	entry := models.WhatsAppLog{
		ID:      uuid.New(),
		OrderID: orderID,
		Success: outcome.Success,
		SentAt:  time.Now().UTC(),
	}
	if outcome.Success {
		if outcome.MessageID != "" {
			messageID := outcome.MessageID
			entry.MessageID = &messageID
		}
	} else {
		errorMessage := outcome.Error
		entry.ErrorMessage = &errorMessage
	}
	return entry
}

func currencyOrDefault(currency string) string {
	if strings.TrimSpace(currency) == "" {
		return "COP"
	}
	return currency
}
