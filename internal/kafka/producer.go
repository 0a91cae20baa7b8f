package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dhoini/Orders-microservice/internal/models"
	"github.com/Dhoini/Orders-microservice/pkg/logger"
	"github.com/IBM/sarama"
)

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
	TopicOrderWhatsAppSent  = "order.whatsapp_sent"
)

// OrderEvent представляет событие заказа для Kafka
type OrderEvent struct {
	ID             string    `json:"id"`
	ShopifyOrderID string    `json:"shopify_order_id"`
	OrderNumber    string    `json:"order_number"`
	Status         string    `json:"status"`
	TotalPrice     string    `json:"total_price"`
	Currency       string    `json:"currency"`
	WhatsAppSent   bool      `json:"whatsapp_sent"`
	Timestamp      time.Time `json:"timestamp"`
}

// OrderProducer интерфейс для отправки событий заказов
type OrderProducer interface {
	PublishOrderCreated(ctx context.Context, order models.Order) error
	PublishOrderStatusChanged(ctx context.Context, order models.Order) error
	PublishOrderWhatsAppSent(ctx context.Context, order models.Order) error
	Close() error
}

type kafkaOrderProducer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
}

// NewOrderProducer создает новый продюсер событий заказов
func NewOrderProducer(brokers []string, log *logger.Logger) (OrderProducer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are not configured")
	}

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.Infow("Kafka producer initialized", "brokers", brokers)
	return &kafkaOrderProducer{
		producer: producer,
		log:      log,
	}, nil
}

// PublishOrderCreated публикует событие о создании заказа
func (p *kafkaOrderProducer) PublishOrderCreated(ctx context.Context, order models.Order) error {
	return p.publishEvent(ctx, TopicOrderCreated, order)
}

// PublishOrderStatusChanged публикует событие о смене CRM статуса
func (p *kafkaOrderProducer) PublishOrderStatusChanged(ctx context.Context, order models.Order) error {
	return p.publishEvent(ctx, TopicOrderStatusChanged, order)
}

// PublishOrderWhatsAppSent публикует событие об успешной отправке WhatsApp
func (p *kafkaOrderProducer) PublishOrderWhatsAppSent(ctx context.Context, order models.Order) error {
	return p.publishEvent(ctx, TopicOrderWhatsAppSent, order)
}

// publishEvent публикует событие заказа в Kafka.
// Ключ сообщения - внутренний ID заказа: все события одного заказа попадают
// в одну партицию и сохраняют порядок.
func (p *kafkaOrderProducer) publishEvent(_ context.Context, topic string, order models.Order) error {
	event := OrderEvent{
		ID:             order.ID.String(),
		ShopifyOrderID: order.ShopifyOrderID,
		OrderNumber:    order.OrderNumber,
		Status:         order.Status,
		TotalPrice:     order.TotalPrice,
		Currency:       order.Currency,
		WhatsAppSent:   order.WhatsAppSent,
		Timestamp:      time.Now().UTC(),
	}

	messageValue, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(order.ID.String()),
		Value: sarama.ByteEncoder(messageValue),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event_type"),
				Value: []byte(topic),
			},
		},
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish order event: %w", err)
	}

	p.log.Debugw("Published order event", "topic", topic, "partition", partition, "offset", offset)
	return nil
}

// Close закрывает продюсер
func (p *kafkaOrderProducer) Close() error {
	return p.producer.Close()
}
