package metrics

import (
	"github.com/Dhoini/Orders-microservice/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OrderMetrics интерфейс для метрик пайплайна заказов
type OrderMetrics interface {
	IncOrderIngested(currency string)
	IncOrderReplayed()
	IncWhatsAppSent(trigger string)
	IncWhatsAppFailed(trigger string)
	IncStatusUpdated(status string)
}

type orderMetrics struct {
	log             *logger.Logger
	ordersIngested  *prometheus.CounterVec
	ordersReplayed  prometheus.Counter
	whatsappResults *prometheus.CounterVec
	statusUpdates   *prometheus.CounterVec
}

// NewOrderMetrics создает новые метрики пайплайна заказов
func NewOrderMetrics(registry *prometheus.Registry, log *logger.Logger) OrderMetrics {
	ordersIngested := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_ingested_total",
			Help: "The total number of newly ingested orders",
		},
		[]string{"currency"},
	)

	ordersReplayed := promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "orders_replayed_total",
			Help: "The total number of duplicate webhook deliveries that were no-ops",
		},
	)

	whatsappResults := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "whatsapp_dispatch_total",
			Help: "The total number of WhatsApp dispatch attempts by result and trigger",
		},
		[]string{"result", "trigger"},
	)

	statusUpdates := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_status_updates_total",
			Help: "The total number of CRM status updates",
		},
		[]string{"status"},
	)

	return &orderMetrics{
		log:             log,
		ordersIngested:  ordersIngested,
		ordersReplayed:  ordersReplayed,
		whatsappResults: whatsappResults,
		statusUpdates:   statusUpdates,
	}
}

// IncOrderIngested увеличивает счетчик принятых заказов
func (m *orderMetrics) IncOrderIngested(currency string) {
	m.ordersIngested.WithLabelValues(currency).Inc()
}

// IncOrderReplayed увеличивает счетчик повторных доставок вебхука
func (m *orderMetrics) IncOrderReplayed() {
	m.ordersReplayed.Inc()
}

// IncWhatsAppSent увеличивает счетчик успешных отправок.
// trigger: "auto" для вебхука, "resend" для ручной отправки.
func (m *orderMetrics) IncWhatsAppSent(trigger string) {
	m.whatsappResults.WithLabelValues("success", trigger).Inc()
}

// IncWhatsAppFailed увеличивает счетчик неудачных отправок
func (m *orderMetrics) IncWhatsAppFailed(trigger string) {
	m.whatsappResults.WithLabelValues("failure", trigger).Inc()
}

// IncStatusUpdated увеличивает счетчик смен статуса
func (m *orderMetrics) IncStatusUpdated(status string) {
	m.statusUpdates.WithLabelValues(status).Inc()
}
