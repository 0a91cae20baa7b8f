package app

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Dhoini/Orders-microservice/internal/config"
	"github.com/Dhoini/Orders-microservice/internal/http/handlers"
	"github.com/Dhoini/Orders-microservice/internal/middleware"
	"github.com/Dhoini/Orders-microservice/internal/services"
	"github.com/Dhoini/Orders-microservice/pkg/logger"
)

// App представляет собой контейнер для всех компонентов приложения
type App struct {
	Config            *config.Config
	OrderService      *services.OrderService
	OrderHandler      *handlers.OrderHandler
	WebhookHandler    *handlers.WebhookHandler
	WebhookAuth       *middleware.WebhookAuthMiddleware
	LoggerMiddleware  gin.HandlerFunc
	MetricsMiddleware gin.HandlerFunc
	Registry          *prometheus.Registry
	Logger            *logger.Logger
}

// NewApp создает и инициализирует новый экземпляр приложения
func NewApp(cfg *config.Config, orderService *services.OrderService, registry *prometheus.Registry, log *logger.Logger) *App {
	// Инициализируем обработчики HTTP
	orderHandler := handlers.NewOrderHandler(orderService, log)
	webhookHandler := handlers.NewWebhookHandler(orderService, log)

	// Инициализируем middleware проверки секрета вебхука
	webhookAuth := middleware.NewWebhookAuthMiddleware(cfg, log)

	// Инициализируем middleware логирования и метрик
	loggerMiddleware := middleware.RequestLogger(log)
	metricsMiddleware := middleware.HTTPMetrics(registry)

	return &App{
		Config:            cfg,
		OrderService:      orderService,
		OrderHandler:      orderHandler,
		WebhookHandler:    webhookHandler,
		WebhookAuth:       webhookAuth,
		LoggerMiddleware:  loggerMiddleware,
		MetricsMiddleware: metricsMiddleware,
		Registry:          registry,
		Logger:            log,
	}
}
