package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dhoini/Orders-microservice/internal/app"
	"github.com/Dhoini/Orders-microservice/pkg/logger"
)

// SetupRoutes настраивает все маршруты API для Gin роутера
func SetupRoutes(router *gin.Engine, app *app.App, log *logger.Logger) {
	// Промежуточное ПО для всех запросов
	router.Use(app.LoggerMiddleware)
	router.Use(app.MetricsMiddleware)
	router.Use(gin.Recovery())

	// Метрики Prometheus
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})))

	// Группа API
	api := router.Group("/api/v1")
	{
		// Здоровье сервиса
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{"status": "ok"})
		})

		// Вебхуки (защищены общим секретом)
		webhook := api.Group("/webhook")
		webhook.Use(app.WebhookAuth.RequireToken())
		{
			// Новый заказ из Shopify (через Make)
			webhook.POST("/shopify", app.WebhookHandler.HandleShopifyWebhook)
		}

		// Заказы (панель управления)
		orders := api.Group("/orders")
		{
			// Список заказов с фильтрами
			orders.GET("", app.OrderHandler.ListOrders)

			// Получить заказ с историей отправок
			orders.GET("/:order_id", app.OrderHandler.GetOrder)

			// Сменить CRM-статус заказа
			orders.PATCH("/:order_id/status", app.OrderHandler.UpdateStatus)

			// Повторная отправка WhatsApp-подтверждения
			orders.POST("/:order_id/resend-whatsapp", app.OrderHandler.ResendWhatsApp)
		}

		// Сводная статистика для панели
		api.GET("/stats", app.OrderHandler.GetStats)
	}

	log.Infow("API routes successfully configured")
}
