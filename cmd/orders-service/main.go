package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Dhoini/Orders-microservice/internal/app"
	"github.com/Dhoini/Orders-microservice/internal/config"
	"github.com/Dhoini/Orders-microservice/internal/http/routes"
	"github.com/Dhoini/Orders-microservice/internal/kafka"
	"github.com/Dhoini/Orders-microservice/internal/metrics"
	"github.com/Dhoini/Orders-microservice/internal/repository"
	"github.com/Dhoini/Orders-microservice/internal/repository/postgres"
	"github.com/Dhoini/Orders-microservice/internal/services"
	"github.com/Dhoini/Orders-microservice/internal/whatsapp"
	"github.com/Dhoini/Orders-microservice/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Инициализируем логгер
	log := initLogger()

	log.Infow("Orders microservice starting up...")

	// Загружаем конфигурацию
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalw("Failed to load configuration", "error", err)
	}
	if cfg.Webhook.SecretToken == "" {
		log.Warnw("Webhook secret token is not set, webhook endpoint is unprotected!")
	}
	if cfg.WhatsApp.AccessToken == "" {
		log.Warnw("WhatsApp access token is not set, messages will not be delivered!")
	}

	// Устанавливаем режим Gin в зависимости от окружения
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Подключаемся к базе данных
	pool, err := postgres.NewConnection(ctx, cfg.Database.DSN, log)
	if err != nil {
		log.Fatalw("Failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Infow("Database connection established")

	// Создаем недостающие таблицы и индексы
	if err := postgres.EnsureSchema(ctx, pool, log); err != nil {
		log.Fatalw("Failed to ensure database schema", "error", err)
	}

	// Инициализируем Redis кеш
	redisCache, err := repository.NewRedisCacheRepository(
		cfg.Redis.Addr,
		cfg.Redis.Password,
		cfg.Redis.DB,
		log,
	)
	if err != nil {
		// Не фатально, но предупреждаем
		log.Warnw("Failed to initialize Redis cache, continuing without caching", "error", err)
		redisCache = nil
	} else {
		log.Infow("Redis cache initialized successfully")
		defer func() {
			if err := redisCache.Close(); err != nil {
				log.Errorw("Error closing Redis connection", "error", err)
			}
		}()
	}

	// Инициализируем репозитории
	baseOrderRepo := postgres.NewPostgresOrderRepository(pool, log)
	customerRepo := postgres.NewPostgresCustomerRepository(pool, log)
	whatsappLogRepo := postgres.NewPostgresWhatsAppLogRepository(pool, log)

	// Оборачиваем репозиторий заказов кешем, если Redis доступен
	var orderRepo repository.OrderRepository
	if redisCache != nil {
		orderRepo = repository.NewCachedOrderRepository(baseOrderRepo, redisCache, log)
		log.Infow("Using cached order repository")
	} else {
		orderRepo = baseOrderRepo
		log.Infow("Using non-cached order repository")
	}

	// Инициализируем клиент WhatsApp (Meta Cloud API)
	waClient := whatsapp.NewClient(cfg, log)

	// Инициализируем Kafka Producer
	kafkaProducer, err := kafka.NewOrderProducer(cfg.Kafka.Brokers, log)
	if err != nil {
		// Отправка событий не критична для основного флоу
		log.Errorw("Failed to initialize Kafka producer, continuing without event publishing", "error", err)
		kafkaProducer = nil
	} else {
		log.Infow("Kafka producer initialized")
		defer func() {
			if err := kafkaProducer.Close(); err != nil {
				log.Errorw("Error closing Kafka producer", "error", err)
			}
		}()
	}

	// Инициализируем метрики
	registry := prometheus.NewRegistry()
	orderMetrics := metrics.NewOrderMetrics(registry, log)

	// Инициализируем service layer
	orderService := services.NewOrderService(cfg, orderRepo, customerRepo, whatsappLogRepo, waClient, kafkaProducer, orderMetrics, log)

	// Инициализируем application (для HTTP)
	application := app.NewApp(cfg, orderService, registry, log)

	// Инициализируем HTTP сервер с роутами
	router := gin.New()
	routes.SetupRoutes(router, application, log)

	httpServer := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Запускаем HTTP сервер в горутине
	go func() {
		log.Infow("Starting HTTP server", "port", cfg.App.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("Failed to start HTTP server", "error", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Infow("Shutdown signal received")

	// Даем 10 секунд на завершение текущих запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	log.Infow("Shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown error", "error", err)
	} else {
		log.Infow("HTTP server gracefully stopped")
	}

	log.Infow("Cleanup finished. Goodbye!")
}

// initLogger инициализирует новый логгер
func initLogger() *logger.Logger {
	logLevel := logger.INFO
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = logger.DEBUG
	}
	return logger.New(logLevel)
}
