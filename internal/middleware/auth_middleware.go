package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/Dhoini/Orders-microservice/internal/config"
	"github.com/Dhoini/Orders-microservice/pkg/logger"
	"github.com/Dhoini/Orders-microservice/pkg/res"
	"github.com/gin-gonic/gin"
)

const webhookTokenHeader = "X-Webhook-Token"

// WebhookAuthMiddleware проверяет общий секрет вебхука.
// Make шлет его в заголовке X-Webhook-Token; запрос с отсутствующим или
// неверным токеном отклоняется до какой-либо валидации и персистенции.
type WebhookAuthMiddleware struct {
	secret string
	log    *logger.Logger
}

// NewWebhookAuthMiddleware создает middleware проверки секрета вебхука.
func NewWebhookAuthMiddleware(cfg *config.Config, log *logger.Logger) *WebhookAuthMiddleware {
	if cfg.Webhook.SecretToken == "" {
		// Dev-режим: без настроенного секрета проверка пропускается
		log.Warnw("Webhook secret token is not configured, webhook auth is DISABLED")
	}
	return &WebhookAuthMiddleware{
		secret: cfg.Webhook.SecretToken,
		log:    log,
	}
}

// RequireToken возвращает gin.HandlerFunc с проверкой токена.
func (m *WebhookAuthMiddleware) RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.secret == "" {
			c.Next()
			return
		}

		token := c.GetHeader(webhookTokenHeader)
		// Сравнение за константное время, токен не попадает в логи
		if subtle.ConstantTimeCompare([]byte(token), []byte(m.secret)) != 1 {
			m.log.Warnw("Invalid webhook token received", "path", c.Request.URL.Path, "client_ip", c.ClientIP())
			res.JsonResponse(c.Writer, res.ErrorResponse{
				Error:     "Invalid webhook token",
				ErrorCode: http.StatusUnauthorized,
			}, http.StatusUnauthorized)
			c.Abort()
			return
		}

		c.Next()
	}
}
