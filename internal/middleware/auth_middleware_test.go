package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Dhoini/Orders-microservice/internal/config"
	"github.com/Dhoini/Orders-microservice/pkg/logger"
)

func setupAuthRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Webhook.SecretToken = secret

	auth := NewWebhookAuthMiddleware(cfg, logger.New(logger.ERROR))

	router := gin.New()
	router.POST("/webhook", auth.RequireToken(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestWebhookAuth(t *testing.T) {
	t.Run("верный токен пропускается", func(t *testing.T) {
		router := setupAuthRouter("s3cret")

		req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
		req.Header.Set("X-Webhook-Token", "s3cret")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("неверный токен отклоняется", func(t *testing.T) {
		router := setupAuthRouter("s3cret")

		req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
		req.Header.Set("X-Webhook-Token", "wrong")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("отсутствующий токен отклоняется", func(t *testing.T) {
		router := setupAuthRouter("s3cret")

		req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("пустой секрет отключает проверку", func(t *testing.T) {
		router := setupAuthRouter("")

		req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
