package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhoini/Orders-microservice/internal/config"
	"github.com/Dhoini/Orders-microservice/pkg/logger"
)

func newTestConfig(apiURL string) *config.Config {
	cfg := &config.Config{}
	cfg.WhatsApp.APIURL = apiURL
	cfg.WhatsApp.PhoneNumberID = "111222333"
	cfg.WhatsApp.AccessToken = "test-token"
	cfg.WhatsApp.TemplateName = "order_confirmation"
	cfg.WhatsApp.TemplateLanguage = "es"
	cfg.WhatsApp.TimeoutSeconds = 5
	return cfg
}

func TestSendOrderConfirmation_Success(t *testing.T) {
	var captured templateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/111222333/messages", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]string{{"id": "wamid.ABC123"}},
		})
	}))
	defer server.Close()

	client := NewClient(newTestConfig(server.URL), logger.New(logger.ERROR))

	result := client.SendOrderConfirmation(context.Background(), "+57 300-123-4567", "Maria Lopez", "#1001", "89900.00", "COP")

	assert.True(t, result.Success)
	assert.Equal(t, "wamid.ABC123", result.MessageID)
	assert.Empty(t, result.Error)

	// Тело запроса соответствует формату Meta Cloud API
	assert.Equal(t, "whatsapp", captured.MessagingProduct)
	assert.Equal(t, "573001234567", captured.To)
	assert.Equal(t, "template", captured.Type)
	assert.Equal(t, "order_confirmation", captured.Template.Name)
	assert.Equal(t, "es", captured.Template.Language.Code)
	require.Len(t, captured.Template.Components, 1)
	params := captured.Template.Components[0].Parameters
	require.Len(t, params, 3)
	assert.Equal(t, "Maria Lopez", params[0].Text)
	assert.Equal(t, "#1001", params[1].Text)
	assert.Equal(t, "COP 89900.00", params[2].Text)
}

func TestSendOrderConfirmation_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "(#131026) Message undeliverable",
				"type":    "OAuthException",
				"code":    131026,
			},
		})
	}))
	defer server.Close()

	client := NewClient(newTestConfig(server.URL), logger.New(logger.ERROR))

	result := client.SendOrderConfirmation(context.Background(), "3001234567", "Maria", "#1001", "100", "COP")

	assert.False(t, result.Success)
	assert.Empty(t, result.MessageID)
	assert.Contains(t, result.Error, "HTTP 400")
	assert.Contains(t, result.Error, "Message undeliverable")
}

func TestSendOrderConfirmation_NetworkError(t *testing.T) {
	// Сервер закрыт сразу: любой вызов упирается в connection refused
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(newTestConfig(server.URL), logger.New(logger.ERROR))

	result := client.SendOrderConfirmation(context.Background(), "3001234567", "Maria", "#1001", "100", "COP")

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestSendOrderConfirmation_InvalidPhone(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(newTestConfig(server.URL), logger.New(logger.ERROR))

	result := client.SendOrderConfirmation(context.Background(), "12345", "Maria", "#1001", "100", "COP")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "invalid phone number")
	assert.False(t, called, "провайдер не должен вызываться с невалидным номером")
}

func TestSendOrderConfirmation_NotConfigured(t *testing.T) {
	cfg := newTestConfig("https://graph.facebook.com/v18.0")
	cfg.WhatsApp.AccessToken = ""

	client := NewClient(cfg, logger.New(logger.ERROR))

	result := client.SendOrderConfirmation(context.Background(), "3001234567", "Maria", "#1001", "100", "COP")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not configured")
}
