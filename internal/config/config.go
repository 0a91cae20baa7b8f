package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config представляет структуру конфигурации для приложения.
type Config struct {
	App struct {
		Port string `mapstructure:"port"`
		Env  string `mapstructure:"env"`
	} `mapstructure:"app"`
	Database struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"database"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
	} `mapstructure:"kafka"`
	WhatsApp struct {
		APIURL           string `mapstructure:"apiUrl"`           // Базовый URL Meta Cloud API
		PhoneNumberID    string `mapstructure:"phoneNumberId"`    // ID бизнес-номера в Meta
		AccessToken      string `mapstructure:"accessToken"`      // Bearer токен Meta Business
		TemplateName     string `mapstructure:"templateName"`     // Имя утвержденного шаблона
		TemplateLanguage string `mapstructure:"templateLanguage"` // Код языка шаблона (es, en_US...)
		TimeoutSeconds   int    `mapstructure:"timeoutSeconds"`   // Ограничение на вызов провайдера
	} `mapstructure:"whatsapp"`
	Webhook struct {
		SecretToken string `mapstructure:"secretToken"` // Общий секрет для X-Webhook-Token
	} `mapstructure:"webhook"`
}

// LoadConfig загружает конфигурацию из файла или переменных окружения.
func LoadConfig(path string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		// .env не обязателен: локально удобен, в контейнере его нет
		_ = godotenv.Load(path)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.AutomaticEnv() // Чтение переменных окружения

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	applyDefaults(&config)
	return &config, nil
}

// applyDefaults подставляет значения по умолчанию для необязательных секций.
func applyDefaults(cfg *Config) {
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.WhatsApp.APIURL == "" {
		cfg.WhatsApp.APIURL = "https://graph.facebook.com/v18.0"
	}
	if cfg.WhatsApp.TemplateName == "" {
		cfg.WhatsApp.TemplateName = "order_confirmation"
	}
	if cfg.WhatsApp.TemplateLanguage == "" {
		cfg.WhatsApp.TemplateLanguage = "es"
	}
	if cfg.WhatsApp.TimeoutSeconds <= 0 {
		cfg.WhatsApp.TimeoutSeconds = 30
	}
}
