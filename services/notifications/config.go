package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config reúne a configuração do serviço de notificações
type Config struct {
	ServiceName    string
	Port           string
	OTLPEndpoint   string
	LogDevelopment bool

	MailTransportURL    string
	MailFrom            string
	TransportTimeout    time.Duration
	TransportMaxRetries uint
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVICE_NAME", "notifications-service")
	v.SetDefault("PORT", "8080")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("LOG_DEVELOPMENT", false)
	v.SetDefault("MAIL_TRANSPORT_URL", "http://mail-transport:8025")
	v.SetDefault("MAIL_FROM", "no-reply@shop.local")
	v.SetDefault("MAIL_TRANSPORT_TIMEOUT", "5s")
	v.SetDefault("MAIL_TRANSPORT_MAX_RETRIES", 3)

	return v
}

// LoadConfig lê e valida a configuração
func LoadConfig() (*Config, error) {
	v := newViper()

	cfg := &Config{
		ServiceName:         v.GetString("SERVICE_NAME"),
		Port:                v.GetString("PORT"),
		OTLPEndpoint:        v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		LogDevelopment:      v.GetBool("LOG_DEVELOPMENT"),
		MailTransportURL:    v.GetString("MAIL_TRANSPORT_URL"),
		MailFrom:            v.GetString("MAIL_FROM"),
		TransportTimeout:    v.GetDuration("MAIL_TRANSPORT_TIMEOUT"),
		TransportMaxRetries: v.GetUint("MAIL_TRANSPORT_MAX_RETRIES"),
	}

	if cfg.MailTransportURL == "" {
		return nil, fmt.Errorf("MAIL_TRANSPORT_URL is required")
	}
	if cfg.TransportTimeout <= 0 {
		return nil, fmt.Errorf("MAIL_TRANSPORT_TIMEOUT must be positive, got %s", cfg.TransportTimeout)
	}
	if cfg.TransportMaxRetries == 0 {
		return nil, fmt.Errorf("MAIL_TRANSPORT_MAX_RETRIES must be at least 1")
	}

	return cfg, nil
}
