package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config reúne a configuração do serviço de checkout, lida de variáveis de ambiente
type Config struct {
	ServiceName    string
	Port           string
	Database       DatabaseConfig
	OTLPEndpoint   string
	LogDevelopment bool

	PricePolicy       PricePolicy
	PaymentTimeout    time.Duration
	PaymentMaxRetries uint

	DTMServer               string
	NotificationsMode       string
	NotificationsServiceURL string
}

// DatabaseConfig identifica o banco Postgres do checkout
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// PoolDSN é a URL usada pelo pgxpool
func (d DatabaseConfig) PoolDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&pool_max_conns=25&pool_min_conns=5",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// DSN é a string key=value usada pelo lib/pq no comando migrate
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name,
	)
}

const (
	notificationsModeDTM = "dtm"
	notificationsModeLog = "log"
)

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVICE_NAME", "checkout-service")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", "5432")
	v.SetDefault("DATABASE_USER", "root")
	v.SetDefault("DATABASE_PASSWORD", "pass")
	v.SetDefault("DATABASE_NAME", "checkout_db")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("LOG_DEVELOPMENT", false)
	v.SetDefault("SALE_PRICE_POLICY", string(PricePolicySaleWins))
	v.SetDefault("PAYMENT_TIMEOUT", "10s")
	v.SetDefault("PAYMENT_MAX_RETRIES", 3)
	v.SetDefault("DTM_SERVER", "http://dtm:36789/api/dtmsvr")
	v.SetDefault("NOTIFICATIONS_MODE", notificationsModeDTM)
	v.SetDefault("NOTIFICATIONS_SERVICE_URL", "http://notifications-service:8080")

	return v
}

// LoadConfig lê e valida a configuração
func LoadConfig() (*Config, error) {
	return loadConfig(newViper())
}

func loadConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ServiceName: v.GetString("SERVICE_NAME"),
		Port:        v.GetString("PORT"),
		Database: DatabaseConfig{
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetString("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
		},
		OTLPEndpoint:            v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		LogDevelopment:          v.GetBool("LOG_DEVELOPMENT"),
		PricePolicy:             PricePolicy(v.GetString("SALE_PRICE_POLICY")),
		PaymentTimeout:          v.GetDuration("PAYMENT_TIMEOUT"),
		PaymentMaxRetries:       v.GetUint("PAYMENT_MAX_RETRIES"),
		DTMServer:               v.GetString("DTM_SERVER"),
		NotificationsMode:       v.GetString("NOTIFICATIONS_MODE"),
		NotificationsServiceURL: v.GetString("NOTIFICATIONS_SERVICE_URL"),
	}

	switch cfg.PricePolicy {
	case PricePolicySaleWins, PricePolicyLowest:
	default:
		return nil, fmt.Errorf("invalid SALE_PRICE_POLICY %q", cfg.PricePolicy)
	}

	switch cfg.NotificationsMode {
	case notificationsModeDTM, notificationsModeLog:
	default:
		return nil, fmt.Errorf("invalid NOTIFICATIONS_MODE %q", cfg.NotificationsMode)
	}

	if cfg.PaymentTimeout <= 0 {
		return nil, fmt.Errorf("PAYMENT_TIMEOUT must be positive, got %s", cfg.PaymentTimeout)
	}
	if cfg.PaymentMaxRetries == 0 {
		return nil, fmt.Errorf("PAYMENT_MAX_RETRIES must be at least 1")
	}

	return cfg, nil
}
