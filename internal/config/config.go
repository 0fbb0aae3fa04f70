package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything the process reads from its environment.
type Config struct {
	AppPort string

	DatabaseDriver string // postgres | sqlite
	DatabaseDSN    string

	RabbitMQURL string // empty disables the broker
	RedisAddr   string // empty disables the fulfillment fast path

	JWTSecret string

	StripeSecretKey     string
	StripeWebhookSecret string

	CheckoutSuccessURL  string
	CheckoutCancelURL   string
	CheckoutMaxQuantity int

	OrderLinkBaseURL          string
	OrderSuccessTemplate      string
	NotificationRelayInterval time.Duration
}

// Load reads an optional .env file, then environment variables through Viper.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration overrides from .env")
	}

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	return FromViper(v)
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":3100")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_DSN", "host=127.0.0.1 user=postgres password=postgres dbname=digizone port=5432 sslmode=disable")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	v.SetDefault("CHECKOUT_SUCCESS_URL", "http://localhost:3000/order-success")
	v.SetDefault("CHECKOUT_CANCEL_URL", "http://localhost:3000/order-cancel")
	v.SetDefault("CHECKOUT_MAX_QUANTITY", 5)
	v.SetDefault("ORDER_LINK_BASE_URL", "http://localhost:3000/my-account/orders/")
	v.SetDefault("ORDER_SUCCESS_TEMPLATE", "order-success")
	v.SetDefault("NOTIFICATION_RELAY_INTERVAL", "1m")
}

// FromViper builds a Config from an already populated Viper instance.
func FromViper(v *viper.Viper) Config {
	return Config{
		AppPort:                   v.GetString("APP_PORT"),
		DatabaseDriver:            v.GetString("DATABASE_DRIVER"),
		DatabaseDSN:               v.GetString("DATABASE_DSN"),
		RabbitMQURL:               v.GetString("RABBITMQ_URL"),
		RedisAddr:                 v.GetString("REDIS_ADDR"),
		JWTSecret:                 v.GetString("JWT_SECRET"),
		StripeSecretKey:           v.GetString("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:       v.GetString("STRIPE_WEBHOOK_SECRET"),
		CheckoutSuccessURL:        v.GetString("CHECKOUT_SUCCESS_URL"),
		CheckoutCancelURL:         v.GetString("CHECKOUT_CANCEL_URL"),
		CheckoutMaxQuantity:       v.GetInt("CHECKOUT_MAX_QUANTITY"),
		OrderLinkBaseURL:          v.GetString("ORDER_LINK_BASE_URL"),
		OrderSuccessTemplate:      v.GetString("ORDER_SUCCESS_TEMPLATE"),
		NotificationRelayInterval: v.GetDuration("NOTIFICATION_RELAY_INTERVAL"),
	}
}
