package app

import (
	"context"
	"fmt"
	"log"

	"digizone/internal/cache"
	"digizone/internal/config"
	"digizone/internal/database"
	"digizone/internal/handlers"
	"digizone/internal/metrics"
	"digizone/internal/notification"
	"digizone/internal/payment"
	"digizone/internal/repositories"
	"digizone/internal/services"
	"digizone/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Context is every long-lived dependency of the process, built once at
// startup and handed to whoever needs it.
type Context struct {
	Config  config.Config
	DB      *gorm.DB
	Redis   *redis.Client    // nil when REDIS_ADDR is empty
	MQ      *rabbitmq.Client // nil when RABBITMQ_URL is empty
	Metrics *metrics.Metrics

	Products repositories.ProductRepository
	Licenses repositories.LicenseRepository
	Orders   repositories.OrderRepository

	Auth          *services.AuthService
	Checkout      *services.CheckoutService
	OrderService  *services.OrderService
	Fulfillment   *services.FulfillmentService
	Notifications *services.NotificationService
}

// New connects to the configured backends and wires the services.
func New(ctx context.Context, cfg config.Config) (*Context, error) {
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	a := &Context{
		Config:  cfg,
		DB:      db,
		Metrics: metrics.New(),
	}

	var marker services.FulfillmentMarker
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Redis = rdb
		marker = cache.NewFulfillmentCache(rdb)
	} else {
		log.Println("REDIS_ADDR is empty, fulfillment fast path disabled")
	}

	var dispatcher notification.Dispatcher = notification.LogDispatcher{}
	var events services.OrderEventPublisher
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.MQ = mq
		dispatcher = notification.NewQueueDispatcher(mq)
		events = mq
	} else {
		log.Println("RABBITMQ_URL is empty, emails are only logged")
	}

	tx := repositories.NewGORMTransactor(db)
	products := repositories.NewGORMProductRepository(db)
	licenses := repositories.NewGORMLicenseRepository(db, tx, database.SupportsRowLocking(db))
	orders := repositories.NewGORMOrderRepository(db, tx)
	outbox := repositories.NewGORMNotificationRepository(db)
	provider := payment.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	a.Products = products
	a.Licenses = licenses
	a.Orders = orders
	a.Auth = services.NewAuthService(cfg.JWTSecret)
	a.Checkout = services.NewCheckoutService(products, orders, provider, a.Metrics, services.CheckoutConfig{
		SuccessURL:  cfg.CheckoutSuccessURL,
		CancelURL:   cfg.CheckoutCancelURL,
		MaxQuantity: cfg.CheckoutMaxQuantity,
	})
	a.OrderService = services.NewOrderService(orders)
	a.Notifications = services.NewNotificationService(outbox, dispatcher, a.Metrics)
	a.Fulfillment = services.NewFulfillmentService(services.FulfillmentDeps{
		Provider:    provider,
		OrderRepo:   orders,
		LicenseRepo: licenses,
		Outbox:      outbox,
		Tx:          tx,
		Notifier:    a.Notifications,
		Marker:      marker,
		Events:      events,
		Metrics:     a.Metrics,
	}, services.FulfillmentConfig{
		OrderLinkBaseURL: cfg.OrderLinkBaseURL,
		SuccessTemplate:  cfg.OrderSuccessTemplate,
	})

	return a, nil
}

// HTTP builds the Fiber app served by this context.
func (a *Context) HTTP() *fiber.App {
	checks := map[string]handlers.Pinger{
		"database": func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		}
	}

	return handlers.NewApp(handlers.Services{
		Auth:        a.Auth,
		Checkout:    a.Checkout,
		Orders:      a.OrderService,
		Fulfillment: a.Fulfillment,
		Metrics:     a.Metrics,
		Health:      checks,
	})
}

// Close releases every connection the context opened.
func (a *Context) Close() {
	if a.MQ != nil {
		if err := a.MQ.Close(); err != nil {
			log.Printf("Error closing RabbitMQ client: %v", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}
}

// Describe is a one-line summary of the backends in use.
func (a *Context) Describe() string {
	return fmt.Sprintf("db=%s redis=%t rabbitmq=%t", a.Config.DatabaseDriver, a.Redis != nil, a.MQ != nil)
}
