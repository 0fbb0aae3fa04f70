package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"digizone/internal/app"
	"digizone/internal/config"
	"digizone/internal/database"
	"digizone/internal/models"
	"digizone/internal/services"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "digizone",
		Short: "digital license shop: checkout and payment fulfillment",
	}
	rootCmd.AddCommand(
		serveCommand(),
		migrateCommand(),
		seedCommand(),
		relayNotificationsCommand(),
		fulfillCommand(),
		tokenCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withApp builds the application context for one command and closes it after.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.Context) error) error {
	ctx := cmd.Context()
	a, err := app.New(ctx, config.Load())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP API and the notification relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Context) error {
				if err := database.Migrate(a.DB); err != nil {
					return err
				}

				httpApp := a.HTTP()
				ctx, stop := context.WithCancel(ctx)
				defer stop()
				go relayLoop(ctx, a)

				log.Printf("Starting server on port %s (%s)", a.Config.AppPort, a.Describe())

				// Graceful shutdown handling
				quit := make(chan os.Signal, 1)
				signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

				go func() {
					if err := httpApp.Listen(a.Config.AppPort); err != nil {
						log.Fatalf("Server failed to start: %v", err)
					}
				}()

				<-quit
				log.Println("Shutting down server...")
				stop()

				if err := httpApp.ShutdownWithTimeout(10 * time.Second); err != nil {
					log.Printf("Error during Fiber shutdown: %v", err)
				}
				log.Println("Server gracefully stopped")
				return nil
			})
		},
	}
}

// relayLoop retries confirmation emails that could not be sent right after
// fulfillment.
func relayLoop(ctx context.Context, a *app.Context) {
	interval := a.Config.NotificationRelayInterval
	if interval <= 0 {
		log.Println("Notification relay disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sent, err := a.Notifications.DeliverPending(ctx, 50)
			if err != nil {
				log.Printf("Notification relay failed: %v", err)
				continue
			}
			if sent > 0 {
				log.Printf("Notification relay sent %d emails", sent)
			}
		}
	}
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Context) error {
				return database.Migrate(a.DB)
			})
		},
	}
}

func seedCommand() *cobra.Command {
	var licenses int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "create sample products and provision license keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Context) error {
				if err := database.Migrate(a.DB); err != nil {
					return err
				}
				return seedProducts(ctx, a, licenses)
			})
		},
	}
	cmd.Flags().IntVar(&licenses, "licenses", 10, "license keys to provision per SKU")
	return cmd
}

// seedProducts creates a few products with SKUs and a pool of keys for each.
func seedProducts(ctx context.Context, a *app.Context, perSKU int) error {
	products := []models.Product{
		{
			Name:              "Antivirus Pro",
			Description:       "Real-time protection for one device",
			ProviderProductID: "prod_antivirus",
			SKUs: []models.SKU{
				{Name: "1 year", Code: "AV-1Y", Price: decimal.RequireFromString("19.99"), ValidityDays: 365, ProviderPriceID: "price_antivirus_1y"},
				{Name: "Lifetime", Code: "AV-LT", Price: decimal.RequireFromString("59.99"), Lifetime: true, ProviderPriceID: "price_antivirus_lifetime"},
			},
		},
		{
			Name:              "Office Suite",
			Description:       "Documents, spreadsheets and slides",
			ProviderProductID: "prod_office",
			SKUs: []models.SKU{
				{Name: "Home", Code: "OF-HOME", Price: decimal.RequireFromString("99.00"), Lifetime: true, ProviderPriceID: "price_office_home"},
			},
		},
	}

	for i := range products {
		if err := a.Products.Create(ctx, &products[i]); err != nil {
			log.Printf("Error seeding product %s: %v", products[i].Name, err)
			continue
		}
		log.Printf("Seeded product: %s (ID: %s)", products[i].Name, products[i].ID)

		for _, sku := range products[i].SKUs {
			keys := make([]models.License, perSKU)
			for k := range keys {
				keys[k] = models.License{
					ProductID:  products[i].ID,
					SKUID:      sku.ID,
					LicenseKey: fmt.Sprintf("%s-%s-%04d", sku.Code, sku.ID[:8], k+1),
				}
			}
			if err := a.Licenses.CreateBatch(ctx, keys); err != nil {
				return err
			}
			log.Printf("Provisioned %d licenses for SKU %s (ID: %s)", perSKU, sku.Name, sku.ID)
		}
	}
	return nil
}

func relayNotificationsCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "relay-notifications",
		Short: "send confirmation emails still pending in the outbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Context) error {
				sent, err := a.Notifications.DeliverPending(ctx, limit)
				if err != nil {
					return err
				}
				fmt.Printf("Sent %d notifications\n", sent)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum notifications to send")
	return cmd
}

func fulfillCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fulfill [checkout-session-id]",
		Short: "fulfill a paid order left pending, e.g. after restocking licenses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Context) error {
				result, err := a.Fulfillment.ReprocessOrder(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Order %s: %s\n", result.OrderID, result.Outcome)
				return nil
			})
		},
	}
}

func tokenCommand() *cobra.Command {
	var identity models.Identity
	var role string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "issue an API token, for operators and local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			identity.Role = models.Role(role)
			token, err := services.NewAuthService(config.Load().JWTSecret).IssueToken(identity)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&identity.UserID, "user", "", "user id")
	cmd.Flags().StringVar(&identity.Email, "email", "", "user email")
	cmd.Flags().StringVar(&role, "role", string(models.RoleCustomer), "customer or admin")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
