package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/stripe/stripe-go/v82"

	"github.com/ManuelReschke/MoviAPI/internal/pkg/billing"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/cache"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/config"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/database"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/env"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/jobqueue"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/router"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/s3archive"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/session"
)

const (
	appVersion            = "1.0.0"
	webhookReportInterval = 15 * time.Minute
	shutdownTimeout       = 10 * time.Second
)

func main() {
	if !env.SetupEnvFile() {
		log.Println("No .env file found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	app, manager, err := NewApplication(cfg)
	if err != nil {
		log.Fatalf("Startup failed: %v", err)
	}
	manager.Start()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down...")
		manager.Stop()
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	if err := app.Listen(fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port)); err != nil {
		log.Fatal(err)
	}
}

// NewApplication wires every component from cfg. The returned manager runs
// the background queue and must be started by the caller.
func NewApplication(cfg *config.Config) (*fiber.App, *jobqueue.Manager, error) {
	db, err := database.Open(cfg.Database, cfg.App.IsDev())
	if err != nil {
		return nil, nil, err
	}
	if cfg.App.IsDev() {
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	cacheClient := cache.NewClient(cfg.Cache)

	catalog, err := billing.LoadCatalog(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}

	opts := billing.Options{
		Catalog:    catalog,
		Balances:   cache.NewBalanceCache(cacheClient, cfg.Billing.BalanceCacheTTL),
		Locker:     cache.NewLocker(cacheClient),
		Billing:    cfg.Billing,
		SuccessURL: cfg.App.SuccessURL(),
		CancelURL:  cfg.App.CancelURL(),
	}
	if cfg.Stripe.Configured() {
		stripe.SetAppInfo(&stripe.AppInfo{Name: "MoviAPI", Version: appVersion})
		opts.Processor = billing.NewStripeProcessor(cfg.Stripe.SecretKey)
		if cfg.Stripe.TestMode() {
			log.Println("Stripe is running in test mode")
		}
	} else {
		log.Println("Warning: STRIPE_SECRET_KEY is not set, checkout is disabled")
	}
	if !cfg.Stripe.WebhookConfigured() {
		log.Println("Warning: STRIPE_WEBHOOK_SECRET is not set, webhook deliveries will be refused")
	}
	svc := billing.NewServiceFromDB(db, opts)

	queue := jobqueue.NewQueue(cacheClient, 2)
	deps := router.Dependencies{
		Config:   cfg,
		DB:       db,
		Cache:    cacheClient,
		Sessions: session.NewSessionStore(cacheClient, !cfg.App.IsDev()),
		Billing:  svc,
		Verifier: billing.NewSignatureVerifier(cfg.Stripe.WebhookSecret),
		Counter:  counter.New(cacheClient),
	}
	if cfg.Archive.Enabled {
		store, err := s3archive.NewClient(context.Background(), cfg.Archive, cfg.App.IsDev())
		if err != nil {
			return nil, nil, fmt.Errorf("webhook archive: %w", err)
		}
		queue.Register(jobqueue.JobTypeArchiveWebhookEvent, jobqueue.NewArchiveHandler(store))
		deps.Jobs = queue
	}
	manager := jobqueue.NewManager(queue, failedWebhookReport(svc))

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName:   "MoviAPI " + appVersion,
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	// ROUTER
	router.InstallRouter(app, deps)

	return app, manager, nil
}

// failedWebhookReport periodically surfaces deliveries that are still
// failing so operators notice before the processor gives up retrying.
func failedWebhookReport(svc *billing.Service) jobqueue.Task {
	return jobqueue.Task{
		Name:     "failed-webhook-report",
		Interval: webhookReportInterval,
		Run: func(ctx context.Context) error {
			events, err := svc.ListWebhookEvents(ctx, 100, true)
			if err != nil {
				return err
			}
			if len(events) > 0 {
				log.Printf("[Billing] %d webhook events are in failed state, latest %s: %s",
					len(events), events[0].ProviderEventID, events[0].ProcessingError)
			}
			return nil
		},
	}
}
