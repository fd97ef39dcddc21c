package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jetenv/quoteflow/internal/app"
	"github.com/jetenv/quoteflow/internal/customers"
	"github.com/jetenv/quoteflow/internal/notes"
	"github.com/jetenv/quoteflow/internal/observability"
	"github.com/jetenv/quoteflow/internal/platform/cache"
	"github.com/jetenv/quoteflow/internal/platform/db"
	"github.com/jetenv/quoteflow/internal/products"
	"github.com/jetenv/quoteflow/internal/quotes"
	"github.com/jetenv/quoteflow/internal/render"
	"github.com/jetenv/quoteflow/internal/webhooks"
	"github.com/jetenv/quoteflow/jobs"
)

// syncQueueAdapter bridges the quote service onto the Asynq client.
type syncQueueAdapter struct {
	client *jobs.Client
}

func (a syncQueueAdapter) EnqueueSync(ctx context.Context, mode string, q *quotes.Quotation, html, filename string) error {
	_, err := a.client.EnqueueQuoteSync(ctx, webhooks.PayloadFor(mode, q, html, filename))
	return err
}

// catalogSyncAdapter feeds the customer and product masters from quote saves.
type catalogSyncAdapter struct {
	customers *customers.Service
	products  *products.Service
}

func (a catalogSyncAdapter) SyncFromQuotation(ctx context.Context, q *quotes.Quotation) error {
	if err := a.customers.Upsert(ctx, customers.CustomerInput{
		Name:    q.ClientName,
		TaxID:   q.ClientTaxID,
		Contact: q.ClientContact,
		Phone:   q.ClientPhone,
		Fax:     q.ClientFax,
		Address: q.ClientAddress,
		Email:   q.ClientEmail,
	}); err != nil {
		return err
	}
	inputs := make([]products.ProductInput, 0, len(q.Items))
	for _, item := range q.Items {
		inputs = append(inputs, products.ProductInput{
			Name:      item.Name,
			Spec:      item.Spec,
			Unit:      item.Unit,
			Price:     item.Price,
			Frequency: item.Frequency,
		})
	}
	return a.products.EnsureMany(ctx, inputs)
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	renderer, err := render.NewRenderer(render.CompanyInfo{
		Name:    cfg.CompanyName,
		Contact: cfg.CompanyContact,
		Phone:   cfg.CompanyPhone,
		Site:    cfg.CompanySite,
	})
	if err != nil {
		logger.Error("init renderer", slog.Any("error", err))
		os.Exit(1)
	}

	emailClient := webhooks.NewEmailClient(cfg.EmailWebhookURL, cfg.CompanyName, cfg.WebhookTimeout, metrics, logger)
	taxLookup := webhooks.NewTaxLookupClient(cfg.TaxLookupURL, cfg.WebhookTimeout, redisClient, cfg.TaxLookupCacheTTL, metrics, logger)

	queueClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	customerRepo := customers.NewRepository(pool)
	customerService := customers.NewService(customerRepo, taxLookup, logger)
	customerHandler := customers.NewHandler(customerService)

	productRepo := products.NewRepository(pool)
	productService := products.NewService(productRepo, logger)
	productHandler := products.NewHandler(productService)

	noteRepo := notes.NewRepository(pool)
	noteHandler := notes.NewHandler(noteRepo)

	quoteRepo := quotes.NewRepository(pool)
	quoteService := quotes.NewService(
		quoteRepo,
		renderer,
		emailClient,
		syncQueueAdapter{client: queueClient},
		catalogSyncAdapter{customers: customerService, products: productService},
		metrics,
		logger,
	)
	quoteHandler := quotes.NewHandler(quoteService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		QuoteHandler:    quoteHandler,
		CustomerHandler: customerHandler,
		ProductHandler:  productHandler,
		NoteHandler:     noteHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
