package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"invoicing_backend/internal/bootstrap"
	"invoicing_backend/internal/catalog"
	"invoicing_backend/internal/email"
	"invoicing_backend/internal/events"
	"invoicing_backend/internal/invoices"
	"invoicing_backend/internal/notification"
	"invoicing_backend/internal/notification/outbox"
	"invoicing_backend/internal/scheduler"
	"invoicing_backend/platform/config"
	"invoicing_backend/platform/logger"
	"invoicing_backend/platform/validator"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	if cfg.GetRedisURL() == "" {
		panic("REDIS_URL is required for the scheduler")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := bootstrap.OpenDatabase(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	// Worker-side invoice loading; no HTTP handlers are mounted.
	catalogModule := catalog.NewModule(pool, nil, cfg, val, log)
	invoicesModule := invoices.NewModule(pool, eventBus, catalogModule.Service(), val, cfg, log)

	outboxRepo := outbox.New(pool)
	notificationModule := notification.New(sender, invoicesModule.Repository(), cfg, log)
	notificationModule.SetOutbox(outboxRepo, invoicesModule.Service())
	if pdfSource := bootstrap.NewPDFSource(ctx, cfg, log); pdfSource != nil {
		notificationModule.SetPDFSource(pdfSource)
	}
	notificationModule.RegisterHandlers(eventBus)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	dispatcher := scheduler.NewNotificationOutboxDispatcher(outboxRepo, client, log)

	worker, err := scheduler.NewWorker(cfg, eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		log.Error("scheduler stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("scheduler stopped")
}
