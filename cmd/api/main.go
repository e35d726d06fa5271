package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"invoicing_backend/internal/bootstrap"
	"invoicing_backend/internal/catalog"
	"invoicing_backend/internal/email"
	"invoicing_backend/internal/events"
	apphttp "invoicing_backend/internal/http"
	"invoicing_backend/internal/http/router"
	"invoicing_backend/internal/invoices"
	"invoicing_backend/internal/notification"
	"invoicing_backend/internal/notification/outbox"
	"invoicing_backend/platform/config"
	"invoicing_backend/platform/db"
	"invoicing_backend/platform/logger"
	"invoicing_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := bootstrap.Migrate(ctx, cfg, log); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	pool, err := bootstrap.OpenDatabase(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	rdb := bootstrap.OpenRedis(ctx, cfg, log)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	pdfSource := bootstrap.NewPDFSource(ctx, cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	catalogModule := catalog.NewModule(pool, rdb, cfg, val, log)
	invoicesModule := invoices.NewModule(pool, eventBus, catalogModule.Service(), val, cfg, log)

	notificationModule := notification.New(sender, invoicesModule.Repository(), cfg, log)
	if rdb != nil {
		// The scheduler process drains the outbox; this process only writes to it.
		notificationModule.SetOutbox(outbox.New(pool), invoicesModule.Service())
		log.Info("notifications routed through the outbox")
	}

	if pdfSource != nil {
		invoicesModule.SetPDFSource(pdfSource)
		notificationModule.SetPDFSource(pdfSource)
		if pdfSource.Cache != nil {
			pdfSource.Cache.RegisterHandlers(eventBus)
		}
	}
	invoicesModule.SetNotifier(notificationModule.Notifier())

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			invoicesModule,
			catalogModule,
		},
	}

	engine := router.New(app)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}
