package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/medflow/hospital-backend/internal/pharmacy/consumers"
	"github.com/medflow/hospital-backend/internal/pharmacy/events"
	"github.com/medflow/hospital-backend/internal/pharmacy/handler"
	"github.com/medflow/hospital-backend/internal/pharmacy/repository"
	"github.com/medflow/hospital-backend/internal/pharmacy/service"
	"github.com/medflow/hospital-backend/pkg/clock"
	"github.com/medflow/hospital-backend/pkg/config"
	"github.com/medflow/hospital-backend/pkg/database"
	"github.com/medflow/hospital-backend/pkg/httputil"
	"github.com/medflow/hospital-backend/pkg/logger"
	"github.com/medflow/hospital-backend/pkg/messaging"
	"github.com/medflow/hospital-backend/pkg/metrics"
)

const serviceName = "pharmacy-service"

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment).SetLevel(cfg.Server.LogLevel)
	log.Info().Msg("starting Pharmacy Service")

	loc, err := cfg.Pharmacy.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid pharmacy timezone")
	}

	m := metrics.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional purchase journal
	var db *database.DB
	var journal service.PurchaseJournal
	if cfg.Database.Enabled {
		db, err = database.New(&cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		if err := db.Migrate(ctx, repository.Schema...); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate purchase journal")
		}
		journal = repository.NewPurchaseRepository(db)
	}

	// Optional event bus
	var rmq *messaging.RabbitMQ
	var publisher *events.PharmacyEventPublisher
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err = events.NewPharmacyEventPublisher(rmq, messaging.BreakerSettings{
			Failures: cfg.RabbitMQ.BreakerFailures,
			Timeout:  cfg.RabbitMQ.BreakerTimeout,
		}, m, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
	}

	pharmacyService := service.NewPharmacyService(
		clock.NewSystem(loc),
		cfg.Pharmacy.IncludeZeroStock(),
		journal,
		publisher,
		m,
		log,
	)

	if rmq != nil {
		receiptConsumer, err := consumers.NewReceiptConsumer(rmq, pharmacyService, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create receipt consumer")
		}
		if err := receiptConsumer.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start receipt consumer")
		}
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log, m))
	r.Use(httputil.Recoverer(log))
	r.Use(httputil.CORS(cfg.CORS.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{
			"status":  "healthy",
			"service": serviceName,
			"stats":   pharmacyService.Stats(),
		}
		if db != nil {
			health["database"] = db.Health(r.Context())
		}
		if rmq != nil {
			health["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, health)
	})

	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, m.Handler())
	}

	r.Mount("/api/pharmacy", handler.Routes(pharmacyService, log))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop consumers
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
