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
	"github.com/medflow/hospital-backend/internal/appointment/events"
	"github.com/medflow/hospital-backend/internal/appointment/handler"
	"github.com/medflow/hospital-backend/internal/appointment/service"
	"github.com/medflow/hospital-backend/pkg/clock"
	"github.com/medflow/hospital-backend/pkg/config"
	"github.com/medflow/hospital-backend/pkg/httputil"
	"github.com/medflow/hospital-backend/pkg/logger"
	"github.com/medflow/hospital-backend/pkg/messaging"
	"github.com/medflow/hospital-backend/pkg/metrics"
)

const serviceName = "appointment-service"

func main() {
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment).SetLevel(cfg.Server.LogLevel)
	log.Info().Msg("starting Appointment Service")

	loc, err := cfg.Pharmacy.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid timezone")
	}

	m := metrics.New()

	var rmq *messaging.RabbitMQ
	var publisher *events.AppointmentEventPublisher
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err = events.NewAppointmentEventPublisher(rmq, messaging.BreakerSettings{
			Failures: cfg.RabbitMQ.BreakerFailures,
			Timeout:  cfg.RabbitMQ.BreakerTimeout,
		}, m, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
	}

	scheduler := service.NewSchedulerService(clock.NewSystem(loc), publisher, m, log)

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log, m))
	r.Use(httputil.Recoverer(log))
	r.Use(httputil.CORS(cfg.CORS.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		patients, doctors := scheduler.Counts()
		health := map[string]interface{}{
			"status":              "healthy",
			"service":             serviceName,
			"registered_patients": patients,
			"registered_doctors":  doctors,
		}
		if rmq != nil {
			health["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, health)
	})

	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, m.Handler())
	}

	r.Mount("/api/appointments", handler.Routes(scheduler, log))

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
