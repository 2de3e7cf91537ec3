package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/medflow/hospital-backend/internal/gateway"
	"github.com/medflow/hospital-backend/pkg/config"
	"github.com/medflow/hospital-backend/pkg/httputil"
	"github.com/medflow/hospital-backend/pkg/logger"
	"github.com/medflow/hospital-backend/pkg/metrics"
)

func main() {
	cfg, err := config.LoadWithValidation("api-gateway")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("api-gateway", cfg.Server.Environment).SetLevel(cfg.Server.LogLevel)
	log.Info().Msg("starting API Gateway")

	proxy, err := gateway.NewProxy(&cfg.Services, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create proxy")
	}

	m := metrics.New()

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log, m))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(httputil.CORS(cfg.CORS.AllowedOrigins))

	r.Get("/health", proxy.Health)

	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, m.Handler())
	}

	r.Handle("/api/pharmacy/*", http.HandlerFunc(proxy.ForwardToPharmacy))
	r.Handle("/api/appointments/*", http.HandlerFunc(proxy.ForwardToAppointments))

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

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
