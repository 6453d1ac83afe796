package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/LouziusMedia/LoeschMich/internal/app/services"
	"github.com/LouziusMedia/LoeschMich/internal/auth"
	erasurehandler "github.com/LouziusMedia/LoeschMich/internal/transport/http/handlers/erasure"
	"github.com/LouziusMedia/LoeschMich/internal/transport/http/api"
	"github.com/LouziusMedia/LoeschMich/internal/transport/http/middleware"
)

// NewRouter mounts the operator API. It starts no background work; due
// tasks run only when POST /api/v1/tasks/run is called.
func NewRouter(svc *services.Services) http.Handler {
	cfg := svc.Config

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Auth(cfg.OperatorTokenSecret))
	router.Use(middleware.Logger(svc.Metrics))
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := svc.Store.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Handle("/metrics", svc.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.DeliveryRateLimit(cfg.RateLimitPerMinute, time.Minute))

		r.With(middleware.RequireScope(auth.ScopeRead)).Get("/metrics/summary", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, svc.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})

		handler := erasurehandler.NewHandler(svc.Engine, svc.Store, svc.Jobs, svc.Sender(), svc.Clock)
		handler.RegisterRoutes(r)
	})

	return router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, svc *services.Services) error {
	srv := &http.Server{
		Addr:              svc.Config.Addr,
		Handler:           NewRouter(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("operator api listening", "addr", svc.Config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
