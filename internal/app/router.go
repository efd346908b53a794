package app

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"datashelf/internal/api"
	"datashelf/internal/config"
	"datashelf/internal/metrics"
	"datashelf/internal/middleware"
)

// NewValidator picks the JWT validator from config: OIDC discovery when an
// issuer is configured, HS256 shared-secret otherwise.
func NewValidator(ctx context.Context, cfg *config.Config) (middleware.JWTValidator, error) {
	if cfg.Auth.OIDCEnabled() {
		return middleware.NewOIDCValidator(ctx, cfg.Auth.IssuerURL, cfg.Auth.Audience, cfg.Auth.AllowedIssuers)
	}
	return middleware.NewHS256Validator(cfg.Auth.JWTSecret)
}

// Router assembles the full HTTP surface: health and metrics outside
// authentication, the /api/v1 resource routes behind it.
func (a *App) Router(cfg *config.Config, validator middleware.JWTValidator) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-Modified-Since", "If-Unmodified-Since"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	handler := api.NewHandler(a.Services.Account, a.Services.Dataset, a.Services.Grant,
		a.Logger.With("component", "api"))
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(validator, a.AccountRepo))
		r.Mount("/", handler.Routes())
	})

	return r
}
