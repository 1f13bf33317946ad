// Package api exposes campaign submission, job queries and sheet export
// over HTTP.
package api

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"creator-scout-go/internal/logger"
	"creator-scout-go/internal/store"
	"creator-scout-go/internal/types"
)

// Submitter starts campaign jobs.
type Submitter interface {
	Submit(ctx context.Context, c types.Criteria, agents types.Agents) (*types.Job, error)
}

type ServerConfig struct {
	Logger    *logger.Logger
	Store     store.Store
	Jobs      Submitter
	RateRPS   float64
	RateBurst int
	MaxUpload int64
	StartTime time.Time
}

func NewRouter(cfg ServerConfig) *chi.Mux {
	if cfg.MaxUpload <= 0 {
		cfg.MaxUpload = 10 << 20
	}
	if cfg.StartTime.IsZero() {
		cfg.StartTime = time.Now()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthHandler(cfg))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimit(cfg.RateRPS, cfg.RateBurst))

		r.Post("/upload-excel", uploadBriefHandler(cfg))
		r.Post("/campaigns", submitCampaignHandler(cfg))
		r.Get("/jobs", listJobsHandler(cfg))
		r.Get("/jobs/{id}", getJobHandler(cfg))
		r.Delete("/jobs/{id}", deleteJobHandler(cfg))
		r.Get("/jobs/{id}/sheet", sheetHandler(cfg))
	})

	return r
}
