package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"creator-scout-go/internal/api"
	"creator-scout-go/internal/categorizer"
	"creator-scout-go/internal/config"
	"creator-scout-go/internal/extractor"
	"creator-scout-go/internal/gate"
	"creator-scout-go/internal/geocode"
	"creator-scout-go/internal/logger"
	"creator-scout-go/internal/media"
	"creator-scout-go/internal/metrics"
	"creator-scout-go/internal/pipeline"
	"creator-scout-go/internal/processor"
	"creator-scout-go/internal/profile"
	"creator-scout-go/internal/scraper"
	"creator-scout-go/internal/store"
	"creator-scout-go/internal/tone"
	"creator-scout-go/internal/transcription"
	"creator-scout-go/internal/webhook"
)

func main() {
	cfg := config.Load()

	log := logger.New()
	log.WithField("environment", cfg.Environment).Info("starting service")
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	metrics.MustRegister()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer st.Close()
	if n, err := st.MarkInterrupted(ctx); err != nil {
		log.WithError(err).Fatal("failed to recover jobs")
	} else if n > 0 {
		log.WithField("jobs", n).Warn("marked jobs interrupted by restart")
	}

	chat, err := newChatter(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to create language service client")
	}
	llm := extractor.NewService(extractor.NewLimited(chat, cfg.LLMRPS, cfg.LLMBurst), log.Component("extractor"))

	apify := scraper.NewTikTok(scraper.NewClient(scraper.Options{
		BaseURL:      cfg.ApifyBaseURL,
		Token:        cfg.ApifyToken,
		PollInterval: cfg.ApifyPollInterval,
		Timeout:      cfg.ScraperTimeout,
	}, log.Entry))

	g := gate.New(gate.Options{
		LimitBytes:  uint64(cfg.MemLimitMB) << 20,
		MarginBytes: uint64(cfg.MemHeadroomMB) << 20,
	}, log.Entry)
	stage := processor.NewStage(g,
		processor.NewHTTPDownloader(cfg.AudioTimeout),
		media.New(cfg.FFmpegPath, cfg.FFprobePath),
		tone.New(cfg.ToneURL, cfg.AudioTimeout, log.Entry),
		transcription.New(cfg.TranscribeURL, cfg.TranscribeKey, cfg.TranscribeModel, cfg.AudioTimeout, log.Entry),
		llm,
		processor.Options{
			MaxBytes:    cfg.MaxAudioBytes,
			MaxDuration: time.Duration(cfg.MaxAudioSeconds) * time.Second,
			TempDir:     cfg.TempDir,
		}, log.Entry)

	deps := pipeline.Deps{
		Store:       st,
		Posts:       apify,
		Enricher:    stage,
		Categorizer: categorizer.New(llm, log.Component("categorizer")),
		Profiles:    profile.New(apify, llm, log.Entry),
		Webhooks: webhook.New(webhook.Options{
			ContentURL: cfg.ContentWebhookURL,
			CreatorURL: cfg.CreatorWebhookURL,
			Timeout:    cfg.WebhookTimeout,
		}, log.Entry),
	}
	if cfg.GeonamesUsername != "" {
		deps.Geocoder = geocode.New(geocode.Options{
			Username: cfg.GeonamesUsername,
			Timeout:  cfg.GeocodeTimeout,
		}, newGeocodeCache(ctx, cfg, log), log.Entry)
	} else {
		log.Warn("GEONAMES_USERNAME not set, country filters will match nothing")
	}
	jobs := pipeline.New(deps, log)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr: addr,
		Handler: api.NewRouter(api.ServerConfig{
			Logger:    log,
			Store:     st,
			Jobs:      jobs,
			StartTime: time.Now(),
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server terminated")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown failed")
	}
	log.Info("waiting for running jobs")
	jobs.Wait()
	log.Info("stopped")
}

func openStore(ctx context.Context, cfg config.Config, log *logger.Logger) (store.Store, error) {
	if cfg.DatabaseURL != "" {
		log.Info("using postgres store")
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL, log.Entry)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	log.WithField("path", cfg.SQLitePath).Info("using sqlite store")
	sq, err := store.NewSQLite(cfg.SQLitePath, log.Entry)
	if err != nil {
		return nil, err
	}
	return sq, nil
}

func newChatter(ctx context.Context, cfg config.Config, log *logger.Logger) (extractor.Chatter, error) {
	if cfg.LLMProvider == "gemini" {
		gc, err := extractor.NewGeminiClient(ctx, cfg.GeminiAPIKey, "", cfg.GeminiModel, cfg.LLMTimeout)
		if err != nil {
			return nil, err
		}
		return gc, nil
	}
	return extractor.NewGatewayClient(extractor.GatewayOptions{
		BaseURL: cfg.LLMGatewayURL,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		Timeout: cfg.LLMTimeout,
	}, log.Entry), nil
}

// newGeocodeCache prefers Redis and falls back to an in-process cache.
func newGeocodeCache(ctx context.Context, cfg config.Config, log *logger.Logger) geocode.Cache {
	if cfg.RedisAddr == "" {
		return geocode.NewMemoryCache()
	}
	rc, err := geocode.NewRedisCache(ctx, geocode.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.GeocodeCacheTTL,
	})
	if err != nil {
		log.WithError(err).Warn("redis unavailable, using in-process geocode cache")
		return geocode.NewMemoryCache()
	}
	return rc
}
