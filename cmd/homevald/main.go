package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"homeval/internal/cfg"
	"homeval/internal/encode"
	"homeval/internal/metrics"
	"homeval/internal/model"
	"homeval/internal/predict"
	"homeval/internal/server"
	"homeval/internal/storage"
)

func main() {
	_ = godotenv.Load()
	setupLogging()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
	}

	encoder := encode.New(encode.DefaultTierTable())
	registry := loadRegistry(c, encoder, m)
	fallback := model.NewFallback(c.Fallback, encoder.Tiers())

	var journal predict.Journal
	if store != nil {
		journal = store
	}
	svc := predict.New(encoder, registry, fallback, m, journal)

	srv := server.New(svc, store, c.Port, c.ReadTimeout, c.WriteTimeout)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server failed")
			cancel()
		}
	}()

	waitForShutdown(ctx, srv)
}

func setupLogging() {
	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// initializeStorage opens the prediction journal if DATA_PATH is configured.
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("journal initialization failed, continuing without persistence")
		return nil
	}
	return store
}

// loadRegistry builds the model registry once at startup. Remote artifact
// URLs are fetched with a shared resty client; load failures are recorded
// and skipped, never fatal.
func loadRegistry(c cfg.Settings, encoder *encode.Encoder, m *metrics.Metrics) *model.Registry {
	client := resty.New().
		SetTimeout(c.FetchTimeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	registry := model.Load(c.ModelSources(), encoder.Width(), client)

	m.LoadedModels.Set(float64(registry.Len()))
	m.ModelLoadFailures.Add(float64(len(registry.Skipped())))
	if newest := newestModel(registry); !newest.IsZero() {
		m.ModelAge.Set(time.Since(newest).Seconds())
	}
	return registry
}

func newestModel(r *model.Registry) time.Time {
	var newest time.Time
	for _, h := range r.All() {
		if h.TrainedAt.After(newest) {
			newest = h.TrainedAt
		}
	}
	return newest
}

func waitForShutdown(ctx context.Context, srv *server.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown timeout, forcing exit")
	}
}
