package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/JellyNekoNeko/toyoko-tracker/internal/config"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/hotels"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/logging"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/metrics"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/scraper"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/server"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/tracker"
)

func main() {
	_ = godotenv.Load()
	settings := config.LoadSettings()

	log, ring := logging.New(settings.LogLevel)
	log.Info().Str("addr", settings.ListenAddr).Msg("starting toyoko tracker")

	scraper.SetCurrentSelectors(scraper.LoadConfig(logging.ForComponent(log, "scraper")))

	store := config.NewStore(loadInitialConfig(settings, log))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	collector := metrics.NewCollector(registry)

	svc := tracker.NewService(store, settings.AutoSavePath, collector, logging.ForComponent(log, "tracker"))
	dir := hotels.NewDirectory(settings.HotelNamesPath, logging.ForComponent(log, "hotels"))
	srv := server.New(store, svc, dir, ring, registry, settings.SavePath, logging.ForComponent(log, "http"))

	httpServer := &http.Server{
		Addr:         settings.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", settings.ListenAddr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")

		svc.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

// loadInitialConfig restores the last auto-saved configuration, falling back
// to the manually saved one, then to defaults.
func loadInitialConfig(settings config.Settings, log zerolog.Logger) config.Config {
	cfg := config.Default()
	for _, path := range []string{settings.AutoSavePath, settings.SavePath} {
		found, err := cfg.LoadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("saved configuration unreadable")
			continue
		}
		if found {
			log.Info().Str("path", path).Msg("restored saved configuration")
			return cfg
		}
	}
	return cfg
}
