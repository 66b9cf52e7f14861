package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"

	"github.com/daniel-lxs/bettersubs/internal/api"
	"github.com/daniel-lxs/bettersubs/internal/cache"
	"github.com/daniel-lxs/bettersubs/internal/config"
	"github.com/daniel-lxs/bettersubs/internal/download"
	"github.com/daniel-lxs/bettersubs/internal/feature"
	"github.com/daniel-lxs/bettersubs/internal/httpclient"
	"github.com/daniel-lxs/bettersubs/internal/metrics"
	"github.com/daniel-lxs/bettersubs/internal/providers"
	"github.com/daniel-lxs/bettersubs/internal/providers/fansite"
	"github.com/daniel-lxs/bettersubs/internal/providers/localstore"
	"github.com/daniel-lxs/bettersubs/internal/providers/opensubtitles"
	"github.com/daniel-lxs/bettersubs/internal/repository"
	"github.com/daniel-lxs/bettersubs/internal/search"
	"github.com/daniel-lxs/bettersubs/internal/storage"
	"github.com/daniel-lxs/bettersubs/internal/token"
)

// cacheLogger bridges cache error reports onto zerolog.
type cacheLogger struct {
	logger zerolog.Logger
}

func (l cacheLogger) Error(msg string, err error) {
	l.logger.Error().Err(err).Msg(msg)
}

func main() {
	cfg := config.GetConfig()
	logger := config.GetLogger()

	logger.Info().
		Int("server_port", cfg.Server.Port).
		Str("server_address", cfg.Server.Address).
		Str("session_backend", cfg.Session.Backend).
		Str("database_path", cfg.Database.Path).
		Msg("Application started with configuration")

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize Sentry")
		}
		defer sentry.Flush(2 * time.Second)
	}

	httpClient := httpclient.New(cfg)

	sessionTTL, err := time.ParseDuration(cfg.Session.TTL)
	if err != nil {
		logger.Fatal().Err(err).Str("ttl", cfg.Session.TTL).Msg("Invalid session TTL")
	}
	sessionCache, err := cache.New(cfg.Session.Backend, cache.ProviderConfig{
		Size:          cfg.Session.Size,
		TTL:           sessionTTL,
		Logger:        cacheLogger{logger: logger},
		RedisAddress:  cfg.Session.Redis.Address,
		RedisPassword: cfg.Session.Redis.Password,
		RedisDB:       cfg.Session.Redis.DB,
		Group:         "sessions",
	})
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Session.Backend).Msg("Failed to create session cache")
	}
	sessions := cache.NewSessionStore(sessionCache)
	defer func() {
		if err := sessions.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close session cache")
		}
	}()

	repo, err := repository.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("Failed to open subtitle database")
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close subtitle database")
		}
	}()

	var blobs storage.BlobStore
	if cfg.Storage.Endpoint != "" {
		blobs, err = storage.NewS3Store(context.Background(), cfg)
		if err != nil {
			logger.Fatal().Err(err).Str("endpoint", cfg.Storage.Endpoint).Msg("Failed to create blob store")
		}
	} else {
		logger.Warn().Msg("No object storage configured, subtitle content is kept in memory only")
		blobs = storage.NewMemoryStore()
	}

	catalogTokens := token.NewManager("catalog", &feature.Authenticator{
		BaseURL:    cfg.Catalog.APIURL,
		APIKey:     cfg.Catalog.APIKey,
		HTTPClient: httpClient,
	})
	resolver := feature.NewCatalogResolver(cfg.Catalog.APIURL, httpClient, catalogTokens)

	local := localstore.New(repo, blobs)
	adapters := []providers.Adapter{
		opensubtitles.New(cfg.OpenSubtitles, httpClient),
		fansite.New(cfg.FanSite, httpClient, resolver),
		local,
	}

	server := api.NewServer(
		search.NewOrchestrator(adapters, resolver, sessions),
		download.NewResolver(adapters, sessions, blobs, repo),
		local,
	)
	httpServer := api.NewHTTPServer(cfg.Server.Address, cfg.Server.Port, server.Handler())

	// Start Prometheus metrics HTTP server
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewHTTPServer(cfg.Server.Address, cfg.Metrics.Port)
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("Starting Prometheus metrics HTTP server")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal().Err(err).Msg("Failed to serve metrics")
			}
		}()
		defer func() {
			if err := metricsServer.Shutdown(context.Background()); err != nil {
				logger.Error().Err(err).Msg("Failed to shutdown metrics server")
			}
		}()
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to shutdown HTTP server")
		}
	}()

	logger.Info().Str("address", httpServer.Addr).Msg("Starting HTTP server")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("Failed to serve HTTP")
	}

	logger.Info().Msg("Server stopped gracefully")
}
