package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aleister1102/pagewatch/internal/api"
	"github.com/aleister1102/pagewatch/internal/config"
	"github.com/aleister1102/pagewatch/internal/datastore"
	"github.com/aleister1102/pagewatch/internal/engine"
	"github.com/aleister1102/pagewatch/internal/fetcher"
	"github.com/aleister1102/pagewatch/internal/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	flags := ParseFlags()

	gCfg, err := config.LoadGlobalConfig(flags.GlobalConfigFile)
	if err != nil {
		log.Fatalf("[FATAL] Main: Could not load global config using path '%s': %v", flags.GlobalConfigFile, err)
	}
	if flags.ListenAddress != "" {
		gCfg.ServerConfig.ListenAddress = flags.ListenAddress
	}

	if err := config.ValidateConfig(gCfg); err != nil {
		log.Fatalf("[FATAL] Main: Invalid configuration: %v", err)
	}

	zLogger, err := logger.New(gCfg.LogConfig)
	if err != nil {
		log.Fatalf("[FATAL] Main: Could not initialize logger: %v", err)
	}
	zLogger.Info().Msg("Logger initialized successfully")

	browserFetcher := fetcher.NewBrowserFetcher(gCfg.FetcherConfig, zLogger)
	if err := browserFetcher.Start(); err != nil {
		zLogger.Fatal().Err(err).Msg("Could not start headless browser")
	}
	defer browserFetcher.Stop()

	store, err := datastore.NewSQLiteStore(gCfg.StorageConfig.DatabasePath, zLogger)
	if err != nil {
		zLogger.Fatal().Err(err).Msg("Could not open job database")
	}
	defer store.Close()

	eng, err := engine.NewEngine(gCfg, browserFetcher, store, zLogger)
	if err != nil {
		zLogger.Fatal().Err(err).Msg("Could not initialize engine")
	}

	server := &http.Server{
		Addr:    gCfg.ServerConfig.ListenAddress,
		Handler: api.NewServer(eng, zLogger).Router(),
	}

	serverErr := make(chan error, 1)
	go func() {
		zLogger.Info().Str("address", server.Addr).Msg("HTTP server listening")
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		zLogger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zLogger.Error().Err(err).Msg("HTTP server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zLogger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	eng.Shutdown()
	zLogger.Info().Msg("Shutdown complete")
}
