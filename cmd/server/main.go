// Package main is the entry point for the card-price-extractor HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fabio1shot/card-price-extractor/internal/config"
	"github.com/fabio1shot/card-price-extractor/internal/notify"
	"github.com/fabio1shot/card-price-extractor/internal/provider"
	"github.com/fabio1shot/card-price-extractor/internal/server"
	"github.com/fabio1shot/card-price-extractor/internal/service"
	"github.com/fabio1shot/card-price-extractor/internal/storage"
)

func main() {
	// run() keeps deferred cleanup working; os.Exit skips defers.
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("CARDPRICE_CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	// Sync commonly fails on stdout/stderr.
	defer func() { _ = logger.Sync() }()

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	db, err := storage.NewDatabase(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	fs, err := storage.NewFileSystem(cfg.Storage.ImageDir)
	if err != nil {
		return fmt.Errorf("creating image cache: %w", err)
	}

	batchRepo := storage.NewBatchRepository(db)
	lookupRepo := storage.NewLookupRepository(db)
	logSink := notify.NewLogger(logger)

	ygo := provider.NewYGOProDeckProvider(cfg.YGOProDeck, logSink, lookupRepo, logger)
	cardService := service.NewCardService(
		ygo,
		batchRepo,
		fs,
		service.NewImageProcessor(fs),
		service.BatchOptionsFrom(cfg.Batch),
		logSink,
		logger,
	)

	srv := server.New(cfg, server.Deps{
		CardService: cardService,
		BatchRepo:   batchRepo,
		LookupRepo:  lookupRepo,
	}, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	// Give in-flight requests 15 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}

// newLogger builds a development logger for debug, otherwise a JSON
// production logger at the configured level.
func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}

	zcfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		zcfg.Level = lvl
	}
	return zcfg.Build()
}
