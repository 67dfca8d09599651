package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"listingmatch/internal/catalog"
	"listingmatch/internal/config"
	"listingmatch/internal/feed"
	"listingmatch/internal/listener"
	"listingmatch/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	logger := config.SetupLogger(cfg)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	loader := feed.NewLoader(cfg, logger)
	svc := listener.NewService(db, cfg, loader, catalog.NewSyncService(db, loader, logger), logger)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info().Str("inbox", cfg.InboxDir).Int("interval_sec", cfg.WatchIntervalSec).Msg("listings watcher started")
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
