package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/pageglot/pageglot/internal/api"
	"github.com/pageglot/pageglot/internal/cache"
	"github.com/pageglot/pageglot/internal/config"
	"github.com/pageglot/pageglot/internal/remote"
	"github.com/pageglot/pageglot/internal/scheduler"
	"github.com/pageglot/pageglot/internal/session"
	"github.com/pageglot/pageglot/internal/store"
	"github.com/pageglot/pageglot/pkg/log"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}
	log.InitLogger(log.ParseLevel(cfg.System.LogLevel))

	durable, err := store.NewSQLiteStore(cfg.Cache.DBPath)
	if err != nil {
		log.Fatal("Failed to open durable store: %v", err)
	}
	defer durable.Close()

	results := cache.New(durable,
		cache.WithMaxEntries(cfg.Cache.MaxEntries),
		cache.WithTranslationTTL(cfg.Cache.TranslationTTL),
		cache.WithSummaryTTL(cfg.Cache.SummaryTTL),
	)
	if err := results.Load(); err != nil {
		log.Error("Failed to reconcile cache from store: %v", err)
	}

	client, err := remote.NewClient(remote.Config{
		APIURL:      cfg.Remote.APIURL,
		APIKey:      cfg.Remote.APIKey,
		CallTimeout: cfg.Remote.CallTimeout,
		Policy: remote.RetryPolicy{
			MaxAttempts:        cfg.Remote.MaxRetries,
			BaseDelay:          cfg.Remote.BaseDelay,
			MaxDelay:           cfg.Remote.MaxDelay,
			ServerErrorFactor:  1.5,
			NetworkErrorFactor: 0.7,
		},
	}, results)
	if err != nil {
		log.Fatal("Failed to create remote client: %v", err)
	}

	manager := session.NewManager(client, results, session.Config{
		PassTimeout: cfg.Session.PassTimeout,
		SettleDelay: cfg.Session.SettleDelay,
		Scheduler: scheduler.Config{
			BatchSize:       cfg.Scheduler.BatchSize,
			InterBatchDelay: cfg.Scheduler.InterBatchDelay,
		},
	})

	maintenance := cron.New()
	if err := manager.ScheduleMaintenance(maintenance, cfg.Cache.SweepCron); err != nil {
		log.Fatal("Failed to schedule cache maintenance: %v", err)
	}
	maintenance.Start()
	defer maintenance.Stop()

	server := api.NewServer(manager, api.WithSummarizer(client))

	errCh := make(chan error, 1)
	go func() {
		log.Info("Control API listening on %s", cfg.System.HTTPAddr)
		errCh <- server.ListenAndServe(cfg.System.HTTPAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received %s, shutting down", sig)
	case err := <-errCh:
		log.Error("HTTP server stopped: %v", err)
	}

	manager.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Shutdown: %v", err)
	}
}
