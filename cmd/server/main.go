package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cleanup/dashboard/internal/catalog"
	"github.com/cleanup/dashboard/internal/cleanup"
	"github.com/cleanup/dashboard/internal/config"
	"github.com/cleanup/dashboard/internal/database"
	"github.com/cleanup/dashboard/internal/middleware"
	"github.com/cleanup/dashboard/internal/router"
	"github.com/cleanup/dashboard/internal/ws"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	queries := database.New(pool)

	// Calls made on behalf of a dashboard user forward that user's token;
	// background calls use the service token.
	client := cleanup.New(cfg.APIBaseURL, cfg.APITimeout, func(ctx context.Context) string {
		if tok := middleware.TokenFromContext(ctx); tok != "" {
			return tok
		}
		return cfg.ServiceToken
	})

	cat := catalog.New(client)
	if cfg.ServiceToken != "" {
		if _, err := cat.Refresh(ctx); err != nil {
			log.Printf("WARNING: initial catalog load failed, will retry on demand: %v", err)
		}
	}

	cr := cron.New()
	if _, err := cat.Schedule(cr, cfg.CatalogRefresh, cfg.APITimeout); err != nil {
		return fmt.Errorf("schedule catalog refresh %q: %w", cfg.CatalogRefresh, err)
	}

	hub := ws.NewHub()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, queries, client, cat, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		cr.Start()
		<-gctx.Done()
		<-cr.Stop().Done()
		return nil
	})

	g.Go(func() error {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
