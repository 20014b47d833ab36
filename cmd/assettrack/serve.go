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

	"assettrack/internal/seed"
	"assettrack/internal/server"
	"assettrack/internal/store"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, logger, pool, err := connect(ctx, cCtx)
	if err != nil {
		return err
	}
	defer pool.Close()

	categoryRepo, closeCache, err := categoryRepository(ctx, config, pool, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	if err := seed.SeedCategories(ctx, categoryRepo, logger); err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}

	var jwkCache *jwk.Cache
	if config.AuthJWKSURL != "" {
		jwkCache, err = jwk.NewCache(context.Background(), httprc.NewClient())
		if err != nil {
			return fmt.Errorf("failed to initialize jwk cache: %w", err)
		}

		err = jwkCache.Register(context.Background(), config.AuthJWKSURL)
		if err != nil {
			return fmt.Errorf("failed to register jwks url with cache: %w", err)
		}
	}

	auth, err := server.NewAuthenticator(config, jwkCache)
	if err != nil {
		return err
	}

	srv, err := server.New(config, logger, server.Stores{
		Categories:  categoryRepo,
		Accessories: store.NewAccessoryRepository(pool),
		Items:       store.NewItemRepository(pool),
		Ledger:      store.NewLedgerRepository(pool),
		Licenses:    store.NewLicenseRepository(pool),
		Employees:   store.NewEmployeeRepository(pool),
		Requests:    store.NewRequestRepository(pool),
	}, auth)
	if err != nil {
		return err
	}

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
