package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreybb/eventhub/api"
	"github.com/coreybb/eventhub/auth"
	"github.com/coreybb/eventhub/config"
	"github.com/coreybb/eventhub/datastore"
	"github.com/coreybb/eventhub/datastore/memory"
	"github.com/coreybb/eventhub/datastore/mongodb"
	"github.com/coreybb/eventhub/datastore/postgres"
	"github.com/coreybb/eventhub/logging"
	"github.com/coreybb/eventhub/metrics"
	rh "github.com/coreybb/eventhub/route-handlers"
)

const storeOpenTimeout = 10 * time.Second

func main() {
	cfg := config.MustLoad()

	log := logging.Setup(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting eventhub",
		slog.String("env", cfg.Env),
		slog.String("store", cfg.Store.Driver),
	)

	store, err := openStore(cfg.Store, log)
	if err != nil {
		log.Error("store setup failed", logging.Err(err))
		os.Exit(1)
	}

	m := metrics.New()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authService := auth.New(log, store, tokens, m.FailedLogins)

	router := api.SetupRoutes(log, authService,
		rh.NewAuthHandler(authService),
		rh.NewEventHandler(store, m.EventJoins),
		m,
		api.RouterOptions{
			FrontendURL:    cfg.FrontendURL,
			RequestTimeout: cfg.Server.RequestTimeout,
		},
	)

	startServer(cfg, log, router)

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := store.Close(closeCtx); err != nil {
		log.Error("failed to close store", logging.Err(err))
	}
	log.Info("server gracefully stopped")
}

func openStore(cfg config.StoreConfig, log *slog.Logger) (datastore.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeOpenTimeout)
	defer cancel()

	switch cfg.Driver {
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		if err := store.RunMigrations(); err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		log.Info("database connection successful", slog.String("driver", cfg.Driver))
		return store, nil

	case config.DriverMongo:
		store, err := mongodb.Open(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTransactions)
		if err != nil {
			return nil, err
		}
		log.Info("database connection successful",
			slog.String("driver", cfg.Driver),
			slog.String("database", cfg.MongoDatabase),
			slog.Bool("transactions", cfg.MongoTransactions),
		)
		return store, nil

	case config.DriverMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("%w: %q", datastore.ErrUnknownDriver, cfg.Driver)
	}
}

// startServer blocks until SIGINT or SIGTERM, then drains in-flight requests.
func startServer(cfg *config.Config, log *slog.Logger, router http.Handler) {
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case sig := <-shutdownSignal:
		log.Info("shutdown signal received, initiating graceful shutdown", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server error", logging.Err(err))
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", logging.Err(err))
	}
}
