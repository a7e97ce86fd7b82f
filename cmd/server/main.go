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

	"goldledger/internal/config"
	"goldledger/internal/db"
	"goldledger/internal/handlers"
	"goldledger/internal/localkv"
	"goldledger/internal/logging"
	"goldledger/internal/metrics"
	"goldledger/internal/repository"
	"goldledger/internal/securestore"
	"goldledger/internal/services"
	"goldledger/internal/store"
	"goldledger/internal/websocket"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, cleanup, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	// The database is opened lazily so a terminal can start offline.
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	ctx := context.Background()
	medium, closeMedium, err := localkv.Open(ctx, cfg.LocalStoreDriver, cfg.LocalStorePath, cfg.RedisURL)
	if err != nil {
		logger.Fatal("failed to open local store", zap.String("driver", cfg.LocalStoreDriver), zap.Error(err))
	}
	defer func() {
		if err := closeMedium(); err != nil {
			logger.Warn("closing local store", zap.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledgerMetrics := metrics.NewLedgerMetrics(registry)

	remote := db.WithTimeout(database, cfg.RemoteTimeout)
	transactions := store.NewTransactionStore(remote)
	users := store.NewUserStore(remote)
	secure := securestore.New(medium, logger.Named("securestore"), ledgerMetrics)
	repo := repository.New(transactions, secure, logger.Named("repository"), ledgerMetrics)
	hub := websocket.NewHub(logger.Named("ws"))
	service := services.NewTransactionService(repo, secure, hub, logger.Named("service"))

	handler := handlers.New(cfg, logger, users, service, hub, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("gold ledger listening",
			zap.String("addr", server.Addr),
			zap.String("env", cfg.AppEnv),
			zap.String("local_store", cfg.LocalStoreDriver),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
