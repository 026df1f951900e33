package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"noveldesk/internal/app"
	"noveldesk/internal/config"
	"noveldesk/internal/metrics"
	"noveldesk/internal/vault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	cipher, err := vault.NewCipher(cfg.VaultSecret)
	if err != nil {
		log.Fatalf("cipher init failed: %v", err)
	}
	store, err := vault.NewStore(cfg.DataDir, cipher)
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	store.OnMigrate = collector.RecordLegacyMigration

	service := app.New(cfg, store, collector)
	httpServer := app.NewHTTPServer(service, metrics.Handler(registry))
	defer httpServer.Close()

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: cfg.RequestTimeout,
		ReadTimeout:       cfg.RequestTimeout + 5*time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("NovelDesk API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
