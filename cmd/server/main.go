package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/jusunglee/mta-realtime/api/handlers"
	"github.com/jusunglee/mta-realtime/internal/config"
	"github.com/jusunglee/mta-realtime/internal/logger"
	"github.com/jusunglee/mta-realtime/internal/metrics"
	"github.com/jusunglee/mta-realtime/pkg/mta"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file")
		port       = flag.Int("port", 0, "Server port (overrides config)")
		apiKey     = flag.String("api-key", "", "MTA API key (overrides config and MTA_API_KEY)")
		gtfsDir    = flag.String("gtfs-dir", "", "Static GTFS directory (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *apiKey != "" {
		cfg.Upstream.APIKey = *apiKey
	}
	if *gtfsDir != "" {
		cfg.GTFSDir = *gtfsDir
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	clientConfig, err := mta.FromConfig(cfg)
	if err != nil {
		log.Fatal("Invalid client config", zap.Error(err))
	}

	m := metrics.New(true)
	client, err := mta.NewLocal(clientConfig, mta.WithLogger(log), mta.WithMetrics(m))
	if err != nil {
		log.Fatal("Failed to create MTA client", zap.Error(err))
	}
	defer client.Close()

	// Create HTTP server
	r := mux.NewRouter()
	r.Handle("/metrics", m.Handler()).Methods("GET")
	h := handlers.NewHandler(client, log.Named("http"))
	h.RegisterRoutes(r)


	addr := ":" + strconv.Itoa(cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handlers.Wrap(r, log.Named("access")),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server
	go func() {
		log.Info("Server starting",
			zap.String("addr", addr),
			zap.Int("categories", len(cfg.Feeds)),
			zap.String("gtfs_dir", cfg.GTFSDir))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server stopped")
}
