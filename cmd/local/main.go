package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/jusunglee/mta-realtime/internal/config"
	"github.com/jusunglee/mta-realtime/internal/logger"
	"github.com/jusunglee/mta-realtime/pkg/mta"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file")
		apiKey     = flag.String("api-key", "", "MTA API key")
		category   = flag.String("category", "subway", "Feed category")
		feedID     = flag.String("feed", "", "Feed id to print as JSON")
		lat        = flag.Float64("lat", 40.7527, "Latitude")
		lon        = flag.Float64("lon", -73.9772, "Longitude")
		limit      = flag.Int("limit", 5, "Number of nearby stations")
		timeout    = flag.Duration("timeout", 15*time.Second, "Overall deadline")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *apiKey != "" {
		cfg.Upstream.APIKey = *apiKey
	}
	cfg.Log.Format = "console"
	cfg.Log.Output = "stderr"

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	clientConfig, err := mta.FromConfig(cfg)
	if err != nil {
		log.Fatal("Invalid client config", zap.Error(err))
	}
	client, err := mta.NewLocal(clientConfig, mta.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to create MTA client", zap.Error(err))
	}
	defer client.Close()

	// Feed mode prints one normalized snapshot
	if *feedID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()

		data, err := client.GetFeed(ctx, *category, *feedID)
		if err != nil {
			log.Fatal("Failed to fetch feed",
				zap.String("category", *category),
				zap.String("feed", *feedID),
				zap.Error(err))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			log.Fatal("Failed to encode feed", zap.Error(err))
		}
		return
	}

	// Default location-based query mode
	stations, err := client.NearbyStations(*lat, *lon, *limit)
	if err != nil {
		log.Fatal("Failed to get stations", zap.Error(err))
	}

	fmt.Printf("\nNearest stations to (%.4f, %.4f):\n", *lat, *lon)
	for _, station := range stations {
		fmt.Printf("  %s (%s) %.2f km\n", station.Name, station.ID, station.DistanceKM)
	}
}
