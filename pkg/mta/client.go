package mta

import (
	"context"
	"time"

	"github.com/jusunglee/mta-realtime/internal/cache"
	"github.com/jusunglee/mta-realtime/internal/config"
	"github.com/jusunglee/mta-realtime/internal/feed"
	"github.com/jusunglee/mta-realtime/internal/models"
	"github.com/jusunglee/mta-realtime/internal/reference"
)

// Client defines the interface for accessing MTA data
// Abstracts the fetcher, reference tables and cache behind one surface
type Client interface {
	AvailableFeeds() map[string][]string
	CategoryFeeds(category string) (map[string]string, error)
	// Fetch returns *models.NormalizedFeed or models.Document depending on
	// the category format
	Fetch(ctx context.Context, category, id string) (any, error)
	GetFeed(ctx context.Context, category, id string) (*models.NormalizedFeed, error)
	GetDocument(ctx context.Context, category, id string) (models.Document, error)
	StationAccessibility(ctx context.Context, stationID string) (*models.StationAccessibility, error)

	Stations() ([]models.Station, error)
	NearbyStations(lat, lon float64, limit int) ([]reference.NearbyStation, error)
	Routes() ([]models.Route, error)
	RouteShape(routeID string) (*models.RouteShape, error)
	RouteStops(routeID string) (*models.RouteStops, error)
	Line(routeID string) ([]models.Coordinate, error)

	CacheStats() cache.Stats
	ClearCache()
	RemoveCacheKey(key string)
}

// Config holds configuration for the MTA client
// APIKey is sent as x-api-key on every upstream request
type Config struct {
	APIKey    string
	UserAgent string
	Timeout   time.Duration
	Sources   map[string]feed.Source
	TTL       feed.TTLPolicy
	Location  *time.Location
	GTFSDir   string
}

// DefaultConfig returns default configuration
// Built-in MTA feed tables, 10s upstream timeout, local timezone
func DefaultConfig() Config {
	cfg, _ := FromConfig(config.Default())
	return cfg
}

// FromConfig converts the loaded application configuration
func FromConfig(c *config.Config) (Config, error) {
	loc, err := c.Location()
	if err != nil {
		return Config{}, err
	}
	return Config{
		APIKey:    c.Upstream.APIKey,
		UserAgent: c.Upstream.UserAgent,
		Timeout:   c.Upstream.Timeout,
		Sources:   c.Sources(),
		TTL:       c.TTLPolicy(),
		Location:  loc,
		GTFSDir:   c.GTFSDir,
	}, nil
}
