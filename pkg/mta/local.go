package mta

import (
	"context"

	"go.uber.org/zap"

	"github.com/jusunglee/mta-realtime/internal/cache"
	"github.com/jusunglee/mta-realtime/internal/feed"
	"github.com/jusunglee/mta-realtime/internal/gtfsrt"
	"github.com/jusunglee/mta-realtime/internal/models"
	"github.com/jusunglee/mta-realtime/internal/reference"
)

// Instrumentation observes the shared cache and upstream fetches
type Instrumentation interface {
	cache.Observer
	feed.Recorder
}

type options struct {
	logger    *zap.Logger
	metrics   Instrumentation
	transport feed.Transport
}

// Option configures a LocalClient
type Option func(*options)

// WithLogger sets the logger shared by the fetcher and the reference joiner
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics attaches cache and fetch instrumentation
func WithMetrics(m Instrumentation) Option {
	return func(o *options) { o.metrics = m }
}

// WithTransport replaces the HTTP transport
func WithTransport(t feed.Transport) Option {
	return func(o *options) { o.transport = t }
}

// LocalClient implements the Client interface for local usage
// One cache is shared by the feed fetcher and the reference joiner
type LocalClient struct {
	cache     *cache.Cache
	fetcher   *feed.Fetcher
	reference *reference.Joiner
	logger    *zap.Logger
}

// NewLocal creates a new local MTA client
func NewLocal(config Config, opts ...Option) (*LocalClient, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	var cacheOpts []cache.Option
	if o.metrics != nil {
		cacheOpts = append(cacheOpts, cache.WithObserver(o.metrics))
	}
	c := cache.New(cacheOpts...)

	transport := o.transport
	if transport == nil {
		transport = feed.NewHTTPTransport(config.APIKey, config.UserAgent, config.Timeout)
	}

	sources := config.Sources
	if sources == nil {
		sources = feed.DefaultSources()
	}
	ttl := config.TTL
	if ttl.Table == nil {
		ttl = feed.DefaultTTLPolicy()
	}

	fetchOpts := []feed.Option{
		feed.WithTTLPolicy(ttl),
		feed.WithNormalizer(gtfsrt.Normalizer{Location: config.Location}),
		feed.WithTimeout(config.Timeout),
		feed.WithLogger(o.logger.Named("feed")),
	}
	if o.metrics != nil {
		fetchOpts = append(fetchOpts, feed.WithRecorder(o.metrics))
	}

	if config.APIKey == "" {
		o.logger.Warn("no MTA API key configured, upstream may reject requests")
	}

	return &LocalClient{
		cache:     c,
		fetcher:   feed.NewFetcher(feed.NewRegistry(sources), c, transport, fetchOpts...),
		reference: reference.NewJoiner(config.GTFSDir, c, ttl, o.logger.Named("reference")),
		logger:    o.logger,
	}, nil
}

// Close releases the client. Nothing runs in the background, so it only
// flushes the logger.
func (c *LocalClient) Close() {
	_ = c.logger.Sync()
}

func (c *LocalClient) AvailableFeeds() map[string][]string {
	return c.fetcher.AvailableFeeds()
}

func (c *LocalClient) CategoryFeeds(category string) (map[string]string, error) {
	return c.fetcher.CategoryFeeds(category)
}

func (c *LocalClient) Fetch(ctx context.Context, category, id string) (any, error) {
	return c.fetcher.Fetch(ctx, category, id)
}

func (c *LocalClient) GetFeed(ctx context.Context, category, id string) (*models.NormalizedFeed, error) {
	return c.fetcher.GetFeed(ctx, category, id)
}

func (c *LocalClient) GetDocument(ctx context.Context, category, id string) (models.Document, error) {
	return c.fetcher.GetDocument(ctx, category, id)
}

func (c *LocalClient) StationAccessibility(ctx context.Context, stationID string) (*models.StationAccessibility, error) {
	return c.fetcher.StationAccessibility(ctx, stationID)
}

func (c *LocalClient) Stations() ([]models.Station, error) {
	return c.reference.Stations()
}

func (c *LocalClient) NearbyStations(lat, lon float64, limit int) ([]reference.NearbyStation, error) {
	return c.reference.NearbyStations(lat, lon, limit)
}

func (c *LocalClient) Routes() ([]models.Route, error) {
	return c.reference.Routes()
}

func (c *LocalClient) RouteShape(routeID string) (*models.RouteShape, error) {
	return c.reference.RouteShape(routeID)
}

func (c *LocalClient) RouteStops(routeID string) (*models.RouteStops, error) {
	return c.reference.RouteStops(routeID)
}

func (c *LocalClient) Line(routeID string) ([]models.Coordinate, error) {
	return c.reference.Line(routeID)
}

func (c *LocalClient) CacheStats() cache.Stats {
	return c.cache.Stats()
}

func (c *LocalClient) ClearCache() {
	c.cache.Clear()
}

func (c *LocalClient) RemoveCacheKey(key string) {
	c.cache.Remove(key)
}
