package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jusunglee/mta-realtime/internal/cache"
	"github.com/jusunglee/mta-realtime/internal/gtfsrt"
	"github.com/jusunglee/mta-realtime/internal/models"
)

// Recorder receives upstream fetch outcomes, typically to feed metrics
type Recorder interface {
	ObserveFetch(category, outcome string, elapsed time.Duration)
	ObserveDecodeFailure(category string)
}

// Fetcher serves feed snapshots from the cache, going upstream only when
// the cached copy is missing or stale
type Fetcher struct {
	registry   *Registry
	cache      *cache.Cache
	transport  Transport
	ttl        TTLPolicy
	normalizer gtfsrt.Normalizer
	logger     *zap.Logger
	recorder   Recorder
	timeout    time.Duration
	group      singleflight.Group
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithTTLPolicy replaces the default freshness table
func WithTTLPolicy(p TTLPolicy) Option {
	return func(f *Fetcher) { f.ttl = p }
}

// WithNormalizer sets the normalizer used for binary feeds
func WithNormalizer(n gtfsrt.Normalizer) Option {
	return func(f *Fetcher) { f.normalizer = n }
}

// WithTimeout bounds each upstream call. Zero keeps DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// WithRecorder sets the fetch outcome recorder
func WithRecorder(r Recorder) Option {
	return func(f *Fetcher) { f.recorder = r }
}

// NewFetcher creates a fetcher over a registry, a shared cache and a
// transport
func NewFetcher(registry *Registry, c *cache.Cache, transport Transport, opts ...Option) *Fetcher {
	f := &Fetcher{
		registry:  registry,
		cache:     c,
		transport: transport,
		ttl:       DefaultTTLPolicy(),
		logger:    zap.NewNop(),
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CacheKey is the cache key of one feed
func CacheKey(category, id string) string {
	return category + ":" + id
}

// ResolveTTL returns the freshness window of one feed
func (f *Fetcher) ResolveTTL(category, id string) time.Duration {
	return f.ttl.Resolve(category, id)
}

// Fetch returns the current snapshot of one feed. Binary categories yield
// *models.NormalizedFeed, JSON categories yield models.Document. Every
// caller receives its own copy. Failures are returned as *Error and are
// never cached.
func (f *Fetcher) Fetch(ctx context.Context, category, id string) (any, error) {
	url, format, ok := f.registry.Lookup(category, id)
	if !ok {
		return nil, InvalidIdentifier(category, id, nil)
	}

	key := CacheKey(category, id)
	ttl := f.ResolveTTL(category, id)

	if v, ok := f.cache.Get(key, ttl); ok {
		return v, nil
	}

	ch := f.group.DoChan(key, func() (any, error) {
		// A caller that lost the race may find the winner's value
		if v, ok := f.cache.Get(key, ttl); ok {
			return v, nil
		}
		return f.load(context.WithoutCancel(ctx), category, id, url, format)
	})

	select {
	case <-ctx.Done():
		return nil, &Error{Kind: KindTransportFailure, Category: category, FeedID: id, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			if cl, ok := res.Val.(cache.Cloner); ok {
				return cl.CloneValue(), nil
			}
		}
		return res.Val, nil
	}
}

// load performs the upstream call and decode for one feed
func (f *Fetcher) load(ctx context.Context, category, id, url string, format Format) (any, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	body, err := f.transport.Fetch(ctx, url)
	if err != nil {
		f.observe(category, "transport_error", start)
		f.logger.Warn("upstream fetch failed",
			zap.String("category", category),
			zap.String("feed_id", id),
			zap.Error(err))
		return nil, &Error{Kind: KindTransportFailure, Category: category, FeedID: id, Err: err}
	}

	value, err := f.decode(format, body, id)
	if err != nil {
		f.observe(category, "decode_error", start)
		if f.recorder != nil {
			f.recorder.ObserveDecodeFailure(category)
		}
		f.logger.Warn("feed decode failed",
			zap.String("category", category),
			zap.String("feed_id", id),
			zap.Int("bytes", len(body)),
			zap.Error(err))
		return nil, &Error{Kind: KindDecodeFailure, Category: category, FeedID: id, Err: err}
	}

	f.cache.Set(CacheKey(category, id), value)
	f.observe(category, "ok", start)
	f.logger.Debug("feed refreshed",
		zap.String("category", category),
		zap.String("feed_id", id),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))
	return value, nil
}

func (f *Fetcher) decode(format Format, body []byte, id string) (any, error) {
	switch format {
	case FormatJSON:
		if !json.Valid(body) {
			return nil, fmt.Errorf("invalid JSON document (%d bytes)", len(body))
		}
		doc := make(models.Document, len(body))
		copy(doc, body)
		return doc, nil
	default:
		msg, err := gtfsrt.Decode(body)
		if err != nil {
			return nil, err
		}
		return f.normalizer.Normalize(msg, id), nil
	}
}

func (f *Fetcher) observe(category, outcome string, start time.Time) {
	if f.recorder != nil {
		f.recorder.ObserveFetch(category, outcome, time.Since(start))
	}
}

// GetFeed fetches a binary feed and returns its normalized snapshot
func (f *Fetcher) GetFeed(ctx context.Context, category, id string) (*models.NormalizedFeed, error) {
	if err := f.checkFormat(category, id, FormatGTFSRT); err != nil {
		return nil, err
	}
	v, err := f.Fetch(ctx, category, id)
	if err != nil {
		return nil, err
	}
	feed, ok := v.(*models.NormalizedFeed)
	if !ok {
		return nil, InvalidIdentifier(category, id, fmt.Errorf("%s is not a GTFS-Realtime category", category))
	}
	return feed, nil
}

// GetDocument fetches a JSON feed
func (f *Fetcher) GetDocument(ctx context.Context, category, id string) (models.Document, error) {
	if err := f.checkFormat(category, id, FormatJSON); err != nil {
		return nil, err
	}
	v, err := f.Fetch(ctx, category, id)
	if err != nil {
		return nil, err
	}
	doc, ok := v.(models.Document)
	if !ok {
		return nil, InvalidIdentifier(category, id, fmt.Errorf("%s is not a JSON category", category))
	}
	return doc, nil
}

// checkFormat rejects an id whose category has another format before any
// cache or upstream access
func (f *Fetcher) checkFormat(category, id string, want Format) error {
	_, format, ok := f.registry.Lookup(category, id)
	if !ok {
		return InvalidIdentifier(category, id, nil)
	}
	if format != want {
		return InvalidIdentifier(category, id, fmt.Errorf("%s is a %s category, not %s", category, format, want))
	}
	return nil
}

// AvailableFeeds lists every category with its sorted feed ids
func (f *Fetcher) AvailableFeeds() map[string][]string {
	out := make(map[string][]string)
	for _, c := range f.registry.Categories() {
		out[c] = f.registry.IDs(c)
	}
	return out
}

// CategoryFeeds returns the id to URL table of one category
func (f *Fetcher) CategoryFeeds(category string) (map[string]string, error) {
	if !f.registry.HasCategory(category) {
		return nil, InvalidIdentifier(category, "", fmt.Errorf("unknown category"))
	}
	return f.registry.URLs(category), nil
}
