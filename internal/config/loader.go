package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jusunglee/mta-realtime/internal/feed"
	"github.com/jusunglee/mta-realtime/internal/logger"
)

// APIKeyEnv is read when no API key is configured
const APIKeyEnv = "MTA_API_KEY"

// Default returns the built-in configuration: the MTA feed tables and
// freshness windows, port 8080 and a 10s upstream timeout
func Default() *Config {
	feeds := make(map[string]FeedConfig)
	for name, src := range feed.DefaultSources() {
		feeds[name] = FeedConfig{Format: string(src.Format), URLs: src.URLs}
	}

	ttls := make(map[string]int)
	for key, d := range feed.DefaultTTLs() {
		ttls[key] = int(d / time.Second)
	}

	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Upstream: UpstreamConfig{
			Timeout:   feed.DefaultTimeout,
			UserAgent: "mta-realtime/1.0",
		},
		Feeds:      feeds,
		CacheTTL:   ttls,
		DefaultTTL: int(feed.DefaultFallbackTTL / time.Second),
		Timezone:   "Local",
		GTFSDir:    "data/gtfs_subway",
		Log:        logger.Config{Level: "info", Format: "json", Output: "stdout"},
	}
}

// Load reads path over the defaults. Categories and TTL keys in the file
// are merged into the built-in tables; a category listed in the file
// replaces the built-in one entirely. An empty path uses the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if cfg.Upstream.APIKey == "" {
		cfg.Upstream.APIKey = os.Getenv(APIKeyEnv)
	}

	for name, fc := range cfg.Feeds {
		for id, u := range fc.URLs {
			fc.URLs[id] = strings.TrimSpace(u)
		}
		if fc.Format == "" {
			fc.Format = string(feed.FormatGTFSRT)
		}
		cfg.Feeds[name] = fc
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints and the timezone name
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Location resolves the timezone used for human_time. Empty and "Local"
// mean the process local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Sources converts the feed tables for the registry
func (c *Config) Sources() map[string]feed.Source {
	out := make(map[string]feed.Source, len(c.Feeds))
	for name, fc := range c.Feeds {
		out[name] = feed.Source{Format: feed.Format(fc.Format), URLs: fc.URLs}
	}
	return out
}

// TTLPolicy converts the freshness table
func (c *Config) TTLPolicy() feed.TTLPolicy {
	table := make(map[string]time.Duration, len(c.CacheTTL))
	for key, sec := range c.CacheTTL {
		table[key] = time.Duration(sec) * time.Second
	}
	return feed.TTLPolicy{
		Table:    table,
		Fallback: time.Duration(c.DefaultTTL) * time.Second,
	}
}
