package config

import (
	"time"

	"github.com/jusunglee/mta-realtime/internal/logger"
)

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port            int           `yaml:"port" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// UpstreamConfig contains settings for calls to the MTA feed endpoints
type UpstreamConfig struct {
	APIKey    string        `yaml:"api_key"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
	UserAgent string        `yaml:"user_agent"`
}

// FeedConfig is one feed category. Format defaults to gtfsrt.
type FeedConfig struct {
	Format string            `yaml:"format" validate:"omitempty,oneof=gtfsrt json"`
	URLs   map[string]string `yaml:"urls" validate:"required,min=1,dive,keys,required,endkeys,url"`
}

// Config is the root configuration structure
type Config struct {
	Server   ServerConfig          `yaml:"server"`
	Upstream UpstreamConfig        `yaml:"upstream"`
	Feeds    map[string]FeedConfig `yaml:"feeds" validate:"required,min=1,dive"`
	// CacheTTL is keyed by feed id or "<category>_default", in seconds
	CacheTTL   map[string]int `yaml:"cache_ttl" validate:"dive,gte=0"`
	DefaultTTL int            `yaml:"default_ttl" validate:"gt=0"`
	Timezone   string         `yaml:"timezone"`
	GTFSDir    string         `yaml:"gtfs_dir"`
	Log        logger.Config  `yaml:"log"`
}
