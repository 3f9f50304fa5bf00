package feed

import "time"

// DefaultFallbackTTL applies when neither the feed id nor its category has
// an entry in the TTL table
const DefaultFallbackTTL = 60 * time.Second

// DefaultTTLs returns the freshness table keyed by feed id or by
// "<category>_default"
func DefaultTTLs() map[string]time.Duration {
	return map[string]time.Duration{
		"subway_default":        30 * time.Second,
		"lirr_default":          60 * time.Second,
		"mnr_default":           60 * time.Second,
		"alerts_default":        3 * time.Minute,
		"accessibility_default": 5 * time.Minute,

		"lirr_alerts": 5 * time.Minute,
		"mnr_alerts":  5 * time.Minute,
		"upcoming":    30 * time.Minute,
		"equipment":   time.Hour,

		"stations_default":    24 * time.Hour,
		"routes_default":      24 * time.Hour,
		"lines_default":       24 * time.Hour,
		"route_stops_default": 24 * time.Hour,
	}
}

// TTLPolicy resolves how long a cached value stays fresh
type TTLPolicy struct {
	Table    map[string]time.Duration
	Fallback time.Duration
}

// DefaultTTLPolicy returns the MTA freshness table with a 60s fallback
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{Table: DefaultTTLs(), Fallback: DefaultFallbackTTL}
}

// Resolve looks up the feed id first, then "<category>_default", then the
// fallback. Feed ids are global keys: an override applies whatever category
// the id is requested under.
func (p TTLPolicy) Resolve(category, id string) time.Duration {
	if ttl, ok := p.Table[id]; ok {
		return ttl
	}
	if ttl, ok := p.Table[category+"_default"]; ok {
		return ttl
	}
	return p.Fallback
}
