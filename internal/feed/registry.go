package feed

import (
	"sort"
	"strings"
)

// Format is the payload encoding of a feed category
type Format string

const (
	FormatGTFSRT Format = "gtfsrt"
	FormatJSON   Format = "json"
)

// Source describes one feed category: how its payloads are encoded and
// where each feed id is fetched from
type Source struct {
	Format Format
	URLs   map[string]string
}

const baseURL = "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/"

// DefaultSources returns the MTA feed tables
func DefaultSources() map[string]Source {
	return map[string]Source{
		"subway": {Format: FormatGTFSRT, URLs: map[string]string{
			"ace":   baseURL + "nyct%2Fgtfs-ace",
			"bdfm":  baseURL + "nyct%2Fgtfs-bdfm",
			"g":     baseURL + "nyct%2Fgtfs-g",
			"jz":    baseURL + "nyct%2Fgtfs-jz",
			"nqrw":  baseURL + "nyct%2Fgtfs-nqrw",
			"l":     baseURL + "nyct%2Fgtfs-l",
			"num_s": baseURL + "nyct%2Fgtfs", // 1234567S
			"sir":   baseURL + "nyct%2Fgtfs-si",
		}},
		"lirr": {Format: FormatGTFSRT, URLs: map[string]string{
			"lirr": baseURL + "lirr%2Fgtfs-lirr",
		}},
		"mnr": {Format: FormatGTFSRT, URLs: map[string]string{
			"mnr": baseURL + "mnr%2Fgtfs-mnr",
		}},
		"alerts": {Format: FormatGTFSRT, URLs: map[string]string{
			"all_alerts":    baseURL + "camsys%2Fall-alerts",
			"subway_alerts": baseURL + "camsys%2Fsubway-alerts",
			"bus_alerts":    baseURL + "camsys%2Fbus-alerts",
			"lirr_alerts":   baseURL + "camsys%2Flirr-alerts",
			"mnr_alerts":    baseURL + "camsys%2Fmnr-alerts",
		}},
		"accessibility": {Format: FormatJSON, URLs: map[string]string{
			"current":   baseURL + "nyct%2Fnyct_ene.json",
			"upcoming":  baseURL + "nyct%2Fnyct_ene_upcoming.json",
			"equipment": baseURL + "nyct%2Fnyct_ene_equipments.json",
		}},
	}
}

// Registry is the read-only set of known feeds
type Registry struct {
	sources map[string]Source
}

// NewRegistry copies sources into a registry. URLs are trimmed of
// surrounding whitespace.
func NewRegistry(sources map[string]Source) *Registry {
	r := &Registry{sources: make(map[string]Source, len(sources))}
	for name, src := range sources {
		format := src.Format
		if format == "" {
			format = FormatGTFSRT
		}
		urls := make(map[string]string, len(src.URLs))
		for id, u := range src.URLs {
			urls[id] = strings.TrimSpace(u)
		}
		r.sources[name] = Source{Format: format, URLs: urls}
	}
	return r
}

// Lookup returns the URL and format of one feed
func (r *Registry) Lookup(category, id string) (string, Format, bool) {
	src, ok := r.sources[category]
	if !ok {
		return "", "", false
	}
	u, ok := src.URLs[id]
	if !ok {
		return "", "", false
	}
	return u, src.Format, true
}

// HasCategory reports whether category is configured
func (r *Registry) HasCategory(category string) bool {
	_, ok := r.sources[category]
	return ok
}

// Categories returns the configured category names, sorted
func (r *Registry) Categories() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IDs returns the sorted feed ids of a category
func (r *Registry) IDs(category string) []string {
	src := r.sources[category]
	ids := make([]string, 0, len(src.URLs))
	for id := range src.URLs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// URLs returns a copy of the id to URL table of a category
func (r *Registry) URLs(category string) map[string]string {
	src := r.sources[category]
	out := make(map[string]string, len(src.URLs))
	for id, u := range src.URLs {
		out[id] = u
	}
	return out
}
