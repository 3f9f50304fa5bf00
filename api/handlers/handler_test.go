package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/jusunglee/mta-realtime/internal/cache"
	"github.com/jusunglee/mta-realtime/internal/feed"
	"github.com/jusunglee/mta-realtime/internal/models"
	"github.com/jusunglee/mta-realtime/internal/reference"
)

// MockClient implements mta.Client for testing
type MockClient struct {
	err     error
	removed string
	cleared bool
	nearby  struct {
		lat, lon float64
		limit    int
	}
}

func (m *MockClient) AvailableFeeds() map[string][]string {
	return map[string][]string{"subway": {"ace", "g"}, "lirr": {"lirr"}}
}

func (m *MockClient) CategoryFeeds(category string) (map[string]string, error) {
	return map[string]string{"ace": "https://example.com/ace"}, nil
}

func (m *MockClient) Fetch(ctx context.Context, category, id string) (any, error) {
	if id == "zzz" {
		return nil, feed.InvalidIdentifier(category, id, nil)
	}
	return models.Document(`{"category":"` + category + `"}`), nil
}

func (m *MockClient) GetFeed(ctx context.Context, category, id string) (*models.NormalizedFeed, error) {
	if m.err != nil {
		return nil, m.err
	}
	if id != "ace" {
		return nil, feed.InvalidIdentifier(category, id, nil)
	}
	return &models.NormalizedFeed{
		Header:   models.FeedHeader{Timestamp: 1700000000, HumanTime: "2023-11-14 22:13:20", FeedID: id},
		Entities: []models.Entity{},
	}, nil
}

func (m *MockClient) GetDocument(ctx context.Context, category, id string) (models.Document, error) {
	return models.Document(`{"equipment":[]}`), nil
}

func (m *MockClient) StationAccessibility(ctx context.Context, stationID string) (*models.StationAccessibility, error) {
	return &models.StationAccessibility{StationID: stationID, Equipment: []models.Document{}}, nil
}

func (m *MockClient) Stations() ([]models.Station, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []models.Station{{ID: "127N", Name: "Times Sq-42 St", Lat: 40.75529, Lng: -73.987495}}, nil
}

func (m *MockClient) NearbyStations(lat, lon float64, limit int) ([]reference.NearbyStation, error) {
	m.nearby.lat, m.nearby.lon, m.nearby.limit = lat, lon, limit
	return []reference.NearbyStation{}, nil
}

func (m *MockClient) Routes() ([]models.Route, error) {
	return []models.Route{{ID: "A"}, {ID: "B"}, {ID: "C"}}, nil
}

func (m *MockClient) RouteShape(routeID string) (*models.RouteShape, error) {
	return nil, feed.InvalidIdentifier("routes", routeID, reference.ErrNotFound)
}

func (m *MockClient) RouteStops(routeID string) (*models.RouteStops, error) {
	return &models.RouteStops{RouteID: routeID, Stops: []models.Station{}}, nil
}

func (m *MockClient) Line(routeID string) ([]models.Coordinate, error) {
	return []models.Coordinate{{Lat: 1, Lng: 2}}, nil
}

func (m *MockClient) CacheStats() cache.Stats {
	return cache.Stats{Count: 1, Keys: []string{"subway:ace"}}
}

func (m *MockClient) ClearCache() {
	m.cleared = true
}

func (m *MockClient) RemoveCacheKey(key string) {
	m.removed = key
}

func serve(t *testing.T, client *MockClient, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	r := mux.NewRouter()
	NewHandler(client, nil).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestRoutesStatus(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		status int
	}{
		{"index", "GET", "/", http.StatusOK},
		{"health", "GET", "/health", http.StatusOK},
		{"feeds", "GET", "/feeds", http.StatusOK},
		{"subway feeds", "GET", "/subway/feeds", http.StatusOK},
		{"subway feed", "GET", "/subway/feeds/ace", http.StatusOK},
		{"unknown feed", "GET", "/subway/feeds/zzz", http.StatusNotFound},
		{"lirr", "GET", "/lirr/feeds/ace", http.StatusOK},
		{"mnr", "GET", "/mnr/feeds/ace", http.StatusOK},
		{"alerts", "GET", "/alerts/ace", http.StatusOK},
		{"accessibility", "GET", "/accessibility/equipment", http.StatusOK},
		{"station accessibility", "GET", "/accessibility/station/A27", http.StatusOK},
		{"stations", "GET", "/stations", http.StatusOK},
		{"nearby", "GET", "/stations/nearby?lat=40.75&lon=-73.98", http.StatusOK},
		{"nearby missing lon", "GET", "/stations/nearby?lat=40.75", http.StatusBadRequest},
		{"nearby bad lat", "GET", "/stations/nearby?lat=north&lon=-73.98", http.StatusBadRequest},
		{"nearby bad limit", "GET", "/stations/nearby?lat=40.75&lon=-73.98&limit=-1", http.StatusBadRequest},
		{"routes", "GET", "/routes", http.StatusOK},
		{"route shape", "GET", "/routes/A/shape", http.StatusNotFound},
		{"route stops", "GET", "/routes/A/stops", http.StatusOK},
		{"line", "GET", "/line/A", http.StatusOK},
		{"cache stats", "GET", "/cache/stats", http.StatusOK},
		{"cache clear", "DELETE", "/cache", http.StatusOK},
		{"cache remove", "DELETE", "/cache/subway:ace", http.StatusOK},
		{"generic category list", "GET", "/feeds/bus_alerts_only", http.StatusOK},
		{"generic feed", "GET", "/feeds/bus_alerts_only/bus", http.StatusOK},
		{"generic unknown feed", "GET", "/feeds/bus_alerts_only/zzz", http.StatusNotFound},
		{"wrong method", "POST", "/feeds", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, &MockClient{}, tt.method, tt.target)
			if rec.Code != tt.status {
				t.Errorf("Expected status %d, got %d (%s)", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestFeedResponse(t *testing.T) {
	rec := serve(t, &MockClient{}, "GET", "/subway/feeds/ace")

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %s", ct)
	}

	var got models.NormalizedFeed
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.Header.HumanTime != "2023-11-14 22:13:20" {
		t.Errorf("Expected human_time 2023-11-14 22:13:20, got %s", got.Header.HumanTime)
	}
	if got.Header.FeedID != "ace" {
		t.Errorf("Expected feed_id ace, got %s", got.Header.FeedID)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{
			name:   "transport",
			err:    &feed.Error{Kind: feed.KindTransportFailure, Category: "subway", FeedID: "ace", Err: &feed.StatusError{Code: 503, URL: "u"}},
			status: http.StatusBadGateway,
			kind:   "transport_failure",
		},
		{
			name:   "decode",
			err:    &feed.Error{Kind: feed.KindDecodeFailure, Category: "subway", FeedID: "ace", Err: errors.New("truncated")},
			status: http.StatusBadGateway,
			kind:   "decode_failure",
		},
		{
			name:   "wrapped invalid id",
			err:    fmt.Errorf("lookup: %w", feed.InvalidIdentifier("subway", "ace", nil)),
			status: http.StatusNotFound,
			kind:   "invalid_identifier",
		},
		{
			name:   "other",
			err:    errors.New("disk on fire"),
			status: http.StatusInternalServerError,
			kind:   "internal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, &MockClient{err: tt.err}, "GET", "/subway/feeds/ace")
			if rec.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, rec.Code)
			}

			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Failed to decode error body: %v", err)
			}
			if resp.Error.Kind != tt.kind {
				t.Errorf("Expected kind %s, got %s", tt.kind, resp.Error.Kind)
			}
			if resp.Error.Message != tt.err.Error() {
				t.Errorf("Expected message %q, got %q", tt.err.Error(), resp.Error.Message)
			}
		})
	}
}

func TestErrorBodyFields(t *testing.T) {
	rec := serve(t, &MockClient{}, "GET", "/routes/Q/shape")

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	if resp.Error.Category != "routes" || resp.Error.ID != "Q" {
		t.Errorf("Expected category routes and id Q, got %s and %s", resp.Error.Category, resp.Error.ID)
	}
}

func TestHealth(t *testing.T) {
	rec := serve(t, &MockClient{}, "GET", "/health")

	var resp MessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "ok" || resp.Message != "Service is running" {
		t.Errorf("Unexpected health response: %+v", resp)
	}
}

func TestNearbyParams(t *testing.T) {
	client := &MockClient{}
	serve(t, client, "GET", "/stations/nearby?lat=40.75&lon=-73.98&limit=3")

	if client.nearby.lat != 40.75 || client.nearby.lon != -73.98 {
		t.Errorf("Expected point (40.75, -73.98), got (%f, %f)", client.nearby.lat, client.nearby.lon)
	}
	if client.nearby.limit != 3 {
		t.Errorf("Expected limit 3, got %d", client.nearby.limit)
	}
}

func TestCacheEndpoints(t *testing.T) {
	client := &MockClient{}

	serve(t, client, "DELETE", "/cache/lines:shape:A")
	if client.removed != "lines:shape:A" {
		t.Errorf("Expected lines:shape:A removed, got %q", client.removed)
	}

	serve(t, client, "DELETE", "/cache")
	if !client.cleared {
		t.Error("Expected cache to be cleared")
	}

	rec := serve(t, client, "GET", "/cache/stats")
	var stats cache.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if stats.Count != 1 || len(stats.Keys) != 1 {
		t.Errorf("Expected one key, got %+v", stats)
	}
}

func TestGenericFeedRoute(t *testing.T) {
	rec := serve(t, &MockClient{}, "GET", "/feeds/bus_alerts_only/bus")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != `{"category":"bus_alerts_only"}`+"\n" {
		t.Errorf("Expected category passed through, got %s", body)
	}
}

func TestPreflight(t *testing.T) {
	client := &MockClient{}
	r := mux.NewRouter()
	NewHandler(client, nil).RegisterRoutes(r)
	h := Wrap(r, zap.NewNop())

	for _, target := range []string{"/cache", "/cache/subway:ace", "/subway/feeds/ace"} {
		t.Run(target, func(t *testing.T) {
			req := httptest.NewRequest("OPTIONS", target, nil)
			req.Header.Set("Origin", "https://example.com")
			req.Header.Set("Access-Control-Request-Method", "DELETE")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d", rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
				t.Errorf("Expected allow-origin *, got %q", got)
			}
		})
	}

	if client.cleared || client.removed != "" {
		t.Error("Expected preflight to leave the cache alone")
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("DELETE", "/cache", nil))
	if !client.cleared {
		t.Error("Expected DELETE /cache to clear through the wrapped router")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected allow-origin on DELETE, got %q", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown path, got %d", rec.Code)
	}
}
