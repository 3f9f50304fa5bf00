package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/jusunglee/mta-realtime/internal/feed"
	"github.com/jusunglee/mta-realtime/pkg/mta"
)

// Handler handles HTTP requests
type Handler struct {
	client mta.Client
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler. A nil logger is replaced by a no-op.
func NewHandler(client mta.Client, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{client: client, logger: logger}
}

// RegisterRoutes registers all routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", h.handleIndex).Methods("GET")
	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/feeds", h.handleFeeds).Methods("GET")
	r.HandleFunc("/feeds/{category}", h.handleAnyCategoryFeeds).Methods("GET")
	r.HandleFunc("/feeds/{category}/{id}", h.handleAnyFeed).Methods("GET")

	r.HandleFunc("/subway/feeds", h.handleCategoryFeeds("subway")).Methods("GET")
	r.HandleFunc("/subway/feeds/{id}", h.handleFeed("subway")).Methods("GET")
	r.HandleFunc("/lirr/feeds/{id}", h.handleFeed("lirr")).Methods("GET")
	r.HandleFunc("/mnr/feeds/{id}", h.handleFeed("mnr")).Methods("GET")
	r.HandleFunc("/alerts/{id}", h.handleFeed("alerts")).Methods("GET")
	r.HandleFunc("/accessibility/station/{id}", h.handleStationAccessibility).Methods("GET")
	r.HandleFunc("/accessibility/{id}", h.handleDocument("accessibility")).Methods("GET")

	r.HandleFunc("/stations", h.handleStations).Methods("GET")
	r.HandleFunc("/stations/nearby", h.handleNearby).Methods("GET")
	r.HandleFunc("/routes", h.handleRoutes).Methods("GET")
	r.HandleFunc("/routes/{id}/shape", h.handleRouteShape).Methods("GET")
	r.HandleFunc("/routes/{id}/stops", h.handleRouteStops).Methods("GET")
	r.HandleFunc("/line/{id}", h.handleLine).Methods("GET")

	r.HandleFunc("/cache/stats", h.handleCacheStats).Methods("GET")
	r.HandleFunc("/cache", h.handleCacheClear).Methods("DELETE")
	r.HandleFunc("/cache/{key}", h.handleCacheRemove).Methods("DELETE")
}

// ErrorBody describes a failed request
type ErrorBody struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Category string `json:"category,omitempty"`
	ID       string `json:"id,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// MessageResponse acknowledges a request without data
type MessageResponse struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message"`
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"title":  "mta-realtime",
		"readme": "GTFS-Realtime feeds from the MTA, decoded to JSON. See /feeds for what is available.",
	}
	h.writeJSON(w, response)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, MessageResponse{Status: "ok", Message: "Service is running"})
}

func (h *Handler) handleFeeds(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.client.AvailableFeeds())
}

// handleAnyCategoryFeeds serves any configured category, including ones
// added in the config file
func (h *Handler) handleAnyCategoryFeeds(w http.ResponseWriter, r *http.Request) {
	h.handleCategoryFeeds(mux.Vars(r)["category"])(w, r)
}

// handleAnyFeed serves a feed of any configured category in its own
// format: a normalized snapshot or the upstream JSON document
func (h *Handler) handleAnyFeed(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	data, err := h.client.Fetch(r.Context(), vars["category"], vars["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, data)
}

func (h *Handler) handleCategoryFeeds(category string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		feeds, err := h.client.CategoryFeeds(category)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, feeds)
	}
}

func (h *Handler) handleFeed(category string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := h.client.GetFeed(r.Context(), category, mux.Vars(r)["id"])
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, data)
	}
}

func (h *Handler) handleDocument(category string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := h.client.GetDocument(r.Context(), category, mux.Vars(r)["id"])
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, doc)
	}
}

func (h *Handler) handleStationAccessibility(w http.ResponseWriter, r *http.Request) {
	data, err := h.client.StationAccessibility(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, data)
}

func (h *Handler) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.client.Stations()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, stations)
}

func (h *Handler) handleNearby(w http.ResponseWriter, r *http.Request) {
	latStr := r.URL.Query().Get("lat")
	lonStr := r.URL.Query().Get("lon")

	if latStr == "" || lonStr == "" {
		h.writeBadRequest(w, "Missing lat/lon parameter")
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		h.writeBadRequest(w, "Invalid lat parameter")
		return
	}

	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		h.writeBadRequest(w, "Invalid lon parameter")
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 0 {
			h.writeBadRequest(w, "Invalid limit parameter")
			return
		}
	}

	stations, err := h.client.NearbyStations(lat, lon, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, stations)
}

func (h *Handler) handleRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := h.client.Routes()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, routes)
}

func (h *Handler) handleRouteShape(w http.ResponseWriter, r *http.Request) {
	shape, err := h.client.RouteShape(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, shape)
}

func (h *Handler) handleRouteStops(w http.ResponseWriter, r *http.Request) {
	stops, err := h.client.RouteStops(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, stops)
}

func (h *Handler) handleLine(w http.ResponseWriter, r *http.Request) {
	line, err := h.client.Line(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, line)
}

func (h *Handler) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.client.CacheStats())
}

func (h *Handler) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	h.client.ClearCache()
	h.writeJSON(w, MessageResponse{Message: "Cache cleared"})
}

func (h *Handler) handleCacheRemove(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	h.client.RemoveCacheKey(key)
	h.writeJSON(w, MessageResponse{Message: "Removed " + key})
}

func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError maps fetch failures to status codes: unknown ids are 404,
// upstream and decode failures 502, anything else 500
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := ErrorBody{Kind: "internal", Message: err.Error()}
	status := http.StatusInternalServerError

	var fe *feed.Error
	if errors.As(err, &fe) {
		body.Kind = fe.Kind.String()
		body.Category = fe.Category
		body.ID = fe.FeedID
		switch fe.Kind {
		case feed.KindInvalidIdentifier:
			status = http.StatusNotFound
		case feed.KindTransportFailure, feed.KindDecodeFailure:
			status = http.StatusBadGateway
		}
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	h.writeStatus(w, status, ErrorResponse{Error: body})
}

func (h *Handler) writeBadRequest(w http.ResponseWriter, message string) {
	h.writeStatus(w, http.StatusBadRequest, ErrorResponse{Error: ErrorBody{Kind: "bad_request", Message: message}})
}

func (h *Handler) writeStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
