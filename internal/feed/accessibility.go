package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jusunglee/mta-realtime/internal/models"
)

const (
	accessibilityCategory = "accessibility"
	equipmentFeed         = "equipment"
)

// StationAccessibility returns the elevators and escalators listed for one
// station in the equipment feed. The feed is either an object with an
// "equipment" array or a bare array; items match on their station_id.
func (f *Fetcher) StationAccessibility(ctx context.Context, stationID string) (*models.StationAccessibility, error) {
	doc, err := f.GetDocument(ctx, accessibilityCategory, equipmentFeed)
	if err != nil {
		return nil, err
	}

	items, err := equipmentItems(doc)
	if err != nil {
		return nil, &Error{Kind: KindDecodeFailure, Category: accessibilityCategory, FeedID: equipmentFeed, Err: err}
	}

	out := &models.StationAccessibility{
		StationID: stationID,
		Equipment: make([]models.Document, 0),
	}
	for _, item := range items {
		var probe struct {
			StationID json.RawMessage `json:"station_id"`
		}
		if err := json.Unmarshal(item, &probe); err != nil {
			continue
		}
		if matchesStation(probe.StationID, stationID) {
			out.Equipment = append(out.Equipment, models.Document(item))
		}
	}
	out.EquipmentCount = len(out.Equipment)
	return out, nil
}

func equipmentItems(doc models.Document) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(doc, &items); err == nil {
		return items, nil
	}

	var wrapped struct {
		Equipment []json.RawMessage `json:"equipment"`
	}
	if err := json.Unmarshal(doc, &wrapped); err != nil {
		return nil, fmt.Errorf("equipment document: %w", err)
	}
	return wrapped.Equipment, nil
}

// matchesStation compares a station_id that may be encoded as a string or
// a number
func matchesStation(raw json.RawMessage, stationID string) bool {
	if len(raw) == 0 {
		return false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s == stationID
	}
	return string(raw) == stationID
}
