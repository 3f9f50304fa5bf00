package models

import "encoding/json"

// NormalizedFeed is the JSON-ready form of one decoded feed snapshot.
// Optional attributes are pointers: nil means the wire message left the
// field unset, and the field is omitted from JSON.
type NormalizedFeed struct {
	Header   FeedHeader `json:"header"`
	Entities []Entity   `json:"entities"`
}

// FeedHeader carries the snapshot timestamp and the feed it came from.
type FeedHeader struct {
	Timestamp uint64 `json:"timestamp"`
	HumanTime string `json:"human_time"`
	FeedID    string `json:"feed_id"`
}

// Entity is one update record. Each payload is independently optional.
type Entity struct {
	ID         string      `json:"id"`
	Vehicle    *Vehicle    `json:"vehicle,omitempty"`
	TripUpdate *TripUpdate `json:"trip_update,omitempty"`
	Alert      *Alert      `json:"alert,omitempty"`
}

// Trip identifies the scheduled trip a payload refers to.
type Trip struct {
	TripID  string `json:"trip_id"`
	RouteID string `json:"route_id"`
}

// Vehicle is a normalized vehicle position.
type Vehicle struct {
	Trip          Trip      `json:"trip"`
	Timestamp     *uint64   `json:"timestamp,omitempty"`
	HumanTime     string    `json:"human_time,omitempty"`
	Position      *Position `json:"position,omitempty"`
	CurrentStatus *string   `json:"current_status,omitempty"`
	StopID        *string   `json:"stop_id,omitempty"`
}

// Position is a geographic fix. Bearing and speed may legitimately be zero.
type Position struct {
	Latitude  float32  `json:"latitude"`
	Longitude float32  `json:"longitude"`
	Bearing   *float32 `json:"bearing,omitempty"`
	Speed     *float32 `json:"speed,omitempty"`
}

// TripUpdate is a normalized trip update with its stop predictions in
// feed order.
type TripUpdate struct {
	Trip            Trip             `json:"trip"`
	Timestamp       *uint64          `json:"timestamp,omitempty"`
	HumanTime       string           `json:"human_time,omitempty"`
	StopTimeUpdates []StopTimeUpdate `json:"stop_time_updates"`
}

// StopTimeUpdate is the prediction for one stop of a trip.
type StopTimeUpdate struct {
	StopID    string         `json:"stop_id"`
	Arrival   *StopTimeEvent `json:"arrival,omitempty"`
	Departure *StopTimeEvent `json:"departure,omitempty"`
}

// StopTimeEvent is an arrival or departure prediction.
type StopTimeEvent struct {
	Time      int64  `json:"time"`
	HumanTime string `json:"human_time,omitempty"`
	Delay     *int32 `json:"delay,omitempty"`
}

// Alert is a normalized service alert. Cause and effect are the raw
// schema codes.
type Alert struct {
	ActivePeriod    []Period         `json:"active_period"`
	InformedEntity  []InformedEntity `json:"informed_entity"`
	Cause           *int32           `json:"cause,omitempty"`
	Effect          *int32           `json:"effect,omitempty"`
	URL             *string          `json:"url,omitempty"`
	HeaderText      *string          `json:"header_text,omitempty"`
	DescriptionText *string          `json:"description_text,omitempty"`
}

// Period is one active window of an alert.
type Period struct {
	Start *Instant `json:"start,omitempty"`
	End   *Instant `json:"end,omitempty"`
}

// Instant is a timestamp with its rendered form.
type Instant struct {
	Timestamp uint64 `json:"timestamp"`
	HumanTime string `json:"human_time,omitempty"`
}

// InformedEntity selects what an alert applies to.
type InformedEntity struct {
	AgencyID  *string `json:"agency_id,omitempty"`
	RouteID   *string `json:"route_id,omitempty"`
	RouteType *int32  `json:"route_type,omitempty"`
	StopID    *string `json:"stop_id,omitempty"`
}

// Document is an upstream JSON document served as-is (accessibility feeds).
type Document json.RawMessage

// MarshalJSON emits the document verbatim.
func (d Document) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

// CloneValue returns a copy that shares no memory with d.
func (d Document) CloneValue() any {
	out := make(Document, len(d))
	copy(out, d)
	return out
}

// CloneValue returns a deep copy of the feed.
func (f *NormalizedFeed) CloneValue() any {
	return f.Clone()
}

// Clone returns a deep copy of the feed. Mutating the copy never affects f.
func (f *NormalizedFeed) Clone() *NormalizedFeed {
	if f == nil {
		return nil
	}
	out := &NormalizedFeed{Header: f.Header}
	if f.Entities != nil {
		out.Entities = make([]Entity, len(f.Entities))
		for i, e := range f.Entities {
			out.Entities[i] = e.clone()
		}
	}
	return out
}

func (e Entity) clone() Entity {
	out := Entity{ID: e.ID}
	if v := e.Vehicle; v != nil {
		out.Vehicle = &Vehicle{
			Trip:          v.Trip,
			Timestamp:     clonePtr(v.Timestamp),
			HumanTime:     v.HumanTime,
			CurrentStatus: clonePtr(v.CurrentStatus),
			StopID:        clonePtr(v.StopID),
		}
		if p := v.Position; p != nil {
			out.Vehicle.Position = &Position{
				Latitude:  p.Latitude,
				Longitude: p.Longitude,
				Bearing:   clonePtr(p.Bearing),
				Speed:     clonePtr(p.Speed),
			}
		}
	}
	if tu := e.TripUpdate; tu != nil {
		out.TripUpdate = &TripUpdate{
			Trip:      tu.Trip,
			Timestamp: clonePtr(tu.Timestamp),
			HumanTime: tu.HumanTime,
		}
		if tu.StopTimeUpdates != nil {
			out.TripUpdate.StopTimeUpdates = make([]StopTimeUpdate, len(tu.StopTimeUpdates))
			for i, stu := range tu.StopTimeUpdates {
				out.TripUpdate.StopTimeUpdates[i] = StopTimeUpdate{
					StopID:    stu.StopID,
					Arrival:   stu.Arrival.clone(),
					Departure: stu.Departure.clone(),
				}
			}
		}
	}
	if a := e.Alert; a != nil {
		out.Alert = &Alert{
			Cause:           clonePtr(a.Cause),
			Effect:          clonePtr(a.Effect),
			URL:             clonePtr(a.URL),
			HeaderText:      clonePtr(a.HeaderText),
			DescriptionText: clonePtr(a.DescriptionText),
		}
		if a.ActivePeriod != nil {
			out.Alert.ActivePeriod = make([]Period, len(a.ActivePeriod))
			for i, p := range a.ActivePeriod {
				out.Alert.ActivePeriod[i] = Period{Start: clonePtr(p.Start), End: clonePtr(p.End)}
			}
		}
		if a.InformedEntity != nil {
			out.Alert.InformedEntity = make([]InformedEntity, len(a.InformedEntity))
			for i, ie := range a.InformedEntity {
				out.Alert.InformedEntity[i] = InformedEntity{
					AgencyID:  clonePtr(ie.AgencyID),
					RouteID:   clonePtr(ie.RouteID),
					RouteType: clonePtr(ie.RouteType),
					StopID:    clonePtr(ie.StopID),
				}
			}
		}
	}
	return out
}

func (e *StopTimeEvent) clone() *StopTimeEvent {
	if e == nil {
		return nil
	}
	return &StopTimeEvent{Time: e.Time, HumanTime: e.HumanTime, Delay: clonePtr(e.Delay)}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
