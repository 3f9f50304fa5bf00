// Package gtfsrt decodes GTFS-Realtime feed snapshots and normalizes them
// into the JSON-ready records served by the API.
//
// The decoded tree mirrors the wire schema but only keeps the fields the
// service exposes. Optional scalars are pointers so that an unset field can
// be told apart from a field explicitly set to its zero value.
package gtfsrt

// FeedMessage is one decoded feed snapshot
type FeedMessage struct {
	Header   FeedHeader
	Entities []Entity
}

// FeedHeader holds the snapshot metadata
type FeedHeader struct {
	Version   string
	Timestamp uint64
}

// Entity is one update record. Payloads are independently optional.
type Entity struct {
	ID         string
	Vehicle    *VehiclePosition
	TripUpdate *TripUpdate
	Alert      *Alert
}

// TripDescriptor identifies a scheduled trip
type TripDescriptor struct {
	TripID  string
	RouteID string
}

// VehiclePosition reports where a vehicle is and what it is doing
type VehiclePosition struct {
	Trip          TripDescriptor
	Timestamp     *uint64
	Position      *Position
	CurrentStatus *int32
	StopID        *string
}

// Position is a geographic fix
type Position struct {
	Latitude  float32
	Longitude float32
	Bearing   *float32
	Speed     *float32
}

// TripUpdate carries stop predictions for a trip, in feed order
type TripUpdate struct {
	Trip            TripDescriptor
	Timestamp       *uint64
	StopTimeUpdates []StopTimeUpdate
}

// StopTimeUpdate is the prediction for one stop
type StopTimeUpdate struct {
	StopID    string
	Arrival   *StopTimeEvent
	Departure *StopTimeEvent
}

// StopTimeEvent is a predicted arrival or departure
type StopTimeEvent struct {
	Time  int64
	Delay *int32
}

// Alert is a service alert
type Alert struct {
	Cause           *int32
	Effect          *int32
	URL             []Translation
	HeaderText      []Translation
	DescriptionText []Translation
	ActivePeriods   []TimeRange
	InformedEntity  []EntitySelector
}

// Translation is one language variant of an alert string
type Translation struct {
	Text     string
	Language string
}

// TimeRange is an alert activity window. Either bound may be open.
type TimeRange struct {
	Start *uint64
	End   *uint64
}

// EntitySelector names an agency, route or stop affected by an alert
type EntitySelector struct {
	AgencyID  *string
	RouteID   *string
	RouteType *int32
	StopID    *string
}
