package gtfsrt

import (
	"fmt"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
)

// currentStatusField is the VehiclePosition.current_status field number
const currentStatusField protowire.Number = 4

// DecodeError reports bytes that are not a valid FeedMessage
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode gtfs-realtime: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode parses one serialized FeedMessage. Required fields are enforced,
// so empty input is rejected for its missing header. Repeated groups keep
// wire order.
func Decode(b []byte) (*FeedMessage, error) {
	var pb gtfs.FeedMessage
	if err := proto.Unmarshal(b, &pb); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return fromProto(&pb), nil
}

func fromProto(pb *gtfs.FeedMessage) *FeedMessage {
	msg := &FeedMessage{
		Header: FeedHeader{
			Version:   pb.GetHeader().GetGtfsRealtimeVersion(),
			Timestamp: pb.GetHeader().GetTimestamp(),
		},
		Entities: make([]Entity, 0, len(pb.GetEntity())),
	}

	for _, e := range pb.GetEntity() {
		ent := Entity{ID: e.GetId()}
		if e.Vehicle != nil {
			ent.Vehicle = vehicleFromProto(e.Vehicle)
		}
		if e.TripUpdate != nil {
			ent.TripUpdate = tripUpdateFromProto(e.TripUpdate)
		}
		if e.Alert != nil {
			ent.Alert = alertFromProto(e.Alert)
		}
		msg.Entities = append(msg.Entities, ent)
	}
	return msg
}

func tripFromProto(td *gtfs.TripDescriptor) TripDescriptor {
	return TripDescriptor{TripID: td.GetTripId(), RouteID: td.GetRouteId()}
}

func vehicleFromProto(v *gtfs.VehiclePosition) *VehiclePosition {
	out := &VehiclePosition{
		Trip:      tripFromProto(v.GetTrip()),
		Timestamp: copyPtr(v.Timestamp),
		StopID:    copyPtr(v.StopId),
	}
	if p := v.Position; p != nil {
		out.Position = &Position{
			Latitude:  p.GetLatitude(),
			Longitude: p.GetLongitude(),
			Bearing:   copyPtr(p.Bearing),
			Speed:     copyPtr(p.Speed),
		}
	}
	if v.CurrentStatus != nil {
		s := int32(*v.CurrentStatus)
		out.CurrentStatus = &s
	} else if s, ok := unknownVarint(v.ProtoReflect().GetUnknown(), currentStatusField); ok {
		// proto2 enums are closed; values outside the enum land in the
		// unknown field set instead of the typed field.
		out.CurrentStatus = &s
	}
	return out
}

func tripUpdateFromProto(tu *gtfs.TripUpdate) *TripUpdate {
	out := &TripUpdate{
		Trip:            tripFromProto(tu.GetTrip()),
		Timestamp:       copyPtr(tu.Timestamp),
		StopTimeUpdates: make([]StopTimeUpdate, 0, len(tu.GetStopTimeUpdate())),
	}
	for _, stu := range tu.GetStopTimeUpdate() {
		out.StopTimeUpdates = append(out.StopTimeUpdates, StopTimeUpdate{
			StopID:    stu.GetStopId(),
			Arrival:   eventFromProto(stu.Arrival),
			Departure: eventFromProto(stu.Departure),
		})
	}
	return out
}

func eventFromProto(ev *gtfs.TripUpdate_StopTimeEvent) *StopTimeEvent {
	if ev == nil {
		return nil
	}
	return &StopTimeEvent{Time: ev.GetTime(), Delay: copyPtr(ev.Delay)}
}

func alertFromProto(a *gtfs.Alert) *Alert {
	out := &Alert{
		URL:             translations(a.Url),
		HeaderText:      translations(a.HeaderText),
		DescriptionText: translations(a.DescriptionText),
		ActivePeriods:   make([]TimeRange, 0, len(a.GetActivePeriod())),
		InformedEntity:  make([]EntitySelector, 0, len(a.GetInformedEntity())),
	}
	if a.Cause != nil {
		c := int32(*a.Cause)
		out.Cause = &c
	}
	if a.Effect != nil {
		e := int32(*a.Effect)
		out.Effect = &e
	}
	for _, tr := range a.GetActivePeriod() {
		out.ActivePeriods = append(out.ActivePeriods, TimeRange{
			Start: copyPtr(tr.Start),
			End:   copyPtr(tr.End),
		})
	}
	for _, sel := range a.GetInformedEntity() {
		out.InformedEntity = append(out.InformedEntity, EntitySelector{
			AgencyID:  copyPtr(sel.AgencyId),
			RouteID:   copyPtr(sel.RouteId),
			RouteType: copyPtr(sel.RouteType),
			StopID:    copyPtr(sel.StopId),
		})
	}
	return out
}

func translations(ts *gtfs.TranslatedString) []Translation {
	if ts == nil {
		return nil
	}
	out := make([]Translation, 0, len(ts.GetTranslation()))
	for _, t := range ts.GetTranslation() {
		out = append(out, Translation{Text: t.GetText(), Language: t.GetLanguage()})
	}
	return out
}

// unknownVarint returns the last varint stored under num in raw. The last
// occurrence wins, matching protobuf merge rules for singular fields.
func unknownVarint(raw []byte, num protowire.Number) (int32, bool) {
	var (
		val   int32
		found bool
	)
	for len(raw) > 0 {
		n, typ, l := protowire.ConsumeTag(raw)
		if l < 0 {
			return val, found
		}
		raw = raw[l:]

		if n == num && typ == protowire.VarintType {
			v, m := protowire.ConsumeVarint(raw)
			if m < 0 {
				return val, found
			}
			val, found = int32(v), true
			raw = raw[m:]
			continue
		}

		m := protowire.ConsumeFieldValue(n, typ, raw)
		if m < 0 {
			return val, found
		}
		raw = raw[m:]
	}
	return val, found
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
