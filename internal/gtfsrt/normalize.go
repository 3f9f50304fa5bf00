package gtfsrt

import (
	"time"

	"github.com/jusunglee/mta-realtime/internal/models"
)

// HumanTimeLayout is the rendering used for every human_time field
const HumanTimeLayout = "2006-01-02 15:04:05"

var stopStatusNames = map[int32]string{
	0: "INCOMING_AT",
	1: "STOPPED_AT",
	2: "IN_TRANSIT_TO",
}

// StopStatusName maps a VehiclePosition current_status code to its name.
// Codes outside the schema map to UNKNOWN.
func StopStatusName(code int32) string {
	if name, ok := stopStatusNames[code]; ok {
		return name
	}
	return "UNKNOWN"
}

// Normalizer turns decoded messages into JSON-ready records.
// Location controls how human_time is rendered; nil means time.Local.
type Normalizer struct {
	Location *time.Location
}

// Normalize is a pure function of msg, feedID and the normalizer location
func (n Normalizer) Normalize(msg *FeedMessage, feedID string) *models.NormalizedFeed {
	out := &models.NormalizedFeed{
		Header: models.FeedHeader{
			Timestamp: msg.Header.Timestamp,
			HumanTime: n.render(int64(msg.Header.Timestamp)),
			FeedID:    feedID,
		},
		Entities: make([]models.Entity, 0, len(msg.Entities)),
	}

	for _, e := range msg.Entities {
		ent := models.Entity{ID: e.ID}
		if e.Vehicle != nil {
			ent.Vehicle = n.vehicle(e.Vehicle)
		}
		if e.TripUpdate != nil {
			ent.TripUpdate = n.tripUpdate(e.TripUpdate)
		}
		if e.Alert != nil {
			ent.Alert = n.alert(e.Alert)
		}
		out.Entities = append(out.Entities, ent)
	}
	return out
}

func (n Normalizer) vehicle(v *VehiclePosition) *models.Vehicle {
	out := &models.Vehicle{
		Trip:   trip(v.Trip),
		StopID: copyPtr(v.StopID),
	}
	if v.Timestamp != nil {
		out.Timestamp = copyPtr(v.Timestamp)
		out.HumanTime = n.humanTime(int64(*v.Timestamp))
	}
	if p := v.Position; p != nil {
		out.Position = &models.Position{
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Bearing:   copyPtr(p.Bearing),
			Speed:     copyPtr(p.Speed),
		}
	}
	if v.CurrentStatus != nil {
		name := StopStatusName(*v.CurrentStatus)
		out.CurrentStatus = &name
	}
	return out
}

func (n Normalizer) tripUpdate(tu *TripUpdate) *models.TripUpdate {
	out := &models.TripUpdate{
		Trip:            trip(tu.Trip),
		StopTimeUpdates: make([]models.StopTimeUpdate, 0, len(tu.StopTimeUpdates)),
	}
	if tu.Timestamp != nil {
		out.Timestamp = copyPtr(tu.Timestamp)
		out.HumanTime = n.humanTime(int64(*tu.Timestamp))
	}
	for _, stu := range tu.StopTimeUpdates {
		out.StopTimeUpdates = append(out.StopTimeUpdates, models.StopTimeUpdate{
			StopID:    stu.StopID,
			Arrival:   n.event(stu.Arrival),
			Departure: n.event(stu.Departure),
		})
	}
	return out
}

func (n Normalizer) event(ev *StopTimeEvent) *models.StopTimeEvent {
	if ev == nil {
		return nil
	}
	return &models.StopTimeEvent{
		Time:      ev.Time,
		HumanTime: n.humanTime(ev.Time),
		Delay:     copyPtr(ev.Delay),
	}
}

func (n Normalizer) alert(a *Alert) *models.Alert {
	out := &models.Alert{
		ActivePeriod:    make([]models.Period, 0, len(a.ActivePeriods)),
		InformedEntity:  make([]models.InformedEntity, 0, len(a.InformedEntity)),
		Cause:           copyPtr(a.Cause),
		Effect:          copyPtr(a.Effect),
		URL:             firstText(a.URL),
		HeaderText:      firstText(a.HeaderText),
		DescriptionText: firstText(a.DescriptionText),
	}
	for _, p := range a.ActivePeriods {
		out.ActivePeriod = append(out.ActivePeriod, models.Period{
			Start: n.instant(p.Start),
			End:   n.instant(p.End),
		})
	}
	for _, sel := range a.InformedEntity {
		out.InformedEntity = append(out.InformedEntity, models.InformedEntity{
			AgencyID:  copyPtr(sel.AgencyID),
			RouteID:   copyPtr(sel.RouteID),
			RouteType: copyPtr(sel.RouteType),
			StopID:    copyPtr(sel.StopID),
		})
	}
	return out
}

func (n Normalizer) instant(ts *uint64) *models.Instant {
	if ts == nil {
		return nil
	}
	return &models.Instant{Timestamp: *ts, HumanTime: n.humanTime(int64(*ts))}
}

// humanTime renders a present timestamp field. Zero renders nothing.
func (n Normalizer) humanTime(sec int64) string {
	if sec == 0 {
		return ""
	}
	return n.render(sec)
}

func (n Normalizer) render(sec int64) string {
	loc := n.Location
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(sec, 0).In(loc).Format(HumanTimeLayout)
}

func trip(td TripDescriptor) models.Trip {
	return models.Trip{TripID: td.TripID, RouteID: td.RouteID}
}

func firstText(ts []Translation) *string {
	if len(ts) == 0 {
		return nil
	}
	text := ts[0].Text
	return &text
}
