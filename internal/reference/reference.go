// Package reference joins the static GTFS tables (stops, routes, trips,
// shapes, stop times) into the station, route and line views served next
// to the realtime feeds. Every view is cached in the shared freshness cache.
package reference

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/jusunglee/mta-realtime/internal/cache"
	"github.com/jusunglee/mta-realtime/internal/feed"
	"github.com/jusunglee/mta-realtime/internal/models"
)

// ErrNotFound is wrapped by lookups for a route with no matching rows
var ErrNotFound = errors.New("not found")

// TTL categories
const (
	categoryStations   = "stations"
	categoryRoutes     = "routes"
	categoryLines      = "lines"
	categoryRouteStops = "route_stops"
)

// Joiner answers reference queries over one GTFS directory
type Joiner struct {
	dir    string
	cache  *cache.Cache
	ttl    feed.TTLPolicy
	logger *zap.Logger
}

// NewJoiner creates a joiner reading dir. A nil logger is replaced by a no-op.
func NewJoiner(dir string, c *cache.Cache, ttl feed.TTLPolicy, logger *zap.Logger) *Joiner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Joiner{dir: dir, cache: c, ttl: ttl, logger: logger}
}

func (j *Joiner) cached(key, category, id string) (any, bool) {
	return j.cache.Get(key, j.ttl.Resolve(category, id))
}

func notFound(routeID, what string) error {
	return feed.InvalidIdentifier("routes", routeID, fmt.Errorf("no %s for route %s: %w", what, routeID, ErrNotFound))
}

// Stations lists stops whose location_type is 0 or empty
func (j *Joiner) Stations() ([]models.Station, error) {
	if v, ok := j.cached(categoryStations, categoryStations, categoryStations); ok {
		return v.(models.StationList), nil
	}

	stops, err := j.readTable("stops.txt")
	if err != nil {
		return nil, err
	}

	stations := make(models.StationList, 0, len(stops.rows))
	for _, row := range stops.rows {
		lt := stops.get(row, "location_type")
		if lt != "" && lt != "0" {
			continue
		}
		st, err := stops.station(row)
		if err != nil {
			return nil, err
		}
		stations = append(stations, st)
	}

	j.cache.Set(categoryStations, stations)
	j.logger.Debug("stations loaded", zap.Int("count", len(stations)))
	return stations, nil
}

// Routes lists every route
func (j *Joiner) Routes() ([]models.Route, error) {
	if v, ok := j.cached(categoryRoutes, categoryRoutes, categoryRoutes); ok {
		return v.(models.RouteList), nil
	}

	t, err := j.readTable("routes.txt")
	if err != nil {
		return nil, err
	}

	routes := make(models.RouteList, 0, len(t.rows))
	for _, row := range t.rows {
		routes = append(routes, models.Route{
			ID:        t.get(row, "route_id"),
			ShortName: t.get(row, "route_short_name"),
			LongName:  t.get(row, "route_long_name"),
			Color:     t.get(row, "route_color"),
			TextColor: t.get(row, "route_text_color"),
		})
	}

	j.cache.Set(categoryRoutes, routes)
	return routes, nil
}

// RouteShape returns every shape drawn by the route's trips, each ordered
// by shape_pt_sequence. Shapes are listed by shape id.
func (j *Joiner) RouteShape(routeID string) (*models.RouteShape, error) {
	key := categoryLines + ":shape:" + routeID
	if v, ok := j.cached(key, categoryLines, routeID); ok {
		return v.(*models.RouteShape), nil
	}

	trips, err := j.readTable("trips.txt")
	if err != nil {
		return nil, err
	}
	shapeIDs := trips.distinct("shape_id", func(row []string) bool {
		return trips.get(row, "route_id") == routeID
	})
	if len(shapeIDs) == 0 {
		return nil, notFound(routeID, "shapes")
	}
	sort.Strings(shapeIDs)

	points, err := j.shapePoints(shapeIDs)
	if err != nil {
		return nil, err
	}

	out := &models.RouteShape{RouteID: routeID, Shapes: make([]models.Shape, 0, len(shapeIDs))}
	for _, id := range shapeIDs {
		coords := points[id]
		if coords == nil {
			coords = []models.Coordinate{}
		}
		out.Shapes = append(out.Shapes, models.Shape{ShapeID: id, Coordinates: coords})
	}

	j.cache.Set(key, out)
	return out, nil
}

// Line returns one polyline for the route: the first of its shapes, or the
// stop sequence of one of its trips when no shape points exist
func (j *Joiner) Line(routeID string) ([]models.Coordinate, error) {
	key := categoryLines + ":" + routeID
	if v, ok := j.cached(key, categoryLines, routeID); ok {
		return v.(models.Line), nil
	}

	trips, err := j.readTable("trips.txt")
	if err != nil {
		return nil, err
	}
	ofRoute := func(row []string) bool { return trips.get(row, "route_id") == routeID }

	var line models.Line
	if shapeIDs := trips.distinct("shape_id", ofRoute); len(shapeIDs) > 0 {
		sort.Strings(shapeIDs)
		points, err := j.shapePoints(shapeIDs[:1])
		if err != nil {
			return nil, err
		}
		line = points[shapeIDs[0]]
	}

	if len(line) == 0 {
		if tripIDs := trips.distinct("trip_id", ofRoute); len(tripIDs) > 0 {
			j.logger.Debug("no shape points, using stop sequence",
				zap.String("route_id", routeID),
				zap.String("trip_id", tripIDs[0]))
			line, err = j.tripStops(tripIDs[0])
			if err != nil {
				return nil, err
			}
		}
	}

	if len(line) == 0 {
		return nil, notFound(routeID, "line data")
	}

	j.cache.Set(key, line)
	return line, nil
}

// RouteStops lists the distinct stops visited by any trip of the route, in
// stops.txt order
func (j *Joiner) RouteStops(routeID string) (*models.RouteStops, error) {
	key := categoryRouteStops + ":" + routeID
	if v, ok := j.cached(key, categoryRouteStops, routeID); ok {
		return v.(*models.RouteStops), nil
	}

	trips, err := j.readTable("trips.txt")
	if err != nil {
		return nil, err
	}
	tripIDs := trips.set("trip_id", func(row []string) bool {
		return trips.get(row, "route_id") == routeID
	})
	if len(tripIDs) == 0 {
		return nil, notFound(routeID, "trips")
	}

	stopTimes, err := j.readTable("stop_times.txt")
	if err != nil {
		return nil, err
	}
	stopIDs := stopTimes.set("stop_id", func(row []string) bool {
		return tripIDs[stopTimes.get(row, "trip_id")]
	})

	stops, err := j.readTable("stops.txt")
	if err != nil {
		return nil, err
	}
	out := &models.RouteStops{RouteID: routeID, Stops: make([]models.Station, 0, len(stopIDs))}
	for _, row := range stops.rows {
		if !stopIDs[stops.get(row, "stop_id")] {
			continue
		}
		st, err := stops.station(row)
		if err != nil {
			return nil, err
		}
		out.Stops = append(out.Stops, st)
	}

	j.cache.Set(key, out)
	return out, nil
}

// shapePoints reads shapes.txt once for the given ids
func (j *Joiner) shapePoints(ids []string) (map[string]models.Line, error) {
	shapes, err := j.readTable("shapes.txt")
	if err != nil {
		return nil, err
	}

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	type point struct {
		seq   int
		coord models.Coordinate
	}
	grouped := make(map[string][]point)
	for _, row := range shapes.rows {
		id := shapes.get(row, "shape_id")
		if !want[id] {
			continue
		}
		lat, lng, err := shapes.coord(row, "shape_pt_lat", "shape_pt_lon")
		if err != nil {
			return nil, err
		}
		seq, err := strconv.Atoi(shapes.get(row, "shape_pt_sequence"))
		if err != nil {
			return nil, fmt.Errorf("shapes.txt: shape %s: bad sequence: %w", id, err)
		}
		grouped[id] = append(grouped[id], point{seq: seq, coord: models.Coordinate{Lat: lat, Lng: lng}})
	}

	out := make(map[string]models.Line, len(grouped))
	for id, pts := range grouped {
		sort.SliceStable(pts, func(a, b int) bool { return pts[a].seq < pts[b].seq })
		line := make(models.Line, len(pts))
		for i, p := range pts {
			line[i] = p.coord
		}
		out[id] = line
	}
	return out, nil
}

// tripStops returns the coordinates of a trip's stops in stop_sequence order
func (j *Joiner) tripStops(tripID string) (models.Line, error) {
	stopTimes, err := j.readTable("stop_times.txt")
	if err != nil {
		return nil, err
	}

	type visit struct {
		seq  int
		stop string
	}
	var visits []visit
	for _, row := range stopTimes.rows {
		if stopTimes.get(row, "trip_id") != tripID {
			continue
		}
		seq, err := strconv.Atoi(stopTimes.get(row, "stop_sequence"))
		if err != nil {
			return nil, fmt.Errorf("stop_times.txt: trip %s: bad sequence: %w", tripID, err)
		}
		visits = append(visits, visit{seq: seq, stop: stopTimes.get(row, "stop_id")})
	}
	sort.SliceStable(visits, func(a, b int) bool { return visits[a].seq < visits[b].seq })

	stops, err := j.readTable("stops.txt")
	if err != nil {
		return nil, err
	}
	coords := make(map[string]models.Coordinate, len(stops.rows))
	for _, row := range stops.rows {
		lat, lng, err := stops.coord(row, "stop_lat", "stop_lon")
		if err != nil {
			return nil, err
		}
		coords[stops.get(row, "stop_id")] = models.Coordinate{Lat: lat, Lng: lng}
	}

	line := make(models.Line, 0, len(visits))
	for _, v := range visits {
		if c, ok := coords[v.stop]; ok {
			line = append(line, c)
		}
	}
	return line, nil
}
