package models

// Station is a stop from the static GTFS stops table
type Station struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Route is a row of the static GTFS routes table
type Route struct {
	ID        string `json:"id"`
	ShortName string `json:"short_name"`
	LongName  string `json:"long_name"`
	Color     string `json:"color"`
	TextColor string `json:"text_color"`
}

// Coordinate is a single point of a line or shape
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Shape is one ordered polyline of a route
type Shape struct {
	ShapeID     string       `json:"shape_id"`
	Coordinates []Coordinate `json:"coordinates"`
}

// RouteShape groups every shape drawn by a route's trips
type RouteShape struct {
	RouteID string  `json:"route_id"`
	Shapes  []Shape `json:"shapes"`
}

// RouteStops lists the distinct stops a route serves
type RouteStops struct {
	RouteID string    `json:"route_id"`
	Stops   []Station `json:"stops"`
}

// StationAccessibility is the equipment subset for one station
type StationAccessibility struct {
	StationID      string     `json:"station_id"`
	EquipmentCount int        `json:"equipment_count"`
	Equipment      []Document `json:"equipment"`
}

// StationList is a cacheable list of stations
type StationList []Station

func (l StationList) CloneValue() any {
	return StationList(cloneSlice(l))
}

// RouteList is a cacheable list of routes
type RouteList []Route

func (l RouteList) CloneValue() any {
	return RouteList(cloneSlice(l))
}

// Line is a cacheable ordered coordinate list
type Line []Coordinate

func (l Line) CloneValue() any {
	return Line(cloneSlice(l))
}

func (s *RouteShape) CloneValue() any {
	out := &RouteShape{RouteID: s.RouteID, Shapes: make([]Shape, len(s.Shapes))}
	for i, sh := range s.Shapes {
		out.Shapes[i] = Shape{
			ShapeID:     sh.ShapeID,
			Coordinates: cloneSlice(sh.Coordinates),
		}
	}
	return out
}

func (s *RouteStops) CloneValue() any {
	return &RouteStops{RouteID: s.RouteID, Stops: cloneSlice(s.Stops)}
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
