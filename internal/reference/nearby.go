package reference

import (
	"math"
	"sort"

	"github.com/jusunglee/mta-realtime/internal/models"
)

// DefaultNearbyLimit is used when limit is not positive
const DefaultNearbyLimit = 5

// NearbyStation is a station with its distance from the query point
type NearbyStation struct {
	models.Station
	DistanceKM float64 `json:"distance_km"`
}

// NearbyStations returns up to limit stations closest to the point, nearest first
func (j *Joiner) NearbyStations(lat, lon float64, limit int) ([]NearbyStation, error) {
	if limit <= 0 {
		limit = DefaultNearbyLimit
	}

	stations, err := j.Stations()
	if err != nil {
		return nil, err
	}

	ranked := make([]NearbyStation, 0, len(stations))
	for _, st := range stations {
		ranked = append(ranked, NearbyStation{
			Station:    st,
			DistanceKM: distance(lat, lon, st.Lat, st.Lng),
		})
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].DistanceKM < ranked[b].DistanceKM
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// distance calculates the distance between two points using the Haversine formula
func distance(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371 // Earth's radius in kilometers

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return R * c
}
