package geo

import (
	"math"
	"strconv"
	"strings"
)

const EarthRadiusKm = 6371.0

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceKm returns the Haversine great-circle distance between two
// coordinates. NaN input propagates; callers validate first.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := ToRadians(lat2 - lat1)
	dLng := ToRadians(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(ToRadians(lat1))*math.Cos(ToRadians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

func ToRadians(deg float64) float64 { return deg * (math.Pi / 180) }

func (p Point) DistanceKm(to Point) float64 {
	return DistanceKm(p.Lat, p.Lng, to.Lat, to.Lng)
}

// ParsePoint parses a coordinate pair. Empty or non-finite values are rejected.
func ParsePoint(lat, lng string) (Point, bool) {
	la, ok := parseCoord(lat)
	if !ok {
		return Point{}, false
	}
	lg, ok := parseCoord(lng)
	if !ok {
		return Point{}, false
	}
	return Point{Lat: la, Lng: lg}, true
}

func parseCoord(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
