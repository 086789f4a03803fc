package dispatch

import (
	"sort"

	"dispatchops/api/internal/geo"
)

// Route is the pickup run: stops in visiting order and the polyline the map
// draws, starting at the origin.
type Route struct {
	Origin   geo.Point      `json:"origin"`
	Stops    []*SellerGroup `json:"stops"`
	Polyline []geo.Point    `json:"polyline"`
}

// PlanPickupRoute orders pickup groups for the driver. Sellers still waiting
// for their own deliveries come first whatever the distance; each partition is
// then ordered nearest first. This is a greedy heuristic, not a shortest path.
// The input slice is left untouched; DistanceKm is set on each group.
func PlanPickupRoute(groups []*SellerGroup, origin geo.Point) Route {
	stops := make([]*SellerGroup, len(groups))
	copy(stops, groups)
	for _, g := range stops {
		g.DistanceKm = origin.DistanceKm(g.Location)
	}
	sort.SliceStable(stops, func(i, j int) bool {
		a, b := stops[i], stops[j]
		if a.HasOwnItems != b.HasOwnItems {
			return a.HasOwnItems
		}
		return a.DistanceKm < b.DistanceKm
	})

	polyline := make([]geo.Point, 0, len(stops)+1)
	polyline = append(polyline, origin)
	for _, g := range stops {
		polyline = append(polyline, g.Location)
	}
	return Route{Origin: origin, Stops: stops, Polyline: polyline}
}

// OrderDeliveryStops sorts customer groups nearest first from origin and sets
// their DistanceKm. Used by the delivery map view.
func OrderDeliveryStops(groups []*CustomerGroup, origin geo.Point) []*CustomerGroup {
	stops := make([]*CustomerGroup, len(groups))
	copy(stops, groups)
	for _, g := range stops {
		g.DistanceKm = origin.DistanceKm(g.Location)
	}
	sort.SliceStable(stops, func(i, j int) bool {
		return stops[i].DistanceKm < stops[j].DistanceKm
	})
	return stops
}
