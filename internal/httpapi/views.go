package httpapi

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"dispatchops/api/internal/dispatch"
	"dispatchops/api/internal/geo"
)

// WhatsAppURL links to a chat with number. Everything but digits is dropped;
// an empty result yields "".
func WhatsAppURL(number string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, number)
	if digits == "" {
		return ""
	}
	return "https://wa.me/" + digits
}

func MapsURL(p geo.Point) string {
	return fmt.Sprintf("https://www.google.com/maps/search/?api=1&query=%s,%s", fmtFloat(p.Lat), fmtFloat(p.Lng))
}

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

type contactLinks struct {
	WhatsAppURL string `json:"whatsappUrl"`
	MapsURL     string `json:"mapsUrl"`
}

func linksFor(number string, p geo.Point) contactLinks {
	return contactLinks{WhatsAppURL: WhatsAppURL(number), MapsURL: MapsURL(p)}
}

type sellerCard struct {
	*dispatch.SellerGroup
	contactLinks
	Stop int `json:"stop"`
}

type customerCard struct {
	*dispatch.CustomerGroup
	contactLinks
	Flag string `json:"flag"`
}

type boardView struct {
	Locality        string                `json:"locality"`
	Origin          geo.Point             `json:"origin"`
	DateLabel       string                `json:"dateLabel"`
	OrderTotal      int                   `json:"orderTotal"`
	StatusCounts    dispatch.StatusCounts `json:"statusCounts"`
	Sellers         []sellerCard          `json:"sellers"`
	LocalCustomers  []customerCard        `json:"localCustomers"`
	RemoteCustomers []customerCard        `json:"remoteCustomers"`
	GeneratedAt     time.Time             `json:"generatedAt"`
}

// newBoardView lists sellers in pickup order so the cards match the map.
func newBoardView(b dispatch.Board) boardView {
	v := boardView{
		Locality:        b.Locality,
		Origin:          b.Origin,
		DateLabel:       b.DateLabel,
		OrderTotal:      b.OrderTotal,
		StatusCounts:    b.StatusCounts,
		Sellers:         make([]sellerCard, 0, len(b.Pickup.Stops)),
		LocalCustomers:  customerCards(b.LocalCustomers),
		RemoteCustomers: customerCards(b.RemoteCustomers),
		GeneratedAt:     b.GeneratedAt,
	}
	for i, g := range b.Pickup.Stops {
		v.Sellers = append(v.Sellers, sellerCard{
			SellerGroup:  g,
			contactLinks: linksFor(g.Number, g.Location),
			Stop:         i + 1,
		})
	}
	return v
}

func customerCards(groups []*dispatch.CustomerGroup) []customerCard {
	out := make([]customerCard, 0, len(groups))
	for _, g := range groups {
		out = append(out, customerCard{
			CustomerGroup: g,
			contactLinks:  linksFor(g.Number, g.Location),
			Flag:          geo.FlagFor(g.Country),
		})
	}
	return out
}

type mapStop struct {
	Seq         int       `json:"seq"`
	Name        string    `json:"name"`
	Flag        string    `json:"flag,omitempty"`
	Location    geo.Point `json:"location"`
	DistanceKm  float64   `json:"distanceKm"`
	OrderCount  int       `json:"orderCount"`
	HasOwnItems bool      `json:"hasOwnItems,omitempty"`
	Remote      bool      `json:"remote,omitempty"`
	MapsURL     string    `json:"mapsUrl"`
}

type mapView struct {
	Origin   geo.Point   `json:"origin"`
	Stops    []mapStop   `json:"stops"`
	Polyline []geo.Point `json:"polyline"`
}

func newPickupMap(b dispatch.Board) mapView {
	v := mapView{Origin: b.Origin, Stops: make([]mapStop, 0, len(b.Pickup.Stops)), Polyline: b.Pickup.Polyline}
	for i, g := range b.Pickup.Stops {
		v.Stops = append(v.Stops, mapStop{
			Seq:         i + 1,
			Name:        g.Name,
			Location:    g.Location,
			DistanceKm:  g.DistanceKm,
			OrderCount:  g.OrderCount,
			HasOwnItems: g.HasOwnItems,
			MapsURL:     MapsURL(g.Location),
		})
	}
	return v
}

// newDeliveryMap numbers every awaiting-delivery customer nearest first.
// Remote customers are marked; their parcels go to the hub.
func newDeliveryMap(b dispatch.Board) mapView {
	v := mapView{Origin: b.Origin, Stops: make([]mapStop, 0, len(b.DeliveryStops))}
	v.Polyline = append(v.Polyline, b.Origin)
	for i, g := range b.DeliveryStops {
		v.Stops = append(v.Stops, mapStop{
			Seq:        i + 1,
			Name:       g.Name,
			Flag:       geo.FlagFor(g.Country),
			Location:   g.Location,
			DistanceKm: g.DistanceKm,
			OrderCount: g.OrderCount,
			Remote:     g.Country != b.Locality,
			MapsURL:    MapsURL(g.Location),
		})
		v.Polyline = append(v.Polyline, g.Location)
	}
	return v
}
