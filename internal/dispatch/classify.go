package dispatch

import (
	"sort"
	"strings"

	"dispatchops/api/internal/geo"

	"github.com/shopspring/decimal"
)

const DefaultLocality = "BH"

// Line is one order inside a group, annotated with the party on the other
// side of the trade.
type Line struct {
	OrderID         string          `json:"orderId"`
	Counterpart     string          `json:"counterpart"`
	CounterpartFlag string          `json:"counterpartFlag"`
	Item            string          `json:"item"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
	Paid            bool            `json:"paid"`
}

type CounterpartLines struct {
	Name  string `json:"name"`
	Flag  string `json:"flag"`
	Lines []Line `json:"lines"`
}

type SellerGroup struct {
	Name           string             `json:"name"`
	Number         string             `json:"number"`
	Location       geo.Point          `json:"location"`
	OrderCount     int                `json:"orderCount"`
	IsAlsoCustomer bool               `json:"isAlsoCustomer"`
	HasOwnItems    bool               `json:"hasOwnItems"`
	DistanceKm     float64            `json:"distanceKm"`
	Lines          []Line             `json:"-"`
	ByCustomer     []CounterpartLines `json:"byCustomer"`
	OrderIDs       []string           `json:"orderIds"`

	seen map[string]struct{}
}

type CustomerGroup struct {
	Name        string             `json:"name"`
	Number      string             `json:"number"`
	Location    geo.Point          `json:"location"`
	Country     string             `json:"country"`
	OrderCount  int                `json:"orderCount"`
	UnpaidTotal decimal.Decimal    `json:"unpaidTotal"`
	DistanceKm  float64            `json:"distanceKm"`
	Lines       []Line             `json:"-"`
	BySeller    []CounterpartLines `json:"bySeller"`
	OrderIDs    []string           `json:"orderIds"`

	seen map[string]struct{}
}

// StatusCounts holds the number of distinct local sellers per status.
type StatusCounts struct {
	Pending   int `json:"pending"`
	PickedUp  int `json:"pickedUp"`
	Delivered int `json:"delivered"`
}

type Result struct {
	Sellers         []*SellerGroup   `json:"sellers"`
	LocalCustomers  []*CustomerGroup `json:"localCustomers"`
	RemoteCustomers []*CustomerGroup `json:"remoteCustomers"`
	StatusCounts    StatusCounts     `json:"statusCounts"`
}

func (r Result) Seller(name string) (*SellerGroup, bool) {
	for _, s := range r.Sellers {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Customer looks name up in the remote grouping when remote is set, else in
// the local one. A name may have a card in both.
func (r Result) Customer(name string, remote bool) (*CustomerGroup, bool) {
	groups := r.LocalCustomers
	if remote {
		groups = r.RemoteCustomers
	}
	for _, c := range groups {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

type Classifier struct {
	locality string
}

// NewClassifier returns a classifier that treats orders from locality as
// local. An empty locality falls back to DefaultLocality.
func NewClassifier(locality string) *Classifier {
	locality = strings.TrimSpace(locality)
	if locality == "" {
		locality = DefaultLocality
	}
	return &Classifier{locality: locality}
}

func (c *Classifier) Locality() string { return c.locality }

// Classify partitions orders into pickup, local delivery and remote delivery
// groups. Records missing what a grouping needs are left out of that grouping.
func (c *Classifier) Classify(orders []Order) Result {
	customers := map[string]struct{}{}
	awaitingDelivery := map[string]struct{}{}
	for _, o := range orders {
		name := strings.TrimSpace(o.Customer)
		if name == "" {
			continue
		}
		customers[name] = struct{}{}
		if o.Status == StatusPickedUp {
			awaitingDelivery[name] = struct{}{}
		}
	}

	buckets := map[Status]map[string]struct{}{
		StatusPending:   {},
		StatusPickedUp:  {},
		StatusDelivered: {},
	}
	sellers := map[string]*SellerGroup{}
	local := map[string]*CustomerGroup{}
	remote := map[string]*CustomerGroup{}

	for _, o := range orders {
		id := strings.TrimSpace(o.ID)
		seller := strings.TrimSpace(o.Seller)
		customer := strings.TrimSpace(o.Customer)
		sellerCountry := strings.TrimSpace(o.SellerCountry)
		customerCountry := strings.TrimSpace(o.CustomerCountry)
		isLocalSeller := sellerCountry == c.locality

		if isLocalSeller && seller != "" {
			if set, ok := buckets[o.Status]; ok {
				set[seller] = struct{}{}
			}
		}

		if isLocalSeller && o.Status == StatusPending {
			number := strings.TrimSpace(o.SellerNumber)
			if seller == "" || number == "" || o.SellerLocation == nil || id == "" {
				continue
			}
			g, ok := sellers[seller]
			if !ok {
				// Number and location come from the first record seen.
				g = &SellerGroup{
					Name:     seller,
					Number:   number,
					Location: *o.SellerLocation,
					seen:     map[string]struct{}{},
				}
				sellers[seller] = g
			}
			g.Lines = append(g.Lines, Line{
				OrderID:         id,
				Counterpart:     customer,
				CounterpartFlag: geo.FlagFor(customerCountry),
				Item:            DisplayItem(o.Item),
				Total:           o.Total,
				Currency:        strings.TrimSpace(o.CurrencyCode),
				Paid:            o.Paid,
			})
			if _, dup := g.seen[id]; !dup {
				g.seen[id] = struct{}{}
				g.OrderIDs = append(g.OrderIDs, id)
			}
		}

		if o.Status == StatusPickedUp {
			number := strings.TrimSpace(o.CustomerNumber)
			if customer == "" || number == "" || o.CustomerLocation == nil || id == "" {
				continue
			}
			target := remote
			if customerCountry == c.locality {
				target = local
			}
			g, ok := target[customer]
			if !ok {
				// Number, location and country come from the first record seen.
				g = &CustomerGroup{
					Name:     customer,
					Number:   number,
					Location: *o.CustomerLocation,
					Country:  customerCountry,
					seen:     map[string]struct{}{},
				}
				target[customer] = g
			}
			g.Lines = append(g.Lines, Line{
				OrderID:         id,
				Counterpart:     seller,
				CounterpartFlag: geo.FlagFor(sellerCountry),
				Item:            DisplayItem(o.Item),
				Total:           o.Total,
				Currency:        strings.TrimSpace(o.CurrencyCode),
				Paid:            o.Paid,
			})
			if !o.Paid {
				g.UnpaidTotal = g.UnpaidTotal.Add(o.Total)
			}
			if _, dup := g.seen[id]; !dup {
				g.seen[id] = struct{}{}
				g.OrderIDs = append(g.OrderIDs, id)
			}
		}
	}

	res := Result{
		Sellers:         make([]*SellerGroup, 0, len(sellers)),
		LocalCustomers:  finishCustomers(local),
		RemoteCustomers: finishCustomers(remote),
		StatusCounts: StatusCounts{
			Pending:   len(buckets[StatusPending]),
			PickedUp:  len(buckets[StatusPickedUp]),
			Delivered: len(buckets[StatusDelivered]),
		},
	}
	for name, g := range sellers {
		g.OrderCount = len(g.seen)
		_, g.IsAlsoCustomer = customers[name]
		if g.IsAlsoCustomer {
			_, g.HasOwnItems = awaitingDelivery[name]
		}
		g.ByCustomer = groupLines(g.Lines)
		res.Sellers = append(res.Sellers, g)
	}
	sort.Slice(res.Sellers, func(i, j int) bool {
		return res.Sellers[i].Name < res.Sellers[j].Name
	})
	return res
}

func finishCustomers(m map[string]*CustomerGroup) []*CustomerGroup {
	out := make([]*CustomerGroup, 0, len(m))
	for _, g := range m {
		g.OrderCount = len(g.seen)
		g.BySeller = groupLines(g.Lines)
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderCount != out[j].OrderCount {
			return out[i].OrderCount > out[j].OrderCount
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// groupLines buckets lines by counterpart, keeping first-seen order.
func groupLines(lines []Line) []CounterpartLines {
	idx := map[string]int{}
	var out []CounterpartLines
	for _, l := range lines {
		i, ok := idx[l.Counterpart]
		if !ok {
			i = len(out)
			idx[l.Counterpart] = i
			out = append(out, CounterpartLines{Name: l.Counterpart, Flag: l.CounterpartFlag})
		}
		out[i].Lines = append(out[i].Lines, l)
	}
	return out
}
