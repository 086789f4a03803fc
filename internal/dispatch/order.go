package dispatch

import (
	"strings"

	"dispatchops/api/internal/geo"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPickedUp  Status = "picked up"
	StatusDelivered Status = "delivered"
)

// ParseStatus lower-cases and trims s. Unknown values are kept as-is so they
// never match a bucket.
func ParseStatus(s string) Status {
	return Status(strings.ToLower(strings.TrimSpace(s)))
}

func (s Status) Display() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusPickedUp:
		return "Picked Up"
	case StatusDelivered:
		return "Delivered"
	}
	return string(s)
}

func (s Status) Known() bool {
	return s == StatusPending || s == StatusPickedUp || s == StatusDelivered
}

// ValidTransition reports whether a batch may move an order from -> to.
func ValidTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusPickedUp
	case StatusPickedUp:
		return to == StatusDelivered
	}
	return false
}

// Order is the canonical order record every source adapter produces.
// Locations are nil when a coordinate was missing or not a finite number.
type Order struct {
	ID string `json:"id"`

	Seller           string     `json:"seller"`
	SellerCountry    string     `json:"sellerCountry"`
	SellerNumber     string     `json:"sellerNumber"`
	SellerLocation   *geo.Point `json:"sellerLocation,omitempty"`
	Customer         string     `json:"customer"`
	CustomerCountry  string     `json:"customerCountry"`
	CustomerNumber   string     `json:"customerNumber"`
	CustomerLocation *geo.Point `json:"customerLocation,omitempty"`

	Item         string          `json:"item"`
	Total        decimal.Decimal `json:"total"`
	CurrencyCode string          `json:"currencyCode"`
	Paid         bool            `json:"paid"`
	Status       Status          `json:"status"`
	CreatedAt    string          `json:"createdAt"`
}

// DisplayItem strips the literal "1x " quantity prefix.
func DisplayItem(item string) string {
	item = strings.TrimSpace(item)
	return strings.TrimPrefix(item, "1x ")
}

// ParsePaid maps "paid"/"unpaid" (any case) to a bool. ok is false for
// anything else.
func ParsePaid(s string) (paid, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paid", "true":
		return true, true
	case "unpaid", "false":
		return false, true
	}
	return false, false
}

// ParseTotal parses an amount, defaulting to zero.
func ParseTotal(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
