// Package source adapts each raw order shape (API feed, static JSON, CSV/XLSX
// uploads, Postgres) to dispatch.Order.
package source

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"dispatchops/api/internal/dispatch"
	"dispatchops/api/internal/geo"

	"github.com/pkg/errors"
)

// Field is a feed value that may arrive as a string, number, bool or null.
type Field string

func (f *Field) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Field(s)
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = Field(strconv.FormatBool(v))
	case '{', '[':
		// Nested values carry nothing the dashboard uses.
		*f = ""
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*f = Field(n.String())
	}
	return nil
}

func (f Field) String() string { return strings.TrimSpace(string(f)) }

// RawOrder is one record as the feed and spreadsheets name their columns.
type RawOrder struct {
	DbID              Field `json:"DbID"`
	OrderID           Field `json:"OrderID"`
	Seller            Field `json:"Seller"`
	SellerCountry     Field `json:"SellerCountry"`
	SellerNumber      Field `json:"SellerNumber"`
	SellerLatitude    Field `json:"SellerLatitude"`
	SellerLongitude   Field `json:"SellerLongitude"`
	Customer          Field `json:"Customer"`
	CustomerCountry   Field `json:"CustomerCountry"`
	CustomerNumber    Field `json:"CustomerNumber"`
	CustomerLatitude  Field `json:"CustomerLatitude"`
	CustomerLongitude Field `json:"CustomerLongitude"`
	Item              Field `json:"Item"`
	Total             Field `json:"Total"`
	CurrencyCode      Field `json:"CurrencyCode"`
	Paid              Field `json:"Paid"`
	ShippingStatus    Field `json:"ShippingStatus"`
	CreatedAt         Field `json:"CreatedAt"`
}

// Order normalizes r. The API's DbID wins over the static files' OrderID.
func (r RawOrder) Order() dispatch.Order {
	id := r.DbID.String()
	if id == "" {
		id = r.OrderID.String()
	}
	paid, _ := dispatch.ParsePaid(r.Paid.String())
	o := dispatch.Order{
		ID:              id,
		Seller:          r.Seller.String(),
		SellerCountry:   r.SellerCountry.String(),
		SellerNumber:    r.SellerNumber.String(),
		Customer:        r.Customer.String(),
		CustomerCountry: r.CustomerCountry.String(),
		CustomerNumber:  r.CustomerNumber.String(),
		Item:            r.Item.String(),
		Total:           dispatch.ParseTotal(r.Total.String()),
		CurrencyCode:    r.CurrencyCode.String(),
		Paid:            paid,
		Status:          dispatch.ParseStatus(r.ShippingStatus.String()),
		CreatedAt:       r.CreatedAt.String(),
	}
	if p, ok := geo.ParsePoint(r.SellerLatitude.String(), r.SellerLongitude.String()); ok {
		o.SellerLocation = &p
	}
	if p, ok := geo.ParsePoint(r.CustomerLatitude.String(), r.CustomerLongitude.String()); ok {
		o.CustomerLocation = &p
	}
	return o
}

func Normalize(raw []RawOrder) []dispatch.Order {
	out := make([]dispatch.Order, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.Order())
	}
	return out
}

// DecodeOrders reads a JSON array of raw records. Anything that is not an
// array is rejected.
func DecodeOrders(r io.Reader) ([]dispatch.Order, error) {
	var raw []RawOrder
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode orders")
	}
	return Normalize(raw), nil
}

// columnSetters maps spreadsheet header names to RawOrder fields.
var columnSetters = map[string]func(*RawOrder, string){
	"dbid":              func(r *RawOrder, v string) { r.DbID = Field(v) },
	"orderid":           func(r *RawOrder, v string) { r.OrderID = Field(v) },
	"seller":            func(r *RawOrder, v string) { r.Seller = Field(v) },
	"sellercountry":     func(r *RawOrder, v string) { r.SellerCountry = Field(v) },
	"sellernumber":      func(r *RawOrder, v string) { r.SellerNumber = Field(v) },
	"sellerlatitude":    func(r *RawOrder, v string) { r.SellerLatitude = Field(v) },
	"sellerlongitude":   func(r *RawOrder, v string) { r.SellerLongitude = Field(v) },
	"customer":          func(r *RawOrder, v string) { r.Customer = Field(v) },
	"customercountry":   func(r *RawOrder, v string) { r.CustomerCountry = Field(v) },
	"customernumber":    func(r *RawOrder, v string) { r.CustomerNumber = Field(v) },
	"customerlatitude":  func(r *RawOrder, v string) { r.CustomerLatitude = Field(v) },
	"customerlongitude": func(r *RawOrder, v string) { r.CustomerLongitude = Field(v) },
	"item":              func(r *RawOrder, v string) { r.Item = Field(v) },
	"total":             func(r *RawOrder, v string) { r.Total = Field(v) },
	"currencycode":      func(r *RawOrder, v string) { r.CurrencyCode = Field(v) },
	"paid":              func(r *RawOrder, v string) { r.Paid = Field(v) },
	"shippingstatus":    func(r *RawOrder, v string) { r.ShippingStatus = Field(v) },
	"createdat":         func(r *RawOrder, v string) { r.CreatedAt = Field(v) },
}

func headerKey(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.NewReplacer(" ", "", "_", "").Replace(h)
}

// fromRows turns a header row plus data rows into raw records. Unknown
// columns are ignored; short rows leave the missing fields empty.
func fromRows(rows [][]string) ([]RawOrder, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	setters := make([]func(*RawOrder, string), len(rows[0]))
	known := 0
	for i, h := range rows[0] {
		if fn, ok := columnSetters[headerKey(h)]; ok {
			setters[i] = fn
			known++
		}
	}
	if known == 0 {
		return nil, ErrNoKnownColumns
	}
	out := make([]RawOrder, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var r RawOrder
		empty := true
		for i, v := range row {
			if i >= len(setters) || setters[i] == nil {
				continue
			}
			if strings.TrimSpace(v) != "" {
				empty = false
			}
			setters[i](&r, v)
		}
		if !empty {
			out = append(out, r)
		}
	}
	return out, nil
}
