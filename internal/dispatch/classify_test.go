package dispatch

import (
	"math/rand"
	"testing"

	"dispatchops/api/internal/geo"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pt(lat, lng float64) *geo.Point { return &geo.Point{Lat: lat, Lng: lng} }

func pending(id, seller, customer string) Order {
	return Order{
		ID:               id,
		Seller:           seller,
		SellerCountry:    "BH",
		SellerNumber:     "+973 3300 0000",
		SellerLocation:   pt(26.10, 50.50),
		Customer:         customer,
		CustomerCountry:  "BH",
		CustomerNumber:   "+973 3400 0000",
		CustomerLocation: pt(26.20, 50.55),
		Item:             "1x Candle",
		Total:            decimal.RequireFromString("4.500"),
		CurrencyCode:     "BHD",
		Status:           StatusPending,
		CreatedAt:        "04/05/2025, 10:00",
	}
}

func pickedUp(id, seller, customer, customerCountry string, total string, paid bool) Order {
	o := pending(id, seller, customer)
	o.Status = StatusPickedUp
	o.CustomerCountry = customerCountry
	o.Total = decimal.RequireFromString(total)
	o.Paid = paid
	return o
}

func TestClassifyScenario(t *testing.T) {
	a1 := pending("1", "A", "Z")
	a1.SellerLocation = pt(26.1, 50.5)
	orders := []Order{
		a1,
		a1,
		pickedUp("2", "B", "A", "BH", "3", false),
	}

	res := NewClassifier("BH").Classify(orders)

	a, ok := res.Seller("A")
	require.True(t, ok)
	assert.Equal(t, 1, a.OrderCount)
	assert.Len(t, a.Lines, 2)
	assert.Equal(t, []string{"1"}, a.OrderIDs)
	assert.True(t, a.IsAlsoCustomer)
	assert.True(t, a.HasOwnItems)

	require.Len(t, res.LocalCustomers, 1)
	assert.Equal(t, "A", res.LocalCustomers[0].Name)
	assert.Empty(t, res.RemoteCustomers)
	assert.Equal(t, StatusCounts{Pending: 1, PickedUp: 1}, res.StatusCounts)
}

func TestClassifyDedup(t *testing.T) {
	orders := []Order{
		pickedUp("7", "S1", "C", "BH", "2", false),
		pickedUp("7", "S2", "C", "BH", "2", false),
		pickedUp("8", "S1", "C", "BH", "1", true),
	}
	res := NewClassifier("BH").Classify(orders)
	c, ok := res.Customer("C", false)
	require.True(t, ok)
	assert.Equal(t, 2, c.OrderCount)
	assert.Equal(t, []string{"7", "8"}, c.OrderIDs)
	assert.Len(t, c.Lines, 3)
}

func TestClassifyPartition(t *testing.T) {
	orders := []Order{
		pickedUp("1", "S", "Local", "BH", "1", true),
		pickedUp("2", "S", "Saudi", "SA", "1", true),
		pickedUp("3", "S", "Blank", "", "1", true),
		pickedUp("4", "S", "Lower", "bh", "1", true),
	}
	res := NewClassifier("BH").Classify(orders)

	names := func(gs []*CustomerGroup) []string {
		var out []string
		for _, g := range gs {
			out = append(out, g.Name)
		}
		return out
	}
	assert.ElementsMatch(t, []string{"Local"}, names(res.LocalCustomers))
	assert.ElementsMatch(t, []string{"Saudi", "Blank", "Lower"}, names(res.RemoteCustomers))
}

func TestClassifyInjectableLocality(t *testing.T) {
	o := pending("1", "Riyadh Shop", "X")
	o.SellerCountry = "SA"
	res := NewClassifier("SA").Classify([]Order{o})
	require.Len(t, res.Sellers, 1)
	assert.Equal(t, "SA", NewClassifier("SA").Locality())

	res = NewClassifier("").Classify([]Order{o})
	assert.Empty(t, res.Sellers)
}

func TestClassifyDualRole(t *testing.T) {
	t.Run("customer with delivered orders only", func(t *testing.T) {
		delivered := pending("2", "B", "A")
		delivered.Status = StatusDelivered
		res := NewClassifier("BH").Classify([]Order{pending("1", "A", "Z"), delivered})
		a, ok := res.Seller("A")
		require.True(t, ok)
		assert.True(t, a.IsAlsoCustomer)
		assert.False(t, a.HasOwnItems)
	})

	t.Run("picked up order counts even when excluded from delivery groups", func(t *testing.T) {
		incomplete := pickedUp("2", "B", "A", "BH", "1", true)
		incomplete.CustomerNumber = ""
		res := NewClassifier("BH").Classify([]Order{pending("1", "A", "Z"), incomplete})
		a, ok := res.Seller("A")
		require.True(t, ok)
		assert.True(t, a.HasOwnItems)
		assert.Empty(t, res.LocalCustomers)
	})

	t.Run("not a customer", func(t *testing.T) {
		res := NewClassifier("BH").Classify([]Order{pending("1", "A", "Z")})
		a, ok := res.Seller("A")
		require.True(t, ok)
		assert.False(t, a.IsAlsoCustomer)
		assert.False(t, a.HasOwnItems)
	})
}

func TestClassifyUnpaidTotal(t *testing.T) {
	orders := []Order{
		pickedUp("1", "S", "C", "BH", "2.250", false),
		pickedUp("2", "S", "C", "BH", "10", true),
		pickedUp("3", "T", "C", "BH", "1.5", false),
	}
	res := NewClassifier("BH").Classify(orders)
	c, ok := res.Customer("C", false)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("3.75").Equal(c.UnpaidTotal), c.UnpaidTotal.String())
	require.Len(t, c.BySeller, 2)
	assert.Equal(t, "S", c.BySeller[0].Name)
	assert.Len(t, c.BySeller[0].Lines, 2)
	assert.Equal(t, "🇧🇭", c.BySeller[0].Flag)
}

func TestClassifyMalformed(t *testing.T) {
	noNumber := pending("1", "A", "Z")
	noNumber.SellerNumber = "  "
	noLocation := pending("2", "B", "Z")
	noLocation.SellerLocation = nil
	noID := pending("", "C", "Z")
	noCustomerLoc := pickedUp("3", "D", "Y", "BH", "1", true)
	noCustomerLoc.CustomerLocation = nil

	res := NewClassifier("BH").Classify([]Order{noNumber, noLocation, noID, noCustomerLoc, pending("4", "E", "Z")})
	require.Len(t, res.Sellers, 1)
	assert.Equal(t, "E", res.Sellers[0].Name)
	assert.Empty(t, res.LocalCustomers)
	// Status counts do not need a complete record.
	assert.Equal(t, 4, res.StatusCounts.Pending)
	assert.Equal(t, 1, res.StatusCounts.PickedUp)
}

func TestClassifyStatusCountsAreUniqueSellers(t *testing.T) {
	delivered := pending("3", "A", "Z")
	delivered.Status = StatusDelivered
	foreign := pending("4", "F", "Z")
	foreign.SellerCountry = "AE"
	orders := []Order{pending("1", "A", "Z"), pending("2", "A", "Y"), delivered, foreign}

	res := NewClassifier("BH").Classify(orders)
	assert.Equal(t, StatusCounts{Pending: 1, Delivered: 1}, res.StatusCounts)
}

func TestClassifyEmpty(t *testing.T) {
	res := NewClassifier("BH").Classify(nil)
	assert.Empty(t, res.Sellers)
	assert.Empty(t, res.LocalCustomers)
	assert.Empty(t, res.RemoteCustomers)
	assert.Equal(t, StatusCounts{}, res.StatusCounts)
}

func TestClassifyLinesGroupedByCustomer(t *testing.T) {
	o1 := pending("1", "A", "Z")
	o2 := pending("2", "A", "Y")
	o2.CustomerCountry = "sa"
	o3 := pending("3", "A", "Z")
	o3.Item = "2x Soap"

	res := NewClassifier("BH").Classify([]Order{o1, o2, o3})
	a, ok := res.Seller("A")
	require.True(t, ok)
	require.Len(t, a.ByCustomer, 2)
	assert.Equal(t, "Z", a.ByCustomer[0].Name)
	assert.Equal(t, "Y", a.ByCustomer[1].Name)
	assert.Equal(t, "🇸🇦", a.ByCustomer[1].Flag)
	assert.Equal(t, "Candle", a.ByCustomer[0].Lines[0].Item)
	assert.Equal(t, "2x Soap", a.ByCustomer[0].Lines[1].Item)
	assert.Equal(t, 3, a.OrderCount)
}

func TestClassifyDeterministic(t *testing.T) {
	var orders []Order
	for i, s := range []string{"A", "B", "C", "D"} {
		orders = append(orders, pending(string(rune('1'+i)), s, "X"))
		orders = append(orders, pickedUp(string(rune('a'+i)), s, s, "BH", "1", i%2 == 0))
		orders = append(orders, pickedUp(string(rune('k'+i)), s, "Far "+s, "QA", "2", false))
	}

	summary := func(r Result) map[string]any {
		out := map[string]any{"counts": r.StatusCounts}
		for i, s := range r.Sellers {
			out["s"+string(rune('0'+i))] = []any{s.Name, s.OrderCount, s.IsAlsoCustomer, s.HasOwnItems}
		}
		for i, c := range append(r.LocalCustomers, r.RemoteCustomers...) {
			out["c"+string(rune('0'+i))] = []any{c.Name, c.OrderCount, c.UnpaidTotal.String()}
		}
		return out
	}

	want := summary(NewClassifier("BH").Classify(orders))
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 5; i++ {
		shuffled := append([]Order(nil), orders...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, summary(NewClassifier("BH").Classify(shuffled)))
	}
}

func TestStatusHelpers(t *testing.T) {
	assert.Equal(t, StatusPickedUp, ParseStatus("  Picked Up "))
	assert.Equal(t, "Picked Up", StatusPickedUp.Display())
	assert.False(t, ParseStatus("INPROGRESS").Known())

	assert.True(t, ValidTransition(StatusPending, StatusPickedUp))
	assert.True(t, ValidTransition(StatusPickedUp, StatusDelivered))
	assert.False(t, ValidTransition(StatusPending, StatusDelivered))
	assert.False(t, ValidTransition(StatusDelivered, StatusPending))

	paid, ok := ParsePaid("Paid")
	assert.True(t, paid && ok)
	paid, ok = ParsePaid("unpaid")
	assert.True(t, !paid && ok)
	_, ok = ParsePaid("maybe")
	assert.False(t, ok)

	assert.True(t, ParseTotal("").IsZero())
	assert.True(t, ParseTotal("abc").IsZero())
	assert.Equal(t, "12.5", ParseTotal(" 12.50 ").String())
	assert.Equal(t, "1x", DisplayItem("1x"))
	assert.Equal(t, "Tea", DisplayItem("1x Tea"))
}

func TestClassifyContactFromFirstRecord(t *testing.T) {
	first := pending("1", "A", "Z")
	first.SellerNumber = "111"
	second := pending("2", "A", "Z")
	second.SellerNumber = "222"
	second.SellerLocation = pt(26.30, 50.60)

	res := NewClassifier("BH").Classify([]Order{first, second})
	a, ok := res.Seller("A")
	require.True(t, ok)
	assert.Equal(t, "111", a.Number)
	assert.Equal(t, *first.SellerLocation, a.Location)
	assert.Equal(t, 2, a.OrderCount)
}
