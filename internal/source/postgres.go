package source

import (
	"context"
	"strconv"

	"dispatchops/api/internal/dispatch"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Postgres serves orders from the orders table and writes status changes
// back to it.
type Postgres struct {
	Pool *pgxpool.Pool
}

const selectOrders = `
  SELECT id, seller, seller_country, seller_number, seller_lat::text, seller_lng::text,
         customer, customer_country, customer_number, customer_lat::text, customer_lng::text,
         item, total::text, currency_code, paid, shipping_status,
         to_char(created_at, 'DD/MM/YYYY, HH24:MI')
  FROM orders
  WHERE created_at >= now() - INTERVAL '24 hours'
  ORDER BY created_at, id
`

func (p Postgres) Fetch(ctx context.Context) ([]dispatch.Order, error) {
	rows, err := p.Pool.Query(ctx, selectOrders)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	defer rows.Close()

	var raw []RawOrder
	for rows.Next() {
		var (
			id                                     string
			seller, sellerCountry, sellerNumber    string
			customer, customerCountry, custNumber  string
			sellerLat, sellerLng, custLat, custLng *string
			item, total, currency, status, created string
			paid                                   bool
		)
		if err := rows.Scan(&id, &seller, &sellerCountry, &sellerNumber, &sellerLat, &sellerLng,
			&customer, &customerCountry, &custNumber, &custLat, &custLng,
			&item, &total, &currency, &paid, &status, &created); err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		raw = append(raw, RawOrder{
			DbID:              Field(id),
			Seller:            Field(seller),
			SellerCountry:     Field(sellerCountry),
			SellerNumber:      Field(sellerNumber),
			SellerLatitude:    Field(deref(sellerLat)),
			SellerLongitude:   Field(deref(sellerLng)),
			Customer:          Field(customer),
			CustomerCountry:   Field(customerCountry),
			CustomerNumber:    Field(custNumber),
			CustomerLatitude:  Field(deref(custLat)),
			CustomerLongitude: Field(deref(custLng)),
			Item:              Field(item),
			Total:             Field(total),
			CurrencyCode:      Field(currency),
			Paid:              Field(strconv.FormatBool(paid)),
			ShippingStatus:    Field(status),
			CreatedAt:         Field(created),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "read orders")
	}
	return Normalize(raw), nil
}

func (p Postgres) UpdateStatus(ctx context.Context, ids []string, to dispatch.Status) error {
	tag, err := p.Pool.Exec(ctx,
		`UPDATE orders SET shipping_status = $1, updated_at = now() WHERE id = ANY($2)`,
		string(to), ids)
	if err != nil {
		return errors.Wrap(err, "update order status")
	}
	if tag.RowsAffected() == 0 {
		return dispatch.ErrNothingToUpdate
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
