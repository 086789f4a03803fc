package db

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type seedParty struct {
	name    string
	country string
	number  string
	lat     float64
	lng     float64
}

// Seed loads a demo day of Bahrain marketplace orders. It is idempotent:
// fixed ids + ON CONFLICT DO NOTHING.
func Seed(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sellers := []seedParty{
		{"Pearl Bakes", "BH", "97333001122", 26.2285, 50.5860},
		{"Muharraq Spices", "BH", "97333004455", 26.2572, 50.6119},
		{"Riffa Candles", "BH", "97333007788", 26.1300, 50.5550},
		{"Seef Florals", "BH", "97333009900", 26.2361, 50.5330},
		{"Dammam Dates", "SA", "966550001111", 26.4207, 50.0888},
	}
	customers := []seedParty{
		{"Noor", "BH", "97336110022", 26.2154, 50.5832},
		{"Fatima", "BH", "97336220033", 26.1736, 50.5480},
		{"Yusuf", "BH", "97336330044", 26.2720, 50.6250},
		{"Riffa Candles", "BH", "97333007788", 26.1300, 50.5550},
		{"Aisha", "SA", "966551234567", 24.7136, 46.6753},
		{"Omar", "KW", "96550001122", 29.3759, 47.9774},
	}
	items := []string{"1x Date cake", "2x Oud candle", "1x Saffron box", "1x Rose bouquet", "3x Karak mix"}
	statuses := []string{"pending", "pending", "pending", "picked up", "delivered"}

	rng := rand.New(rand.NewSource(42))
	now := time.Now().UTC()
	n := 0
	for i := 1; i <= 24; i++ {
		s := sellers[rng.Intn(len(sellers))]
		c := customers[rng.Intn(len(customers))]
		if c.name == s.name {
			c = customers[0]
		}
		total := float64(1+rng.Intn(40)) + float64(rng.Intn(4))*0.25
		created := now.Add(-time.Duration(30+rng.Intn(20*60)) * time.Minute)

		tag, err := tx.Exec(ctx, `
      INSERT INTO orders (id, seller, seller_country, seller_number, seller_lat, seller_lng,
                          customer, customer_country, customer_number, customer_lat, customer_lng,
                          item, total, currency_code, paid, shipping_status, created_at)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,'BHD',$14,$15,$16)
      ON CONFLICT (id) DO NOTHING
    `,
			fmt.Sprintf("demo-%03d", i),
			s.name, s.country, s.number, s.lat, s.lng,
			c.name, c.country, c.number, c.lat, c.lng,
			items[rng.Intn(len(items))],
			total,
			rng.Intn(3) > 0,
			statuses[rng.Intn(len(statuses))],
			created,
		)
		if err != nil {
			return 0, fmt.Errorf("seed orders: %w", err)
		}
		n += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return n, nil
}
