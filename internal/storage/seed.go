package storage

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"sentiment-sales-risk/internal/logger"
	"sentiment-sales-risk/internal/store"
	"sentiment-sales-risk/internal/types"
)

var demoComments = []string{
	"Love the new design, battery life is great",
	"Setup was slow and the app has a bug",
	"Does what it says",
	"Amazing camera for the price",
	"Terrible customer support experience",
	"Arrived on time, packaging was fine",
	"Good value overall",
	"Constant connection issue since the update",
}

// seedNamespace keeps demo post ids stable across restarts.
var seedNamespace = uuid.MustParse("5b7e2c1a-4d0f-4c55-9a53-0c2f9f3b6a10")

// SeedDemo fills the trailing window ending at today with deterministic
// posts and sales for every product whose window holds no posts yet.
func (s *Store) SeedDemo(ctx context.Context, products []store.WatchItem, days int, today types.Date) error {
	from := today.AddDays(-days)
	for _, item := range products {
		q := types.PostQuery{
			ProductName: item.Product,
			BrandName:   item.Brand,
			Platform:    item.Platform,
			From:        from,
			To:          today,
		}
		existing, err := s.findPosts(ctx, q)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			continue
		}

		posts, sales := demoData(item, from, days)
		if err := s.InsertPosts(ctx, posts); err != nil {
			return fmt.Errorf("seed posts for %s: %w", item.Product, err)
		}
		if err := s.SaveSales(ctx, sales); err != nil {
			return fmt.Errorf("seed sales for %s: %w", item.Product, err)
		}
		logger.Info(ctx, "Seeded demo data",
			"product", item.Product,
			"brand", item.Brand,
			"platform", item.Platform,
			"posts", len(posts),
			"sales_days", len(sales),
		)
	}
	return nil
}

// demoData produces two posts per day and a gently oscillating revenue
// curve over days+1 calendar days starting at from.
func demoData(item store.WatchItem, from types.Date, days int) ([]types.SocialPost, []types.SalesData) {
	var posts []types.SocialPost
	var sales []types.SalesData
	for k := 0; k <= days; k++ {
		day := from.AddDays(k)
		for j := 0; j < 2; j++ {
			text := demoComments[(k*2+j)%len(demoComments)]
			key := fmt.Sprintf("%s|%s|%s|%s|%d", item.Product, item.Brand, item.Platform, day, j)
			posts = append(posts, types.SocialPost{
				ID:          uuid.NewSHA1(seedNamespace, []byte(key)).String(),
				Content:     text,
				Platform:    item.Platform,
				ProductName: item.Product,
				BrandName:   item.Brand,
				PostedOn:    day,
			})
		}
		revenue := math.Round(12000 + 1500*math.Sin(float64(k)/4))
		sales = append(sales, types.SalesData{
			ProductName: item.Product,
			BrandName:   item.Brand,
			Date:        day,
			Revenue:     revenue,
			UnitsSold:   int(revenue / 50),
		})
	}
	return posts, sales
}
